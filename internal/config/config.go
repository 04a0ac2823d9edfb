// Package config provides configuration management for the runner service.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the runner service.
type Config struct {
	Queue     QueueConfig     `mapstructure:"queue"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Backend   BackendConfig   `mapstructure:"backend"`
	Sandbox   SandboxConfig   `mapstructure:"sandbox"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Server    ServerConfig    `mapstructure:"server"`
	WorkerID  string          `mapstructure:"worker_id"`
	SimsPath  string          `mapstructure:"sims_path"`
}

// QueueConfig holds Redis job-queue and status-store configuration.
type QueueConfig struct {
	RedisURL    string        `mapstructure:"redis_url"`
	JobQueue    string        `mapstructure:"job_queue"`
	PollTimeout time.Duration `mapstructure:"poll_timeout"`
}

// StorageConfig holds object-store (S3/MinIO) configuration for artifacts.
type StorageConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// BackendConfig holds control-plane completion-callback configuration.
type BackendConfig struct {
	URL     string        `mapstructure:"url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SandboxConfig holds sandbox execution configuration.
type SandboxConfig struct {
	Image            string        `mapstructure:"image"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MemoryLimit      string        `mapstructure:"memory_limit"`
	CPULimit         float64       `mapstructure:"cpu_limit"`
	NetworkDisabled  bool          `mapstructure:"network_disabled"`
	DockerPath       string        `mapstructure:"docker_path"`
	PidsLimit        int           `mapstructure:"pids_limit"`
}

// LoggingConfig holds structured logging configuration.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// ServerConfig holds the internal health/metrics server configuration.
type ServerConfig struct {
	HealthAddr string `mapstructure:"health_addr"`
}

// Load reads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("queue.redis_url", "redis://localhost:6379/0")
	v.SetDefault("queue.job_queue", "simulation_jobs")
	v.SetDefault("queue.poll_timeout", 5*time.Second)

	v.SetDefault("storage.endpoint", "http://minio:9000")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.bucket", "proofrunner-artifacts")
	v.SetDefault("storage.access_key", "minioadmin")
	v.SetDefault("storage.secret_key", "minioadmin")

	v.SetDefault("backend.url", "http://backend:8000")
	v.SetDefault("backend.api_key", "")
	v.SetDefault("backend.timeout", 30*time.Second)

	v.SetDefault("sandbox.image", "proofrunner-sandbox:latest")
	v.SetDefault("sandbox.timeout", 600*time.Second)
	v.SetDefault("sandbox.memory_limit", "512m")
	v.SetDefault("sandbox.cpu_limit", 1.0)
	v.SetDefault("sandbox.network_disabled", true)
	v.SetDefault("sandbox.docker_path", "docker")
	v.SetDefault("sandbox.pids_limit", 256)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.json", true)

	v.SetDefault("server.health_addr", ":9090")

	v.SetDefault("worker_id", fmt.Sprintf("worker-%d", os.Getpid()))
	v.SetDefault("sims_path", "/app/sims")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/proofrunner")
	}

	v.SetEnvPrefix("PROOFRUNNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
