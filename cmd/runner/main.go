// Command runner is the worker process: it pulls simulation jobs off the
// queue, executes them in sandboxes, uploads artifacts, and reports results
// back to the control plane.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/proofrunner/core/internal/artifact"
	"github.com/proofrunner/core/internal/callback"
	"github.com/proofrunner/core/internal/config"
	"github.com/proofrunner/core/internal/healthserver"
	"github.com/proofrunner/core/internal/logging"
	"github.com/proofrunner/core/internal/obsmetrics"
	"github.com/proofrunner/core/internal/runner"
	"github.com/proofrunner/core/internal/sandbox"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	sugar, err := logging.New(cfg.Logging.Level, cfg.Logging.JSON)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer sugar.Sync()
	sugar = sugar.With("worker_id", cfg.WorkerID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	redisOpts, err := redis.ParseURL(cfg.Queue.RedisURL)
	if err != nil {
		sugar.Fatalw("invalid redis url", "error", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		pingCancel()
		sugar.Fatalw("failed to connect to redis", "error", err)
	}
	pingCancel()

	sink, err := artifact.NewSink(ctx, artifact.Config{
		Endpoint:  cfg.Storage.Endpoint,
		Region:    cfg.Storage.Region,
		Bucket:    cfg.Storage.Bucket,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
	}, sugar)
	if err != nil {
		sugar.Fatalw("failed to construct artifact sink", "error", err)
	}

	notifier := callback.NewClient(cfg.Backend.URL, cfg.Backend.APIKey, cfg.Backend.Timeout, sugar)

	sandboxManager := sandbox.NewManager(cfg.SimsPath, sandbox.ContainerConfig{
		DockerPath:      cfg.Sandbox.DockerPath,
		Image:           cfg.Sandbox.Image,
		Timeout:         cfg.Sandbox.Timeout,
		MemoryLimit:     cfg.Sandbox.MemoryLimit,
		CPULimit:        cfg.Sandbox.CPULimit,
		NetworkDisabled: cfg.Sandbox.NetworkDisabled,
		PidsLimit:       cfg.Sandbox.PidsLimit,
	}, sugar)

	registry := prometheus.NewRegistry()
	m := obsmetrics.New()
	m.MustRegister(registry)

	w := runner.New(redisClient, cfg.Queue.JobQueue, cfg.Queue.PollTimeout, sandboxManager, sink, notifier, sugar, m)

	health := healthserver.New(cfg.Server.HealthAddr, registry)
	go func() {
		if err := health.Start(ctx); err != nil {
			sugar.Errorw("health server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-quit
		sugar.Infow("shutdown signal received", "signal", fmt.Sprint(sig))
		w.Stop()
		cancel()
	}()

	w.Run(ctx)
}
