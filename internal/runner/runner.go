// Package runner implements the main worker loop: pull simulation jobs off
// a Redis queue, execute them in a sandbox, upload artifacts, and notify
// the control plane of the outcome.
package runner

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/proofrunner/core/internal/artifact"
	"github.com/proofrunner/core/internal/callback"
	"github.com/proofrunner/core/internal/sandbox"
)

// metricsRecorder is the subset of *obsmetrics.Metrics the runner needs.
// Declared as an interface so runner tests don't have to construct a real
// Prometheus registry.
type metricsRecorder interface {
	IncJobsProcessed(status string)
	ObserveSandboxDuration(d time.Duration)
	SetQueueDepth(n float64)
}

// Executor runs a candidate's submission in an isolated sandbox. Satisfied
// by *sandbox.Manager; an interface here lets tests substitute a fake.
type Executor interface {
	Execute(ctx context.Context, simulationID, candidateCode, candidateWriteup, runID string) sandbox.Result
}

// Uploader uploads artifacts and returns presigned download URLs.
type Uploader interface {
	Upload(ctx context.Context, runID string, artifacts map[string]string) map[string]string
}

// Notifier sends the run-completion callback to the control plane.
type Notifier interface {
	NotifyComplete(ctx context.Context, runID string, completion callback.Completion)
}

// Runner pulls jobs from the queue and drives them through the sandbox,
// artifact sink, and completion callback.
type Runner struct {
	redis       *redis.Client
	queueName   string
	pollTimeout time.Duration
	executor    Executor
	uploader    Uploader
	notifier    Notifier
	log         *zap.SugaredLogger
	metrics     metricsRecorder

	running atomic.Bool
}

// New constructs a Runner. metrics may be nil, in which case the runner
// simply skips instrumentation.
func New(redisClient *redis.Client, queueName string, pollTimeout time.Duration, executor Executor, uploader Uploader, notifier Notifier, log *zap.SugaredLogger, metrics metricsRecorder) *Runner {
	r := &Runner{
		redis:       redisClient,
		queueName:   queueName,
		pollTimeout: pollTimeout,
		executor:    executor,
		uploader:    uploader,
		notifier:    notifier,
		log:         log,
		metrics:     metrics,
	}
	r.running.Store(true)
	return r
}

// Stop requests that the main loop exit after its current iteration. Safe
// to call from a signal handler.
func (r *Runner) Stop() {
	r.running.Store(false)
}

// Run is the main worker loop. It returns when Stop has been called and the
// loop has observed it, or when ctx is canceled.
func (r *Runner) Run(ctx context.Context) {
	r.log.Infow("runner started")

	for r.running.Load() {
		select {
		case <-ctx.Done():
			r.log.Infow("runner context canceled")
			return
		default:
		}

		if err := r.processNext(ctx); err != nil {
			if err == redis.Nil {
				continue
			}
			r.log.Errorw("redis connection error", "error", err)
			sleep(ctx, 5*time.Second)
		}
	}

	r.log.Infow("runner shutdown complete")
}

// processNext pulls and processes a single job. A nil return means either a
// job was handled (successfully or not — the job's own failure is reported
// via status+callback, not returned here) or the poll simply timed out.
func (r *Runner) processNext(ctx context.Context) error {
	result, err := r.redis.BRPop(ctx, r.pollTimeout, r.queueName).Result()
	if err == redis.Nil {
		return nil // poll timeout, no job available
	}
	if err != nil {
		return err
	}

	// BRPop returns [queueName, payload].
	payload := result[1]

	if r.metrics != nil {
		if depth, err := r.redis.LLen(ctx, r.queueName).Result(); err == nil {
			r.metrics.SetQueueDepth(float64(depth))
		}
	}

	job, parseErr := parseJob([]byte(payload))
	if parseErr != nil {
		r.log.Errorw("failed to parse job payload", "error", parseErr)
		return nil
	}

	r.log.Infow("processing job", "run_id", job.RunID, "job_type", job.Type)

	now := time.Now()
	if err := publishStatus(ctx, r.redis, job.RunID, "running", nil, now); err != nil {
		r.log.Errorw("failed to publish running status", "run_id", job.RunID, "error", err)
	}

	r.handleSimulationJob(ctx, job)
	return nil
}

// handleSimulationJob executes the sandbox, uploads artifacts on success,
// and always sends the completion callback so the run never gets stuck in
// "running" state from the control plane's point of view.
func (r *Runner) handleSimulationJob(ctx context.Context, job Job) {
	sandboxResult := r.executor.Execute(ctx, job.SimulationID, job.CandidateCode, job.CandidateWriteup, job.RunID)
	if r.metrics != nil {
		r.metrics.ObserveSandboxDuration(sandboxResult.Duration)
	}

	if !sandboxResult.Success {
		r.notifier.NotifyComplete(ctx, job.RunID, callback.Completion{
			Success:         false,
			Metrics:         map[string]interface{}{},
			ArtifactURLs:    map[string]string{},
			DurationSeconds: sandboxResult.Duration.Seconds(),
		})

		errMsg := "sandbox execution failed"
		if sandboxResult.Err != nil {
			errMsg = sandboxResult.Err.Error()
		}
		r.publishTerminal(ctx, job.RunID, "failed", map[string]interface{}{
			"error":            errMsg,
			"duration_seconds": sandboxResult.Duration.Seconds(),
		})
		if r.metrics != nil {
			r.metrics.IncJobsProcessed("failed")
		}
		r.log.Warnw("job failed", "run_id", job.RunID, "error", errMsg)
		return
	}

	artifactURLs := r.uploader.Upload(ctx, job.RunID, sandboxResult.Artifacts)
	metricsBag := artifact.ParseMetrics(sandboxResult.Artifacts, r.log)

	metricsMap := make(map[string]interface{}, len(metricsBag))
	for k := range metricsBag {
		metricsMap[k] = metricsBag.Raw(k)
	}

	r.notifier.NotifyComplete(ctx, job.RunID, callback.Completion{
		Success:         true,
		Metrics:         metricsMap,
		ArtifactURLs:    artifactURLs,
		DurationSeconds: sandboxResult.Duration.Seconds(),
	})

	r.publishTerminal(ctx, job.RunID, "completed", map[string]interface{}{
		"metrics":          metricsMap,
		"artifact_urls":    artifactURLs,
		"duration_seconds": sandboxResult.Duration.Seconds(),
	})
	if r.metrics != nil {
		r.metrics.IncJobsProcessed("completed")
	}
	r.log.Infow("job completed successfully", "run_id", job.RunID)
}

func (r *Runner) publishTerminal(ctx context.Context, runID, status string, result interface{}) {
	if err := publishStatus(ctx, r.redis, runID, status, result, time.Now()); err != nil {
		r.log.Errorw("failed to publish terminal status", "run_id", runID, "error", err)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
