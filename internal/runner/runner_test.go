package runner

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/proofrunner/core/internal/callback"
	"github.com/proofrunner/core/internal/sandbox"
)

type fakeExecutor struct {
	result sandbox.Result
}

func (f *fakeExecutor) Execute(ctx context.Context, simulationID, candidateCode, candidateWriteup, runID string) sandbox.Result {
	return f.result
}

type fakeUploader struct {
	urls map[string]string
}

func (f *fakeUploader) Upload(ctx context.Context, runID string, artifacts map[string]string) map[string]string {
	return f.urls
}

type fakeNotifier struct {
	calls []callback.Completion
}

func (f *fakeNotifier) NotifyComplete(ctx context.Context, runID string, completion callback.Completion) {
	f.calls = append(f.calls, completion)
}

type fakeMetrics struct {
	jobsProcessed   map[string]int
	sandboxObserved int
	queueDepths     []float64
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{jobsProcessed: map[string]int{}}
}

func (f *fakeMetrics) IncJobsProcessed(status string)         { f.jobsProcessed[status]++ }
func (f *fakeMetrics) ObserveSandboxDuration(d time.Duration) { f.sandboxObserved++ }
func (f *fakeMetrics) SetQueueDepth(n float64)                { f.queueDepths = append(f.queueDepths, n) }

func newTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return client, mr
}

func TestProcessNextSuccessPublishesCompletedAndNotifies(t *testing.T) {
	client, mr := newTestRedis(t)
	defer mr.Close()

	exec := &fakeExecutor{result: sandbox.Result{Success: true, ExitCode: 0, Artifacts: map[string]string{}}}
	upl := &fakeUploader{urls: map[string]string{"metrics.json": "https://example/metrics.json"}}
	notif := &fakeNotifier{}
	metrics := newFakeMetrics()

	r := New(client, "simulation_jobs", time.Second, exec, upl, notif, zap.NewNop().Sugar(), metrics)

	job := Job{RunID: "run_1", Type: "simulation", SimulationID: "bugfix_v1"}
	payload, _ := json.Marshal(job)
	client.LPush(context.Background(), "simulation_jobs", string(payload))

	if err := r.processNext(context.Background()); err != nil {
		t.Fatalf("processNext: %v", err)
	}

	if len(notif.calls) != 1 || !notif.calls[0].Success {
		t.Fatalf("expected one successful notification, got %+v", notif.calls)
	}
	if metrics.jobsProcessed["completed"] != 1 {
		t.Errorf("expected one completed job recorded, got %+v", metrics.jobsProcessed)
	}
	if metrics.sandboxObserved != 1 {
		t.Errorf("expected one sandbox duration observation, got %d", metrics.sandboxObserved)
	}

	raw, err := client.HGet(context.Background(), "run:run_1", "status").Result()
	if err != nil {
		t.Fatalf("HGet: %v", err)
	}
	var status statusUpdate
	if err := json.Unmarshal([]byte(raw), &status); err != nil {
		t.Fatalf("unmarshal status: %v", err)
	}
	if status.Status != "completed" {
		t.Errorf("expected status completed, got %s", status.Status)
	}
}

func TestProcessNextSandboxFailureStillNotifiesAndMarksFailed(t *testing.T) {
	client, mr := newTestRedis(t)
	defer mr.Close()

	exec := &fakeExecutor{result: sandbox.Result{Success: false, ExitCode: -1, Err: sandbox.ErrTimeout}}
	upl := &fakeUploader{urls: map[string]string{}}
	notif := &fakeNotifier{}
	metrics := newFakeMetrics()

	r := New(client, "simulation_jobs", time.Second, exec, upl, notif, zap.NewNop().Sugar(), metrics)

	job := Job{RunID: "run_2", Type: "simulation", SimulationID: "bugfix_v1"}
	payload, _ := json.Marshal(job)
	client.LPush(context.Background(), "simulation_jobs", string(payload))

	if err := r.processNext(context.Background()); err != nil {
		t.Fatalf("processNext: %v", err)
	}

	if len(notif.calls) != 1 || notif.calls[0].Success {
		t.Fatalf("expected one failure notification, got %+v", notif.calls)
	}
	if metrics.jobsProcessed["failed"] != 1 {
		t.Errorf("expected one failed job recorded, got %+v", metrics.jobsProcessed)
	}

	raw, err := client.HGet(context.Background(), "run:run_2", "status").Result()
	if err != nil {
		t.Fatalf("HGet: %v", err)
	}
	var status statusUpdate
	if err := json.Unmarshal([]byte(raw), &status); err != nil {
		t.Fatalf("unmarshal status: %v", err)
	}
	if status.Status != "failed" {
		t.Errorf("expected status failed, got %s", status.Status)
	}
}

func TestProcessNextEmptyQueueTimesOutWithoutError(t *testing.T) {
	client, mr := newTestRedis(t)
	defer mr.Close()

	r := New(client, "simulation_jobs", 50*time.Millisecond, &fakeExecutor{}, &fakeUploader{}, &fakeNotifier{}, zap.NewNop().Sugar(), nil)

	if err := r.processNext(context.Background()); err != nil {
		t.Fatalf("expected nil error on empty-queue timeout, got %v", err)
	}
}

func TestStopEndsRunLoop(t *testing.T) {
	client, mr := newTestRedis(t)
	defer mr.Close()

	r := New(client, "simulation_jobs", 20*time.Millisecond, &fakeExecutor{}, &fakeUploader{}, &fakeNotifier{}, zap.NewNop().Sugar(), nil)

	done := make(chan struct{})
	go func() {
		r.Run(context.Background())
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	r.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
}
