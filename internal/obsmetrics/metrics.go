// Package obsmetrics exposes the runner's Prometheus instrumentation.
package obsmetrics

import (
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Metrics holds the runner's Prometheus collectors. Register it against a
// prometheus.Registerer (or the default registry) once at startup.
type Metrics struct {
	JobsProcessed   *prometheus.CounterVec
	SandboxDuration prometheus.Histogram
	QueueDepth      prometheus.Gauge
	RuleVerdicts    *prometheus.CounterVec
}

// New constructs the runner's metric collectors.
func New() *Metrics {
	return &Metrics{
		JobsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "proofrunner",
			Name:      "jobs_processed_total",
			Help:      "Number of simulation jobs processed, by terminal status.",
		}, []string{"status"}),
		SandboxDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "proofrunner",
			Name:      "sandbox_duration_seconds",
			Help:      "Wall-clock duration of sandbox executions.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "proofrunner",
			Name:      "queue_depth",
			Help:      "Most recently observed length of the job queue.",
		}),
		RuleVerdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "proofrunner",
			Name:      "rule_verdicts_total",
			Help:      "Proof rule verdicts, by rule ID and status.",
		}, []string{"rule_id", "status"}),
	}
}

// MustRegister registers every collector against reg.
func (m *Metrics) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(m.JobsProcessed, m.SandboxDuration, m.QueueDepth, m.RuleVerdicts)
}

// ObserveSandboxDuration records a sandbox execution's wall-clock time.
func (m *Metrics) ObserveSandboxDuration(d time.Duration) {
	m.SandboxDuration.Observe(d.Seconds())
}

// IncJobsProcessed records one terminal job outcome ("completed" or "failed").
func (m *Metrics) IncJobsProcessed(status string) {
	m.JobsProcessed.WithLabelValues(status).Inc()
}

// SetQueueDepth records the most recently observed queue length.
func (m *Metrics) SetQueueDepth(n float64) {
	m.QueueDepth.Set(n)
}

// RecordVerdict records one proof-rule verdict. Satisfies
// proof.VerdictRecorder, letting the proof engine report rule/status counts
// without importing Prometheus itself.
func (m *Metrics) RecordVerdict(ruleID, status string) {
	if ruleID == "" {
		ruleID = "unmatched"
	}
	m.RuleVerdicts.WithLabelValues(ruleID, status).Inc()
}

// Dump writes reg's current sample families to w in Prometheus text
// exposition format. Used by the one-shot proof-cli, which has no long-lived
// /metrics endpoint to scrape but still reports what it recorded.
func (m *Metrics) Dump(reg prometheus.Gatherer, w io.Writer) error {
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
