package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes of a target build.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

// Recorder collects bundler metrics.
type Recorder interface {
	ObserveStage(target, stage string, duration time.Duration)
	IncTarget(target, outcome string)
}

// Noop implements Recorder without emitting anything.
type Noop struct{}

// ObserveStage implements Recorder.
func (Noop) ObserveStage(string, string, time.Duration) {}

// IncTarget implements Recorder.
func (Noop) IncTarget(string, string) {}

// Prom implements Recorder backed by a private Prometheus registry.
type Prom struct {
	registry      *prometheus.Registry
	stageDuration *prometheus.HistogramVec
	targets       *prometheus.CounterVec
	lastRun       prometheus.Gauge
}

// NewProm creates a Prom recorder with metrics under namespace.
func NewProm(namespace string) *Prom {
	p := &Prom{
		registry: prometheus.NewRegistry(),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages by target and stage",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"target", "stage"}),
		targets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "targets_total",
			Help:      "Target builds by outcome",
		}, []string{"target", "outcome"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last recorded run",
		}),
	}

	p.registry.MustRegister(p.stageDuration, p.targets, p.lastRun)

	return p
}

// ObserveStage records how long a stage of target took.
func (p *Prom) ObserveStage(target, stage string, duration time.Duration) {
	p.stageDuration.WithLabelValues(target, stage).Observe(duration.Seconds())
}

// IncTarget counts a finished target build.
func (p *Prom) IncTarget(target, outcome string) {
	p.targets.WithLabelValues(target, outcome).Inc()
	p.lastRun.SetToCurrentTime()
}

// Gatherer exposes the registry, mainly for tests.
func (p *Prom) Gatherer() prometheus.Gatherer {
	return p.registry
}

// WriteTextfile atomically writes the collected metrics to path, in the
// format read by the node exporter textfile collector.
func (p *Prom) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}

	if err := prometheus.WriteToTextfile(path, p.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}

	return nil
}
