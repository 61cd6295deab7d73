// Package metrics records per-stage run metrics and exports them in the
// Prometheus text format for node_exporter's textfile collector.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hakim/reconx/internal/models"
	"github.com/hakim/reconx/internal/stage"
)

const namespace = "reconx"

// Recorder holds the run's collectors on a private registry
type Recorder struct {
	registry *prometheus.Registry

	stageDuration *prometheus.HistogramVec
	stageRecords  *prometheus.CounterVec
	stageErrors   *prometheus.CounterVec
	targets       prometheus.Gauge
	runDuration   prometheus.Gauge
	runStatus     *prometheus.GaugeVec
}

// NewRecorder creates and registers the run collectors
func NewRecorder() (*Recorder, error) {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of a single stage invocation.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"stage"}),
		stageRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_records_total",
			Help:      "Records produced by each stage.",
		}, []string{"stage"}),
		stageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_errors_total",
			Help:      "Failed stage invocations by error class.",
		}, []string{"stage", "class"}),
		targets: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "targets",
			Help:      "Targets in the run.",
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the whole run.",
		}),
		runStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_status",
			Help:      "Final run status; the matching label is set to 1.",
		}, []string{"status"}),
	}

	for _, c := range []prometheus.Collector{r.stageDuration, r.stageRecords, r.stageErrors, r.targets, r.runDuration, r.runStatus} {
		if err := r.registry.Register(c); err != nil {
			return nil, fmt.Errorf("registering collector: %w", err)
		}
	}

	return r, nil
}

// Registry exposes the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveStage records one finished stage invocation
func (r *Recorder) ObserveStage(kind models.StageKind, records int, err error, elapsed time.Duration) {
	label := string(kind)
	r.stageDuration.WithLabelValues(label).Observe(elapsed.Seconds())
	r.stageRecords.WithLabelValues(label).Add(float64(records))
	if err != nil {
		r.stageErrors.WithLabelValues(label, ErrorClass(err)).Inc()
	}
}

// ObserveRun records the run-level outcome
func (r *Recorder) ObserveRun(targets int, status models.RunStatus, elapsed time.Duration) {
	r.targets.Set(float64(targets))
	r.runDuration.Set(elapsed.Seconds())
	for _, s := range []models.RunStatus{models.StatusComplete, models.StatusPartial, models.StatusInterrupted} {
		v := 0.0
		if s == status {
			v = 1
		}
		r.runStatus.WithLabelValues(string(s)).Set(v)
	}
}

// WriteTextfile atomically writes the metrics to path
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}

// ErrorClass maps a stage error to a short label
func ErrorClass(err error) string {
	switch {
	case errors.Is(err, stage.ErrToolMissing):
		return "tool_missing"
	case errors.Is(err, stage.ErrTimeout):
		return "timeout"
	case errors.Is(err, stage.ErrParse):
		return "parse"
	case errors.Is(err, stage.ErrInterrupted):
		return "interrupted"
	default:
		return "stage"
	}
}
