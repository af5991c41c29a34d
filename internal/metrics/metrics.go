// Package metrics exports the result of an install run in the Prometheus
// text format, for node_exporter's textfile collector.
package metrics

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/imamik/hostup/internal/provisioning"
)

// Run holds the metrics of a single install run in its own registry.
type Run struct {
	app      string
	registry *prometheus.Registry

	stepDuration *prometheus.GaugeVec
	stepOutcome  *prometheus.CounterVec
	lastRun      *prometheus.GaugeVec
	success      *prometheus.GaugeVec
	certAttempts *prometheus.GaugeVec
	warnings     *prometheus.GaugeVec
}

// NewRun creates an empty metric set for app.
func NewRun(app string) *Run {
	r := &Run{
		app:      app,
		registry: prometheus.NewRegistry(),
		stepDuration: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "hostup",
				Name:      "step_duration_seconds",
				Help:      "Duration of each pipeline step in the last run",
			},
			[]string{"app", "step"},
		),
		stepOutcome: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hostup",
				Name:      "step_outcome_total",
				Help:      "Pipeline steps by outcome in the last run",
			},
			[]string{"app", "step", "outcome"},
		),
		lastRun: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "hostup",
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix time the last run finished",
			},
			[]string{"app"},
		),
		success: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "hostup",
				Name:      "last_run_success",
				Help:      "Whether the last run completed (1) or failed (0)",
			},
			[]string{"app"},
		),
		certAttempts: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "hostup",
				Name:      "certificate_attempts",
				Help:      "Certificate issuance attempts in the last run",
			},
			[]string{"app"},
		),
		warnings: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "hostup",
				Name:      "warnings",
				Help:      "Soft failures in the last run",
			},
			[]string{"app"},
		),
	}
	r.registry.MustRegister(r.stepDuration, r.stepOutcome, r.lastRun, r.success, r.certAttempts, r.warnings)
	return r
}

// Observe records the pipeline state at the end of a run.
func (r *Run) Observe(st *provisioning.State, finished time.Time, failed bool) {
	for _, s := range st.Steps {
		r.stepDuration.WithLabelValues(r.app, s.Step).Set(s.Duration.Seconds())
		r.stepOutcome.WithLabelValues(r.app, s.Step, s.Outcome.String()).Inc()
	}
	r.lastRun.WithLabelValues(r.app).Set(float64(finished.Unix()))
	if failed {
		r.success.WithLabelValues(r.app).Set(0)
	} else {
		r.success.WithLabelValues(r.app).Set(1)
	}
	r.certAttempts.WithLabelValues(r.app).Set(float64(st.CertAttempts))
	r.warnings.WithLabelValues(r.app).Set(float64(len(st.Warnings)))
}

// Registry returns the underlying registry.
func (r *Run) Registry() *prometheus.Registry { return r.registry }

// TextfileName returns the file name used for app in the textfile directory.
func TextfileName(app string) string {
	return "hostup_" + app + ".prom"
}

// WriteTextfile writes the metrics atomically into dir and returns the
// file path.
func (r *Run) WriteTextfile(dir string) (string, error) {
	path := filepath.Join(dir, TextfileName(r.app))
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return "", fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return path, nil
}
