// Package metrics exposes the Prometheus collectors for sweeps and alert delivery.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SweepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nudge_sweeps_total",
		Help: "Total number of per-user sweeps by outcome.",
	}, []string{"outcome"})

	RemindersFired = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nudge_reminders_fired_total",
		Help: "Total number of reminder alerts fired by trigger type.",
	}, []string{"trigger_type"})

	ContextUnavailable = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nudge_context_unavailable_total",
		Help: "Sweeps that could not sample a context source.",
	}, []string{"source"})

	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nudge_sweep_duration_seconds",
		Help:    "Duration of a single per-user sweep.",
		Buckets: prometheus.DefBuckets,
	})

	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nudge_notifications_total",
		Help: "Immediate alerts by delivery status.",
	}, []string{"status"})

	WeatherLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nudge_weather_lookups_total",
		Help: "Weather condition lookups by source.",
	}, []string{"source"})
)

// Sweep outcomes
const (
	OutcomeCompleted = "completed"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

// Recorder is the metrics sink used by sweeps. Tests pass NopRecorder.
type Recorder interface {
	Sweep(outcome string, elapsed time.Duration)
	Fired(triggerType string)
	ContextUnavailable(source string)
}

type PrometheusRecorder struct{}

func (PrometheusRecorder) Sweep(outcome string, elapsed time.Duration) {
	SweepsTotal.WithLabelValues(outcome).Inc()
	SweepDuration.Observe(elapsed.Seconds())
}

func (PrometheusRecorder) Fired(triggerType string) {
	RemindersFired.WithLabelValues(triggerType).Inc()
}

func (PrometheusRecorder) ContextUnavailable(source string) {
	ContextUnavailable.WithLabelValues(source).Inc()
}

type NopRecorder struct{}

func (NopRecorder) Sweep(string, time.Duration) {}
func (NopRecorder) Fired(string)                {}
func (NopRecorder) ContextUnavailable(string)   {}
