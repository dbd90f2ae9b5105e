package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Recorder owns the Prometheus registry and the pulse-specific collectors.
// All record methods are nil-safe so callers can run without metrics in tests.
type Recorder struct {
	registry *prometheus.Registry

	runDurationSeconds *prometheus.HistogramVec
	runsTotal          *prometheus.CounterVec

	notificationsTotal *prometheus.CounterVec
	activeSubscribers  prometheus.Gauge
	droppedSubscribers prometheus.Counter
}

// NewRecorder creates a recorder with its own registry, including the Go
// runtime and process collectors.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Recorder{
		registry: registry,
		runDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pulse_run_duration_seconds",
			Help:    "Duration of newsletter generation runs.",
			Buckets: prometheus.DefBuckets,
		}, []string{"workflow_id", "status"}),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pulse_runs_total",
			Help: "Total newsletter generation runs by terminal status.",
		}, []string{"workflow_id", "status"}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pulse_notifications_total",
			Help: "Total completion notifications stored, by status.",
		}, []string{"status"}),
		activeSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pulse_active_subscribers",
			Help: "Number of live notification stream subscribers.",
		}),
		droppedSubscribers: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pulse_dropped_subscribers_total",
			Help: "Subscribers dropped because their queue was full or delivery failed.",
		}),
	}

	registry.MustRegister(
		r.runDurationSeconds,
		r.runsTotal,
		r.notificationsTotal,
		r.activeSubscribers,
		r.droppedSubscribers,
	)
	return r
}

// Registry exposes the underlying registry for the /metrics handler.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) RunFinished(workflowID, status string, d time.Duration) {
	if r == nil {
		return
	}
	r.runDurationSeconds.WithLabelValues(workflowID, status).Observe(d.Seconds())
	r.runsTotal.WithLabelValues(workflowID, status).Inc()
}

func (r *Recorder) NotificationStored(status string) {
	if r == nil {
		return
	}
	r.notificationsTotal.WithLabelValues(status).Inc()
}

func (r *Recorder) SubscriberAdded() {
	if r == nil {
		return
	}
	r.activeSubscribers.Inc()
}

func (r *Recorder) SubscriberRemoved() {
	if r == nil {
		return
	}
	r.activeSubscribers.Dec()
}

func (r *Recorder) SubscriberDropped() {
	if r == nil {
		return
	}
	r.droppedSubscribers.Inc()
	r.activeSubscribers.Dec()
}
