// Package metrics provides Prometheus-based metrics recording for follow
// runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prospection/autofollow/internal/types"
)

// Recorder records the progress of the controller's tasks.
type Recorder interface {
	TaskStarted()
	// ObserveResult records a finished task. lost is true when the task
	// timed out without a report.
	ObserveResult(status types.Status, lost bool, duration time.Duration)
}

// PrometheusRecorder implements the Recorder interface using Prometheus metrics.
type PrometheusRecorder struct {
	tasksInFlight prometheus.Gauge
	resultsTotal  *prometheus.CounterVec
	lostTotal     prometheus.Counter
	taskDuration  *prometheus.HistogramVec
}

// NewPrometheusRecorder registers its metrics with reg.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	factory := promauto.With(reg)
	return &PrometheusRecorder{
		tasksInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "autofollow_tasks_in_flight",
			Help: "Number of page visits waiting for their report",
		}),
		resultsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autofollow_results_total",
				Help: "Total number of finished page visits by status",
			},
			[]string{"status"},
		),
		lostTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "autofollow_lost_tasks_total",
			Help: "Total number of page visits that never reported",
		}),
		taskDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "autofollow_task_duration_seconds",
				Help:    "Time from opening a page until its report arrived",
				Buckets: []float64{1, 2, 5, 10, 15, 20, 30, 45, 60, 90},
			},
			[]string{"status"},
		),
	}
}

func (p *PrometheusRecorder) TaskStarted() {
	p.tasksInFlight.Inc()
}

func (p *PrometheusRecorder) ObserveResult(status types.Status, lost bool, duration time.Duration) {
	p.tasksInFlight.Dec()
	p.resultsTotal.WithLabelValues(string(status)).Inc()
	if lost {
		p.lostTotal.Inc()
		return
	}
	p.taskDuration.WithLabelValues(string(status)).Observe(duration.Seconds())
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Nop discards everything.
type Nop struct{}

func (Nop) TaskStarted()                                    {}
func (Nop) ObserveResult(types.Status, bool, time.Duration) {}
