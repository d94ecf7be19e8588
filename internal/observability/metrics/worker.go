package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	promoteTotal        *prometheus.CounterVec
	promoteDuration     *prometheus.HistogramVec
	promoteInFlight     prometheus.Gauge
	queueLag            *prometheus.HistogramVec
	classificationTotal *prometheus.CounterVec
	fallbackTotal       *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	promoteTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docflow",
			Subsystem: "worker",
			Name:      "promote_total",
			Help:      "Total promoted staged uploads by status.",
		},
		[]string{"service", "status"},
	)
	promoteDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docflow",
			Subsystem: "worker",
			Name:      "promote_duration_seconds",
			Help:      "Staged upload promotion duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	promoteInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docflow",
			Subsystem: "worker",
			Name:      "promote_in_flight",
			Help:      "Number of in-flight promotions.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docflow",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between upload staging and promotion start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)
	classificationTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docflow",
			Subsystem: "classifier",
			Name:      "classification_total",
			Help:      "Total classifications by resolved category.",
		},
		[]string{"service", "category"},
	)
	fallbackTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docflow",
			Subsystem: "classifier",
			Name:      "fallback_total",
			Help:      "Total classifications that degraded to untagged.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		promoteTotal,
		promoteDuration,
		promoteInFlight,
		queueLag,
		classificationTotal,
		fallbackTotal,
	)

	return &WorkerMetrics{
		registry:            registry,
		promoteTotal:        promoteTotal,
		promoteDuration:     promoteDuration,
		promoteInFlight:     promoteInFlight,
		queueLag:            queueLag,
		classificationTotal: classificationTotal,
		fallbackTotal:       fallbackTotal,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartPromotion() {
	m.promoteInFlight.Inc()
}

func (m *WorkerMetrics) FinishPromotion(service string, duration time.Duration, err error) {
	m.promoteInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.promoteTotal.WithLabelValues(service, status).Inc()
	m.promoteDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}

func (m *WorkerMetrics) RecordClassification(service, category string, fellBack bool) {
	if category == "" {
		category = "unknown"
	}
	m.classificationTotal.WithLabelValues(service, category).Inc()
	if fellBack {
		m.fallbackTotal.WithLabelValues(service).Inc()
	}
}
