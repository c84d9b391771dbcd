package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	generationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitcoach",
		Name:      "generation_total",
		Help:      "AI generation requests by kind (workout, meal, chat) and outcome (ok or failure kind).",
	}, []string{"kind", "outcome"})
	providerLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fitcoach",
		Name:      "provider_request_seconds",
		Help:      "Latency of completion requests to the language-model provider.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 60, 120},
	}, []string{"model", "status"})
)

func init() {
	prometheus.MustRegister(generationCounter, providerLatency)
}

// RecordGeneration counts one orchestrator run. outcome is "ok" or an error kind.
func RecordGeneration(kind, outcome string) {
	generationCounter.WithLabelValues(kind, outcome).Inc()
}

// ObserveProviderRequest records one outbound completion call.
func ObserveProviderRequest(model, status string, started time.Time) {
	providerLatency.WithLabelValues(model, status).Observe(time.Since(started).Seconds())
}
