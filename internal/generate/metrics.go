package generate

import "github.com/prometheus/client_golang/prometheus"

var (
	generationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chatd",
			Subsystem: "generation",
			Name:      "duration_seconds",
			Help:      "Wall time of a generate call, admission wait excluded",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"model"},
	)

	promptTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatd",
			Subsystem: "generation",
			Name:      "prompt_tokens_total",
			Help:      "Prompt tokens fed to the model",
		},
		[]string{"model"},
	)

	completionTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatd",
			Subsystem: "generation",
			Name:      "completion_tokens_total",
			Help:      "Tokens generated by the model",
		},
		[]string{"model"},
	)

	generationErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatd",
			Subsystem: "generation",
			Name:      "errors_total",
			Help:      "Failed generate calls by stage",
		},
		[]string{"model", "stage"},
	)

	generationRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatd",
			Subsystem: "generation",
			Name:      "rejections_total",
			Help:      "Requests turned away by the admission gate",
		},
		[]string{"model", "reason"},
	)

	queueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "chatd",
			Subsystem: "generation",
			Name:      "queue_depth",
			Help:      "Requests holding an admission slot",
		},
		[]string{"model"},
	)
)

func init() {
	prometheus.MustRegister(generationDuration, promptTokensTotal, completionTokensTotal,
		generationErrors, generationRejections, queueDepth)
}
