package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the extraction pipeline and its HTTP surface.
var (
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "resemantic_stage_duration_seconds",
		Help:    "Duration of each pipeline stage",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"stage"})

	PipelineErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resemantic_pipeline_errors_total",
		Help: "Pipeline stage errors by stage",
	}, []string{"stage"})

	TurnsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resemantic_turns_processed_total",
		Help: "Completed pipeline invocations, including partial failures",
	})

	PropositionsStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resemantic_propositions_stored_total",
		Help: "Propositions committed to the graph store",
	})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "resemantic_queue_depth",
		Help: "Pipeline invocations waiting for a worker",
	})

	QueueDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resemantic_queue_dropped_total",
		Help: "Pipeline invocations dropped because the queue was full",
	})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resemantic_http_requests_total",
		Help: "HTTP requests by path and status",
	}, []string{"path", "status"})
)
