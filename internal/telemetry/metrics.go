package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	QuestionRequests  = prometheus.NewCounter(prometheus.CounterOpts{Name: "question_requests_total", Help: "Question requests accepted by the producer"})
	JobsEnqueued      = prometheus.NewCounter(prometheus.CounterOpts{Name: "jobs_enqueued_total", Help: "Jobs created and pushed onto the work queue"})
	RateLimitRejects  = prometheus.NewCounter(prometheus.CounterOpts{Name: "question_requests_rate_limited_total", Help: "Requests rejected by rate limiter"})
	JobsProcessed     = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "jobs_processed_total", Help: "Jobs that reached a terminal status"}, []string{"type", "status"})
	UnsupportedJobs   = prometheus.NewCounter(prometheus.CounterOpts{Name: "jobs_unsupported_total", Help: "Jobs failed because no handler exists for their type"})
	OrphanedItems     = prometheus.NewCounter(prometheus.CounterOpts{Name: "orphaned_queue_items_total", Help: "Queue items dropped because their job record was missing"})
	LoopErrors        = prometheus.NewCounter(prometheus.CounterOpts{Name: "worker_loop_errors_total", Help: "Errors caught by the processing loop"})
	AuditFailures     = prometheus.NewCounter(prometheus.CounterOpts{Name: "audit_append_failures_total", Help: "Audit records that could not be written"})
	QuestionsStored   = prometheus.NewCounter(prometheus.CounterOpts{Name: "questions_generated_total", Help: "Generated questions persisted"})
	QueueDepthGauge   = prometheus.NewGauge(prometheus.GaugeOpts{Name: "work_queue_depth", Help: "Items waiting on the work queue"})
	GenerationLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "question_generation_seconds",
		Help:    "Latency of AI question generation calls",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
	}, []string{"provider", "success"})
)

// Handler exposes /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			QuestionRequests,
			JobsEnqueued,
			RateLimitRejects,
			JobsProcessed,
			UnsupportedJobs,
			OrphanedItems,
			LoopErrors,
			AuditFailures,
			QuestionsStored,
			QueueDepthGauge,
			GenerationLatency,
		)
	})
	return promhttp.Handler()
}
