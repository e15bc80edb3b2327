package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	OpportunitiesIngested = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hyperagent_opportunities_ingested_total",
		Help: "Opportunities created by ingestion adapters",
	}, []string{"source"})

	ClassificationResults = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hyperagent_classification_results_total",
		Help: "Per-opportunity classification outcomes",
	}, []string{"result"})

	SweepDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "hyperagent_classification_sweep_duration_seconds",
		Help:    "Classification sweep duration seconds",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
	})

	LLMCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hyperagent_llm_call_duration_seconds",
		Help:    "LLM call latency by provider and operation",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider", "operation", "result"})

	OutboundMessages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hyperagent_outbound_messages_total",
		Help: "Outbound replies by channel and result",
	}, []string{"channel", "result"})

	TwitterRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hyperagent_twitter_requests_total",
		Help: "Twitter API requests by endpoint and status code",
	}, []string{"endpoint", "status"})
)

func init() {
	prometheus.MustRegister(
		OpportunitiesIngested,
		ClassificationResults,
		SweepDuration,
		LLMCallDuration,
		OutboundMessages,
		TwitterRequests,
	)
}

// Handler exposes the default registry for gin.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// ObserveLLMCall records the latency of one LLM request.
func ObserveLLMCall(provider, operation string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	LLMCallDuration.WithLabelValues(provider, operation, result).Observe(time.Since(start).Seconds())
}

// ObserveSweep records a classification sweep run duration.
func ObserveSweep(start time.Time) {
	SweepDuration.Observe(time.Since(start).Seconds())
}
