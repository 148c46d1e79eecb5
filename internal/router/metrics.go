// Package router — metrics.go registers the Prometheus metrics owned by the
// router. All observe helpers are nil-safe so a router constructed without
// WithMetrics pays nothing.
package router

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// routerMetrics holds all Prometheus metrics owned by the router.
type routerMetrics struct {
	// decisionsTotal counts routing outcomes, partitioned by outcome:
	// "local_sufficient", "fallback_required", "index_error", "fallback_error".
	decisionsTotal *prometheus.CounterVec

	// topScore records the best local similarity score observed per routed
	// query. The distribution shows how often the corpus is near the threshold.
	topScore prometheus.Histogram

	// retrievalSeconds records the latency of index retrieval calls,
	// partitioned by result: "ok" or "error".
	retrievalSeconds *prometheus.HistogramVec

	// websearchSeconds records the latency of web search fallback calls,
	// partitioned by result: "ok" or "error".
	websearchSeconds *prometheus.HistogramVec
}

// newRouterMetrics registers all router metrics against reg. promauto.With(reg)
// is used so each call registers into the provided registry rather than the
// global default — this keeps unit tests hermetic.
func newRouterMetrics(reg prometheus.Registerer) *routerMetrics {
	factory := promauto.With(reg)

	return &routerMetrics{
		decisionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docq",
			Subsystem: "router",
			Name:      "decisions_total",
			Help:      "Total routing decisions, partitioned by outcome.",
		}, []string{"outcome"}),

		topScore: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "docq",
			Subsystem: "router",
			Name:      "top_score",
			Help:      "Best local similarity score per routed query.",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),

		retrievalSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "docq",
			Subsystem: "router",
			Name:      "retrieval_seconds",
			Help:      "Latency of vector index retrieval calls.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"result"}),

		websearchSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "docq",
			Subsystem: "router",
			Name:      "websearch_seconds",
			Help:      "Latency of web search fallback calls.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}, []string{"result"}),
	}
}

// observeDecision records a routing outcome and the top local score.
func (m *routerMetrics) observeDecision(outcome string, topScore float32) {
	if m == nil {
		return
	}
	m.decisionsTotal.WithLabelValues(outcome).Inc()
	m.topScore.Observe(float64(topScore))
}

// observeRetrieval records the latency of one index retrieval call.
func (m *routerMetrics) observeRetrieval(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.retrievalSeconds.WithLabelValues(resultLabel(err)).Observe(d.Seconds())
}

// observeWebSearch records the latency of one web search call.
func (m *routerMetrics) observeWebSearch(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.websearchSeconds.WithLabelValues(resultLabel(err)).Observe(d.Seconds())
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
