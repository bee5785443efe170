// internal/utils/metrics/collector.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "swapquote"

// Collector набор метрик конвейера котирования и исполнения.
type Collector struct {
	connectAttempts      *prometheus.CounterVec
	poolFetches          *prometheus.CounterVec
	candidatePools       prometheus.Histogram
	poolQuoteFailures    prometheus.Counter
	quotes               *prometheus.CounterVec
	prepareFailures      *prometheus.CounterVec
	executions           *prometheus.CounterVec
	confirmationDuration prometheus.Histogram
}

// NewCollector создает коллектор и регистрирует метрики в reg.
// nil reg даёт незарегистрированный коллектор, удобный в тестах.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		connectAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "connect_attempts_total",
			Help:      "RPC connection attempts by result",
		}, []string{"result"}),
		poolFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "pool_fetches_total",
			Help:      "Liquidity service pool set fetches by result",
		}, []string{"result"}),
		candidatePools: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "candidate_pools",
			Help:      "Number of candidate pools per requested pair",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		}),
		poolQuoteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quote",
			Name:      "pool_failures_total",
			Help:      "Per-pool trade computations that failed and were excluded",
		}),
		quotes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quote",
			Name:      "quotes_total",
			Help:      "Quote computations by status",
		}, []string{"status"}),
		prepareFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "prepare_failures_total",
			Help:      "Failed preparations by stage",
		}, []string{"stage"}),
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "executions_total",
			Help:      "Swap executions by outcome",
		}, []string{"outcome"}),
		confirmationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "confirmation_duration_seconds",
			Help:      "Time from submission to confirmation",
			Buckets:   prometheus.LinearBuckets(0, 5, 13),
		}),
	}

	if reg != nil {
		reg.MustRegister(
			c.connectAttempts,
			c.poolFetches,
			c.candidatePools,
			c.poolQuoteFailures,
			c.quotes,
			c.prepareFailures,
			c.executions,
			c.confirmationDuration,
		)
	}
	return c
}
