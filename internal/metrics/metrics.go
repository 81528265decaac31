package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "indexsync"

// Engine, sync and cluster Prometheus metrics.
var (
	EngineRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_requests_total",
			Help:      "Total number of search engine requests",
		},
		[]string{"op", "status"},
	)

	EngineRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "engine_request_duration_seconds",
			Help:      "Search engine request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"op"},
	)

	EngineRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_retries_total",
			Help:      "Total number of retried search engine requests",
		},
		[]string{"op"},
	)

	SyncDocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_documents_total",
			Help:      "Documents imported by reindex",
		},
		[]string{"collection", "result"}, // "success" / "failure"
	)

	ClusterHealth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cluster_health",
			Help:      "Last cluster health verdict (1 for the current verdict, 0 otherwise)",
		},
		[]string{"verdict"},
	)

	ListenerEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listener_events_total",
			Help:      "Change events handled by the listener",
		},
		[]string{"kind", "result"},
	)
)

var registerOnce sync.Once

// Register registers the domain metrics with the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			EngineRequestsTotal,
			EngineRequestDuration,
			EngineRetriesTotal,
			SyncDocumentsTotal,
			ClusterHealth,
			ListenerEventsTotal,
			AdminRequestsTotal,
			AdminRequestDuration,
		)
	})
}

// SetClusterHealth marks verdict as the current one.
func SetClusterHealth(verdict string) {
	for _, v := range []string{"green", "yellow", "red"} {
		val := 0.0
		if v == verdict {
			val = 1
		}
		ClusterHealth.WithLabelValues(v).Set(val)
	}
}
