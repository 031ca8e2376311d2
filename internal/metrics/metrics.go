// Package metrics exposes Prometheus counters and gauges for the ark
// core. It is an ambient concern carried regardless of the spec's
// silence on observability, the way the teacher instruments pkg/cache.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	IndexRebuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ark_index_rebuilds_total",
			Help: "Total number of full ResourceIndex rebuilds (update_all) by trigger",
		},
		[]string{"trigger"}, // "initial", "watch_rescan", "manual"
	)

	IndexEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ark_index_entries",
			Help: "Current number of path entries tracked by a ResourceIndex",
		},
		[]string{"root"},
	)

	IndexCollisions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ark_index_collisions",
			Help: "Current number of resource ids with more than one path",
		},
		[]string{"root"},
	)

	AtomicFileContention = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ark_atomicfile_contention_total",
			Help: "Total number of CAS contention retries in AtomicFile.Modify",
		},
		[]string{"dir"},
	)

	AtomicFileModifyDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "ark_atomicfile_modify_duration_milliseconds",
			Help: "Duration of a successful AtomicFile.Modify call, including retries",
			Buckets: []float64{
				0.5, 1, 5, 10, 50, 100, 500, 1000,
			},
		},
		[]string{"dir"},
	)

	StorageCacheOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ark_storage_cache_operations_total",
			Help: "Total MemoryLimitedStorage cache operations by store and status",
		},
		[]string{"store", "status"}, // status: "hit", "miss", "evict"
	)
)

// ObserveAtomicFileModify records a completed Modify call, including how
// many CAS contention retries it needed.
func ObserveAtomicFileModify(dir string, retries int, duration time.Duration) {
	if retries > 0 {
		AtomicFileContention.WithLabelValues(dir).Add(float64(retries))
	}
	AtomicFileModifyDuration.WithLabelValues(dir).Observe(float64(duration.Microseconds()) / 1000.0)
}
