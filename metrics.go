package dendro

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// pointsIngested counts leaves created, by engine ("batch", "online").
	pointsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dendro_points_ingested_total",
		Help: "Points turned into leaves, by engine",
	}, []string{"engine"})

	mergesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dendro_merges_total",
		Help: "Binary merges performed, by engine",
	}, []string{"engine"})

	mergeDistance = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dendro_merge_distance",
		Help:    "Matrix distance at which pairs were merged",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 12),
	})

	// staleDistances counts online distances dropped at commit because
	// their target was merged away after the snapshot.
	staleDistances = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dendro_stale_distances_discarded_total",
		Help: "Online distances discarded because the target node was no longer active",
	})

	catchUpDistances = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dendro_catchup_distances_total",
		Help: "Online distances computed inside the commit section for nodes missing from the snapshot",
	})

	starRoots = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dendro_star_roots_total",
		Help: "Synthetic star roots created to join disconnected batch remainders",
	})
)
