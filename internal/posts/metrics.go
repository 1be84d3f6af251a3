package posts

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "forum",
		Subsystem: "posts",
		Name:      "query_duration_seconds",
		Help:      "Time spent filtering, sorting and paginating a post listing.",
		Buckets:   prometheus.DefBuckets,
	})

	queryResults = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "forum",
		Subsystem: "posts",
		Name:      "query_matches",
		Help:      "Number of posts matching the filters of a listing.",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
	})

	patchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "forum",
		Subsystem: "posts",
		Name:      "patches_total",
		Help:      "Partial updates by patch type and outcome.",
	}, []string{"type", "outcome"})

	mutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "forum",
		Subsystem: "posts",
		Name:      "mutations_total",
		Help:      "Post mutations by kind.",
	}, []string{"kind"})

	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "forum",
		Subsystem: "posts",
		Name:      "cache_hits_total",
		Help:      "Reads served from the Redis cache.",
	})
)
