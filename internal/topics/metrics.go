package topics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var topicViews = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "forum",
	Subsystem: "topics",
	Name:      "views_total",
	Help:      "Topic detail views.",
})
