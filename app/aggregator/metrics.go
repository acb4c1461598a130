package aggregator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geowire_fetches_total",
		Help: "Total number of feed fetch attempts",
	})

	fetchErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geowire_fetch_errors_total",
		Help: "Total number of failed feed fetches",
	})

	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geowire_cache_hits_total",
		Help: "Total number of aggregation cache hits",
	})
)
