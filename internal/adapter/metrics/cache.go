package metrics

import "github.com/prometheus/client_golang/prometheus"

// CacheMetrics tracks the GitHub proxy response cache.
type CacheMetrics struct {
	Hits   prometheus.Counter
	Misses prometheus.Counter
	Stores prometheus.Counter
	Errors *prometheus.CounterVec
}

func NewCacheMetrics(reg prometheus.Registerer) *CacheMetrics {
	m := &CacheMetrics{
		Hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "proxy_cache",
			Name:      "hits_total",
			Help:      "Total number of proxy requests served from the response cache.",
		}),
		Misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "proxy_cache",
			Name:      "misses_total",
			Help:      "Total number of proxy requests that missed the response cache.",
		}),
		Stores: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "proxy_cache",
			Name:      "stores_total",
			Help:      "Total number of upstream responses written to the cache.",
		}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "proxy_cache",
			Name:      "errors_total",
			Help:      "Total number of response cache failures, by operation.",
		}, []string{"operation"}),
	}

	reg.MustRegister(m.Hits, m.Misses, m.Stores, m.Errors)
	return m
}
