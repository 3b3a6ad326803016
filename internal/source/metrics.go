package source

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	providerCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "w3studio_source_provider_calls_total",
		Help: "ABI provider calls by provider and outcome",
	}, []string{"provider", "outcome"})

	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "w3studio_source_cache_hits_total",
		Help: "Resolutions served from the descriptor cache",
	})

	providerBugs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "w3studio_source_implementation_bug_total",
		Help: "Implementation ABI fetches rejected because the provider returned the proxy",
	})
)

func observe(provider string, err error) {
	outcome := "ok"
	if err != nil {
		if k := KindOf(err); k != "" {
			outcome = string(k)
		} else {
			outcome = "not-found"
		}
	}
	providerCalls.WithLabelValues(provider, outcome).Inc()
}
