package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	ResolutionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "abi_resolver_resolutions_total",
		Help: "ABI resolutions by outcome.",
	}, []string{"outcome"})

	SourceAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "abi_resolver_source_attempts_total",
		Help: "ABI source calls by source and result.",
	}, []string{"source", "result"})

	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "abi_resolver_cache_hits_total",
		Help: "ABI resolutions answered from the cache.",
	})

	ProxyDetectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "abi_resolver_proxy_detections_total",
		Help: "Proxy detection outcomes by method.",
	}, []string{"method"})

	RPCClientsCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "abi_resolver_rpc_clients_created_total",
		Help: "RPC handles created per chain.",
	}, []string{"chain_id"})

	RegistryNetworks = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "abi_resolver_registry_networks",
		Help: "Registered networks by origin.",
	}, []string{"origin"})

	registerOnce sync.Once
)

// MustRegisterMetrics registers all collectors with the default registry once.
func MustRegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			ResolutionsTotal,
			SourceAttemptsTotal,
			CacheHitsTotal,
			ProxyDetectionsTotal,
			RPCClientsCreatedTotal,
			RegistryNetworks,
		)
	})
}
