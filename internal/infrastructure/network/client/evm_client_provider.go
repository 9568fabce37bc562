package client

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"abi_resolver/internal/app/port"
	"abi_resolver/internal/domain/entity"
	"abi_resolver/internal/pkg/metrics"
)

const (
	defaultProviderConnectionTimeout = 10 * time.Second
	defaultRPCCallTimeout            = 15 * time.Second
)

// EVMClientProvider is the RPC client pool. It implements port.BlockchainClientProvider.
//
// Handles are created on first use and kept for the life of the process. A handle is
// only replaced when the registry now lists different endpoints for its chain; the old
// handle stays usable by whoever already holds it.
type EVMClientProvider struct {
	registry          port.NetworkDefinitionProvider
	logger            port.Logger
	connectionTimeout time.Duration
	rpcCallTimeout    time.Duration
	mainnet           entity.NetworkDefinition

	mu      sync.RWMutex
	clients map[uint64]*EVMClient

	connector atomic.Pointer[entity.ConnectorConfig]
}

// NewEVMClientProvider builds the pool and the initial connector snapshot from initial.
// mainnet is appended to every snapshot that lacks chain id 1.
func NewEVMClientProvider(
	registry port.NetworkDefinitionProvider,
	initial []entity.NetworkDefinition,
	mainnet entity.NetworkDefinition,
	rpcCallTimeout time.Duration,
	logger port.Logger,
) *EVMClientProvider {
	if rpcCallTimeout <= 0 {
		rpcCallTimeout = defaultRPCCallTimeout
	}
	p := &EVMClientProvider{
		registry:          registry,
		logger:            logger,
		connectionTimeout: defaultProviderConnectionTimeout,
		rpcCallTimeout:    rpcCallTimeout,
		mainnet:           mainnet,
		clients:           make(map[uint64]*EVMClient),
	}
	var builtins, customs []entity.NetworkDefinition
	for _, def := range initial {
		if def.Origin == entity.OriginCustom {
			customs = append(customs, def)
		} else {
			builtins = append(builtins, def)
		}
	}
	p.storeConnector(BuildConnectorConfig(1, builtins, customs, mainnet))
	return p
}

// ClientFor returns the handle for chainID, creating it from the registry's current definition if needed.
func (p *EVMClientProvider) ClientFor(chainID uint64) (port.BlockchainClient, error) {
	def, err := p.registry.GetByID(chainID)
	if err != nil {
		return nil, err
	}

	p.mu.RLock()
	c, ok := p.clients[chainID]
	p.mu.RUnlock()
	if ok && def.SameEndpoints(c.endpoints) {
		p.logger.Debug("Returning cached EVM client", "chainID", chainID)
		return c, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.clients[chainID]; ok && def.SameEndpoints(c.endpoints) {
		return c, nil
	}

	p.logger.Info("Creating new EVM client", "chainID", chainID, "network", def.Name, "rpc_primary", def.RPCURLs[0], "replacing", ok)
	newClient, err := NewEVMClient(def, p.connectionTimeout, p.rpcCallTimeout, p.logger)
	if err != nil {
		p.logger.Error("Failed to create EVM client", "chainID", chainID, "error", err)
		return nil, err
	}
	p.clients[chainID] = newClient
	metrics.RPCClientsCreatedTotal.WithLabelValues(strconv.FormatUint(chainID, 10)).Inc()
	return newClient, nil
}

// ConnectorConfig returns the current snapshot. Callers must not mutate it.
func (p *EVMClientProvider) ConnectorConfig() *entity.ConnectorConfig {
	return p.connector.Load()
}

// OnRegistryChanged rebuilds the connector snapshot. Existing handles are left alone.
func (p *EVMClientProvider) OnRegistryChanged(change entity.RegistryChange) {
	next := p.connector.Load().Version + 1
	p.storeConnector(BuildConnectorConfig(next, change.Builtins, change.Customs, p.mainnet))
	p.logger.Info("Connector configuration rebuilt", "version", next, "change", change.Kind, "chainID", change.ChainID)
}

func (p *EVMClientProvider) storeConnector(cfg *entity.ConnectorConfig) {
	cfg.BuiltAt = time.Now()
	p.connector.Store(cfg)
}

// BuildConnectorConfig lists builtins, then customs, then mainnet when neither list carries chain id 1.
// It is a pure function of its inputs.
func BuildConnectorConfig(version uint64, builtins, customs []entity.NetworkDefinition, mainnet entity.NetworkDefinition) *entity.ConnectorConfig {
	cfg := &entity.ConnectorConfig{
		Version: version,
		Chains:  make([]entity.ConnectorChain, 0, len(builtins)+len(customs)+1),
	}
	hasMainnet := false
	add := func(def entity.NetworkDefinition) {
		if def.ID == 1 {
			hasMainnet = true
		}
		ch := entity.ConnectorChain{
			ChainID:        def.ID,
			Name:           def.Name,
			NativeCurrency: def.NativeCurrency,
			IsTestnet:      def.IsTestnet,
		}
		if len(def.RPCURLs) > 0 {
			ch.RPCURL = def.RPCURLs[0]
		}
		cfg.Chains = append(cfg.Chains, ch)
	}
	for _, def := range builtins {
		add(def)
	}
	for _, def := range customs {
		add(def)
	}
	if !hasMainnet {
		add(mainnet)
	}
	return cfg
}
