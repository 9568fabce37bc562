package port

import (
	"context"

	"abi_resolver/internal/domain/entity"

	"github.com/ethereum/go-ethereum/common"
)

// ChainReader is the read-only slice of RPC access the proxy detector needs.
type ChainReader interface {
	// StorageAt returns the 32-byte word stored at slot of address at the latest block.
	StorageAt(ctx context.Context, address common.Address, slot common.Hash) ([]byte, error)
	// CodeAt returns the deployed bytecode of address at the latest block.
	CodeAt(ctx context.Context, address common.Address) ([]byte, error)
}

// BlockchainClient is a long-lived RPC handle bound to one chain.
type BlockchainClient interface {
	ChainReader
	ChainID() uint64
	// Endpoints returns the RPC URLs the handle was built from, primary first.
	Endpoints() []string
}

// NetworkDefinitionProvider resolves chain ids to their current definitions.
type NetworkDefinitionProvider interface {
	// GetByID returns entity.ErrUnknownChain when id is not registered.
	GetByID(id uint64) (entity.NetworkDefinition, error)
}

// ChainRegistry is the authoritative set of reachable networks.
type ChainRegistry interface {
	NetworkDefinitionProvider
	ListNetworks() []entity.NetworkDefinition
	AddCustomNetwork(ctx context.Context, def entity.NetworkDefinition) error
	RemoveCustomNetwork(ctx context.Context, id uint64) error
}

// BlockchainClientProvider hands out RPC handles per chain.
type BlockchainClientProvider interface {
	ClientFor(chainID uint64) (BlockchainClient, error)
	ConnectorConfig() *entity.ConnectorConfig
}

// ProxyDetector finds the implementation behind a proxy contract.
type ProxyDetector interface {
	Detect(ctx context.Context, address common.Address, reader ChainReader) entity.ProxyRecord
}

// RegistryChangePublisher delivers registry mutations to interested components.
// Publish must not return before every subscriber has run.
type RegistryChangePublisher interface {
	PublishRegistryChange(change entity.RegistryChange)
}
