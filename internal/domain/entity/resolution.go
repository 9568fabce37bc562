package entity

import "time"

// Resolution is the result of resolving an ABI for an address on a chain.
type Resolution struct {
	Address   string        `json:"address"`
	ChainID   uint64        `json:"chainId"`
	Abi       Abi           `json:"abi"`
	Source    AbiSourceKind `json:"source"`
	FromCache bool          `json:"fromCache"`
	Proxy     *ProxyRecord  `json:"proxy,omitempty"`
	FetchedAt time.Time     `json:"fetchedAt"`
}

// ResolveOptions tunes a single resolution.
type ResolveOptions struct {
	// UserAbi, when set, is validated and cached as the ABI without contacting any source.
	UserAbi string
}

// ConnectorChain is one chain as handed to the wallet connector.
type ConnectorChain struct {
	ChainID        uint64         `json:"chainId"`
	Name           string         `json:"name"`
	RPCURL         string         `json:"rpcUrl"`
	NativeCurrency NativeCurrency `json:"nativeCurrency"`
	IsTestnet      bool           `json:"isTestnet"`
}

// ConnectorConfig is an immutable snapshot of every reachable chain.
type ConnectorConfig struct {
	Version uint64           `json:"version"`
	BuiltAt time.Time        `json:"builtAt"`
	Chains  []ConnectorChain `json:"chains"`
}

// Has reports whether the snapshot lists chainID.
func (c *ConnectorConfig) Has(chainID uint64) bool {
	for _, ch := range c.Chains {
		if ch.ChainID == chainID {
			return true
		}
	}
	return false
}

// RegistryChangeKind is the kind of mutation applied to the chain registry.
type RegistryChangeKind string

const (
	RegistryNetworkAdded   RegistryChangeKind = "added"
	RegistryNetworkRemoved RegistryChangeKind = "removed"
)

// RegistryChange is published after every successful registry mutation.
type RegistryChange struct {
	Kind    RegistryChangeKind
	ChainID uint64
	// Builtins and Customs are the registry contents after the change.
	Builtins []NetworkDefinition
	Customs  []NetworkDefinition
}
