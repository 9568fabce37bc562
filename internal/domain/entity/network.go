package entity

import (
	"fmt"
	"net/url"
	"strings"
)

// NetworkOrigin tells whether a network ships with the service or was added by a user.
type NetworkOrigin string

const (
	OriginBuiltin NetworkOrigin = "builtin"
	OriginCustom  NetworkOrigin = "custom"
)

// NativeCurrency describes the gas token of a network.
type NativeCurrency struct {
	Name     string `json:"name" yaml:"name"`
	Symbol   string `json:"symbol" yaml:"symbol"`
	Decimals uint8  `json:"decimals" yaml:"decimals"`
}

// NetworkDefinition holds the configuration for a specific blockchain network.
// Definitions are values: a change is always a new definition, never an in-place edit.
type NetworkDefinition struct {
	ID               uint64         `json:"id" yaml:"id"`
	Name             string         `json:"name" yaml:"name"`
	NativeCurrency   NativeCurrency `json:"nativeCurrency" yaml:"nativeCurrency"`
	RPCURLs          []string       `json:"rpcUrls" yaml:"rpcUrls"`
	IsTestnet        bool           `json:"isTestnet" yaml:"isTestnet"`
	Origin           NetworkOrigin  `json:"origin" yaml:"origin"`
	BlockExplorerURL string         `json:"blockExplorerUrl,omitempty" yaml:"blockExplorerUrl,omitempty"`
}

// Validate checks the fields a user-supplied definition must carry.
func (n NetworkDefinition) Validate() error {
	if n.ID == 0 {
		return fmt.Errorf("%w: chain id must be positive", ErrInvalidNetwork)
	}
	if strings.TrimSpace(n.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidNetwork)
	}
	if strings.TrimSpace(n.NativeCurrency.Symbol) == "" {
		return fmt.Errorf("%w: native currency symbol is required", ErrInvalidNetwork)
	}
	if n.NativeCurrency.Decimals > 36 {
		return fmt.Errorf("%w: native currency decimals %d out of range", ErrInvalidNetwork, n.NativeCurrency.Decimals)
	}
	if len(n.RPCURLs) == 0 {
		return fmt.Errorf("%w: at least one rpc url is required", ErrInvalidNetwork)
	}
	for _, raw := range n.RPCURLs {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("%w: rpc url %q: %v", ErrInvalidNetwork, raw, err)
		}
		switch u.Scheme {
		case "http", "https", "ws", "wss":
		default:
			return fmt.Errorf("%w: rpc url %q has unsupported scheme", ErrInvalidNetwork, raw)
		}
		if u.Host == "" {
			return fmt.Errorf("%w: rpc url %q has no host", ErrInvalidNetwork, raw)
		}
	}
	return nil
}

// Clone returns a copy that shares no slices with n.
func (n NetworkDefinition) Clone() NetworkDefinition {
	c := n
	c.RPCURLs = append([]string(nil), n.RPCURLs...)
	return c
}

// SameEndpoints reports whether urls equals the definition's RPC URL list, order included.
func (n NetworkDefinition) SameEndpoints(urls []string) bool {
	if len(n.RPCURLs) != len(urls) {
		return false
	}
	for i := range urls {
		if n.RPCURLs[i] != urls[i] {
			return false
		}
	}
	return true
}
