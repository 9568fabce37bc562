package entity

import "time"

// AbiSourceKind identifies where an ABI came from.
type AbiSourceKind string

const (
	SourceUserProvided  AbiSourceKind = "userProvided"
	SourceAbiDirectory  AbiSourceKind = "abiDirectory"
	SourceBlockExplorer AbiSourceKind = "blockExplorer"
	SourceDecompiler    AbiSourceKind = "decompiler"
)

// AbiParam is one input, output or tuple component of an ABI entry.
type AbiParam struct {
	Name         string     `json:"name"`
	Type         string     `json:"type"`
	InternalType string     `json:"internalType,omitempty"`
	Indexed      bool       `json:"indexed,omitempty"`
	Components   []AbiParam `json:"components,omitempty"`
}

// AbiEntry is a single function, event, error, constructor, fallback or receive description.
type AbiEntry struct {
	Type            string     `json:"type"`
	Name            string     `json:"name,omitempty"`
	Inputs          []AbiParam `json:"inputs,omitempty"`
	Outputs         []AbiParam `json:"outputs,omitempty"`
	StateMutability string     `json:"stateMutability,omitempty"`
	Anonymous       bool       `json:"anonymous,omitempty"`
	Payable         bool       `json:"payable,omitempty"`
	Constant        bool       `json:"constant,omitempty"`
}

// Abi is an ordered list of entries.
type Abi []AbiEntry

// Functions returns the function entries in declaration order.
func (a Abi) Functions() []AbiEntry {
	out := make([]AbiEntry, 0, len(a))
	for _, e := range a {
		if e.Type == "function" {
			out = append(out, e)
		}
	}
	return out
}

// AbiCacheEntry is what the cache persists per (address, chain) pair.
type AbiCacheEntry struct {
	Address               string          `json:"address"`
	ChainID               uint64          `json:"chainId"`
	Abi                   Abi             `json:"abi"`
	Source                AbiSourceKind   `json:"source"`
	FetchedAt             time.Time       `json:"fetchedAt"`
	ImplementationAddress string          `json:"implementationAddress,omitempty"`
	DetectionMethod       DetectionMethod `json:"detectionMethod,omitempty"`
}
