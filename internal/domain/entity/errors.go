package entity

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownChain        = errors.New("unknown chain")
	ErrConflict            = errors.New("chain id already registered")
	ErrBuiltinNotRemovable = errors.New("builtin network cannot be removed")
	ErrInvalidNetwork      = errors.New("invalid network definition")
	ErrInvalidAddress      = errors.New("invalid contract address")
	ErrInvalidAbiFormat    = errors.New("invalid abi format")
	ErrNetwork             = errors.New("source unreachable")
	ErrNotVerified         = errors.New("contract not verified")
	ErrNotFound            = errors.New("abi not found")
	ErrAllSourcesExhausted = errors.New("all abi sources exhausted")
	ErrSuperseded          = errors.New("request superseded by a newer one")
	ErrStoreUnavailable    = errors.New("persistent store unavailable")
)

// SourceAttempt records why one ABI source did not produce an ABI.
type SourceAttempt struct {
	Source AbiSourceKind `json:"source"`
	Err    error         `json:"-"`
}

// Reason returns the attempt's error text, empty when the attempt carries no error.
func (a SourceAttempt) Reason() string {
	if a.Err == nil {
		return ""
	}
	return a.Err.Error()
}

// ExhaustedError is returned once every automatic source failed.
// The caller may then supply an ABI manually or ask for decompilation.
type ExhaustedError struct {
	Address  string
	ChainID  uint64
	Attempts []SourceAttempt
	// IsContract is false when the address holds no bytecode on the chain, or when that could not be checked.
	IsContract bool
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %s", a.Source, a.Reason()))
	}
	return fmt.Sprintf("%s for %s on chain %d [%s]", ErrAllSourcesExhausted, e.Address, e.ChainID, strings.Join(parts, "; "))
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrAllSourcesExhausted
}
