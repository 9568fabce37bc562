package port

import (
	"context"

	"abi_resolver/internal/domain/entity"
)

// AbiSource is one step of the ABI fallback chain.
//
// FetchAbi returns entity.ErrNotFound, entity.ErrNotVerified or entity.ErrNetwork
// (possibly wrapped) when it cannot produce an ABI.
type AbiSource interface {
	Kind() entity.AbiSourceKind
	FetchAbi(ctx context.Context, address string, chainID uint64) (entity.Abi, error)
}

// AbiResolverService is the resolution pipeline as seen by the API and the CLI.
type AbiResolverService interface {
	Resolve(ctx context.Context, address string, chainID uint64, opts entity.ResolveOptions) (*entity.Resolution, error)
	// ResolveLatest returns entity.ErrSuperseded when a newer request of scope was started meanwhile.
	ResolveLatest(ctx context.Context, scope, address string, chainID uint64, opts entity.ResolveOptions) (*entity.Resolution, error)
	ProvideAbi(ctx context.Context, address string, chainID uint64, abiText string) (*entity.Resolution, error)
	Decompile(ctx context.Context, address string, chainID uint64) (*entity.Resolution, error)
	ClearAbi(ctx context.Context, address string, chainID uint64) error
	DetectProxyTarget(ctx context.Context, address string, chainID uint64) (entity.ProxyRecord, error)
}
