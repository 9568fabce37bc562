package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"abi_resolver/internal/app/port"
	"abi_resolver/internal/domain/entity"
	"abi_resolver/internal/pkg/abiparse"
	"abi_resolver/internal/pkg/metrics"
	"abi_resolver/internal/pkg/utils"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/singleflight"
)

var _ port.AbiResolverService = (*AbiResolver)(nil)

// AbiResolver runs the cache, proxy detection and source fallback pipeline.
type AbiResolver struct {
	registry   port.NetworkDefinitionProvider
	clients    port.BlockchainClientProvider
	detector   port.ProxyDetector
	cache      *AbiCache
	sources    []port.AbiSource
	decompiler port.AbiSource
	tracker    *RequestTracker
	logger     port.Logger

	group singleflight.Group
	now   func() time.Time
}

// NewAbiResolver wires the pipeline. sources are tried in order; decompiler may be nil
// and is only used on explicit request.
func NewAbiResolver(
	registry port.NetworkDefinitionProvider,
	clients port.BlockchainClientProvider,
	detector port.ProxyDetector,
	cache *AbiCache,
	sources []port.AbiSource,
	decompiler port.AbiSource,
	tracker *RequestTracker,
	logger port.Logger,
) *AbiResolver {
	return &AbiResolver{
		registry:   registry,
		clients:    clients,
		detector:   detector,
		cache:      cache,
		sources:    sources,
		decompiler: decompiler,
		tracker:    tracker,
		logger:     logger,
		now:        time.Now,
	}
}

// Resolve returns the ABI of address on chainID.
//
// A cached entry is returned without any network call. Otherwise the proxy target is
// detected and each source is asked in order for the effective address. When all of
// them fail the error is an *entity.ExhaustedError. Concurrent calls for the same key
// share one pipeline run.
func (r *AbiResolver) Resolve(ctx context.Context, address string, chainID uint64, opts entity.ResolveOptions) (*entity.Resolution, error) {
	addr, err := r.checkTarget(address, chainID)
	if err != nil {
		return nil, err
	}
	if opts.UserAbi != "" {
		return r.provide(ctx, addr, chainID, opts.UserAbi)
	}

	if entry, ok := r.cache.Get(ctx, addr, chainID); ok {
		metrics.CacheHitsTotal.Inc()
		metrics.ResolutionsTotal.WithLabelValues("cache").Inc()
		return fromCache(entry), nil
	}

	key := CacheKey(addr, chainID)
	ch := r.group.DoChan(key, func() (any, error) {
		return r.resolveUncached(context.WithoutCancel(ctx), addr, chainID)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		resolution := *res.Val.(*entity.Resolution)
		return &resolution, nil
	}
}

// ResolveLatest is Resolve for callers that may issue overlapping requests in one scope,
// such as a UI session. Only the newest request of the scope gets its outcome; older
// ones return entity.ErrSuperseded.
func (r *AbiResolver) ResolveLatest(ctx context.Context, scope, address string, chainID uint64, opts entity.ResolveOptions) (*entity.Resolution, error) {
	fp := r.tracker.Begin(scope)
	res, err := r.Resolve(ctx, address, chainID, opts)
	if !r.tracker.IsCurrent(scope, fp) {
		r.logger.Debug("Discarding superseded resolution", "scope", scope, "address", address, "chainID", chainID)
		return nil, entity.ErrSuperseded
	}
	return res, err
}

// ProvideAbi validates abiText and caches it as a user override for (address, chainID).
func (r *AbiResolver) ProvideAbi(ctx context.Context, address string, chainID uint64, abiText string) (*entity.Resolution, error) {
	addr, err := r.checkTarget(address, chainID)
	if err != nil {
		return nil, err
	}
	return r.provide(ctx, addr, chainID, abiText)
}

func (r *AbiResolver) provide(ctx context.Context, addr string, chainID uint64, abiText string) (*entity.Resolution, error) {
	abi, err := abiparse.Parse(abiText)
	if err != nil {
		metrics.ResolutionsTotal.WithLabelValues("invalid_abi").Inc()
		return nil, err
	}
	entry := entity.AbiCacheEntry{
		Address:   addr,
		ChainID:   chainID,
		Abi:       abi,
		Source:    entity.SourceUserProvided,
		FetchedAt: r.now(),
	}
	if err := r.cache.Put(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to store user-provided abi: %w", err)
	}
	metrics.ResolutionsTotal.WithLabelValues(string(entity.SourceUserProvided)).Inc()
	r.logger.Info("User-provided ABI stored", "address", addr, "chainID", chainID, "entries", len(abi))
	return &entity.Resolution{
		Address:   addr,
		ChainID:   chainID,
		Abi:       abi,
		Source:    entity.SourceUserProvided,
		FetchedAt: entry.FetchedAt,
	}, nil
}

// Decompile asks the decompiler for an ABI and caches it. It is never part of the automatic chain.
func (r *AbiResolver) Decompile(ctx context.Context, address string, chainID uint64) (*entity.Resolution, error) {
	addr, err := r.checkTarget(address, chainID)
	if err != nil {
		return nil, err
	}
	if r.decompiler == nil {
		return nil, &entity.ExhaustedError{
			Address: addr,
			ChainID: chainID,
			Attempts: []entity.SourceAttempt{{
				Source: entity.SourceDecompiler,
				Err:    fmt.Errorf("%w: decompiler not configured", entity.ErrNotFound),
			}},
		}
	}

	gen := r.cache.Generation(chainID)
	client, err := r.clients.ClientFor(chainID)
	if err != nil {
		return nil, err
	}
	rec := r.detector.Detect(ctx, common.HexToAddress(addr), client)
	target := rec.EffectiveAddress()

	abi, err := r.decompiler.FetchAbi(ctx, target, chainID)
	if err != nil {
		metrics.SourceAttemptsTotal.WithLabelValues(string(entity.SourceDecompiler), "failure").Inc()
		metrics.ResolutionsTotal.WithLabelValues("exhausted").Inc()
		r.logger.Warn("Decompiler failed", "address", addr, "target", target, "chainID", chainID, "error", err)
		return nil, &entity.ExhaustedError{
			Address:    addr,
			ChainID:    chainID,
			Attempts:   []entity.SourceAttempt{{Source: entity.SourceDecompiler, Err: err}},
			IsContract: r.isContract(ctx, client, addr),
		}
	}
	metrics.SourceAttemptsTotal.WithLabelValues(string(entity.SourceDecompiler), "success").Inc()

	entry := entity.AbiCacheEntry{
		Address:   addr,
		ChainID:   chainID,
		Abi:       abi,
		Source:    entity.SourceDecompiler,
		FetchedAt: r.now(),
	}
	if rec.IsProxy() {
		entry.ImplementationAddress = rec.ImplementationAddress
		entry.DetectionMethod = rec.DetectionMethod
	}
	if _, err := r.cache.PutIfCurrent(ctx, entry, gen); err != nil {
		r.logger.Warn("Failed to cache decompiled ABI", "address", addr, "chainID", chainID, "error", err)
	}
	metrics.ResolutionsTotal.WithLabelValues(string(entity.SourceDecompiler)).Inc()
	return &entity.Resolution{
		Address:   addr,
		ChainID:   chainID,
		Abi:       abi,
		Source:    entity.SourceDecompiler,
		Proxy:     &rec,
		FetchedAt: entry.FetchedAt,
	}, nil
}

// ClearAbi forgets the cached ABI of (address, chainID).
func (r *AbiResolver) ClearAbi(ctx context.Context, address string, chainID uint64) error {
	addr, err := utils.NormalizeAddress(address)
	if err != nil {
		return err
	}
	if err := r.cache.Delete(ctx, addr, chainID); err != nil {
		return err
	}
	r.logger.Info("Cached ABI cleared", "address", addr, "chainID", chainID)
	return nil
}

// DetectProxyTarget runs proxy detection alone.
func (r *AbiResolver) DetectProxyTarget(ctx context.Context, address string, chainID uint64) (entity.ProxyRecord, error) {
	addr, err := r.checkTarget(address, chainID)
	if err != nil {
		return entity.ProxyRecord{}, err
	}
	client, err := r.clients.ClientFor(chainID)
	if err != nil {
		return entity.ProxyRecord{}, err
	}
	return r.detector.Detect(ctx, common.HexToAddress(addr), client), nil
}

func (r *AbiResolver) resolveUncached(ctx context.Context, addr string, chainID uint64) (*entity.Resolution, error) {
	// a flight that just finished may have filled the cache
	if entry, ok := r.cache.Get(ctx, addr, chainID); ok {
		return fromCache(entry), nil
	}

	// writes are dropped if the chain is purged while the sources are queried
	gen := r.cache.Generation(chainID)
	client, err := r.clients.ClientFor(chainID)
	if err != nil {
		return nil, err
	}
	rec := r.detector.Detect(ctx, common.HexToAddress(addr), client)
	target := rec.EffectiveAddress()
	if rec.IsProxy() {
		r.logger.Debug("Resolving through proxy implementation", "address", addr, "implementation", target, "method", rec.DetectionMethod)
	}

	attempts := make([]entity.SourceAttempt, 0, len(r.sources))
	for _, src := range r.sources {
		abi, err := src.FetchAbi(ctx, target, chainID)
		if err != nil {
			metrics.SourceAttemptsTotal.WithLabelValues(string(src.Kind()), failureLabel(err)).Inc()
			r.logger.Info("ABI source failed, trying next", "source", src.Kind(), "address", target, "chainID", chainID, "error", err)
			attempts = append(attempts, entity.SourceAttempt{Source: src.Kind(), Err: err})
			continue
		}
		metrics.SourceAttemptsTotal.WithLabelValues(string(src.Kind()), "success").Inc()

		entry := entity.AbiCacheEntry{
			Address:   addr,
			ChainID:   chainID,
			Abi:       abi,
			Source:    src.Kind(),
			FetchedAt: r.now(),
		}
		if rec.IsProxy() {
			entry.ImplementationAddress = rec.ImplementationAddress
			entry.DetectionMethod = rec.DetectionMethod
		}
		stored, err := r.cache.PutUnlessOverridden(ctx, entry, gen)
		if err != nil {
			r.logger.Warn("Failed to cache resolved ABI", "address", addr, "chainID", chainID, "error", err)
			stored = entry
		}
		metrics.ResolutionsTotal.WithLabelValues(string(stored.Source)).Inc()
		return &entity.Resolution{
			Address:   addr,
			ChainID:   chainID,
			Abi:       stored.Abi,
			Source:    stored.Source,
			Proxy:     &rec,
			FetchedAt: stored.FetchedAt,
		}, nil
	}

	metrics.ResolutionsTotal.WithLabelValues("exhausted").Inc()
	exhausted := &entity.ExhaustedError{
		Address:    addr,
		ChainID:    chainID,
		Attempts:   attempts,
		IsContract: r.isContract(ctx, client, addr),
	}
	r.logger.Warn("All ABI sources exhausted", "address", addr, "chainID", chainID, "error", exhausted)
	return nil, exhausted
}

// checkTarget normalises the address and makes sure the chain is registered.
func (r *AbiResolver) checkTarget(address string, chainID uint64) (string, error) {
	addr, err := utils.NormalizeAddress(address)
	if err != nil {
		return "", err
	}
	if _, err := r.registry.GetByID(chainID); err != nil {
		return "", err
	}
	return addr, nil
}

func (r *AbiResolver) isContract(ctx context.Context, client port.ChainReader, addr string) bool {
	code, err := client.CodeAt(ctx, common.HexToAddress(addr))
	if err != nil {
		r.logger.Debug("Bytecode check failed", "address", addr, "error", err)
		return false
	}
	return len(code) > 0
}

func fromCache(entry *entity.AbiCacheEntry) *entity.Resolution {
	res := &entity.Resolution{
		Address:   entry.Address,
		ChainID:   entry.ChainID,
		Abi:       entry.Abi,
		Source:    entry.Source,
		FromCache: true,
		FetchedAt: entry.FetchedAt,
	}
	if entry.ImplementationAddress != "" {
		res.Proxy = &entity.ProxyRecord{
			ProxyAddress:          entry.Address,
			ImplementationAddress: entry.ImplementationAddress,
			DetectionMethod:       entry.DetectionMethod,
		}
	}
	return res
}

func failureLabel(err error) string {
	switch {
	case errors.Is(err, entity.ErrNetwork):
		return "network_error"
	case errors.Is(err, entity.ErrNotVerified):
		return "not_verified"
	case errors.Is(err, entity.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
