package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"abi_resolver/internal/app/port"
	"abi_resolver/internal/domain/entity"
)

const (
	abiKeyPrefix = "abi:"
	// AbiIndexKey lists every cached entry key so entries can be purged by chain.
	AbiIndexKey = "abi:index"
)

// CacheKey is the identity of a cache entry: lower-cased address, underscore, chain id.
func CacheKey(address string, chainID uint64) string {
	return strings.ToLower(address) + "_" + strconv.FormatUint(chainID, 10)
}

// AbiCache stores resolved ABIs in the persistent store.
// Read failures are logged and reported as misses.
//
// Every purge of a chain bumps that chain's generation. Fetches capture the
// generation before they start and their writes are dropped once it moved on,
// so a fetch that outlives a chain removal cannot repopulate the chain.
type AbiCache struct {
	store  port.PersistentStore
	logger port.Logger

	mu   sync.Mutex
	gens map[uint64]uint64
}

func NewAbiCache(store port.PersistentStore, logger port.Logger) *AbiCache {
	return &AbiCache{store: store, logger: logger, gens: make(map[uint64]uint64)}
}

// Generation returns the purge generation of chainID.
func (c *AbiCache) Generation(chainID uint64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[chainID]
}

// Get returns the entry for (address, chainID), if any.
func (c *AbiCache) Get(ctx context.Context, address string, chainID uint64) (*entity.AbiCacheEntry, bool) {
	key := CacheKey(address, chainID)
	raw, ok, err := c.store.Get(ctx, abiKeyPrefix+key)
	if err != nil {
		c.logger.Warn("ABI cache read failed, treating as miss", "key", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var entry entity.AbiCacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.logger.Warn("ABI cache entry unreadable, treating as miss", "key", key, "error", err)
		return nil, false
	}
	return &entry, true
}

// Put stores entry, replacing whatever was cached under its key.
func (c *AbiCache) Put(ctx context.Context, entry entity.AbiCacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.putLocked(ctx, entry)
}

// PutIfCurrent stores entry unless the chain was purged after generation gen.
// It reports whether the entry was written.
func (c *AbiCache) PutIfCurrent(ctx context.Context, entry entity.AbiCacheEntry, gen uint64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stale(entry, gen) {
		return false, nil
	}
	return true, c.putLocked(ctx, entry)
}

// PutUnlessOverridden stores an automatically fetched entry unless a user-provided
// entry already occupies the key or the chain was purged after generation gen.
// It returns the entry that ends up cached, or entry itself when nothing was written.
func (c *AbiCache) PutUnlessOverridden(ctx context.Context, entry entity.AbiCacheEntry, gen uint64) (entity.AbiCacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stale(entry, gen) {
		return entry, nil
	}
	if existing, ok := c.Get(ctx, entry.Address, entry.ChainID); ok && existing.Source == entity.SourceUserProvided {
		c.logger.Debug("Keeping user-provided ABI over fetched one", "address", entry.Address, "chainID", entry.ChainID, "fetchedFrom", entry.Source)
		return *existing, nil
	}
	return entry, c.putLocked(ctx, entry)
}

func (c *AbiCache) stale(entry entity.AbiCacheEntry, gen uint64) bool {
	if c.gens[entry.ChainID] == gen {
		return false
	}
	c.logger.Debug("Dropping ABI fetched before its chain was purged", "address", entry.Address, "chainID", entry.ChainID, "source", entry.Source)
	return true
}

func (c *AbiCache) putLocked(ctx context.Context, entry entity.AbiCacheEntry) error {
	entry.Address = strings.ToLower(entry.Address)
	key := CacheKey(entry.Address, entry.ChainID)
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry %s: %w", key, err)
	}
	if err := c.store.Set(ctx, abiKeyPrefix+key, data); err != nil {
		return fmt.Errorf("%w: %v", entity.ErrStoreUnavailable, err)
	}

	index := c.loadIndex(ctx)
	for _, k := range index {
		if k == key {
			return nil
		}
	}
	return c.saveIndex(ctx, append(index, key))
}

// Delete removes the entry for (address, chainID).
func (c *AbiCache) Delete(ctx context.Context, address string, chainID uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := CacheKey(address, chainID)
	if err := c.store.Delete(ctx, abiKeyPrefix+key); err != nil {
		return fmt.Errorf("%w: %v", entity.ErrStoreUnavailable, err)
	}
	index := c.loadIndex(ctx)
	kept := index[:0]
	for _, k := range index {
		if k != key {
			kept = append(kept, k)
		}
	}
	return c.saveIndex(ctx, kept)
}

// PurgeChain removes every entry cached for chainID and returns how many were removed.
func (c *AbiCache) PurgeChain(ctx context.Context, chainID uint64) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gens[chainID]++
	suffix := "_" + strconv.FormatUint(chainID, 10)
	index := c.loadIndex(ctx)
	kept := make([]string, 0, len(index))
	removed := 0
	var firstErr error
	for _, k := range index {
		if !strings.HasSuffix(k, suffix) {
			kept = append(kept, k)
			continue
		}
		if err := c.store.Delete(ctx, abiKeyPrefix+k); err != nil {
			c.logger.Warn("Failed to purge ABI cache entry", "key", k, "error", err)
			kept = append(kept, k)
			if firstErr == nil {
				firstErr = fmt.Errorf("%w: %v", entity.ErrStoreUnavailable, err)
			}
			continue
		}
		removed++
	}
	if err := c.saveIndex(ctx, kept); err != nil && firstErr == nil {
		firstErr = err
	}
	return removed, firstErr
}

// OnRegistryChanged purges the cache of a removed chain.
func (c *AbiCache) OnRegistryChanged(change entity.RegistryChange) {
	if change.Kind != entity.RegistryNetworkRemoved {
		return
	}
	removed, err := c.PurgeChain(context.Background(), change.ChainID)
	if err != nil {
		c.logger.Warn("ABI cache purge incomplete", "chainID", change.ChainID, "removed", removed, "error", err)
		return
	}
	c.logger.Info("ABI cache purged for removed chain", "chainID", change.ChainID, "removed", removed)
}

func (c *AbiCache) loadIndex(ctx context.Context) []string {
	raw, ok, err := c.store.Get(ctx, AbiIndexKey)
	if err != nil {
		c.logger.Warn("ABI cache index read failed", "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	var keys []string
	if err := json.Unmarshal(raw, &keys); err != nil {
		c.logger.Warn("ABI cache index unreadable, rebuilding", "error", err)
		return nil
	}
	return keys
}

func (c *AbiCache) saveIndex(ctx context.Context, keys []string) error {
	data, err := json.Marshal(keys)
	if err != nil {
		return fmt.Errorf("failed to encode cache index: %w", err)
	}
	if err := c.store.Set(ctx, AbiIndexKey, data); err != nil {
		return fmt.Errorf("%w: %v", entity.ErrStoreUnavailable, err)
	}
	return nil
}
