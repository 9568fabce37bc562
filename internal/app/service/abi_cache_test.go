package service

import (
	"context"
	"testing"
	"time"

	"abi_resolver/internal/domain/entity"
	"abi_resolver/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pingAbi = entity.Abi{{Type: "function", Name: "ping"}}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "0xdeadbeef_1", CacheKey("0xDEADbeef", 1))
	assert.Equal(t, CacheKey("0xABC", 10), CacheKey("0xabc", 10))
}

func TestAbiCache_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	s := newFlakyStore()
	c := NewAbiCache(s, logger.NewNop())

	_, ok := c.Get(ctx, "0xabc", 1)
	assert.False(t, ok)

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, c.Put(ctx, entity.AbiCacheEntry{Address: "0xABC", ChainID: 1, Abi: pingAbi, Source: entity.SourceBlockExplorer, FetchedAt: now}))

	got, ok := c.Get(ctx, "0xabc", 1)
	require.True(t, ok)
	assert.Equal(t, "0xabc", got.Address)
	assert.Equal(t, entity.SourceBlockExplorer, got.Source)
	assert.True(t, now.Equal(got.FetchedAt))

	raw, ok, err := s.Get(ctx, "abi:0xabc_1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, string(raw), `"ping"`)

	require.NoError(t, c.Delete(ctx, "0xAbc", 1))
	_, ok = c.Get(ctx, "0xabc", 1)
	assert.False(t, ok)

	raw, _, err = s.Get(ctx, AbiIndexKey)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestAbiCache_ReadFailureIsMiss(t *testing.T) {
	ctx := context.Background()
	s := newFlakyStore()
	c := NewAbiCache(s, logger.NewNop())
	require.NoError(t, c.Put(ctx, entity.AbiCacheEntry{Address: "0xabc", ChainID: 1, Abi: pingAbi, Source: entity.SourceAbiDirectory}))

	s.failGet.Store(true)
	_, ok := c.Get(ctx, "0xabc", 1)
	assert.False(t, ok)
}

func TestAbiCache_CorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	s := newFlakyStore()
	require.NoError(t, s.Set(ctx, "abi:0xabc_1", []byte("garbage")))
	_, ok := NewAbiCache(s, logger.NewNop()).Get(ctx, "0xabc", 1)
	assert.False(t, ok)
}

func TestAbiCache_PutUnlessOverridden(t *testing.T) {
	ctx := context.Background()
	c := NewAbiCache(newFlakyStore(), logger.NewNop())
	userAbi := entity.Abi{{Type: "function", Name: "mine"}}

	require.NoError(t, c.Put(ctx, entity.AbiCacheEntry{Address: "0xabc", ChainID: 1, Abi: userAbi, Source: entity.SourceUserProvided}))

	kept, err := c.PutUnlessOverridden(ctx, entity.AbiCacheEntry{Address: "0xabc", ChainID: 1, Abi: pingAbi, Source: entity.SourceAbiDirectory}, c.Generation(1))
	require.NoError(t, err)
	assert.Equal(t, entity.SourceUserProvided, kept.Source)

	got, ok := c.Get(ctx, "0xabc", 1)
	require.True(t, ok)
	assert.Equal(t, "mine", got.Abi[0].Name)

	stored, err := c.PutUnlessOverridden(ctx, entity.AbiCacheEntry{Address: "0xdef", ChainID: 1, Abi: pingAbi, Source: entity.SourceAbiDirectory}, c.Generation(1))
	require.NoError(t, err)
	assert.Equal(t, entity.SourceAbiDirectory, stored.Source)
}

func TestAbiCache_WritesStampedBeforePurgeAreDropped(t *testing.T) {
	ctx := context.Background()
	c := NewAbiCache(newFlakyStore(), logger.NewNop())
	entry := entity.AbiCacheEntry{Address: "0xabc", ChainID: 5, Abi: pingAbi, Source: entity.SourceAbiDirectory}

	before := c.Generation(5)
	otherChain := c.Generation(1)
	_, err := c.PurgeChain(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, before+1, c.Generation(5))
	assert.Equal(t, otherChain, c.Generation(1))

	_, err = c.PutUnlessOverridden(ctx, entry, before)
	require.NoError(t, err)
	written, err := c.PutIfCurrent(ctx, entry, before)
	require.NoError(t, err)
	assert.False(t, written)
	_, ok := c.Get(ctx, "0xabc", 5)
	assert.False(t, ok)

	written, err = c.PutIfCurrent(ctx, entry, c.Generation(5))
	require.NoError(t, err)
	assert.True(t, written)
	_, ok = c.Get(ctx, "0xabc", 5)
	assert.True(t, ok)
}

func TestAbiCache_PurgeChain(t *testing.T) {
	ctx := context.Background()
	c := NewAbiCache(newFlakyStore(), logger.NewNop())
	for _, e := range []struct {
		addr  string
		chain uint64
	}{{"0x01", 5}, {"0x02", 5}, {"0x01", 55}, {"0x01", 1}} {
		require.NoError(t, c.Put(ctx, entity.AbiCacheEntry{Address: e.addr, ChainID: e.chain, Abi: pingAbi, Source: entity.SourceAbiDirectory}))
	}

	removed, err := c.PurgeChain(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, ok := c.Get(ctx, "0x01", 55)
	assert.True(t, ok)
	_, ok = c.Get(ctx, "0x01", 1)
	assert.True(t, ok)
	_, ok = c.Get(ctx, "0x02", 5)
	assert.False(t, ok)

	c.OnRegistryChanged(entity.RegistryChange{Kind: entity.RegistryNetworkAdded, ChainID: 55})
	_, ok = c.Get(ctx, "0x01", 55)
	assert.True(t, ok, "additions never purge")
}

func TestRequestTracker(t *testing.T) {
	tr := NewRequestTracker(time.Minute)

	a := tr.Begin("session-1")
	assert.True(t, tr.IsCurrent("session-1", a))

	b := tr.Begin("session-1")
	assert.Greater(t, b, a)
	assert.False(t, tr.IsCurrent("session-1", a))
	assert.True(t, tr.IsCurrent("session-1", b))

	other := tr.Begin("session-2")
	assert.True(t, tr.IsCurrent("session-1", b), "scopes are independent")
	assert.True(t, tr.IsCurrent("session-2", other))
	assert.False(t, tr.IsCurrent("unknown", 1))
}
