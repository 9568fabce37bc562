package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"abi_resolver/internal/config"
	"abi_resolver/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChainID(t *testing.T) {
	id, err := parseChainID("137")
	require.NoError(t, err)
	assert.Equal(t, uint64(137), id)

	for _, bad := range []string{"0", "-1", "abc", ""} {
		_, err := parseChainID(bad)
		assert.Error(t, err, bad)
	}
}

func TestSourceOptions(t *testing.T) {
	opts := sourceOptions(config.SourceConfig{BaseURL: "http://x", RequestTimeoutMillis: 1500, RateLimitPerSecond: 2, Burst: 4})
	assert.Equal(t, "http://x", opts.BaseURL)
	assert.Equal(t, 1500*time.Millisecond, opts.Timeout)
	assert.Equal(t, 2.0, opts.RatePerSecond)
	assert.Equal(t, 4, opts.Burst)
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	log := logger.NewNop()

	mem, err := openStore(ctx, config.StorageConfig{Backend: config.StorageMemory}, log)
	require.NoError(t, err)
	require.NoError(t, mem.Set(ctx, "k", []byte("v")))
	require.NoError(t, mem.Close())

	dir := filepath.Join(t.TempDir(), "badger")
	bdg, err := openStore(ctx, config.StorageConfig{Backend: config.StorageBadger, BadgerPath: dir}, log)
	require.NoError(t, err)
	require.NoError(t, bdg.Set(ctx, "k", []byte("v")))
	got, ok, err := bdg.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), got)
	require.NoError(t, bdg.Close())

	_, err = openStore(ctx, config.StorageConfig{Backend: "sqlite"}, log)
	assert.Error(t, err)
}
