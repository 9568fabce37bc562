package service

import (
	"context"
	"testing"
	"time"

	"abi_resolver/internal/domain/entity"
	"abi_resolver/internal/infrastructure/network/client"
	"abi_resolver/internal/pkg/events"
	"abi_resolver/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T, s *flakyStore) (*ChainRegistry, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	return NewChainRegistry(context.Background(), testBuiltins, s, pub, logger.NewNop()), pub
}

func ids(defs []entity.NetworkDefinition) []uint64 {
	out := make([]uint64, len(defs))
	for i, d := range defs {
		out[i] = d.ID
	}
	return out
}

func TestChainRegistry_ListOrder(t *testing.T) {
	reg, _ := newRegistry(t, newFlakyStore())
	ctx := context.Background()

	require.NoError(t, reg.AddCustomNetwork(ctx, customNetwork(31337, "Anvil")))
	require.NoError(t, reg.AddCustomNetwork(ctx, customNetwork(1337, "Ganache")))

	assert.Equal(t, []uint64{1, 10, 31337, 1337}, ids(reg.ListNetworks()))
	got, err := reg.GetByID(1337)
	require.NoError(t, err)
	assert.Equal(t, entity.OriginCustom, got.Origin)
}

func TestChainRegistry_AddConflict(t *testing.T) {
	reg, pub := newRegistry(t, newFlakyStore())
	ctx := context.Background()
	require.NoError(t, reg.AddCustomNetwork(ctx, customNetwork(31337, "Anvil")))
	before := reg.ListNetworks()

	err := reg.AddCustomNetwork(ctx, customNetwork(1, "Fake mainnet"))
	assert.ErrorIs(t, err, entity.ErrConflict)

	err = reg.AddCustomNetwork(ctx, customNetwork(31337, "Anvil again"))
	assert.ErrorIs(t, err, entity.ErrConflict)

	assert.Equal(t, before, reg.ListNetworks())
	assert.Len(t, pub.all(), 1)
}

func TestChainRegistry_AddRejectsInvalid(t *testing.T) {
	reg, _ := newRegistry(t, newFlakyStore())
	bad := customNetwork(5, "no rpc")
	bad.RPCURLs = nil
	assert.ErrorIs(t, reg.AddCustomNetwork(context.Background(), bad), entity.ErrInvalidNetwork)

	bad = customNetwork(5, "ftp rpc")
	bad.RPCURLs = []string{"ftp://example.com"}
	assert.ErrorIs(t, reg.AddCustomNetwork(context.Background(), bad), entity.ErrInvalidNetwork)
}

func TestChainRegistry_PublishesBeforeReturning(t *testing.T) {
	reg, pub := newRegistry(t, newFlakyStore())
	ctx := context.Background()

	require.NoError(t, reg.AddCustomNetwork(ctx, customNetwork(31337, "Anvil")))
	changes := pub.all()
	require.Len(t, changes, 1)
	assert.Equal(t, entity.RegistryNetworkAdded, changes[0].Kind)
	assert.Equal(t, []uint64{31337}, ids(changes[0].Customs))
	assert.Equal(t, []uint64{1, 10}, ids(changes[0].Builtins))

	require.NoError(t, reg.RemoveCustomNetwork(ctx, 31337))
	changes = pub.all()
	require.Len(t, changes, 2)
	assert.Equal(t, entity.RegistryNetworkRemoved, changes[1].Kind)
	assert.Empty(t, changes[1].Customs)
}

func TestChainRegistry_Remove(t *testing.T) {
	reg, _ := newRegistry(t, newFlakyStore())
	ctx := context.Background()

	assert.ErrorIs(t, reg.RemoveCustomNetwork(ctx, 1), entity.ErrBuiltinNotRemovable)
	assert.ErrorIs(t, reg.RemoveCustomNetwork(ctx, 424242), entity.ErrUnknownChain)

	require.NoError(t, reg.AddCustomNetwork(ctx, customNetwork(31337, "Anvil")))
	require.NoError(t, reg.RemoveCustomNetwork(ctx, 31337))
	_, err := reg.GetByID(31337)
	assert.ErrorIs(t, err, entity.ErrUnknownChain)
}

func TestChainRegistry_SurvivesRestart(t *testing.T) {
	s := newFlakyStore()
	reg, _ := newRegistry(t, s)
	require.NoError(t, reg.AddCustomNetwork(context.Background(), customNetwork(31337, "Anvil")))

	reloaded, _ := newRegistry(t, s)
	got, err := reloaded.GetByID(31337)
	require.NoError(t, err)
	assert.Equal(t, "Anvil", got.Name)
	assert.Equal(t, entity.OriginCustom, got.Origin)
}

func TestChainRegistry_LoadDropsCollisions(t *testing.T) {
	s := newFlakyStore()
	stored := []entity.NetworkDefinition{
		customNetwork(1, "shadow mainnet"),
		customNetwork(31337, "Anvil"),
		customNetwork(31337, "Anvil duplicate"),
		{ID: 77, Name: "broken"},
	}
	data, err := json.Marshal(stored)
	require.NoError(t, err)
	require.NoError(t, s.Set(context.Background(), CustomNetworksKey, data))

	reg, _ := newRegistry(t, s)
	assert.Equal(t, []uint64{1, 10, 31337}, ids(reg.ListNetworks()))
	mainnet, err := reg.GetByID(1)
	require.NoError(t, err)
	assert.Equal(t, "Ethereum", mainnet.Name)
}

func TestChainRegistry_UnreadableStoreStartsWithBuiltins(t *testing.T) {
	s := newFlakyStore()
	s.failGet.Store(true)
	reg, _ := newRegistry(t, s)
	assert.Equal(t, []uint64{1, 10}, ids(reg.ListNetworks()))

	s2 := newFlakyStore()
	require.NoError(t, s2.Set(context.Background(), CustomNetworksKey, []byte("{not json")))
	reg, _ = newRegistry(t, s2)
	assert.Equal(t, []uint64{1, 10}, ids(reg.ListNetworks()))
}

func TestChainRegistry_PersistFailureLeavesSnapshot(t *testing.T) {
	s := newFlakyStore()
	reg, pub := newRegistry(t, s)
	s.failSet.Store(true)

	err := reg.AddCustomNetwork(context.Background(), customNetwork(31337, "Anvil"))
	assert.ErrorIs(t, err, entity.ErrStoreUnavailable)
	_, err = reg.GetByID(31337)
	assert.ErrorIs(t, err, entity.ErrUnknownChain)
	assert.Empty(t, pub.all())
}

func TestChainRegistry_ReturnsCopies(t *testing.T) {
	reg, _ := newRegistry(t, newFlakyStore())
	def, err := reg.GetByID(1)
	require.NoError(t, err)
	def.RPCURLs[0] = "http://mutated"

	again, err := reg.GetByID(1)
	require.NoError(t, err)
	assert.Equal(t, "https://eth.example", again.RPCURLs[0])
}

// The registry, the RPC pool and the ABI cache wired through the event bus.
func TestRegistryChange_CascadesToPoolAndCache(t *testing.T) {
	ctx := context.Background()
	s := newFlakyStore()
	log := logger.NewNop()
	bus := events.NewBus()

	reg := NewChainRegistry(ctx, testBuiltins, s, bus, log)
	pool := client.NewEVMClientProvider(reg, reg.ListNetworks(), testBuiltins[0], time.Second, log)
	cache := NewAbiCache(s, log)
	require.NoError(t, bus.SubscribeRegistryChanges(pool.OnRegistryChanged))
	require.NoError(t, bus.SubscribeRegistryChanges(cache.OnRegistryChanged))

	opHandle, err := pool.ClientFor(10)
	require.NoError(t, err)
	versionBefore := pool.ConnectorConfig().Version

	require.NoError(t, reg.AddCustomNetwork(ctx, customNetwork(31337, "Anvil")))

	assert.True(t, pool.ConnectorConfig().Has(31337), "connector rebuilt before AddCustomNetwork returned")
	assert.Equal(t, versionBefore+1, pool.ConnectorConfig().Version)
	again, err := pool.ClientFor(10)
	require.NoError(t, err)
	assert.Same(t, opHandle, again)

	abi := entity.Abi{{Type: "function", Name: "ping"}}
	require.NoError(t, cache.Put(ctx, entity.AbiCacheEntry{Address: "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", ChainID: 31337, Abi: abi, Source: entity.SourceUserProvided}))
	require.NoError(t, cache.Put(ctx, entity.AbiCacheEntry{Address: "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", ChainID: 31337, Abi: abi, Source: entity.SourceAbiDirectory}))
	require.NoError(t, cache.Put(ctx, entity.AbiCacheEntry{Address: "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", ChainID: 1, Abi: abi, Source: entity.SourceAbiDirectory}))
	// chain 313370 shares a textual prefix with 31337 but must survive the purge
	require.NoError(t, cache.Put(ctx, entity.AbiCacheEntry{Address: "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", ChainID: 313370, Abi: abi, Source: entity.SourceAbiDirectory}))

	require.NoError(t, reg.RemoveCustomNetwork(ctx, 31337))

	_, ok := cache.Get(ctx, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", 31337)
	assert.False(t, ok)
	_, ok = cache.Get(ctx, "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", 31337)
	assert.False(t, ok)
	_, ok = cache.Get(ctx, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", 1)
	assert.True(t, ok)
	_, ok = cache.Get(ctx, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", 313370)
	assert.True(t, ok)
	assert.False(t, pool.ConnectorConfig().Has(31337))
}
