package events

import (
	"testing"

	"abi_resolver/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishIsSynchronous(t *testing.T) {
	bus := NewBus()

	var got []entity.RegistryChange
	require.NoError(t, bus.SubscribeRegistryChanges(func(c entity.RegistryChange) {
		got = append(got, c)
	}))
	require.NoError(t, bus.SubscribeRegistryChanges(func(c entity.RegistryChange) {
		got = append(got, c)
	}))

	bus.PublishRegistryChange(entity.RegistryChange{Kind: entity.RegistryNetworkAdded, ChainID: 7})

	require.Len(t, got, 2)
	assert.Equal(t, uint64(7), got[0].ChainID)
	assert.Equal(t, entity.RegistryNetworkAdded, got[1].Kind)
}
