package events

import (
	"fmt"

	"abi_resolver/internal/domain/entity"

	evbus "github.com/asaskevich/EventBus"
)

// TopicRegistryChanged carries entity.RegistryChange payloads.
const TopicRegistryChanged = "registry:changed"

// Bus is a synchronous in-process event bus.
type Bus struct {
	bus evbus.Bus
}

func NewBus() *Bus {
	return &Bus{bus: evbus.New()}
}

// PublishRegistryChange runs every registry subscriber before returning.
func (b *Bus) PublishRegistryChange(change entity.RegistryChange) {
	b.bus.Publish(TopicRegistryChanged, change)
}

// SubscribeRegistryChanges registers fn for every future registry change.
func (b *Bus) SubscribeRegistryChanges(fn func(entity.RegistryChange)) error {
	if err := b.bus.Subscribe(TopicRegistryChanged, fn); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", TopicRegistryChanged, err)
	}
	return nil
}
