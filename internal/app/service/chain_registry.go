package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"abi_resolver/internal/app/port"
	"abi_resolver/internal/domain/entity"
	"abi_resolver/internal/pkg/metrics"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// CustomNetworksKey is the store key holding the list of user-added networks.
const CustomNetworksKey = "networks:custom"

type registrySnapshot struct {
	builtins []entity.NetworkDefinition
	customs  []entity.NetworkDefinition
	byID     map[uint64]entity.NetworkDefinition
}

func newSnapshot(builtins, customs []entity.NetworkDefinition) *registrySnapshot {
	s := &registrySnapshot{
		builtins: builtins,
		customs:  customs,
		byID:     make(map[uint64]entity.NetworkDefinition, len(builtins)+len(customs)),
	}
	for _, d := range builtins {
		s.byID[d.ID] = d
	}
	for _, d := range customs {
		s.byID[d.ID] = d
	}
	return s
}

var _ port.ChainRegistry = (*ChainRegistry)(nil)

// ChainRegistry is the merged set of builtin and user-added networks.
// It implements port.ChainRegistry.
//
// Reads dereference an immutable snapshot and never block. Mutations are
// serialised, persisted, swapped in atomically and then published to
// subscribers before the mutating call returns.
type ChainRegistry struct {
	store     port.PersistentStore
	publisher port.RegistryChangePublisher
	logger    port.Logger

	mu   sync.Mutex
	snap atomic.Pointer[registrySnapshot]
}

// NewChainRegistry merges builtins with the custom networks found in store.
// Unreadable or colliding custom entries are dropped with a warning.
func NewChainRegistry(ctx context.Context, builtins []entity.NetworkDefinition, store port.PersistentStore, publisher port.RegistryChangePublisher, logger port.Logger) *ChainRegistry {
	r := &ChainRegistry{store: store, publisher: publisher, logger: logger}

	seen := make(map[uint64]struct{}, len(builtins))
	for _, d := range builtins {
		seen[d.ID] = struct{}{}
	}

	var customs []entity.NetworkDefinition
	for _, d := range r.loadCustoms(ctx) {
		if _, dup := seen[d.ID]; dup {
			r.logger.Warn("Dropping stored custom network: chain id already registered", "chainID", d.ID, "name", d.Name)
			continue
		}
		if err := d.Validate(); err != nil {
			r.logger.Warn("Dropping stored custom network: invalid definition", "chainID", d.ID, "error", err)
			continue
		}
		d.Origin = entity.OriginCustom
		seen[d.ID] = struct{}{}
		customs = append(customs, d)
	}

	r.snap.Store(newSnapshot(builtins, customs))
	r.updateGauges()
	r.logger.Info("Chain registry initialized", "builtin", len(builtins), "custom", len(customs))
	return r
}

func (r *ChainRegistry) loadCustoms(ctx context.Context) []entity.NetworkDefinition {
	raw, ok, err := r.store.Get(ctx, CustomNetworksKey)
	if err != nil {
		r.logger.Warn("Failed to read custom networks, starting with builtins only", "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	var defs []entity.NetworkDefinition
	if err := json.Unmarshal(raw, &defs); err != nil {
		r.logger.Warn("Stored custom networks are unreadable, ignoring them", "error", err)
		return nil
	}
	return defs
}

// ListNetworks returns builtins first, then customs, each in insertion order.
func (r *ChainRegistry) ListNetworks() []entity.NetworkDefinition {
	s := r.snap.Load()
	out := make([]entity.NetworkDefinition, 0, len(s.builtins)+len(s.customs))
	for _, d := range s.builtins {
		out = append(out, d.Clone())
	}
	for _, d := range s.customs {
		out = append(out, d.Clone())
	}
	return out
}

func (r *ChainRegistry) Builtins() []entity.NetworkDefinition {
	return cloneAll(r.snap.Load().builtins)
}

func (r *ChainRegistry) Customs() []entity.NetworkDefinition {
	return cloneAll(r.snap.Load().customs)
}

func (r *ChainRegistry) GetByID(id uint64) (entity.NetworkDefinition, error) {
	d, ok := r.snap.Load().byID[id]
	if !ok {
		return entity.NetworkDefinition{}, fmt.Errorf("%w: %d", entity.ErrUnknownChain, id)
	}
	return d.Clone(), nil
}

// AddCustomNetwork registers def. An id already present in either group yields entity.ErrConflict
// and leaves the registry untouched.
func (r *ChainRegistry) AddCustomNetwork(ctx context.Context, def entity.NetworkDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	def = def.Clone()
	def.Origin = entity.OriginCustom

	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.snap.Load()
	if existing, ok := cur.byID[def.ID]; ok {
		return fmt.Errorf("%w: %d is %s network %q", entity.ErrConflict, def.ID, existing.Origin, existing.Name)
	}

	customs := append(cloneAll(cur.customs), def)
	if err := r.persist(ctx, customs); err != nil {
		return err
	}
	next := newSnapshot(cur.builtins, customs)
	r.snap.Store(next)
	r.updateGauges()
	r.logger.Info("Custom network added", "chainID", def.ID, "name", def.Name)

	r.publisher.PublishRegistryChange(entity.RegistryChange{
		Kind:     entity.RegistryNetworkAdded,
		ChainID:  def.ID,
		Builtins: cloneAll(next.builtins),
		Customs:  cloneAll(next.customs),
	})
	return nil
}

// RemoveCustomNetwork deletes a user-added network. Builtins cannot be removed.
func (r *ChainRegistry) RemoveCustomNetwork(ctx context.Context, id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.snap.Load()
	existing, ok := cur.byID[id]
	if !ok {
		return fmt.Errorf("%w: %d", entity.ErrUnknownChain, id)
	}
	if existing.Origin != entity.OriginCustom {
		return fmt.Errorf("%w: %d (%s)", entity.ErrBuiltinNotRemovable, id, existing.Name)
	}

	customs := make([]entity.NetworkDefinition, 0, len(cur.customs))
	for _, d := range cur.customs {
		if d.ID != id {
			customs = append(customs, d.Clone())
		}
	}
	if err := r.persist(ctx, customs); err != nil {
		return err
	}
	next := newSnapshot(cur.builtins, customs)
	r.snap.Store(next)
	r.updateGauges()
	r.logger.Info("Custom network removed", "chainID", id, "name", existing.Name)

	r.publisher.PublishRegistryChange(entity.RegistryChange{
		Kind:     entity.RegistryNetworkRemoved,
		ChainID:  id,
		Builtins: cloneAll(next.builtins),
		Customs:  cloneAll(next.customs),
	})
	return nil
}

func (r *ChainRegistry) persist(ctx context.Context, customs []entity.NetworkDefinition) error {
	data, err := json.Marshal(customs)
	if err != nil {
		return fmt.Errorf("failed to encode custom networks: %w", err)
	}
	if err := r.store.Set(ctx, CustomNetworksKey, data); err != nil {
		r.logger.Error("Failed to persist custom networks", "error", err)
		return fmt.Errorf("%w: %v", entity.ErrStoreUnavailable, err)
	}
	return nil
}

func (r *ChainRegistry) updateGauges() {
	s := r.snap.Load()
	metrics.RegistryNetworks.WithLabelValues(string(entity.OriginBuiltin)).Set(float64(len(s.builtins)))
	metrics.RegistryNetworks.WithLabelValues(string(entity.OriginCustom)).Set(float64(len(s.customs)))
}

func cloneAll(defs []entity.NetworkDefinition) []entity.NetworkDefinition {
	out := make([]entity.NetworkDefinition, len(defs))
	for i, d := range defs {
		out[i] = d.Clone()
	}
	return out
}
