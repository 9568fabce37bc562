package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"abi_resolver/internal/app/port"
	"abi_resolver/internal/domain/entity"
	"abi_resolver/internal/infrastructure/store"
	"abi_resolver/internal/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
)

type recordingPublisher struct {
	mu      sync.Mutex
	changes []entity.RegistryChange
}

func (p *recordingPublisher) PublishRegistryChange(c entity.RegistryChange) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, c)
}

func (p *recordingPublisher) all() []entity.RegistryChange {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]entity.RegistryChange(nil), p.changes...)
}

// flakyStore wraps a MemoryStore and fails on demand.
type flakyStore struct {
	*store.MemoryStore
	failGet atomic.Bool
	failSet atomic.Bool
}

var errStoreDown = errors.New("store down")

func newFlakyStore() *flakyStore {
	return &flakyStore{MemoryStore: store.NewMemoryStore()}
}

func (s *flakyStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s.failGet.Load() {
		return nil, false, errStoreDown
	}
	return s.MemoryStore.Get(ctx, key)
}

func (s *flakyStore) Set(ctx context.Context, key string, value []byte) error {
	if s.failSet.Load() {
		return errStoreDown
	}
	return s.MemoryStore.Set(ctx, key, value)
}

type fakeSource struct {
	kind  entity.AbiSourceKind
	abi   entity.Abi
	err   error
	calls atomic.Int32

	mu        sync.Mutex
	addresses []string

	blockOn string
	gate    chan struct{}
	started chan struct{}
	once    sync.Once
}

func (s *fakeSource) Kind() entity.AbiSourceKind { return s.kind }

func (s *fakeSource) FetchAbi(ctx context.Context, address string, chainID uint64) (entity.Abi, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.addresses = append(s.addresses, address)
	s.mu.Unlock()
	if s.gate != nil && (s.blockOn == "" || s.blockOn == address) {
		s.once.Do(func() { close(s.started) })
		<-s.gate
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.abi, nil
}

func (s *fakeSource) seen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.addresses...)
}

func (s *fakeSource) blocking(onAddress string) *fakeSource {
	s.blockOn = onAddress
	s.gate = make(chan struct{})
	s.started = make(chan struct{})
	return s
}

type fakeChainClient struct {
	chainID uint64
	code    []byte
	codeErr error
}

func (c *fakeChainClient) StorageAt(context.Context, common.Address, common.Hash) ([]byte, error) {
	return make([]byte, 32), nil
}

func (c *fakeChainClient) CodeAt(context.Context, common.Address) ([]byte, error) {
	return c.code, c.codeErr
}

func (c *fakeChainClient) ChainID() uint64 { return c.chainID }
func (c *fakeChainClient) Endpoints() []string { return []string{"http://fake"} }

type fakeClientProvider struct {
	registry port.NetworkDefinitionProvider
	client   *fakeChainClient
	calls    atomic.Int32
}

func (p *fakeClientProvider) ClientFor(chainID uint64) (port.BlockchainClient, error) {
	p.calls.Add(1)
	if _, err := p.registry.GetByID(chainID); err != nil {
		return nil, err
	}
	return p.client, nil
}

func (p *fakeClientProvider) ConnectorConfig() *entity.ConnectorConfig { return &entity.ConnectorConfig{} }

type fakeDetector struct {
	impls map[string]entity.ProxyRecord
	calls atomic.Int32
}

func (d *fakeDetector) Detect(_ context.Context, address common.Address, _ port.ChainReader) entity.ProxyRecord {
	d.calls.Add(1)
	addr := strings.ToLower(address.Hex())
	if rec, ok := d.impls[addr]; ok {
		return rec
	}
	return entity.ProxyRecord{ProxyAddress: addr, DetectionMethod: entity.DetectionNone}
}

var testBuiltins = []entity.NetworkDefinition{
	{ID: 1, Name: "Ethereum", NativeCurrency: entity.NativeCurrency{Name: "Ether", Symbol: "ETH", Decimals: 18}, RPCURLs: []string{"https://eth.example"}, Origin: entity.OriginBuiltin},
	{ID: 10, Name: "OP Mainnet", NativeCurrency: entity.NativeCurrency{Name: "Ether", Symbol: "ETH", Decimals: 18}, RPCURLs: []string{"https://op.example"}, Origin: entity.OriginBuiltin},
}

func customNetwork(id uint64, name string) entity.NetworkDefinition {
	return entity.NetworkDefinition{
		ID:             id,
		Name:           name,
		NativeCurrency: entity.NativeCurrency{Name: "Ether", Symbol: "ETH", Decimals: 18},
		RPCURLs:        []string{"http://127.0.0.1:8545"},
	}
}

// resolverFixture wires an AbiResolver to in-memory fakes.
type resolverFixture struct {
	store      *flakyStore
	registry   *ChainRegistry
	clients    *fakeClientProvider
	detector   *fakeDetector
	cache      *AbiCache
	directory  *fakeSource
	explorer   *fakeSource
	decompiler *fakeSource
	resolver   *AbiResolver
}

func newResolverFixture() *resolverFixture {
	f := &resolverFixture{
		store:      newFlakyStore(),
		detector:   &fakeDetector{impls: map[string]entity.ProxyRecord{}},
		directory:  &fakeSource{kind: entity.SourceAbiDirectory},
		explorer:   &fakeSource{kind: entity.SourceBlockExplorer},
		decompiler: &fakeSource{kind: entity.SourceDecompiler},
	}
	log := logger.NewNop()
	f.registry = NewChainRegistry(context.Background(), testBuiltins, f.store, &recordingPublisher{}, log)
	f.clients = &fakeClientProvider{registry: f.registry, client: &fakeChainClient{chainID: 1, code: []byte{0x60, 0x80}}}
	f.cache = NewAbiCache(f.store, log)
	f.resolver = NewAbiResolver(
		f.registry,
		f.clients,
		f.detector,
		f.cache,
		[]port.AbiSource{f.directory, f.explorer},
		f.decompiler,
		NewRequestTracker(time.Minute),
		log,
	)
	return f
}
