package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"abi_resolver/internal/app/port"
	"abi_resolver/internal/app/service"
	"abi_resolver/internal/config"
	"abi_resolver/internal/infrastructure/abisource"
	"abi_resolver/internal/infrastructure/network/client"
	networkdefinition "abi_resolver/internal/infrastructure/network/definition"
	"abi_resolver/internal/infrastructure/networkloader"
	"abi_resolver/internal/infrastructure/proxydetect"
	"abi_resolver/internal/infrastructure/store"
	"abi_resolver/internal/pkg/events"
	"abi_resolver/internal/pkg/logger"
	"abi_resolver/internal/pkg/metrics"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// requestScopeTTL is how long an idle session scope is remembered.
const requestScopeTTL = 30 * time.Minute

// app holds every long-lived component of the process.
type app struct {
	cfg      *config.Config
	zap      *zap.Logger
	log      port.Logger
	store    port.PersistentStore
	bus      *events.Bus
	registry *service.ChainRegistry
	clients  *client.EVMClientProvider
	cache    *service.AbiCache
	resolver *service.AbiResolver
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, err
	}

	zapLogger, err := logger.New(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		return nil, err
	}
	logger.SetSlogDefault(zapLogger)
	log := logger.NewZapAdapter(zapLogger)

	metrics.MustRegisterMetrics()

	st, err := openStore(ctx, cfg.Storage, log)
	if err != nil {
		_ = zapLogger.Sync()
		return nil, err
	}

	bus := events.NewBus()
	builtins := networkdefinition.NewBuiltinProvider(log).Definitions()
	registry := service.NewChainRegistry(ctx, builtins, st, bus, log)
	clients := client.NewEVMClientProvider(registry, registry.ListNetworks(), networkdefinition.MainnetDefinition(), cfg.RpcClient.CallTimeout(), log)
	cache := service.NewAbiCache(st, log)

	// the pool rebuilds its connector snapshot before the cache purges
	if err := bus.SubscribeRegistryChanges(clients.OnRegistryChanged); err != nil {
		return nil, err
	}
	if err := bus.SubscribeRegistryChanges(cache.OnRegistryChanged); err != nil {
		return nil, err
	}

	seeds, err := networkloader.NewDirLoader(cfg.Networks.SeedDir, log).Load()
	if err != nil {
		log.Warn("Skipping network seeding", "error", err)
	} else if added, err := networkloader.Seed(ctx, registry, st, seeds, log); err != nil {
		log.Warn("Network seeding incomplete", "added", added, "error", err)
	}

	src := cfg.AbiSources
	sources := []port.AbiSource{
		abisource.NewAnyAbiClient(sourceOptions(src.AbiDirectory), zapLogger),
	}
	if src.BlockExplorer.ApiKey == "" {
		zapLogger.Warn("No block explorer API key configured; explorer lookups may be throttled or rejected")
	}
	sources = append(sources, abisource.NewEtherscanClient(sourceOptions(src.BlockExplorer.SourceConfig), src.BlockExplorer.ApiKey, zapLogger))
	decompiler := abisource.NewHeimdallClient(sourceOptions(src.Decompiler), zapLogger)

	resolver := service.NewAbiResolver(
		registry,
		clients,
		proxydetect.NewDetector(log),
		cache,
		sources,
		decompiler,
		service.NewRequestTracker(requestScopeTTL),
		log,
	)

	zapLogger.Info("Application initialised",
		zap.String("config", configPath),
		zap.String("storage", cfg.Storage.Backend),
		zap.Int("networks", len(registry.ListNetworks())),
	)
	return &app{
		cfg:      cfg,
		zap:      zapLogger,
		log:      log,
		store:    st,
		bus:      bus,
		registry: registry,
		clients:  clients,
		cache:    cache,
		resolver: resolver,
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.zap.Error("Failed to close store", zap.Error(err))
	}
	_ = a.zap.Sync()
}

func openStore(ctx context.Context, cfg config.StorageConfig, log port.Logger) (port.PersistentStore, error) {
	switch cfg.Backend {
	case config.StorageMemory:
		log.Warn("Using in-memory storage; custom networks and cached ABIs are lost on exit")
		return store.NewMemoryStore(), nil
	case config.StorageRedis:
		return store.NewRedisStore(ctx, store.RedisConfig{
			Addr:      cfg.Redis.Addr,
			Username:  cfg.Redis.Username,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		}, log)
	case config.StorageBadger:
		if err := os.MkdirAll(cfg.BadgerPath, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create badger directory %s: %w", cfg.BadgerPath, err)
		}
		return store.NewBadgerStore(cfg.BadgerPath, log)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func sourceOptions(c config.SourceConfig) abisource.Options {
	return abisource.Options{
		BaseURL:       c.BaseURL,
		Timeout:       c.RequestTimeout(),
		RatePerSecond: c.RateLimitPerSecond,
		Burst:         c.Burst,
	}
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
