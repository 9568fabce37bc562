package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	StorageBadger = "badger"
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

// Config holds the overall configuration for the application.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Storage    StorageConfig    `yaml:"storage"`
	Networks   NetworksConfig   `yaml:"networks"`
	RpcClient  RpcClientConfig  `yaml:"rpcClient"`
	AbiSources AbiSourcesConfig `yaml:"abiSources"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ServerConfig holds the server-specific configuration.
type ServerConfig struct {
	Port         string `yaml:"port"`
	ReadTimeout  int    `yaml:"readTimeout"`
	WriteTimeout int    `yaml:"writeTimeout"`
	IdleTimeout  int    `yaml:"idleTimeout"`
	EnablePprof  bool   `yaml:"enablePprof"`
}

// LoggingConfig holds the configuration for logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // e.g., "debug", "info", "warn", "error"
	File  string `yaml:"file"`
}

// StorageConfig selects where custom networks and cached ABIs are kept.
type StorageConfig struct {
	Backend    string      `yaml:"backend"` // badger, redis or memory
	BadgerPath string      `yaml:"badgerPath"`
	Redis      RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"keyPrefix"`
}

// NetworksConfig points at custom network definitions to register on startup.
type NetworksConfig struct {
	SeedDir string `yaml:"seedDir"`
}

// RpcClientConfig holds configuration for RPC clients.
type RpcClientConfig struct {
	CallTimeoutMs int64 `yaml:"callTimeoutMs"`
}

// CallTimeout returns the per-call RPC timeout.
func (c RpcClientConfig) CallTimeout() time.Duration {
	return time.Duration(c.CallTimeoutMs) * time.Millisecond
}

// AbiSourcesConfig configures the HTTP clients of every ABI source.
type AbiSourcesConfig struct {
	AbiDirectory  SourceConfig        `yaml:"abiDirectory"`
	BlockExplorer BlockExplorerConfig `yaml:"blockExplorer"`
	Decompiler    SourceConfig        `yaml:"decompiler"`
}

// SourceConfig holds the HTTP settings of one ABI source.
type SourceConfig struct {
	BaseURL              string  `yaml:"baseURL"`
	RequestTimeoutMillis int64   `yaml:"requestTimeoutMillis"`
	RateLimitPerSecond   float64 `yaml:"rateLimitPerSecond"`
	Burst                int     `yaml:"burst"`
}

// RequestTimeout returns the per-request timeout.
func (c SourceConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMillis) * time.Millisecond
}

type BlockExplorerConfig struct {
	SourceConfig `yaml:",inline"`
	ApiKey       string `yaml:"apiKey"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{Metrics: MetricsConfig{Enabled: true}}
	applyDefaults(cfg, false)
	return cfg
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	logrus.Infof("Loading configuration from path: %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		logrus.Errorf("Failed to read config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		logrus.Errorf("Failed to unmarshal config data from %s: %v", path, err)
		return nil, fmt.Errorf("failed to unmarshal config data from %s: %w", path, err)
	}

	applyDefaults(&cfg, true)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logrus.Info("Configuration loaded successfully.")
	return &cfg, nil
}

// LoadOrDefault loads path, falling back to Default when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if errors.Is(err, fs.ErrNotExist) {
		logrus.Warnf("Config file %s not found, using defaults", path)
		return Default(), nil
	}
	return cfg, err
}

// Validate rejects settings no component can work with.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case StorageBadger, StorageRedis, StorageMemory:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Storage.Backend == StorageRedis && c.Storage.Redis.Addr == "" {
		return errors.New("storage.redis.addr is required for the redis backend")
	}
	return nil
}

func applyDefaults(cfg *Config, notify bool) {
	note := func(format string, args ...any) {
		if notify {
			logrus.Infof(format, args...)
		}
	}

	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
		note("Server.Port not set, defaulting to %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15
	}
	if cfg.Server.WriteTimeout == 0 {
		// decompilation can take a while
		cfg.Server.WriteTimeout = 60
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 60
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = StorageBadger
		note("Storage.Backend not set, defaulting to %s", cfg.Storage.Backend)
	}
	if cfg.Storage.Backend == StorageBadger && cfg.Storage.BadgerPath == "" {
		cfg.Storage.BadgerPath = "data/badger"
		note("Storage.BadgerPath not set, defaulting to %s", cfg.Storage.BadgerPath)
	}
	if cfg.Storage.Redis.KeyPrefix == "" {
		cfg.Storage.Redis.KeyPrefix = "abi_resolver:"
	}

	if cfg.Networks.SeedDir == "" {
		cfg.Networks.SeedDir = "config/networks"
	}

	if cfg.RpcClient.CallTimeoutMs == 0 {
		cfg.RpcClient.CallTimeoutMs = 10000
		note("RpcClient.CallTimeoutMs not set, defaulting to %d ms", cfg.RpcClient.CallTimeoutMs)
	}

	src := &cfg.AbiSources
	if src.AbiDirectory.BaseURL == "" {
		src.AbiDirectory.BaseURL = "https://anyabi.xyz"
		note("AbiSources.AbiDirectory.BaseURL not set, defaulting to %s", src.AbiDirectory.BaseURL)
	}
	if src.AbiDirectory.RequestTimeoutMillis == 0 {
		src.AbiDirectory.RequestTimeoutMillis = 10000
	}
	if src.BlockExplorer.BaseURL == "" {
		src.BlockExplorer.BaseURL = "https://api.etherscan.io"
		note("AbiSources.BlockExplorer.BaseURL not set, defaulting to %s", src.BlockExplorer.BaseURL)
	}
	if src.BlockExplorer.RequestTimeoutMillis == 0 {
		src.BlockExplorer.RequestTimeoutMillis = 10000
	}
	if src.BlockExplorer.RateLimitPerSecond == 0 {
		// free tier allowance
		src.BlockExplorer.RateLimitPerSecond = 5
		src.BlockExplorer.Burst = 1
	}
	if key := os.Getenv("ETHERSCAN_API_KEY"); key != "" {
		src.BlockExplorer.ApiKey = key
		note("AbiSources.BlockExplorer.ApiKey taken from ETHERSCAN_API_KEY")
	}
	if src.Decompiler.BaseURL == "" {
		src.Decompiler.BaseURL = "https://heimdall-api.fly.dev"
		note("AbiSources.Decompiler.BaseURL not set, defaulting to %s", src.Decompiler.BaseURL)
	}
	if src.Decompiler.RequestTimeoutMillis == 0 {
		src.Decompiler.RequestTimeoutMillis = 60000
	}
}
