package networkdefinition

import (
	"fmt"

	"abi_resolver/internal/app/port"
	"abi_resolver/internal/domain/entity"
)

// keyedDefinition ties a builtin definition to its stable key, which the deny-list refers to.
type keyedDefinition struct {
	Key string
	Def entity.NetworkDefinition
}

var ether = entity.NativeCurrency{Name: "Ether", Symbol: "ETH", Decimals: 18}

// builtinNetworks is the static network table in presentation order.
// Some chains appear under two keys; excludedKeys removes the aliases.
var builtinNetworks = []keyedDefinition{ //nolint:gochecknoglobals // Global for definitions
	{Key: "mainnet", Def: entity.NetworkDefinition{
		ID: 1, Name: "Ethereum", NativeCurrency: ether,
		RPCURLs:          []string{"https://ethereum-rpc.publicnode.com", "https://rpc.ankr.com/eth"},
		BlockExplorerURL: "https://etherscan.io",
	}},
	{Key: "optimism", Def: entity.NetworkDefinition{
		ID: 10, Name: "OP Mainnet", NativeCurrency: ether,
		RPCURLs:          []string{"https://mainnet.optimism.io", "https://optimism.publicnode.com"},
		BlockExplorerURL: "https://optimistic.etherscan.io",
	}},
	{Key: "bsc", Def: entity.NetworkDefinition{
		ID: 56, Name: "BNB Smart Chain", NativeCurrency: entity.NativeCurrency{Name: "BNB", Symbol: "BNB", Decimals: 18},
		RPCURLs:          []string{"https://1rpc.io/bnb", "https://bsc-dataseed2.binance.org/"},
		BlockExplorerURL: "https://bscscan.com",
	}},
	{Key: "gnosis", Def: entity.NetworkDefinition{
		ID: 100, Name: "Gnosis", NativeCurrency: entity.NativeCurrency{Name: "xDAI", Symbol: "XDAI", Decimals: 18},
		RPCURLs:          []string{"https://rpc.gnosischain.com"},
		BlockExplorerURL: "https://gnosisscan.io",
	}},
	{Key: "polygon", Def: entity.NetworkDefinition{
		ID: 137, Name: "Polygon", NativeCurrency: entity.NativeCurrency{Name: "POL", Symbol: "POL", Decimals: 18},
		RPCURLs:          []string{"https://polygon-rpc.com/", "https://polygon.publicnode.com"},
		BlockExplorerURL: "https://polygonscan.com",
	}},
	{Key: "fantom", Def: entity.NetworkDefinition{
		ID: 250, Name: "Fantom", NativeCurrency: entity.NativeCurrency{Name: "Fantom", Symbol: "FTM", Decimals: 18},
		RPCURLs:          []string{"https://rpc.ankr.com/fantom"},
		BlockExplorerURL: "https://ftmscan.com",
	}},
	{Key: "zkSync", Def: entity.NetworkDefinition{
		ID: 324, Name: "zkSync Era", NativeCurrency: ether,
		RPCURLs:          []string{"https://mainnet.era.zksync.io"},
		BlockExplorerURL: "https://explorer.zksync.io",
	}},
	{Key: "polygonZkEvm", Def: entity.NetworkDefinition{
		ID: 1101, Name: "Polygon zkEVM", NativeCurrency: ether,
		RPCURLs:          []string{"https://zkevm-rpc.com"},
		BlockExplorerURL: "https://zkevm.polygonscan.com",
	}},
	{Key: "mantle", Def: entity.NetworkDefinition{
		ID: 5000, Name: "Mantle", NativeCurrency: entity.NativeCurrency{Name: "MNT", Symbol: "MNT", Decimals: 18},
		RPCURLs:          []string{"https://rpc.mantle.xyz"},
		BlockExplorerURL: "https://mantlescan.xyz",
	}},
	{Key: "base", Def: entity.NetworkDefinition{
		ID: 8453, Name: "Base", NativeCurrency: ether,
		RPCURLs:          []string{"https://mainnet.base.org", "https://base.publicnode.com"},
		BlockExplorerURL: "https://basescan.org",
	}},
	{Key: "arbitrum", Def: entity.NetworkDefinition{
		ID: 42161, Name: "Arbitrum One", NativeCurrency: ether,
		RPCURLs:          []string{"https://arb1.arbitrum.io/rpc", "https://arbitrum.publicnode.com"},
		BlockExplorerURL: "https://arbiscan.io",
	}},
	{Key: "celo", Def: entity.NetworkDefinition{
		ID: 42220, Name: "Celo", NativeCurrency: entity.NativeCurrency{Name: "CELO", Symbol: "CELO", Decimals: 18},
		RPCURLs:          []string{"https://forno.celo.org"},
		BlockExplorerURL: "https://celoscan.io",
	}},
	{Key: "avalanche", Def: entity.NetworkDefinition{
		ID: 43114, Name: "Avalanche", NativeCurrency: entity.NativeCurrency{Name: "Avalanche", Symbol: "AVAX", Decimals: 18},
		RPCURLs:          []string{"https://api.avax.network/ext/bc/C/rpc", "https://rpc.ankr.com/avalanche"},
		BlockExplorerURL: "https://snowtrace.io",
	}},
	{Key: "linea", Def: entity.NetworkDefinition{
		ID: 59144, Name: "Linea Mainnet", NativeCurrency: ether,
		RPCURLs:          []string{"https://rpc.linea.build"},
		BlockExplorerURL: "https://lineascan.build",
	}},
	{Key: "blast", Def: entity.NetworkDefinition{
		ID: 81457, Name: "Blast", NativeCurrency: ether,
		RPCURLs:          []string{"https://rpc.blast.io"},
		BlockExplorerURL: "https://blastscan.io",
	}},
	{Key: "scroll", Def: entity.NetworkDefinition{
		ID: 534352, Name: "Scroll", NativeCurrency: ether,
		RPCURLs:          []string{"https://rpc.scroll.io"},
		BlockExplorerURL: "https://scrollscan.com",
	}},
	{Key: "zora", Def: entity.NetworkDefinition{
		ID: 7777777, Name: "Zora", NativeCurrency: ether,
		RPCURLs:          []string{"https://rpc.zora.energy"},
		BlockExplorerURL: "https://explorer.zora.energy",
	}},
	{Key: "sepolia", Def: entity.NetworkDefinition{
		ID: 11155111, Name: "Sepolia", NativeCurrency: entity.NativeCurrency{Name: "Sepolia Ether", Symbol: "ETH", Decimals: 18},
		RPCURLs:          []string{"https://ethereum-sepolia-rpc.publicnode.com", "https://rpc.sepolia.org"},
		BlockExplorerURL: "https://sepolia.etherscan.io",
		IsTestnet:        true,
	}},
	{Key: "holesky", Def: entity.NetworkDefinition{
		ID: 17000, Name: "Holesky", NativeCurrency: entity.NativeCurrency{Name: "Holesky Ether", Symbol: "ETH", Decimals: 18},
		RPCURLs:          []string{"https://ethereum-holesky-rpc.publicnode.com"},
		BlockExplorerURL: "https://holesky.etherscan.io",
		IsTestnet:        true,
	}},
	{Key: "baseSepolia", Def: entity.NetworkDefinition{
		ID: 84532, Name: "Base Sepolia", NativeCurrency: entity.NativeCurrency{Name: "Sepolia Ether", Symbol: "ETH", Decimals: 18},
		RPCURLs:          []string{"https://sepolia.base.org"},
		BlockExplorerURL: "https://sepolia.basescan.org",
		IsTestnet:        true,
	}},
	{Key: "lineaGoerli", Def: entity.NetworkDefinition{
		ID: 59140, Name: "Linea Goerli Testnet", NativeCurrency: entity.NativeCurrency{Name: "Linea Ether", Symbol: "ETH", Decimals: 18},
		RPCURLs:          []string{"https://rpc.goerli.linea.build"},
		BlockExplorerURL: "https://goerli.lineascan.build",
		IsTestnet:        true,
	}},
	{Key: "lineaTestnet", Def: entity.NetworkDefinition{
		ID: 59140, Name: "Linea Goerli Testnet", NativeCurrency: entity.NativeCurrency{Name: "Linea Ether", Symbol: "ETH", Decimals: 18},
		RPCURLs:   []string{"https://rpc.goerli.linea.build"},
		IsTestnet: true,
	}},
	{Key: "xLayerTestnet", Def: entity.NetworkDefinition{
		ID: 195, Name: "X Layer Testnet", NativeCurrency: entity.NativeCurrency{Name: "OKB", Symbol: "OKB", Decimals: 18},
		RPCURLs:          []string{"https://testrpc.xlayer.tech"},
		BlockExplorerURL: "https://www.oklink.com/x1-test",
		IsTestnet:        true,
	}},
	{Key: "x1Testnet", Def: entity.NetworkDefinition{
		ID: 195, Name: "X1 Testnet", NativeCurrency: entity.NativeCurrency{Name: "OKB", Symbol: "OKB", Decimals: 18},
		RPCURLs:   []string{"https://x1testrpc.okx.com"},
		IsTestnet: true,
	}},
}

// excludedKeys lists builtin aliases of chains already present under another key.
var excludedKeys = map[string]struct{}{
	"lineaTestnet": {},
	"x1Testnet":    {},
}

// BuiltinProvider exposes the immutable builtin network set.
type BuiltinProvider struct {
	logger port.Logger
	defs   []entity.NetworkDefinition
}

// NewBuiltinProvider filters the static table through the deny-list.
// A duplicate id that slipped past the deny-list is dropped with a warning; the first key wins.
func NewBuiltinProvider(log port.Logger) *BuiltinProvider {
	return newBuiltinProvider(log, builtinNetworks, excludedKeys)
}

func newBuiltinProvider(log port.Logger, table []keyedDefinition, excluded map[string]struct{}) *BuiltinProvider {
	p := &BuiltinProvider{logger: log}
	seen := make(map[uint64]string, len(table))
	for _, kd := range table {
		if _, skip := excluded[kd.Key]; skip {
			continue
		}
		if prev, dup := seen[kd.Def.ID]; dup {
			p.logger.Warn(fmt.Sprintf("Builtin network '%s' duplicates chain id %d of '%s'. Skipping.", kd.Key, kd.Def.ID, prev))
			continue
		}
		seen[kd.Def.ID] = kd.Key
		def := kd.Def.Clone()
		def.Origin = entity.OriginBuiltin
		p.defs = append(p.defs, def)
	}
	p.logger.Debug("Builtin networks loaded", "count", len(p.defs))
	return p
}

// Definitions returns a copy of the builtin networks.
func (p *BuiltinProvider) Definitions() []entity.NetworkDefinition {
	out := make([]entity.NetworkDefinition, len(p.defs))
	for i, d := range p.defs {
		out[i] = d.Clone()
	}
	return out
}

// MainnetDefinition returns the Ethereum mainnet entry of the static table, deny-list or not.
func MainnetDefinition() entity.NetworkDefinition {
	for _, kd := range builtinNetworks {
		if kd.Def.ID == 1 {
			def := kd.Def.Clone()
			def.Origin = entity.OriginBuiltin
			return def
		}
	}
	panic("mainnet missing from builtin network table")
}
