package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML catalog seed file structure. It bootstraps
// the reference tables (protocols, contracts, tokens, pools, markets) the
// catalog store needs on first run, generalizing the teacher's
// `[[models]]` alias table to this domain's reference data.
type FileConfig struct {
	ServerPort       string             `toml:"server_port"`
	MulticallAddress string             `toml:"multicall_address"`
	Protocols        []ProtocolSeed     `toml:"protocols"`
	Tokens           []TokenSeed        `toml:"tokens"`
	Contracts        []ContractSeed     `toml:"contracts"`
	Pools            []PoolSeed         `toml:"pools"`
	Markets          []MarketSeed       `toml:"markets"`
}

// ProtocolSeed seeds one row of the protocols table. RouterAddress,
// MasterChefAddress, and RewardTokenAddress are only consulted for
// adapter_type "uniswap_v2_amm"; a blank MasterChefAddress just means the
// protocol's farm queries report ok=false rather than erroring.
type ProtocolSeed struct {
	Slug               string `toml:"slug"`
	Name               string `toml:"name"`
	AdapterType        string `toml:"adapter_type"` // "uniswap_v2_amm" | "compound_v2_lending"
	RouterAddress      string `toml:"router_address"`
	MasterChefAddress  string `toml:"masterchef_address"`
	RewardTokenAddress string `toml:"reward_token_address"`
}

// TokenSeed seeds one row of the tokens table.
type TokenSeed struct {
	Address      string `toml:"address"`
	Symbol       string `toml:"symbol"`
	Decimals     int    `toml:"decimals"`
	IsStablecoin bool   `toml:"is_stablecoin"`
	IsAnchor     bool   `toml:"is_anchor"`
	ExternalID   string `toml:"external_price_id"`
}

// ContractSeed seeds one row of the contracts table.
type ContractSeed struct {
	Address  string `toml:"address"`
	Name     string `toml:"name"`
	Protocol string `toml:"protocol"` // protocol slug
}

// PoolSeed seeds one row of the dex_pools table. FarmPoolIndex is the
// pool's pid in the protocol's MasterChef-style farm, omitted when the
// pool isn't farmed.
type PoolSeed struct {
	Address       string `toml:"address"`
	Protocol      string `toml:"protocol"`
	Token0        string `toml:"token0"`
	Token1        string `toml:"token1"`
	FarmPoolIndex *int   `toml:"farm_pool_index"`
}

// MarketSeed seeds one row of the lending_markets table.
type MarketSeed struct {
	Address      string `toml:"address"`
	Protocol     string `toml:"protocol"`
	Underlying   string `toml:"underlying"`
	Comptroller  string `toml:"comptroller"`
}

// ConfigPath returns the path to the catalog seed file (~/.crolens/config.toml).
func ConfigPath() string {
	return filepath.Join(DataDir(), "config.toml")
}

// LoadFile loads the seed file. Returns an empty FileConfig if none exists.
func LoadFile() (*FileConfig, error) {
	cfg := &FileConfig{}

	path := ConfigPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// EnsureConfigFile creates a default (empty, commented) seed file if none
// exists, mirroring the teacher's EnsureConfigFile.
func EnsureConfigFile() error {
	path := ConfigPath()

	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := EnsureDataDir(); err != nil {
		return err
	}

	defaultConfig := `# crolens-api catalog seed
# server_port = ":8080"
# multicall_address = "0xcA11bde05977b3631167028862bE2a173976CA11"

# [[protocols]]
# slug = "vvs"
# name = "VVS Finance"
# adapter_type = "uniswap_v2_amm"

# [[protocols]]
# slug = "tectonic"
# name = "Tectonic"
# adapter_type = "compound_v2_lending"

# [[tokens]]
# address = "0x5C7F8A570d578ED84E63fdFA7b1eE72dEae1AE23"
# symbol = "WCRO"
# decimals = 18
# is_anchor = true

# [[pools]]
# address = "0x..."
# protocol = "vvs"
# token0 = "0x..."
# token1 = "0x..."

# [[markets]]
# address = "0x..."
# protocol = "tectonic"
# underlying = "0x..."
# comptroller = "0x..."
`

	return os.WriteFile(path, []byte(defaultConfig), 0644)
}
