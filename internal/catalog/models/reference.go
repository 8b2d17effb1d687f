package models

// Protocol is a DeFi protocol tracked by the catalog. AdapterType selects
// which C6 adapter variant handles its contracts.
type Protocol struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	AdapterType string `json:"adapter_type"` // "uniswap_v2_amm" | "compound_v2_lending"
}

const (
	AdapterUniswapV2AMM     = "uniswap_v2_amm"
	AdapterCompoundV2Lend   = "compound_v2_lending"
)

// Contract is a labeled on-chain contract, used by decode_transaction and
// search_contract to attach a human-readable name/protocol to an address.
type Contract struct {
	Address      string `json:"address"`
	Name         string `json:"name"`
	ProtocolSlug string `json:"protocol,omitempty"`
}

// Token is reference data for an ERC-20 (or native-wrapped) asset.
type Token struct {
	Address         string `json:"address"`
	Symbol          string `json:"symbol"`
	Decimals        int    `json:"decimals"`
	IsStablecoin    bool   `json:"is_stablecoin"`
	IsAnchor        bool   `json:"is_anchor"`
	ExternalPriceID string `json:"external_price_id,omitempty"`
}

// DexPool is a UniswapV2-style pair tracked for an AMM protocol.
// FarmPoolIndex is the pool's pid in the protocol's MasterChef-style farm
// contract, nil when the pool isn't farmed.
type DexPool struct {
	Address       string `json:"address"`
	ProtocolSlug  string `json:"protocol"`
	Token0        string `json:"token0"`
	Token1        string `json:"token1"`
	FarmPoolIndex *int   `json:"farm_pool_index,omitempty"`
}

// LendingMarket is a CompoundV2-style cToken market tracked for a lending
// protocol.
type LendingMarket struct {
	Address      string `json:"address"`
	ProtocolSlug string `json:"protocol"`
	Underlying   string `json:"underlying"`
	Comptroller  string `json:"comptroller"`
}
