// Package registry is the declarative tool schema table (C12): for every
// tool in the surface, its name, human description, JSON input schema,
// and billing classification, served verbatim by tools/list and consulted
// by the gateway's quota gate before a tool runs. Changes are
// backward-compatible — fields may be added, never removed — the same
// contract the teacher's provider registry keeps for model aliases,
// generalized from LLM model metadata to MCP tool metadata.
package registry

// Spec is one entry of the tool schema table.
type Spec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`

	// ProOnly marks a tool that the gateway's quota gate (spec §4.1 step
	// 5) rejects with -32002 for any caller below pro tier, regardless of
	// remaining credits.
	ProOnly bool `json:"-"`

	// FreeIncluded marks a tool the gateway never bills (spec §4.1 step
	// 7): cheap, read-only lookups that don't justify spending a credit.
	FreeIncluded bool `json:"-"`
}

func obj(props map[string]any, required ...string) map[string]any {
	m := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		m["required"] = required
	}
	return m
}

func str(desc string) map[string]any { return map[string]any{"type": "string", "description": desc} }

func addrProp(desc string) map[string]any {
	return map[string]any{"type": "string", "pattern": "^0x[0-9a-fA-F]{40}$", "description": desc}
}

func hashProp(desc string) map[string]any {
	return map[string]any{"type": "string", "pattern": "^0x[0-9a-fA-F]{64}$", "description": desc}
}

func hexDataProp(desc string) map[string]any {
	return map[string]any{"type": "string", "pattern": "^0x[0-9a-fA-F]*$", "description": desc}
}

func intRange(desc string, min, max int) map[string]any {
	return map[string]any{"type": "integer", "minimum": min, "maximum": max, "description": desc}
}

func boolProp(desc string) map[string]any {
	return map[string]any{"type": "boolean", "description": desc}
}

func arrayOf(items map[string]any, desc string, minItems, maxItems int) map[string]any {
	return map[string]any{
		"type": "array", "items": items, "minItems": minItems, "maxItems": maxItems,
		"description": desc,
	}
}

// Specs is the ordered, closed tool surface. Order here is tools/list
// order (spec §8 property 6); internal/tools.Registry must register tools
// in this same order, and a test asserts the two lengths match.
var Specs = []Spec{
	{
		Name:        "get_account_summary",
		Description: "Summarize one address's total net worth: wallet token balances plus VVS liquidity and Tectonic supply/borrow positions, all priced in USD.",
		InputSchema: obj(map[string]any{
			"address":     addrProp("account address to summarize"),
			"simple_mode": boolProp("return a one-paragraph text summary instead of the structured breakdown"),
		}, "address"),
	},
	{
		Name:        "get_defi_positions",
		Description: "Detail an address's DeFi positions: VVS liquidity and pending farm rewards, Tectonic supplies/borrows and health factor.",
		InputSchema: obj(map[string]any{
			"address":     addrProp("account address to inspect"),
			"simple_mode": boolProp("return a one-paragraph text summary instead of the structured breakdown"),
		}, "address"),
	},
	{
		Name:        "decode_transaction",
		Description: "Fetch a mined transaction and decode its method call, labeling the target contract's protocol when known.",
		InputSchema: obj(map[string]any{
			"tx_hash":     hashProp("transaction hash to decode"),
			"simple_mode": boolProp("return a one-paragraph text summary instead of the structured breakdown"),
		}, "tx_hash"),
		FreeIncluded: true,
	},
	{
		Name:        "get_transaction_status",
		Description: "Report whether a transaction is pending, mined (success/failed), or unknown to the node, with its receipt summary if mined.",
		InputSchema: obj(map[string]any{
			"tx_hash": hashProp("transaction hash to check"),
		}, "tx_hash"),
		FreeIncluded: true,
	},
	{
		Name:        "simulate_transaction",
		Description: "Simulate a candidate transaction's effects via the configured third-party simulator, degrading to a best-effort eth_call outcome when no simulator is configured.",
		InputSchema: obj(map[string]any{
			"from":        addrProp("sender address"),
			"to":          addrProp("target contract or account address"),
			"data":        hexDataProp("calldata to simulate"),
			"value":       str("native value to send, in wei, as a decimal string"),
			"simple_mode": boolProp("return a one-paragraph text summary instead of the structured breakdown"),
		}, "from", "to"),
		ProOnly: true,
	},
	{
		Name:        "search_contract",
		Description: "Fuzzy-search the contract catalog by name, token symbol, or address.",
		InputSchema: obj(map[string]any{
			"query": map[string]any{"type": "string", "maxLength": 200, "description": "search text"},
			"limit": intRange("maximum results to return", 1, 50),
		}, "query"),
		FreeIncluded: true,
	},
	{
		Name:        "construct_swap_tx",
		Description: "Build an exact-input swap transaction pipeline (optional approval step plus the swap step) through the tracked pool for the token pair of the first AMM protocol that has one, applying slippage tolerance to the minimum output. Pools are not compared by liquidity.",
		InputSchema: obj(map[string]any{
			"from":          addrProp("address that will sign and send the swap"),
			"token_in":      addrProp("input token address"),
			"token_out":     addrProp("output token address"),
			"amount_in":     str("input amount in the input token's base units, as a decimal string"),
			"slippage_bps":  intRange("maximum acceptable slippage in basis points", 0, 5000),
		}, "from", "token_in", "token_out", "amount_in"),
		ProOnly: true,
	},
	{
		Name:        "construct_revoke_approval_tx",
		Description: "Build an approve(spender, 0) transaction step revoking a token allowance.",
		InputSchema: obj(map[string]any{
			"owner":   addrProp("token owner address"),
			"token":   addrProp("token contract address"),
			"spender": addrProp("spender address whose allowance is revoked"),
		}, "owner", "token", "spender"),
	},
	{
		Name:        "get_gas_price",
		Description: "Return the current upstream gas price.",
		InputSchema: obj(map[string]any{}),
		FreeIncluded: true,
	},
	{
		Name:        "estimate_gas",
		Description: "Estimate gas for a candidate call and report its estimated native-currency cost at the current gas price.",
		InputSchema: obj(map[string]any{
			"from":  addrProp("sender address"),
			"to":    addrProp("target address"),
			"data":  hexDataProp("calldata"),
			"value": str("native value to send, in wei, as a decimal string"),
		}, "from", "to"),
		FreeIncluded: true,
	},
	{
		Name:        "get_block_info",
		Description: "Fetch a block by number or tag.",
		InputSchema: obj(map[string]any{
			"block": str("block number (decimal string) or tag (latest, pending, earliest); defaults to latest"),
		}),
		FreeIncluded: true,
	},
	{
		Name:        "get_token_info",
		Description: "Look up catalog reference data for a token: symbol, decimals, stablecoin/anchor flags, current USD price.",
		InputSchema: obj(map[string]any{
			"address": addrProp("token contract address"),
		}, "address"),
		FreeIncluded: true,
	},
	{
		Name:        "get_pool_info",
		Description: "Look up a tracked AMM pool's reserves, total supply, and USD value.",
		InputSchema: obj(map[string]any{
			"address": addrProp("pool contract address"),
		}, "address"),
		FreeIncluded: true,
	},
	{
		Name:        "get_token_price",
		Description: "Look up a single token's current USD price (anchor or derived).",
		InputSchema: obj(map[string]any{
			"address": addrProp("token contract address"),
		}, "address"),
		FreeIncluded: true,
	},
	{
		Name:        "get_token_prices",
		Description: "Batch-lookup USD prices for up to 20 tokens.",
		InputSchema: obj(map[string]any{
			"addresses": arrayOf(addrProp("token contract address"), "token addresses to price", 1, 20),
		}, "addresses"),
		FreeIncluded: true,
	},
	{
		Name:        "get_approval_status",
		Description: "Read an ERC-20 allowance an owner has granted a spender.",
		InputSchema: obj(map[string]any{
			"owner":   addrProp("token owner address"),
			"token":   addrProp("token contract address"),
			"spender": addrProp("spender address"),
		}, "owner", "token", "spender"),
		FreeIncluded: true,
	},
	{
		Name:        "get_vvs_farms",
		Description: "List tracked VVS-style AMM pools with reserves, USD liquidity, and farm pool index for farmed pools.",
		InputSchema: obj(map[string]any{}),
	},
	{
		Name:        "get_tectonic_markets",
		Description: "List tracked Tectonic-style lending markets with supply/borrow rates.",
		InputSchema: obj(map[string]any{}),
	},
	{
		Name:        "get_cro_overview",
		Description: "Summarize native CRO: chain id, current gas price, latest block, and the anchor USD price if tracked.",
		InputSchema: obj(map[string]any{}),
		FreeIncluded: true,
	},
	{
		Name:        "get_protocol_stats",
		Description: "Summarize how many protocols, pools, and lending markets this deployment tracks.",
		InputSchema: obj(map[string]any{}),
		FreeIncluded: true,
	},
	{
		Name:        "get_health_alerts",
		Description: "Report protocol-level health signals: tracked AMM pools with zero or unreadable reserves, and tracked lending markets whose underlying token has no USD price. Individual accounts are not scanned.",
		InputSchema: obj(map[string]any{}),
	},
	{
		Name:        "get_liquidation_risk",
		Description: "Assess an address's liquidation risk on a lending protocol: health factor, risk level, and a comptroller-reported account liquidity/shortfall cross-check.",
		InputSchema: obj(map[string]any{
			"address":     addrProp("account address to assess"),
			"protocol":    str("lending protocol slug; defaults to tectonic"),
			"simple_mode": boolProp("return a one-paragraph text summary instead of the structured breakdown"),
		}, "address"),
	},
	{
		Name:        "get_whale_activity",
		Description: "Scan recent blocks' transfer logs for a token for transfers above a USD value threshold.",
		InputSchema: obj(map[string]any{
			"token":        addrProp("token contract address"),
			"min_usd_value": str("minimum USD value to report, as a decimal string; defaults to 10000"),
			"limit":        intRange("maximum transfers to return", 1, 50),
		}, "token"),
		ProOnly: true,
	},
	{
		Name:        "resolve_cronos_id",
		Description: "Resolve a Cronos ID name to an address, or an address to its registered Cronos ID name.",
		InputSchema: obj(map[string]any{
			"input": str("a Cronos ID name or a 0x address"),
		}, "input"),
		FreeIncluded: true,
	},
	{
		Name:        "list_supported_tokens",
		Description: "List every token this deployment tracks in its catalog.",
		InputSchema: obj(map[string]any{}),
		FreeIncluded: true,
	},
}

// ByName indexes Specs for O(1) lookup.
var ByName = func() map[string]Spec {
	m := make(map[string]Spec, len(Specs))
	for _, s := range Specs {
		m[s.Name] = s
	}
	return m
}()

// Names returns every tool name in registry order.
func Names() []string {
	names := make([]string, len(Specs))
	for i, s := range Specs {
		names[i] = s.Name
	}
	return names
}
