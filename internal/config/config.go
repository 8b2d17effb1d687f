package config

import (
	"os"
	"strconv"
)

// ChainID is the fixed EVM chain id this gateway serves.
const ChainID = 25

// Config holds application configuration loaded from environment and the
// catalog seed file. Priority: env vars → config.toml → defaults, same
// precedence the teacher's Load() used for model routing.
type Config struct {
	ServerPort string

	// Upstream RPC.
	UpstreamRPCURL   string
	RPCMaxRetries    int
	RPCTimeoutMs     int
	RPCCacheTTLSecs  int

	// x402 top-up.
	X402PaymentAddress    string // empty disables top-up
	X402TopupCredits      int
	X402PricePerCreditWei string

	// Gateway.
	CORSAllowOrigin              string // comma list or "*"
	RequestLogSampleRate         float64
	RateLimitJSONRPCPerMin       int
	RateLimitJSONRPCWindowSecs   int
	RateLimitFreeTierPerHour     int
	RateLimitQuotePerMin         int
	RateLimitVerifyPerMin        int
	DefaultFreeCredits           int

	// Simulator (optional; tools degrade when absent).
	SimulatorBaseURL     string
	SimulatorAPIKey      string
	SimulatorAccountSlug string
	SimulatorProjectSlug string

	// Price oracle (C4/C11).
	PriceAnchorFeedURL       string
	PriceRefreshIntervalSecs int
	PriceAnchorTTLSecs       int
	PriceDerivedTTLSecs      int

	// Seed data loaded from the TOML catalog file.
	Seed *FileConfig
}

// Load reads configuration from environment variables, falling back to the
// catalog seed file and then to hardcoded defaults.
func Load() *Config {
	fileConfig, _ := LoadFile() // ignore error, use defaults

	serverPort := ":8080"
	if fileConfig != nil && fileConfig.ServerPort != "" {
		serverPort = fileConfig.ServerPort
	}

	return &Config{
		ServerPort: getEnvOrDefault("SERVER_PORT", serverPort),

		UpstreamRPCURL:  getEnvOrDefault("UPSTREAM_RPC_URL", ""),
		RPCMaxRetries:   getEnvIntOrDefault("RPC_MAX_RETRIES", 3),
		RPCTimeoutMs:    getEnvIntOrDefault("RPC_TIMEOUT_MS", 10_000),
		RPCCacheTTLSecs: getEnvIntOrDefault("RPC_CACHE_TTL_SECS", 300),

		X402PaymentAddress:    getEnvOrDefault("X402_PAYMENT_ADDRESS", ""),
		X402TopupCredits:      getEnvIntOrDefault("X402_TOPUP_CREDITS", 1000),
		X402PricePerCreditWei: getEnvOrDefault("X402_PRICE_PER_CREDIT_WEI", "1000000000000000"),

		CORSAllowOrigin:            getEnvOrDefault("CORS_ALLOW_ORIGIN", ""),
		RequestLogSampleRate:       getEnvFloatOrDefault("REQUEST_LOG_SAMPLE_RATE", 1.0),
		RateLimitJSONRPCPerMin:     getEnvIntOrDefault("RATE_LIMIT_JSONRPC_PER_MIN", 120),
		RateLimitJSONRPCWindowSecs: getEnvIntOrDefault("RATE_LIMIT_JSONRPC_WINDOW_SECS", 60),
		RateLimitFreeTierPerHour:   getEnvIntOrDefault("RATE_LIMIT_FREE_TIER_PER_HOUR", 50),
		RateLimitQuotePerMin:       getEnvIntOrDefault("RATE_LIMIT_QUOTE_PER_MIN", 30),
		RateLimitVerifyPerMin:      getEnvIntOrDefault("RATE_LIMIT_VERIFY_PER_MIN", 10),
		DefaultFreeCredits:         getEnvIntOrDefault("DEFAULT_FREE_CREDITS", 50),

		SimulatorBaseURL:     getEnvOrDefault("SIMULATOR_BASE_URL", ""),
		SimulatorAPIKey:      getEnvOrDefault("SIMULATOR_API_KEY", ""),
		SimulatorAccountSlug: getEnvOrDefault("SIMULATOR_ACCOUNT_SLUG", ""),
		SimulatorProjectSlug: getEnvOrDefault("SIMULATOR_PROJECT_SLUG", ""),

		PriceAnchorFeedURL:       getEnvOrDefault("PRICE_ANCHOR_FEED_URL", "https://api.coingecko.com/api/v3"),
		PriceRefreshIntervalSecs: getEnvIntOrDefault("PRICE_REFRESH_INTERVAL_SECS", 60),
		PriceAnchorTTLSecs:       getEnvIntOrDefault("PRICE_ANCHOR_TTL_SECS", 180),
		PriceDerivedTTLSecs:      getEnvIntOrDefault("PRICE_DERIVED_TTL_SECS", 30),

		Seed: fileConfig,
	}
}

// SimulatorConfigured reports whether enough Tenderly-shaped simulator
// config is present to attempt a simulate-bundle call.
func (c *Config) SimulatorConfigured() bool {
	return c.SimulatorBaseURL != "" && c.SimulatorAPIKey != ""
}

// TopupEnabled reports whether x402 crediting is configured.
func (c *Config) TopupEnabled() bool {
	return c.X402PaymentAddress != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
