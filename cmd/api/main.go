package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/crolens/crolens-api/internal/adapter"
	"github.com/crolens/crolens-api/internal/adapter/amm"
	"github.com/crolens/crolens-api/internal/adapter/lending"
	"github.com/crolens/crolens-api/internal/catalog"
	"github.com/crolens/crolens-api/internal/catalog/models"
	"github.com/crolens/crolens-api/internal/catalog/sqlite"
	"github.com/crolens/crolens-api/internal/config"
	"github.com/crolens/crolens-api/internal/gateway"
	"github.com/crolens/crolens-api/internal/kv"
	"github.com/crolens/crolens-api/internal/mcp"
	"github.com/crolens/crolens-api/internal/multicall"
	"github.com/crolens/crolens-api/internal/price"
	"github.com/crolens/crolens-api/internal/rpcclient"
	"github.com/crolens/crolens-api/internal/simulator"
	"github.com/crolens/crolens-api/internal/tools"
)

// defaultMulticallAddress is the canonical Multicall3 deployment address,
// identical across every chain that has one deployed, including chain 25.
const defaultMulticallAddress = "0xcA11bde05977b3631167028862bE2a173976CA11"

func main() {
	cfg := config.Load()
	logger := setupLogger()
	slog.SetDefault(logger)

	if err := config.EnsureDataDir(); err != nil {
		log.Fatalf("ensure data dir: %v", err)
	}
	if err := config.EnsureConfigFile(); err != nil {
		log.Fatalf("ensure config file: %v", err)
	}

	store, err := sqlite.New(config.DBPath())
	if err != nil {
		log.Fatalf("open catalog: %v", err)
	}
	defer store.Close()

	if err := ensureAdminPassword(store); err != nil {
		log.Fatalf("admin password setup: %v", err)
	}
	if err := seedCatalog(store, cfg.Seed); err != nil {
		log.Fatalf("seed catalog: %v", err)
	}

	cache, err := kv.New()
	if err != nil {
		log.Fatalf("init cache: %v", err)
	}
	defer cache.Close()

	rpc := rpcclient.New(rpcclient.Options{
		URL:        cfg.UpstreamRPCURL,
		Timeout:    time.Duration(cfg.RPCTimeoutMs) * time.Millisecond,
		MaxRetries: cfg.RPCMaxRetries,
		CacheTTL:   time.Duration(cfg.RPCCacheTTLSecs) * time.Second,
		Cache:      cache,
	})

	multicallAddr := defaultMulticallAddress
	if cfg.Seed != nil && cfg.Seed.MulticallAddress != "" {
		multicallAddr = cfg.Seed.MulticallAddress
	}
	aggregator, err := multicall.New(rpc, common.HexToAddress(multicallAddr))
	if err != nil {
		log.Fatalf("init multicall: %v", err)
	}

	oracle := price.New(cache, store, aggregator, time.Duration(cfg.PriceDerivedTTLSecs)*time.Second)

	adapters := buildAdapters(cfg, aggregator, store)

	var sim tools.Simulator
	if cfg.SimulatorConfigured() {
		sim = simulator.New(cfg.SimulatorBaseURL, cfg.SimulatorAPIKey, cfg.SimulatorAccountSlug, cfg.SimulatorProjectSlug)
	}

	deps := &tools.Deps{
		RPC:       rpc,
		Multicall: aggregator,
		Price:     oracle,
		Store:     store,
		Adapters:  adapters,
		Simulator: sim,
		ChainID:   config.ChainID,
	}

	reg := tools.NewStandardRegistry()
	dispatcher := mcp.New(reg, deps)
	gw := gateway.New(cfg, store, cache, rpc, dispatcher, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	refresher := price.NewRefresher(
		store, cache, price.NewHTTPAnchorFetcher(cfg.PriceAnchorFeedURL),
		time.Duration(cfg.PriceRefreshIntervalSecs)*time.Second,
		time.Duration(cfg.PriceAnchorTTLSecs)*time.Second,
		logger,
	)
	go refresher.Run(ctx)

	srv := &http.Server{
		Addr:         cfg.ServerPort,
		Handler:      gw.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	printStartupBanner(cfg)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
	}()

	logger.Info("crolens-api listening", "addr", cfg.ServerPort)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

// buildAdapters constructs one adapter.Adapter per seeded protocol, keyed
// by adapter_type the way internal/adapter.Registry.Resolve expects.
func buildAdapters(cfg *config.Config, aggregator *multicall.Aggregator, store catalog.Store) *adapter.Registry {
	var built []*adapter.Adapter
	if cfg.Seed == nil {
		return adapter.NewRegistry()
	}
	for _, p := range cfg.Seed.Protocols {
		switch p.AdapterType {
		case models.AdapterUniswapV2AMM:
			a := amm.New(aggregator, store,
				common.HexToAddress(p.RouterAddress), common.HexToAddress(p.MasterChefAddress), common.HexToAddress(p.RewardTokenAddress))
			built = append(built, amm.Interface(a))
		case models.AdapterCompoundV2Lend:
			a := lending.New(aggregator, store)
			built = append(built, lending.Interface(a))
		}
	}
	return adapter.NewRegistry(built...)
}
