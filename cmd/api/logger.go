package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/crolens/crolens-api/internal/config"
	"github.com/crolens/crolens-api/internal/version"
)

func setupLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return slog.New(handler)
}

func printStartupBanner(cfg *config.Config) {
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "crolens-api %s - Read-only DeFi data layer for chain %d\n", version.Version, config.ChainID)
	fmt.Fprintln(os.Stderr, "════════════════════════════════════════════════")
	fmt.Fprintf(os.Stderr, "MCP endpoint:  http://localhost%s/\n", cfg.ServerPort)
	fmt.Fprintf(os.Stderr, "Health:        http://localhost%s/health\n", cfg.ServerPort)
	if cfg.TopupEnabled() {
		fmt.Fprintf(os.Stderr, "x402 top-up:   http://localhost%s/x402/quote\n", cfg.ServerPort)
	}
	fmt.Fprintf(os.Stderr, "Data:          %s\n", config.DataDir())
	fmt.Fprintln(os.Stderr, "════════════════════════════════════════════════")
	fmt.Fprintf(os.Stderr, "\n")
}
