package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/crolens/crolens-api/internal/catalog"
	"github.com/crolens/crolens-api/internal/config"
)

func ensureAdminPassword(store catalog.Store) error {
	hasPassword, err := store.HasAdminPassword()
	if err != nil {
		return fmt.Errorf("failed to check admin password: %w", err)
	}

	if hasPassword {
		return nil
	}

	fmt.Println()
	fmt.Println("╔════════════════════════════════════════════════════════════╗")
	fmt.Println("║              FIRST-TIME SETUP REQUIRED                     ║")
	fmt.Println("╚════════════════════════════════════════════════════════════╝")
	fmt.Println()
	fmt.Println("No admin password configured. Please set one now.")
	fmt.Println("The password is stored as an Argon2id hash in the catalog database.")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Print("Enter admin password (alphanumeric, min 8 chars): ")
		password, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = strings.TrimSpace(password)

		if !isValidAdminPassword(password) {
			fmt.Println("Password must be alphanumeric with at least 8 characters.")
			fmt.Println()
			continue
		}

		fmt.Print("Confirm password: ")
		confirm, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		confirm = strings.TrimSpace(confirm)

		if password != confirm {
			fmt.Println("Passwords do not match. Please try again.")
			fmt.Println()
			continue
		}

		hash, err := catalog.HashSecret(password, catalog.DefaultArgon2Params())
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		if err := store.SetAdminPasswordHash(hash); err != nil {
			return fmt.Errorf("failed to save password: %w", err)
		}

		fmt.Println()
		fmt.Println("Admin password saved.")
		fmt.Println()
		return nil
	}
}

func isValidAdminPassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	for _, c := range password {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
			return false
		}
	}
	return true
}

// seedCatalog upserts the TOML seed file's reference rows into the
// catalog store. It runs on every startup, not just first-run: re-running
// a seed file with edited rows is how an operator updates tracked
// protocols/tokens/pools/markets without a migration.
func seedCatalog(store catalog.Store, seed *config.FileConfig) error {
	if seed == nil {
		return nil
	}

	for _, p := range seed.Protocols {
		if err := store.UpsertProtocol(&catalog.Protocol{Slug: p.Slug, Name: p.Name, AdapterType: p.AdapterType}); err != nil {
			return fmt.Errorf("seed protocol %s: %w", p.Slug, err)
		}
	}
	for _, t := range seed.Tokens {
		if err := store.UpsertToken(&catalog.Token{
			Address:         t.Address,
			Symbol:          t.Symbol,
			Decimals:        t.Decimals,
			IsStablecoin:    t.IsStablecoin,
			IsAnchor:        t.IsAnchor,
			ExternalPriceID: t.ExternalID,
		}); err != nil {
			return fmt.Errorf("seed token %s: %w", t.Symbol, err)
		}
	}
	for _, c := range seed.Contracts {
		if err := store.UpsertContract(&catalog.Contract{Address: c.Address, Name: c.Name, ProtocolSlug: c.Protocol}); err != nil {
			return fmt.Errorf("seed contract %s: %w", c.Address, err)
		}
	}
	for _, p := range seed.Pools {
		if err := store.UpsertPool(&catalog.DexPool{
			Address: p.Address, ProtocolSlug: p.Protocol, Token0: p.Token0, Token1: p.Token1,
			FarmPoolIndex: p.FarmPoolIndex,
		}); err != nil {
			return fmt.Errorf("seed pool %s: %w", p.Address, err)
		}
	}
	for _, m := range seed.Markets {
		if err := store.UpsertMarket(&catalog.LendingMarket{
			Address:      m.Address,
			ProtocolSlug: m.Protocol,
			Underlying:   m.Underlying,
			Comptroller:  m.Comptroller,
		}); err != nil {
			return fmt.Errorf("seed market %s: %w", m.Address, err)
		}
	}
	return nil
}
