package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// DataDir returns the path to the crolens-api data directory.
// - Windows: %APPDATA%\crolens
// - Other OS: ~/.crolens
func DataDir() string {
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "crolens")
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ".crolens"
	}
	return filepath.Join(home, ".crolens")
}

// DBPath returns the path to the SQLite catalog database file.
func DBPath() string {
	return filepath.Join(DataDir(), "crolens.db")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0700)
}
