// Package config holds wallet configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
)

// DefaultEndpoint is the RPC endpoint of a local development node.
const DefaultEndpoint = "http://127.0.0.1:9944"

// Config is the wallet's runtime configuration. The CLI fills it from flags;
// the core only ever sees the resolved values.
type Config struct {
	// Endpoint is the node's JSON-RPC URL.
	Endpoint string
	// DataDir is where the ledger database and keystore live.
	DataDir string
	// NoSync skips the initial sync; commands run against the last synced
	// local state.
	NoSync bool
	// Tmp uses a throwaway data directory deleted when the process exits.
	Tmp bool
	// Dev implies Tmp and inserts the well-known development key.
	Dev bool
	// LogLevel is one of debug, info, warn, error.
	LogLevel string
	// LogJSON switches log output from colored console to JSON.
	LogJSON bool
}

// DefaultConfig returns a config with platform defaults filled in.
func DefaultConfig() Config {
	return Config{
		Endpoint: DefaultEndpoint,
		DataDir:  DefaultDataDir(),
		LogLevel: "info",
	}
}

// DefaultDataDir returns the platform-specific wallet data directory.
func DefaultDataDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ".kittynet-wallet"
	}
	return filepath.Join(base, "kittynet-wallet")
}

// LedgerDir returns the ledger database path under the data directory.
func (c Config) LedgerDir() string {
	return filepath.Join(c.DataDir, "ledger")
}

// KeystoreDir returns the keystore path under the data directory.
func (c Config) KeystoreDir() string {
	return filepath.Join(c.DataDir, "keystore")
}

// Validate checks the configuration for obvious mistakes.
func (c Config) Validate() error {
	u, err := url.Parse(c.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("endpoint %q is not a valid URL", c.Endpoint)
	}
	if c.DataDir == "" {
		return fmt.Errorf("data directory must not be empty")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}
