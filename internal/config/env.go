package config

import "os"

// Environment variable names. The passphrase deliberately has no flag
// counterpart so it never shows up in shell history or process listings.
const (
	EnvDatabaseDSN     = "TOWERVAULT_DATABASE_DSN"
	EnvVaultPassphrase = "TOWERVAULT_PASSPHRASE"
	EnvVaultSalt       = "TOWERVAULT_SALT"
	EnvConfigFile      = "TOWERVAULT_CONFIG"
)

// parseEnv overlays values from environment variables onto config. Unset
// variables keep the current values.
func parseEnv(config *Config) {
	if v, ok := os.LookupEnv(EnvDatabaseDSN); ok {
		config.DatabaseDSN = v
	}
	if v, ok := os.LookupEnv(EnvVaultPassphrase); ok {
		config.VaultPassphrase = v
	}
	if v, ok := os.LookupEnv(EnvVaultSalt); ok {
		config.VaultSalt = v
	}
}
