package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// JsonConfig is an intermediate DTO used only for reading JSON configuration
// files. After unmarshalling, non-empty fields are copied into the runtime
// Config.
type JsonConfig struct {
	DatabaseDSN     string `json:"database_dsn"`
	VaultPassphrase string `json:"vault_passphrase"`
	VaultSalt       string `json:"vault_salt"`
}

// parseJSON overlays values from a JSON file onto config. An empty path means
// no file is loaded. Absent or empty fields keep their current values.
func parseJSON(config *Config, path string) error {
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.VaultPassphrase != "" {
		config.VaultPassphrase = c.VaultPassphrase
	}
	if c.VaultSalt != "" {
		config.VaultSalt = c.VaultSalt
	}
	return nil
}
