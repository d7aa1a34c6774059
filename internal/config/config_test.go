package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Contains(t, cfg.DatabaseDSN, "towervault")
	require.Empty(t, cfg.VaultPassphrase)
}

func TestLoad_JSONOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(path, []byte(`{"database_dsn": "postgres://other/db", "vault_salt": "s1"}`), 0o600)
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "postgres://other/db", cfg.DatabaseDSN)
	require.Equal(t, "s1", cfg.VaultSalt)
	// Fields absent from the file keep their defaults.
	require.Empty(t, cfg.VaultPassphrase)
}

func TestLoad_JSONInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestLoad_EnvOverridesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(path, []byte(`{"database_dsn": "postgres://from-json/db"}`), 0o600)
	require.NoError(t, err)

	t.Setenv(EnvDatabaseDSN, "postgres://from-env/db")
	t.Setenv(EnvVaultPassphrase, "pw")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "postgres://from-env/db", cfg.DatabaseDSN)
	require.Equal(t, "pw", cfg.VaultPassphrase)
}
