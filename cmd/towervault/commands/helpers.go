// Package commands contains the towervault CLI commands.
package commands

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/cetmix/towervault/internal/config"
	"github.com/cetmix/towervault/internal/cryptox"
	"github.com/cetmix/towervault/internal/logging"
	"github.com/cetmix/towervault/internal/repositories/repomanager"
	"github.com/cetmix/towervault/internal/services"
)

// App carries the global CLI state shared by all commands. ConfigPath and Log
// are set by the root command before any RunE executes.
type App struct {
	ConfigPath string
	Log        logging.Logger
}

// Connect loads configuration, opens the database and builds the service.
// The returned func closes the connection.
func (a *App) Connect(ctx context.Context) (*services.KeyService, func(), error) {
	db, rm, closeDB, err := a.open(ctx)
	if err != nil {
		return nil, nil, err
	}
	return services.NewKeyService(db, rm, a.Log), closeDB, nil
}

func (a *App) open(ctx context.Context) (*sql.DB, repomanager.RepositoryManager, func(), error) {
	cfg, err := config.Load(a.ConfigPath)
	if err != nil {
		return nil, nil, nil, err
	}

	// The DSN carries credentials; it is never logged in the clear.
	a.Log.Info(ctx, "configuration loaded",
		"dsn", logging.Secret(cfg.DatabaseDSN),
		"encryption", cfg.VaultPassphrase != "")

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	var cipher *cryptox.Cipher
	if cfg.VaultPassphrase != "" {
		cipher, err = cryptox.NewCipher(
			cryptox.DeriveKey([]byte(cfg.VaultPassphrase), []byte(cfg.VaultSalt)))
		if err != nil {
			db.Close()
			return nil, nil, nil, err
		}
	}

	rm := repomanager.NewPostgresRepositoryManager(cipher)
	return db, rm, func() { db.Close() }, nil
}

// readSecretValue obtains a secret for a command: from stdin when fromStdin
// is set (for piping), otherwise interactively without echo. multiline
// switches to line-based input for material like SSH keys.
func readSecretValue(cmd *cobra.Command, fromStdin, multiline bool) (string, error) {
	if fromStdin {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read value from stdin: %w", err)
		}
		return strings.TrimRight(string(b), "\r\n"), nil
	}
	if multiline {
		return GetMultiline(cmd.InOrStdin(), cmd.OutOrStdout(), "Enter value")
	}
	return GetSecret(cmd.OutOrStdout(), "Enter value: ")
}

// scopeFromFlags converts the --server/--partner flag values to a resolve
// scope. Zero means the axis was not given.
func scopeFromFlags(serverID, partnerID int64) services.ResolveScope {
	var sc services.ResolveScope
	if serverID != 0 {
		sc.ServerID = &serverID
	}
	if partnerID != 0 {
		sc.PartnerID = &partnerID
	}
	return sc
}

// readInput returns the contents of the file argument, or stdin when no
// argument was given.
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		b, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		return string(b), nil
	}
	b, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(b), nil
}
