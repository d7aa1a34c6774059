package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewMigrateCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, rm, closeDB, err := app.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			if err := rm.RunMigrations(cmd.Context(), db); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
			return nil
		},
	}
}
