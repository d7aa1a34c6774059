package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cetmix/towervault/internal/services"
)

func NewValueCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "value",
		Short: "Manage scoped key values",
	}
	cmd.AddCommand(
		newValueSetCommand(app),
		newValueDeleteCommand(app),
	)
	return cmd
}

func newValueSetCommand(app *App) *cobra.Command {
	var (
		keyRef    string
		serverID  int64
		partnerID int64
		fromStdin bool
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set the value of a key for a scope",
		Long: `Set the value of a secret-kind key for a (server, partner) scope.
With no scope flags the global value is set. An existing value for the
same scope is replaced, otherwise a new one is created.

Examples:
  towervault value set --key github_token
  towervault value set --key github_token --server 12 --stdin < token.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeDB, err := app.Connect(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			k, err := svc.GetKeyByReference(cmd.Context(), keyRef)
			if err != nil {
				return err
			}

			value, err := readSecretValue(cmd, fromStdin, false)
			if err != nil {
				return err
			}

			sc := scopeFromFlags(serverID, partnerID)

			// Upsert: replace the value covering this exact scope when one
			// exists, create it otherwise.
			existing, err := svc.ListValues(cmd.Context(), k.ID)
			if err != nil {
				return err
			}
			for _, v := range existing {
				if v.SameScope(sc.ServerID, sc.PartnerID) {
					return svc.SetValueSecret(cmd.Context(), v.ID, value)
				}
			}

			created, err := svc.CreateValue(cmd.Context(), services.ValueInput{
				KeyID:       k.ID,
				ServerID:    sc.ServerID,
				PartnerID:   sc.PartnerID,
				SecretValue: value,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created value %d (%s)\n", created.ID, formatScope(created))
			return nil
		},
	}

	cmd.Flags().StringVar(&keyRef, "key", "", "Key reference (required)")
	cmd.Flags().Int64Var(&serverID, "server", 0, "Server the value applies to")
	cmd.Flags().Int64Var(&partnerID, "partner", 0, "Partner the value applies to")
	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "Read the secret value from stdin")
	_ = cmd.MarkFlagRequired("key")

	return cmd
}

func newValueDeleteCommand(app *App) *cobra.Command {
	var (
		keyRef    string
		serverID  int64
		partnerID int64
	)

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete the value of a key for a scope",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeDB, err := app.Connect(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			k, err := svc.GetKeyByReference(cmd.Context(), keyRef)
			if err != nil {
				return err
			}

			sc := scopeFromFlags(serverID, partnerID)
			existing, err := svc.ListValues(cmd.Context(), k.ID)
			if err != nil {
				return err
			}
			for _, v := range existing {
				if v.SameScope(sc.ServerID, sc.PartnerID) {
					return svc.DeleteValues(cmd.Context(), []int64{v.ID})
				}
			}
			return fmt.Errorf("no value for scope %q", formatScopeFlags(sc))
		},
	}

	cmd.Flags().StringVar(&keyRef, "key", "", "Key reference (required)")
	cmd.Flags().Int64Var(&serverID, "server", 0, "Server the value applies to")
	cmd.Flags().Int64Var(&partnerID, "partner", 0, "Partner the value applies to")
	_ = cmd.MarkFlagRequired("key")

	return cmd
}

func formatScopeFlags(sc services.ResolveScope) string {
	switch {
	case sc.ServerID != nil && sc.PartnerID != nil:
		return fmt.Sprintf("server=%d partner=%d", *sc.ServerID, *sc.PartnerID)
	case sc.ServerID != nil:
		return fmt.Sprintf("server=%d", *sc.ServerID)
	case sc.PartnerID != nil:
		return fmt.Sprintf("partner=%d", *sc.PartnerID)
	default:
		return "global"
	}
}
