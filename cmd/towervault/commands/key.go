package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cetmix/towervault/internal/models"
	"github.com/cetmix/towervault/internal/services"
)

func NewKeyCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage keys",
	}
	cmd.AddCommand(
		newKeyCreateCommand(app),
		newKeyListCommand(app),
		newKeyShowCommand(app),
		newKeyDuplicateCommand(app),
		newKeyDeleteCommand(app),
	)
	return cmd
}

func newKeyCreateCommand(app *App) *cobra.Command {
	var (
		name      string
		reference string
		kind      string
		note      string
		noValue   bool
		fromStdin bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a key",
		Long: `Create a key. The secret value is read interactively without echo,
or from stdin with --stdin. The value never appears in shell history.

Examples:
  towervault key create --name "GitHub Token"
  cat id_ed25519 | towervault key create --name deploy --kind ssh_key --stdin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeDB, err := app.Connect(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			value := ""
			if !noValue {
				multiline := kind == string(models.KindSSHKey)
				value, err = readSecretValue(cmd, fromStdin, multiline)
				if err != nil {
					return err
				}
			}

			created, err := svc.CreateKeys(cmd.Context(), []services.KeyInput{{
				Name:        name,
				Reference:   reference,
				Kind:        models.KeyKind(kind),
				SecretValue: value,
				Note:        note,
			}})
			if err != nil {
				return err
			}

			k := created[0]
			fmt.Fprintf(cmd.OutOrStdout(), "Created key %d (%s)\n", k.ID, k.Reference)
			if code, ok := services.KeyCode(k); ok {
				fmt.Fprintf(cmd.OutOrStdout(), "Inline code: %s\n", code)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Key name (required)")
	cmd.Flags().StringVar(&reference, "reference", "", "Explicit reference; derived from the name when empty")
	cmd.Flags().StringVar(&kind, "kind", string(models.KindSecret), "Key kind: secret or ssh_key")
	cmd.Flags().StringVar(&note, "note", "", "Free-form note")
	cmd.Flags().BoolVar(&noValue, "no-value", false, "Create without a secret value")
	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "Read the secret value from stdin")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newKeyListCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeDB, err := app.Connect(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			ks, err := svc.ListKeys(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tREFERENCE\tKIND")
			for _, k := range ks {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", k.ID, k.Name, k.Reference, k.Kind)
			}
			return w.Flush()
		},
	}
}

func newKeyShowCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show REFERENCE",
		Short: "Show a key and its scoped values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeDB, err := app.Connect(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			k, err := svc.GetKeyByReference(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:        %d\n", k.ID)
			fmt.Fprintf(out, "Name:      %s\n", k.Name)
			fmt.Fprintf(out, "Reference: %s\n", k.Reference)
			fmt.Fprintf(out, "Kind:      %s\n", k.Kind)
			fmt.Fprintf(out, "Value:     %s\n", k.SecretValue)
			if k.Note != "" {
				fmt.Fprintf(out, "Note:      %s\n", k.Note)
			}
			if code, ok := services.KeyCode(k); ok {
				fmt.Fprintf(out, "Code:      %s\n", code)
			}

			vs, err := svc.ListValues(cmd.Context(), k.ID)
			if err != nil {
				return err
			}
			if len(vs) > 0 {
				fmt.Fprintln(out, "Values:")
				for _, v := range vs {
					fmt.Fprintf(out, "  %d\t%s\t%s\n", v.ID, formatScope(v), v.SecretValue)
				}
			}
			return nil
		},
	}
}

func newKeyDuplicateCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "duplicate REFERENCE",
		Short: "Duplicate a key with its secret and scoped values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeDB, err := app.Connect(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			k, err := svc.GetKeyByReference(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			dup, err := svc.DuplicateKey(cmd.Context(), k.ID)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created key %d (%s)\n", dup.ID, dup.Reference)
			return nil
		},
	}
}

func newKeyDeleteCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete REFERENCE...",
		Short: "Delete keys together with their values and stored secrets",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeDB, err := app.Connect(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			ids := make([]int64, 0, len(args))
			for _, ref := range args {
				k, err := svc.GetKeyByReference(cmd.Context(), ref)
				if err != nil {
					return fmt.Errorf("%s: %w", ref, err)
				}
				ids = append(ids, k.ID)
			}
			return svc.DeleteKeys(cmd.Context(), ids)
		},
	}
}

func formatScope(v *models.KeyValue) string {
	switch {
	case v.ServerID != nil && v.PartnerID != nil:
		return fmt.Sprintf("server=%d partner=%d", *v.ServerID, *v.PartnerID)
	case v.ServerID != nil:
		return fmt.Sprintf("server=%d", *v.ServerID)
	case v.PartnerID != nil:
		return fmt.Sprintf("partner=%d", *v.PartnerID)
	default:
		return "global"
	}
}
