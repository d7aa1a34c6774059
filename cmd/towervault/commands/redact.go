package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cetmix/towervault/internal/services"
)

func NewRedactCommand(app *App) *cobra.Command {
	var (
		codeFile    string
		serverID    int64
		partnerID   int64
		safeLiteral bool
	)

	cmd := &cobra.Command{
		Use:   "redact [FILE]",
		Short: "Redact resolved secret values out of captured output",
		Long: `Redact secrets from FILE (or stdin), typically output captured from a
script that was rendered earlier. The script with the original tokens
is given with --code; it is re-rendered under the same scope to learn
which literals to strip, and every occurrence is replaced with *****.

Examples:
  towervault render deploy.sh --server 12 | ssh prod bash -s 2>&1 |
      towervault redact --code deploy.sh --server 12`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeDB, err := app.Connect(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			code, err := os.ReadFile(codeFile)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", codeFile, err)
			}

			_, literals, err := svc.RenderCode(cmd.Context(), string(code), services.RenderOptions{
				Scope:       scopeFromFlags(serverID, partnerID),
				SafeLiteral: safeLiteral,
			})
			if err != nil {
				return err
			}

			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), svc.Redact(text, literals))
			return nil
		},
	}

	cmd.Flags().StringVar(&codeFile, "code", "", "Script containing the original tokens (required)")
	cmd.Flags().Int64Var(&serverID, "server", 0, "Scope the original render used")
	cmd.Flags().Int64Var(&partnerID, "partner", 0, "Scope the original render used")
	cmd.Flags().BoolVar(&safeLiteral, "safe-literal", false,
		"The original render used --safe-literal")
	_ = cmd.MarkFlagRequired("code")

	return cmd
}
