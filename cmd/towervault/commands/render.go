package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cetmix/towervault/internal/services"
)

func NewRenderCommand(app *App) *cobra.Command {
	var (
		serverID    int64
		partnerID   int64
		safeLiteral bool
	)

	cmd := &cobra.Command{
		Use:   "render [FILE]",
		Short: "Substitute inline secret tokens in a script",
		Long: `Substitute every #!cxtower.secret.REFERENCE!# token in FILE (or stdin)
with its resolved value and print the result. Resolution honors the
scope flags: a value for the exact server and partner combination wins
over a server-only value, then a partner-only value, then the global
one.

The output contains real secret values. Pipe it straight to its
consumer instead of writing it to disk.

Examples:
  towervault render deploy.sh --server 12 | ssh prod bash -s
  echo 'echo #!cxtower.secret.github_token!#' | towervault render`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeDB, err := app.Connect(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			code, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			rendered, _, err := svc.RenderCode(cmd.Context(), code, services.RenderOptions{
				Scope:       scopeFromFlags(serverID, partnerID),
				SafeLiteral: safeLiteral,
			})
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), rendered)
			return nil
		},
	}

	cmd.Flags().Int64Var(&serverID, "server", 0, "Resolve for this server")
	cmd.Flags().Int64Var(&partnerID, "partner", 0, "Resolve for this partner")
	cmd.Flags().BoolVar(&safeLiteral, "safe-literal", false,
		"Quote substituted values and escape line breaks")

	return cmd
}
