package commands

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/mountfd/cmd/mountfdctl/cmdutil"
	"github.com/marmos91/mountfd/internal/cli/output"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current token identity",
	Long: `Introspect the configured bearer token against the server.

Examples:
  mountfdctl whoami
  mountfdctl whoami -o json`,
	RunE: runWhoami,
}

func runWhoami(cmd *cobra.Command, args []string) error {
	if err := cmdutil.RequireToken(); err != nil {
		return err
	}

	identity, err := cmdutil.NewClient().Me()
	if err != nil {
		return err
	}

	format, err := cmdutil.OutputFormat()
	if err != nil {
		return err
	}
	if format == output.FormatTable {
		return output.SimpleTable(cmd.OutOrStdout(), [][2]string{
			{"Username", identity.Username},
			{"Role", identity.Role},
			{"Expires", identity.ExpiresAt.Time().Format("2006-01-02 15:04:05 MST")},
		})
	}
	return cmdutil.PrintResult(identity)
}
