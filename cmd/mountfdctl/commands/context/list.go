package context

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/mountfd/cmd/mountfdctl/cmdutil"
	"github.com/marmos91/mountfd/internal/cli/output"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List open contexts",
	Long: `List every open mount configuration context on the server.

Examples:
  # List contexts as table
  mountfdctl context list

  # List as JSON
  mountfdctl context list -o json`,
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	if err := cmdutil.RequireToken(); err != nil {
		return err
	}

	list, err := cmdutil.NewClient().ListContexts()
	if err != nil {
		return fmt.Errorf("failed to list contexts: %w", err)
	}

	format, err := cmdutil.OutputFormat()
	if err != nil {
		return err
	}
	if format == output.FormatTable {
		if list.Count == 0 {
			fmt.Println("No open contexts.")
			return nil
		}
		return output.PrintTable(os.Stdout, ContextRows(list.Contexts))
	}
	return cmdutil.PrintResult(list)
}

var showCmd = &cobra.Command{
	Use:   "show FD",
	Short: "Show one context",
	Long: `Show the context bound to the given descriptor.

Examples:
  mountfdctl context show 3
  mountfdctl context show 3 -o yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	if err := cmdutil.RequireToken(); err != nil {
		return err
	}

	fd, err := parseFD(args[0])
	if err != nil {
		return err
	}

	view, err := cmdutil.NewClient().GetContext(fd)
	if err != nil {
		return err
	}

	format, err := cmdutil.OutputFormat()
	if err != nil {
		return err
	}
	if format == output.FormatTable {
		return output.PrintTable(os.Stdout, ContextRows{*view})
	}
	return cmdutil.PrintResult(view)
}
