// Package filesystem implements the mountfdctl filesystem subcommands.
package filesystem

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/mountfd/cmd/mountfdctl/cmdutil"
	"github.com/marmos91/mountfd/internal/cli/output"
	"github.com/marmos91/mountfd/pkg/apiclient"
)

// Cmd is the parent command for filesystem driver inspection.
var Cmd = &cobra.Command{
	Use:     "filesystem",
	Aliases: []string{"fs"},
	Short:   "Inspect filesystem drivers and instances",
	Long: `List the filesystem drivers registered on the server and the live
instances created through them.

Use "mountfdctl filesystem [command] --help" for more information about a command.`,
}

func init() {
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(instancesCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered filesystem drivers",
	Long: `List the filesystem driver names registered on the server.

Examples:
  mountfdctl filesystem list
  mountfdctl fs list -o json`,
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	if err := cmdutil.RequireToken(); err != nil {
		return err
	}

	list, err := cmdutil.NewClient().ListFilesystems()
	if err != nil {
		return fmt.Errorf("failed to list filesystems: %w", err)
	}

	format, err := cmdutil.OutputFormat()
	if err != nil {
		return err
	}
	if format == output.FormatTable {
		if list.Count == 0 {
			fmt.Println("No filesystem drivers registered.")
			return nil
		}
		table := output.NewTableData("NAME")
		for _, name := range list.Filesystems {
			table.AddRow(name)
		}
		return output.PrintTable(os.Stdout, table)
	}
	return cmdutil.PrintResult(list)
}

var instancesCmd = &cobra.Command{
	Use:   "instances",
	Short: "List live filesystem instances",
	Long: `List the filesystem instances created through mount configuration
contexts and still tracked by the server.

Examples:
  mountfdctl filesystem instances
  mountfdctl fs instances -o yaml`,
	RunE: runInstances,
}

// instanceRows renders instances as a table.
type instanceRows []apiclient.Instance

// Headers implements TableRenderer.
func (ir instanceRows) Headers() []string {
	return []string{"SOURCE", "FSTYPE", "MOUNTED AT"}
}

// Rows implements TableRenderer.
func (ir instanceRows) Rows() [][]string {
	rows := make([][]string, 0, len(ir))
	for _, inst := range ir {
		rows = append(rows, []string{
			inst.Source,
			inst.FSType,
			inst.MountedAt.Local().Format(time.RFC3339),
		})
	}
	return rows
}

func runInstances(cmd *cobra.Command, args []string) error {
	if err := cmdutil.RequireToken(); err != nil {
		return err
	}

	list, err := cmdutil.NewClient().ListInstances()
	if err != nil {
		return fmt.Errorf("failed to list instances: %w", err)
	}

	format, err := cmdutil.OutputFormat()
	if err != nil {
		return err
	}
	if format == output.FormatTable {
		if list.Count == 0 {
			fmt.Println("No live instances.")
			return nil
		}
		return output.PrintTable(os.Stdout, instanceRows(list.Instances))
	}
	return cmdutil.PrintResult(list)
}
