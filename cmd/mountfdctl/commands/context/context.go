// Package context implements the mountfdctl context subcommands.
package context

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/mountfd/pkg/apiclient"
)

// Cmd is the parent command for mount configuration context management.
var Cmd = &cobra.Command{
	Use:     "context",
	Aliases: []string{"ctx"},
	Short:   "Manage mount configuration contexts",
	Long: `Open, configure, and close mount configuration contexts.

A context is opened for a filesystem type (open) or an existing instance
(pick), configured one parameter at a time (set), and finally asked to
create or reconfigure the filesystem (create / reconfigure). Diagnostic
lines emitted by the driver are drained with log.

Use "mountfdctl context [command] --help" for more information about a command.`,
}

func init() {
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(openCmd)
	Cmd.AddCommand(pickCmd)
	Cmd.AddCommand(setCmd)
	Cmd.AddCommand(createCmd)
	Cmd.AddCommand(reconfigureCmd)
	Cmd.AddCommand(logCmd)
	Cmd.AddCommand(closeCmd)
}

// parseFD parses a descriptor argument.
func parseFD(arg string) (int, error) {
	fd, err := strconv.Atoi(arg)
	if err != nil || fd < 0 {
		return 0, fmt.Errorf("invalid descriptor %q", arg)
	}
	return fd, nil
}

// ContextRows renders context views as a table.
type ContextRows []apiclient.ContextView

// Headers implements TableRenderer.
func (cr ContextRows) Headers() []string {
	return []string{"FD", "FSTYPE", "PURPOSE", "PHASE", "SOURCE", "PENDING", "DROPPED"}
}

// Rows implements TableRenderer.
func (cr ContextRows) Rows() [][]string {
	rows := make([][]string, 0, len(cr))
	for _, c := range cr {
		rows = append(rows, []string{
			strconv.Itoa(c.FD),
			c.FSType,
			c.Purpose,
			c.Phase,
			c.Source,
			strconv.Itoa(c.PendingLogLines),
			strconv.FormatUint(c.DroppedLogLines, 10),
		})
	}
	return rows
}
