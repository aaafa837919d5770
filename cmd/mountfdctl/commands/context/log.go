package context

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/mountfd/cmd/mountfdctl/cmdutil"
	"github.com/marmos91/mountfd/internal/cli/output"
)

var logCmd = &cobra.Command{
	Use:   "log FD",
	Short: "Drain the context's diagnostic log",
	Long: `Drain all pending diagnostic lines from the context bound to FD.

Draining consumes the lines: a second drain returns nothing new. Each line
carries a severity prefix ("e " error, "w " warning, "i " info).

Examples:
  mountfdctl context log 3
  mountfdctl context log 3 -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runLog,
}

func runLog(cmd *cobra.Command, args []string) error {
	if err := cmdutil.RequireToken(); err != nil {
		return err
	}

	fd, err := parseFD(args[0])
	if err != nil {
		return err
	}

	drain, err := cmdutil.NewClient().DrainLog(fd)
	if err != nil {
		return err
	}

	format, err := cmdutil.OutputFormat()
	if err != nil {
		return err
	}
	if format != output.FormatTable {
		return cmdutil.PrintResult(drain)
	}

	if len(drain.Lines) == 0 {
		fmt.Println("No pending diagnostic lines.")
	}
	for _, line := range drain.Lines {
		fmt.Println(line)
	}
	if drain.Dropped > 0 {
		fmt.Printf("(%d line(s) dropped because the log was full)\n", drain.Dropped)
	}
	return nil
}
