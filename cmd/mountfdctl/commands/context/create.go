package context

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/mountfd/cmd/mountfdctl/cmdutil"
	"github.com/marmos91/mountfd/pkg/apiclient"
)

var createCmd = &cobra.Command{
	Use:   "create FD",
	Short: "Create the filesystem instance",
	Long: `Trigger creation of the filesystem instance from the parameters
accumulated in the context bound to FD.

On success the context moves to the awaiting-mount phase. On failure the
context is dead; drain its log for the driver's diagnostics and close it.

Examples:
  mountfdctl context create 3`,
	Args: cobra.ExactArgs(1),
	RunE: runTrigger("cmd_create", "Created filesystem instance"),
}

var reconfigureCmd = &cobra.Command{
	Use:   "reconfigure FD",
	Short: "Apply pending reconfiguration",
	Long: `Apply the parameters accumulated in the context bound to FD to the
instance it was picked from.

Examples:
  mountfdctl context reconfigure 3`,
	Args: cobra.ExactArgs(1),
	RunE: runTrigger("cmd_reconfigure", "Reconfigured filesystem instance"),
}

// runTrigger returns a RunE that sends a parameterless trigger command.
func runTrigger(command, successMsg string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := cmdutil.RequireToken(); err != nil {
			return err
		}

		fd, err := parseFD(args[0])
		if err != nil {
			return err
		}

		view, err := cmdutil.NewClient().Configure(fd, apiclient.ConfigureRequest{Command: command})
		if err != nil {
			return err
		}

		fmt.Printf("%s (fd=%d phase=%s)\n", successMsg, fd, view.Phase)
		if view.PendingLogLines > 0 {
			fmt.Printf("%d diagnostic line(s) pending; drain with: mountfdctl context log %d\n", view.PendingLogLines, fd)
		}
		return nil
	}
}
