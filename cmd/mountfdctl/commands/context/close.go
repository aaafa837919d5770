package context

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/mountfd/cmd/mountfdctl/cmdutil"
)

var closeCmd = &cobra.Command{
	Use:   "close FD",
	Short: "Close a context descriptor",
	Long: `Release the descriptor and drop its reference to the context.

Closing the last descriptor of a context frees the context and its
remaining diagnostic lines. A created instance is not torn down by closing
the context that created it.

Examples:
  mountfdctl context close 3`,
	Args: cobra.ExactArgs(1),
	RunE: runClose,
}

func runClose(cmd *cobra.Command, args []string) error {
	if err := cmdutil.RequireToken(); err != nil {
		return err
	}

	fd, err := parseFD(args[0])
	if err != nil {
		return err
	}

	if err := cmdutil.NewClient().CloseContext(fd); err != nil {
		return err
	}

	fmt.Printf("Closed fd=%d\n", fd)
	return nil
}
