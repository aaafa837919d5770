package context

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/mountfd/cmd/mountfdctl/cmdutil"
	"github.com/marmos91/mountfd/pkg/apiclient"
)

var openCloexec bool

var openCmd = &cobra.Command{
	Use:   "open FSTYPE",
	Short: "Open a new mount configuration context",
	Long: `Open a new mount configuration context for a registered filesystem type.

The context starts in the create-params phase: set parameters with
"context set" and trigger creation with "context create".

Examples:
  # Open a context for the in-memory filesystem
  mountfdctl context open memfs

  # Open with close-on-exec semantics
  mountfdctl context open memfs --cloexec`,
	Args: cobra.ExactArgs(1),
	RunE: runOpen,
}

func init() {
	openCmd.Flags().BoolVar(&openCloexec, "cloexec", false, "Mark the descriptor close-on-exec")
}

func runOpen(cmd *cobra.Command, args []string) error {
	if err := cmdutil.RequireToken(); err != nil {
		return err
	}

	view, err := cmdutil.NewClient().OpenContext(apiclient.OpenContextRequest{
		FSType:  args[0],
		Cloexec: openCloexec,
	})
	if err != nil {
		return fmt.Errorf("failed to open context: %w", err)
	}

	fmt.Printf("Opened context fd=%d fstype=%s phase=%s\n", view.FD, view.FSType, view.Phase)
	return nil
}

var (
	pickCloexec bool
	pickDirFD   int
)

var pickCmd = &cobra.Command{
	Use:   "pick SOURCE",
	Short: "Open a reconfiguration context for an existing instance",
	Long: `Open a mount configuration context targeting an existing filesystem
instance, identified by its source.

The context starts in the reconf-params phase: set parameters with
"context set" and apply them with "context reconfigure".

Examples:
  mountfdctl context pick mem1`,
	Args: cobra.ExactArgs(1),
	RunE: runPick,
}

func init() {
	pickCmd.Flags().BoolVar(&pickCloexec, "cloexec", false, "Mark the descriptor close-on-exec")
	pickCmd.Flags().IntVar(&pickDirFD, "dirfd", -1, "Descriptor anchoring relative resolution (default: server base)")
}

func runPick(cmd *cobra.Command, args []string) error {
	if err := cmdutil.RequireToken(); err != nil {
		return err
	}

	req := apiclient.PickContextRequest{
		Path:    args[0],
		Cloexec: pickCloexec,
	}
	if cmd.Flags().Changed("dirfd") {
		req.DirFD = &pickDirFD
	}

	view, err := cmdutil.NewClient().PickContext(req)
	if err != nil {
		return fmt.Errorf("failed to pick instance: %w", err)
	}

	fmt.Printf("Opened context fd=%d fstype=%s source=%s phase=%s\n", view.FD, view.FSType, view.Source, view.Phase)
	return nil
}
