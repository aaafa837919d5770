package context

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/mountfd/cmd/mountfdctl/cmdutil"
	"github.com/marmos91/mountfd/pkg/apiclient"
)

var (
	setCommand    string
	setBinaryFile string
	setAux        int
)

var setCmd = &cobra.Command{
	Use:   "set FD KEY [VALUE]",
	Short: "Set one configuration parameter",
	Long: `Apply one configuration command to the context bound to FD.

Without flags the command is inferred: a bare KEY becomes a flag parameter
(set_flag), KEY VALUE becomes a string parameter (set_string). Use
--command to select another command explicitly, --binary-file to send a
file's contents as a binary blob (set_binary), and --aux for commands that
take an auxiliary integer (set_fd, set_binary size override).

Examples:
  # Flag parameter
  mountfdctl context set 3 ro

  # String parameter
  mountfdctl context set 3 source mem1

  # Binary parameter from a file
  mountfdctl context set 3 keyring --binary-file ./keyring.bin

  # Explicit command
  mountfdctl context set 3 root / --command set_path`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runSet,
}

func init() {
	setCmd.Flags().StringVar(&setCommand, "command", "", "Configuration command (set_flag|set_string|set_binary|set_path|set_path_empty|set_fd)")
	setCmd.Flags().StringVar(&setBinaryFile, "binary-file", "", "File whose contents are sent as a binary blob")
	setCmd.Flags().IntVar(&setAux, "aux", 0, "Auxiliary integer argument")
}

func runSet(cmd *cobra.Command, args []string) error {
	if err := cmdutil.RequireToken(); err != nil {
		return err
	}

	fd, err := parseFD(args[0])
	if err != nil {
		return err
	}

	req := apiclient.ConfigureRequest{
		Key: args[1],
		Aux: setAux,
	}

	switch {
	case setBinaryFile != "":
		data, err := os.ReadFile(setBinaryFile)
		if err != nil {
			return fmt.Errorf("failed to read binary file: %w", err)
		}
		req.Command = "set_binary"
		req.ValueBase64 = base64.StdEncoding.EncodeToString(data)
	case len(args) == 3:
		req.Command = "set_string"
		value := args[2]
		req.Value = &value
	default:
		req.Command = "set_flag"
	}

	if setCommand != "" {
		req.Command = setCommand
	}

	view, err := cmdutil.NewClient().Configure(fd, req)
	if err != nil {
		return err
	}

	fmt.Printf("Set %s on fd=%d (phase=%s)\n", req.Key, fd, view.Phase)
	return nil
}
