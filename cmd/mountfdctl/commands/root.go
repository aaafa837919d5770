// Package commands implements the CLI commands for the mountfdctl client.
package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/mountfd/cmd/mountfdctl/cmdutil"
	ctxcmd "github.com/marmos91/mountfd/cmd/mountfdctl/commands/context"
	fscmd "github.com/marmos91/mountfd/cmd/mountfdctl/commands/filesystem"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "mountfdctl",
	Short: "mountfd control - Remote management client",
	Long: `mountfdctl is the command-line client for driving a mountfd daemon remotely.

Use this tool to open mount configuration contexts, set parameters, trigger
creation or reconfiguration, and drain per-context diagnostic logs through
the mountfd REST API.

Tokens are minted on the server with "mountfd token" and passed via --token
or the ` + cmdutil.EnvToken + ` environment variable.

Use "mountfdctl [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Sync flags to cmdutil.Flags for subcommands
		cmdutil.Flags.ServerURL, _ = cmd.Flags().GetString("server")
		cmdutil.Flags.Token, _ = cmd.Flags().GetString("token")
		cmdutil.Flags.Output, _ = cmd.Flags().GetString("output")
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().String("server", "", "Server URL (default: "+cmdutil.DefaultServerURL+" or $"+cmdutil.EnvServer+")")
	rootCmd.PersistentFlags().String("token", "", "Bearer token (default: $"+cmdutil.EnvToken+")")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "Output format (table|json|yaml)")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(ctxcmd.Cmd)
	rootCmd.AddCommand(fscmd.Cmd)
	rootCmd.AddCommand(completionCmd)

	// Hide the default completion command (we provide our own)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// PrintErr prints an error message to stderr.
func PrintErr(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
}

// Exit prints an error and exits with code 1.
func Exit(format string, args ...any) {
	PrintErr(format, args...)
	os.Exit(1)
}
