// Package cmdutil provides shared helpers for mountfdctl subcommands.
package cmdutil

import (
	"fmt"
	"os"

	"github.com/marmos91/mountfd/internal/cli/output"
	"github.com/marmos91/mountfd/pkg/apiclient"
)

// Environment variables consulted when the corresponding flag is unset.
const (
	EnvServer = "MOUNTFDCTL_SERVER"
	EnvToken  = "MOUNTFDCTL_TOKEN"
)

// DefaultServerURL is used when neither flag nor environment sets a server.
const DefaultServerURL = "http://localhost:8080"

// GlobalFlags holds the values of the root command's persistent flags,
// synced before every subcommand run.
type GlobalFlags struct {
	ServerURL string
	Token     string
	Output    string
}

// Flags is the shared flag state for all subcommands.
var Flags GlobalFlags

// ServerURL resolves the target server from flag, environment, or default.
func ServerURL() string {
	if Flags.ServerURL != "" {
		return Flags.ServerURL
	}
	if env := os.Getenv(EnvServer); env != "" {
		return env
	}
	return DefaultServerURL
}

// Token resolves the bearer token from flag or environment. May be empty;
// health endpoints work unauthenticated.
func Token() string {
	if Flags.Token != "" {
		return Flags.Token
	}
	return os.Getenv(EnvToken)
}

// NewClient creates an API client from the global flags.
func NewClient() *apiclient.Client {
	client := apiclient.New(ServerURL())
	if token := Token(); token != "" {
		client.SetToken(token)
	}
	return client
}

// OutputFormat parses the --output flag into an output.Format.
func OutputFormat() (output.Format, error) {
	return output.ParseFormat(Flags.Output)
}

// PrintResult writes data to stdout in the format selected by --output.
func PrintResult(data any) error {
	format, err := OutputFormat()
	if err != nil {
		return err
	}
	return output.Print(os.Stdout, format, data)
}

// RequireToken returns an error when no bearer token is configured.
func RequireToken() error {
	if Token() == "" {
		return fmt.Errorf("no bearer token configured; pass --token or set %s\n"+
			"Mint one on the server with: mountfd token --username <name> --role <admin|viewer>", EnvToken)
	}
	return nil
}
