package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/mountfd/cmd/mountfdctl/cmdutil"
	"github.com/marmos91/mountfd/internal/cli/output"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status",
	Long: `Display the status of the target mountfd daemon.

This command checks the health and readiness endpoints and displays
uptime and subsystem counters. It requires no authentication.

Examples:
  # Check status of the default server
  mountfdctl status

  # Check a remote server, output as JSON
  mountfdctl status --server http://fs1:8080 -o json`,
	RunE: runStatus,
}

// ServerStatus represents the server status for display.
type ServerStatus struct {
	Server          string `json:"server" yaml:"server"`
	Status          string `json:"status" yaml:"status"`
	Healthy         bool   `json:"healthy" yaml:"healthy"`
	Service         string `json:"service,omitempty" yaml:"service,omitempty"`
	StartedAt       string `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	Uptime          string `json:"uptime,omitempty" yaml:"uptime,omitempty"`
	FilesystemTypes int    `json:"filesystem_types" yaml:"filesystem_types"`
	Instances       int    `json:"instances" yaml:"instances"`
	OpenDescriptors int    `json:"open_descriptors" yaml:"open_descriptors"`
	Error           string `json:"error,omitempty" yaml:"error,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	client := cmdutil.NewClient()

	status := ServerStatus{
		Server:  cmdutil.ServerURL(),
		Status:  "unreachable",
		Healthy: false,
	}

	health, err := client.Health()
	if err != nil {
		status.Error = err.Error()
	} else {
		status.Status = health.Status
		status.Healthy = health.Status == "healthy"
		status.Service = health.Service
		status.StartedAt = health.StartedAt
		status.Uptime = health.Uptime

		if ready, err := client.Ready(); err == nil {
			status.FilesystemTypes = ready.FilesystemTypes
			status.Instances = ready.Instances
			status.OpenDescriptors = ready.OpenDescriptors
		}
	}

	format, err := cmdutil.OutputFormat()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, status)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, status)
	default:
		printStatusTable(status)
	}

	return nil
}

func printStatusTable(status ServerStatus) {
	fmt.Println()
	fmt.Println("mountfd Server Status")
	fmt.Println("=====================")
	fmt.Println()
	fmt.Printf("  Server:       %s\n", status.Server)

	if status.Healthy {
		fmt.Printf("  Status:       \033[32m● %s\033[0m\n", status.Status)
	} else if status.Status == "unreachable" {
		fmt.Printf("  Status:       \033[31m○ %s\033[0m\n", status.Status)
	} else {
		fmt.Printf("  Status:       \033[33m● %s\033[0m\n", status.Status)
	}

	if status.Service != "" {
		fmt.Printf("  Service:      %s\n", status.Service)
	}
	if status.StartedAt != "" {
		fmt.Printf("  Started:      %s\n", status.StartedAt)
	}
	if status.Uptime != "" {
		fmt.Printf("  Uptime:       %s\n", status.Uptime)
	}
	if status.Healthy {
		fmt.Printf("  FS types:     %d\n", status.FilesystemTypes)
		fmt.Printf("  Instances:    %d\n", status.Instances)
		fmt.Printf("  Descriptors:  %d\n", status.OpenDescriptors)
	}
	if status.Error != "" {
		fmt.Printf("  Error:        %s\n", status.Error)
	}
	fmt.Println()
}
