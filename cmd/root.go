package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
)

// rootCmd represents the base command for the wassette application.
var rootCmd = &cobra.Command{
	Use:   "wassette",
	Short: "A WebAssembly Component host exposing dynamically loaded components as MCP tools",
	Long: `wassette loads WebAssembly components and exposes each component's
exported functions as tools over the Model Context Protocol, so an MCP
client can call into WebAssembly guests without a per-component adapter.

Components run inside a wazero sandbox whose network, filesystem, and
environment access is governed by a per-component capability policy, which
can be inspected and edited through the host's own built-in MCP tools.`,
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "wassette version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitCodeError)
	}
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
}
