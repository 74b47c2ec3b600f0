package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newVersionCmd creates the Cobra command for displaying the application
// version. Wassette's own process is the MCP server, so there is no
// separate server handshake to perform here.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of wassette",
		Long:  "Prints the wassette CLI version injected at build time.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "wassette version %s\n", rootCmd.Version)
		},
	}
}
