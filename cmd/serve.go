package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"wassette/internal/app"
)

// serveDebug enables verbose logging across the host.
var serveDebug bool

// serveYolo disables per-component capability enforcement for network and
// environment access. When enabled, every tool call may reach any outbound
// host and every host environment variable; storage access still follows
// each component's policy.
var serveYolo bool

// servePluginDir overrides the default plugin directory.
var servePluginDir string

// serveMetricsAddr, when set, starts a Prometheus /metrics endpoint on
// this address.
var serveMetricsAddr string

// serveCmd starts the MCP host: it loads cached components from the
// plugin directory, serves the MCP protocol over stdio, and watches the
// plugin directory for files dropped in externally.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the wassette MCP host over stdio",
	Long: `Starts the wassette MCP host, serving the Model Context Protocol over
stdin/stdout. Any component binaries already cached in the plugin
directory are loaded at startup; the plugin directory is watched
afterward so components dropped in externally are picked up without a
restart.

Component capability policies are stored alongside each component's
cached binary as <id>.policy.yaml. A component with no policy file runs
under default-deny: no network, filesystem, or environment access until
one of the host's grant-*-permission tools is called.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	pluginDir := servePluginDir
	if pluginDir == "" {
		dir, err := defaultPluginDir()
		if err != nil {
			return fmt.Errorf("resolving default plugin directory: %w", err)
		}
		pluginDir = dir
	}
	if err := os.MkdirAll(pluginDir, 0o755); err != nil {
		return fmt.Errorf("creating plugin directory %s: %w", pluginDir, err)
	}

	cfg := app.NewConfig(pluginDir, serveDebug, serveYolo, serveMetricsAddr)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	application, err := app.NewApplication(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return application.Run(ctx)
}

// defaultPluginDir returns the OS-appropriate user data directory for
// cached component binaries and policies, creating no directories itself.
func defaultPluginDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "wassette", "components"), nil
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging")
	serveCmd.Flags().BoolVar(&serveYolo, "yolo", false, "Disable capability enforcement for network and environment access (use with caution)")
	serveCmd.Flags().StringVar(&servePluginDir, "plugin-dir", "", "Directory for cached component binaries and policies (default: OS user data directory)")
	serveCmd.Flags().StringVar(&serveMetricsAddr, "metrics-addr", "", "Address to serve Prometheus metrics on, e.g. :9090 (disabled if empty)")
}
