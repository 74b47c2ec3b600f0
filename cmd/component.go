package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"wassette/internal/lifecycle"
)

// componentPluginDir and componentYolo are shared by every component
// subcommand, since each one opens its own short-lived Lifecycle Manager
// against the same plugin directory rather than talking to a running
// serve process.
var componentPluginDir string
var componentYolo bool

var componentCmd = &cobra.Command{
	Use:   "component",
	Short: "Load, unload, and list components directly against the plugin directory",
	Long: `The component commands open a Lifecycle Manager rooted at the plugin
directory, perform one operation, and exit. They do not talk to a
running "wassette serve" process; they operate on the same cached
binaries and policy files that serve would load at its own startup,
which makes them useful for local testing and CI but unsafe to run
concurrently with a live serve process against the same directory.`,
}

var componentLoadCmd = &cobra.Command{
	Use:   "load SOURCE",
	Short: "Fetch and load a component from a file:// or oci:// source URI",
	Args:  cobra.ExactArgs(1),
	RunE:  runComponentLoad,
}

var componentUnloadDetachPolicy bool

var componentUnloadCmd = &cobra.Command{
	Use:   "unload ID",
	Short: "Unload a previously loaded component by its identity",
	Args:  cobra.ExactArgs(1),
	RunE:  runComponentUnload,
}

var componentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List components cached in the plugin directory",
	Args:  cobra.NoArgs,
	RunE:  runComponentList,
}

func runComponentLoad(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	manager, closeManager, err := openComponentManager(ctx)
	if err != nil {
		return err
	}
	defer closeManager()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Writer = os.Stderr
	s.Suffix = fmt.Sprintf(" Loading %s...", args[0])
	s.Start()

	result, err := manager.Load(ctx, args[0])
	if err != nil {
		s.FinalMSG = text.FgRed.Sprintf("Failed to load %s: %v\n", args[0], err)
		s.Stop()
		return err
	}
	s.FinalMSG = text.FgGreen.Sprintf("Loaded %s (%s)\n", result.ID, result.Status)
	s.Stop()
	return nil
}

func runComponentUnload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	manager, closeManager, err := openComponentManager(ctx)
	if err != nil {
		return err
	}
	defer closeManager()

	if err := manager.Unload(ctx, args[0], componentUnloadDetachPolicy); err != nil {
		return fmt.Errorf("unloading %s: %w", args[0], err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), text.FgGreen.Sprintf("Unloaded %s", args[0]))
	return nil
}

func runComponentList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	manager, closeManager, err := openComponentManager(ctx)
	if err != nil {
		return err
	}
	defer closeManager()

	components := manager.ListComponents()

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("ID"),
		text.FgHiCyan.Sprint("TOOLS"),
	})
	for _, c := range components {
		t.AppendRow(table.Row{c.Identity, len(c.Schema.Tools)})
	}
	t.Render()
	fmt.Fprintf(cmd.OutOrStdout(), "\n%s %d component(s)\n", text.FgHiBlue.Sprint("Total:"), len(components))
	return nil
}

// openComponentManager resolves the plugin directory and constructs a
// Lifecycle Manager against it, returning a closer that releases the
// underlying engine.
func openComponentManager(ctx context.Context) (*lifecycle.Manager, func(), error) {
	pluginDir := componentPluginDir
	if pluginDir == "" {
		dir, err := defaultPluginDir()
		if err != nil {
			return nil, nil, fmt.Errorf("resolving default plugin directory: %w", err)
		}
		pluginDir = dir
	}
	if err := os.MkdirAll(pluginDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating plugin directory %s: %w", pluginDir, err)
	}

	manager, err := lifecycle.NewManager(ctx, pluginDir, componentYolo)
	if err != nil {
		return nil, nil, fmt.Errorf("constructing lifecycle manager: %w", err)
	}
	closer := func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = manager.Close(closeCtx)
	}
	return manager, closer, nil
}

func init() {
	rootCmd.AddCommand(componentCmd)
	componentCmd.PersistentFlags().StringVar(&componentPluginDir, "plugin-dir", "", "Directory for cached component binaries and policies (default: OS user data directory)")
	componentCmd.PersistentFlags().BoolVar(&componentYolo, "yolo", false, "Disable capability enforcement for network and environment access (use with caution)")
	componentUnloadCmd.Flags().BoolVar(&componentUnloadDetachPolicy, "detach-policy", false, "Also delete the component's policy file instead of preserving it")
	componentCmd.AddCommand(componentLoadCmd, componentUnloadCmd, componentListCmd)
}
