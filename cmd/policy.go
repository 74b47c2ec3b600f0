package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Inspect and modify a component's capability policy",
	Long: `The policy commands open a Lifecycle Manager rooted at the plugin
directory, perform one policy operation, and exit, the same way the
component commands do.`,
}

var policyGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Print a component's capability policy as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runPolicyGet,
}

var policyGrantCmd = &cobra.Command{
	Use:   "grant ID KIND VALUE...",
	Short: "Grant a capability: storage URI [read,write]|network HOST|env KEY",
	Long: `Grants a capability to a component.

  wassette policy grant ID storage fs:///data read,write
  wassette policy grant ID network api.example.com
  wassette policy grant ID env API_KEY`,
	Args: cobra.MinimumNArgs(2),
	RunE: runPolicyGrant,
}

var policyRevokeCmd = &cobra.Command{
	Use:   "revoke ID KIND VALUE",
	Short: "Revoke a capability: storage URI|network HOST|env KEY",
	Args:  cobra.ExactArgs(3),
	RunE:  runPolicyRevoke,
}

var policyResetCmd = &cobra.Command{
	Use:   "reset ID",
	Short: "Clear a component's policy to default-deny without unloading it",
	Args:  cobra.ExactArgs(1),
	RunE:  runPolicyReset,
}

func runPolicyGet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	manager, closeManager, err := openComponentManager(ctx)
	if err != nil {
		return err
	}
	defer closeManager()

	info := manager.GetPolicy(args[0])
	out, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling policy: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func runPolicyGrant(cmd *cobra.Command, args []string) error {
	id, kind := args[0], args[1]
	rest := args[2:]
	switch kind {
	case "storage":
		if len(rest) != 2 {
			return fmt.Errorf("usage: policy grant ID storage URI read,write")
		}
	case "network", "env":
		if len(rest) != 1 {
			return fmt.Errorf("usage: policy grant ID %s VALUE", kind)
		}
	default:
		return fmt.Errorf("unknown capability kind %q: want storage, network, or env", kind)
	}

	ctx := cmd.Context()
	manager, closeManager, err := openComponentManager(ctx)
	if err != nil {
		return err
	}
	defer closeManager()

	switch kind {
	case "storage":
		access := strings.Split(rest[1], ",")
		if err := manager.GrantStoragePermission(id, rest[0], access); err != nil {
			return fmt.Errorf("granting storage permission: %w", err)
		}
	case "network":
		if err := manager.GrantNetworkPermission(id, rest[0]); err != nil {
			return fmt.Errorf("granting network permission: %w", err)
		}
	case "env":
		if err := manager.GrantEnvironmentVariablePermission(id, rest[0]); err != nil {
			return fmt.Errorf("granting environment permission: %w", err)
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "granted %s permission to %s\n", kind, id)
	return nil
}

func runPolicyRevoke(cmd *cobra.Command, args []string) error {
	id, kind, value := args[0], args[1], args[2]
	if kind != "storage" && kind != "network" && kind != "env" {
		return fmt.Errorf("unknown capability kind %q: want storage, network, or env", kind)
	}

	ctx := cmd.Context()
	manager, closeManager, err := openComponentManager(ctx)
	if err != nil {
		return err
	}
	defer closeManager()

	var revokeErr error
	switch kind {
	case "storage":
		revokeErr = manager.RevokeStoragePermission(id, value)
	case "network":
		revokeErr = manager.RevokeNetworkPermission(id, value)
	case "env":
		revokeErr = manager.RevokeEnvironmentVariablePermission(id, value)
	}
	if revokeErr != nil {
		return fmt.Errorf("revoking %s permission: %w", kind, revokeErr)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "revoked %s permission from %s\n", kind, id)
	return nil
}

func runPolicyReset(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	manager, closeManager, err := openComponentManager(ctx)
	if err != nil {
		return err
	}
	defer closeManager()

	if err := manager.ResetPermission(args[0]); err != nil {
		return fmt.Errorf("resetting policy: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "reset policy for %s\n", args[0])
	return nil
}

func init() {
	rootCmd.AddCommand(policyCmd)
	policyCmd.PersistentFlags().StringVar(&componentPluginDir, "plugin-dir", "", "Directory for cached component binaries and policies (default: OS user data directory)")
	policyCmd.PersistentFlags().BoolVar(&componentYolo, "yolo", false, "Disable capability enforcement for network and environment access (use with caution)")
	policyCmd.AddCommand(policyGetCmd, policyGrantCmd, policyRevokeCmd, policyResetCmd)
}
