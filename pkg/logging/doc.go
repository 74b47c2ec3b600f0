// Package logging provides the structured logging system wassette uses for
// CLI output, built on top of log/slog.
//
// # Log Levels
//   - **Debug**: Detailed information for debugging and development
//   - **Info**: General informational messages about host operation
//   - **Warn**: Warning messages that indicate potential issues
//   - **Error**: Error messages for failures and exceptional conditions
//
// # Structured Logging
//
// All log entries include:
//   - Timestamp with millisecond precision
//   - Log level (Debug, Info, Warn, Error)
//   - Subsystem identifier for categorization
//   - Message content with optional formatting
//   - Optional error information
//
// Since wassette serves the MCP protocol over stdio, log output always goes
// to a writer other than stdout (typically stderr) to avoid corrupting the
// protocol stream.
//
// # Usage
//
//	import "wassette/pkg/logging"
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Bootstrap", "plugin directory: %s", pluginDir)
//	logging.Debug("Lifecycle", "compiled component %s", identity)
//	logging.Warn("MCPFacade", "plugin directory watch stopped: %v", err)
//	logging.Error("Bootstrap", err, "failed to construct lifecycle manager")
//
// # Subsystem Organization
//
// Logs are organized by subsystem to enable filtering and categorization:
//
//   - **Bootstrap**: application wiring and shutdown
//   - **Lifecycle**: component load, unload, rehydration, and tool calls
//   - **MCPFacade**: MCP tool registration and the stdio transport
//   - **PolicyRegistry**: capability policy persistence and rehydration
//   - **fetch**: artifact fetching and staging
//
// # Audit Events
//
// Security-sensitive operations (component load/unload, policy
// attach/detach, permission grants and revokes) are additionally recorded
// through Audit, which carries a fixed set of fields (Action, Outcome,
// Target, Details, Error) suited to external audit log collection, separate
// from the free-form Debug/Info/Warn/Error stream.
//
// # Thread Safety
//
// The logging system is safe for concurrent use from multiple goroutines.
package logging
