package mcpfacade

import (
	"context"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"wassette/internal/lifecycle"
	"wassette/pkg/logging"
)

const subsystem = "MCPFacade"

// Facade owns the mcp-go server instance, registers the lifecycle
// manager's built-in administrative tools once at startup, and keeps the
// component-derived tool set in sync with every load-component /
// unload-component notification.
type Facade struct {
	manager   *lifecycle.Manager
	mcpServer *mcpserver.MCPServer
	recorder  Recorder

	active map[string]bool // exposed tool name -> currently registered
}

// New builds a facade over manager, registering the built-in administrative
// tools and an initial snapshot of every already-loaded component's tools.
// recorder may be nil, in which case instrumentation is a no-op.
func New(manager *lifecycle.Manager, recorder Recorder) *Facade {
	if recorder == nil {
		recorder = noopRecorder{}
	}

	mcpSrv := mcpserver.NewMCPServer(
		"wassette",
		"0.1.0",
		mcpserver.WithToolCapabilities(true),
	)

	f := &Facade{
		manager:   manager,
		mcpServer: mcpSrv,
		recorder:  recorder,
		active:    make(map[string]bool),
	}

	mcpSrv.AddTools(f.adminTools()...)
	f.refreshComponentTools()
	return f
}

// Serve runs the facade over stdio until ctx is cancelled, watching the
// plugin directory concurrently so files dropped in externally are picked
// up without a restart.
func (f *Facade) Serve(ctx context.Context) error {
	go func() {
		if err := f.manager.Watch(ctx); err != nil && ctx.Err() == nil {
			logging.Warn(subsystem, "plugin directory watch stopped: %v", err)
		}
	}()

	go f.watchToolListChanges(ctx)

	stdioServer := mcpserver.NewStdioServer(f.mcpServer)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// watchToolListChanges subscribes to the manager's tool-list-changed
// notifications and re-synchronizes the exposed component tool set each
// time a load or unload completes.
func (f *Facade) watchToolListChanges(ctx context.Context) {
	sub := f.manager.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub:
			f.refreshComponentTools()
		}
	}
}

// refreshComponentTools diffs the manager's current component tool set
// against what is currently registered with the mcp-go server, adding new
// tools and removing tools whose owning component is gone. Built-in
// administrative tools are never touched here.
func (f *Facade) refreshComponentTools() {
	components := f.manager.ListComponents()

	desired := make(map[string]mcpserver.ServerTool)
	for _, c := range components {
		for _, tool := range c.Schema.Tools {
			desired[tool.Name] = f.componentServerTool(tool.Name)
		}
	}

	var toAdd []mcpserver.ServerTool
	for name, st := range desired {
		if !f.active[name] {
			toAdd = append(toAdd, st)
		}
	}

	var toRemove []string
	for name := range f.active {
		if _, ok := desired[name]; !ok {
			toRemove = append(toRemove, name)
		}
	}

	if len(toRemove) > 0 {
		f.mcpServer.DeleteTools(toRemove...)
		for _, name := range toRemove {
			delete(f.active, name)
		}
	}
	if len(toAdd) > 0 {
		f.mcpServer.AddTools(toAdd...)
		for name := range desired {
			if !f.active[name] {
				f.active[name] = true
			}
		}
	}
}

// componentServerTool looks up toolName's current schema fresh at
// registration time (schemas don't change across a replace-load of the
// same identity in ways that would require re-deriving this per call) and
// wires its handler through the lifecycle manager's ExecuteToolCall.
func (f *Facade) componentServerTool(toolName string) mcpserver.ServerTool {
	var descriptor struct {
		description string
		inputSchema map[string]interface{}
	}
	for _, c := range f.manager.ListComponents() {
		for _, tool := range c.Schema.Tools {
			if tool.Name == toolName {
				descriptor.description = tool.Description
				descriptor.inputSchema = tool.InputSchema
				break
			}
		}
	}

	return mcpserver.ServerTool{
		Tool: mcp.Tool{
			Name:        toolName,
			Description: descriptor.description,
			InputSchema: toMCPInputSchema(descriptor.inputSchema),
		},
		Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			argsJSON, err := marshalArguments(req)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			out, err := f.manager.ExecuteToolCall(ctx, toolName, argsJSON)
			if err != nil {
				f.recorder.ToolCallFailed(toolName, errorKind(err))
				return mcp.NewToolResultError(fmt.Sprintf("[%s] %v", errorKind(err), err)), nil
			}
			f.recorder.ToolCallSucceeded(toolName)
			return mcp.NewToolResultText(string(out)), nil
		},
	}
}

// toMCPInputSchema adapts a synthesized JSON-Schema object (always
// {"type":"object","properties":...,"required":...}) into mcp-go's typed
// ToolInputSchema. Property values remain arbitrary JSON-Schema blobs,
// including ones the flat struct wouldn't otherwise model on its own
// (oneOf, anyOf, nested objects), since Properties is untyped.
func toMCPInputSchema(s map[string]interface{}) mcp.ToolInputSchema {
	out := mcp.ToolInputSchema{Type: "object"}
	if s == nil {
		return out
	}
	if props, ok := s["properties"].(map[string]interface{}); ok {
		out.Properties = props
	}
	if required, ok := s["required"].([]string); ok {
		out.Required = required
	}
	return out
}
