package mcpfacade

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// adminTools returns the eleven built-in administrative tools the spec
// reserves: a guest component exporting one of these names is rejected at
// load time with DuplicateTool.
func (f *Facade) adminTools() []mcpserver.ServerTool {
	return []mcpserver.ServerTool{
		f.loadComponentTool(),
		f.unloadComponentTool(),
		f.listComponentsTool(),
		f.getPolicyTool(),
		f.grantStorageTool(),
		f.grantNetworkTool(),
		f.grantEnvTool(),
		f.revokeStorageTool(),
		f.revokeNetworkTool(),
		f.revokeEnvTool(),
		f.resetPermissionTool(),
	}
}

func objectSchema(properties map[string]interface{}, required ...string) mcp.ToolInputSchema {
	return mcp.ToolInputSchema{Type: "object", Properties: properties, Required: required}
}

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description}
}

func stringArrayProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}, "description": description}
}

func boolProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "boolean", "description": description}
}

func (f *Facade) loadComponentTool() mcpserver.ServerTool {
	return mcpserver.ServerTool{
		Tool: mcp.Tool{
			Name:        "load-component",
			Description: "Fetches and loads a WebAssembly component from a file:// or oci:// source, synthesizing MCP tools from its exports.",
			InputSchema: objectSchema(map[string]interface{}{
				"source_uri": stringProp("file:// or oci:// URI identifying the component."),
			}, "source_uri"),
		},
		Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, err := stringArgs(req, "source_uri")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			result, err := f.manager.Load(ctx, args["source_uri"])
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("[%s] %v", errorKind(err), err)), nil
			}
			f.recorder.ComponentLoaded()
			return jsonResult(map[string]string{"id": result.ID, "status": result.Status})
		},
	}
}

func (f *Facade) unloadComponentTool() mcpserver.ServerTool {
	return mcpserver.ServerTool{
		Tool: mcp.Tool{
			Name:        "unload-component",
			Description: "Removes a loaded component and deletes its cached binary. The component's policy file is preserved unless detach_policy is set.",
			InputSchema: objectSchema(map[string]interface{}{
				"id":            stringProp("Component identity, as returned by load-component."),
				"detach_policy": boolProp("When true, also deletes the component's policy file instead of preserving it."),
			}, "id"),
		},
		Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, err := stringArgs(req, "id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			detachPolicy, _ := argumentsMap(req)["detach_policy"].(bool)
			if err := f.manager.Unload(ctx, args["id"], detachPolicy); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("[%s] %v", errorKind(err), err)), nil
			}
			f.recorder.ComponentUnloaded()
			return jsonResult(map[string]string{"id": args["id"], "status": "unloaded"})
		},
	}
}

func (f *Facade) listComponentsTool() mcpserver.ServerTool {
	return mcpserver.ServerTool{
		Tool: mcp.Tool{
			Name:        "list-components",
			Description: "Lists every currently loaded component with its identity and tool count.",
			InputSchema: objectSchema(nil),
		},
		Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			type summary struct {
				ID        string `json:"id"`
				ToolCount int    `json:"tools_count"`
			}
			components := f.manager.ListComponents()
			out := make([]summary, 0, len(components))
			for _, c := range components {
				out = append(out, summary{ID: c.Identity, ToolCount: c.ToolCount})
			}
			return jsonResult(map[string]interface{}{"components": out})
		},
	}
}

func (f *Facade) getPolicyTool() mcpserver.ServerTool {
	return mcpserver.ServerTool{
		Tool: mcp.Tool{
			Name:        "get-policy",
			Description: "Returns a component's parsed capability policy plus load metadata, when present.",
			InputSchema: objectSchema(map[string]interface{}{
				"id": stringProp("Component identity."),
			}, "id"),
		},
		Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, err := stringArgs(req, "id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			info := f.manager.GetPolicy(args["id"])
			return jsonResult(info)
		},
	}
}

func (f *Facade) grantStorageTool() mcpserver.ServerTool {
	return mcpserver.ServerTool{
		Tool: mcp.Tool{
			Name:        "grant-storage-permission",
			Description: "Grants a component read and/or write access to an fs:// URI.",
			InputSchema: objectSchema(map[string]interface{}{
				"id":     stringProp("Component identity."),
				"uri":    stringProp("fs:// URI, optionally suffixed with /** for recursive access."),
				"access": stringArrayProp(`Subset of ["read","write"].`),
			}, "id", "uri", "access"),
		},
		Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, err := stringArgs(req, "id", "uri")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			access, err := stringSliceArg(req, "access")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if err := f.manager.GrantStoragePermission(args["id"], args["uri"], access); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("[%s] %v", errorKind(err), err)), nil
			}
			return jsonResult(map[string]string{"id": args["id"], "status": "granted"})
		},
	}
}

func (f *Facade) grantNetworkTool() mcpserver.ServerTool {
	return mcpserver.ServerTool{
		Tool: mcp.Tool{
			Name:        "grant-network-permission",
			Description: "Grants a component outbound network access to a host.",
			InputSchema: objectSchema(map[string]interface{}{
				"id":   stringProp("Component identity."),
				"host": stringProp("Outbound hostname to allow."),
			}, "id", "host"),
		},
		Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, err := stringArgs(req, "id", "host")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if err := f.manager.GrantNetworkPermission(args["id"], args["host"]); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("[%s] %v", errorKind(err), err)), nil
			}
			return jsonResult(map[string]string{"id": args["id"], "status": "granted"})
		},
	}
}

func (f *Facade) grantEnvTool() mcpserver.ServerTool {
	return mcpserver.ServerTool{
		Tool: mcp.Tool{
			Name:        "grant-environment-variable-permission",
			Description: "Grants a component visibility into a host environment variable.",
			InputSchema: objectSchema(map[string]interface{}{
				"id":  stringProp("Component identity."),
				"key": stringProp("Environment variable name to allow."),
			}, "id", "key"),
		},
		Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, err := stringArgs(req, "id", "key")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if err := f.manager.GrantEnvironmentVariablePermission(args["id"], args["key"]); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("[%s] %v", errorKind(err), err)), nil
			}
			return jsonResult(map[string]string{"id": args["id"], "status": "granted"})
		},
	}
}

func (f *Facade) revokeStorageTool() mcpserver.ServerTool {
	return mcpserver.ServerTool{
		Tool: mcp.Tool{
			Name:        "revoke-storage-permission",
			Description: "Revokes all access bits a component holds for an fs:// URI.",
			InputSchema: objectSchema(map[string]interface{}{
				"id":  stringProp("Component identity."),
				"uri": stringProp("fs:// URI to revoke."),
			}, "id", "uri"),
		},
		Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, err := stringArgs(req, "id", "uri")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if err := f.manager.RevokeStoragePermission(args["id"], args["uri"]); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("[%s] %v", errorKind(err), err)), nil
			}
			return jsonResult(map[string]string{"id": args["id"], "status": "revoked"})
		},
	}
}

func (f *Facade) revokeNetworkTool() mcpserver.ServerTool {
	return mcpserver.ServerTool{
		Tool: mcp.Tool{
			Name:        "revoke-network-permission",
			Description: "Revokes a component's outbound network access to a host.",
			InputSchema: objectSchema(map[string]interface{}{
				"id":   stringProp("Component identity."),
				"host": stringProp("Outbound hostname to revoke."),
			}, "id", "host"),
		},
		Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, err := stringArgs(req, "id", "host")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if err := f.manager.RevokeNetworkPermission(args["id"], args["host"]); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("[%s] %v", errorKind(err), err)), nil
			}
			return jsonResult(map[string]string{"id": args["id"], "status": "revoked"})
		},
	}
}

func (f *Facade) revokeEnvTool() mcpserver.ServerTool {
	return mcpserver.ServerTool{
		Tool: mcp.Tool{
			Name:        "revoke-environment-variable-permission",
			Description: "Revokes a component's visibility into a host environment variable.",
			InputSchema: objectSchema(map[string]interface{}{
				"id":  stringProp("Component identity."),
				"key": stringProp("Environment variable name to revoke."),
			}, "id", "key"),
		},
		Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, err := stringArgs(req, "id", "key")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if err := f.manager.RevokeEnvironmentVariablePermission(args["id"], args["key"]); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("[%s] %v", errorKind(err), err)), nil
			}
			return jsonResult(map[string]string{"id": args["id"], "status": "revoked"})
		},
	}
}

func (f *Facade) resetPermissionTool() mcpserver.ServerTool {
	return mcpserver.ServerTool{
		Tool: mcp.Tool{
			Name:        "reset-permission",
			Description: "Clears a component's policy to default-deny without unloading it.",
			InputSchema: objectSchema(map[string]interface{}{
				"id": stringProp("Component identity."),
			}, "id"),
		},
		Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, err := stringArgs(req, "id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if err := f.manager.ResetPermission(args["id"]); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("[%s] %v", errorKind(err), err)), nil
			}
			return jsonResult(map[string]string{"id": args["id"], "status": "reset"})
		},
	}
}

// argumentsMap extracts a tool call's arguments as a plain map, treating a
// missing or non-object Arguments value as an empty call.
func argumentsMap(req mcp.CallToolRequest) map[string]interface{} {
	if m, ok := req.Params.Arguments.(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}

// stringArgs extracts each named argument as a required, non-empty string.
func stringArgs(req mcp.CallToolRequest, names ...string) (map[string]string, error) {
	args := argumentsMap(req)
	out := make(map[string]string, len(names))
	for _, name := range names {
		v, ok := args[name].(string)
		if !ok || v == "" {
			return nil, fmt.Errorf("missing required argument %q", name)
		}
		out[name] = v
	}
	return out, nil
}

// stringSliceArg extracts a required string-array argument.
func stringSliceArg(req mcp.CallToolRequest, name string) ([]string, error) {
	args := argumentsMap(req)
	raw, ok := args[name].([]interface{})
	if !ok {
		return nil, fmt.Errorf("missing required argument %q", name)
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("argument %q must be an array of strings", name)
		}
		out = append(out, s)
	}
	return out, nil
}

// marshalArguments re-encodes a tool call's arguments as JSON for handoff
// to the lifecycle manager's schema-based argument conversion.
func marshalArguments(req mcp.CallToolRequest) ([]byte, error) {
	return json.Marshal(argumentsMap(req))
}

// jsonResult marshals v and wraps it as a single text content block, the
// convention every tool in this facade uses for structured output.
func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	out, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshaling result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}
