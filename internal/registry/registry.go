package registry

import (
	"context"
	"fmt"
	"sync"

	"wassette/internal/schema"
)

// Registry indexes compiled components by identity and qualified tool
// name. list/lookup take the shared lock; insert/remove take the exclusive
// lock, matching the teacher's readers-writer discipline for its component
// registry.
type Registry struct {
	mu         sync.RWMutex
	byIdentity map[string]*entry
	byTool     map[string]route
}

// ReservedToolNames is the administrative tool set the MCP facade always
// registers. A guest that exports one of these names collides with a
// built-in rather than with another guest: the source's behavior here is
// not obviously consistent, so this registry simply treats the built-in
// set as reserved and fails the load.
var ReservedToolNames = map[string]bool{
	"load-component":                        true,
	"unload-component":                      true,
	"list-components":                       true,
	"get-policy":                            true,
	"grant-storage-permission":               true,
	"grant-network-permission":               true,
	"grant-environment-variable-permission":  true,
	"revoke-storage-permission":              true,
	"revoke-network-permission":              true,
	"revoke-environment-variable-permission": true,
	"reset-permission":                       true,
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		byIdentity: make(map[string]*entry),
		byTool:     make(map[string]route),
	}
}

// Insert registers a compiled component under identity. If identity is
// already registered this is a replace-load: the swap is atomic under the
// registry's exclusive lock, and the old entry is retired rather than
// closed immediately so calls already in flight against it run to
// completion. A component that exports a tool name already claimed by a
// different identity, or that shadows a reserved administrative tool name,
// is rejected in full with DuplicateToolError.
func (r *Registry) Insert(ctx context.Context, identity string, compiled CompiledComponent, preInstance PreInstance, toolSchema schema.ToolSchema) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, tool := range toolSchema.Tools {
		if ReservedToolNames[tool.Name] {
			return &DuplicateToolError{ToolName: tool.Name, ExistingIdentity: "<built-in>"}
		}
		if existing, ok := r.byTool[tool.Name]; ok && existing.identity != identity {
			return &DuplicateToolError{ToolName: tool.Name, ExistingIdentity: existing.identity}
		}
	}

	old := r.byIdentity[identity]
	if old != nil {
		r.removeRoutesForIdentity(identity)
	}

	for _, tool := range toolSchema.Tools {
		r.byTool[tool.Name] = route{identity: identity, functionPath: tool.Function.QualifiedName(), function: tool.Function}
	}

	newEntry := &entry{identity: identity, compiled: compiled, preInstance: preInstance, schema: toolSchema}
	newEntry.refCount.Store(1)
	r.byIdentity[identity] = newEntry

	if old != nil {
		old.retire(ctx)
	}
	return nil
}

// Remove drops identity from the registry and its tool routes. The entry
// is retired rather than closed immediately, so calls already in flight
// against it complete normally.
func (r *Registry) Remove(ctx context.Context, identity string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byIdentity[identity]
	if !ok {
		return &NotFoundError{What: fmt.Sprintf("component %q", identity)}
	}

	r.removeRoutesForIdentity(identity)
	delete(r.byIdentity, identity)
	e.retire(ctx)
	return nil
}

// removeRoutesForIdentity deletes every tool route owned by identity.
// Callers must hold r.mu for writing.
func (r *Registry) removeRoutesForIdentity(identity string) {
	for tool, rt := range r.byTool {
		if rt.identity == identity {
			delete(r.byTool, tool)
		}
	}
}

// LookupByTool resolves a qualified tool name to the identity and function
// path that exports it.
func (r *Registry) LookupByTool(toolName string) (identity string, functionPath string, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, found := r.byTool[toolName]
	if !found {
		return "", "", false
	}
	return rt.identity, rt.functionPath, true
}

// Acquire resolves toolName to its owning component and returns a Handle
// the caller must Release when the call completes. The returned handle is
// pinned to the artifact current at acquisition time even if a
// replace-load swaps the routing table afterward.
func (r *Registry) Acquire(toolName string) (*Handle, error) {
	r.mu.RLock()
	rt, found := r.byTool[toolName]
	if !found {
		r.mu.RUnlock()
		return nil, &NotFoundError{What: fmt.Sprintf("tool %q", toolName)}
	}
	e, found := r.byIdentity[rt.identity]
	r.mu.RUnlock()

	if !found || !e.acquire() {
		return nil, &NotFoundError{What: fmt.Sprintf("tool %q", toolName)}
	}

	return &Handle{
		Identity:    rt.identity,
		Compiled:    e.compiled,
		PreInstance: e.preInstance,
		entry:       e,
	}, nil
}

// FunctionPath returns the function path a tool name was registered
// under, for use after Acquire has resolved the component.
func (r *Registry) FunctionPath(toolName string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.byTool[toolName]
	if !ok {
		return "", false
	}
	return rt.functionPath, true
}

// Function returns the full typed signature a tool name was registered
// under, so a caller can convert JSON arguments and results without a
// second round-trip through the component's schema.
func (r *Registry) Function(toolName string) (schema.Function, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.byTool[toolName]
	if !ok {
		return schema.Function{}, false
	}
	return rt.function, true
}

// List returns a snapshot of every registered component.
func (r *Registry) List() []ComponentInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ComponentInfo, 0, len(r.byIdentity))
	for identity, e := range r.byIdentity {
		out = append(out, ComponentInfo{
			Identity:  identity,
			ToolCount: len(e.schema.Tools),
			Schema:    e.schema,
		})
	}
	return out
}
