// Package registry owns compiled components, their pre-instantiated
// artifacts, synthesized tool schemas, and the tool-name routing table used
// to dispatch an MCP tool call to the component that exports it.
package registry

import (
	"context"
	"sync"
	"sync/atomic"

	"wassette/internal/schema"
)

// CompiledComponent is the engine's opaque compiled representation of a
// component binary. Defined here, not in internal/engine, so this package
// depends only on the shape it needs to manage a component's lifetime.
type CompiledComponent interface {
	Close(ctx context.Context) error
}

// PreInstance is a component pre-instantiated against a fixed linker
// configuration, ready to be instantiated into a fresh store per call.
type PreInstance interface {
	Close(ctx context.Context) error
}

// route is where a qualified tool name resolves to.
type route struct {
	identity     string
	functionPath string
	function     schema.Function
}

// entry is one component's registry slot. Entries are reference-counted so
// a replace-load or unload can retire an entry while calls already in
// flight against it keep running to completion against the old artifact.
type entry struct {
	identity    string
	compiled    CompiledComponent
	preInstance PreInstance
	schema      schema.ToolSchema

	refCount atomic.Int64
	retired  atomic.Bool
	closed   sync.Once
}

// acquire takes a reference on behalf of an in-flight call. Returns false
// if the entry has already been retired and drained to zero references.
func (e *entry) acquire() bool {
	for {
		n := e.refCount.Load()
		if n <= 0 {
			return false
		}
		if e.refCount.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// release drops a reference. When the entry is retired and the last
// reference drains, the underlying artifacts are closed.
func (e *entry) release(ctx context.Context) {
	if e.refCount.Add(-1) == 0 && e.retired.Load() {
		e.closeArtifacts(ctx)
	}
}

// retire marks the entry as no longer reachable through the routing table
// and drops the registry's own implicit reference. If no caller still
// holds a reference, the artifacts are closed immediately.
func (e *entry) retire(ctx context.Context) {
	e.retired.Store(true)
	e.release(ctx)
}

func (e *entry) closeArtifacts(ctx context.Context) {
	e.closed.Do(func() {
		_ = e.preInstance.Close(ctx)
		_ = e.compiled.Close(ctx)
	})
}

// Handle is a caller's reference to a registry entry acquired for the
// duration of one tool call. Release must be called exactly once.
type Handle struct {
	Identity    string
	Compiled    CompiledComponent
	PreInstance PreInstance

	entry *entry
}

// Release drops the caller's reference on the underlying entry.
func (h *Handle) Release(ctx context.Context) {
	h.entry.release(ctx)
}

// ComponentInfo summarizes one registered component for list().
type ComponentInfo struct {
	Identity  string
	ToolCount int
	Schema    schema.ToolSchema
}
