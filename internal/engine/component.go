package engine

import (
	"context"

	"github.com/wippyai/wasm-runtime/runtime"
)

// CompiledComponent is the engine's opaque compiled representation of a
// component binary. It satisfies registry.CompiledComponent.
type CompiledComponent struct {
	module *runtime.Module
}

// Close releases the compiled module.
func (c *CompiledComponent) Close(ctx context.Context) error {
	return c.module.Close(ctx)
}

// PreInstance is a component linked against the engine's shared host
// bindings, ready to be instantiated into a fresh Store per call without
// re-validating the binary. It satisfies registry.PreInstance.
type PreInstance struct {
	identity string
	module   *runtime.Module
}

// Close releases the underlying module.
func (p *PreInstance) Close(ctx context.Context) error {
	return p.module.Close(ctx)
}
