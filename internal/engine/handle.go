// Package engine owns the single process-wide WebAssembly runtime
// configuration and produces fresh per-invocation stores for guest calls.
// It wraps github.com/wippyai/wasm-runtime (Component Model semantics:
// canonical ABI, WASI preview2 host bindings, asyncify) over
// github.com/tetratelabs/wazero (the underlying core-wasm engine).
package engine

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	wippyengine "github.com/wippyai/wasm-runtime/engine"
	"github.com/wippyai/wasm-runtime/runtime"
	"github.com/wippyai/wasm-runtime/wasi/preview2/clocks"
	"github.com/wippyai/wasm-runtime/wasi/preview2/random"
)

// defaultAsyncStackSize is the asyncify stack reserved for nested host
// calls (a guest call that itself invokes a suspending host binding).
const defaultAsyncStackSize = 64 * 1024

// Handle is the process-wide engine. Construction takes no parameters: it
// configures async execution, enables epoch-based interruption (wazero's
// WithCloseOnContextDone, tied to the context.Context passed to every
// guest call), and registers the WASI preview2 host implementations every
// component gets regardless of its capability policy (clocks, randomness)
// plus the sandbox-gated outbound HTTP handler.
type Handle struct {
	rt        *runtime.Runtime
	asyncify  wippyengine.AsyncifyConfig
}

// NewHandle constructs the process-wide engine handle.
func NewHandle(ctx context.Context) (*Handle, error) {
	rtCfg := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)

	rt, err := runtime.New(ctx, runtime.WithRuntimeConfig(rtCfg))
	if err != nil {
		return nil, fmt.Errorf("constructing engine runtime: %w", err)
	}

	h := &Handle{
		rt: rt,
		asyncify: wippyengine.AsyncifyConfig{
			StackSize: defaultAsyncStackSize,
		},
	}

	rt.RegisterHost(clocks.NewWallClockHost())
	rt.RegisterHost(random.NewSecureRandomHost())
	rt.RegisterFunc("wasi:http/outgoing-handler@0.2.0", "handle", h.handleOutboundHTTP)

	return h, nil
}

// Close releases the underlying runtime.
func (h *Handle) Close(ctx context.Context) error {
	return h.rt.Close(ctx)
}

// Compile parses and validates a component binary. The returned
// CompiledComponent is ready to be paired with a capability-aware
// PreInstance via Link, and is independently reusable for schema
// synthesis against its exported interfaces.
func (h *Handle) Compile(ctx context.Context, wasmBytes []byte) (*CompiledComponent, error) {
	mod, err := h.rt.LoadComponent(ctx, wasmBytes)
	if err != nil {
		return nil, &CompileError{Message: err.Error()}
	}
	return &CompiledComponent{module: mod}, nil
}

// Link pairs a compiled component with its component identity, producing
// a PreInstance ready for repeated per-call instantiation. The shared
// runtime's outbound HTTP binding reads the component's identity and
// current sandbox state from the call context
// rather than from per-component closures, so one Link call is sufficient
// for the component's lifetime even as its policy is later mutated.
func (h *Handle) Link(identity string, compiled *CompiledComponent) *PreInstance {
	return &PreInstance{identity: identity, module: compiled.module}
}
