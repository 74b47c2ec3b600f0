package lifecycle

import (
	"context"

	"wassette/internal/engine"
	"wassette/internal/sandbox"
	"wassette/internal/schema"
)

// compiledComponent, preInstance, store and instance narrow the engine
// package's concrete API down to what the lifecycle manager actually
// calls, so tests can substitute a fake engine without compiling a real
// Wasm component, matching the instanceCaller pattern internal/engine
// already uses for the same reason.
type compiledComponent interface {
	Close(ctx context.Context) error
	Exports() (schema.Component, error)
}

type preInstance interface {
	Close(ctx context.Context) error
}

type store interface {
	Instantiate(ctx context.Context) (instance, error)
}

type instance interface {
	Call(ctx context.Context, functionPath string, params []schema.Value, resultTypes []schema.Type) ([]schema.Value, error)
	Close(ctx context.Context) error
}

// engineHandle is the subset of *engine.Handle the manager depends on.
type engineHandle interface {
	Compile(ctx context.Context, wasmBytes []byte) (compiledComponent, error)
	Link(identity string, compiled compiledComponent) preInstance
	NewStore(pre preInstance, s sandbox.State) store
	Close(ctx context.Context) error
}

// realEngine adapts *engine.Handle to engineHandle. The adaptation exists
// only because Go interface satisfaction is nominal on method signatures:
// *engine.Handle's methods return the engine package's concrete types, not
// these narrower interfaces.
type realEngine struct {
	h *engine.Handle
}

func newRealEngine(h *engine.Handle) *realEngine {
	return &realEngine{h: h}
}

func (r *realEngine) Compile(ctx context.Context, wasmBytes []byte) (compiledComponent, error) {
	c, err := r.h.Compile(ctx, wasmBytes)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *realEngine) Link(identity string, compiled compiledComponent) preInstance {
	cc, ok := compiled.(*engine.CompiledComponent)
	if !ok {
		panic("lifecycle: Link called with a compiled component not produced by Compile")
	}
	return r.h.Link(identity, cc)
}

func (r *realEngine) NewStore(pre preInstance, s sandbox.State) store {
	p, ok := pre.(*engine.PreInstance)
	if !ok {
		panic("lifecycle: NewStore called with a pre-instance not produced by Link")
	}
	return &realStore{s: r.h.NewStore(p, s)}
}

func (r *realEngine) Close(ctx context.Context) error {
	return r.h.Close(ctx)
}

type realStore struct {
	s *engine.Store
}

func (r *realStore) Instantiate(ctx context.Context) (instance, error) {
	inst, err := r.s.Instantiate(ctx)
	if err != nil {
		return nil, err
	}
	return inst, nil
}
