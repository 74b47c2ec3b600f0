package engine

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/experimental"

	"wassette/internal/schema"
	"wassette/internal/sandbox"
)

// Store is a fresh per-invocation instantiation target: it carries the
// sandbox snapshot and memory ceiling for exactly one call. Stores are
// never shared across calls, so guest memory is never shared either.
type Store struct {
	handle *Handle
	pre    *PreInstance
	caps   sandbox.State
}

// NewStore builds a fresh store for one invocation of the component
// behind pre, under the given sandbox snapshot.
func (h *Handle) NewStore(pre *PreInstance, s sandbox.State) *Store {
	return &Store{handle: h, pre: pre, caps: s}
}

// Instance is a running component instance scoped to one call.
type Instance struct {
	identity string
	inst     instanceCaller
}

// instanceCaller is the subset of *runtime.Instance this package depends
// on, narrowed for testability.
type instanceCaller interface {
	Call(ctx context.Context, name string, args ...interface{}) (interface{}, error)
	Close(ctx context.Context) error
}

// Instantiate creates a fresh instance for this store's component, under
// the memory ceiling the sandbox snapshot declares (wazero's
// experimental.WithMemoryCapPages, a per-call context override of the
// runtime-wide default) and with the call context carrying the sandbox
// state the shared host bindings consult.
func (s *Store) Instantiate(ctx context.Context) (*Instance, error) {
	ctx = experimental.WithMemoryCapPages(ctx, s.caps.MemoryLimitPages())
	ctx = withCallContext(ctx, s.pre.identity, s.caps)

	inst, err := s.pre.module.Instantiate(ctx)
	if err != nil {
		return nil, &GuestTrapError{Identity: s.pre.identity, Message: err.Error()}
	}
	if err := inst.EnableAsyncify(s.handle.asyncify); err != nil {
		return nil, &GuestTrapError{Identity: s.pre.identity, Message: err.Error()}
	}

	return &Instance{identity: s.pre.identity, inst: inst}, nil
}

// Call invokes functionPath with params, asynchronously (the library
// suspends the calling goroutine at host-call await points internally),
// and returns results shaped according to resultTypes.
func (i *Instance) Call(ctx context.Context, functionPath string, params []schema.Value, resultTypes []schema.Type) ([]schema.Value, error) {
	nativeArgs := make([]interface{}, len(params))
	for idx, p := range params {
		nativeArgs[idx] = schema.ValToNative(p)
	}

	raw, err := i.inst.Call(ctx, functionPath, nativeArgs...)
	if err != nil {
		return nil, &GuestTrapError{Identity: i.identity, Message: err.Error()}
	}

	results, err := schema.NativeToVals(raw, resultTypes)
	if err != nil {
		return nil, fmt.Errorf("converting results of %s: %w", functionPath, err)
	}
	return results, nil
}

// Close releases the instance.
func (i *Instance) Close(ctx context.Context) error {
	return i.inst.Close(ctx)
}
