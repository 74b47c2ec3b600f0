package engine

import (
	"context"

	"wassette/internal/sandbox"
)

type callContextKey struct{}

// callContext is threaded through every guest call via context.Context so
// the shared host bindings (outbound HTTP, in the future: filesystem
// escape hatches) can consult the current invocation's sandbox state and
// owning component identity without per-component closures.
type callContext struct {
	identity string
	sandbox  sandbox.State
}

func withCallContext(ctx context.Context, identity string, s sandbox.State) context.Context {
	return context.WithValue(ctx, callContextKey{}, callContext{identity: identity, sandbox: s})
}

func callContextFrom(ctx context.Context) (callContext, bool) {
	cc, ok := ctx.Value(callContextKey{}).(callContext)
	return cc, ok
}
