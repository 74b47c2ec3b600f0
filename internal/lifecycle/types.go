// Package lifecycle is the external-facing coordinator: it composes the
// artifact fetcher, engine handle, schema bridge, capability state
// builder, and the component and policy registries into load, unload,
// list, policy, and tool-call operations, and broadcasts tool-list-changed
// notifications to attached observers.
package lifecycle

import (
	"time"

	"wassette/internal/policy"
	"wassette/internal/registry"
)

// LoadResult is returned by Load on success.
type LoadResult struct {
	ID     string
	Status string
}

// ComponentInfo summarizes one loaded component, as returned by
// ListComponents.
type ComponentInfo = registry.ComponentInfo

// PolicyInfo is a component's policy plus the metadata load recorded about
// where it came from. For a component rehydrated after a host restart,
// SourceURI is empty and CreatedAt is the cached binary's modification
// time, since the source URI itself is not persisted.
type PolicyInfo struct {
	Policy    policy.Policy
	SourceURI string
	LocalPath string
	CreatedAt time.Time
}
