package policy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"wassette/pkg/logging"
)

// Registry owns the mapping from component identity to parsed policy,
// persists mutations alongside the cached component binary, and rehydrates
// its state from the plugin directory on startup.
//
// Every read takes the registry-wide read lock; every mutation takes the
// registry-wide write lock and then rewrites the identity's on-disk file
// atomically (write sibling, rename), matching the teacher's
// ServerRegistry/MCPServerManager read-modify-write discipline.
type Registry struct {
	mu         sync.RWMutex
	pluginDir  string
	byIdentity map[string]Policy
}

// NewRegistry constructs an empty registry rooted at pluginDir. Call
// LoadFromDisk to rehydrate persisted policies.
func NewRegistry(pluginDir string) *Registry {
	return &Registry{
		pluginDir:  pluginDir,
		byIdentity: make(map[string]Policy),
	}
}

// LoadFromDisk scans the plugin directory and rehydrates one policy entry
// per "<identity>.policy.yaml" found alongside a "<identity>.wasm".
func (r *Registry) LoadFromDisk() error {
	entries, err := os.ReadDir(r.pluginDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("scanning plugin directory %s: %w", r.pluginDir, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".policy.yaml") {
			continue
		}
		identity := strings.TrimSuffix(name, ".policy.yaml")
		if _, err := os.Stat(filepath.Join(r.pluginDir, identity+".wasm")); err != nil {
			logging.Debug("PolicyRegistry", "skipping orphan policy file %s (no matching component)", name)
			continue
		}
		raw, err := os.ReadFile(filepath.Join(r.pluginDir, name))
		if err != nil {
			logging.Warn("PolicyRegistry", "failed to read %s: %v", name, err)
			continue
		}
		p, err := Parse(raw, name)
		if err != nil {
			logging.Warn("PolicyRegistry", "failed to parse %s: %v", name, err)
			continue
		}
		r.byIdentity[identity] = p
		logging.Info("PolicyRegistry", "rehydrated policy for %s", identity)
	}
	return nil
}

func (r *Registry) policyPath(identity string) string {
	return filepath.Join(r.pluginDir, identity+".policy.yaml")
}

// Get returns the identity's policy, or the default-deny policy if none is
// attached.
func (r *Registry) Get(identity string) Policy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.byIdentity[identity]; ok {
		return p
	}
	return Default()
}

// Attach parses policySource (inline document bytes) and replaces any prior
// policy for identity, persisting it to disk.
func (r *Registry) Attach(identity string, policySource []byte, sourceLabel string) error {
	p, err := Parse(policySource, sourceLabel)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.writeLocked(identity, p); err != nil {
		return err
	}
	r.byIdentity[identity] = p
	logging.Audit(logging.AuditEvent{Action: "policy_attach", Outcome: "success", Target: identity})
	return nil
}

// Detach removes the policy entry and its on-disk file.
func (r *Registry) Detach(identity string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byIdentity, identity)
	if err := os.Remove(r.policyPath(identity)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing policy file for %s: %w", identity, err)
	}
	logging.Audit(logging.AuditEvent{Action: "policy_detach", Outcome: "success", Target: identity})
	return nil
}

// GrantStorage adds a storage grant, creating an empty policy first if none
// exists. Granting an access bit already held is a no-op (idempotent).
func (r *Registry) GrantStorage(identity, uri string, access []string) error {
	return r.mutate(identity, func(p *Policy) {
		p.Permissions.Storage = append(p.Permissions.Storage, StorageEntry{URI: uri, Access: access})
	})
}

// GrantNetwork adds a network-host grant.
func (r *Registry) GrantNetwork(identity, host string) error {
	return r.mutate(identity, func(p *Policy) {
		p.Permissions.Network = append(p.Permissions.Network, NetworkEntry{Host: host})
	})
}

// GrantEnv adds an environment-variable grant.
func (r *Registry) GrantEnv(identity, key string) error {
	return r.mutate(identity, func(p *Policy) {
		p.Permissions.Environment = append(p.Permissions.Environment, EnvironmentEntry{Key: key})
	})
}

// RevokeStorage removes all access bits for uri, regardless of which bits
// were previously granted.
func (r *Registry) RevokeStorage(identity, uri string) error {
	return r.mutate(identity, func(p *Policy) {
		kept := p.Permissions.Storage[:0]
		for _, e := range p.Permissions.Storage {
			if e.URI != uri {
				kept = append(kept, e)
			}
		}
		p.Permissions.Storage = kept
	})
}

// RevokeNetwork removes the host grant by exact match.
func (r *Registry) RevokeNetwork(identity, host string) error {
	return r.mutate(identity, func(p *Policy) {
		kept := p.Permissions.Network[:0]
		for _, e := range p.Permissions.Network {
			if e.Host != host {
				kept = append(kept, e)
			}
		}
		p.Permissions.Network = kept
	})
}

// RevokeEnv removes the environment key grant by exact match.
func (r *Registry) RevokeEnv(identity, key string) error {
	return r.mutate(identity, func(p *Policy) {
		kept := p.Permissions.Environment[:0]
		for _, e := range p.Permissions.Environment {
			if e.Key != key {
				kept = append(kept, e)
			}
		}
		p.Permissions.Environment = kept
	})
}

// Reset clears the identity's policy to default-deny without unloading the
// component.
func (r *Registry) Reset(identity string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := Default()
	if err := r.writeLocked(identity, p); err != nil {
		return err
	}
	r.byIdentity[identity] = p
	logging.Audit(logging.AuditEvent{Action: "policy_reset", Outcome: "success", Target: identity})
	return nil
}

// mutate performs a read-modify-write under the registry's exclusive lock,
// re-running dedup so the set invariants hold after every mutation, then
// persists the result.
func (r *Registry) mutate(identity string, fn func(*Policy)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byIdentity[identity]
	if !ok {
		p = Default()
	}
	fn(&p)
	p = dedup(p)

	if err := r.writeLocked(identity, p); err != nil {
		return err
	}
	r.byIdentity[identity] = p
	return nil
}

// writeLocked rewrites the identity's policy file atomically (write
// sibling, rename). Callers must hold r.mu.
func (r *Registry) writeLocked(identity string, p Policy) error {
	if err := os.MkdirAll(r.pluginDir, 0o755); err != nil {
		return fmt.Errorf("creating plugin directory: %w", err)
	}
	out, err := Serialize(p)
	if err != nil {
		return fmt.Errorf("serializing policy for %s: %w", identity, err)
	}

	finalPath := r.policyPath(identity)
	tmp := finalPath + ".tmp"
	if err := os.WriteFile(tmp, out, 0o644); err != nil {
		return fmt.Errorf("writing policy for %s: %w", identity, err)
	}
	if err := os.Rename(tmp, finalPath); err != nil {
		return fmt.Errorf("persisting policy for %s: %w", identity, err)
	}
	return nil
}
