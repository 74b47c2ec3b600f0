package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"wassette/internal/engine"
	"wassette/internal/fetch"
	"wassette/internal/policy"
	"wassette/internal/registry"
	"wassette/internal/sandbox"
	"wassette/internal/schema"
	"wassette/pkg/logging"
)

const subsystem = "Lifecycle"

// componentMeta is what the manager remembers about a load beyond what the
// policy and component registries already track, for get_policy's
// informational response. It does not survive a restart.
type componentMeta struct {
	sourceURI string
	localPath string
	createdAt time.Time
}

// Manager is the lifecycle coordinator: it composes the engine handle,
// artifact fetcher, schema bridge, capability state builder, and the
// component and policy registries into the host's public operations, and
// broadcasts a notification every time the tool list changes.
type Manager struct {
	pluginDir string
	yolo      bool

	engine     engineHandle
	fetcher    *fetch.Fetcher
	policies   *policy.Registry
	components *registry.Registry

	metaMu sync.Mutex
	meta   map[string]componentMeta

	subMu sync.Mutex
	subs  []chan struct{}
}

// NewManager constructs a manager rooted at pluginDir, rehydrating both the
// policy registry and the component registry from any binaries already
// cached there. When yolo is true, every tool call runs with default-allow
// network and environment access regardless of the component's policy.
func NewManager(ctx context.Context, pluginDir string, yolo bool) (*Manager, error) {
	handle, err := engine.NewHandle(ctx)
	if err != nil {
		return nil, fmt.Errorf("constructing engine: %w", err)
	}

	policies := policy.NewRegistry(pluginDir)
	if err := policies.LoadFromDisk(); err != nil {
		return nil, fmt.Errorf("rehydrating policies: %w", err)
	}

	m := &Manager{
		pluginDir:  pluginDir,
		yolo:       yolo,
		engine:     newRealEngine(handle),
		fetcher:    fetch.New(pluginDir),
		policies:   policies,
		components: registry.New(),
		meta:       make(map[string]componentMeta),
	}

	if err := m.rehydrate(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// Close releases the underlying engine.
func (m *Manager) Close(ctx context.Context) error {
	return m.engine.Close(ctx)
}

// rehydrate scans the plugin directory for cached component binaries and
// loads each one into the component registry, best-effort: a component
// that fails to compile is logged and skipped rather than aborting
// startup.
func (m *Manager) rehydrate(ctx context.Context) error {
	entries, err := os.ReadDir(m.pluginDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("scanning plugin directory %s: %w", m.pluginDir, err)
	}

	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ".wasm") || strings.Contains(name, ".tmp") {
			continue
		}
		identity := strings.TrimSuffix(name, ".wasm")
		if err := m.loadFromCache(ctx, identity); err != nil {
			logging.Warn(subsystem, "failed to rehydrate component %s: %v", identity, err)
			continue
		}
		logging.Info(subsystem, "rehydrated component %s", identity)
	}
	return nil
}

// loadFromCache compiles and registers a component whose bytes are already
// present under the plugin directory, without re-fetching.
func (m *Manager) loadFromCache(ctx context.Context, identity string) error {
	localPath := filepath.Join(m.pluginDir, identity+".wasm")
	info, err := os.Stat(localPath)
	if err != nil {
		return &IoError{Op: "reading cached component", Err: err}
	}
	wasmBytes, err := os.ReadFile(localPath)
	if err != nil {
		return &IoError{Op: "reading cached component", Err: err}
	}

	if err := m.compileAndInsert(ctx, identity, wasmBytes); err != nil {
		return err
	}

	m.recordMeta(identity, "", localPath, info.ModTime())
	return nil
}

// Load fetches sourceURI into the plugin directory, compiles it, and
// installs it into the component registry. On success a tool-list-changed
// notification is broadcast to every subscriber.
func (m *Manager) Load(ctx context.Context, sourceURI string) (LoadResult, error) {
	identity, err := fetch.Identity(sourceURI)
	if err != nil {
		return LoadResult{}, err
	}

	localPath, err := m.fetcher.Fetch(ctx, sourceURI, identity)
	if err != nil {
		return LoadResult{}, err
	}

	wasmBytes, err := os.ReadFile(localPath)
	if err != nil {
		return LoadResult{}, &IoError{Op: "reading fetched component", Err: err}
	}

	if err := m.compileAndInsert(ctx, identity, wasmBytes); err != nil {
		return LoadResult{}, err
	}

	m.recordMeta(identity, sourceURI, localPath, time.Now())
	logging.Audit(logging.AuditEvent{Action: "component_load", Outcome: "success", Target: identity, Details: sourceURI})
	m.notify()

	return LoadResult{ID: identity, Status: "ready"}, nil
}

// compileAndInsert compiles wasmBytes, links it, synthesizes its tool
// schema, and inserts it into the component registry under identity. A
// load that collides on an already-claimed tool name is rejected in full:
// nothing from it is registered.
func (m *Manager) compileAndInsert(ctx context.Context, identity string, wasmBytes []byte) error {
	compiled, err := m.engine.Compile(ctx, wasmBytes)
	if err != nil {
		return err
	}

	exports, err := compiled.Exports()
	if err != nil {
		_ = compiled.Close(ctx)
		return fmt.Errorf("reading exports of %s: %w", identity, err)
	}
	toolSchema := schema.ComponentExportsToSchema(exports, true)

	pre := m.engine.Link(identity, compiled)

	if err := m.components.Insert(ctx, identity, compiled, pre, toolSchema); err != nil {
		_ = pre.Close(ctx)
		_ = compiled.Close(ctx)
		return err
	}
	return nil
}

// Unload removes identity from the component registry and deletes its
// cached binary. The associated policy file is preserved unless
// detachPolicy is true, in which case it is removed as well.
func (m *Manager) Unload(ctx context.Context, identity string, detachPolicy bool) error {
	if err := m.components.Remove(ctx, identity); err != nil {
		return err
	}

	path := filepath.Join(m.pluginDir, identity+".wasm")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return &IoError{Op: "removing cached component", Err: err}
	}

	if detachPolicy {
		if err := m.policies.Detach(identity); err != nil {
			logging.Warn(subsystem, "failed to detach policy for %s: %v", identity, err)
		}
	}

	m.forgetMeta(identity)
	logging.Audit(logging.AuditEvent{Action: "component_unload", Outcome: "success", Target: identity})
	m.notify()
	return nil
}

// ListComponents returns a snapshot of every loaded component.
func (m *Manager) ListComponents() []ComponentInfo {
	return m.components.List()
}

// GetPolicy returns identity's policy together with the load metadata the
// manager has for it, if any.
func (m *Manager) GetPolicy(identity string) PolicyInfo {
	m.metaMu.Lock()
	meta := m.meta[identity]
	m.metaMu.Unlock()

	return PolicyInfo{
		Policy:    m.policies.Get(identity),
		SourceURI: meta.sourceURI,
		LocalPath: meta.localPath,
		CreatedAt: meta.createdAt,
	}
}

// GrantStoragePermission adds a storage grant to identity's policy.
func (m *Manager) GrantStoragePermission(identity, uri string, access []string) error {
	err := m.policies.GrantStorage(identity, uri, access)
	m.auditPolicyChange("grant_storage_permission", identity, uri, err)
	return err
}

// GrantNetworkPermission adds a network-host grant to identity's policy.
func (m *Manager) GrantNetworkPermission(identity, host string) error {
	err := m.policies.GrantNetwork(identity, host)
	m.auditPolicyChange("grant_network_permission", identity, host, err)
	return err
}

// GrantEnvironmentVariablePermission adds an environment-variable grant to
// identity's policy.
func (m *Manager) GrantEnvironmentVariablePermission(identity, key string) error {
	err := m.policies.GrantEnv(identity, key)
	m.auditPolicyChange("grant_environment_variable_permission", identity, key, err)
	return err
}

// RevokeStoragePermission removes all access bits for uri from identity's
// policy.
func (m *Manager) RevokeStoragePermission(identity, uri string) error {
	err := m.policies.RevokeStorage(identity, uri)
	m.auditPolicyChange("revoke_storage_permission", identity, uri, err)
	return err
}

// RevokeNetworkPermission removes a network-host grant from identity's
// policy.
func (m *Manager) RevokeNetworkPermission(identity, host string) error {
	err := m.policies.RevokeNetwork(identity, host)
	m.auditPolicyChange("revoke_network_permission", identity, host, err)
	return err
}

// RevokeEnvironmentVariablePermission removes an environment-variable
// grant from identity's policy.
func (m *Manager) RevokeEnvironmentVariablePermission(identity, key string) error {
	err := m.policies.RevokeEnv(identity, key)
	m.auditPolicyChange("revoke_environment_variable_permission", identity, key, err)
	return err
}

// ResetPermission clears identity's policy to default-deny without
// unloading the component.
func (m *Manager) ResetPermission(identity string) error {
	err := m.policies.Reset(identity)
	m.auditPolicyChange("reset_permission", identity, "", err)
	return err
}

// auditPolicyChange records a policy mutation's outcome. Details is
// omitted from the record when empty, as reset_permission carries none.
func (m *Manager) auditPolicyChange(action, identity, details string, err error) {
	event := logging.AuditEvent{Action: action, Target: identity, Details: details, Outcome: "success"}
	if err != nil {
		event.Outcome = "failure"
		event.Error = err.Error()
	}
	logging.Audit(event)
}

// ExecuteToolCall resolves toolName to its owning component, builds a
// fresh sandbox state from the component's current policy, instantiates
// the component, and invokes the function, converting arguments and
// results through the schema bridge.
func (m *Manager) ExecuteToolCall(ctx context.Context, toolName string, argumentsJSON []byte) ([]byte, error) {
	fn, ok := m.components.Function(toolName)
	if !ok {
		return nil, &NotFoundError{What: fmt.Sprintf("tool %q", toolName)}
	}

	handle, err := m.components.Acquire(toolName)
	if err != nil {
		return nil, err
	}
	defer handle.Release(ctx)

	snapshot := m.policies.Get(handle.Identity)
	state, err := sandbox.Build(snapshot, os.Environ(), m.yolo)
	if err != nil {
		return nil, fmt.Errorf("building sandbox for %s: %w", handle.Identity, err)
	}

	pre, ok := handle.PreInstance.(preInstance)
	if !ok {
		return nil, fmt.Errorf("component %s has no usable pre-instance", handle.Identity)
	}

	inst, err := m.engine.NewStore(pre, state).Instantiate(ctx)
	if err != nil {
		return nil, err
	}
	defer inst.Close(ctx)

	argsObject := map[string]interface{}{}
	if len(argumentsJSON) > 0 {
		if err := json.Unmarshal(argumentsJSON, &argsObject); err != nil {
			return nil, &schema.ShapeError{Path: "$"}
		}
	}

	params, err := schema.JSONToVals(argsObject, fn.Params)
	if err != nil {
		return nil, err
	}

	results, err := inst.Call(ctx, fn.QualifiedName(), params, fn.Results)
	if err != nil {
		return nil, err
	}

	out, err := json.Marshal(schema.ValsToJSON(results))
	if err != nil {
		return nil, &IoError{Op: "marshaling tool result", Err: err}
	}
	return out, nil
}

// Subscribe returns a channel that receives a value every time the tool
// list changes (a load or unload completed). The channel is buffered by
// one; a burst of changes while the subscriber isn't reading collapses to
// a single pending notification, matching the spec's last-write-wins
// observer contract.
func (m *Manager) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	m.subMu.Lock()
	m.subs = append(m.subs, ch)
	m.subMu.Unlock()
	return ch
}

func (m *Manager) notify() {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (m *Manager) recordMeta(identity, sourceURI, localPath string, createdAt time.Time) {
	m.metaMu.Lock()
	defer m.metaMu.Unlock()
	m.meta[identity] = componentMeta{sourceURI: sourceURI, localPath: localPath, createdAt: createdAt}
}

func (m *Manager) forgetMeta(identity string) {
	m.metaMu.Lock()
	defer m.metaMu.Unlock()
	delete(m.meta, identity)
}
