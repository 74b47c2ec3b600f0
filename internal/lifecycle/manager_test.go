package lifecycle

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wassette/internal/fetch"
	"wassette/internal/policy"
	"wassette/internal/registry"
	"wassette/internal/sandbox"
	"wassette/internal/schema"
)

type fakeCompiledComponent struct {
	exports schema.Component
	closed  bool
}

func (f *fakeCompiledComponent) Close(ctx context.Context) error { f.closed = true; return nil }
func (f *fakeCompiledComponent) Exports() (schema.Component, error) {
	return f.exports, nil
}

type fakePreInstance struct{ closed bool }

func (f *fakePreInstance) Close(ctx context.Context) error { f.closed = true; return nil }

type fakeInstance struct {
	result []schema.Value
	err    error
	closed bool
}

func (f *fakeInstance) Call(ctx context.Context, functionPath string, params []schema.Value, resultTypes []schema.Type) ([]schema.Value, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeInstance) Close(ctx context.Context) error { f.closed = true; return nil }

type fakeStore struct {
	inst *fakeInstance
	err  error
}

func (f *fakeStore) Instantiate(ctx context.Context) (instance, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.inst, nil
}

type fakeEngineHandle struct {
	exports    schema.Component
	instResult []schema.Value
	instErr    error
	compileErr error
}

func (f *fakeEngineHandle) Compile(ctx context.Context, wasmBytes []byte) (compiledComponent, error) {
	if f.compileErr != nil {
		return nil, f.compileErr
	}
	return &fakeCompiledComponent{exports: f.exports}, nil
}

func (f *fakeEngineHandle) Link(identity string, compiled compiledComponent) preInstance {
	return &fakePreInstance{}
}

func (f *fakeEngineHandle) NewStore(pre preInstance, s sandbox.State) store {
	return &fakeStore{inst: &fakeInstance{result: f.instResult, err: f.instErr}}
}

func (f *fakeEngineHandle) Close(ctx context.Context) error { return nil }

func newTestManager(t *testing.T, eng engineHandle) (*Manager, string) {
	t.Helper()
	pluginDir := t.TempDir()
	policies := policy.NewRegistry(pluginDir)
	require.NoError(t, policies.LoadFromDisk())
	return &Manager{
		pluginDir:  pluginDir,
		engine:     eng,
		fetcher:    fetch.New(pluginDir),
		policies:   policies,
		components: registry.New(),
		meta:       make(map[string]componentMeta),
	}, pluginDir
}

func timeToolExports() schema.Component {
	return schema.Component{Functions: []schema.Function{
		{Name: "get-current-time", Results: []schema.Type{{Kind: schema.KindString}}},
	}}
}

func writeSourceWasm(t *testing.T, name string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("\x00asm\x01\x00\x00\x00"), 0o644))
	return path
}

func TestLoadInsertsComponentAndNotifies(t *testing.T) {
	eng := &fakeEngineHandle{exports: timeToolExports()}
	m, pluginDir := newTestManager(t, eng)
	sub := m.Subscribe()

	src := writeSourceWasm(t, "time-server.wasm")
	result, err := m.Load(context.Background(), "file://"+src)
	require.NoError(t, err)
	assert.Equal(t, "time-server", result.ID)
	assert.Equal(t, "ready", result.Status)

	_, err = os.Stat(filepath.Join(pluginDir, "time-server.wasm"))
	require.NoError(t, err)

	select {
	case <-sub:
	default:
		t.Fatal("expected a tool-list-changed notification")
	}

	list := m.ListComponents()
	require.Len(t, list, 1)
	assert.Equal(t, "time-server", list[0].Identity)
	assert.Equal(t, 1, list[0].ToolCount)
}

func TestExecuteToolCallConvertsResult(t *testing.T) {
	eng := &fakeEngineHandle{
		exports:    timeToolExports(),
		instResult: []schema.Value{{Kind: schema.KindString, Str: "2024-01-01T00:00:00Z"}},
	}
	m, _ := newTestManager(t, eng)

	src := writeSourceWasm(t, "time-server.wasm")
	_, err := m.Load(context.Background(), "file://"+src)
	require.NoError(t, err)

	out, err := m.ExecuteToolCall(context.Background(), "get-current-time", []byte(`{}`))
	require.NoError(t, err)
	assert.JSONEq(t, `"2024-01-01T00:00:00Z"`, string(out))
}

func TestExecuteToolCallUnknownToolReturnsNotFound(t *testing.T) {
	m, _ := newTestManager(t, &fakeEngineHandle{})
	_, err := m.ExecuteToolCall(context.Background(), "does-not-exist", []byte(`{}`))
	require.Error(t, err)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestUnloadRemovesComponentAndFile(t *testing.T) {
	eng := &fakeEngineHandle{exports: timeToolExports()}
	m, pluginDir := newTestManager(t, eng)

	src := writeSourceWasm(t, "time-server.wasm")
	result, err := m.Load(context.Background(), "file://"+src)
	require.NoError(t, err)

	require.NoError(t, m.Unload(context.Background(), result.ID, false))
	assert.Empty(t, m.ListComponents())

	_, err = os.Stat(filepath.Join(pluginDir, "time-server.wasm"))
	assert.True(t, os.IsNotExist(err))
}

func TestLoadDuplicateToolIsRejectedAndListUnchanged(t *testing.T) {
	eng := &fakeEngineHandle{exports: timeToolExports()}
	m, _ := newTestManager(t, eng)

	srcA := writeSourceWasm(t, "a.wasm")
	_, err := m.Load(context.Background(), "file://"+srcA)
	require.NoError(t, err)

	srcB := writeSourceWasm(t, "b.wasm")
	_, err = m.Load(context.Background(), "file://"+srcB)
	require.Error(t, err)
	var dup *registry.DuplicateToolError
	require.ErrorAs(t, err, &dup)

	list := m.ListComponents()
	require.Len(t, list, 1)
	assert.Equal(t, "a", list[0].Identity)
}

func TestGrantAndGetPolicyRoundTrip(t *testing.T) {
	m, _ := newTestManager(t, &fakeEngineHandle{})

	require.NoError(t, m.GrantNetworkPermission("weather", "api.example.com"))
	info := m.GetPolicy("weather")
	require.Len(t, info.Policy.Permissions.Network, 1)
	assert.Equal(t, "api.example.com", info.Policy.Permissions.Network[0].Host)

	require.NoError(t, m.ResetPermission("weather"))
	info = m.GetPolicy("weather")
	assert.Empty(t, info.Policy.Permissions.Network)
}

func TestLoadRecordsMetaForGetPolicy(t *testing.T) {
	eng := &fakeEngineHandle{exports: timeToolExports()}
	m, _ := newTestManager(t, eng)

	src := writeSourceWasm(t, "time-server.wasm")
	result, err := m.Load(context.Background(), "file://"+src)
	require.NoError(t, err)

	info := m.GetPolicy(result.ID)
	assert.Equal(t, "file://"+src, info.SourceURI)
	assert.False(t, info.CreatedAt.IsZero())
}
