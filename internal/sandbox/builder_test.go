package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wassette/internal/policy"
)

func TestBuildDefaultDenyProducesEmptyState(t *testing.T) {
	s, err := Build(policy.Default(), nil, false)
	require.NoError(t, err)
	assert.Empty(t, s.Preopens)
	assert.Empty(t, s.AllowedHosts)
	assert.Empty(t, s.Environment)
	assert.Equal(t, policy.DefaultMemoryLimitBytes, s.MemoryLimitBytes)
}

func TestBuildPreopensUnionsOverlappingURIs(t *testing.T) {
	p := policy.Default()
	p.Permissions.Storage = []policy.StorageEntry{
		{URI: "fs:///data", Access: []string{policy.AccessRead}},
		{URI: "fs:///data/**", Access: []string{policy.AccessWrite}},
	}

	s, err := Build(p, nil, false)
	require.NoError(t, err)
	require.Len(t, s.Preopens, 1)
	po := s.Preopens[0]
	assert.Equal(t, "/data", po.HostPath)
	assert.Equal(t, "/data", po.GuestPath)
	assert.True(t, po.Read)
	assert.True(t, po.Write)
	assert.True(t, po.Recursive)
}

func TestBuildPreopensDistinctPaths(t *testing.T) {
	p := policy.Default()
	p.Permissions.Storage = []policy.StorageEntry{
		{URI: "fs:///a", Access: []string{policy.AccessRead}},
		{URI: "fs:///b", Access: []string{policy.AccessWrite}},
	}

	s, err := Build(p, nil, false)
	require.NoError(t, err)
	require.Len(t, s.Preopens, 2)
}

func TestBuildNetworkAllowSet(t *testing.T) {
	p := policy.Default()
	p.Permissions.Network = []policy.NetworkEntry{{Host: "api.example.com"}}

	s, err := Build(p, nil, false)
	require.NoError(t, err)
	assert.True(t, s.AllowsHost("api.example.com"))
	assert.False(t, s.AllowsHost("evil.example.com"))
}

func TestBuildEnvironmentFilterSkipsMissingKeys(t *testing.T) {
	p := policy.Default()
	p.Permissions.Environment = []policy.EnvironmentEntry{{Key: "PRESENT"}, {Key: "ABSENT"}}

	s, err := Build(p, []string{"PRESENT=value", "OTHER=ignored"}, false)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"PRESENT": "value"}, s.Environment)
}

func TestBuildMemoryLimitFromPolicy(t *testing.T) {
	p := policy.Default()
	p.Resources.Limits.Memory = "512Mi"

	s, err := Build(p, nil, false)
	require.NoError(t, err)
	assert.Equal(t, uint64(512*1024*1024), s.MemoryLimitBytes)
}

func TestBuildYoloAllowsEveryHostAndExposesFullEnvironment(t *testing.T) {
	p := policy.Default()

	s, err := Build(p, []string{"SECRET=value", "PATH=/usr/bin"}, true)
	require.NoError(t, err)
	assert.True(t, s.AllowsHost("anything.example.com"))
	assert.Equal(t, map[string]string{"SECRET": "value", "PATH": "/usr/bin"}, s.Environment)
}

func TestBuildYoloStillRespectsStoragePolicy(t *testing.T) {
	p := policy.Default()
	p.Permissions.Storage = []policy.StorageEntry{{URI: "fs:///data", Access: []string{policy.AccessRead}}}

	s, err := Build(p, nil, true)
	require.NoError(t, err)
	require.Len(t, s.Preopens, 1)
	assert.Equal(t, "/data", s.Preopens[0].HostPath)
}

func TestMemoryLimitPagesRoundsUp(t *testing.T) {
	s := State{MemoryLimitBytes: wasmPageSize + 1}
	assert.Equal(t, uint32(2), s.MemoryLimitPages())

	s = State{MemoryLimitBytes: wasmPageSize}
	assert.Equal(t, uint32(1), s.MemoryLimitPages())
}
