package fetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityFromFileURI(t *testing.T) {
	id, err := Identity("file:///home/user/components/time-server.wasm")
	require.NoError(t, err)
	assert.Equal(t, "time-server", id)
}

func TestIdentityFromOCIURITagged(t *testing.T) {
	id, err := Identity("oci://ghcr.io/example/time-server:v1.2.0")
	require.NoError(t, err)
	assert.Equal(t, "time-server", id)
}

func TestIdentityFromOCIURIDigest(t *testing.T) {
	id, err := Identity("oci://ghcr.io/example/time-server@sha256:abcdef")
	require.NoError(t, err)
	assert.Equal(t, "time-server", id)
}

func TestIdentityFromOCIURIWithRegistryPort(t *testing.T) {
	id, err := Identity("oci://localhost:5000/example/time-server:latest")
	require.NoError(t, err)
	assert.Equal(t, "time-server", id)
}

func TestIdentityUnsupportedScheme(t *testing.T) {
	_, err := Identity("https://example.com/time-server.wasm")
	require.Error(t, err)
	var us *UnsupportedSchemeError
	require.ErrorAs(t, err, &us)
}
