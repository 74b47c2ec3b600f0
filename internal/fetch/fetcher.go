// Package fetch turns a component source URI into bytes cached under the
// plugin directory, following an atomic rename-or-copy discipline so a
// crash mid-download never leaves a partial artifact in place.
package fetch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/google/uuid"
	digest "github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"golang.org/x/sync/singleflight"

	"wassette/pkg/logging"
)

// wasmMediaType is the media type Wasm components are distributed under
// when published as single-layer OCI artifacts.
const wasmMediaType = "application/wasm"

// Fetcher pulls component bytes from file:// and oci:// source URIs and
// stages them atomically into a plugin directory.
type Fetcher struct {
	pluginDir string

	// group deduplicates concurrent fetches of the same source URI, so a
	// load-component call racing the plugin-directory watcher over the
	// same oci:// reference only pulls it once.
	group singleflight.Group
}

// New returns a Fetcher that stages downloads under pluginDir.
func New(pluginDir string) *Fetcher {
	return &Fetcher{pluginDir: pluginDir}
}

// Fetch resolves sourceURI to its bytes and writes them to
// "<plugin_dir>/<identity>.wasm", atomically: the bytes land in a sibling
// temp file first, then are renamed into place (or copied-then-removed, if
// the temp file ended up on a different filesystem than the plugin
// directory). Returns the final path.
func (f *Fetcher) Fetch(ctx context.Context, sourceURI, identity string) (string, error) {
	bytes, err := f.read(ctx, sourceURI)
	if err != nil {
		return "", err
	}

	finalPath := filepath.Join(f.pluginDir, identity+".wasm")
	if err := os.MkdirAll(f.pluginDir, 0o755); err != nil {
		return "", &FetchError{Source: sourceURI, Reason: fmt.Sprintf("creating plugin directory: %v", err)}
	}

	tmpPath := filepath.Join(f.pluginDir, identity+"."+uuid.New().String()+".tmp")
	if err := os.WriteFile(tmpPath, bytes, 0o644); err != nil {
		return "", &FetchError{Source: sourceURI, Reason: fmt.Sprintf("staging download: %v", err)}
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		logging.Debug("fetch", "rename across filesystems for %s, falling back to copy: %v", identity, err)
		if copyErr := copyThenRemove(tmpPath, finalPath); copyErr != nil {
			return "", &FetchError{Source: sourceURI, Reason: fmt.Sprintf("staging download: %v", copyErr)}
		}
	}

	return finalPath, nil
}

func (f *Fetcher) read(ctx context.Context, sourceURI string) ([]byte, error) {
	v, err, _ := f.group.Do(sourceURI, func() (interface{}, error) {
		switch {
		case strings.HasPrefix(sourceURI, "file://"):
			return readFile(sourceURI)
		case strings.HasPrefix(sourceURI, "oci://"):
			return readOCIWithRetry(ctx, sourceURI)
		default:
			return nil, &UnsupportedSchemeError{Source: sourceURI}
		}
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func readFile(sourceURI string) ([]byte, error) {
	path := strings.TrimPrefix(sourceURI, "file://")
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &FetchError{Source: sourceURI, Reason: err.Error()}
	}
	return b, nil
}

// readOCIWithRetry pulls the component's first layer, retrying once on a
// transient failure per the lifecycle's fetch contract.
func readOCIWithRetry(ctx context.Context, sourceURI string) ([]byte, error) {
	b, err := readOCI(ctx, sourceURI)
	if err == nil {
		return b, nil
	}
	logging.Warn("fetch", "oci pull of %s failed, retrying once: %v", sourceURI, err)
	time.Sleep(500 * time.Millisecond)
	b, err = readOCI(ctx, sourceURI)
	if err != nil {
		return nil, &FetchError{Source: sourceURI, Reason: err.Error()}
	}
	return b, nil
}

func readOCI(ctx context.Context, sourceURI string) ([]byte, error) {
	ref := strings.TrimPrefix(sourceURI, "oci://")
	parsed, err := name.ParseReference(ref)
	if err != nil {
		return nil, fmt.Errorf("parsing oci reference %q: %w", ref, err)
	}

	img, err := remote.Image(parsed, remote.WithContext(ctx), remote.WithAuthFromKeychain(authn.DefaultKeychain))
	if err != nil {
		return nil, fmt.Errorf("pulling %s: %w", ref, err)
	}

	layers, err := img.Layers()
	if err != nil {
		return nil, fmt.Errorf("reading layers of %s: %w", ref, err)
	}
	if len(layers) == 0 {
		return nil, fmt.Errorf("%s has no layers", ref)
	}

	manifestMediaType, err := img.MediaType()
	if err != nil {
		return nil, fmt.Errorf("reading manifest media type of %s: %w", ref, err)
	}
	if string(manifestMediaType) != string(ocispec.MediaTypeImageManifest) {
		logging.Debug("fetch", "manifest for %s uses media type %s, not the OCI default", ref, manifestMediaType)
	}

	mediaType, err := layers[0].MediaType()
	if err != nil {
		return nil, fmt.Errorf("reading media type of %s: %w", ref, err)
	}
	if string(mediaType) != wasmMediaType {
		logging.Debug("fetch", "unexpected media type %s for %s, treating as wasm anyway", mediaType, ref)
	}

	rc, err := layers[0].Uncompressed()
	if err != nil {
		return nil, fmt.Errorf("opening layer of %s: %w", ref, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading layer of %s: %w", ref, err)
	}

	if err := verifyDigest(ref, data); err != nil {
		return nil, err
	}
	return data, nil
}

// verifyDigest checks the downloaded bytes against a "@sha256:..." digest
// suffix on the reference, when present. References pinned by tag alone
// carry no digest to verify.
func verifyDigest(ref string, data []byte) error {
	at := strings.LastIndex(ref, "@")
	if at == -1 {
		return nil
	}
	want, err := digest.Parse(ref[at+1:])
	if err != nil {
		return fmt.Errorf("parsing digest in %q: %w", ref, err)
	}
	got := digest.FromBytes(data)
	if got != want {
		return fmt.Errorf("digest mismatch for %s: want %s, got %s", ref, want, got)
	}
	return nil
}

func copyThenRemove(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
