package fetch

import (
	"path"
	"strings"
)

// Identity derives a component's stable identity from its source URI: for
// file://, the file stem with the .wasm extension stripped; for oci://,
// the repository's last path segment with any :tag or @digest suffix
// stripped. Identities are not guaranteed unique across registries — see
// DESIGN.md's Open Question decision — only stable for the life of the
// process.
func Identity(sourceURI string) (string, error) {
	switch {
	case strings.HasPrefix(sourceURI, "file://"):
		p := strings.TrimPrefix(sourceURI, "file://")
		base := path.Base(p)
		return strings.TrimSuffix(base, ".wasm"), nil

	case strings.HasPrefix(sourceURI, "oci://"):
		ref := strings.TrimPrefix(sourceURI, "oci://")
		if at := strings.LastIndex(ref, "@"); at != -1 {
			ref = ref[:at]
		}
		repoAndTag := ref
		if slash := strings.LastIndex(ref, "/"); slash != -1 {
			repoAndTag = ref[slash+1:]
		}
		if colon := strings.LastIndex(repoAndTag, ":"); colon != -1 {
			repoAndTag = repoAndTag[:colon]
		}
		return repoAndTag, nil

	default:
		return "", &UnsupportedSchemeError{Source: sourceURI}
	}
}
