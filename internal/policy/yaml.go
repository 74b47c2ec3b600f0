package policy

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Parse decodes and validates a policy document. source is used only to
// annotate any resulting ParseError (a file path or "inline"). Unknown
// top-level (and nested) keys are rejected via strict decoding.
func Parse(raw []byte, source string) (Policy, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		return Policy{}, &ParseError{Source: source, Reason: err.Error()}
	}

	p := fromDocument(doc)
	if p.Version == "" {
		p.Version = "1.0"
	}
	if err := validate(p, source); err != nil {
		return Policy{}, err
	}
	return dedup(p), nil
}

func validate(p Policy, source string) error {
	for _, e := range p.Permissions.Storage {
		if !strings.HasPrefix(e.URI, "fs://") {
			return &ParseError{Source: source, Reason: fmt.Sprintf("storage uri %q must use the fs:// scheme", e.URI)}
		}
		path := strings.TrimPrefix(e.URI, "fs://")
		path = strings.TrimSuffix(path, "/**")
		if !strings.HasPrefix(path, "/") {
			return &ParseError{Source: source, Reason: fmt.Sprintf("storage uri %q must be an absolute path", e.URI)}
		}
		if len(e.Access) == 0 {
			return &ParseError{Source: source, Reason: fmt.Sprintf("storage uri %q must grant at least one access bit", e.URI)}
		}
		for _, a := range e.Access {
			if a != AccessRead && a != AccessWrite {
				return &ParseError{Source: source, Reason: fmt.Sprintf("storage uri %q has unknown access bit %q", e.URI, a)}
			}
		}
	}
	for _, e := range p.Permissions.Network {
		if e.Host == "" || strings.Contains(e.Host, "://") {
			return &ParseError{Source: source, Reason: fmt.Sprintf("network host %q must be a bare DNS name", e.Host)}
		}
	}
	for _, e := range p.Permissions.Environment {
		if e.Key == "" {
			return &ParseError{Source: source, Reason: "environment entry has an empty key"}
		}
	}
	return nil
}

// Serialize renders a policy back to the on-disk YAML shape.
func Serialize(p Policy) ([]byte, error) {
	return yaml.Marshal(p.toDocument())
}

// dedup applies the policy's set invariants: storage entries are
// deduplicated by (uri, access-bit) and access bits on the same URI are
// unioned; network and environment lists are deduplicated by their key.
func dedup(p Policy) Policy {
	storage := map[string]map[string]bool{}
	order := []string{}
	for _, e := range p.Permissions.Storage {
		bits, ok := storage[e.URI]
		if !ok {
			bits = map[string]bool{}
			storage[e.URI] = bits
			order = append(order, e.URI)
		}
		for _, a := range e.Access {
			bits[a] = true
		}
	}
	mergedStorage := make([]StorageEntry, 0, len(order))
	for _, uri := range order {
		mergedStorage = append(mergedStorage, StorageEntry{URI: uri, Access: sortedAccess(storage[uri])})
	}

	network := dedupStrings(p.Permissions.Network, func(e NetworkEntry) string { return e.Host })
	netEntries := make([]NetworkEntry, 0, len(network))
	for _, h := range network {
		netEntries = append(netEntries, NetworkEntry{Host: h})
	}

	env := dedupStrings(p.Permissions.Environment, func(e EnvironmentEntry) string { return e.Key })
	envEntries := make([]EnvironmentEntry, 0, len(env))
	for _, k := range env {
		envEntries = append(envEntries, EnvironmentEntry{Key: k})
	}

	p.Permissions.Storage = mergedStorage
	p.Permissions.Network = netEntries
	p.Permissions.Environment = envEntries
	return p
}

func sortedAccess(bits map[string]bool) []string {
	out := make([]string, 0, 2)
	if bits[AccessRead] {
		out = append(out, AccessRead)
	}
	if bits[AccessWrite] {
		out = append(out, AccessWrite)
	}
	return out
}

func dedupStrings[T any](entries []T, key func(T) string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		k := key(e)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
