package sandbox

import (
	"strings"

	"wassette/internal/policy"
)

// Build translates a policy snapshot and the current process environment
// (in os.Environ "KEY=VALUE" form) into a fresh sandbox State. When yolo is
// true, the policy's network and environment grants are ignored in favor of
// default-allow (every host reachable, every process environment variable
// visible); storage still only exposes what the policy preopens, since
// there is no meaningful "mount everything" equivalent. yolo is meant for
// local development only and is always false unless the host was started
// with the escape hatch enabled.
func Build(p policy.Policy, processEnviron []string, yolo bool) (State, error) {
	preopens, err := buildPreopens(p.Permissions.Storage)
	if err != nil {
		return State{}, err
	}

	memLimit, err := policy.MemoryLimitBytes(p.Resources.Limits.Memory)
	if err != nil {
		return State{}, err
	}

	if yolo {
		return State{
			Preopens:         preopens,
			AllowAllHosts:    true,
			Environment:      environToMap(processEnviron),
			MemoryLimitBytes: memLimit,
		}, nil
	}

	allowedHosts := make(map[string]bool, len(p.Permissions.Network))
	for _, e := range p.Permissions.Network {
		allowedHosts[e.Host] = true
	}

	allowedKeys := make(map[string]bool, len(p.Permissions.Environment))
	for _, e := range p.Permissions.Environment {
		allowedKeys[e.Key] = true
	}
	environment := filterEnviron(processEnviron, allowedKeys)

	return State{
		Preopens:         preopens,
		AllowedHosts:     allowedHosts,
		Environment:      environment,
		MemoryLimitBytes: memLimit,
	}, nil
}

// environToMap converts the full os.Environ "KEY=VALUE" slice into a map,
// used only for the yolo default-allow path.
func environToMap(processEnviron []string) map[string]string {
	out := make(map[string]string, len(processEnviron))
	for _, kv := range processEnviron {
		key, value, found := strings.Cut(kv, "=")
		if found {
			out[key] = value
		}
	}
	return out
}

// buildPreopens translates each fs://PATH storage entry into a Preopen,
// merging entries that resolve to the same host path (a plain entry and a
// "/**" entry for the same directory union to a recursive grant carrying
// the broadest access bits seen).
func buildPreopens(entries []policy.StorageEntry) ([]Preopen, error) {
	order := []string{}
	byPath := map[string]*Preopen{}

	for _, e := range entries {
		path := strings.TrimPrefix(e.URI, "fs://")
		recursive := strings.HasSuffix(path, "/**")
		path = strings.TrimSuffix(path, "/**")

		p, ok := byPath[path]
		if !ok {
			p = &Preopen{HostPath: path, GuestPath: path}
			byPath[path] = p
			order = append(order, path)
		}
		if recursive {
			p.Recursive = true
		}
		for _, a := range e.Access {
			switch a {
			case policy.AccessRead:
				p.Read = true
			case policy.AccessWrite:
				p.Write = true
			}
		}
	}

	out := make([]Preopen, 0, len(order))
	for _, path := range order {
		out = append(out, *byPath[path])
	}
	return out, nil
}

// filterEnviron copies only the process environment entries whose key is
// in allowedKeys; keys that never appear in the process environment are
// silently skipped.
func filterEnviron(processEnviron []string, allowedKeys map[string]bool) map[string]string {
	out := make(map[string]string, len(allowedKeys))
	for _, kv := range processEnviron {
		key, value, found := strings.Cut(kv, "=")
		if !found || !allowedKeys[key] {
			continue
		}
		out[key] = value
	}
	return out
}
