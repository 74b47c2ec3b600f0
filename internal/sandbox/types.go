// Package sandbox builds a fresh per-invocation capability state from a
// policy snapshot and the current process environment: preopened
// directories, an allowed outbound host set, a filtered environment list,
// and a memory ceiling.
package sandbox

// Preopen is one directory the guest may see, mapped host path to guest
// path, with the union of access bits granted across every policy entry
// that covers it.
type Preopen struct {
	HostPath  string
	GuestPath string
	Read      bool
	Write     bool
	Recursive bool
}

// State is the sandbox template produced for a single invocation. It is
// immutable once built. The engine uses it for the instance's memory cap
// and to gate outbound network calls. Preopens and Environment are turned
// into wazero configuration only by ApplyModuleConfig, which the engine
// does not call, so guest instances see neither the preopened directories
// nor the environment variables.
type State struct {
	Preopens         []Preopen
	AllowedHosts     map[string]bool
	AllowAllHosts    bool
	Environment      map[string]string
	MemoryLimitBytes uint64
}

// AllowsHost reports whether host is present in the sandbox's outbound
// allow-set. Port and scheme are never part of the comparison.
// AllowAllHosts (set by the --yolo escape hatch) bypasses the allow-set
// entirely.
func (s State) AllowsHost(host string) bool {
	return s.AllowAllHosts || s.AllowedHosts[host]
}
