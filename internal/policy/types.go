// Package policy owns the capability policy document: its shape, YAML
// encoding, validation, and the in-memory registry that maps a component
// identity to its parsed policy and persists it alongside the cached
// component binary.
package policy

// AccessRead and AccessWrite are the two storage access bits a grant can
// carry. A storage entry's access set is always a non-empty subset of
// {read, write}.
const (
	AccessRead  = "read"
	AccessWrite = "write"
)

// StorageEntry is one `fs://` grant: a URI (optionally suffixed with the
// recursive marker "/**") and the access bits granted on it.
type StorageEntry struct {
	URI    string   `yaml:"uri"`
	Access []string `yaml:"access"`
}

// NetworkEntry is one outbound-host grant.
type NetworkEntry struct {
	Host string `yaml:"host"`
}

// EnvironmentEntry is one environment-variable grant.
type EnvironmentEntry struct {
	Key string `yaml:"key"`
}

// Permissions groups the three grant lists a policy carries.
type Permissions struct {
	Storage     []StorageEntry     `yaml:"storage,omitempty"`
	Network     []NetworkEntry     `yaml:"network,omitempty"`
	Environment []EnvironmentEntry `yaml:"environment,omitempty"`
}

// ResourceLimits is the optional resources.limits section. Memory is a
// Kubernetes-style quantity string ("512Mi"); CPU is informational only in
// the core.
type ResourceLimits struct {
	Memory string `yaml:"memory,omitempty"`
	CPU    string `yaml:"cpu,omitempty"`
}

// Resources wraps ResourceLimits to match the on-disk "resources.limits"
// nesting.
type Resources struct {
	Limits ResourceLimits `yaml:"limits,omitempty"`
}

// permissionsDoc and document mirror the persisted YAML shape exactly:
//
//	version: "1.0"
//	description: "..."
//	permissions:
//	  storage: {allow: [...]}
//	  network: {allow: [...]}
//	  environment: {allow: [...]}
//	resources:
//	  limits: {memory: ..., cpu: ...}
type allowList struct {
	Allow []StorageEntry `yaml:"allow,omitempty"`
}

type networkAllowList struct {
	Allow []NetworkEntry `yaml:"allow,omitempty"`
}

type envAllowList struct {
	Allow []EnvironmentEntry `yaml:"allow,omitempty"`
}

type permissionsDoc struct {
	Storage     allowList        `yaml:"storage,omitempty"`
	Network     networkAllowList `yaml:"network,omitempty"`
	Environment envAllowList     `yaml:"environment,omitempty"`
}

// document is the wire format. Policy is the in-memory, flattened form
// used by the rest of the package; toDocument/fromDocument convert between
// them so the rest of the codebase never has to deal with the allow-list
// wrapper nesting.
type document struct {
	Version     string         `yaml:"version"`
	Description string         `yaml:"description,omitempty"`
	Permissions permissionsDoc `yaml:"permissions,omitempty"`
	Resources   Resources      `yaml:"resources,omitempty"`
}

// Policy is the in-memory, validated capability policy for one component
// identity.
type Policy struct {
	Version     string
	Description string
	Permissions Permissions
	Resources   Resources
}

// Default returns the default-deny policy: no preopens, no outbound hosts,
// no environment variables, default memory ceiling.
func Default() Policy {
	return Policy{Version: "1.0"}
}

func (p Policy) toDocument() document {
	return document{
		Version:     p.Version,
		Description: p.Description,
		Permissions: permissionsDoc{
			Storage:     allowList{Allow: p.Permissions.Storage},
			Network:     networkAllowList{Allow: p.Permissions.Network},
			Environment: envAllowList{Allow: p.Permissions.Environment},
		},
		Resources: p.Resources,
	}
}

func fromDocument(d document) Policy {
	return Policy{
		Version:     d.Version,
		Description: d.Description,
		Permissions: Permissions{
			Storage:     d.Permissions.Storage.Allow,
			Network:     d.Permissions.Network.Allow,
			Environment: d.Permissions.Environment.Allow,
		},
		Resources: d.Resources,
	}
}
