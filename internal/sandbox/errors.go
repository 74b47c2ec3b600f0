package sandbox

import "fmt"

// PermissionDeniedError reports that a guest attempted an operation (a
// filesystem path, an outbound host, an environment variable) outside of
// its sandbox state.
type PermissionDeniedError struct {
	Identity  string
	Operation string
	Target    string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("component %s: permission denied: %s %s", e.Identity, e.Operation, e.Target)
}

func (e *PermissionDeniedError) Kind() string { return "PermissionDenied" }
