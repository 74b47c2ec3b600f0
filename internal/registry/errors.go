package registry

import "fmt"

// DuplicateToolError reports that a newly loaded component exports a tool
// name already claimed by a different component. The load is rejected in
// full; nothing from the new component is registered.
type DuplicateToolError struct {
	ToolName         string
	ExistingIdentity string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool %q is already registered by component %q", e.ToolName, e.ExistingIdentity)
}

func (e *DuplicateToolError) Kind() string { return "DuplicateTool" }

// NotFoundError reports that an identity or tool name has no registry
// entry.
type NotFoundError struct {
	What string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("not found: %s", e.What) }

func (e *NotFoundError) Kind() string { return "NotFound" }
