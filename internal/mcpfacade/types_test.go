package mcpfacade

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type taxonomyError struct{ kind string }

func (e *taxonomyError) Error() string { return "boom" }
func (e *taxonomyError) Kind() string  { return e.kind }

func TestErrorKindUsesTaxonomy(t *testing.T) {
	err := &taxonomyError{kind: "NotFound"}
	assert.Equal(t, "NotFound", errorKind(err))
}

func TestErrorKindFallsBackForPlainErrors(t *testing.T) {
	assert.Equal(t, "Error", errorKind(errors.New("plain")))
}

func TestNoopRecorderDoesNotPanic(t *testing.T) {
	var r Recorder = noopRecorder{}
	r.ComponentLoaded()
	r.ComponentUnloaded()
	r.ToolCallSucceeded("some-tool")
	r.ToolCallFailed("some-tool", "NotFound")
}
