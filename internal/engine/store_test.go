package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wassette/internal/schema"
)

type fakeInstance struct {
	result interface{}
	err    error
	closed bool
}

func (f *fakeInstance) Call(ctx context.Context, name string, args ...interface{}) (interface{}, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeInstance) Close(ctx context.Context) error {
	f.closed = true
	return nil
}

func TestInstanceCallConvertsNativeResult(t *testing.T) {
	inst := &Instance{identity: "time-server", inst: &fakeInstance{result: "hello"}}

	results, err := inst.Call(context.Background(), "greet", nil, []schema.Type{{Kind: schema.KindString}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "hello", results[0].Str)
}

func TestInstanceCallWrapsTrapAsGuestTrapError(t *testing.T) {
	inst := &Instance{identity: "time-server", inst: &fakeInstance{err: errors.New("unreachable")}}

	_, err := inst.Call(context.Background(), "greet", nil, []schema.Type{{Kind: schema.KindString}})
	require.Error(t, err)
	var trap *GuestTrapError
	require.ErrorAs(t, err, &trap)
	assert.Equal(t, "time-server", trap.Identity)
}

func TestInstanceCloseDelegates(t *testing.T) {
	fi := &fakeInstance{}
	inst := &Instance{identity: "x", inst: fi}
	require.NoError(t, inst.Close(context.Background()))
	assert.True(t, fi.closed)
}
