package command

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/mirrorcore/internal/face"
)

func TestRouter_Dispatch(t *testing.T) {
	r := NewRouter()
	var got string
	r.AssignCommandHandler("FaceNeutralClip", func(content string) error {
		got = content
		return nil
	})

	require.NoError(t, r.Dispatch("FaceNeutralClip", "Joy"))
	assert.Equal(t, "Joy", got)
}

func TestRouter_UnknownCommand(t *testing.T) {
	r := NewRouter()
	err := r.Dispatch("Nope", "")
	assert.ErrorIs(t, err, face.ErrUnknownCommand)
	assert.Contains(t, err.Error(), "Nope")
}

func TestRouter_HandlerErrorPassesThrough(t *testing.T) {
	r := NewRouter()
	boom := errors.New("boom")
	r.AssignCommandHandler("X", func(string) error { return boom })

	assert.ErrorIs(t, r.Dispatch("X", ""), boom)
}

func TestRouter_ReassignReplaces(t *testing.T) {
	r := NewRouter()
	calls := 0
	r.AssignCommandHandler("X", func(string) error { calls += 10; return nil })
	r.AssignCommandHandler("X", func(string) error { calls++; return nil })

	require.NoError(t, r.Dispatch("X", ""))
	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"X"}, r.Names())
}
