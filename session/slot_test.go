package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlot(t *testing.T) {
	slot := NewSlot()

	assert.NoError(t, slot.Acquire("a"))
	assert.NoError(t, slot.Acquire("a"), "owner may re-acquire")
	assert.ErrorIs(t, slot.Acquire("b"), ErrBusy)
	assert.Equal(t, "a", slot.Owner())

	slot.Release("b")
	assert.Equal(t, "a", slot.Owner(), "only the owner releases")

	slot.Release("a")
	assert.Empty(t, slot.Owner())
	assert.NoError(t, slot.Acquire("b"))
}
