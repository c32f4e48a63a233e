package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultModeIsCollect(t *testing.T) {
	store := NewStore()
	assert.Equal(t, ModeCollect, store.Get(42))
}

func TestSetAndReset(t *testing.T) {
	store := NewStore()

	store.Set(42, ModeAddingStock)
	assert.Equal(t, ModeAddingStock, store.Get(42))
	assert.Equal(t, ModeCollect, store.Get(7), "modes are per user")

	store.Reset(42)
	assert.Equal(t, ModeCollect, store.Get(42))
}
