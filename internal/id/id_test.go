package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHex(t *testing.T) {
	tok := Hex(16)
	assert.Len(t, tok, 32)

	// Two generations should not collide
	assert.NotEqual(t, tok, Hex(16))
}

func TestShort(t *testing.T) {
	s := Short()
	assert.Len(t, s, 16)
	assert.NotEqual(t, s, Short())
}
