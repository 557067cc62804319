package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequenceGenerator(t *testing.T) {
	gen := NewSequenceGenerator("user")
	assert.Equal(t, "user-1", gen.Generate())
	assert.Equal(t, "user-2", gen.Generate())

	assert.Equal(t, "id-1", NewSequenceGenerator("").Generate())
}
