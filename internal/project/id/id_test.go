package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate(t *testing.T) {
	got := Generate()

	assert.True(t, strings.HasPrefix(got, Prefix))
	assert.True(t, Valid(got), got)
}

func TestGenerate_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		v := Generate()
		assert.False(t, seen[v], "duplicate id %s", v)
		seen[v] = true
	}
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("prj-1701432000-a1b2c3d4"))
	assert.True(t, Valid("prj-1701432000"))
	assert.False(t, Valid("job-1701432000-a1b2c3d4"))
	assert.False(t, Valid("prj-1701432000-A1B2C3D4"))
	assert.False(t, Valid("prj-../../etc"))
	assert.False(t, Valid(""))
}
