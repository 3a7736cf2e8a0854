package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomHex(t *testing.T) {
	a, err := randomHex(4)
	require.NoError(t, err)
	b, err := randomHex(4)
	require.NoError(t, err)
	assert.Len(t, a, 8)
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, "01020304", a, "no fixed fallback bytes")
}

func TestNewSessionToken(t *testing.T) {
	a, err := NewSessionToken()
	require.NoError(t, err)
	b, err := NewSessionToken()
	require.NoError(t, err)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, hashSessionToken(a), "Redis never sees the raw token")
}
