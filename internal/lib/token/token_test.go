package token

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok, err := NewSessionToken()
		require.NoError(t, err)
		assert.Len(t, tok, 64)
		assert.False(t, seen[tok], "session tokens must not repeat")
		seen[tok] = true

		for _, c := range tok {
			assert.Contains(t, "0123456789abcdef", string(c))
		}
	}
}

func TestNewRedemptionKey(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		key, err := NewRedemptionKey()
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(key, KeyPrefix))
		body := strings.TrimPrefix(key, KeyPrefix)
		assert.Len(t, body, 16)
		for _, c := range body {
			assert.Contains(t, keyAlphabet, string(c))
		}
		assert.False(t, seen[key], "keys must not repeat")
		seen[key] = true
	}
}
