package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code, err := NewTokenCode()
		require.NoError(t, err)
		require.True(t, ValidTokenCode(code), code)
		require.Len(t, code, len("VIP-XXXX-XXXX-XXXX"))
		seen[code] = true
	}
	assert.Greater(t, len(seen), 190)
}

func TestValidTokenCode(t *testing.T) {
	assert.True(t, ValidTokenCode("VIP-7QK2-M9XD-4HTA"))
	assert.True(t, ValidTokenCode(NormalizeTokenCode("  vip-7qk2-m9xd-4hta ")))

	assert.False(t, ValidTokenCode(""))
	assert.False(t, ValidTokenCode("VIP-7QK2-M9XD"))
	assert.False(t, ValidTokenCode("VIP-0QK2-M9XD-4HTA"))
	assert.False(t, ValidTokenCode("ABC-7QK2-M9XD-4HTA"))
	assert.False(t, ValidTokenCode("VIP-7QK2-M9XD-4HTA-AAAA"))
	assert.False(t, ValidTokenCode("vip-7qk2-m9xd-4hta"))
}
