package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/korpling/annatto/pkg/status"
)

func TestInMemoryFromEnv(t *testing.T) {
	t.Run("unset is on disk and silent", func(t *testing.T) {
		ch := make(chan status.Message, 1)
		assert.False(t, InMemoryFromEnv(ch))
		assert.Empty(t, ch)
	})

	t.Run("true", func(t *testing.T) {
		t.Setenv(EnvInMemory, "true")
		assert.True(t, InMemoryFromEnv(nil))
	})

	t.Run("false", func(t *testing.T) {
		t.Setenv(EnvInMemory, "false")
		assert.False(t, InMemoryFromEnv(nil))
	})

	t.Run("invalid value warns and falls back on disk", func(t *testing.T) {
		t.Setenv(EnvInMemory, "xyz")
		ch := make(chan status.Message, 1)
		assert.False(t, InMemoryFromEnv(ch))
		require.Len(t, ch, 1)
		warning, ok := (<-ch).(status.Warning)
		require.True(t, ok)
		assert.Contains(t, warning.Message, EnvInMemory)
	})
}
