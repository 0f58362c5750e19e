package config

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuration(t *testing.T) {
	t.Run("round-trips through text", func(t *testing.T) {
		var d Duration
		require.NoError(t, d.UnmarshalText([]byte("90s")))
		assert.Equal(t, 90*time.Second, d.Duration())

		text, err := d.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, "1m30s", string(text))
	})

	t.Run("rejects garbage", func(t *testing.T) {
		var d Duration
		assert.Error(t, d.UnmarshalText([]byte("soon")))
	})

	t.Run("rejects negative", func(t *testing.T) {
		var d Duration
		err := d.UnmarshalText([]byte("-5s"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "negative")
	})
}

func TestSecret(t *testing.T) {
	secret := Secret("ghp_secret123")

	t.Run("redacts in formatting", func(t *testing.T) {
		assert.Equal(t, "[REDACTED]", secret.String())
		assert.Equal(t, "[REDACTED]", fmt.Sprintf("%s", secret))
		assert.Equal(t, "Secret([REDACTED])", fmt.Sprintf("%#v", secret))
		assert.NotContains(t, fmt.Sprintf("%v", secret), "ghp_")
	})

	t.Run("redacts in JSON", func(t *testing.T) {
		data, err := json.Marshal(struct {
			Token Secret `json:"token"`
		}{Token: secret})
		require.NoError(t, err)
		assert.JSONEq(t, `{"token":"[REDACTED]"}`, string(data))
	})

	t.Run("empty stays empty", func(t *testing.T) {
		var empty Secret
		assert.Equal(t, "", empty.String())
		assert.False(t, empty.IsSet())

		data, err := json.Marshal(empty)
		require.NoError(t, err)
		assert.Equal(t, `""`, string(data))
	})

	t.Run("value is preserved", func(t *testing.T) {
		var s Secret
		require.NoError(t, s.UnmarshalText([]byte("raw-token")))
		assert.Equal(t, "raw-token", s.Value())
		assert.True(t, s.IsSet())
	})
}
