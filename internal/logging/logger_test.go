package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("valid combinations", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error"} {
			for _, format := range []string{"json", "console"} {
				logger, err := New(level, format)
				require.NoError(t, err, "%s/%s", level, format)
				require.NotNil(t, logger)
				assert.NoError(t, Sync(logger))
			}
		}
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := New("verbose", "json")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("invalid format", func(t *testing.T) {
		_, err := New("info", "xml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log format")
	})
}
