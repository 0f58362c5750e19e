package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "squash", cfg.GitHub.MergeMethod)
	assert.Equal(t, 15*time.Second, cfg.GitHub.CIPollInterval.Duration())
	assert.Equal(t, 30*time.Minute, cfg.GitHub.CITimeout.Duration())
	assert.Equal(t, float64(5), cfg.GitHub.RequestsPerSecond)
	assert.False(t, cfg.GitHub.Token.IsSet())
	assert.Empty(t, cfg.Events.NATSURL)
	assert.Empty(t, cfg.Server.Addr)
}

func TestLoad_File(t *testing.T) {
	path := writeConfigFile(t, `
logging:
  level: debug
  format: console
events:
  nats_url: nats://localhost:4222
github:
  token: ghp_secret123
  merge_method: rebase
  ci_poll_interval: 5s
server:
  addr: :8080
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "nats://localhost:4222", cfg.Events.NATSURL)
	assert.Equal(t, "ghp_secret123", cfg.GitHub.Token.Value())
	assert.Equal(t, "rebase", cfg.GitHub.MergeMethod)
	assert.Equal(t, 5*time.Second, cfg.GitHub.CIPollInterval.Duration())
	// Unset fields still get defaults.
	assert.Equal(t, 30*time.Minute, cfg.GitHub.CITimeout.Duration())
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
logging:
  level: debug
github:
  token: from-file
`)
	t.Setenv("ORCHD_LOGGING_LEVEL", "warn")
	t.Setenv("ORCHD_GITHUB_TOKEN", "from-env")
	t.Setenv("ORCHD_EVENTS_NATS_URL", "nats://env:4222")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "from-env", cfg.GitHub.Token.Value())
	assert.Equal(t, "nats://env:4222", cfg.Events.NATSURL)
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"bad level", "logging:\n  level: verbose\n", "invalid logging level"},
		{"bad format", "logging:\n  format: xml\n", "invalid logging format"},
		{"bad merge method", "github:\n  merge_method: fast-forward\n", "invalid merge method"},
		{"negative rate", "github:\n  requests_per_second: -1\n", "requests_per_second"},
		{"negative duration", "github:\n  ci_timeout: -5m\n", "negative"},
		{"malformed yaml", "logging: [\n", "failed to load config file"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfigFile(t, tc.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoad_FileTooLarge(t *testing.T) {
	path := writeConfigFile(t, string(make([]byte, maxConfigFileSize+1)))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")
}
