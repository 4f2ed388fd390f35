package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unset the variables read by ApplyEnv, t.Setenv restores them after the test
func clearEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{"GITHUB_TOKEN", "PORT", "LOG_LEVEL"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadFileWithoutPathUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFile("")

	require.NoError(t, err)
	assert.Equal(t, GetDefault(), cfg)
}

func TestLoadFileMissingFile(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "config.toml"))

	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestApplyEnv(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		expected func(cfg *Config)
	}{
		{
			name:     "No environment variables keeps defaults",
			env:      map[string]string{},
			expected: func(cfg *Config) {},
		},
		{
			name: "Token, port and level overridden",
			env: map[string]string{
				"GITHUB_TOKEN": "ghp_test",
				"PORT":         "8080",
				"LOG_LEVEL":    "warn",
			},
			expected: func(cfg *Config) {
				cfg.Github.Token = "ghp_test"
				cfg.API.ListenPort = "8080"
				cfg.Logs.Level = "warn"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)

			for key, value := range tt.env {
				t.Setenv(key, value)
			}

			expected := GetDefault()
			tt.expected(expected)

			cfg := GetDefault()
			err := ApplyEnv(cfg)

			assert.NoError(t, err)
			assert.Equal(t, expected, cfg)
		})
	}
}

func TestLoadFileFromToml(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFile("config.toml")

	require.NoError(t, err)
	assert.Equal(t, "5000", cfg.API.ListenPort)
	assert.Equal(t, "", cfg.Github.Token)
	assert.Equal(t, 30, cfg.Github.ResultsPerPage)
	assert.Equal(t, 10, cfg.Github.RequestTimeoutSeconds)
	assert.Equal(t, 8, cfg.Tasks.MaxParallelTasksAllowed)
	assert.Equal(t, 1000, cfg.Sessions.MaxSessions)
	assert.Equal(t, 1800, cfg.Sessions.IdleTTLSeconds)
	assert.Equal(t, 60, cfg.Sessions.CleanupIntervalSeconds)
	assert.Equal(t, "info", cfg.Logs.Level)
	assert.False(t, cfg.Logs.OutputLogsAsJSON)
	assert.Equal(t, "popular-repos", cfg.Logs.ServiceName)
}

func TestLoadFileEnvOverridesToml(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("GITHUB_TOKEN", "ghp_test")

	cfg, err := LoadFile("config.toml")

	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Logs.Level)
	assert.Equal(t, "ghp_test", cfg.Github.Token)
	assert.Equal(t, 1000, cfg.Sessions.MaxSessions)
}
