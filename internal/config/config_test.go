package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TRANSIT_API_KEY", "test-key")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://api.winnipegtransit.com/v3", cfg.Transit.BaseURL)
	assert.Equal(t, "test-key", cfg.Transit.APIKey)
	assert.Equal(t, 100, cfg.Transit.RateLimitRPM)
	assert.Equal(t, 8, cfg.Extract.FanoutConcurrency)
	assert.Equal(t, 0.2, cfg.Extract.FailureThreshold)
	assert.Equal(t, time.Hour, cfg.Extract.ScheduleWindow)
	assert.Equal(t, "./staging", cfg.StagingDir)
	assert.Equal(t, 1, cfg.Retry.Count)
	assert.Equal(t, 5*time.Minute, cfg.Retry.Backoff)
	assert.Equal(t, "winnipeg_transit", cfg.Database.Name)
	assert.Equal(t, 6379, cfg.Redis.Port)
	assert.Equal(t, "8080", cfg.API.Port)
}

func TestLoadMissingAPIKey(t *testing.T) {
	t.Setenv("TRANSIT_API_KEY", "")

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{
			name:  "Bad integer",
			key:   "FANOUT_CONCURRENCY",
			value: "many",
		},
		{
			name:  "Bad float",
			key:   "FANOUT_FAILURE_THRESHOLD",
			value: "half",
		},
		{
			name:  "Bad duration",
			key:   "RETRY_BACKOFF",
			value: "5 minutes",
		},
		{
			name:  "Threshold above one",
			key:   "FANOUT_FAILURE_THRESHOLD",
			value: "1.5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TRANSIT_API_KEY", "test-key")
			t.Setenv(tt.key, tt.value)

			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.env")
	content := "TRANSIT_API_KEY=from-file\nSTAGING_DIR=/data/staging\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("TRANSIT_API_KEY", "")
	os.Unsetenv("TRANSIT_API_KEY")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.Transit.APIKey)
	assert.Equal(t, "/data/staging", cfg.StagingDir)
}

func TestLoadMissingExplicitEnvFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.Error(t, err)
}
