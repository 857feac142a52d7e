package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Settings — defaults, YAML config file, env precedence
// =============================================================================

func TestLoadSettingsDefaults(t *testing.T) {
	s, err := LoadSettings(filepath.Join(t.TempDir(), "no-such-config.yml"))
	require.NoError(t, err)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".cache", "st-visium-datasets"), s.CacheDir)
	assert.Equal(t, PolicyMissing, s.DownloadPolicy)
	assert.Equal(t, PolicyMissing, s.ExtractPolicy)
	assert.True(t, s.ValidateChecksums)
	assert.False(t, s.DisableProgress)
	assert.Equal(t, 3, s.DownloadRetries)
	assert.Equal(t, 8192, s.BufferSize)
	assert.Positive(t, s.Workers())
}

func TestLoadSettingsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	body := `cache-dir: /tmp/visium-cache
download-policy: always
max-workers: 2
disable-progress: true
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/visium-cache", s.CacheDir)
	assert.Equal(t, PolicyAlways, s.DownloadPolicy)
	assert.Equal(t, 2, s.Workers())
	assert.True(t, s.DisableProgress)
	assert.Equal(t, path, s.ConfigPath)
}

func TestLoadSettingsEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("download-policy: always\n"), 0644))

	t.Setenv("ST_VISIUM_DATASETS_DOWNLOAD_POLICY", "never")
	t.Setenv("ST_VISIUM_DATASETS_MAX_WORKERS", "5")

	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, PolicyNever, s.DownloadPolicy)
	assert.Equal(t, 5, s.Workers())
}

func TestLoadSettingsInvalidPolicy(t *testing.T) {
	t.Setenv("ST_VISIUM_DATASETS_EXTRACT_POLICY", "sometimes")

	_, err := LoadSettings(filepath.Join(t.TempDir(), "none.yml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extract-policy")
}

func TestLoadSettingsExpandsTilde(t *testing.T) {
	t.Setenv("ST_VISIUM_DATASETS_CACHE_DIR", "~/visium-cache")

	s, err := LoadSettings(filepath.Join(t.TempDir(), "none.yml"))
	require.NoError(t, err)

	home, _ := os.UserHomeDir()
	assert.Equal(t, filepath.Join(home, "visium-cache"), s.CacheDir)
}

func TestLoadSettingsInvalidRetries(t *testing.T) {
	t.Setenv("ST_VISIUM_DATASETS_DOWNLOAD_RETRIES", "0")

	_, err := LoadSettings(filepath.Join(t.TempDir(), "none.yml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "download-retries")
}
