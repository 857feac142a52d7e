package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPaths(t *testing.T) {
	p := NewPaths("/cache")

	assert.Equal(t, "/cache", p.Root)
	assert.Equal(t, filepath.Join("/cache", "ledger.db"), p.LedgerDB)
	assert.Equal(t, filepath.Join("/cache", "downloads"), p.DownloadsDir)
	assert.Equal(t, filepath.Join("/cache", "extracted"), p.ExtractedDir)
	assert.Equal(t, filepath.Join("/cache", "datasets"), p.DatasetsDir)
}

func TestExtractDirStripsExtensionChain(t *testing.T) {
	p := NewPaths("/cache")

	assert.Equal(t, filepath.Join("/cache", "extracted", "abc123"),
		p.ExtractDir("/cache/downloads/abc123.tar.gz"))
	assert.Equal(t, filepath.Join("/cache", "extracted", "def456"),
		p.ExtractDir("/cache/downloads/def456.zip"))
}

func TestDatasetDir(t *testing.T) {
	p := NewPaths("/cache")
	assert.Equal(t, filepath.Join("/cache", "datasets", "visium-ffpe-human-skin-melanoma-1-3-0"),
		p.DatasetDir("visium-ffpe-human-skin-melanoma-1-3-0"))
}

func TestEnsureDirsIdempotent(t *testing.T) {
	p := NewPaths(filepath.Join(t.TempDir(), "cache"))

	require.NoError(t, p.EnsureDirs())
	require.NoError(t, p.EnsureDirs())

	for _, d := range []string{p.DownloadsDir, p.ExtractedDir, p.DatasetsDir} {
		info, err := os.Stat(d)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
