package archive

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Archive Extraction — tar.gz/zip unpack, manifest, traversal hardening
// Expectation: spatial archives extract with a completion manifest; members
// that escape the destination are rejected.
// =============================================================================

// writeTarGz builds a small spatial-style tar.gz fixture.
func writeTarGz(t *testing.T, path string, members map[string]string) {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, body := range members {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0644,
			Size:     int64(len(body)),
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}

func writeZip(t *testing.T, path string, members map[string]string) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range members {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}

var spatialMembers = map[string]string{
	"spatial/scalefactors_json.json": `{"spot_diameter_fullres": 89.4}`,
	"spatial/tissue_positions.csv":   "barcode,in_tissue,array_row,array_col,pxl_row_in_fullres,pxl_col_in_fullres\n",
	"spatial/tissue_hires_image.png": "png-bytes",
}

func TestExtractTarGz(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "sample_spatial.tar.gz")
	writeTarGz(t, src, spatialMembers)

	dest := filepath.Join(dir, "extracted")
	files, err := Extract(src, dest)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"spatial/scalefactors_json.json",
		"spatial/tissue_positions.csv",
		"spatial/tissue_hires_image.png",
	}, files)

	body, err := os.ReadFile(filepath.Join(dest, "spatial", "scalefactors_json.json"))
	require.NoError(t, err)
	assert.Contains(t, string(body), "spot_diameter_fullres")

	m, err := ReadManifest(dest)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, src, m.Source)
	assert.Len(t, m.Files, 3)
}

func TestExtractZip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "sample.zip")
	writeZip(t, src, spatialMembers)

	dest := filepath.Join(dir, "out")
	files, err := Extract(src, dest)
	require.NoError(t, err)
	assert.Len(t, files, 3)
}

func TestExtractDetectsByMagic(t *testing.T) {
	dir := t.TempDir()
	// Misleading name: gzip payload without a recognized extension.
	src := filepath.Join(dir, "payload.bin")
	writeTarGz(t, src, map[string]string{"a.txt": "hello"})

	dest := filepath.Join(dir, "out")
	files, err := Extract(src, dest)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, files)
}

func TestExtractRejectsNonArchive(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "image.tif")
	require.NoError(t, os.WriteFile(src, []byte("II*\x00 not an archive"), 0644))

	_, err := Extract(src, filepath.Join(dir, "out"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotExtractable)
}

func TestExtractRejectsXz(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "sample.tar.xz")
	require.NoError(t, os.WriteFile(src, []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}, 0644))

	_, err := Extract(src, filepath.Join(dir, "out"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xz")
}

func TestExtractRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "evil.tar.gz")
	writeTarGz(t, src, map[string]string{"../escape.txt": "nope"})

	dest := filepath.Join(dir, "out")
	_, err := Extract(src, dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes destination")

	_, statErr := os.Stat(filepath.Join(dir, "escape.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestReadManifestAbsent(t *testing.T) {
	m, err := ReadManifest(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestIsExtractable(t *testing.T) {
	assert.True(t, IsExtractable("x_spatial.tar.gz"))
	assert.True(t, IsExtractable("x.TGZ"))
	assert.True(t, IsExtractable("x.zip"))
	assert.False(t, IsExtractable("x_image.tif"))
	assert.False(t, IsExtractable("x.h5"))
}
