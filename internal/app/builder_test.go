package app

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"

	"github.com/st-atlas/visium-datasets/catalog"
)

// =============================================================================
// Prepare pipeline — spatial discovery, diameter resolution, materialization
// Expectation: nested spatial files resolve uniquely, "auto" diameter comes
// from scalefactors, streaming skips the dataset directory, undecodable
// images degrade to a spots-only dataset with a warning.
// =============================================================================

const builderPositionsCSV = "" +
	"AAACAAGTATCTCCCA-1,1,50,102,60,40\n" +
	"AAACAATCTACTAGCA-1,1,3,43,30,70\n" +
	"AAACACCAATAACTGC-1,0,59,19,80,20\n"

// writeSpatialTree lays out an extracted spatial directory.
func writeSpatialTree(t *testing.T, root string, scalefactors string) string {
	t.Helper()
	dir := filepath.Join(root, "spatial")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scalefactors_json.json"), []byte(scalefactors), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tissue_positions_list.csv"), []byte(builderPositionsCSV), 0644))
	return root
}

func writeBuilderTIFF(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			img.Set(x, y, color.RGBA{R: uint8(2 * x), G: uint8(2 * y), B: 0x60, A: 0xff})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, tiff.Encode(f, img, nil))
	require.NoError(t, f.Close())
}

func builderFixture(t *testing.T) (*Engine, *catalog.Config, SampleFiles) {
	t.Helper()
	e := newTestEngine(t, newStubFetcher())

	imgPath := filepath.Join(e.Paths.DownloadsDir, "img.tif")
	writeBuilderTIFF(t, imgPath)
	h5Path := filepath.Join(e.Paths.DownloadsDir, "matrix.h5")
	require.NoError(t, os.WriteFile(h5Path, []byte("hdf5"), 0644))

	spatialRoot := writeSpatialTree(t, filepath.Join(e.Paths.ExtractedDir, "spatial-root"),
		`{"spot_diameter_fullres": 9.2}`)

	cfg := &catalog.Config{
		Name:             "sample-a",
		Species:          "human",
		AnatomicalEntity: "skin",
		SpotsUnderTissue: 2,
	}
	files := SampleFiles{
		"image_tiff":   {Path: imgPath},
		"matrix_hdf5":  {Path: h5Path},
		"spatial_data": {Path: "ignored.tar.gz", ExtractDir: spatialRoot},
	}
	return e, cfg, files
}

func TestBuildMaterializes(t *testing.T) {
	e, cfg, files := builderFixture(t)

	res, err := e.Build(context.Background(), cfg, files, PrepareOptions{SpotCrops: true})
	require.NoError(t, err)

	assert.Equal(t, 10, res.Diameter) // ceil(9.2)
	assert.Len(t, res.Spots, 3)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, e.Paths.DatasetDir("sample-a"), res.Dir)

	assert.FileExists(t, filepath.Join(res.Dir, "config.json"))
	assert.FileExists(t, filepath.Join(res.Dir, "spots.csv"))
	assert.FileExists(t, filepath.Join(res.Dir, "spots.png"))

	// One crop per in-tissue spot.
	entries, err := os.ReadDir(filepath.Join(res.Dir, "spots"))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestBuildStreamingSkipsMaterialization(t *testing.T) {
	e, cfg, files := builderFixture(t)

	res, err := e.Build(context.Background(), cfg, files, PrepareOptions{Streaming: true})
	require.NoError(t, err)

	assert.Empty(t, res.Dir)
	assert.Len(t, res.Spots, 3)
	assert.Equal(t, files["spatial_data"].ExtractDir, res.SpatialDir)
	assert.NoDirExists(t, e.Paths.DatasetDir("sample-a"))
}

func TestBuildExplicitDiameterSkipsScalefactors(t *testing.T) {
	e, cfg, files := builderFixture(t)

	res, err := e.Build(context.Background(), cfg, files, PrepareOptions{SpotDiameter: 42, Streaming: true})
	require.NoError(t, err)
	assert.Equal(t, 42, res.Diameter)
}

func TestBuildSpotCountSmokeWarning(t *testing.T) {
	e, cfg, files := builderFixture(t)
	cfg.SpotsUnderTissue = 999

	res, err := e.Build(context.Background(), cfg, files, PrepareOptions{Streaming: true})
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "999")
}

func TestBuildUndecodableImageDegrades(t *testing.T) {
	e, cfg, files := builderFixture(t)
	badPath := filepath.Join(e.Paths.DownloadsDir, "big.tif")
	require.NoError(t, os.WriteFile(badPath, []byte("BigTIFF header we cannot decode"), 0644))
	files["image_tiff"] = LocalFile{Path: badPath}

	res, err := e.Build(context.Background(), cfg, files, PrepareOptions{})
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(res.Dir, "spots.csv"))
	assert.NoFileExists(t, filepath.Join(res.Dir, "spots.png"))
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[len(res.Warnings)-1], "not decoded")
}

func TestBuildMissingScalefactors(t *testing.T) {
	e, cfg, files := builderFixture(t)
	require.NoError(t, os.Remove(filepath.Join(files["spatial_data"].ExtractDir, "spatial", "scalefactors_json.json")))

	_, err := e.Build(context.Background(), cfg, files, PrepareOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locate scalefactors")
}

func TestBuildAmbiguousTissuePositions(t *testing.T) {
	e, cfg, files := builderFixture(t)
	// A second positions file at another nesting level makes discovery ambiguous.
	extra := filepath.Join(files["spatial_data"].ExtractDir, "tissue_positions.csv")
	require.NoError(t, os.WriteFile(extra, []byte("x"), 0644))

	_, err := e.Build(context.Background(), cfg, files, PrepareOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple matching files")
}

func TestFindNestedNone(t *testing.T) {
	_, err := findNested(t.TempDir(), isScalefactors)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no matching file")
}
