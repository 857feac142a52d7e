package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/st-atlas/visium-datasets/catalog"
	"github.com/st-atlas/visium-datasets/internal/adapters/tiffimg"
	"github.com/st-atlas/visium-datasets/spots"
)

// PrepareOptions tune the per-sample prepare step.
type PrepareOptions struct {
	SpotDiameter    int  // 0 means "auto": ceil(spot_diameter_fullres)
	OverviewLongest int  // 0 means the default bound; negative disables resize
	SpotCrops       bool // write per-spot PNG crops
	Streaming       bool // reference the extracted tree, skip materialization
}

func (o PrepareOptions) overviewLongest() int {
	switch {
	case o.OverviewLongest == 0:
		return tiffimg.DefaultOverviewLongest
	case o.OverviewLongest < 0:
		return 0
	}
	return o.OverviewLongest
}

// SampleResult is one prepared sample.
type SampleResult struct {
	Config     *catalog.Config
	Dir        string // datasets/<name>/; "" in streaming mode
	Spots      spots.Table
	Diameter   int
	ImagePath  string // verified tissue TIFF under downloads/
	MatrixPath string // verified feature-barcode matrix HDF5
	SpatialDir string // extracted spatial directory
	Warnings   []string
}

// Build prepares one sample from its fetched files: locate the spatial
// metadata, parse the spot table, resolve the spot diameter, and (unless
// streaming) materialize the dataset directory.
func (e *Engine) Build(ctx context.Context, cfg *catalog.Config, files SampleFiles, opts PrepareOptions) (*SampleResult, error) {
	spatial, ok := files["spatial_data"]
	if !ok {
		return nil, fmt.Errorf("%s: no spatial data fetched", cfg.Name)
	}
	image, ok := files["image_tiff"]
	if !ok {
		return nil, fmt.Errorf("%s: no tissue image fetched", cfg.Name)
	}

	res := &SampleResult{
		Config:     cfg,
		ImagePath:  image.Path,
		MatrixPath: files["matrix_hdf5"].Path,
		SpatialDir: spatial.Dir(),
	}

	sfPath, err := findNested(res.SpatialDir, isScalefactors)
	if err != nil {
		return nil, fmt.Errorf("%s: locate scalefactors: %w", cfg.Name, err)
	}
	posPath, err := findNested(res.SpatialDir, isTissuePositions)
	if err != nil {
		return nil, fmt.Errorf("%s: locate tissue positions: %w", cfg.Name, err)
	}

	res.Spots, err = spots.ReadTissuePositionsFile(posPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Name, err)
	}

	res.Diameter = opts.SpotDiameter
	if res.Diameter <= 0 {
		sf, err := spots.ReadScalefactorsFile(sfPath)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", cfg.Name, err)
		}
		res.Diameter = sf.AutoDiameter()
	}

	// Smoke check against the catalog's documented count. Non-fatal: the
	// published counts have drifted across Space Ranger re-releases.
	if got := res.Spots.InTissue(); cfg.SpotsUnderTissue > 0 && got != cfg.SpotsUnderTissue {
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"%s: %d spots under tissue, catalog documents %d", cfg.Name, got, cfg.SpotsUnderTissue))
	}

	if opts.Streaming {
		return res, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := e.materialize(res, opts); err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Name, err)
	}
	return res, nil
}

// materialize writes the dataset directory: config.json, spots.csv, and the
// image products. TIFF decode failures degrade to a spots-only dataset.
func (e *Engine) materialize(res *SampleResult, opts PrepareOptions) error {
	dir := e.Paths.DatasetDir(res.Config.Name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	res.Dir = dir

	cfgJSON, err := json.MarshalIndent(res.Config, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "config.json"), cfgJSON, 0644); err != nil {
		return err
	}

	f, err := os.Create(filepath.Join(dir, "spots.csv"))
	if err != nil {
		return err
	}
	if err := res.Spots.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	img, err := tiffimg.DecodeTIFF(res.ImagePath)
	if err != nil {
		// BigTIFF and exotic encodings are expected in the wild; the spots
		// table is still valid without the image products.
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"tissue image not decoded, skipping crops and overview: %v", err))
		return nil
	}

	overview := tiffimg.Overview(img, res.Spots, float64(res.Diameter), opts.overviewLongest())
	if err := tiffimg.SavePNG(filepath.Join(dir, "spots.png"), overview); err != nil {
		return err
	}

	if opts.SpotCrops {
		if _, err := tiffimg.CropSpots(img, res.Spots, float64(res.Diameter), filepath.Join(dir, "spots")); err != nil {
			return err
		}
	}
	return nil
}

func isScalefactors(name string) bool {
	return name == "scalefactors_json.json"
}

func isTissuePositions(name string) bool {
	return name == "tissue_positions.csv" || name == "tissue_positions_list.csv"
}

// findNested walks dir for exactly one file matching the predicate.
// Zero matches and multiple matches are both errors.
func findNested(dir string, match func(name string) bool) (string, error) {
	var found []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && match(d.Name()) {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	switch len(found) {
	case 0:
		return "", fmt.Errorf("no matching file under %s", dir)
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("multiple matching files under %s: %s", dir, strings.Join(found, ", "))
	}
}
