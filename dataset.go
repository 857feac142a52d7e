package visium

import (
	"github.com/st-atlas/visium-datasets/catalog"
	"github.com/st-atlas/visium-datasets/spots"
)

// Info is the aggregate description of a loaded configuration.
type Info struct {
	Name             string
	Samples          int
	SpotsUnderTissue int
	GenesDetected    int
}

// Sample is one prepared member sample of a loaded configuration.
type Sample struct {
	// Config is the catalog entry the sample was loaded from.
	Config *catalog.Config
	// Dir is the materialized dataset directory (config.json, spots.csv,
	// image products). Empty in streaming mode.
	Dir string
	// Spots is the parsed spot table.
	Spots spots.Table
	// Diameter is the resolved spot diameter in full-resolution pixels.
	Diameter int
	// ImagePath is the verified tissue image TIFF in the download cache.
	ImagePath string
	// MatrixPath is the verified filtered feature-barcode matrix (HDF5).
	// The matrix is checksum-verified but not decoded.
	MatrixPath string
	// SpatialDir is the extracted spatial imaging directory.
	SpatialDir string
}

// Dataset is the result of a load: the configuration's aggregate info plus
// every prepared member sample.
type Dataset struct {
	Name    string
	Info    Info
	Samples []Sample
	// Warnings collects non-fatal prepare findings (spot-count drift,
	// undecodable tissue images).
	Warnings []string
}
