// Package configs embeds the dataset configuration catalog for compile-time inclusion.
// Each JSON file describes one published Visium sample: its provenance metadata and
// the three data files (tissue image, filtered feature-barcode matrix, spatial archive).
// Files are laid out as <version>/<species>/<anatomical-entity>/<name>.json.
//
// Usage:
//
//	catalog.Load(configs.FS, "v1")
package configs

import "embed"

//go:embed v1
var FS embed.FS
