// Package catalog loads the embedded dataset configuration files and derives
// the named configurations callers can load: "all", one per species, one per
// species/anatomical-entity pair, and one per individual sample. Aggregate
// info (spot and gene counts) is summed over member samples.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"
)

// ErrUnknownConfig is returned by Resolve for names outside the catalog.
var ErrUnknownConfig = errors.New("unknown dataset configuration")

// DataFile identifies one remote file of a sample.
type DataFile struct {
	URL    string `json:"url"`
	MD5Sum string `json:"md5sum"`
	Bytes  int64  `json:"bytes"`
}

// Ext returns the full extension chain of the file URL ("" if none).
// Compound suffixes are preserved: "spatial.tar.gz" -> ".tar.gz".
func (f DataFile) Ext() string {
	path := f.URL
	if i := strings.Index(path, "?"); i >= 0 {
		path = path[:i]
	}
	if i := strings.LastIndex(path, "/"); i >= 0 {
		path = path[i+1:]
	}
	var ext string
	for {
		i := strings.LastIndex(path, ".")
		if i <= 0 {
			return ext
		}
		ext = path[i:] + ext
		path = path[:i]
	}
}

// Config describes one published Visium sample.
type Config struct {
	Name               string     `json:"name"`
	Homepage           string     `json:"homepage"`
	VisiumDatasetName  string     `json:"visium_dataset_name"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	License            string     `json:"license,omitempty"`
	PublishedAt        *time.Time `json:"published_at,omitempty"`
	Species            string     `json:"species"`
	AnatomicalEntity   string     `json:"anatomical_entity"`
	DiseaseState       string     `json:"disease_state"`
	PreservationMethod string     `json:"preservation_method,omitempty"`
	StainingMethod     string     `json:"staining_method,omitempty"`
	BiomaterialType    string     `json:"biomaterial_type,omitempty"`
	DonorCount         int        `json:"donor_count,omitempty"`
	DevelopmentStage   string     `json:"development_stage,omitempty"`
	SpotsUnderTissue   int        `json:"number_of_spots_under_tissue"`
	GenesDetected      int        `json:"number_of_genes_detected"`

	ImageTiff          DataFile `json:"image_tiff"`
	FeatureMatrixHDF5  DataFile `json:"feature_barcode_matrix_hdf5_filtered"`
	SpatialImagingData DataFile `json:"spatial_imaging_data"`
}

// Files returns the sample's data files keyed by role.
func (c *Config) Files() map[string]DataFile {
	return map[string]DataFile{
		"image_tiff":   c.ImageTiff,
		"matrix_hdf5":  c.FeatureMatrixHDF5,
		"spatial_data": c.SpatialImagingData,
	}
}

// Info carries aggregate counts for a configuration.
type Info struct {
	SpotsUnderTissue int
	GenesDetected    int
}

// Aggregate is a named configuration: one or more member samples.
type Aggregate struct {
	Name    string
	Species string // "" for "all"
	Entity  string // "" for species-wide aggregates
	Samples []*Config
	Info    Info
}

// Catalog holds all loaded sample configs and the derived aggregates.
type Catalog struct {
	Samples    []*Config
	aggregates map[string]*Aggregate
	names      []string // aggregate names in display order
}

// Canonical normalizes a configuration name: "/" and "_" become "-".
// "human_skin", "human/skin" and "human-skin" name the same configuration.
func Canonical(name string) string {
	return strings.NewReplacer("/", "-", "_", "-").Replace(name)
}

// Load reads every sample config JSON under dir in fsys and derives the
// aggregate configurations. Files are loaded in sorted path order for
// deterministic results. An empty catalog is an error.
func Load(fsys fs.FS, dir string) (*Catalog, error) {
	var paths []string
	err := fs.WalkDir(fsys, dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".json") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk catalog dir %q: %w", dir, err)
	}
	sort.Strings(paths)

	c := &Catalog{aggregates: make(map[string]*Aggregate)}
	for _, path := range paths {
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		var cfg Config
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if cfg.Name == "" {
			return nil, fmt.Errorf("parse %s: missing name", path)
		}
		c.Samples = append(c.Samples, &cfg)
	}

	if len(c.Samples) == 0 {
		return nil, fmt.Errorf("catalog is empty: no configs found in %q", dir)
	}

	c.derive()
	return c, nil
}

// derive builds the aggregate map: all, per species, per species+entity,
// plus a one-member aggregate per individual sample.
func (c *Catalog) derive() {
	add := func(name, species, entity string, cfg *Config) {
		agg, ok := c.aggregates[name]
		if !ok {
			agg = &Aggregate{Name: name, Species: species, Entity: entity}
			c.aggregates[name] = agg
			c.names = append(c.names, name)
		}
		agg.Samples = append(agg.Samples, cfg)
		agg.Info.SpotsUnderTissue += cfg.SpotsUnderTissue
		agg.Info.GenesDetected += cfg.GenesDetected
	}

	for _, cfg := range c.Samples {
		add("all", "", "", cfg)
	}
	// Species before species+entity so the display order reads top-down.
	for _, cfg := range c.Samples {
		add(cfg.Species, cfg.Species, "", cfg)
	}
	for _, cfg := range c.Samples {
		add(cfg.Species+"-"+cfg.AnatomicalEntity, cfg.Species, cfg.AnatomicalEntity, cfg)
	}
	for _, cfg := range c.Samples {
		add(cfg.Name, cfg.Species, cfg.AnatomicalEntity, cfg)
	}
}

// Names returns the aggregate configuration names: "all" first, then one per
// species, then one per species+entity. Individual sample names resolve but
// are not listed.
func (c *Catalog) Names() []string {
	var out []string
	for _, name := range c.names {
		agg := c.aggregates[name]
		// Sample-level aggregates share their name with the sample itself.
		if len(agg.Samples) == 1 && agg.Samples[0].Name == name {
			continue
		}
		out = append(out, name)
	}
	return out
}

// Resolve returns the aggregate for a configuration name. The empty name
// resolves to "all". Names are canonicalized before lookup.
func (c *Catalog) Resolve(name string) (*Aggregate, error) {
	if name == "" {
		name = "all"
	}
	name = Canonical(name)
	agg, ok := c.aggregates[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownConfig, name)
	}
	return agg, nil
}
