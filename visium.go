// Package visium loads the st-visium-datasets collection: a spatial
// transcriptomics atlas of published 10x Genomics Visium samples, addressable
// by organism and tissue.
//
// The one-call path is Load:
//
//	ds, err := visium.Load(ctx, "human_skin")
//
// Every call is bound to the published dataset identifier DatasetID; callers
// pick a configuration name (see Configs) and optionally tune the fetch with
// functional options. All heavy lifting — network fetch, on-disk caching,
// archive extraction, dataset preparation — happens behind the Loader
// interface, which tests can swap with WithLoader.
package visium

import (
	"context"

	"github.com/st-atlas/visium-datasets/catalog"
)

// DatasetID is the published dataset identifier every load call is bound to.
const DatasetID = "st-atlas/st-visium-datasets"

// DefaultConfig is the configuration used when no name is given.
const DefaultConfig = "all"

// LoadRequest is the full argument set handed to a Loader: the pinned dataset
// identifier, the configuration name exactly as the caller gave it (after the
// empty-name default), and the options verbatim.
type LoadRequest struct {
	Repo    string
	Name    string
	Options Options
}

// Loader is the backend seam. The default loader runs the fetch-and-prepare
// pipeline against the local cache; tests install stubs via WithLoader.
type Loader interface {
	Load(ctx context.Context, req LoadRequest) (*Dataset, error)
}

// Load loads the named configuration of the atlas. An empty name loads
// DefaultConfig. The name and all options are forwarded to the backend
// unmodified; failures surface exactly as the backend returned them.
func Load(ctx context.Context, name string, opts ...Option) (*Dataset, error) {
	cfg := newConfig(opts)
	if name == "" {
		name = DefaultConfig
	}
	return cfg.loader.Load(ctx, LoadRequest{
		Repo:    DatasetID,
		Name:    name,
		Options: cfg.opts,
	})
}

// Configs returns the documented configuration names: "all", one per
// species, and one per species/tissue pair. Individual sample names also
// load but are not listed.
func Configs() ([]string, error) {
	cat, err := catalog.Embedded("")
	if err != nil {
		return nil, err
	}
	return cat.Names(), nil
}

// Builder is the two-phase surface: inspect a configuration's aggregate info,
// then download and prepare it.
type Builder struct {
	name string
	cfg  config
	agg  *catalog.Aggregate

	ds *Dataset
}

// NewBuilder resolves a configuration name against the catalog without
// touching the network. An empty name resolves to DefaultConfig.
func NewBuilder(name string, opts ...Option) (*Builder, error) {
	cfg := newConfig(opts)
	if name == "" {
		name = DefaultConfig
	}

	cat, err := catalog.Embedded(cfg.opts.Revision)
	if err != nil {
		return nil, err
	}
	agg, err := cat.Resolve(name)
	if err != nil {
		return nil, err
	}

	return &Builder{name: name, cfg: cfg, agg: agg}, nil
}

// Name returns the resolved (canonical) configuration name.
func (b *Builder) Name() string { return b.agg.Name }

// Info returns the aggregate info summed over member samples.
func (b *Builder) Info() Info {
	return Info{
		Name:             b.agg.Name,
		Samples:          len(b.agg.Samples),
		SpotsUnderTissue: b.agg.Info.SpotsUnderTissue,
		GenesDetected:    b.agg.Info.GenesDetected,
	}
}

// DownloadAndPrepare runs the load and caches the result for Dataset.
func (b *Builder) DownloadAndPrepare(ctx context.Context) error {
	ds, err := b.cfg.loader.Load(ctx, LoadRequest{
		Repo:    DatasetID,
		Name:    b.name,
		Options: b.cfg.opts,
	})
	if err != nil {
		return err
	}
	b.ds = ds
	return nil
}

// Dataset returns the prepared dataset, loading it first if
// DownloadAndPrepare has not run.
func (b *Builder) Dataset(ctx context.Context) (*Dataset, error) {
	if b.ds == nil {
		if err := b.DownloadAndPrepare(ctx); err != nil {
			return nil, err
		}
	}
	return b.ds, nil
}
