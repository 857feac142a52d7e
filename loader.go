package visium

import (
	"context"
	"fmt"

	"github.com/st-atlas/visium-datasets/catalog"
	"github.com/st-atlas/visium-datasets/internal/adapters/bbolt"
	"github.com/st-atlas/visium-datasets/internal/adapters/fsnotify"
	"github.com/st-atlas/visium-datasets/internal/adapters/httpfetch"
	"github.com/st-atlas/visium-datasets/internal/app"
	"github.com/st-atlas/visium-datasets/internal/ports"
)

// defaultLoader is the built-in backend: catalog resolution, the concurrent
// fetch run, and per-sample prepare against the local cache.
type defaultLoader struct{}

func (defaultLoader) Load(ctx context.Context, req LoadRequest) (*Dataset, error) {
	opts := req.Options

	if opts.Split != "" && opts.Split != "default" {
		return nil, fmt.Errorf("unknown split %q: the dataset has a single \"default\" split", opts.Split)
	}

	cat, err := catalog.Embedded(opts.Revision)
	if err != nil {
		return nil, err
	}
	agg, err := cat.Resolve(req.Name)
	if err != nil {
		return nil, err
	}

	settings, err := app.LoadSettings("")
	if err != nil {
		return nil, err
	}
	if opts.CacheDir != "" {
		settings.CacheDir = opts.CacheDir
	}
	if opts.Workers > 0 {
		settings.MaxWorkers = opts.Workers
	}

	paths := app.NewPaths(settings.CacheDir)
	if opts.DataDir != "" {
		paths.DatasetsDir = opts.DataDir
	}
	if err := paths.EnsureDirs(); err != nil {
		return nil, err
	}

	ledger, err := bbolt.NewStore(paths.LedgerDB)
	if err != nil {
		return nil, err
	}
	defer ledger.Close()

	engine := &app.Engine{
		Settings: settings,
		Paths:    paths,
		Fetcher:  httpfetch.NewFetcher(httpfetch.WithBufferSize(settings.BufferSize)),
		Ledger:   ledger,
	}
	if opts.Progress != nil {
		engine.Sink = sinkAdapter{opts.Progress}
	}
	// The watcher is best-effort: a platform without inotify still loads.
	if w, err := fsnotify.NewWatcher(); err == nil {
		engine.Watcher = w
	}

	files, err := engine.FetchAggregate(ctx, agg, app.FetchOptions{
		ForceDownload: opts.ForceDownload,
		ForceExtract:  opts.ForceExtract,
		Workers:       opts.Workers,
	})
	if err != nil {
		return nil, err
	}

	ds := &Dataset{
		Name: agg.Name,
		Info: Info{
			Name:             agg.Name,
			Samples:          len(agg.Samples),
			SpotsUnderTissue: agg.Info.SpotsUnderTissue,
			GenesDetected:    agg.Info.GenesDetected,
		},
	}

	prepare := app.PrepareOptions{
		SpotDiameter:    opts.SpotDiameter,
		OverviewLongest: opts.OverviewLongest,
		SpotCrops:       opts.SpotCrops,
		Streaming:       opts.Streaming,
	}
	for _, cfg := range agg.Samples {
		res, err := engine.Build(ctx, cfg, files[cfg.Name], prepare)
		if err != nil {
			return nil, err
		}
		ds.Samples = append(ds.Samples, Sample{
			Config:     res.Config,
			Dir:        res.Dir,
			Spots:      res.Spots,
			Diameter:   res.Diameter,
			ImagePath:  res.ImagePath,
			MatrixPath: res.MatrixPath,
			SpatialDir: res.SpatialDir,
		})
		ds.Warnings = append(ds.Warnings, res.Warnings...)
	}

	return ds, nil
}

// sinkAdapter bridges the public ProgressSink to the internal port.
type sinkAdapter struct {
	sink ProgressSink
}

func (a sinkAdapter) Start(task, name string, total int64) { a.sink.Start(task, name, total) }
func (a sinkAdapter) Advance(task, name string, n int64)   { a.sink.Advance(task, name, n) }
func (a sinkAdapter) Done(task, name string, err error)    { a.sink.Done(task, name, err) }

var _ ports.ProgressSink = sinkAdapter{}
