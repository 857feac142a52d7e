package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/st-atlas/visium-datasets/catalog"
	"github.com/st-atlas/visium-datasets/internal/adapters/archive"
	"github.com/st-atlas/visium-datasets/internal/adapters/httpfetch"
	"github.com/st-atlas/visium-datasets/internal/ports"
)

// ErrPolicyNever reports a cache miss under the "never" download policy.
var ErrPolicyNever = errors.New("file not cached and download policy is \"never\"")

// LocalFile is the on-disk result for one data file of a sample.
type LocalFile struct {
	Path       string // verified download under downloads/
	ExtractDir string // "" when the file is not an archive
}

// Dir returns the directory callers should read: the extraction directory
// for archives, the file itself otherwise.
func (f LocalFile) Dir() string {
	if f.ExtractDir != "" {
		return f.ExtractDir
	}
	return f.Path
}

// SampleFiles maps file role (image_tiff, matrix_hdf5, spatial_data) to its
// local result.
type SampleFiles map[string]LocalFile

// FetchOptions tune one fetch run on top of the settings' policies.
type FetchOptions struct {
	ForceDownload bool
	ForceExtract  bool
	Workers       int // 0 means Settings.Workers()
}

// Engine runs the fetch and prepare pipeline against a cache directory.
type Engine struct {
	Settings *Settings
	Paths    *Paths
	Fetcher  ports.Fetcher
	Ledger   ports.Ledger
	Watcher  ports.Watcher      // optional: invalidates ledger records mid-run
	Sink     ports.ProgressSink // nil means silent
}

func (e *Engine) sink() ports.ProgressSink {
	if e.Sink == nil || e.Settings.DisableProgress {
		return ports.NopSink{}
	}
	return e.Sink
}

// FetchAggregate downloads, verifies, and extracts every data file of every
// member sample of agg. Files shared between aggregates are fetched once:
// the cache key is the file checksum, not the sample. Returns local results
// keyed by sample name.
func (e *Engine) FetchAggregate(ctx context.Context, agg *catalog.Aggregate, opts FetchOptions) (map[string]SampleFiles, error) {
	if err := e.Paths.EnsureDirs(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()

	if e.Watcher != nil {
		if err := e.Watcher.Watch(e.Paths.DownloadsDir, func(path string) {
			// Best-effort: a record we cannot delete is re-verified next run.
			_ = e.Ledger.DeleteByPath(path)
		}); err != nil {
			return nil, fmt.Errorf("watch downloads dir: %w", err)
		}
		defer e.Watcher.Stop()
	}

	var (
		mu      sync.Mutex
		results = make(map[string]SampleFiles, len(agg.Samples))
	)

	workers := opts.Workers
	if workers <= 0 {
		workers = e.Settings.Workers()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, cfg := range agg.Samples {
		cfg := cfg
		mu.Lock()
		if _, ok := results[cfg.Name]; ok {
			mu.Unlock()
			continue // shared member across aggregate expansion
		}
		results[cfg.Name] = make(SampleFiles, 3)
		mu.Unlock()

		for role, file := range cfg.Files() {
			role, file := role, file
			g.Go(func() error {
				lf, err := e.fetchOne(gctx, file, runID, opts)
				if err != nil {
					return fmt.Errorf("%s/%s: %w", cfg.Name, role, err)
				}
				mu.Lock()
				results[cfg.Name][role] = lf
				mu.Unlock()
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// fetchOne resolves one data file: ledger lookup, policy gate, download with
// checksum retries, then extraction.
func (e *Engine) fetchOne(ctx context.Context, file catalog.DataFile, runID string, opts FetchOptions) (LocalFile, error) {
	spec := ports.FileSpec{
		URL:   file.URL,
		Bytes: file.Bytes,
		Ext:   file.Ext(),
	}
	if e.Settings.ValidateChecksums {
		spec.MD5Sum = file.MD5Sum
	}

	force := opts.ForceDownload || e.Settings.DownloadPolicy == PolicyAlways

	if !force {
		if path, ok := e.cached(file); ok {
			return e.extract(path, file, runID, opts)
		}
		if e.Settings.DownloadPolicy == PolicyNever {
			return LocalFile{}, fmt.Errorf("%w: %s", ErrPolicyNever, file.URL)
		}
	} else if e.Settings.DownloadPolicy == PolicyNever {
		return LocalFile{}, fmt.Errorf("%w: %s", ErrPolicyNever, file.URL)
	}

	path, err := e.download(ctx, spec, force)
	if err != nil {
		return LocalFile{}, err
	}

	if err := e.Ledger.Put(&ports.FileRecord{
		URL:        file.URL,
		MD5Sum:     file.MD5Sum,
		Bytes:      file.Bytes,
		LocalPath:  path,
		VerifiedAt: time.Now().Unix(),
		RunID:      runID,
	}); err != nil {
		return LocalFile{}, fmt.Errorf("record download: %w", err)
	}

	return e.extract(path, file, runID, opts)
}

// cached reports a usable prior download: a ledger record with the expected
// checksum whose file still exists.
func (e *Engine) cached(file catalog.DataFile) (string, bool) {
	rec, err := e.Ledger.Get(file.URL)
	if err != nil || rec == nil {
		return "", false
	}
	if e.Settings.ValidateChecksums && rec.MD5Sum != file.MD5Sum {
		return "", false
	}
	if _, err := os.Stat(rec.LocalPath); err != nil {
		return "", false
	}
	return rec.LocalPath, true
}

// download fetches with retries. A checksum mismatch forces a re-download on
// the next attempt; other errors fail immediately.
func (e *Engine) download(ctx context.Context, spec ports.FileSpec, force bool) (string, error) {
	var lastErr error
	for attempt := 0; attempt < e.Settings.DownloadRetries; attempt++ {
		path, err := e.Fetcher.Fetch(ctx, spec, e.Paths.DownloadsDir, force || attempt > 0, e.sink())
		if err == nil {
			return path, nil
		}
		lastErr = err
		if !errors.Is(err, httpfetch.ErrChecksum) {
			return "", err
		}
		// Stale ledger state for this URL is now meaningless.
		_ = e.Ledger.Delete(spec.URL)
	}
	return "", fmt.Errorf("giving up after %d attempts: %w", e.Settings.DownloadRetries, lastErr)
}

// extract unpacks an archive download per the extract policy and records the
// extraction in the ledger.
func (e *Engine) extract(path string, file catalog.DataFile, runID string, opts FetchOptions) (LocalFile, error) {
	if !archive.IsExtractable(path) {
		return LocalFile{Path: path}, nil
	}

	destDir := e.Paths.ExtractDir(path)
	force := opts.ForceExtract || e.Settings.ExtractPolicy == PolicyAlways

	if e.Settings.ExtractPolicy == PolicyNever && !opts.ForceExtract {
		return LocalFile{Path: path}, nil
	}

	if !force {
		if m, err := archive.ReadManifest(destDir); err == nil && m != nil {
			return LocalFile{Path: path, ExtractDir: destDir}, nil
		}
	}

	name := filepath.Base(destDir)
	e.sink().Start("extract", name, 0)
	_, err := archive.Extract(path, destDir)
	e.sink().Done("extract", name, err)
	if err != nil {
		return LocalFile{}, err
	}

	if rec, recErr := e.Ledger.Get(file.URL); recErr == nil && rec != nil {
		rec.Extracted = true
		rec.ExtractDir = destDir
		rec.RunID = runID
		_ = e.Ledger.Put(rec)
	}

	return LocalFile{Path: path, ExtractDir: destDir}, nil
}
