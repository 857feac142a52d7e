package visium

// Options is the open-ended pass-through option set. Every field travels to
// the Loader verbatim inside the LoadRequest; the facade reads none of them.
type Options struct {
	// CacheDir overrides the cache directory (downloads, extractions, ledger).
	CacheDir string
	// DataDir overrides where prepared dataset directories materialize.
	DataDir string
	// Split selects a split. The dataset has a single "default" split; ""
	// and "default" are accepted, anything else is an unknown-split error
	// from the backend.
	Split string
	// Streaming skips dataset materialization and returns references into
	// the extracted tree.
	Streaming bool
	// Workers bounds concurrent downloads (0 means the settings default).
	Workers int
	// TrustRemoteCode is forwarded for parity with generic dataset-loading
	// surfaces; the built-in backend runs no remote code and ignores it.
	TrustRemoteCode bool
	// Revision pins the embedded catalog version ("" means the default).
	Revision string

	ForceDownload bool
	ForceExtract  bool

	// SpotDiameter fixes the spot diameter in full-resolution pixels
	// (0 means "auto": derived from the sample's scalefactors).
	SpotDiameter int
	// OverviewLongest bounds the overview image's longest edge in pixels
	// (0 means the default bound, negative disables resizing).
	OverviewLongest int
	// SpotCrops writes one PNG crop per in-tissue spot.
	SpotCrops bool

	// Progress receives download and extraction events (nil means silent).
	Progress ProgressSink
}

// ProgressSink receives fetch progress events. Implementations must be safe
// for concurrent use.
type ProgressSink interface {
	Start(task, name string, total int64)
	Advance(task, name string, n int64)
	Done(task, name string, err error)
}

// config is the facade-level configuration assembled from options.
type config struct {
	opts   Options
	loader Loader
}

// Option configures a Load or Builder call.
type Option func(*config)

func newConfig(opts []Option) config {
	cfg := config{loader: defaultLoader{}}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithLoader swaps the backend. The zero value uses the built-in pipeline.
func WithLoader(l Loader) Option {
	return func(c *config) {
		if l != nil {
			c.loader = l
		}
	}
}

// WithOptions replaces the whole option set at once.
func WithOptions(o Options) Option {
	return func(c *config) { c.opts = o }
}

// WithCacheDir overrides the cache directory.
func WithCacheDir(dir string) Option {
	return func(c *config) { c.opts.CacheDir = dir }
}

// WithDataDir overrides where prepared datasets materialize.
func WithDataDir(dir string) Option {
	return func(c *config) { c.opts.DataDir = dir }
}

// WithSplit selects a split.
func WithSplit(split string) Option {
	return func(c *config) { c.opts.Split = split }
}

// WithStreaming toggles streaming mode.
func WithStreaming(on bool) Option {
	return func(c *config) { c.opts.Streaming = on }
}

// WithWorkers bounds concurrent downloads.
func WithWorkers(n int) Option {
	return func(c *config) { c.opts.Workers = n }
}

// WithTrustRemoteCode sets the pass-through trust flag.
func WithTrustRemoteCode(on bool) Option {
	return func(c *config) { c.opts.TrustRemoteCode = on }
}

// WithRevision pins the catalog revision.
func WithRevision(rev string) Option {
	return func(c *config) { c.opts.Revision = rev }
}

// WithForceDownload re-downloads files regardless of cache state.
func WithForceDownload(on bool) Option {
	return func(c *config) { c.opts.ForceDownload = on }
}

// WithForceExtract re-extracts archives regardless of cache state.
func WithForceExtract(on bool) Option {
	return func(c *config) { c.opts.ForceExtract = on }
}

// WithSpotDiameter fixes the spot diameter in full-resolution pixels.
func WithSpotDiameter(px int) Option {
	return func(c *config) { c.opts.SpotDiameter = px }
}

// WithOverviewLongest bounds the overview image's longest edge.
func WithOverviewLongest(px int) Option {
	return func(c *config) { c.opts.OverviewLongest = px }
}

// WithSpotCrops toggles per-spot PNG crops.
func WithSpotCrops(on bool) Option {
	return func(c *config) { c.opts.SpotCrops = on }
}

// WithProgress installs a progress sink.
func WithProgress(sink ProgressSink) Option {
	return func(c *config) { c.opts.Progress = sink }
}
