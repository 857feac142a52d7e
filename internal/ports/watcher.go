package ports

// Watcher monitors the downloads directory during a fetch run. The adapter
// reports files that are removed or truncated behind the pipeline's back so
// their ledger records can be invalidated. Only one Watch call should be
// active at a time.
type Watcher interface {
	// Watch starts monitoring dir (non-recursive). onInvalid is called with
	// the absolute path of each file that is removed, renamed away, or
	// truncated. The callback may be invoked from any goroutine.
	Watch(dir string, onInvalid func(path string)) error

	// Stop ends monitoring and releases all resources. After Stop returns,
	// no further onInvalid calls will fire. Safe to call multiple times.
	Stop() error
}
