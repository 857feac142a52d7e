// Package ports defines the interfaces (contracts) that adapters must implement.
// These are the boundaries between the load pipeline and its infrastructure:
// HTTP fetching, the cache ledger, and cache-directory watching. Pipeline logic
// depends only on these interfaces, never on concrete implementations.
package ports

import "context"

// FileSpec identifies one remote file to fetch and how to verify it.
type FileSpec struct {
	URL    string
	MD5Sum string // expected hex digest; "" skips verification
	Bytes  int64  // expected size, advisory (progress totals)
	Ext    string // extension chain used for the local file name
}

// Fetcher downloads one remote file into the downloads directory.
//
// The local file name is derived from the checksum (<md5sum><ext>) so the same
// remote file is stored once regardless of which sample references it. Writes
// must be atomic: a partially written file may never appear under the final
// name. The checksum is computed during the copy; a mismatch is reported via
// an error that unwraps to a checksum sentinel so callers can retry with force.
type Fetcher interface {
	// Fetch downloads spec into destDir and returns the local path.
	// If force is false and the destination file already exists, it is
	// returned as-is without network I/O.
	Fetch(ctx context.Context, spec FileSpec, destDir string, force bool, sink ProgressSink) (string, error)
}

// ProgressSink receives download progress events. Implementations must be
// safe for concurrent use: the fetch run invokes them from worker goroutines.
type ProgressSink interface {
	// Start announces a unit of work (download, verify, extract) on a file.
	Start(task, name string, total int64)
	// Advance reports n more bytes processed for a started task.
	Advance(task, name string, n int64)
	// Done marks the task finished (err nil on success).
	Done(task, name string, err error)
}

// NopSink discards all progress events. The library default: only the CLI
// renders progress.
type NopSink struct{}

func (NopSink) Start(task, name string, total int64)  {}
func (NopSink) Advance(task, name string, n int64)    {}
func (NopSink) Done(task, name string, err error)     {}
