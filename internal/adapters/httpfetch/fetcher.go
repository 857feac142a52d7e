// Package httpfetch implements the ports.Fetcher interface over plain HTTP GET.
// Files stream to disk through an MD5 hasher, land under a temporary name, and
// are renamed into place only after the checksum verifies — a crash or a
// cancelled context never leaves a corrupt file under the final name.
package httpfetch

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/st-atlas/visium-datasets/internal/ports"
)

// ErrChecksum reports an MD5 mismatch between the downloaded bytes and the
// catalog's expected digest. Callers retry with force on this error.
var ErrChecksum = errors.New("checksum mismatch")

const defaultBufferSize = 8192

// Fetcher implements ports.Fetcher using net/http.
type Fetcher struct {
	client     *http.Client
	bufferSize int
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient swaps the HTTP client (tests point it at httptest servers).
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithBufferSize overrides the copy buffer size.
func WithBufferSize(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.bufferSize = n
		}
	}
}

// NewFetcher creates a fetcher. The default client has no overall timeout:
// dataset files run to tens of gigabytes, cancellation is the context's job.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		client: &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: 30 * time.Second,
			},
		},
		bufferSize: defaultBufferSize,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// LocalName returns the cache file name for a spec: <md5sum><ext>, or a hash
// of the URL when the catalog carries no checksum.
func LocalName(spec ports.FileSpec) string {
	id := spec.MD5Sum
	if id == "" {
		sum := md5.Sum([]byte(spec.URL))
		id = hex.EncodeToString(sum[:])
	}
	return id + spec.Ext
}

// Fetch downloads spec into destDir and returns the local path.
func (f *Fetcher) Fetch(ctx context.Context, spec ports.FileSpec, destDir string, force bool, sink ports.ProgressSink) (string, error) {
	if sink == nil {
		sink = ports.NopSink{}
	}

	destPath := filepath.Join(destDir, LocalName(spec))
	if !force {
		if _, err := os.Stat(destPath); err == nil {
			return destPath, nil
		}
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", err
	}

	err := f.download(ctx, spec, destPath, sink)
	if err != nil {
		return "", err
	}
	return destPath, nil
}

func (f *Fetcher) download(ctx context.Context, spec ports.FileSpec, destPath string, sink ports.ProgressSink) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, spec.URL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", spec.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("get %s: unexpected status %s", spec.URL, resp.Status)
	}

	total := resp.ContentLength
	if total < 0 {
		total = spec.Bytes
	}

	name := filepath.Base(destPath)
	sink.Start("download", name, total)

	tmp, err := os.CreateTemp(filepath.Dir(destPath), name+".part-*")
	if err != nil {
		sink.Done("download", name, err)
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after successful rename

	hash := md5.New()
	buf := make([]byte, f.bufferSize)
	_, copyErr := io.CopyBuffer(io.MultiWriter(tmp, hash, advanceWriter{sink, name}), resp.Body, buf)

	closeErr := tmp.Close()
	if copyErr != nil {
		sink.Done("download", name, copyErr)
		return fmt.Errorf("download %s: %w", spec.URL, copyErr)
	}
	if closeErr != nil {
		sink.Done("download", name, closeErr)
		return closeErr
	}

	if spec.MD5Sum != "" {
		got := hex.EncodeToString(hash.Sum(nil))
		if got != spec.MD5Sum {
			err := fmt.Errorf("%w: %s: got %s, want %s", ErrChecksum, spec.URL, got, spec.MD5Sum)
			sink.Done("download", name, err)
			return err
		}
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		sink.Done("download", name, err)
		return err
	}

	sink.Done("download", name, nil)
	return nil
}

// advanceWriter forwards written byte counts to the progress sink.
type advanceWriter struct {
	sink ports.ProgressSink
	name string
}

func (w advanceWriter) Write(p []byte) (int, error) {
	w.sink.Advance("download", w.name, int64(len(p)))
	return len(p), nil
}

// VerifyFile re-hashes a local file against an expected MD5 digest.
// Used by `visium verify` to audit the cache without trusting the ledger.
func VerifyFile(path, md5sum string, bufferSize int) error {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	fh, err := os.Open(path)
	if err != nil {
		return err
	}
	defer fh.Close()

	hash := md5.New()
	buf := make([]byte, bufferSize)
	if _, err := io.CopyBuffer(hash, fh, buf); err != nil {
		return err
	}

	got := hex.EncodeToString(hash.Sum(nil))
	if got != md5sum {
		return fmt.Errorf("%w: %s: got %s, want %s", ErrChecksum, filepath.Base(path), got, md5sum)
	}
	return nil
}
