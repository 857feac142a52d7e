package httpfetch

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/st-atlas/visium-datasets/internal/ports"
)

// =============================================================================
// HTTP Fetcher — streaming download, MD5-during-copy, atomic rename
// Expectation: verified files land as <md5sum><ext>, mismatches fail with
// ErrChecksum and leave nothing under the final name, cached files short-
// circuit unless force.
// =============================================================================

func md5hex(b []byte) string {
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}

// countingServer serves body and counts GETs.
type countingServer struct {
	*httptest.Server
	mu   sync.Mutex
	hits int
}

func newCountingServer(t *testing.T, body []byte) *countingServer {
	t.Helper()
	cs := &countingServer{}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cs.mu.Lock()
		cs.hits++
		cs.mu.Unlock()
		w.Write(body)
	}))
	t.Cleanup(cs.Close)
	return cs
}

func (cs *countingServer) count() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.hits
}

func TestFetchVerifiedDownload(t *testing.T) {
	body := []byte("tissue image bytes")
	srv := newCountingServer(t, body)
	dir := t.TempDir()

	f := NewFetcher()
	spec := ports.FileSpec{URL: srv.URL + "/img.tif", MD5Sum: md5hex(body), Ext: ".tif"}

	path, err := f.Fetch(context.Background(), spec, dir, false, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, md5hex(body)+".tif"), path)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, body, got)

	// No .part temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFetchChecksumMismatch(t *testing.T) {
	srv := newCountingServer(t, []byte("corrupted payload"))
	dir := t.TempDir()

	f := NewFetcher()
	spec := ports.FileSpec{URL: srv.URL + "/img.tif", MD5Sum: md5hex([]byte("expected payload")), Ext: ".tif"}

	_, err := f.Fetch(context.Background(), spec, dir, false, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrChecksum)

	// The corrupt file must not appear under the final name.
	_, statErr := os.Stat(filepath.Join(dir, LocalName(spec)))
	assert.True(t, os.IsNotExist(statErr))
}

func TestFetchCachedSkipsNetwork(t *testing.T) {
	body := []byte("already cached")
	srv := newCountingServer(t, body)
	dir := t.TempDir()

	f := NewFetcher()
	spec := ports.FileSpec{URL: srv.URL + "/a.h5", MD5Sum: md5hex(body), Ext: ".h5"}

	_, err := f.Fetch(context.Background(), spec, dir, false, nil)
	require.NoError(t, err)
	require.Equal(t, 1, srv.count())

	_, err = f.Fetch(context.Background(), spec, dir, false, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, srv.count(), "cached fetch must not hit the network")

	_, err = f.Fetch(context.Background(), spec, dir, true, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, srv.count(), "force must re-download")
}

func TestFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := NewFetcher()
	spec := ports.FileSpec{URL: srv.URL + "/gone.tif", Ext: ".tif"}

	_, err := f.Fetch(context.Background(), spec, t.TempDir(), false, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestFetchContextCancelled(t *testing.T) {
	srv := newCountingServer(t, []byte("body"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewFetcher()
	spec := ports.FileSpec{URL: srv.URL + "/x.tif", Ext: ".tif"}
	_, err := f.Fetch(ctx, spec, t.TempDir(), false, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

// recordingSink captures progress events for assertion.
type recordingSink struct {
	mu       sync.Mutex
	started  []string
	advanced int64
	done     []string
}

func (s *recordingSink) Start(task, name string, total int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = append(s.started, task+":"+name)
}

func (s *recordingSink) Advance(task, name string, n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advanced += n
}

func (s *recordingSink) Done(task, name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = append(s.done, task+":"+name)
}

func TestFetchReportsProgress(t *testing.T) {
	body := []byte("0123456789")
	srv := newCountingServer(t, body)

	sink := &recordingSink{}
	f := NewFetcher(WithBufferSize(4))
	spec := ports.FileSpec{URL: srv.URL + "/p.tif", MD5Sum: md5hex(body), Ext: ".tif"}

	_, err := f.Fetch(context.Background(), spec, t.TempDir(), false, sink)
	require.NoError(t, err)

	name := LocalName(spec)
	assert.Equal(t, []string{"download:" + name}, sink.started)
	assert.Equal(t, []string{"download:" + name}, sink.done)
	assert.Equal(t, int64(len(body)), sink.advanced)
}

func TestLocalNameWithoutChecksum(t *testing.T) {
	spec := ports.FileSpec{URL: "https://example.com/a/b.tar.gz", Ext: ".tar.gz"}
	name := LocalName(spec)
	assert.Equal(t, md5hex([]byte(spec.URL))+".tar.gz", name)
}

func TestVerifyFile(t *testing.T) {
	body := []byte("verify me")
	path := filepath.Join(t.TempDir(), "f.bin")
	require.NoError(t, os.WriteFile(path, body, 0644))

	assert.NoError(t, VerifyFile(path, md5hex(body), 0))

	err := VerifyFile(path, md5hex([]byte("other")), 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrChecksum)
}
