package visium

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/st-atlas/visium-datasets/catalog"
)

// =============================================================================
// Facade — argument forwarding fidelity
// Expectation: every call reaches the backend exactly once with the pinned
// dataset identifier, the caller's name ("" defaults to "all"), and the
// options untouched; backend results and errors pass through unmodified.
// =============================================================================

// stubLoader records requests and replays a canned result.
type stubLoader struct {
	reqs []LoadRequest
	ds   *Dataset
	err  error
}

func (s *stubLoader) Load(ctx context.Context, req LoadRequest) (*Dataset, error) {
	s.reqs = append(s.reqs, req)
	return s.ds, s.err
}

func TestLoadForwardsNameAndDatasetID(t *testing.T) {
	names, err := Configs()
	require.NoError(t, err)
	require.NotEmpty(t, names)

	for _, name := range names {
		stub := &stubLoader{ds: &Dataset{Name: name}}

		ds, err := Load(context.Background(), name, WithLoader(stub))
		require.NoError(t, err, name)

		require.Len(t, stub.reqs, 1, name)
		assert.Equal(t, DatasetID, stub.reqs[0].Repo, name)
		assert.Equal(t, name, stub.reqs[0].Name, name)
		assert.Same(t, stub.ds, ds, name)
	}
}

func TestLoadEmptyNameDefaultsToAll(t *testing.T) {
	stub := &stubLoader{ds: &Dataset{}}

	_, err := Load(context.Background(), "", WithLoader(stub))
	require.NoError(t, err)

	require.Len(t, stub.reqs, 1)
	assert.Equal(t, "all", stub.reqs[0].Name)
}

func TestLoadForwardsOptionsVerbatim(t *testing.T) {
	stub := &stubLoader{ds: &Dataset{}}

	_, err := Load(context.Background(), "human_skin",
		WithLoader(stub),
		WithCacheDir("/tmp/cache"),
		WithDataDir("/tmp/data"),
		WithSplit("default"),
		WithStreaming(true),
		WithWorkers(4),
		WithTrustRemoteCode(true),
		WithRevision("v1"),
		WithForceDownload(true),
		WithForceExtract(true),
		WithSpotDiameter(55),
		WithOverviewLongest(-1),
		WithSpotCrops(true),
	)
	require.NoError(t, err)

	require.Len(t, stub.reqs, 1)
	req := stub.reqs[0]
	assert.Equal(t, "human_skin", req.Name, "name must not be rewritten by the facade")
	assert.Equal(t, Options{
		CacheDir:        "/tmp/cache",
		DataDir:         "/tmp/data",
		Split:           "default",
		Streaming:       true,
		Workers:         4,
		TrustRemoteCode: true,
		Revision:        "v1",
		ForceDownload:   true,
		ForceExtract:    true,
		SpotDiameter:    55,
		OverviewLongest: -1,
		SpotCrops:       true,
	}, req.Options)
}

func TestLoadPropagatesBackendErrorUnmodified(t *testing.T) {
	backendErr := errors.New("unknown dataset configuration: \"human-tail\"")
	stub := &stubLoader{err: backendErr}

	ds, err := Load(context.Background(), "human-tail", WithLoader(stub))
	assert.Nil(t, ds)
	assert.Same(t, backendErr, err) // not caught, wrapped, or reclassified
}

func TestDefaultLoaderRejectsUnknownName(t *testing.T) {
	_, err := Load(context.Background(), "human-tail", WithCacheDir(t.TempDir()))
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrUnknownConfig)
}

func TestDefaultLoaderRejectsUnknownSplit(t *testing.T) {
	_, err := Load(context.Background(), "human_skin", WithCacheDir(t.TempDir()), WithSplit("train"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown split "train"`)
}

func TestConfigsMatchesDocumentedSet(t *testing.T) {
	names, err := Configs()
	require.NoError(t, err)
	assert.Len(t, names, 24)
	assert.Contains(t, names, "all")
	assert.Contains(t, names, "human-skin")
	assert.Contains(t, names, "mouse-olfactory-bulb")
}

// =============================================================================
// Builder — two-phase load
// =============================================================================

func TestBuilderInfoWithoutNetwork(t *testing.T) {
	b, err := NewBuilder("human", WithLoader(&stubLoader{}))
	require.NoError(t, err)

	info := b.Info()
	assert.Equal(t, "human", info.Name)
	assert.Equal(t, 15, info.Samples)
	assert.Positive(t, info.SpotsUnderTissue)
	assert.Positive(t, info.GenesDetected)
}

func TestBuilderResolvesCanonicalName(t *testing.T) {
	b, err := NewBuilder("human/skin")
	require.NoError(t, err)
	assert.Equal(t, "human-skin", b.Name())
}

func TestBuilderUnknownName(t *testing.T) {
	_, err := NewBuilder("marsupial")
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrUnknownConfig)
}

func TestBuilderDatasetRunsLoadOnce(t *testing.T) {
	stub := &stubLoader{ds: &Dataset{Name: "human-skin"}}
	b, err := NewBuilder("human_skin", WithLoader(stub))
	require.NoError(t, err)

	require.NoError(t, b.DownloadAndPrepare(context.Background()))
	ds, err := b.Dataset(context.Background())
	require.NoError(t, err)
	assert.Same(t, stub.ds, ds)
	assert.Len(t, stub.reqs, 1, "Dataset must reuse the prepared result")

	// The builder forwards the caller's spelling, not the canonical name.
	assert.Equal(t, "human_skin", stub.reqs[0].Name)
}

func TestBuilderDatasetLazyLoad(t *testing.T) {
	stub := &stubLoader{ds: &Dataset{}}
	b, err := NewBuilder("mouse", WithLoader(stub))
	require.NoError(t, err)

	_, err = b.Dataset(context.Background())
	require.NoError(t, err)
	assert.Len(t, stub.reqs, 1)
}
