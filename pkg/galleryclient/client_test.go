package galleryclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chartgallery/internal/domain"
	"chartgallery/internal/gallery"
	"chartgallery/internal/httpapi"
	"chartgallery/internal/pipeline"
	"chartgallery/internal/util"
)

type stubGenerator struct {
	reqs []pipeline.BatchRequest
}

func (g *stubGenerator) Run(_ context.Context, req pipeline.BatchRequest) []pipeline.Outcome {
	g.reqs = append(g.reqs, req)
	return nil
}

func newGalleryServer(t *testing.T) (*httptest.Server, *gallery.Store, *stubGenerator) {
	t.Helper()
	gs, err := gallery.NewStore(t.TempDir(), gallery.WithLogger(util.DiscardLogger()))
	require.NoError(t, err)
	gen := &stubGenerator{}
	srv := httptest.NewServer(httpapi.NewGalleryServer(gs, gen, httpapi.WithLogger(util.DiscardLogger())).Handler())
	t.Cleanup(srv.Close)
	return srv, gs, gen
}

func TestNewClient(t *testing.T) {
	c := NewClient("http://localhost:8000/")
	assert.Equal(t, "http://localhost:8000", c.baseURL)
	assert.NotNil(t, c.httpClient)
	assert.Equal(t, "http://localhost:8000/AAPL_5y.html", c.ChartURL("AAPL_5y.html"))
}

func TestGenerateAndList(t *testing.T) {
	srv, gs, gen := newGalleryServer(t)
	c := NewClient(srv.URL)
	ctx := context.Background()

	require.NoError(t, c.Generate(ctx, []string{"aapl", "msft"}, 2.5, 14))
	require.Len(t, gen.reqs, 1)
	assert.Equal(t, []string{"AAPL", "MSFT"}, gen.reqs[0].Symbols)
	assert.Equal(t, 2.5, gen.reqs[0].Years)
	assert.Equal(t, 14, gen.reqs[0].Days)

	now := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	id := gallery.Name("AAPL", 2.5, 14, now, now)
	_, err := gs.Create(id, []byte("<html></html>"), gallery.NewManifest("AAPL", 2.5, 14, "t", now, now))
	require.NoError(t, err)

	idx, err := c.Charts(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, idx.Len())
	e := idx.Groups[0].Horizons[0].Entries[0]
	assert.Equal(t, gallery.ArtifactFile(id), e.Filename)
	assert.Equal(t, "AAPL", e.Label)

	require.NoError(t, c.Delete(ctx, e.Filename))
	idx, err = c.Charts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, idx.Len())
}

func TestGenerateValidationError(t *testing.T) {
	srv, _, gen := newGalleryServer(t)
	c := NewClient(srv.URL)

	err := c.Generate(context.Background(), nil, 5, 30)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, httpapi.ErrMsgMissingParameters, apiErr.Message)
	assert.Empty(t, gen.reqs)

	err = c.Generate(context.Background(), []string{"AAPL"}, 0, 30)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, httpapi.ErrMsgInvalidParameters, apiErr.Message)
}

func TestHealth(t *testing.T) {
	srv, _, _ := newGalleryServer(t)
	assert.NoError(t, NewClient(srv.URL).Health(context.Background()))
}

func TestRuns(t *testing.T) {
	started := time.UnixMilli(1717427045000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/runs", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		json.NewEncoder(w).Encode(httpapi.RunsResponse{Runs: []httpapi.RunJSON{{
			ID: "r1", BatchID: "b1", Symbol: "AAPL", Years: 5, Days: 30,
			Status: "failed", Stage: "fetch", Reason: "no data",
			StartedAt: started.UnixMilli(), DurationMs: 250,
		}}})
	}))
	defer srv.Close()

	runs, err := NewClient(srv.URL).Runs(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, domain.RunStatusFailed, runs[0].Status)
	assert.Equal(t, "fetch", runs[0].Stage)
	assert.Equal(t, 250*time.Millisecond, runs[0].Duration)
	assert.True(t, started.Equal(runs[0].StartedAt))
}

func TestServerErrorWithoutJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewClient(srv.URL).Health(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Empty(t, apiErr.Message)
}
