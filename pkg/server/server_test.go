package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gapradar/gapradar/internal/cache"
	"github.com/gapradar/gapradar/internal/store"
	"github.com/gapradar/gapradar/pkg/radar"
	"github.com/gapradar/gapradar/pkg/source"
)

func newTestServer(t *testing.T) (*Server, *store.SQLiteStore) {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	engine := radar.NewEngine(st, []string{"home espresso"}, 0, nil, nil, nil, nil)
	srv := New(st, engine, nil, cache.New(time.Minute), 0)
	return srv, st
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.handleHealth(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestOpportunitiesEndpoint(t *testing.T) {
	srv, st := newTestServer(t)

	require.NoError(t, st.UpsertOpportunity(context.Background(), &store.Opportunity{
		Niche:        "home espresso",
		AppScore:     40,
		ContentScore: 60,
		AdScore:      0,
		Overall:      50,
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/opportunities", nil)
	rec := httptest.NewRecorder()
	srv.handleOpportunities(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data  []store.Opportunity `json:"data"`
		Count int                 `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "home espresso", resp.Data[0].Niche)
	assert.Equal(t, 50, resp.Data[0].Overall)
}

func TestOpportunitiesCached(t *testing.T) {
	srv, st := newTestServer(t)

	require.NoError(t, st.UpsertOpportunity(context.Background(), &store.Opportunity{
		Niche: "home espresso", Overall: 50,
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/opportunities", nil)
	rec := httptest.NewRecorder()
	srv.handleOpportunities(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// A second opportunity written after the first request is not visible
	// until the cache entry expires or scoring invalidates it.
	require.NoError(t, st.UpsertOpportunity(context.Background(), &store.Opportunity{
		Niche: "meal prep", Overall: 70,
	}))

	rec = httptest.NewRecorder()
	srv.handleOpportunities(rec, httptest.NewRequest(http.MethodGet, "/api/v1/opportunities", nil))
	var resp struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)

	// Scoring deletes the cached listing.
	rec = httptest.NewRecorder()
	srv.handleScore(rec, httptest.NewRequest(http.MethodPost, "/api/v1/score", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.handleOpportunities(rec, httptest.NewRequest(http.MethodGet, "/api/v1/opportunities", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
}

func TestRecordsEndpointFilters(t *testing.T) {
	srv, st := newTestServer(t)

	ctx := context.Background()
	require.NoError(t, st.UpsertRecords(ctx, []source.Record{
		{ID: "yt:1", Source: source.SourceYouTube, Kind: source.KindVideo, Niche: "home espresso", Title: "latte art basics"},
		{ID: "as:1", Source: source.SourceAppStore, Kind: source.KindApp, Niche: "home espresso", Title: "Espresso Timer"},
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/records?source=youtube", nil)
	rec := httptest.NewRecorder()
	srv.handleRecords(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data  []source.Record `json:"data"`
		Count int             `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "yt:1", resp.Data[0].ID)
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/collect", nil)
	rec := httptest.NewRecorder()
	srv.handleCollect(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/records", nil)
	rec = httptest.NewRecorder()
	srv.handleRecords(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
