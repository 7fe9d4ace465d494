package radar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gapradar/gapradar/internal/store"
	"github.com/gapradar/gapradar/pkg/demand"
	"github.com/gapradar/gapradar/pkg/source"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "radar.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seed(t *testing.T, s store.Store, records []source.Record) {
	t.Helper()
	now := time.Now().UTC()
	for i := range records {
		if records[i].ID == "" {
			records[i].ID = fmt.Sprintf("%s:%d", records[i].Source, i)
			records[i].ExternalID = records[i].ID
		}
		records[i].PublishedAt = now
		records[i].CollectedAt = now
	}
	require.NoError(t, s.UpsertRecords(context.Background(), records))
}

func TestShapeSignals(t *testing.T) {
	records := []source.Record{
		{Kind: source.KindApp, Installs: 50_000},
		{Kind: source.KindApp, Installs: 25_000},
		{Kind: source.KindReview, Title: "Meh", Text: "please add offline mode", Rating: 2},
		{Kind: source.KindVideo, Title: "Beginner guide", Duration: 200, Views: 10_000},
		{Kind: source.KindComment, Text: "does it sync?"},
		{Kind: source.KindPost, Title: "what app should i use", Text: "looking for recs"},
		{Kind: source.KindAd, Advertiser: "acme", DaysActive: 120, Impressions: 40_000},
	}

	sig := ShapeSignals(records)

	assert.Equal(t, 75_000.0, sig.App.Downloads)
	require.Len(t, sig.App.Reviews, 1)
	assert.Equal(t, "Meh please add offline mode", sig.App.Reviews[0].Text)
	assert.Len(t, sig.Content.Videos, 1)
	assert.Len(t, sig.Content.Comments, 2) // comment + post
	assert.Len(t, sig.Ads.Ads, 1)
}

func TestScanEmptyNiche(t *testing.T) {
	s := newTestStore(t)
	engine := NewEngine(s, []string{"ghost-town"}, 0, nil, nil, nil, nil)

	opps, err := engine.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, opps, 1)

	// No data at all reads as zero demand across the board.
	assert.Equal(t, 0, opps[0].Overall)
	assert.Equal(t, 0, opps[0].AppScore)
	assert.Equal(t, 0, opps[0].AppSamples)
	assert.Equal(t, 0, opps[0].ContentSamples)
	assert.Equal(t, 0, opps[0].AdSamples)
}

func TestScanScoresAndPersists(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, []source.Record{
		{Source: source.SourceAppStore, Niche: "meditation", Kind: source.KindApp, Installs: 100_000},
		{Source: source.SourceAppStore, Niche: "meditation", Kind: source.KindReview, Text: "please add a sleep timer", Rating: 2},
		{Source: source.SourceAppStore, Niche: "meditation", Kind: source.KindReview, Text: "works great", Rating: 5},
		{Source: source.SourceYouTube, Niche: "meditation", Kind: source.KindVideo, Title: "Beginner guide", Duration: 200, Views: 10_000},
		{Source: source.SourceYouTube, Niche: "meditation", Kind: source.KindComment, Text: "is there an android version?"},
	})

	engine := NewEngine(s, []string{"meditation"}, 0, nil, nil, nil, nil)
	opps, err := engine.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, opps, 1)

	opp := opps[0]
	assert.Greater(t, opp.AppScore, 0)
	assert.Greater(t, opp.ContentScore, 0)
	assert.Equal(t, 0, opp.AdScore)
	assert.Equal(t, 2, opp.AppSamples)
	assert.Equal(t, 2, opp.ContentSamples)

	// Ad channel has no sample so the overall averages only app+content.
	expected := (opp.AppScore + opp.ContentScore) / 2
	assert.InDelta(t, expected, opp.Overall, 1)

	// Persisted with breakdown.
	got, err := s.GetOpportunity(context.Background(), "meditation")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, opp.Overall, got.Overall)
	assert.Contains(t, got.Breakdown, "app")
	assert.Contains(t, got.Breakdown["app"], "download_volume")
}

func TestScanSortsByOverall(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, []source.Record{
		{Source: source.SourceAppStore, Niche: "hot", Kind: source.KindApp, Installs: 1_000_000},
		{Source: source.SourceAppStore, Niche: "hot", Kind: source.KindReview, Text: "please add widgets, would love folders", Rating: 1},
		{Source: source.SourceAppStore, Niche: "cold", Kind: source.KindApp, Installs: 100},
	})

	engine := NewEngine(s, []string{"cold", "hot"}, 0, nil, nil, nil, nil)
	opps, err := engine.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, opps, 2)
	assert.Equal(t, "hot", opps[0].Niche)
	assert.Greater(t, opps[0].Overall, opps[1].Overall)
}

func TestScanIgnoresRecordsOutsideWindow(t *testing.T) {
	s := newTestStore(t)
	old := time.Now().UTC().Add(-30 * 24 * time.Hour)
	require.NoError(t, s.UpsertRecord(context.Background(), &source.Record{
		ID: "appstore:old", Source: source.SourceAppStore, ExternalID: "old",
		Niche: "meditation", Kind: source.KindApp, Installs: 1_000_000,
		PublishedAt: old, CollectedAt: old,
	}))

	engine := NewEngine(s, []string{"meditation"}, 24*time.Hour, nil, nil, nil, nil)
	opps, err := engine.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, opps, 1)
	assert.Equal(t, 0, opps[0].Overall)
}

func TestScanFallsBackToLexiconOnLLMError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	records := []source.Record{
		{Source: source.SourceAppStore, Niche: "meditation", Kind: source.KindApp, Installs: 100_000},
		{Source: source.SourceAppStore, Niche: "meditation", Kind: source.KindReview, Text: "please add a sleep timer", Rating: 2},
		{Source: source.SourceAppStore, Niche: "meditation", Kind: source.KindReview, Text: "works great", Rating: 5},
	}

	s := newTestStore(t)
	seed(t, s, records)
	llm := demand.NewLLMClassifier("openai", "test-model", "test-key", srv.URL)
	engine := NewEngine(s, []string{"meditation"}, 0, nil, nil, nil, llm)

	opps, err := engine.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, opps, 1)

	// Same scores a lexicon-only engine produces.
	plain := newTestStore(t)
	seed(t, plain, records)
	plainEngine := NewEngine(plain, []string{"meditation"}, 0, nil, nil, nil, nil)
	plainOpps, err := plainEngine.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, plainOpps, 1)

	assert.Equal(t, plainOpps[0].AppScore, opps[0].AppScore)
	assert.Greater(t, opps[0].AppScore, 0)
}

func TestScanAppliesLLMLabels(t *testing.T) {
	// The classifier flags the praise review as a negative feature request;
	// its labels must override the lexicon and rating heuristics.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := json.Marshal(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": `[{"i":0,"feature_request":true,"negative":true}]`}},
			},
		})
		w.Write(body)
	}))
	defer srv.Close()

	s := newTestStore(t)
	seed(t, s, []source.Record{
		{Source: source.SourceAppStore, Niche: "meditation", Kind: source.KindReview, Text: "works great", Rating: 5},
	})
	llm := demand.NewLLMClassifier("openai", "test-model", "test-key", srv.URL)
	engine := NewEngine(s, []string{"meditation"}, 0, nil, nil, nil, llm)

	opps, err := engine.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, opps, 1)

	// negative ratio 100*0.3 + request density 100*0.4 = 70.
	assert.Equal(t, 70, opps[0].AppScore)
}

func TestOverallExcludesEmptyChannels(t *testing.T) {
	sig := Signals{App: demand.AppSignals{Downloads: 100_000}}
	app := demand.Result{Composite: 21}
	content := demand.Result{Composite: 0, SampleSize: 0}
	ads := demand.Result{Composite: 0, SampleSize: 0}

	assert.Equal(t, 21, overall(sig, app, content, ads))
	assert.Equal(t, 0, overall(Signals{}, demand.Result{}, demand.Result{}, demand.Result{}))
}
