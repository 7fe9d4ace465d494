package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "./gapradar.db", cfg.Database.Path)
	assert.Equal(t, 6*time.Hour, cfg.Schedule.ParseCollectInterval())
	assert.Equal(t, 12*time.Hour, cfg.Schedule.ParseScoreInterval())
	assert.Equal(t, 7*24*time.Hour, cfg.Scoring.ParseWindow())
	assert.Equal(t, 5*time.Minute, cfg.Server.ParseCacheTTL())
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadNiches(t *testing.T) {
	path := writeConfig(t, `
niches:
  - name: meditation
    keywords: [meditation, mindfulness]
    appstore_terms: ["meditation app"]
    youtube_queries: ["guided meditation"]
    subreddits: [Meditation]
    ad_keywords: [meditation]
scoring:
  min_score: 55
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Len(t, cfg.Niches, 1)
	assert.Equal(t, "meditation", cfg.Niches[0].Name)
	assert.Equal(t, []string{"meditation app"}, cfg.Niches[0].AppStoreTerms)
	assert.Equal(t, 55, cfg.Scoring.MinScore)
}

func TestLoadRejectsBadWeights(t *testing.T) {
	path := writeConfig(t, `
scoring:
  app_weights:
    download_volume: 0.5
    negative_review_ratio: 0.1
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "app_weights")
}

func TestLoadAcceptsValidWeights(t *testing.T) {
	path := writeConfig(t, `
scoring:
  content_weights:
    view_velocity: 0.5
    comment_question_ratio: 0.25
    content_gap_ratio: 0.25
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.Scoring.ContentWeights["view_velocity"])
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GAPRADAR_DB_PATH", "/tmp/override.db")
	t.Setenv("YOUTUBE_API_KEY", "yt-key")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/override.db", cfg.Database.Path)
	assert.Equal(t, "yt-key", cfg.Sources.YouTube.APIKey)
}

func TestIntervalFallbacks(t *testing.T) {
	s := ScheduleConfig{CollectInterval: "nonsense", ScoreInterval: ""}
	assert.Equal(t, 6*time.Hour, s.ParseCollectInterval())
	assert.Equal(t, 12*time.Hour, s.ParseScoreInterval())
}
