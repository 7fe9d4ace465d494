package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gapradar/gapradar/pkg/score"
)

// Config is the root configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Niches   []NicheConfig  `yaml:"niches"`
	Sources  SourcesConfig  `yaml:"sources"`
	Scoring  ScoringConfig  `yaml:"scoring"`
	Alerts   AlertsConfig   `yaml:"alerts"`
	Server   ServerConfig   `yaml:"server"`
}

// DatabaseConfig configures SQLite storage.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ScheduleConfig configures collection and scoring intervals.
type ScheduleConfig struct {
	CollectInterval string `yaml:"collect_interval"`
	ScoreInterval   string `yaml:"score_interval"`
}

// ParseCollectInterval returns the collect interval as time.Duration.
func (s ScheduleConfig) ParseCollectInterval() time.Duration {
	d, err := time.ParseDuration(s.CollectInterval)
	if err != nil {
		return 6 * time.Hour
	}
	return d
}

// ParseScoreInterval returns the scoring interval as time.Duration.
func (s ScheduleConfig) ParseScoreInterval() time.Duration {
	d, err := time.ParseDuration(s.ScoreInterval)
	if err != nil {
		return 12 * time.Hour
	}
	return d
}

// NicheConfig defines one market niche to watch and the per-platform
// search terms for it.
type NicheConfig struct {
	Name           string     `yaml:"name"`
	Keywords       []string   `yaml:"keywords"`
	Exclude        []string   `yaml:"exclude"`
	AppStoreTerms  []string   `yaml:"appstore_terms"`
	YouTubeQueries []string   `yaml:"youtube_queries"`
	Subreddits     []string   `yaml:"subreddits"`
	AdKeywords     []string   `yaml:"ad_keywords"`
	Feeds          []FeedItem `yaml:"feeds"`
}

// FeedItem is a single RSS feed entry.
type FeedItem struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// SourcesConfig holds configuration for all signal collectors.
type SourcesConfig struct {
	AppStore AppStoreConfig `yaml:"appstore"`
	YouTube  YouTubeConfig  `yaml:"youtube"`
	Reddit   RedditConfig   `yaml:"reddit"`
	RSS      RSSConfig      `yaml:"rss"`
	MetaAds  MetaAdsConfig  `yaml:"metaads"`
}

// AppStoreConfig for the iTunes/App Store collector.
type AppStoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Country string `yaml:"country"`
}

// YouTubeConfig for the YouTube collector.
type YouTubeConfig struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"api_key"`
}

// RedditConfig for the Reddit collector.
type RedditConfig struct {
	Enabled      bool   `yaml:"enabled"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// RSSConfig for the RSS feed collector.
type RSSConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MetaAdsConfig for the Meta Ad Library collector.
type MetaAdsConfig struct {
	Enabled     bool   `yaml:"enabled"`
	AccessToken string `yaml:"access_token"`
	Country     string `yaml:"country"`
}

// ScoringConfig configures the demand scoring run.
type ScoringConfig struct {
	MinScore       int                `yaml:"min_score"`
	Window         string             `yaml:"window"`
	AppWeights     map[string]float64 `yaml:"app_weights"`
	ContentWeights map[string]float64 `yaml:"content_weights"`
	AdWeights      map[string]float64 `yaml:"ad_weights"`
	LLM            LLMConfig          `yaml:"llm"`
}

// ParseWindow returns the scoring lookback window as time.Duration.
func (s ScoringConfig) ParseWindow() time.Duration {
	d, err := time.ParseDuration(s.Window)
	if err != nil {
		return 7 * 24 * time.Hour
	}
	return d
}

// LLMConfig configures the optional LLM review classifier.
type LLMConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Provider string `yaml:"provider"` // "openai" or "anthropic"
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
}

// AlertsConfig configures alert destinations.
type AlertsConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
	Webhook WebhookConfig `yaml:"webhook"`
}

// SlackConfig for Slack webhook alerts.
type SlackConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// DiscordConfig for Discord webhook alerts.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// WebhookConfig for generic webhook alerts.
type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Secret  string `yaml:"secret"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port     int    `yaml:"port"`
	CacheTTL string `yaml:"cache_ttl"`
}

// ParseCacheTTL returns the response cache TTL as time.Duration.
func (s ServerConfig) ParseCacheTTL() time.Duration {
	d, err := time.ParseDuration(s.CacheTTL)
	if err != nil {
		return 5 * time.Minute
	}
	return d
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "./gapradar.db"},
		Schedule: ScheduleConfig{
			CollectInterval: "6h",
			ScoreInterval:   "12h",
		},
		Sources: SourcesConfig{
			AppStore: AppStoreConfig{Enabled: true, Country: "us"},
			YouTube:  YouTubeConfig{Enabled: false},
			Reddit:   RedditConfig{Enabled: false},
			RSS:      RSSConfig{Enabled: true},
			MetaAds:  MetaAdsConfig{Enabled: false, Country: "US"},
		},
		Scoring: ScoringConfig{
			MinScore: 40,
			Window:   "168h",
			LLM: LLMConfig{
				Provider: "openai",
				Model:    "gpt-4o-mini",
			},
		},
		Alerts: AlertsConfig{},
		Server: ServerConfig{Port: 8080, CacheTTL: "5m"},
	}
}

// Load reads configuration from a YAML file, applies env var overrides,
// and validates any weight overrides. Weight maps that do not sum to 1.0
// are a wiring error and fail here rather than silently rescaling scores.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := validateWeights(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateWeights(cfg *Config) error {
	for name, w := range map[string]map[string]float64{
		"app_weights":     cfg.Scoring.AppWeights,
		"content_weights": cfg.Scoring.ContentWeights,
		"ad_weights":      cfg.Scoring.AdWeights,
	} {
		if len(w) == 0 {
			continue
		}
		if err := score.ValidateWeights(score.Weights(w)); err != nil {
			return fmt.Errorf("scoring.%s: %w", name, err)
		}
	}
	return nil
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GAPRADAR_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("YOUTUBE_API_KEY"); v != "" {
		cfg.Sources.YouTube.APIKey = v
	}
	if v := os.Getenv("REDDIT_CLIENT_ID"); v != "" {
		cfg.Sources.Reddit.ClientID = v
	}
	if v := os.Getenv("REDDIT_CLIENT_SECRET"); v != "" {
		cfg.Sources.Reddit.ClientSecret = v
	}
	if v := os.Getenv("META_ACCESS_TOKEN"); v != "" {
		cfg.Sources.MetaAds.AccessToken = v
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Slack.WebhookURL = v
		cfg.Alerts.Slack.Enabled = true
	}
	if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Discord.WebhookURL = v
		cfg.Alerts.Discord.Enabled = true
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Scoring.LLM.APIKey = v
		cfg.Scoring.LLM.Enabled = true
		cfg.Scoring.LLM.Provider = "openai"
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Scoring.LLM.APIKey = v
		cfg.Scoring.LLM.Enabled = true
		cfg.Scoring.LLM.Provider = "anthropic"
	}
}
