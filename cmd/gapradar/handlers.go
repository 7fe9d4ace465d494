package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/gapradar/gapradar/internal/cache"
	"github.com/gapradar/gapradar/internal/config"
	"github.com/gapradar/gapradar/internal/scheduler"
	"github.com/gapradar/gapradar/internal/store"
	"github.com/gapradar/gapradar/pkg/alert"
	"github.com/gapradar/gapradar/pkg/demand"
	"github.com/gapradar/gapradar/pkg/radar"
	"github.com/gapradar/gapradar/pkg/score"
	"github.com/gapradar/gapradar/pkg/server"
	"github.com/gapradar/gapradar/pkg/source"
)

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func buildEngine(cfg *config.Config, db store.Store) *radar.Engine {
	var llm *demand.LLMClassifier
	if cfg.Scoring.LLM.Enabled && cfg.Scoring.LLM.APIKey != "" {
		llm = demand.NewLLMClassifier(
			cfg.Scoring.LLM.Provider,
			cfg.Scoring.LLM.Model,
			cfg.Scoring.LLM.APIKey,
			cfg.Scoring.LLM.BaseURL,
		)
		fmt.Fprintf(os.Stderr, "llm classifier: %s/%s\n",
			cfg.Scoring.LLM.Provider, cfg.Scoring.LLM.Model)
	}

	niches := make([]string, len(cfg.Niches))
	for i, n := range cfg.Niches {
		niches[i] = n.Name
	}

	return radar.NewEngine(db, niches, cfg.Scoring.ParseWindow(),
		score.Weights(cfg.Scoring.AppWeights),
		score.Weights(cfg.Scoring.ContentWeights),
		score.Weights(cfg.Scoring.AdWeights),
		llm,
	)
}

// buildFilter merges every niche's keywords into one relevance filter for
// collectors that pull broad streams (Reddit, RSS).
func buildFilter(cfg *config.Config) *source.Filter {
	var keywords, exclude []string
	for _, n := range cfg.Niches {
		keywords = append(keywords, n.Keywords...)
		exclude = append(exclude, n.Exclude...)
	}
	return source.NewFilter(keywords, exclude)
}

func buildSources(cfg *config.Config, filter *source.Filter) []source.Source {
	var (
		appQueries []source.NicheQuery
		ytQueries  []source.NicheQuery
		adQueries  []source.NicheQuery
		subreddits []source.SubredditQuery
		feeds      []source.RSSFeed
	)

	for _, n := range cfg.Niches {
		terms := n.AppStoreTerms
		if len(terms) == 0 {
			terms = []string{n.Name}
		}
		for _, t := range terms {
			appQueries = append(appQueries, source.NicheQuery{Niche: n.Name, Query: t})
		}

		queries := n.YouTubeQueries
		if len(queries) == 0 {
			queries = []string{n.Name}
		}
		for _, q := range queries {
			ytQueries = append(ytQueries, source.NicheQuery{Niche: n.Name, Query: q})
		}

		for _, kw := range n.AdKeywords {
			adQueries = append(adQueries, source.NicheQuery{Niche: n.Name, Query: kw})
		}

		for _, sr := range n.Subreddits {
			subreddits = append(subreddits, source.SubredditQuery{Niche: n.Name, Subreddit: sr})
		}

		for _, f := range n.Feeds {
			feeds = append(feeds, source.RSSFeed{Niche: n.Name, Name: f.Name, URL: f.URL})
		}
	}

	var sources []source.Source

	if cfg.Sources.AppStore.Enabled {
		sources = append(sources, source.NewAppStore(cfg.Sources.AppStore.Country, appQueries))
	}
	if cfg.Sources.YouTube.Enabled && cfg.Sources.YouTube.APIKey != "" {
		sources = append(sources, source.NewYouTube(cfg.Sources.YouTube.APIKey, ytQueries))
	}
	if cfg.Sources.Reddit.Enabled {
		sources = append(sources, source.NewReddit(
			cfg.Sources.Reddit.ClientID,
			cfg.Sources.Reddit.ClientSecret,
			subreddits,
			filter,
		))
	}
	if cfg.Sources.RSS.Enabled && len(feeds) > 0 {
		sources = append(sources, source.NewRSS(feeds, filter))
	}
	if cfg.Sources.MetaAds.Enabled && cfg.Sources.MetaAds.AccessToken != "" {
		sources = append(sources, source.NewMetaAds(
			cfg.Sources.MetaAds.AccessToken,
			cfg.Sources.MetaAds.Country,
			adQueries,
		))
	}

	return sources
}

func buildAlertManager(cfg *config.Config) *alert.Manager {
	var notifiers []alert.Notifier

	if cfg.Alerts.Slack.Enabled && cfg.Alerts.Slack.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewSlack(cfg.Alerts.Slack.WebhookURL))
	}
	if cfg.Alerts.Discord.Enabled && cfg.Alerts.Discord.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewDiscord(cfg.Alerts.Discord.WebhookURL))
	}
	if cfg.Alerts.Webhook.Enabled && cfg.Alerts.Webhook.URL != "" {
		notifiers = append(notifiers, alert.NewWebhook(cfg.Alerts.Webhook.URL, cfg.Alerts.Webhook.Secret))
	}

	return alert.NewManager(notifiers)
}

func runCollect(filterSources []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	allSources := buildSources(cfg, buildFilter(cfg))

	// Filter to requested sources only.
	var sources []source.Source
	if len(filterSources) > 0 {
		wanted := make(map[string]bool)
		for _, s := range filterSources {
			wanted[strings.ToLower(strings.TrimSpace(s))] = true
		}
		for _, s := range allSources {
			if wanted[string(s.Name())] {
				sources = append(sources, s)
			}
		}
		if len(sources) == 0 {
			return fmt.Errorf("no matching sources for: %s", strings.Join(filterSources, ", "))
		}
	} else {
		sources = allSources
	}

	ctx := context.Background()
	total := 0

	for _, src := range sources {
		fmt.Fprintf(os.Stderr, "collecting from %s...\n", src.Name())
		records, err := src.Collect(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  error: %v\n", err)
			continue
		}

		if err := db.UpsertRecords(ctx, records); err != nil {
			fmt.Fprintf(os.Stderr, "  store error: %v\n", err)
			continue
		}

		// Record engagement snapshots for growth tracking.
		for i := range records {
			if records[i].Kind != source.KindVideo && records[i].Kind != source.KindPost {
				continue
			}
			_ = db.AddSnapshot(ctx, records[i].ID, records[i].Views, records[i].Comments)
		}

		fmt.Fprintf(os.Stderr, "  collected %d records\n", len(records))
		total += len(records)
	}

	fmt.Fprintf(os.Stderr, "\ntotal: %d records from %d sources\n", total, len(sources))
	return nil
}

func runScore() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	engine := buildEngine(cfg, db)
	opportunities, err := engine.Scan(context.Background())
	if err != nil {
		return fmt.Errorf("score niches: %w", err)
	}

	fmt.Fprintf(os.Stderr, "scored %d niches\n", len(opportunities))
	return nil
}

func runOpportunities(jsonOutput bool, minScore, limit int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	if minScore < 0 {
		minScore = cfg.Scoring.MinScore
	}

	opportunities, err := db.ListOpportunities(context.Background(), store.OpportunityListOpts{
		MinScore: minScore,
		Limit:    limit,
	})
	if err != nil {
		return fmt.Errorf("list opportunities: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(opportunities)
	}

	if len(opportunities) == 0 {
		fmt.Println("no opportunities found (try: gapradar collect && gapradar score)")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "OVERALL\tAPP\tCONTENT\tADS\tNICHE\tLAST UPDATED")
	for _, o := range opportunities {
		fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%s\t%s\n",
			o.Overall, o.AppScore, o.ContentScore, o.AdScore, o.Niche,
			o.LastUpdated.Format(time.RFC3339))
	}
	return w.Flush()
}

func runServe(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if port == 0 {
		port = cfg.Server.Port
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	engine := buildEngine(cfg, db)
	sources := buildSources(cfg, buildFilter(cfg))
	respCache := cache.New(cfg.Server.ParseCacheTTL())
	defer respCache.Stop()

	srv := server.New(db, engine, sources, respCache, port)
	return srv.ListenAndServe()
}

func runDaemon(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if port == 0 {
		port = cfg.Server.Port
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	engine := buildEngine(cfg, db)
	sources := buildSources(cfg, buildFilter(cfg))
	alertMgr := buildAlertManager(cfg)
	respCache := cache.New(cfg.Server.ParseCacheTTL())
	defer respCache.Stop()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sched := scheduler.New(db, sources, engine, alertMgr,
		cfg.Schedule.ParseCollectInterval(),
		cfg.Schedule.ParseScoreInterval(),
		cfg.Scoring.MinScore,
	)

	// Start scheduler in background.
	go func() {
		if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
			fmt.Fprintf(os.Stderr, "scheduler error: %v\n", err)
		}
	}()

	// Start HTTP server.
	srv := server.New(db, engine, sources, respCache, port)
	go func() {
		<-ctx.Done()
		fmt.Fprintln(os.Stderr, "\nshutting down...")
	}()

	return srv.ListenAndServe()
}
