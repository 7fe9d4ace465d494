package radar

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"github.com/gapradar/gapradar/internal/store"
	"github.com/gapradar/gapradar/pkg/demand"
	"github.com/gapradar/gapradar/pkg/score"
	"github.com/gapradar/gapradar/pkg/source"
)

// Engine turns collected signal records into scored niche opportunities.
type Engine struct {
	store          store.Store
	niches         []string
	window         time.Duration
	appWeights     score.Weights
	contentWeights score.Weights
	adWeights      score.Weights
	llm            *demand.LLMClassifier // optional, nil = lexicon heuristics only
}

// NewEngine creates a new demand scoring engine. Nil weight maps fall back
// to the adapter defaults; non-nil maps must already be validated.
func NewEngine(
	s store.Store,
	niches []string,
	window time.Duration,
	appW, contentW, adW score.Weights,
	llm *demand.LLMClassifier,
) *Engine {
	if window == 0 {
		window = 7 * 24 * time.Hour
	}
	return &Engine{
		store:          s,
		niches:         niches,
		window:         window,
		appWeights:     appW,
		contentWeights: contentW,
		adWeights:      adW,
		llm:            llm,
	}
}

// Signals are one niche's records shaped into the adapter inputs.
type Signals struct {
	App     demand.AppSignals
	Content demand.ContentSignals
	Ads     demand.AdSignals
}

// Scan scores every configured niche from its recent records and upserts
// the results. Returns the opportunities sorted by overall score.
func (e *Engine) Scan(ctx context.Context) ([]store.Opportunity, error) {
	var opportunities []store.Opportunity
	now := time.Now().UTC()

	for _, niche := range e.niches {
		records, err := e.store.ListRecords(ctx, store.ListOpts{
			Niche: niche,
			Since: now.Add(-e.window),
			Limit: 5000,
		})
		if err != nil {
			return nil, fmt.Errorf("list records for %s: %w", niche, err)
		}

		sig := ShapeSignals(records)

		// LLM labels replace the lexicon heuristics when available;
		// on error the adapters fall back to them.
		if e.llm != nil && len(sig.App.Reviews) > 0 {
			labels, err := e.llm.ClassifyReviews(ctx, sig.App.Reviews)
			if err != nil {
				fmt.Fprintf(os.Stderr, "  llm classification error (falling back to lexicon): %v\n", err)
			} else {
				for i := range sig.App.Reviews {
					if i < len(labels) {
						sig.App.Reviews[i].Label = labels[i]
					}
				}
			}
		}

		appRes := demand.ScoreApp(sig.App, e.appWeights)
		contentRes := demand.ScoreContent(sig.Content, e.contentWeights)
		adRes := demand.ScoreAds(sig.Ads, e.adWeights)

		opp := store.Opportunity{
			Niche:          niche,
			AppScore:       appRes.Composite,
			ContentScore:   contentRes.Composite,
			AdScore:        adRes.Composite,
			Overall:        overall(sig, appRes, contentRes, adRes),
			AppSamples:     appRes.SampleSize,
			ContentSamples: contentRes.SampleSize,
			AdSamples:      adRes.SampleSize,
			Breakdown: map[string]map[string]float64{
				"app":     appRes.SubScores,
				"content": contentRes.SubScores,
				"ads":     adRes.SubScores,
			},
			FirstSeen:   now,
			LastUpdated: now,
		}

		if err := e.store.UpsertOpportunity(ctx, &opp); err != nil {
			fmt.Fprintf(os.Stderr, "  opportunity upsert error for %s: %v\n", niche, err)
			continue
		}
		opportunities = append(opportunities, opp)
	}

	sort.Slice(opportunities, func(i, j int) bool {
		return opportunities[i].Overall > opportunities[j].Overall
	})

	return opportunities, nil
}

// ShapeSignals partitions a niche's records by kind into adapter inputs.
// Reddit and blog posts feed the question-ratio dimension: questions asked
// in a niche community are demand questions just like video comments.
func ShapeSignals(records []source.Record) Signals {
	var sig Signals

	for _, r := range records {
		switch r.Kind {
		case source.KindApp:
			sig.App.Downloads += float64(r.Installs)
		case source.KindReview:
			text := r.Title
			if r.Text != "" {
				if text != "" {
					text += " "
				}
				text += r.Text
			}
			sig.App.Reviews = append(sig.App.Reviews, demand.Review{
				Rating: r.Rating,
				Text:   text,
			})
		case source.KindVideo:
			sig.Content.Videos = append(sig.Content.Videos, demand.Video{
				Title:    r.Title,
				Duration: r.Duration,
				Views:    float64(r.Views),
			})
		case source.KindComment:
			sig.Content.Comments = append(sig.Content.Comments, r.Text)
		case source.KindPost:
			text := r.Title
			if r.Text != "" {
				text += " " + r.Text
			}
			sig.Content.Comments = append(sig.Content.Comments, text)
		case source.KindAd:
			sig.Ads.Ads = append(sig.Ads.Ads, demand.Ad{
				Advertiser:  r.Advertiser,
				DaysActive:  r.DaysActive,
				Impressions: r.Impressions,
			})
		}
	}

	return sig
}

// overall combines the channel composites that have any data behind them.
// Channels with no sample are excluded from the mean instead of dragging
// it to zero; with no data anywhere the overall is 0.
func overall(sig Signals, app, content, ads demand.Result) int {
	sum, n := 0, 0
	if app.SampleSize > 0 || sig.App.Downloads > 0 {
		sum += app.Composite
		n++
	}
	if content.SampleSize > 0 {
		sum += content.Composite
		n++
	}
	if ads.SampleSize > 0 {
		sum += ads.Composite
		n++
	}
	if n == 0 {
		return 0
	}
	return int(math.Round(float64(sum) / float64(n)))
}
