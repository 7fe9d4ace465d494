package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gapradar/gapradar/internal/store"
	"github.com/gapradar/gapradar/pkg/alert"
	"github.com/gapradar/gapradar/pkg/radar"
	"github.com/gapradar/gapradar/pkg/source"
)

// Scheduler runs periodic collection and demand scoring.
type Scheduler struct {
	store      store.Store
	sources    []source.Source
	engine     *radar.Engine
	alertMgr   *alert.Manager
	collectInt time.Duration
	scoreInt   time.Duration
	minScore   int
}

// New creates a new scheduler.
func New(
	s store.Store,
	sources []source.Source,
	engine *radar.Engine,
	alertMgr *alert.Manager,
	collectInt, scoreInt time.Duration,
	minScore int,
) *Scheduler {
	if collectInt == 0 {
		collectInt = 6 * time.Hour
	}
	if scoreInt == 0 {
		scoreInt = 12 * time.Hour
	}
	if minScore == 0 {
		minScore = 60
	}
	return &Scheduler{
		store:      s,
		sources:    sources,
		engine:     engine,
		alertMgr:   alertMgr,
		collectInt: collectInt,
		scoreInt:   scoreInt,
		minScore:   minScore,
	}
}

// Run starts the scheduler loop. Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	collectTicker := time.NewTicker(s.collectInt)
	scoreTicker := time.NewTicker(s.scoreInt)
	defer collectTicker.Stop()
	defer scoreTicker.Stop()

	// Run immediately on start.
	fmt.Fprintln(os.Stderr, "scheduler: initial collection...")
	s.collectAll(ctx)
	fmt.Fprintln(os.Stderr, "scheduler: initial scoring...")
	s.scoreAndAlert(ctx)

	fmt.Fprintf(os.Stderr, "scheduler: running (collect every %s, score every %s)\n",
		s.collectInt, s.scoreInt)

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr, "scheduler: stopped")
			return ctx.Err()
		case <-collectTicker.C:
			fmt.Fprintln(os.Stderr, "scheduler: collecting...")
			s.collectAll(ctx)
		case <-scoreTicker.C:
			fmt.Fprintln(os.Stderr, "scheduler: scoring...")
			s.scoreAndAlert(ctx)
		}
	}
}

func (s *Scheduler) collectAll(ctx context.Context) {
	total := 0
	for _, src := range s.sources {
		records, err := src.Collect(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  %s error: %v\n", src.Name(), err)
			continue
		}

		if err := s.store.UpsertRecords(ctx, records); err != nil {
			fmt.Fprintf(os.Stderr, "  %s store error: %v\n", src.Name(), err)
			continue
		}

		// Record engagement snapshots for growth tracking.
		for i := range records {
			if records[i].Kind != source.KindVideo && records[i].Kind != source.KindPost {
				continue
			}
			_ = s.store.AddSnapshot(ctx, records[i].ID, records[i].Views, records[i].Comments)
		}

		fmt.Fprintf(os.Stderr, "  %s: %d records\n", src.Name(), len(records))
		total += len(records)
	}
	fmt.Fprintf(os.Stderr, "  total: %d records\n", total)
}

func (s *Scheduler) scoreAndAlert(ctx context.Context) {
	opportunities, err := s.engine.Scan(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "  scoring error: %v\n", err)
		return
	}

	if !s.alertMgr.HasNotifiers() {
		return
	}

	for _, o := range opportunities {
		if o.Overall < s.minScore || o.Alerted {
			continue
		}

		n := &alert.Notification{
			Niche:   o.Niche,
			Body:    fmt.Sprintf("Demand score %d across app, content, and ad signals", o.Overall),
			Overall: o.Overall,
			ChannelScores: map[string]int{
				"app":     o.AppScore,
				"content": o.ContentScore,
				"ads":     o.AdScore,
			},
			Samples: map[string]int{
				"app":     o.AppSamples,
				"content": o.ContentSamples,
				"ads":     o.AdSamples,
			},
		}

		if err := s.alertMgr.Broadcast(ctx, n); err != nil {
			fmt.Fprintf(os.Stderr, "  alert error for %q: %v\n", o.Niche, err)
			continue
		}

		_ = s.store.MarkAlerted(ctx, o.ID)
		fmt.Fprintf(os.Stderr, "  alerted: %s (score: %d)\n", o.Niche, o.Overall)
	}
}
