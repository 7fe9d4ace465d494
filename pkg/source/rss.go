package source

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
)

// RSSFeed is a named RSS/Atom feed tied to a niche.
type RSSFeed struct {
	Niche string
	Name  string
	URL   string
}

// RSS collects niche blog and news posts from RSS/Atom feeds.
type RSS struct {
	client *http.Client
	parser *gofeed.Parser
	feeds  []RSSFeed
	filter *Filter
	maxAge time.Duration
}

// NewRSS creates a new RSS collector.
func NewRSS(feeds []RSSFeed, filter *Filter) *RSS {
	return &RSS{
		client: &http.Client{Timeout: 30 * time.Second},
		parser: gofeed.NewParser(),
		feeds:  feeds,
		filter: filter,
		maxAge: 7 * 24 * time.Hour,
	}
}

func (r *RSS) Name() SourceType { return SourceRSS }

func (r *RSS) Collect(ctx context.Context) ([]Record, error) {
	var allRecords []Record

	for _, feed := range r.feeds {
		records, err := r.collectFeed(ctx, feed)
		if err != nil {
			fmt.Printf("  rss feed %s error: %v\n", feed.Name, err)
			continue
		}
		allRecords = append(allRecords, records...)
	}

	return allRecords, nil
}

func (r *RSS) collectFeed(ctx context.Context, feed RSSFeed) ([]Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create rss request %s: %w", feed.Name, err)
	}
	req.Header.Set("User-Agent", "gapradar/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rss %s: %w", feed.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rss %s status %d", feed.Name, resp.StatusCode)
	}

	parsed, err := r.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse rss %s: %w", feed.Name, err)
	}

	var records []Record
	cutoff := time.Now().Add(-r.maxAge)

	for _, entry := range parsed.Items {
		published := time.Now().UTC()
		if entry.PublishedParsed != nil {
			published = entry.PublishedParsed.UTC()
		} else if entry.UpdatedParsed != nil {
			published = entry.UpdatedParsed.UTC()
		}

		if published.Before(cutoff) {
			continue
		}

		text := entry.Title + " " + entry.Description
		if r.filter != nil && !r.filter.Matches(text) {
			continue
		}

		link := entry.Link
		if link == "" && len(entry.Links) > 0 {
			link = entry.Links[0]
		}

		author := ""
		if entry.Author != nil {
			author = entry.Author.Name
		}

		records = append(records, Record{
			ID:          fmt.Sprintf("rss:%s:%s", feed.Name, entry.GUID),
			Source:      SourceRSS,
			Niche:       feed.Niche,
			Kind:        KindPost,
			ExternalID:  entry.GUID,
			Title:       entry.Title,
			Text:        truncate(entry.Description, 500),
			URL:         link,
			Author:      author,
			PublishedAt: published,
			CollectedAt: time.Now().UTC(),
			Extra: map[string]any{
				"feed_name": feed.Name,
			},
		})
	}

	return records, nil
}
