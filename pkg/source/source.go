package source

import (
	"context"
	"time"
)

// SourceType identifies which platform a record came from.
type SourceType string

const (
	SourceAppStore SourceType = "appstore"
	SourceYouTube  SourceType = "youtube"
	SourceReddit   SourceType = "reddit"
	SourceRSS      SourceType = "rss"
	SourceMetaAds  SourceType = "metaads"
)

// Kind classifies what a record measures.
type Kind string

const (
	KindApp     Kind = "app"
	KindReview  Kind = "review"
	KindVideo   Kind = "video"
	KindComment Kind = "comment"
	KindPost    Kind = "post"
	KindAd      Kind = "ad"
)

// Record is the standardized signal row for all sources. Only the fields
// relevant to a record's Kind carry data; the rest stay zero.
type Record struct {
	ID          string         `json:"id" db:"id"`
	Source      SourceType     `json:"source" db:"source"`
	Niche       string         `json:"niche" db:"niche"`
	Kind        Kind           `json:"kind" db:"kind"`
	ExternalID  string         `json:"external_id" db:"external_id"`
	Title       string         `json:"title" db:"title"`
	Text        string         `json:"text" db:"text"`
	URL         string         `json:"url" db:"url"`
	Author      string         `json:"author" db:"author"`
	Rating      float64        `json:"rating" db:"rating"`           // reviews: stars
	Views       int            `json:"views" db:"views"`             // videos
	Duration    int            `json:"duration" db:"duration"`       // videos: seconds
	Installs    int            `json:"installs" db:"installs"`       // apps: estimated
	Score       int            `json:"score" db:"score"`             // posts: upvotes
	Comments    int            `json:"comments" db:"comments"`       // posts/videos
	Advertiser  string         `json:"advertiser" db:"advertiser"`   // ads: page name
	DaysActive  int            `json:"days_active" db:"days_active"` // ads
	Impressions float64        `json:"impressions" db:"impressions"` // ads
	PublishedAt time.Time      `json:"published_at" db:"published_at"`
	CollectedAt time.Time      `json:"collected_at" db:"collected_at"`
	Extra       map[string]any `json:"extra,omitempty" db:"-"`
	ExtraJSON   string         `json:"-" db:"extra"`
}

// NicheQuery pairs a niche name with the search term a collector should
// use for it on its platform.
type NicheQuery struct {
	Niche string
	Query string
}

// Source is the interface every collector must implement.
type Source interface {
	Name() SourceType
	Collect(ctx context.Context) ([]Record, error)
}

// AllSourceTypes returns all known source types.
func AllSourceTypes() []SourceType {
	return []SourceType{
		SourceAppStore,
		SourceYouTube,
		SourceReddit,
		SourceRSS,
		SourceMetaAds,
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
