package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Roughly one in 75 installs leaves a rating, so public rating counts are
// scaled up to estimate install volume.
const installsPerRating = 75

// Per-keyword app limit; reviews are only fetched for this many apps.
const appStoreSearchLimit = 10

// AppStore collects apps and their customer reviews from the iTunes
// Search API and the App Store reviews feed.
type AppStore struct {
	client  *http.Client
	country string
	queries []NicheQuery
}

// NewAppStore creates a new App Store collector.
func NewAppStore(country string, queries []NicheQuery) *AppStore {
	if country == "" {
		country = "us"
	}
	return &AppStore{
		client:  &http.Client{Timeout: 30 * time.Second},
		country: country,
		queries: queries,
	}
}

func (a *AppStore) Name() SourceType { return SourceAppStore }

func (a *AppStore) Collect(ctx context.Context) ([]Record, error) {
	var allRecords []Record

	for _, q := range a.queries {
		apps, err := a.search(ctx, q)
		if err != nil {
			fmt.Printf("  appstore query %q error: %v\n", q.Query, err)
			continue
		}
		allRecords = append(allRecords, apps...)

		// Pull recent reviews for each app found.
		for _, app := range apps {
			reviews, err := a.fetchReviews(ctx, q.Niche, app.ExternalID)
			if err != nil {
				fmt.Printf("  appstore reviews for %s error: %v\n", app.ExternalID, err)
				continue
			}
			allRecords = append(allRecords, reviews...)
		}
	}

	return allRecords, nil
}

func (a *AppStore) search(ctx context.Context, q NicheQuery) ([]Record, error) {
	params := url.Values{}
	params.Set("term", q.Query)
	params.Set("entity", "software")
	params.Set("country", a.country)
	params.Set("limit", strconv.Itoa(appStoreSearchLimit))

	reqURL := "https://itunes.apple.com/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create appstore search request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch appstore search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("appstore search status %d", resp.StatusCode)
	}

	var result itunesSearchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode appstore search: %w", err)
	}

	now := time.Now().UTC()
	var records []Record
	for _, app := range result.Results {
		if app.TrackID == 0 {
			continue
		}
		trackID := strconv.FormatInt(app.TrackID, 10)

		released := app.ReleaseDate
		if released.IsZero() {
			released = now
		}

		records = append(records, Record{
			ID:          fmt.Sprintf("appstore:%s", trackID),
			Source:      SourceAppStore,
			Niche:       q.Niche,
			Kind:        KindApp,
			ExternalID:  trackID,
			Title:       app.TrackName,
			Text:        truncate(app.Description, 500),
			URL:         app.TrackViewURL,
			Author:      app.SellerName,
			Rating:      app.AverageUserRating,
			Installs:    app.UserRatingCount * installsPerRating,
			PublishedAt: released,
			CollectedAt: now,
			Extra: map[string]any{
				"rating_count": app.UserRatingCount,
				"price":        app.Price,
				"genre":        app.PrimaryGenreName,
				"query":        q.Query,
			},
		})
	}

	return records, nil
}

func (a *AppStore) fetchReviews(ctx context.Context, niche, appID string) ([]Record, error) {
	reqURL := fmt.Sprintf("https://itunes.apple.com/%s/rss/customerreviews/id=%s/sortBy=mostRecent/json",
		a.country, appID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create reviews request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch reviews: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reviews status %d", resp.StatusCode)
	}

	var feed reviewsFeed
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decode reviews: %w", err)
	}

	now := time.Now().UTC()
	var records []Record
	for _, entry := range feed.Feed.Entry {
		// The first entry of the feed is the app itself, not a review.
		if entry.Rating.Label == "" {
			continue
		}
		rating, _ := strconv.ParseFloat(entry.Rating.Label, 64)

		records = append(records, Record{
			ID:          fmt.Sprintf("appstore:%s:review:%s", appID, entry.ID.Label),
			Source:      SourceAppStore,
			Niche:       niche,
			Kind:        KindReview,
			ExternalID:  entry.ID.Label,
			Title:       entry.Title.Label,
			Text:        truncate(entry.Content.Label, 1000),
			Author:      entry.Author.Name.Label,
			Rating:      rating,
			PublishedAt: now,
			CollectedAt: now,
			Extra: map[string]any{
				"app_id":  appID,
				"version": entry.Version.Label,
			},
		})
	}

	return records, nil
}

type itunesSearchResult struct {
	Results []struct {
		TrackID           int64     `json:"trackId"`
		TrackName         string    `json:"trackName"`
		TrackViewURL      string    `json:"trackViewUrl"`
		SellerName        string    `json:"sellerName"`
		Description       string    `json:"description"`
		Price             float64   `json:"price"`
		PrimaryGenreName  string    `json:"primaryGenreName"`
		AverageUserRating float64   `json:"averageUserRating"`
		UserRatingCount   int       `json:"userRatingCount"`
		ReleaseDate       time.Time `json:"releaseDate"`
	} `json:"results"`
}

type reviewsFeed struct {
	Feed struct {
		Entry []struct {
			ID      rssLabel `json:"id"`
			Title   rssLabel `json:"title"`
			Content rssLabel `json:"content"`
			Rating  rssLabel `json:"im:rating"`
			Version rssLabel `json:"im:version"`
			Author  struct {
				Name rssLabel `json:"name"`
			} `json:"author"`
		} `json:"entry"`
	} `json:"feed"`
}

type rssLabel struct {
	Label string `json:"label"`
}
