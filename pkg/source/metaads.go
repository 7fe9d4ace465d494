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

// MetaAds collects ad-library entries from the Meta Graph API ads_archive
// endpoint. Who is paying to advertise in a niche, and for how long, is a
// direct demand signal.
type MetaAds struct {
	client      *http.Client
	accessToken string
	country     string
	queries     []NicheQuery
}

// NewMetaAds creates a new Meta Ad Library collector.
func NewMetaAds(accessToken, country string, queries []NicheQuery) *MetaAds {
	if country == "" {
		country = "US"
	}
	return &MetaAds{
		client:      &http.Client{Timeout: 30 * time.Second},
		accessToken: accessToken,
		country:     country,
		queries:     queries,
	}
}

func (m *MetaAds) Name() SourceType { return SourceMetaAds }

func (m *MetaAds) Collect(ctx context.Context) ([]Record, error) {
	if m.accessToken == "" {
		return nil, fmt.Errorf("metaads: access token required (set META_ACCESS_TOKEN)")
	}

	var allRecords []Record
	for _, q := range m.queries {
		records, err := m.search(ctx, q)
		if err != nil {
			fmt.Printf("  metaads query %q error: %v\n", q.Query, err)
			continue
		}
		allRecords = append(allRecords, records...)
	}

	return allRecords, nil
}

func (m *MetaAds) search(ctx context.Context, q NicheQuery) ([]Record, error) {
	params := url.Values{}
	params.Set("search_terms", q.Query)
	params.Set("ad_reached_countries", fmt.Sprintf(`["%s"]`, m.country))
	params.Set("ad_active_status", "ACTIVE")
	params.Set("fields", "id,page_name,ad_creative_link_titles,ad_delivery_start_time,ad_delivery_stop_time,impressions")
	params.Set("limit", "100")
	params.Set("access_token", m.accessToken)

	reqURL := "https://graph.facebook.com/v19.0/ads_archive?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create metaads request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch metaads: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metaads status %d", resp.StatusCode)
	}

	var result adsArchiveResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode metaads: %w", err)
	}

	now := time.Now().UTC()
	var records []Record
	for _, ad := range result.Data {
		if ad.ID == "" {
			continue
		}

		started := parseAdTime(ad.AdDeliveryStartTime)
		stopped := parseAdTime(ad.AdDeliveryStopTime)
		if stopped.IsZero() {
			stopped = now
		}
		daysActive := 0
		if !started.IsZero() {
			daysActive = int(stopped.Sub(started).Hours() / 24)
		}

		title := ""
		if len(ad.AdCreativeLinkTitles) > 0 {
			title = ad.AdCreativeLinkTitles[0]
		}

		records = append(records, Record{
			ID:          fmt.Sprintf("metaads:%s", ad.ID),
			Source:      SourceMetaAds,
			Niche:       q.Niche,
			Kind:        KindAd,
			ExternalID:  ad.ID,
			Title:       title,
			Advertiser:  ad.PageName,
			DaysActive:  daysActive,
			Impressions: ad.Impressions.Midpoint(),
			PublishedAt: started,
			CollectedAt: now,
			Extra: map[string]any{
				"query": q.Query,
			},
		})
	}

	return records, nil
}

func parseAdTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

type adsArchiveResult struct {
	Data []struct {
		ID                   string   `json:"id"`
		PageName             string   `json:"page_name"`
		AdCreativeLinkTitles []string `json:"ad_creative_link_titles"`
		AdDeliveryStartTime  string   `json:"ad_delivery_start_time"`
		AdDeliveryStopTime   string   `json:"ad_delivery_stop_time"`
		Impressions          adRange  `json:"impressions"`
	} `json:"data"`
}

// adRange is Meta's banded count: {"lower_bound":"1000","upper_bound":"5000"}.
type adRange struct {
	LowerBound string `json:"lower_bound"`
	UpperBound string `json:"upper_bound"`
}

// Midpoint returns the middle of the band, or the lower bound when the
// upper bound is open-ended.
func (r adRange) Midpoint() float64 {
	lo, _ := strconv.ParseFloat(r.LowerBound, 64)
	hi, _ := strconv.ParseFloat(r.UpperBound, 64)
	if hi <= 0 {
		return lo
	}
	return (lo + hi) / 2
}
