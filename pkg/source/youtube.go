package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Comments are fetched for this many top videos per query.
const youtubeCommentVideos = 5

// YouTube collects niche videos and their comments via the YouTube Data API.
type YouTube struct {
	client  *http.Client
	apiKey  string
	queries []NicheQuery
}

// NewYouTube creates a new YouTube collector.
func NewYouTube(apiKey string, queries []NicheQuery) *YouTube {
	return &YouTube{
		client:  &http.Client{Timeout: 30 * time.Second},
		apiKey:  apiKey,
		queries: queries,
	}
}

func (y *YouTube) Name() SourceType { return SourceYouTube }

func (y *YouTube) Collect(ctx context.Context) ([]Record, error) {
	if y.apiKey == "" {
		return nil, fmt.Errorf("youtube: API key required (set YOUTUBE_API_KEY)")
	}

	var allRecords []Record

	for _, q := range y.queries {
		videos, err := y.search(ctx, q)
		if err != nil {
			fmt.Printf("  youtube query %q error: %v\n", q.Query, err)
			continue
		}

		if len(videos) > 0 {
			y.enrichWithStats(ctx, videos)
		}
		allRecords = append(allRecords, videos...)

		// Fetch comments for the most-viewed videos.
		limit := youtubeCommentVideos
		if len(videos) < limit {
			limit = len(videos)
		}
		for _, v := range videos[:limit] {
			comments, err := y.fetchComments(ctx, q.Niche, v.ExternalID)
			if err != nil {
				fmt.Printf("  youtube comments for %s error: %v\n", v.ExternalID, err)
				continue
			}
			allRecords = append(allRecords, comments...)
		}
	}

	return allRecords, nil
}

func (y *YouTube) search(ctx context.Context, q NicheQuery) ([]Record, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("q", q.Query)
	params.Set("type", "video")
	params.Set("order", "viewCount")
	params.Set("maxResults", "20")
	params.Set("key", y.apiKey)

	reqURL := "https://www.googleapis.com/youtube/v3/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create youtube search request: %w", err)
	}

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch youtube search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("youtube search status %d", resp.StatusCode)
	}

	var result ytSearchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode youtube search: %w", err)
	}

	var records []Record
	for _, item := range result.Items {
		videoID := item.ID.VideoID
		if videoID == "" {
			continue
		}

		published := item.Snippet.PublishedAt
		if published.IsZero() {
			published = time.Now().UTC()
		}

		records = append(records, Record{
			ID:          fmt.Sprintf("youtube:%s", videoID),
			Source:      SourceYouTube,
			Niche:       q.Niche,
			Kind:        KindVideo,
			ExternalID:  videoID,
			Title:       item.Snippet.Title,
			Text:        truncate(item.Snippet.Description, 500),
			URL:         fmt.Sprintf("https://www.youtube.com/watch?v=%s", videoID),
			Author:      item.Snippet.ChannelTitle,
			PublishedAt: published,
			CollectedAt: time.Now().UTC(),
			Extra: map[string]any{
				"channel_id": item.Snippet.ChannelID,
				"query":      q.Query,
			},
		})
	}

	return records, nil
}

func (y *YouTube) enrichWithStats(ctx context.Context, records []Record) {
	var ids []string
	idMap := make(map[string]int)
	for i, r := range records {
		ids = append(ids, r.ExternalID)
		idMap[r.ExternalID] = i
	}

	// Batch fetch statistics and durations (max 50 per request).
	for start := 0; start < len(ids); start += 50 {
		end := start + 50
		if end > len(ids) {
			end = len(ids)
		}

		batch := ids[start:end]
		params := url.Values{}
		params.Set("part", "statistics,contentDetails")
		params.Set("id", strings.Join(batch, ","))
		params.Set("key", y.apiKey)

		reqURL := "https://www.googleapis.com/youtube/v3/videos?" + params.Encode()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			continue
		}

		resp, err := y.client.Do(req)
		if err != nil {
			continue
		}

		var result ytVideoResult
		json.NewDecoder(resp.Body).Decode(&result)
		resp.Body.Close()

		for _, video := range result.Items {
			if idx, ok := idMap[video.ID]; ok {
				records[idx].Views = video.Statistics.ViewCount
				records[idx].Comments = video.Statistics.CommentCount
				records[idx].Duration = parseISODuration(video.ContentDetails.Duration)
			}
		}
	}
}

func (y *YouTube) fetchComments(ctx context.Context, niche, videoID string) ([]Record, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("videoId", videoID)
	params.Set("maxResults", "50")
	params.Set("order", "relevance")
	params.Set("key", y.apiKey)

	reqURL := "https://www.googleapis.com/youtube/v3/commentThreads?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create comments request: %w", err)
	}

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch comments: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("comments status %d", resp.StatusCode)
	}

	var result ytCommentResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode comments: %w", err)
	}

	now := time.Now().UTC()
	var records []Record
	for _, item := range result.Items {
		top := item.Snippet.TopLevelComment
		if top.ID == "" {
			continue
		}

		records = append(records, Record{
			ID:          fmt.Sprintf("youtube:%s:comment:%s", videoID, top.ID),
			Source:      SourceYouTube,
			Niche:       niche,
			Kind:        KindComment,
			ExternalID:  top.ID,
			Text:        truncate(top.Snippet.TextDisplay, 1000),
			Author:      top.Snippet.AuthorDisplayName,
			Score:       top.Snippet.LikeCount,
			PublishedAt: top.Snippet.PublishedAt,
			CollectedAt: now,
			Extra: map[string]any{
				"video_id": videoID,
			},
		})
	}

	return records, nil
}

var isoDurationRe = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// parseISODuration converts a YouTube ISO 8601 duration (PT5M33S) to
// seconds. Unparseable input returns 0.
func parseISODuration(s string) int {
	m := isoDurationRe.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	seconds, _ := strconv.Atoi(m[3])
	return hours*3600 + minutes*60 + seconds
}

type ytSearchResult struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet ytSnippet `json:"snippet"`
	} `json:"items"`
}

type ytSnippet struct {
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	ChannelTitle string    `json:"channelTitle"`
	ChannelID    string    `json:"channelId"`
	PublishedAt  time.Time `json:"publishedAt"`
}

type ytVideoResult struct {
	Items []struct {
		ID         string `json:"id"`
		Statistics struct {
			ViewCount    int `json:"viewCount,string"`
			LikeCount    int `json:"likeCount,string"`
			CommentCount int `json:"commentCount,string"`
		} `json:"statistics"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type ytCommentResult struct {
	Items []struct {
		Snippet struct {
			TopLevelComment struct {
				ID      string `json:"id"`
				Snippet struct {
					TextDisplay       string    `json:"textDisplay"`
					AuthorDisplayName string    `json:"authorDisplayName"`
					LikeCount         int       `json:"likeCount"`
					PublishedAt       time.Time `json:"publishedAt"`
				} `json:"snippet"`
			} `json:"topLevelComment"`
		} `json:"snippet"`
	} `json:"items"`
}
