package demand

import (
	"strings"

	"github.com/gapradar/gapradar/pkg/score"
)

// DefaultAppWeights weight the app/marketplace sub-scores. Feature requests
// carry the most weight: an explicit unmet need is a stronger opportunity
// signal than raw popularity.
var DefaultAppWeights = score.Weights{
	"download_volume":         0.3,
	"negative_review_ratio":   0.3,
	"feature_request_density": 0.4,
}

// DownloadAnchors calibrate the log transform for install counts.
var DownloadAnchors = []score.Anchor{
	{Value: 1_000, Score: 30},
	{Value: 10_000, Score: 50},
	{Value: 1_000_000, Score: 90},
}

// Reviews at or below this star rating count as negative.
const negativeRatingMax = 2

// featureRequestPhrases is the lexicon for spotting explicit unmet-need
// language in review text. Matching is case-insensitive substring.
var featureRequestPhrases = []string{
	"please add",
	"wish it had",
	"would love",
	"feature request",
	"should add",
	"hope they add",
	"needs a",
	"if only it",
	"missing a",
}

// ReviewLabel is an optional classification attached to a review, e.g. by
// the LLM classifier. When present it takes precedence over the lexicon
// and rating heuristics.
type ReviewLabel struct {
	FeatureRequest bool `json:"feature_request"`
	Negative       bool `json:"negative"`
}

// Review is one app-store customer review.
type Review struct {
	Rating float64
	Text   string
	Label  *ReviewLabel
}

// AppSignals is the raw signal set for one app-store niche.
type AppSignals struct {
	Downloads float64
	Reviews   []Review
}

// ScoreApp computes the app/marketplace demand score. Pass nil weights to
// use DefaultAppWeights. Zero downloads and an empty review slice produce
// a composite of 0.
func ScoreApp(sig AppSignals, weights score.Weights) Result {
	if weights == nil {
		weights = DefaultAppWeights
	}

	total := len(sig.Reviews)
	negative := 0
	requests := 0
	for _, r := range sig.Reviews {
		if r.Label != nil {
			if r.Label.Negative {
				negative++
			}
			if r.Label.FeatureRequest {
				requests++
			}
			continue
		}
		if r.Rating > 0 && r.Rating <= negativeRatingMax {
			negative++
		}
		if matchesFeatureRequest(r.Text) {
			requests++
		}
	}

	sub := map[string]float64{
		"download_volume":         score.NormalizeLogarithmic(sig.Downloads, DownloadAnchors),
		"negative_review_ratio":   score.NormalizeRatio(float64(negative), float64(total)),
		"feature_request_density": score.NormalizeRatio(float64(requests), float64(total)),
	}

	return finish(sub, weights, total)
}

func matchesFeatureRequest(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range featureRequestPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
