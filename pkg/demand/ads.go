package demand

import "github.com/gapradar/gapradar/pkg/score"

// DefaultAdWeights weight the paid-ads sub-scores. Long-running ads carry
// the most weight: an advertiser keeps paying for an ad only while it
// converts, so longevity is proven demand.
var DefaultAdWeights = score.Weights{
	"advertiser_volume":  0.3,
	"long_running_ratio": 0.4,
	"impression_volume":  0.3,
}

// AdvertiserAnchors calibrate the log transform for distinct advertiser
// counts in a niche.
var AdvertiserAnchors = []score.Anchor{
	{Value: 10, Score: 30},
	{Value: 100, Score: 60},
	{Value: 1_000, Score: 90},
}

// ImpressionAnchors calibrate the log transform for average impressions
// per ad.
var ImpressionAnchors = []score.Anchor{
	{Value: 1_000, Score: 20},
	{Value: 100_000, Score: 60},
	{Value: 10_000_000, Score: 90},
}

// Ads active longer than this count as long-running.
const longRunningMinDays = 90

// Ad is one ad-library entry for a niche keyword.
type Ad struct {
	Advertiser  string
	DaysActive  int
	Impressions float64
}

// AdSignals is the raw signal set for one niche's paid-ads landscape.
type AdSignals struct {
	Ads []Ad
}

// ScoreAds computes the paid-ads demand score. Pass nil weights to use
// DefaultAdWeights. An empty ad slice produces a composite of 0.
func ScoreAds(sig AdSignals, weights score.Weights) Result {
	if weights == nil {
		weights = DefaultAdWeights
	}

	total := len(sig.Ads)
	advertisers := make(map[string]bool)
	longRunning := 0
	avgImpressions := 0.0

	if total > 0 {
		sum := 0.0
		for _, ad := range sig.Ads {
			if ad.Advertiser != "" {
				advertisers[ad.Advertiser] = true
			}
			if ad.DaysActive > longRunningMinDays {
				longRunning++
			}
			if ad.Impressions > 0 {
				sum += ad.Impressions
			}
		}
		avgImpressions = sum / float64(total)
	}

	sub := map[string]float64{
		"advertiser_volume":  score.NormalizeLogarithmic(float64(len(advertisers)), AdvertiserAnchors),
		"long_running_ratio": score.NormalizeRatio(float64(longRunning), float64(total)),
		"impression_volume":  score.NormalizeLogarithmic(avgImpressions, ImpressionAnchors),
	}

	return finish(sub, weights, total)
}
