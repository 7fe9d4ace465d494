package demand

import (
	"regexp"
	"strings"

	"github.com/gapradar/gapradar/pkg/score"
)

// DefaultContentWeights weight the content/video sub-scores.
var DefaultContentWeights = score.Weights{
	"view_velocity":          0.4,
	"comment_question_ratio": 0.3,
	"content_gap_ratio":      0.3,
}

// ViewAnchors calibrate the log transform for average views per video.
var ViewAnchors = []score.Anchor{
	{Value: 1_000, Score: 20},
	{Value: 10_000, Score: 50},
	{Value: 100_000, Score: 75},
	{Value: 1_000_000, Score: 95},
}

// Duration thresholds for the short-form / long-form coverage checks.
const (
	shortFormMaxSeconds = 300  // under 5 minutes
	longFormMinSeconds  = 1200 // over 20 minutes
)

var (
	questionRe     = regexp.MustCompile(`(?i)\b(how|what|where|why|when)\b|\bcan i\b|\bshould i\b`)
	beginnerRe     = regexp.MustCompile(`(?i)\b(beginner|beginners|basics|getting started|intro|introduction|101|start here)\b`)
	intermediateRe = regexp.MustCompile(`(?i)\b(intermediate|next level|beyond the basics|step up)\b`)
	advancedRe     = regexp.MustCompile(`(?i)\b(advanced|masterclass|expert|deep dive|in-depth|pro tips)\b`)
)

// Video is one piece of niche content with its title, length, and views.
type Video struct {
	Title    string
	Duration int // seconds
	Views    float64
}

// ContentSignals is the raw signal set for one content niche.
type ContentSignals struct {
	Videos   []Video
	Comments []string
}

// ScoreContent computes the content/video demand score. Pass nil weights to
// use DefaultContentWeights. Empty videos and comments produce a composite
// of 0.
func ScoreContent(sig ContentSignals, weights score.Weights) Result {
	if weights == nil {
		weights = DefaultContentWeights
	}

	avgViews := 0.0
	if len(sig.Videos) > 0 {
		sum := 0.0
		for _, v := range sig.Videos {
			if v.Views > 0 {
				sum += v.Views
			}
		}
		avgViews = sum / float64(len(sig.Videos))
	}

	questions := 0
	for _, c := range sig.Comments {
		if isQuestion(c) {
			questions++
		}
	}

	sub := map[string]float64{
		"view_velocity":          score.NormalizeLogarithmic(avgViews, ViewAnchors),
		"comment_question_ratio": score.NormalizeRatio(float64(questions), float64(len(sig.Comments))),
		"content_gap_ratio":      score.NormalizeGapFlags(ContentGaps(sig.Videos)),
	}

	return finish(sub, weights, len(sig.Videos)+len(sig.Comments))
}

// ContentGaps checks which expected content categories are absent from a
// set of videos. Each true flag marks a missing category, i.e. an
// opportunity to fill. An empty video slice leaves every flag false so the
// gap ratio reads 0 rather than "everything is missing" on no data.
func ContentGaps(videos []Video) map[string]bool {
	flags := map[string]bool{
		"beginner":     false,
		"intermediate": false,
		"advanced":     false,
		"short_form":   false,
		"long_form":    false,
	}
	if len(videos) == 0 {
		return flags
	}

	var hasBeginner, hasIntermediate, hasAdvanced, hasShort, hasLong bool
	for _, v := range videos {
		if beginnerRe.MatchString(v.Title) {
			hasBeginner = true
		}
		if intermediateRe.MatchString(v.Title) {
			hasIntermediate = true
		}
		if advancedRe.MatchString(v.Title) {
			hasAdvanced = true
		}
		if v.Duration > 0 && v.Duration < shortFormMaxSeconds {
			hasShort = true
		}
		if v.Duration > longFormMinSeconds {
			hasLong = true
		}
	}

	flags["beginner"] = !hasBeginner
	flags["intermediate"] = !hasIntermediate
	flags["advanced"] = !hasAdvanced
	flags["short_form"] = !hasShort
	flags["long_form"] = !hasLong
	return flags
}

func isQuestion(comment string) bool {
	if strings.Contains(comment, "?") {
		return true
	}
	return questionRe.MatchString(comment)
}
