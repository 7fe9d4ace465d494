package demand

import "github.com/gapradar/gapradar/pkg/score"

// Result is the output of one adapter: the composite 0-100 demand score,
// the per-dimension sub-scores behind it, and how many observations backed
// the heuristics. A composite of 0 can mean "no demand" or "no data"; use
// SampleSize to tell them apart.
type Result struct {
	Composite  int                `json:"composite"`
	SubScores  map[string]float64 `json:"sub_scores"`
	SampleSize int                `json:"sample_size"`
}

func finish(sub map[string]float64, weights score.Weights, samples int) Result {
	return Result{
		Composite:  score.Aggregate(sub, weights),
		SubScores:  sub,
		SampleSize: samples,
	}
}
