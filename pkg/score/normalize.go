package score

import "math"

// Anchor maps a raw magnitude to a target score, used to calibrate
// logarithmic normalization. Anchors must be ordered by ascending Value.
type Anchor struct {
	Value float64
	Score float64
}

// NormalizeLogarithmic converts a raw count spanning many orders of
// magnitude into a 0-100 score. It takes log10 of the value and linearly
// interpolates between the two nearest anchors; beyond the first or last
// anchor it extrapolates flat. Diminishing returns are the point: the jump
// from 1k to 10k downloads should move the score more than 1M to 2M.
//
// Values <= 0 (and NaN/Inf) score 0.
func NormalizeLogarithmic(value float64, anchors []Anchor) float64 {
	if len(anchors) == 0 {
		return 0
	}
	if !isFinite(value) || value <= 0 {
		return 0
	}

	lv := math.Log10(value)

	first := anchors[0]
	if lv <= math.Log10(first.Value) {
		return clamp(first.Score, 0, 100)
	}
	last := anchors[len(anchors)-1]
	if lv >= math.Log10(last.Value) {
		return clamp(last.Score, 0, 100)
	}

	for i := 1; i < len(anchors); i++ {
		lo, hi := anchors[i-1], anchors[i]
		lhi := math.Log10(hi.Value)
		if lv > lhi {
			continue
		}
		llo := math.Log10(lo.Value)
		if lhi == llo {
			return clamp(hi.Score, 0, 100)
		}
		t := (lv - llo) / (lhi - llo)
		return clamp(lo.Score+t*(hi.Score-lo.Score), 0, 100)
	}

	return clamp(last.Score, 0, 100)
}

// NormalizeRatio converts matched/total observations into a 0-100
// percentage, rounded to the nearest integer value. A total of zero means
// no data and scores 0; "no reviews" must never read as "100% negative".
// Negative or non-finite inputs are treated as 0.
func NormalizeRatio(matched, total float64) float64 {
	if !isFinite(matched) || matched < 0 {
		matched = 0
	}
	if !isFinite(total) || total <= 0 {
		return 0
	}
	return clamp(math.Round(100*matched/total), 0, 100)
}

// NormalizeGapFlags converts a set of named "expected category is missing"
// flags into the percentage of flags that are true. More missing categories
// means a bigger gap, hence a higher opportunity score. An empty set
// scores 0.
func NormalizeGapFlags(flags map[string]bool) float64 {
	if len(flags) == 0 {
		return 0
	}
	missing := 0
	for _, gap := range flags {
		if gap {
			missing++
		}
	}
	return clamp(math.Round(100*float64(missing)/float64(len(flags))), 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
