package score

import (
	"fmt"
	"math"
)

// Weights maps a sub-score name to its weight in the composite. A weight
// set is expected to sum to 1.0; see ValidateWeights.
type Weights map[string]float64

// Weight sum tolerance. Sums outside this band change the score scale,
// which is a wiring mistake rather than a data condition.
const (
	weightSumMin = 0.95
	weightSumMax = 1.05
)

// ValidateWeights checks a weight set for negative weights and for a sum
// outside the tolerance band. Call it where weights are wired together
// (adapter construction, config load) so bad weight maps fail fast instead
// of silently rescaling every score.
func ValidateWeights(w Weights) error {
	if len(w) == 0 {
		return fmt.Errorf("weights: empty weight map")
	}
	sum := 0.0
	for name, v := range w {
		if !isFinite(v) || v < 0 {
			return fmt.Errorf("weights: %q has invalid weight %v", name, v)
		}
		sum += v
	}
	if sum < weightSumMin || sum > weightSumMax {
		return fmt.Errorf("weights: sum %.3f outside [%.2f, %.2f]", sum, weightSumMin, weightSumMax)
	}
	return nil
}

// Aggregate combines named sub-scores into a single 0-100 composite using
// the given weights. Keys present in weights but absent from subScores
// contribute 0; upstream collectors legitimately return no data for a
// dimension and that must not blow up a scoring call. The result is clamped
// and rounded to the nearest integer.
//
// All-zero sub-scores (including the no-data-at-all case) produce 0, which
// is indistinguishable from measured low demand. Callers that care must
// track sample sizes alongside the score.
func Aggregate(subScores map[string]float64, weights Weights) int {
	sum := 0.0
	for name, w := range weights {
		if !isFinite(w) || w < 0 {
			continue
		}
		v, ok := subScores[name]
		if !ok || !isFinite(v) {
			continue
		}
		sum += clamp(v, 0, 100) * w
	}
	return int(math.Round(clamp(sum, 0, 100)))
}
