package score

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate(t *testing.T) {
	weights := Weights{"a": 0.3, "b": 0.3, "c": 0.4}

	tests := []struct {
		name     string
		sub      map[string]float64
		expected int
	}{
		{name: "empty sub-scores give zero", sub: nil, expected: 0},
		{name: "all zero gives zero", sub: map[string]float64{"a": 0, "b": 0, "c": 0}, expected: 0},
		{name: "all hundred gives hundred", sub: map[string]float64{"a": 100, "b": 100, "c": 100}, expected: 100},
		{name: "weighted sum", sub: map[string]float64{"a": 50, "b": 100, "c": 25}, expected: 55},
		{name: "missing key contributes zero", sub: map[string]float64{"a": 100}, expected: 30},
		{name: "extra keys ignored", sub: map[string]float64{"a": 100, "zzz": 100}, expected: 30},
		{name: "out of range sub-score clamped", sub: map[string]float64{"a": 500}, expected: 30},
		{name: "nan sub-score skipped", sub: map[string]float64{"a": math.NaN(), "b": 100}, expected: 30},
		{name: "rounds to nearest", sub: map[string]float64{"a": 5}, expected: 2}, // 1.5 rounds half away from zero
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Aggregate(tt.sub, weights))
		})
	}
}

func TestAggregateLinearity(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	names := []string{"w", "x", "y", "z"}

	for i := 0; i < 1000; i++ {
		// Random weights normalized to sum exactly 1.
		raw := make([]float64, len(names))
		sum := 0.0
		for j := range raw {
			raw[j] = rng.Float64() + 0.01
			sum += raw[j]
		}
		weights := Weights{}
		sub := map[string]float64{}
		expected := 0.0
		for j, name := range names {
			w := raw[j] / sum
			v := rng.Float64() * 100
			weights[name] = w
			sub[name] = v
			expected += v * w
		}

		got := Aggregate(sub, weights)
		want := int(math.Round(math.Min(100, math.Max(0, expected))))
		assert.Equal(t, want, got)
		assert.GreaterOrEqual(t, got, 0)
		assert.LessOrEqual(t, got, 100)
	}
}

func TestValidateWeights(t *testing.T) {
	tests := []struct {
		name    string
		weights Weights
		wantErr bool
	}{
		{name: "exact sum", weights: Weights{"a": 0.3, "b": 0.3, "c": 0.4}, wantErr: false},
		{name: "within tolerance", weights: Weights{"a": 0.5, "b": 0.48}, wantErr: false},
		{name: "empty", weights: Weights{}, wantErr: true},
		{name: "sum too low", weights: Weights{"a": 0.2, "b": 0.2}, wantErr: true},
		{name: "sum too high", weights: Weights{"a": 0.8, "b": 0.8}, wantErr: true},
		{name: "negative weight", weights: Weights{"a": 1.2, "b": -0.2}, wantErr: true},
		{name: "nan weight", weights: Weights{"a": math.NaN(), "b": 1.0}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWeights(tt.weights)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
