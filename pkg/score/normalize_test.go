package score

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

var downloadAnchors = []Anchor{
	{Value: 1_000, Score: 30},
	{Value: 10_000, Score: 50},
	{Value: 1_000_000, Score: 90},
}

func TestNormalizeLogarithmic(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		expected float64
	}{
		{name: "zero value scores zero", value: 0, expected: 0},
		{name: "negative value scores zero", value: -500, expected: 0},
		{name: "below first anchor extrapolates flat", value: 10, expected: 30},
		{name: "exactly first anchor", value: 1_000, expected: 30},
		{name: "exactly middle anchor", value: 10_000, expected: 50},
		{name: "interpolates between anchors", value: 100_000, expected: 70},
		{name: "exactly last anchor", value: 1_000_000, expected: 90},
		{name: "above last anchor extrapolates flat", value: 50_000_000, expected: 90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeLogarithmic(tt.value, downloadAnchors)
			assert.InDelta(t, tt.expected, got, 1e-9)
		})
	}
}

func TestNormalizeLogarithmicSanitizesInput(t *testing.T) {
	assert.Equal(t, 0.0, NormalizeLogarithmic(math.NaN(), downloadAnchors))
	assert.Equal(t, 0.0, NormalizeLogarithmic(math.Inf(1), downloadAnchors))
	assert.Equal(t, 0.0, NormalizeLogarithmic(1_000, nil))
}

func TestNormalizeLogarithmicMonotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 1000; i++ {
		v1 := math.Pow(10, rng.Float64()*8) // up to 1e8
		v2 := math.Pow(10, rng.Float64()*8)
		if v1 > v2 {
			v1, v2 = v2, v1
		}
		s1 := NormalizeLogarithmic(v1, downloadAnchors)
		s2 := NormalizeLogarithmic(v2, downloadAnchors)
		assert.LessOrEqual(t, s1, s2, "v1=%v v2=%v", v1, v2)
		assert.GreaterOrEqual(t, s1, 0.0)
		assert.LessOrEqual(t, s2, 100.0)
	}
}

func TestNormalizeRatio(t *testing.T) {
	tests := []struct {
		name           string
		matched, total float64
		expected       float64
	}{
		{name: "zero total is no data not 100 percent", matched: 0, total: 0, expected: 0},
		{name: "matched with zero total still zero", matched: 5, total: 0, expected: 0},
		{name: "half", matched: 5, total: 10, expected: 50},
		{name: "all matched", matched: 10, total: 10, expected: 100},
		{name: "rounds to nearest", matched: 1, total: 3, expected: 33},
		{name: "rounds up", matched: 2, total: 3, expected: 67},
		{name: "negative matched sanitized", matched: -4, total: 10, expected: 0},
		{name: "negative total is no data", matched: 4, total: -10, expected: 0},
		{name: "matched above total clamps", matched: 20, total: 10, expected: 100},
		{name: "nan matched sanitized", matched: math.NaN(), total: 10, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeRatio(tt.matched, tt.total))
		})
	}
}

func TestNormalizeRatioMatchesRounding(t *testing.T) {
	for n := 1; n <= 40; n++ {
		for k := 0; k <= n; k++ {
			want := math.Round(100 * float64(k) / float64(n))
			assert.Equal(t, want, NormalizeRatio(float64(k), float64(n)), "k=%d n=%d", k, n)
		}
	}
}

func TestNormalizeGapFlags(t *testing.T) {
	tests := []struct {
		name     string
		flags    map[string]bool
		expected float64
	}{
		{name: "empty set scores zero", flags: nil, expected: 0},
		{name: "no gaps", flags: map[string]bool{"a": false, "b": false}, expected: 0},
		{name: "all gaps", flags: map[string]bool{"a": true, "b": true}, expected: 100},
		{
			name:     "one of five",
			flags:    map[string]bool{"a": true, "b": false, "c": false, "d": false, "e": false},
			expected: 20,
		},
		{
			name:     "three of five",
			flags:    map[string]bool{"a": true, "b": true, "c": true, "d": false, "e": false},
			expected: 60,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeGapFlags(tt.flags))
		})
	}
}
