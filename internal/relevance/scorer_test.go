package relevance

import (
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	testCases := []struct {
		name     string
		a        []float64
		b        []float64
		expected float64
	}{
		{name: "identical vectors", a: []float64{1, 2, 3}, b: []float64{1, 2, 3}, expected: 1.0},
		{name: "opposite vectors", a: []float64{1, 0}, b: []float64{-1, 0}, expected: -1.0},
		{name: "orthogonal vectors", a: []float64{1, 0}, b: []float64{0, 1}, expected: 0.0},
		{name: "zero-norm left", a: []float64{0, 0, 0}, b: []float64{1, 2, 3}, expected: 0.0},
		{name: "zero-norm right", a: []float64{1, 2, 3}, b: []float64{0, 0, 0}, expected: 0.0},
		{name: "mismatched lengths", a: []float64{1, 2}, b: []float64{1, 2, 3}, expected: 0.0},
		{name: "both empty", a: nil, b: nil, expected: 0.0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := CosineSimilarity(tc.a, tc.b)
			if math.Abs(got-tc.expected) > 1e-9 {
				t.Errorf("CosineSimilarity() = %f, want %f", got, tc.expected)
			}
		})
	}
}

func TestCalibrate(t *testing.T) {
	scorer := NewScorer(Thresholds{CalibrationPower: 2.0, MinScore: 0.4, Buckets: DefaultThresholds().Buckets})

	testCases := []struct {
		name     string
		raw      float64
		expected float64
	}{
		{name: "perfect similarity", raw: 1.0, expected: 1.0},
		{name: "no similarity", raw: -1.0, expected: 0.0},
		{name: "mid-range penalized", raw: 0.0, expected: 0.25}, // (0+1)/2 = 0.5, squared
		{name: "strong similarity", raw: 0.8, expected: 0.81},   // 0.9 squared
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := scorer.Calibrate(tc.raw)
			if math.Abs(got-tc.expected) > 1e-9 {
				t.Errorf("Calibrate(%f) = %f, want %f", tc.raw, got, tc.expected)
			}
		})
	}
}

func TestCalibrateBounds(t *testing.T) {
	scorer := NewScorer(DefaultThresholds())

	for raw := -1.0; raw <= 1.0; raw += 0.05 {
		score := scorer.Calibrate(raw)
		if score < 0 || score > 1 {
			t.Errorf("Calibrate(%f) = %f outside [0,1]", raw, score)
		}
	}
}

func TestLabelMapping(t *testing.T) {
	scorer := NewScorer(DefaultThresholds())

	testCases := []struct {
		score    float64
		expected Label
	}{
		{score: 0.0, expected: LabelPoor},
		{score: 0.39, expected: LabelPoor},
		{score: 0.4, expected: LabelFair},
		{score: 0.59, expected: LabelFair},
		{score: 0.6, expected: LabelModerate},
		{score: 0.79, expected: LabelModerate},
		{score: 0.8, expected: LabelGood},
		{score: 0.9, expected: LabelGood},
		{score: 0.95, expected: LabelExcellent},
		{score: 1.0, expected: LabelExcellent},
	}

	for _, tc := range testCases {
		if got := scorer.Label(tc.score); got != tc.expected {
			t.Errorf("Label(%f) = %s, want %s", tc.score, got, tc.expected)
		}
	}
}

func TestLabelMonotonic(t *testing.T) {
	scorer := NewScorer(DefaultThresholds())

	rank := map[Label]int{
		LabelPoor:      0,
		LabelFair:      1,
		LabelModerate:  2,
		LabelGood:      3,
		LabelExcellent: 4,
	}

	previous := -1
	for score := 0.0; score <= 1.0; score += 0.01 {
		current := rank[scorer.Label(score)]
		if current < previous {
			t.Fatalf("label rank decreased at score %f", score)
		}
		previous = current
	}
}

func TestAccept(t *testing.T) {
	scorer := NewScorer(DefaultThresholds())

	if scorer.Accept(0.39) {
		t.Error("score below the gate should be rejected")
	}
	if !scorer.Accept(0.4) {
		t.Error("score at the gate should be accepted")
	}
	if !scorer.Accept(0.9) {
		t.Error("high score should be accepted")
	}
}

func TestScoreEndToEnd(t *testing.T) {
	scorer := NewScorer(DefaultThresholds())

	doc := []float64{0.5, 0.5, 0.5}
	persona := []float64{0.5, 0.5, 0.5}

	score := scorer.Score(doc, persona)
	if math.Abs(score-1.0) > 1e-9 {
		t.Errorf("identical vectors should score 1.0, got %f", score)
	}
	if scorer.Label(score) != LabelExcellent {
		t.Errorf("perfect score should label Excellent, got %s", scorer.Label(score))
	}

	if got := scorer.Score([]float64{0, 0, 0}, persona); got != 0 {
		t.Errorf("zero-norm document should score the minimum, got %f", got)
	}
	if got := scorer.Score(nil, nil); got != 0 {
		t.Errorf("empty vectors should score the minimum, got %f", got)
	}
}
