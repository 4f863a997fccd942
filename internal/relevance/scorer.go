// Package relevance turns raw embedding similarity into a calibrated
// document-to-persona relevance score and a categorical label, and makes
// the accept/reject gate decision for the pipeline.
package relevance

import (
	"math"
	"sort"
)

// Label is a categorical relevance bucket. Labels form an ordered set:
// Poor < Fair < Moderate < Good < Excellent.
type Label string

const (
	LabelPoor       Label = "Poor"
	LabelFair       Label = "Fair"
	LabelModerate   Label = "Moderate"
	LabelGood       Label = "Good"
	LabelExcellent  Label = "Excellent"
	LabelIrrelevant Label = "Irrelevant" // Keyword extraction found nothing; never produced by Label()
)

// Thresholds is the single configuration surface for score calibration and
// labeling. One canonical set applies to a whole deployment.
type Thresholds struct {
	// CalibrationPower is the exponent applied to the remapped cosine
	// similarity. Values above 1 suppress mid-range scores, treating
	// moderate similarity as a weak signal.
	CalibrationPower float64

	// MinScore is the gate: calibrated scores below it reject the document
	// unless the caller forces summarization.
	MinScore float64

	// Buckets map lower bounds to labels. A score s gets the label of the
	// highest bound <= s. Bounds must include 0.
	Buckets map[float64]Label
}

// DefaultThresholds returns the canonical calibration used when the config
// file does not override it.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CalibrationPower: 2.0,
		MinScore:         0.4,
		Buckets: map[float64]Label{
			0.0:  LabelPoor,
			0.4:  LabelFair,
			0.6:  LabelModerate,
			0.8:  LabelGood,
			0.95: LabelExcellent,
		},
	}
}

// Scorer scores document vectors against persona vectors under one
// Thresholds configuration.
type Scorer struct {
	thresholds Thresholds
	bounds     []float64 // sorted bucket lower bounds
}

// NewScorer creates a scorer for the given thresholds.
func NewScorer(thresholds Thresholds) *Scorer {
	bounds := make([]float64, 0, len(thresholds.Buckets))
	for bound := range thresholds.Buckets {
		bounds = append(bounds, bound)
	}
	sort.Float64s(bounds)
	return &Scorer{thresholds: thresholds, bounds: bounds}
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched lengths or a zero-norm vector score 0 rather than erroring,
// so an empty persona profile or failed embedding degrades to "no signal".
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Calibrate remaps a raw cosine similarity from [-1,1] into [0,1] and
// applies the configured nonlinear penalty.
func (s *Scorer) Calibrate(raw float64) float64 {
	remapped := (raw + 1) / 2
	if remapped < 0 {
		remapped = 0
	} else if remapped > 1 {
		remapped = 1
	}

	power := s.thresholds.CalibrationPower
	if power <= 0 {
		power = 1
	}
	return math.Pow(remapped, power)
}

// Score computes the calibrated relevance of a document vector against a
// persona vector. A missing or zero-norm vector carries no signal and
// scores 0 outright instead of being calibrated as "halfway".
func (s *Scorer) Score(docVector, personaVector []float64) float64 {
	if isZero(docVector) || isZero(personaVector) {
		return 0
	}
	return s.Calibrate(CosineSimilarity(docVector, personaVector))
}

func isZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// Label maps a calibrated score to its bucket. The mapping is total and
// monotonic: every score in [0,1] gets exactly one label, and a higher
// score never gets a lower label.
func (s *Scorer) Label(score float64) Label {
	label := LabelPoor
	for _, bound := range s.bounds {
		if score >= bound {
			label = s.thresholds.Buckets[bound]
		}
	}
	return label
}

// Accept reports whether a calibrated score passes the gate.
func (s *Scorer) Accept(score float64) bool {
	return score >= s.thresholds.MinScore
}

// MinScore exposes the gate threshold for logging and messages.
func (s *Scorer) MinScore() float64 {
	return s.thresholds.MinScore
}
