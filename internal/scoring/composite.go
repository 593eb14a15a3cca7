// Package scoring computes the weighted composite score of a student's
// consolidated result. It is the single source of truth reused by detection
// (expected value) and correction (replacement value).
package scoring

import (
	"math"

	"avalia-integrity/internal/models"
)

// Composite returns the weighted average over the subjects the configuration
// marks as evaluated. A zero or absent score means "not evaluated" for that
// subject, per domain convention, and is excluded from both the sum and the
// weight total. The essay participates the same way when enabled. The second
// return is false when no subject had a usable score.
func Composite(scores map[models.Subject]float64, essay float64, cfg *models.GradeConfiguration) (float64, bool) {
	var sum, weightTotal float64

	for subject, sc := range cfg.Subjects {
		if !sc.Evaluated {
			continue
		}
		score, ok := scores[subject]
		if !ok || score <= 0 {
			continue
		}
		weight := sc.Weight
		if weight <= 0 {
			weight = 1
		}
		sum += score * weight
		weightTotal += weight
	}

	if cfg.EssayEnabled && essay > 0 {
		weight := cfg.EssayWeight
		if weight <= 0 {
			weight = 1
		}
		sum += essay * weight
		weightTotal += weight
	}

	if weightTotal == 0 {
		return 0, false
	}
	return sum / weightTotal, true
}

// Round2 rounds to 2 decimal places. Applied only at the point of storage or
// comparison, never earlier, to avoid compounding rounding error.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// WithinTolerance reports whether stored and expected agree once both are
// rounded for comparison.
func WithinTolerance(stored, expected, tolerance float64) bool {
	return math.Abs(Round2(stored)-Round2(expected)) <= tolerance
}
