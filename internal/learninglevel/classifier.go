// Package learninglevel maps a composite score to a named band.
package learninglevel

import (
	"context"

	"avalia-integrity/internal/gradeconfig"
	"avalia-integrity/internal/models"
)

// BandSource supplies the configured bands. Implemented by the grade
// configuration resolver, which caches them alongside the configurations.
type BandSource interface {
	Bands(ctx context.Context) []models.LearningLevelBand
}

type Classifier struct {
	source BandSource
}

func New(source BandSource) *Classifier {
	return &Classifier{source: source}
}

// Classify returns the band containing the score, or nil for a non-positive
// score ("unclassified"). Grade-specific bands take precedence over global
// ones. Bands are non-overlapping by invariant, so the result does not depend
// on iteration order within a scope.
func (c *Classifier) Classify(ctx context.Context, score float64, gradeLabel string) *models.LearningLevel {
	if score <= 0 {
		return nil
	}
	return ClassifyWith(c.source.Bands(ctx), score, gradeconfig.GradeNumber(gradeLabel))
}

// ClassifyWith is the pure classification over an explicit band set.
func ClassifyWith(bands []models.LearningLevelBand, score float64, gradeNumber string) *models.LearningLevel {
	if score <= 0 {
		return nil
	}

	if gradeNumber != "" {
		for _, b := range bands {
			if b.Grade == gradeNumber && b.Contains(score) {
				return &models.LearningLevel{Code: b.Code, Name: b.Name, Color: b.Color}
			}
		}
	}
	for _, b := range bands {
		if b.Grade == "" && b.Contains(score) {
			return &models.LearningLevel{Code: b.Code, Name: b.Name, Color: b.Color}
		}
	}
	return nil
}
