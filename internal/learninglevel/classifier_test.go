package learninglevel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avalia-integrity/internal/gradeconfig"
	"avalia-integrity/internal/models"
)

type staticBands []models.LearningLevelBand

func (s staticBands) Bands(context.Context) []models.LearningLevelBand { return s }

func TestClassify_DefaultBands(t *testing.T) {
	c := New(staticBands(gradeconfig.DefaultBands()))

	tests := []struct {
		score    float64
		expected string
	}{
		{0.5, "insuficiente"},
		{2.99, "insuficiente"},
		{3, "basico"},
		{4.99, "basico"},
		{5, "adequado"},
		{7.49, "adequado"},
		{7.5, "avancado"},
		{10, "avancado"},
	}

	for _, tt := range tests {
		level := c.Classify(context.Background(), tt.score, "8º Ano")
		require.NotNil(t, level, "score %v", tt.score)
		assert.Equal(t, tt.expected, level.Code, "score %v", tt.score)
	}
}

func TestClassify_NonPositiveScoreIsUnclassified(t *testing.T) {
	c := New(staticBands(gradeconfig.DefaultBands()))

	assert.Nil(t, c.Classify(context.Background(), 0, "8"))
	assert.Nil(t, c.Classify(context.Background(), -1, "8"))
}

func TestClassify_GradeScopedBandsTakePrecedence(t *testing.T) {
	bands := append(gradeconfig.DefaultBands(), models.LearningLevelBand{
		Code: "adequado_5", Name: "Adequado", Color: "#0f0", Lower: 0, Upper: 10, Grade: "5",
	})
	c := New(staticBands(bands))

	level := c.Classify(context.Background(), 2, "5º Ano")
	require.NotNil(t, level)
	assert.Equal(t, "adequado_5", level.Code)

	// other grades still hit the global set
	level = c.Classify(context.Background(), 2, "8º Ano")
	require.NotNil(t, level)
	assert.Equal(t, "insuficiente", level.Code)
}

func TestClassifyWith_EveryScoreMapsToExactlyOneBand(t *testing.T) {
	bands := gradeconfig.DefaultBands()

	// contiguous non-overlapping bands over [0, 10]: sweep the range and
	// verify a single containing band per score
	for score := 0.01; score <= 10; score += 0.07 {
		matches := 0
		for _, b := range bands {
			if b.Contains(score) {
				matches++
			}
		}
		assert.Equal(t, 1, matches, "score %v", score)

		require.NotNil(t, ClassifyWith(bands, score, ""))
	}
}
