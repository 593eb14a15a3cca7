package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"avalia-integrity/internal/models"
)

func equalWeightConfig() *models.GradeConfiguration {
	return &models.GradeConfiguration{
		Grade: "8",
		Subjects: map[models.Subject]models.SubjectConfig{
			models.SubjectLP:  {Evaluated: true, Items: 22, Weight: 1},
			models.SubjectMAT: {Evaluated: true, Items: 22, Weight: 1},
			models.SubjectCH:  {Evaluated: true, Items: 11, Weight: 1},
			models.SubjectCN:  {Evaluated: true, Items: 11, Weight: 1},
		},
	}
}

func TestComposite_ZeroScoreMeansNotEvaluated(t *testing.T) {
	// subjects {LP:8, MAT:0, CH:7, CN:9} -> MAT excluded -> (8+7+9)/3 = 8.0
	scores := map[models.Subject]float64{
		models.SubjectLP:  8,
		models.SubjectMAT: 0,
		models.SubjectCH:  7,
		models.SubjectCN:  9,
	}

	avg, ok := Composite(scores, 0, equalWeightConfig())
	assert.True(t, ok)
	assert.InDelta(t, 8.0, avg, 0.0001)
}

func TestComposite_NoUsableScoreNeverDividesByZero(t *testing.T) {
	tests := []struct {
		name   string
		scores map[models.Subject]float64
	}{
		{"all zero", map[models.Subject]float64{models.SubjectLP: 0, models.SubjectMAT: 0}},
		{"empty", map[models.Subject]float64{}},
		{"nil", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			avg, ok := Composite(tt.scores, 0, equalWeightConfig())
			assert.False(t, ok)
			assert.Equal(t, 0.0, avg)
		})
	}
}

func TestComposite_WeightedSubjects(t *testing.T) {
	cfg := equalWeightConfig()
	cfg.Subjects[models.SubjectLP] = models.SubjectConfig{Evaluated: true, Weight: 2}
	cfg.Subjects[models.SubjectMAT] = models.SubjectConfig{Evaluated: true, Weight: 1}
	cfg.Subjects[models.SubjectCH] = models.SubjectConfig{Evaluated: false}
	cfg.Subjects[models.SubjectCN] = models.SubjectConfig{Evaluated: false}

	scores := map[models.Subject]float64{
		models.SubjectLP:  6,
		models.SubjectMAT: 9,
		models.SubjectCH:  10, // not evaluated, must be ignored
	}

	avg, ok := Composite(scores, 0, cfg)
	assert.True(t, ok)
	assert.InDelta(t, 7.0, avg, 0.0001) // (6*2 + 9*1) / 3
}

func TestComposite_EssayParticipatesWhenEnabled(t *testing.T) {
	cfg := equalWeightConfig()
	cfg.EssayEnabled = true
	cfg.EssayWeight = 1

	scores := map[models.Subject]float64{
		models.SubjectLP:  8,
		models.SubjectMAT: 6,
	}

	avg, ok := Composite(scores, 7, cfg)
	assert.True(t, ok)
	assert.InDelta(t, 7.0, avg, 0.0001) // (8+6+7)/3

	// essay score of zero means not scored even with the component enabled
	avg, ok = Composite(scores, 0, cfg)
	assert.True(t, ok)
	assert.InDelta(t, 7.0, avg, 0.0001) // (8+6)/2
}

func TestComposite_UnconfiguredWeightDefaultsToOne(t *testing.T) {
	cfg := &models.GradeConfiguration{
		Grade: "5",
		Subjects: map[models.Subject]models.SubjectConfig{
			models.SubjectLP:  {Evaluated: true},
			models.SubjectMAT: {Evaluated: true},
		},
	}

	avg, ok := Composite(map[models.Subject]float64{
		models.SubjectLP:  4,
		models.SubjectMAT: 6,
	}, 0, cfg)
	assert.True(t, ok)
	assert.InDelta(t, 5.0, avg, 0.0001)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 7.33, Round2(22.0/3.0))
	assert.Equal(t, 8.0, Round2(8.0000001))
	assert.Equal(t, 0.0, Round2(0))
}

func TestWithinTolerance(t *testing.T) {
	assert.True(t, WithinTolerance(7.33, 22.0/3.0, 0.02))
	assert.False(t, WithinTolerance(5.00, 22.0/3.0, 0.02))
	assert.True(t, WithinTolerance(5.00, 5.01, 0.02))
}
