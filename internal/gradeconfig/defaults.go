package gradeconfig

import "avalia-integrity/internal/models"

// defaultGrades covers the fundamental-education range the platform imports.
var defaultGrades = []string{"1", "2", "3", "4", "5", "6", "7", "8", "9"}

// Default is the built-in structure used when no configuration is on file:
// four subjects, equally weighted, no essay component.
func Default(grade string) *models.GradeConfiguration {
	return &models.GradeConfiguration{
		Grade: grade,
		Subjects: map[models.Subject]models.SubjectConfig{
			models.SubjectLP:  {Evaluated: true, Items: 22, Weight: 1},
			models.SubjectMAT: {Evaluated: true, Items: 22, Weight: 1},
			models.SubjectCH:  {Evaluated: true, Items: 11, Weight: 1},
			models.SubjectCN:  {Evaluated: true, Items: 11, Weight: 1},
		},
	}
}

func defaultConfigurations() map[string]*models.GradeConfiguration {
	configs := make(map[string]*models.GradeConfiguration, len(defaultGrades))
	for _, g := range defaultGrades {
		configs[g] = Default(g)
	}
	return configs
}

// DefaultBands are the global thresholds used when none are configured:
// <3 Insuficiente, [3,5) Básico, [5,7.5) Adequado, >=7.5 Avançado.
func DefaultBands() []models.LearningLevelBand {
	return []models.LearningLevelBand{
		{Code: "insuficiente", Name: "Insuficiente", Color: "#e74c3c", Lower: 0, Upper: 3},
		{Code: "basico", Name: "Básico", Color: "#f39c12", Lower: 3, Upper: 5},
		{Code: "adequado", Name: "Adequado", Color: "#2ecc71", Lower: 5, Upper: 7.5},
		{Code: "avancado", Name: "Avançado", Color: "#3498db", Lower: 7.5, Upper: 10},
	}
}
