// internal/models/assessment.go
package models

import "database/sql"

// Subject identifies one of the four core evaluated subjects.
type Subject string

const (
	SubjectLP  Subject = "LP"  // Língua Portuguesa
	SubjectMAT Subject = "MAT" // Matemática
	SubjectCH  Subject = "CH"  // Ciências Humanas
	SubjectCN  Subject = "CN"  // Ciências da Natureza
)

// Subjects lists the core subjects in presentation order.
var Subjects = []Subject{SubjectLP, SubjectMAT, SubjectCH, SubjectCN}

// SubjectConfig describes how one subject participates in a grade's assessment.
type SubjectConfig struct {
	Evaluated bool    `json:"evaluated"`
	Items     int     `json:"items"`
	Weight    float64 `json:"weight"`
}

// GradeConfiguration is the assessment structure of one grade level, keyed by
// the numeric grade label ("8" for "8º Ano").
type GradeConfiguration struct {
	Grade        string                    `json:"grade"`
	Subjects     map[Subject]SubjectConfig `json:"subjects"`
	EssayEnabled bool                      `json:"essayEnabled"`
	EssayItems   int                       `json:"essayItems"`
	EssayWeight  float64                   `json:"essayWeight"`
}

// TotalItems returns the derived total objective item count.
func (c *GradeConfiguration) TotalItems() int {
	total := 0
	for _, sc := range c.Subjects {
		if sc.Evaluated {
			total += sc.Items
		}
	}
	return total
}

// LearningLevelBand is one named score range, optionally scoped to a grade.
// Bands for a given scope do not overlap and cover [0, 10].
type LearningLevelBand struct {
	Code  string  `json:"code"`
	Name  string  `json:"name"`
	Color string  `json:"color"`
	Lower float64 `json:"lower"` // inclusive
	Upper float64 `json:"upper"` // exclusive
	Grade string  `json:"grade,omitempty"` // empty means global
}

// Contains reports whether score falls in the band's [Lower, Upper) interval.
// The top band is closed at 10 so a perfect score classifies.
func (b LearningLevelBand) Contains(score float64) bool {
	if score >= b.Lower && score < b.Upper {
		return true
	}
	return b.Upper >= 10 && score == b.Upper
}

// LearningLevel is a classification result.
type LearningLevel struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// ConsolidatedResult is one row per (student, school-year), owned by the
// import pipeline. The engine reads it to validate and writes back the
// recomputed average/level when repairing.
type ConsolidatedResult struct {
	ID          int64
	StudentID   int64
	StudentName string
	StudentCode string
	School      string
	Class       string
	Grade       string
	SchoolYear  string

	LP    sql.NullFloat64
	MAT   sql.NullFloat64
	CH    sql.NullFloat64
	CN    sql.NullFloat64
	Essay sql.NullFloat64

	Attendance  string // "presente", "ausente" or ""
	StoredAvg   sql.NullFloat64
	StoredLevel sql.NullString
}

// SubjectScores flattens the per-subject columns into the scoring engine's
// input shape. NULL scores become zero, which the engine treats as not scored.
func (r *ConsolidatedResult) SubjectScores() map[Subject]float64 {
	scores := make(map[Subject]float64, len(Subjects))
	for s, v := range map[Subject]sql.NullFloat64{
		SubjectLP:  r.LP,
		SubjectMAT: r.MAT,
		SubjectCH:  r.CH,
		SubjectCN:  r.CN,
	} {
		if v.Valid {
			scores[s] = v.Float64
		}
	}
	return scores
}

// EssayScore returns the essay score, zero when absent.
func (r *ConsolidatedResult) EssayScore() float64 {
	if r.Essay.Valid {
		return r.Essay.Float64
	}
	return 0
}
