// Package gradebook records assessment scores and computes term results.
package gradebook

import "time"

// Score is one student's mark for one assessment.
type Score struct {
	ID           int64
	AssessmentID int64
	StudentID    int64
	Score        float64
	GradedBy     int64
	GradedAt     time.Time
}

// SheetRow pairs a student with their (possibly missing) score for the
// score-entry screen.
type SheetRow struct {
	StudentID   int64
	AdmissionNo string
	FullName    string
	Score       *float64
}

// ResultLine is a student's weighted standing in one subject for a term.
type ResultLine struct {
	SubjectID   int64
	SubjectName string
	// WeightedScore sums score/max*weight over graded assessments.
	WeightedScore float64
	// GradedWeight sums the weights of the assessments actually graded,
	// so partial terms do not read as failing.
	GradedWeight int
	Grade        string
}

// Percent scales the weighted score to the graded weight.
func (l ResultLine) Percent() float64 {
	if l.GradedWeight == 0 {
		return 0
	}
	return l.WeightedScore / float64(l.GradedWeight) * 100
}

// GradeFor maps a percentage to a letter grade.
func GradeFor(pct float64) string {
	switch {
	case pct >= 70:
		return "A"
	case pct >= 60:
		return "B"
	case pct >= 50:
		return "C"
	case pct >= 45:
		return "D"
	case pct >= 40:
		return "E"
	default:
		return "F"
	}
}
