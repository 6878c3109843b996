package gradebook

import "testing"

func TestGradeFor(t *testing.T) {
	cases := []struct {
		pct  float64
		want string
	}{
		{95, "A"},
		{70, "A"},
		{69.9, "B"},
		{60, "B"},
		{55, "C"},
		{45, "D"},
		{40, "E"},
		{39.9, "F"},
		{0, "F"},
	}
	for _, tc := range cases {
		if got := GradeFor(tc.pct); got != tc.want {
			t.Errorf("GradeFor(%.1f) = %s, want %s", tc.pct, got, tc.want)
		}
	}
}

func TestResultLinePercentScalesToGradedWeight(t *testing.T) {
	// Half the term graded: 28 of a possible 40 weight points is 70%.
	line := ResultLine{WeightedScore: 28, GradedWeight: 40}
	if got := line.Percent(); got != 70 {
		t.Fatalf("Percent = %.2f, want 70", got)
	}
}

func TestResultLinePercentEmpty(t *testing.T) {
	line := ResultLine{}
	if got := line.Percent(); got != 0 {
		t.Fatalf("Percent = %.2f, want 0", got)
	}
}
