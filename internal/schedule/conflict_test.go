package schedule

import "testing"

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd string
		want                       bool
	}{
		{"identical ranges", "14:00:00", "14:45:00", "14:00:00", "14:45:00", true},
		{"partial overlap window", "14:30:00", "15:00:00", "14:00:00", "14:45:00", true},
		{"candidate inside existing", "14:15:00", "14:30:00", "14:00:00", "14:45:00", true},
		{"existing inside candidate", "13:00:00", "16:00:00", "14:00:00", "14:45:00", true},
		{"touching at boundary", "14:45:00", "15:15:00", "14:00:00", "14:45:00", false},
		{"touching other side", "13:00:00", "14:00:00", "14:00:00", "14:45:00", false},
		{"disjoint", "16:00:00", "17:00:00", "14:00:00", "14:45:00", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Overlaps(tc.aStart, tc.aEnd, tc.bStart, tc.bEnd); got != tc.want {
				t.Errorf("Overlaps(%s-%s, %s-%s) = %v, want %v",
					tc.aStart, tc.aEnd, tc.bStart, tc.bEnd, got, tc.want)
			}
			// Overlap is symmetric.
			if got := Overlaps(tc.bStart, tc.bEnd, tc.aStart, tc.aEnd); got != tc.want {
				t.Errorf("Overlaps is not symmetric for %s", tc.name)
			}
		})
	}
}

func TestFirstOverlap(t *testing.T) {
	existing := []TimeRange{
		{Start: "08:00:00", End: "09:00:00"},
		{Start: "14:00:00", End: "14:45:00"},
	}

	i, ok := FirstOverlap(TimeRange{Start: "14:30:00", End: "15:00:00"}, existing)
	if !ok {
		t.Fatal("expected an overlap")
	}
	if i != 1 {
		t.Errorf("overlap index = %d, want 1", i)
	}

	if _, ok := FirstOverlap(TimeRange{Start: "14:45:00", End: "15:15:00"}, existing); ok {
		t.Error("touching range should not conflict")
	}
}
