package token

import "testing"

func TestEstimateRoundsUp(t *testing.T) {
	cases := []struct {
		size int64
		want int
	}{
		{0, 0},
		{1, 1},
		{4, 1},
		{5, 2},
		{400, 100},
		{401, 101},
	}
	for _, tc := range cases {
		if got := Estimate(tc.size); got != tc.want {
			t.Fatalf("Estimate(%d) = %d, want %d", tc.size, got, tc.want)
		}
	}
}

func TestEstimateLinesNeverZeroForNonEmpty(t *testing.T) {
	if got := EstimateLines(10); got != 1 {
		t.Fatalf("expected at least one line for a non-empty file, got %d", got)
	}
	if got := EstimateLines(400); got != 10 {
		t.Fatalf("EstimateLines(400) = %d, want 10", got)
	}
	if got := EstimateLines(0); got != 0 {
		t.Fatalf("EstimateLines(0) = %d, want 0", got)
	}
}
