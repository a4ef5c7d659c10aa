package core

import (
	"math"
	"testing"
)

func TestRunningSums(t *testing.T) {
	sum, sumSq := RunningSums([]float64{1, 2, 3})
	if sum != 6 {
		t.Fatalf("expected sum 6, got %f", sum)
	}
	if sumSq != 14 {
		t.Fatalf("expected sumSq 14, got %f", sumSq)
	}

	sum, sumSq = RunningSums(nil)
	if sum != 0 || sumSq != 0 {
		t.Fatalf("expected zero sums for empty input, got (%f, %f)", sum, sumSq)
	}
}

func TestSampleStdev(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{name: "consecutive prices", values: []float64{100, 101, 102, 103, 104}, want: math.Sqrt(2.5)},
		{name: "constant series", values: []float64{5, 5, 5}, want: 0},
		{name: "two values", values: []float64{1, 3}, want: math.Sqrt2},
		{name: "spread of one", values: []float64{2, 3, 4}, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sum, sumSq := RunningSums(tt.values)
			got := SampleStdev(sum, sumSq, len(tt.values))
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("SampleStdev() = %.12f, want %.12f", got, tt.want)
			}
		})
	}
}

func TestSampleStdevDegenerateWindow(t *testing.T) {
	if got := SampleStdev(10, 100, 1); got != 0 {
		t.Fatalf("expected 0 for single observation, got %f", got)
	}
	if got := SampleStdev(0, 0, 0); got != 0 {
		t.Fatalf("expected 0 for empty window, got %f", got)
	}
}

func TestSampleStdevClampsNegativeVariance(t *testing.T) {
	// Running sums drift: sumSq marginally below sum*mean must not yield NaN
	got := SampleStdev(3, 2.999999999999999, 3)
	if math.IsNaN(got) {
		t.Fatal("expected clamped variance, got NaN")
	}
	if got != 0 {
		t.Fatalf("expected 0 after clamping, got %.18f", got)
	}
}
