package core

import "math"

// -----------------------------------------------------------------------------

// RunningSums computes the sum and the sum of squares of values.
func RunningSums(values []float64) (float64, float64) {
	sum := 0.0
	sumSq := 0.0
	for _, v := range values {
		sum += v
		sumSq += v * v
	}
	return sum, sumSq
}

// -----------------------------------------------------------------------------

// SampleStdev computes the sample standard deviation (N-1 denominator) of a
// window from its running sums. Floating point drift can push the variance
// slightly below zero, so it is clamped before the square root.
func SampleStdev(sum, sumSq float64, n int) float64 {
	if n < 2 {
		return 0
	}
	mean := sum / float64(n)
	variance := (sumSq - sum*mean) / float64(n-1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}
