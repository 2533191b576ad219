package forecast

import (
	"math"
	"sort"
)

// DistributionSummary condenses a sample into quartiles, mean and population
// standard deviation. Fields are NaN when the sample is empty or contains NaN.
type DistributionSummary struct {
	P25  float64
	P50  float64
	P75  float64
	Mean float64
	Std  float64
}

var nanSummary = DistributionSummary{
	P25: math.NaN(), P50: math.NaN(), P75: math.NaN(), Mean: math.NaN(), Std: math.NaN(),
}

// Summarize computes the DistributionSummary of values.
func Summarize(values []float64) DistributionSummary {
	if len(values) == 0 {
		return nanSummary
	}

	n := float64(len(values))
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / n

	sq := 0.0
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	std := math.NaN()
	if variance := sq / n; isFinite(variance) {
		std = math.Sqrt(variance)
	}

	sorted := sortedCopy(values)
	return DistributionSummary{
		P25:  quantileSorted(sorted, 0.25),
		P50:  quantileSorted(sorted, 0.50),
		P75:  quantileSorted(sorted, 0.75),
		Mean: mean,
		Std:  std,
	}
}

// Quantile returns the q-quantile of values, linearly interpolated at index
// (n-1)·q of the ascending order. Empty input, or any NaN in the input,
// yields NaN.
func Quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return quantileSorted(sortedCopy(values), q)
}

func sortedCopy(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	sort.Float64s(out)
	return out
}

// quantileSorted expects the output of sortedCopy; sort.Float64s places NaN
// first, so a NaN anywhere in the sample shows up at index 0.
func quantileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 0 || math.IsNaN(sorted[0]) {
		return math.NaN()
	}
	pos := float64(len(sorted)-1) * q
	base := int(math.Floor(pos))
	rest := pos - float64(base)
	if base+1 >= len(sorted) {
		return sorted[base]
	}
	return sorted[base] + rest*(sorted[base+1]-sorted[base])
}

// safeDiv returns a/b, or NaN when b is zero or NaN.
func safeDiv(a, b float64) float64 {
	if b == 0 || math.IsNaN(b) {
		return math.NaN()
	}
	return a / b
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// IsAvailable reports whether x is a finite number.
func IsAvailable(x float64) bool {
	return isFinite(x)
}
