package stats

import (
	"math"

	"growth-mcp/internal/reference"
)

// Percentile bounds applied before any percentile is converted back into a
// z-score. At exactly 0 or 100 the inverse normal CDF is infinite.
const (
	MinPercentile = 0.001
	MaxPercentile = 99.999
)

// ZScore applies the LMS transform to a raw measurement.
func ZScore(value float64, ref reference.Entry) float64 {
	if ref.L != 0 {
		return (math.Pow(value/ref.M, ref.L) - 1) / (ref.L * ref.S)
	}
	return math.Log(value/ref.M) / ref.S
}

// NormalCDF is the standard normal cumulative distribution function.
func NormalCDF(z float64) float64 {
	return 0.5 * (1 + math.Erf(z/math.Sqrt2))
}

// InverseNormalCDF returns the z-score whose cumulative probability is p.
// It is unbounded at p = 0 and p = 1; use SafeInverseNormal for percentiles.
func InverseNormalCDF(p float64) float64 {
	return math.Sqrt2 * math.Erfinv(2*p-1)
}

// ClampPercentile pins a percentile into [MinPercentile, MaxPercentile].
func ClampPercentile(percentile float64) float64 {
	return math.Max(MinPercentile, math.Min(MaxPercentile, percentile))
}

// SafeInverseNormal converts a percentile (0-100) into a finite z-score.
// This is the single place percentiles are inverted.
func SafeInverseNormal(percentile float64) float64 {
	if math.IsNaN(percentile) {
		percentile = 50
	}
	return InverseNormalCDF(ClampPercentile(percentile) / 100)
}

// PercentileOf scores value against ref and returns the percentile rounded to
// one decimal. It reports false when ref is nil or the score is undefined.
func PercentileOf(value float64, ref *reference.Entry) (float64, bool) {
	if ref == nil || !(value > 0) || math.IsInf(value, 0) {
		return 0, false
	}
	z := ZScore(value, *ref)
	if math.IsNaN(z) {
		return 0, false
	}
	return roundTo(NormalCDF(z)*100, 1), true
}

// ValueAtPercentile is the inverse of PercentileOf: the measurement that sits
// at percentile under ref. The percentile is clamped first.
func ValueAtPercentile(percentile float64, ref *reference.Entry) (float64, bool) {
	if ref == nil {
		return 0, false
	}
	z := SafeInverseNormal(percentile)

	var v float64
	if ref.L != 0 {
		base := ref.L*ref.S*z + 1
		if base <= 0 {
			return 0, false
		}
		v = ref.M * math.Pow(base, 1/ref.L)
	} else {
		v = ref.M * math.Exp(ref.S*z)
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// PercentileAt looks up the reference entry tabulated at exactly ageMonths and
// scores value against it. Missing reference data reports false.
func PercentileAt(table *reference.Table, sex reference.Sex, measure reference.Measure, ageMonths int, value float64) (float64, bool) {
	e, ok := table.Lookup(sex, measure, ageMonths)
	if !ok {
		return 0, false
	}
	return PercentileOf(value, &e)
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
