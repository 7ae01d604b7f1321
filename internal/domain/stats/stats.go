// Package stats provides the numeric primitives used by the risk profiler:
// mean, population variance, standard deviation and z-score normalisation.
//
// Every function is total. Empty input yields 0 (or an empty slice) instead
// of an error so downstream arithmetic never has to special-case it.
package stats

import (
	"math"

	mstats "github.com/montanaflynn/stats"
)

// Quartile percentages used by Describe.
const (
	lowerQuartile = 25
	upperQuartile = 75
)

// Mean returns the arithmetic mean of xs, or 0 when xs is empty.
func Mean(xs []float64) float64 {
	m, err := mstats.Mean(xs)
	if err != nil {
		return 0
	}
	if !finite(m) {
		// The running sum overflowed; the mean itself is representable.
		if scale, scaled, ok := rescale(xs); ok {
			sm, _ := mstats.Mean(scaled)
			return sm * scale
		}
	}
	return m
}

// Variance returns the population variance of xs (divides by n, not n-1).
// The result is +Inf only when the variance itself exceeds float64 range.
func Variance(xs []float64) float64 {
	if scale, scaled, ok := rescale(xs); ok {
		v, _ := mstats.PopulationVariance(scaled)
		return v * scale * scale
	}
	v, err := mstats.PopulationVariance(xs)
	if err != nil {
		return 0
	}
	return v
}

// StdDev returns the population standard deviation of xs. It stays finite
// for every finite input, including magnitudes whose squares overflow.
func StdDev(xs []float64) float64 {
	if scale, scaled, ok := rescale(xs); ok {
		v, _ := mstats.PopulationVariance(scaled)
		return math.Sqrt(v) * scale
	}
	return math.Sqrt(Variance(xs))
}

// ZScores normalises xs to zero mean and unit population standard deviation.
// A constant sequence carries no information and maps to all zeros.
func ZScores(xs []float64) []float64 {
	out := make([]float64, len(xs))
	if len(xs) == 0 {
		return out
	}
	// z-scores are scale invariant, so extreme magnitudes are brought
	// into range first.
	if _, scaled, ok := rescale(xs); ok {
		xs = scaled
	}
	mean := Mean(xs)
	sd := StdDev(xs)
	if sd == 0 || !finite(sd) {
		return out
	}
	for i, x := range xs {
		out[i] = (x - mean) / sd
	}
	return out
}

// Magnitudes outside [tinyMagnitude, hugeMagnitude] are divided by the
// largest absolute value before squaring.
const (
	hugeMagnitude = 1e150
	tinyMagnitude = 1e-150
)

// rescale returns xs divided by max|x| when that maximum is large enough
// for squared deviations to overflow or small enough for them to underflow.
// ok is false when xs is usable as is.
func rescale(xs []float64) (float64, []float64, bool) {
	var scale float64
	for _, x := range xs {
		if a := math.Abs(x); a > scale {
			scale = a
		}
	}
	if scale == 0 || !finite(scale) || (scale <= hugeMagnitude && scale >= tinyMagnitude) {
		return 0, nil, false
	}
	scaled := make([]float64, len(xs))
	for i, x := range xs {
		scaled[i] = x / scale
	}
	return scale, scaled, true
}

// Description summarises the spread of a sample.
type Description struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	P25    float64 `json:"p25"`
	Median float64 `json:"median"`
	P75    float64 `json:"p75"`
}

// Describe returns min, max and nearest-rank quartiles of xs.
// The zero Description is returned for empty input.
func Describe(xs []float64) Description {
	if len(xs) == 0 {
		return Description{}
	}
	var d Description
	d.Min, _ = mstats.Min(xs)
	d.Max, _ = mstats.Max(xs)
	d.Median, _ = mstats.Median(xs)
	d.P25, _ = mstats.PercentileNearestRank(xs, lowerQuartile)
	d.P75, _ = mstats.PercentileNearestRank(xs, upperQuartile)
	return d
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
