// Package dsp provides the numeric helpers used to turn irregular landmark
// streams into uniformly sampled, drift-free signals.
package dsp

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// InterpolateLinear evaluates the piecewise-linear function through (xs, ys)
// at every point of xsNew. Points outside [xs[0], xs[n-1]] are extrapolated
// along the nearest segment's slope; nothing is clamped.
//
// xs must be non-decreasing and hold at least two points. Callers guard the
// length; a mismatch between xs and ys panics.
func InterpolateLinear(xs, ys, xsNew []float64) []float64 {
	if len(xs) != len(ys) {
		panic("dsp: InterpolateLinear called with mismatched xs and ys")
	}

	out := make([]float64, len(xsNew))
	n := len(xs)
	if n < 2 {
		return out
	}

	seg := 0
	for i, x := range xsNew {
		// xsNew is usually sorted, so the segment cursor only moves forward.
		// Restart the search if it is not.
		if seg > 0 && x < xs[seg] {
			seg = 0
		}
		for seg < n-2 && x > xs[seg+1] {
			seg++
		}

		x0, x1 := xs[seg], xs[seg+1]
		y0, y1 := ys[seg], ys[seg+1]
		if x1 == x0 {
			out[i] = y0
			continue
		}
		out[i] = y0 + (x-x0)*(y1-y0)/(x1-x0)
	}

	return out
}

// DetrendLinear fits an ordinary least squares line against the sample index
// and returns the residual.
func DetrendLinear(signal []float64) []float64 {
	n := len(signal)
	out := make([]float64, n)
	if n < 2 {
		return out
	}

	idx := make([]float64, n)
	for i := range idx {
		idx[i] = float64(i)
	}

	alpha, beta := stat.LinearRegression(idx, signal, nil, false)
	for i, v := range signal {
		out[i] = v - (alpha + beta*idx[i])
	}

	return out
}

// MovingAverage returns the centered moving average with the given radius.
// Windows are clipped at the boundaries, so edge values average fewer samples.
func MovingAverage(signal []float64, radius int) []float64 {
	n := len(signal)
	out := make([]float64, n)
	if radius < 0 {
		radius = 0
	}

	for i := range signal {
		lo := max(0, i-radius)
		hi := min(n-1, i+radius)

		var sum float64
		for j := lo; j <= hi; j++ {
			sum += signal[j]
		}
		out[i] = sum / float64(hi-lo+1)
	}

	return out
}

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// Median returns the middle value, averaging the two middle values for
// even-length input. Returns 0 for an empty slice.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := sortedCopy(values)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// IQRFilterOutliers drops values outside [Q1 - 1.5*IQR, Q3 + 1.5*IQR].
// Quartiles use nearest rank: Q1 = sorted[floor(n/4)], Q3 = sorted[floor(3n/4)].
// Surviving values keep their input order.
func IQRFilterOutliers(values []float64) []float64 {
	n := len(values)
	if n == 0 {
		return nil
	}

	sorted := sortedCopy(values)
	q1 := sorted[int(math.Floor(0.25*float64(n)))]
	q3 := sorted[int(math.Floor(0.75*float64(n)))]
	iqr := q3 - q1
	lo := q1 - 1.5*iqr
	hi := q3 + 1.5*iqr

	filtered := make([]float64, 0, n)
	for _, v := range values {
		if v >= lo && v <= hi {
			filtered = append(filtered, v)
		}
	}

	return filtered
}

// Round rounds x half away from zero to the given number of decimals.
func Round(x float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(x*p) / p
}

// AllFinite reports whether every value is neither NaN nor infinite.
func AllFinite(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func sortedCopy(values []float64) []float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return sorted
}
