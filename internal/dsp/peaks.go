package dsp

import (
	"sort"

	"gonum.org/v1/gonum/floats"
)

// FindPeaks returns the sorted indices of local maxima in signal.
//
// A candidate is a sample strictly greater than both neighbours. A candidate
// closer than minDistance samples to the previously accepted peak replaces it
// when higher and is dropped otherwise. Survivors must then have a prominence
// of at least prominence, where prominence is the smaller drop from the peak
// to the minimum of everything left of it and everything right of it, out to
// the signal edges.
func FindPeaks(signal []float64, minDistance int, prominence float64) []int {
	n := len(signal)
	if n < 3 {
		return nil
	}

	var candidates []int
	for i := 1; i < n-1; i++ {
		if signal[i] <= signal[i-1] || signal[i] <= signal[i+1] {
			continue
		}

		if len(candidates) > 0 {
			last := candidates[len(candidates)-1]
			if i-last < minDistance {
				if signal[i] > signal[last] {
					candidates[len(candidates)-1] = i
				}
				continue
			}
		}
		candidates = append(candidates, i)
	}

	peaks := make([]int, 0, len(candidates))
	for _, i := range candidates {
		if Prominence(signal, i) >= prominence {
			peaks = append(peaks, i)
		}
	}

	sort.Ints(peaks)
	return peaks
}

// FindTroughs returns the indices of local minima by running FindPeaks on the
// negated signal.
func FindTroughs(signal []float64, minDistance int, prominence float64) []int {
	negated := make([]float64, len(signal))
	copy(negated, signal)
	floats.Scale(-1, negated)
	return FindPeaks(negated, minDistance, prominence)
}

// Prominence measures how far signal[i] stands above the lowest sample on
// each side, scanning to the edges rather than to the nearest higher peak.
// i must not be the first or last index.
func Prominence(signal []float64, i int) float64 {
	leftMin := floats.Min(signal[:i])
	rightMin := floats.Min(signal[i+1:])
	v := signal[i]
	return min(v-leftMin, v-rightMin)
}
