// Package motion estimates the frequency and amplitude of periodic body
// motion (head nodding, hand raising) from short, irregularly timed landmark
// histories.
package motion

import (
	"math"

	"github.com/ayusman/reactune/internal/dsp"
)

// Estimate is the result of one analysis pass. A zero Estimate means no
// periodic motion was detected.
type Estimate struct {
	Frequency float64 `json:"frequency"` // cycles per second
	Amplitude float64 `json:"amplitude"` // median peak-to-trough swing
	IsRaised  bool    `json:"isRaised"`  // hand-raise variant only
}

// SignalFunc turns the resampled input channels into the scalar signal to be
// analysed. Returning a slice of a different length than the channels rejects
// the window.
type SignalFunc func(channels [][]float64) []float64

// Hysteresis decides a sticky raised/lowered state from the tail of the
// undetrended signal.
type Hysteresis struct {
	Window         int     // number of trailing grid samples inspected
	RaiseThreshold float64 // samples above this count towards raising
	LowerThreshold float64 // samples below this count towards lowering
	RaiseCount     int     // samples above RaiseThreshold needed to raise
	LowerCount     int     // samples below LowerThreshold needed to lower
}

// Apply returns the new raised state given the previous one.
func (h Hysteresis) Apply(signal []float64, prevRaised bool) bool {
	tail := signal[max(0, len(signal)-h.Window):]

	var above, below int
	for _, v := range tail {
		if v > h.RaiseThreshold {
			above++
		}
		if v < h.LowerThreshold {
			below++
		}
	}

	if prevRaised {
		return below < h.LowerCount
	}
	return above >= h.RaiseCount
}

// Config parameterises Analyze for one kind of motion.
type Config struct {
	Name         string
	MinFrames    int     // minimum raw samples and resampled grid points
	TargetRate   float64 // resampling rate in Hz
	PeakDistance int     // minimum spacing between peaks, in grid samples
	SmoothRadius int     // moving-average radius applied after detrending
	Prominence   float64 // minimum peak prominence
	MinAmplitude float64 // amplitudes below this are treated as no motion
	MinCycles    int     // minimum number of peak-to-peak intervals

	Signal     SignalFunc
	Hysteresis *Hysteresis // nil disables the raised-state output
}

// NoddingConfig analyses vertical head motion. Channels are x, y, width and
// height of the face box; y is normalised by the geometric mean face size so
// the amplitude does not depend on distance from the camera.
func NoddingConfig() Config {
	return Config{
		Name:         "nodding",
		MinFrames:    10,
		TargetRate:   10,
		PeakDistance: 3,
		SmoothRadius: 2,
		Prominence:   0.015,
		MinAmplitude: 0.005,
		MinCycles:    2,
		Signal:       faceNormalizedY,
	}
}

// HandRaiseConfig analyses wrist height relative to the shoulder. Channels
// are wristY and shoulderY in image coordinates (y grows downwards).
func HandRaiseConfig() Config {
	return Config{
		Name:         "hand_raise",
		MinFrames:    10,
		TargetRate:   10,
		PeakDistance: 3,
		SmoothRadius: 2,
		Prominence:   0.01,
		MinAmplitude: 0.01,
		MinCycles:    2,
		Signal:       wristAboveShoulder,
		Hysteresis: &Hysteresis{
			Window:         10,
			RaiseThreshold: 0.03,
			LowerThreshold: 0.01,
			RaiseCount:     7,
			LowerCount:     8,
		},
	}
}

// faceNormalizedY only analyses the vertical channel. Horizontal head motion
// (shaking) is not treated as nodding.
func faceNormalizedY(channels [][]float64) []float64 {
	y, width, height := channels[1], channels[2], channels[3]

	size := math.Sqrt(dsp.Mean(width) * dsp.Mean(height))
	if size <= 0 || math.IsNaN(size) {
		return nil
	}

	out := make([]float64, len(y))
	for i, v := range y {
		out[i] = v / size
	}
	return out
}

func wristAboveShoulder(channels [][]float64) []float64 {
	wrist, shoulder := channels[0], channels[1]

	out := make([]float64, len(wrist))
	for i := range wrist {
		out[i] = shoulder[i] - wrist[i]
	}
	return out
}

// Analyze estimates periodic motion from timestamped samples. timestamps are
// in milliseconds; every channel must have the same length as timestamps or
// Analyze panics. prevRaised is only consulted when cfg.Hysteresis is set.
//
// Insufficient data (too few samples, non-finite values, no time span) yields
// a zero Estimate.
func Analyze(cfg Config, timestamps []int64, channels [][]float64, prevRaised bool) Estimate {
	for _, ch := range channels {
		if len(ch) != len(timestamps) {
			panic("motion: channel length does not match timestamps")
		}
	}

	if len(timestamps) < cfg.MinFrames {
		return Estimate{}
	}
	for _, ch := range channels {
		if !dsp.AllFinite(ch) {
			return Estimate{}
		}
	}

	times, kept := monotonic(timestamps, channels)
	span := times[len(times)-1]
	if span <= 0 {
		return Estimate{}
	}

	count := int(math.Ceil(span * cfg.TargetRate / 1000))
	if count < cfg.MinFrames || count < 2 {
		return Estimate{}
	}

	grid := make([]float64, count)
	for i := range grid {
		grid[i] = span * float64(i) / float64(count-1)
	}

	resampled := make([][]float64, len(kept))
	for c, ch := range kept {
		resampled[c] = dsp.InterpolateLinear(times, ch, grid)
	}

	raw := cfg.Signal(resampled)
	if len(raw) != count {
		return Estimate{}
	}

	var est Estimate
	if cfg.Hysteresis != nil {
		est.IsRaised = cfg.Hysteresis.Apply(raw, prevRaised)
	}

	smoothed := dsp.MovingAverage(dsp.DetrendLinear(raw), cfg.SmoothRadius)
	peaks := dsp.FindPeaks(smoothed, cfg.PeakDistance, cfg.Prominence)
	troughs := dsp.FindTroughs(smoothed, cfg.PeakDistance, cfg.Prominence)

	if len(peaks)-1 < cfg.MinCycles {
		return est
	}

	cycles := make([]float64, 0, len(peaks)-1)
	for i := 1; i < len(peaks); i++ {
		cycles = append(cycles, grid[peaks[i]]-grid[peaks[i-1]])
	}
	frequency := 1000 / dsp.Mean(cycles)

	amplitude := dsp.Median(dsp.IQRFilterOutliers(swings(smoothed, peaks, troughs)))
	if amplitude < cfg.MinAmplitude {
		return est
	}

	est.Frequency = dsp.Round(frequency, 2)
	est.Amplitude = dsp.Round(amplitude, 3)
	return est
}

// monotonic keeps the first-seen strictly increasing run of timestamps and
// rebases them to start at zero.
func monotonic(timestamps []int64, channels [][]float64) ([]float64, [][]float64) {
	t0 := timestamps[0]
	times := make([]float64, 0, len(timestamps))
	kept := make([][]float64, len(channels))
	for c := range kept {
		kept[c] = make([]float64, 0, len(timestamps))
	}

	last := t0
	for i, ts := range timestamps {
		if i > 0 && ts <= last {
			continue
		}
		last = ts
		times = append(times, float64(ts-t0))
		for c, ch := range channels {
			kept[c] = append(kept[c], ch[i])
		}
	}

	return times, kept
}

// swings pairs every peak with the trough closest to it by sample index and
// returns the absolute differences.
func swings(signal []float64, peaks, troughs []int) []float64 {
	if len(troughs) == 0 {
		return nil
	}

	out := make([]float64, 0, len(peaks))
	for _, p := range peaks {
		nearest := troughs[0]
		for _, t := range troughs[1:] {
			if absInt(t-p) < absInt(nearest-p) {
				nearest = t
			}
		}
		out = append(out, math.Abs(signal[p]-signal[nearest]))
	}
	return out
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
