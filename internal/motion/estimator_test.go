package motion

import (
	"math"
	"testing"
)

// nodSamples produces a vertical sine of the given peak-to-trough swing
// sampled every 100ms for durationMs, with a face box of side size.
func nodSamples(freq, swing, size float64, durationMs int64) []FaceSample {
	var out []FaceSample
	for ts := int64(0); ts <= durationMs; ts += 100 {
		sec := float64(ts) / 1000
		out = append(out, FaceSample{
			Timestamp: ts,
			X:         0.5,
			Y:         size * (0.5 + swing/2*math.Sin(2*math.Pi*freq*sec+0.3)),
			Width:     size,
			Height:    size,
		})
	}
	return out
}

func armSamples(n int, wristY, shoulderY float64) []ArmSample {
	out := make([]ArmSample, n)
	for i := range out {
		out[i] = ArmSample{Timestamp: int64(i) * 100, WristY: wristY, ShoulderY: shoulderY}
	}
	return out
}

func TestEstimateNodding_Sine(t *testing.T) {
	const (
		freq  = 0.5
		swing = 0.1
	)

	est := EstimateNodding(NoddingConfig(), nodSamples(freq, swing, 1, 10000))

	if math.Abs(est.Frequency-freq)/freq > 0.10 {
		t.Errorf("expected frequency %.2f within 10%%, got %.3f", freq, est.Frequency)
	}
	if math.Abs(est.Amplitude-swing)/swing > 0.15 {
		t.Errorf("expected amplitude %.3f within 15%%, got %.3f", swing, est.Amplitude)
	}
	if est.IsRaised {
		t.Error("nodding estimate should never report IsRaised")
	}
}

func TestEstimateNodding_ScaleInvariant(t *testing.T) {
	near := EstimateNodding(NoddingConfig(), nodSamples(0.5, 0.1, 1, 10000))
	far := EstimateNodding(NoddingConfig(), nodSamples(0.5, 0.1, 2, 10000))

	if near.Frequency != far.Frequency {
		t.Errorf("frequency changed with face size: %v vs %v", near.Frequency, far.Frequency)
	}
	if math.Abs(near.Amplitude-far.Amplitude) > 0.001 {
		t.Errorf("amplitude changed with face size: %v vs %v", near.Amplitude, far.Amplitude)
	}
}

func TestEstimateNodding_OutOfOrderSamples(t *testing.T) {
	samples := nodSamples(0.5, 0.1, 1, 10000)

	// A duplicate and a late sample must be dropped, not break the grid.
	dup := samples[20]
	dup.Y = 5
	late := samples[10]
	late.Y = -5
	samples = append(samples[:41], append([]FaceSample{dup, late}, samples[41:]...)...)

	est := EstimateNodding(NoddingConfig(), samples)
	if math.Abs(est.Frequency-0.5)/0.5 > 0.10 {
		t.Errorf("expected frequency near 0.5, got %.3f", est.Frequency)
	}
	if est.Amplitude > 0.2 {
		t.Errorf("dropped samples leaked into amplitude: %.3f", est.Amplitude)
	}
}

func TestEstimateNodding_InsufficientData(t *testing.T) {
	cfg := NoddingConfig()

	tests := []struct {
		name    string
		samples []FaceSample
	}{
		{"empty", nil},
		{"one short of threshold", nodSamples(0.5, 0.1, 1, int64(cfg.MinFrames-2)*100)},
		{"flat", nodSamples(0.5, 0, 1, 1900)},
		{"zero face size", nodSamples(0.5, 0.1, 0, 10000)},
		{"all same timestamp", func() []FaceSample {
			s := nodSamples(0.5, 0.1, 1, 2000)
			for i := range s {
				s[i].Timestamp = 42
			}
			return s
		}()},
		{"non-finite", func() []FaceSample {
			s := nodSamples(0.5, 0.1, 1, 10000)
			s[5].Y = math.NaN()
			return s
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est := EstimateNodding(cfg, tt.samples)
			if est != (Estimate{}) {
				t.Errorf("expected zero estimate, got %+v", est)
			}
		})
	}
}

func TestEstimateNodding_ThresholdLength(t *testing.T) {
	cfg := NoddingConfig()
	samples := nodSamples(0.5, 0.1, 1, 10000)

	if est := EstimateNodding(cfg, samples[:cfg.MinFrames-1]); est != (Estimate{}) {
		t.Errorf("expected zero estimate with %d samples, got %+v", cfg.MinFrames-1, est)
	}

	flat := nodSamples(0.5, 0, 1, int64(cfg.MinFrames-1)*100)
	if len(flat) != cfg.MinFrames {
		t.Fatalf("expected %d flat samples, got %d", cfg.MinFrames, len(flat))
	}
	if est := EstimateNodding(cfg, flat); est != (Estimate{}) {
		t.Errorf("expected zero estimate for %d flat samples, got %+v", cfg.MinFrames, est)
	}

	flatArm := armSamples(cfg.MinFrames, 0.6, 0.6)
	if est := EstimateHandRaise(HandRaiseConfig(), flatArm, false); est != (Estimate{}) {
		t.Errorf("expected zero estimate for %d flat arm samples, got %+v", cfg.MinFrames, est)
	}
}

func TestEstimateHandRaise_IndependentGating(t *testing.T) {
	// Wrist held 0.1 above the shoulder: no oscillation, but clearly raised.
	est := EstimateHandRaise(HandRaiseConfig(), armSamples(30, 0.5, 0.6), false)

	want := Estimate{Frequency: 0, Amplitude: 0, IsRaised: true}
	if est != want {
		t.Errorf("expected %+v, got %+v", want, est)
	}
}

func TestEstimateHandRaise_Hysteresis(t *testing.T) {
	cfg := HandRaiseConfig()

	tests := []struct {
		name       string
		relative   float64 // shoulderY - wristY
		prevRaised bool
		want       bool
	}{
		{"stays raised between thresholds", 0.02, true, true},
		{"does not raise between thresholds", 0.02, false, false},
		{"lowers when level with shoulder", 0, true, false},
		{"raises above threshold", 0.05, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est := EstimateHandRaise(cfg, armSamples(30, 0.6-tt.relative, 0.6), tt.prevRaised)
			if est.IsRaised != tt.want {
				t.Errorf("expected IsRaised=%v, got %v", tt.want, est.IsRaised)
			}
		})
	}
}

func TestEstimateHandRaise_Waving(t *testing.T) {
	var samples []ArmSample
	for ts := int64(0); ts <= 10000; ts += 100 {
		sec := float64(ts) / 1000
		samples = append(samples, ArmSample{
			Timestamp: ts,
			WristY:    0.5 + 0.05*math.Sin(2*math.Pi*0.5*sec+0.3),
			ShoulderY: 0.6,
		})
	}

	est := EstimateHandRaise(HandRaiseConfig(), samples, false)
	if math.Abs(est.Frequency-0.5)/0.5 > 0.10 {
		t.Errorf("expected frequency near 0.5, got %.3f", est.Frequency)
	}
	if est.Amplitude <= 0 {
		t.Errorf("expected positive amplitude, got %.3f", est.Amplitude)
	}
	if !est.IsRaised {
		t.Error("wrist stays above shoulder, expected IsRaised")
	}
}

func TestAnalyze_MismatchedLengthsPanic(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for mismatched channel length")
		}
	}()
	Analyze(NoddingConfig(), []int64{0, 1, 2}, [][]float64{{0, 1}, {0, 1, 2}, {1, 1, 1}, {1, 1, 1}}, false)
}

func TestAnalyze_ZeroAmplitudeImpliesZeroFrequency(t *testing.T) {
	cfg := NoddingConfig()
	cfg.MinAmplitude = 1 // larger than any swing below

	est := EstimateNodding(cfg, nodSamples(0.5, 0.1, 1, 10000))
	if est.Amplitude != 0 || est.Frequency != 0 {
		t.Errorf("expected zero estimate below noise floor, got %+v", est)
	}
}

func TestSmoother(t *testing.T) {
	s := Smoother{Alpha: DefaultSmoothingAlpha}

	got := s.Update(0, 0.1)
	if math.Abs(got-0.04) > 1e-12 {
		t.Errorf("Update(0, 0.1) = %f, want 0.04", got)
	}

	got = s.Update(got, 0.1)
	if math.Abs(got-0.064) > 1e-12 {
		t.Errorf("second Update = %f, want 0.064", got)
	}

	if got := s.Update(0.2, 0.2); math.Abs(got-0.2) > 1e-12 {
		t.Errorf("steady input should be a fixed point, got %f", got)
	}
}
