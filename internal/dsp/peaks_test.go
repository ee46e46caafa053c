package dsp

import (
	"math"
	"testing"
)

func TestFindPeaks_MergesCloseCandidates(t *testing.T) {
	signal := []float64{0, 1, 0, 3, 0, 0, 0, 2, 0}

	t.Run("keeps the higher of close candidates", func(t *testing.T) {
		got := FindPeaks(signal, 3, 0)
		want := []int{3, 7}
		if len(got) != len(want) {
			t.Fatalf("got %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("peak %d: got %d, want %d", i, got[i], want[i])
			}
		}
	})

	t.Run("prominence filter", func(t *testing.T) {
		got := FindPeaks(signal, 3, 2.5)
		if len(got) != 1 || got[0] != 3 {
			t.Errorf("got %v, want [3]", got)
		}
	})

	t.Run("no distance constraint", func(t *testing.T) {
		got := FindPeaks(signal, 0, 0)
		if len(got) != 3 {
			t.Errorf("got %v, want 3 peaks", got)
		}
	})
}

func TestFindPeaks_PlateauIsNotAPeak(t *testing.T) {
	if got := FindPeaks([]float64{0, 1, 1, 0}, 1, 0); len(got) != 0 {
		t.Errorf("plateau produced peaks %v", got)
	}
}

func TestFindPeaks_ConstantSignal(t *testing.T) {
	signal := make([]float64, 30)
	if got := FindPeaks(signal, 2, 0); len(got) != 0 {
		t.Errorf("constant signal produced peaks %v", got)
	}
	if got := FindTroughs(signal, 2, 0); len(got) != 0 {
		t.Errorf("constant signal produced troughs %v", got)
	}
}

func TestFindPeaks_SineSpacing(t *testing.T) {
	const (
		rate    = 10.0 // samples per second
		freq    = 1.0  // Hz
		periods = 5
	)

	n := int(rate * periods / freq)
	signal := make([]float64, n)
	for i := range signal {
		tSec := float64(i) / rate
		signal[i] = math.Sin(2*math.Pi*freq*tSec + 0.3)
	}

	peaks := FindPeaks(signal, 2, 0.1)
	if len(peaks) < 4 {
		t.Fatalf("expected at least 4 peaks, got %v", peaks)
	}

	spacing := float64(peaks[len(peaks)-1]-peaks[0]) / float64(len(peaks)-1)
	gotFreq := rate / spacing
	if math.Abs(gotFreq-freq)/freq > 0.05 {
		t.Errorf("peak spacing implies %.3f Hz, want %.3f Hz within 5%%", gotFreq, freq)
	}

	troughs := FindTroughs(signal, 2, 0.1)
	if len(troughs) < 4 {
		t.Errorf("expected at least 4 troughs, got %v", troughs)
	}
	for _, i := range troughs {
		if signal[i] > -0.9 {
			t.Errorf("trough at %d has value %f, expected near -1", i, signal[i])
		}
	}
}

func TestProminence_ScansToEdges(t *testing.T) {
	// The shoulder at index 3 sits between two taller samples. Measured to the
	// edges, it still stands 4.5 above the outer minima.
	signal := []float64{0, 5, 4, 4.5, 4, 6, 0}

	if got := Prominence(signal, 3); got != 4.5 {
		t.Errorf("Prominence() = %f, want 4.5", got)
	}
}
