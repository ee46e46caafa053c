package main

import "testing"

func TestTargetVolume(t *testing.T) {
	tests := []struct {
		base, multiplier float64
		want             int
	}{
		{50, 1, 50},
		{50, 1.3, 65},
		{50, 1.05, 53},
		{90, 1.3, 100},
		{0, 1.2, 0},
	}

	for _, tt := range tests {
		if got := targetVolume(tt.base, tt.multiplier); got != tt.want {
			t.Errorf("targetVolume(%v, %v): expected %d, got %d", tt.base, tt.multiplier, tt.want, got)
		}
	}
}

func TestApply_RejectsBadMultiplier(t *testing.T) {
	for _, params := range []string{`{"volumeMultiplier":0}`, `{"volumeMultiplier":-1}`, `not json`} {
		if _, err := apply(config{BaseVolume: 50}, []byte(params)); err == nil {
			t.Errorf("expected error for %s", params)
		}
	}
}
