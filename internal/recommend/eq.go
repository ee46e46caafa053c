// Package recommend maps reaction states to audio processing parameters and
// emits a recommendation whenever the mapped result changes meaningfully.
package recommend

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Bands names the EQ bands in vector order.
var Bands = [6]string{"low", "low-mid", "mid", "high-mid", "high", "presence"}

// EQ is a gain in dB per band.
type EQ [6]float64

// FlatPreset is the identity of the all-zero EQ.
const FlatPreset = "flat"

var presets = map[string]EQ{
	FlatPreset:   {},
	"bass_boost": {6, 4, 1, 0, 0, 0},
	"warm":       {3, 2, 1, 0, -1, -2},
	"bright":     {-1, 0, 0, 2, 4, 4},
	"vocal":      {-2, -1, 3, 4, 2, 0},
	"energetic":  {4, 2, 0, 1, 3, 2},
}

// Preset returns the named EQ preset.
func Preset(name string) (EQ, bool) {
	eq, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	return eq, ok
}

// PresetNames returns the known preset names in sorted order.
func PresetNames() []string {
	return slices.Sorted(maps.Keys(presets))
}

// EQSetting is one EQ mapping entry: either a named preset or an explicit
// gain vector. In JSON it is a string or an array of numbers.
type EQSetting struct {
	Preset string
	Gains  []float64
}

// Gains returns a setting holding an explicit vector.
func Gains(g ...float64) EQSetting {
	return EQSetting{Gains: g}
}

// Named returns a setting referring to a preset.
func Named(preset string) EQSetting {
	return EQSetting{Preset: preset}
}

func (s EQSetting) MarshalJSON() ([]byte, error) {
	if s.Preset != "" {
		return json.Marshal(s.Preset)
	}
	return json.Marshal(s.Gains)
}

func (s *EQSetting) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*s = EQSetting{Preset: name}
		return nil
	}

	var gains []float64
	if err := json.Unmarshal(data, &gains); err != nil {
		return fmt.Errorf("eq setting must be a preset name or a number array: %w", err)
	}
	*s = EQSetting{Gains: gains}
	return nil
}

// ResolveEQ turns a setting into a vector and an identity string used to
// detect EQ changes. ok is false for an unknown preset or a vector that does
// not have exactly six finite gains; the flat EQ is returned in that case.
func ResolveEQ(s EQSetting) (EQ, string, bool) {
	if s.Preset != "" {
		eq, ok := Preset(s.Preset)
		if !ok {
			return EQ{}, FlatPreset, false
		}
		return eq, strings.ToLower(strings.TrimSpace(s.Preset)), true
	}

	if len(s.Gains) != len(EQ{}) {
		return EQ{}, FlatPreset, false
	}

	var eq EQ
	parts := make([]string, len(eq))
	for i, g := range s.Gains {
		if math.IsNaN(g) || math.IsInf(g, 0) {
			return EQ{}, FlatPreset, false
		}
		eq[i] = g
		parts[i] = strconv.FormatFloat(g, 'g', -1, 64)
	}
	return eq, "custom:" + strings.Join(parts, ","), true
}
