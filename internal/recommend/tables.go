package recommend

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"

	"github.com/ayusman/reactune/internal/reaction"
)

// ErrMalformed marks a mapping entry that cannot be used.
var ErrMalformed = errors.New("malformed mapping value")

// Table names used in the mappings file and in diagnostics.
const (
	TableEQ     = "eq"
	TableVolume = "volume"
	TableRhythm = "rhythm"
	TableReverb = "reverb"
	TableDelay  = "delay"
)

// Neutral values used for unmapped or malformed entries.
const (
	DefaultVolume  = 1.0
	DefaultPercent = 0.0
)

// Diagnostic receives mapping problems. key is the reaction state label as
// written by the user.
type Diagnostic func(table, key string, err error)

// Tables are the user-editable mappings from reaction state to audio
// parameters.
type Tables struct {
	EQ     map[reaction.State]EQSetting `json:"eq"`
	Volume map[reaction.State]float64   `json:"volume"`
	Rhythm map[reaction.State]float64   `json:"rhythm"`
	Reverb map[reaction.State]float64   `json:"reverb"`
	Delay  map[reaction.State]float64   `json:"delay"`
}

// DefaultTables returns the built-in mappings: no effect for plain emotions
// apart from small volume and space tweaks, stronger boosts while nodding.
func DefaultTables() Tables {
	return Tables{
		EQ: map[reaction.State]EQSetting{
			reaction.StateHappy:            Named(FlatPreset),
			reaction.StateSurprised:        Named(FlatPreset),
			reaction.StateNeutral:          Named(FlatPreset),
			reaction.StateNoddingHappy:     Gains(4, 2, 0, 1, 3, 2),
			reaction.StateNoddingSurprised: Gains(2, 1, 0, 2, 4, 3),
			reaction.StateNoddingNeutral:   Gains(3, 2, 0, 0, 1, 1),
		},
		Volume: map[reaction.State]float64{
			reaction.StateHappy:            1.0,
			reaction.StateSurprised:        1.0,
			reaction.StateNeutral:          1.0,
			reaction.StateNoddingHappy:     1.3,
			reaction.StateNoddingSurprised: 1.2,
			reaction.StateNoddingNeutral:   1.15,
		},
		Rhythm: map[reaction.State]float64{
			reaction.StateNoddingHappy:     40,
			reaction.StateNoddingSurprised: 30,
			reaction.StateNoddingNeutral:   20,
		},
		Reverb: map[reaction.State]float64{
			reaction.StateNoddingSurprised: 20,
		},
		Delay: map[reaction.State]float64{
			reaction.StateNoddingSurprised: 15,
		},
	}
}

// Clone returns a deep copy.
func (t Tables) Clone() Tables {
	out := Tables{
		EQ:     make(map[reaction.State]EQSetting, len(t.EQ)),
		Volume: maps.Clone(t.Volume),
		Rhythm: maps.Clone(t.Rhythm),
		Reverb: maps.Clone(t.Reverb),
		Delay:  maps.Clone(t.Delay),
	}
	for k, v := range t.EQ {
		v.Gains = append([]float64(nil), v.Gains...)
		out.EQ[k] = v
	}
	return out
}

// Overlay returns a copy of t with every entry of other applied on top.
func (t Tables) Overlay(other Tables) Tables {
	out := t.Clone()
	if out.EQ == nil {
		out.EQ = make(map[reaction.State]EQSetting)
	}
	for k, v := range other.EQ {
		out.EQ[k] = v
	}
	out.Volume = overlay(out.Volume, other.Volume)
	out.Rhythm = overlay(out.Rhythm, other.Rhythm)
	out.Reverb = overlay(out.Reverb, other.Reverb)
	out.Delay = overlay(out.Delay, other.Delay)
	return out
}

func overlay(dst, src map[reaction.State]float64) map[reaction.State]float64 {
	if dst == nil {
		dst = make(map[reaction.State]float64, len(src))
	}
	maps.Copy(dst, src)
	return dst
}

// DecodeTables parses a mappings document. Unknown tables, unknown reaction
// states and values of the wrong type are reported to diag and skipped; only
// a document that is not a JSON object of objects is an error.
func DecodeTables(data []byte, diag Diagnostic) (Tables, error) {
	var raw map[string]map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Tables{}, fmt.Errorf("failed to parse mappings: %w", err)
	}
	if diag == nil {
		diag = func(string, string, error) {}
	}

	t := Tables{
		EQ:     make(map[reaction.State]EQSetting),
		Volume: make(map[reaction.State]float64),
		Rhythm: make(map[reaction.State]float64),
		Reverb: make(map[reaction.State]float64),
		Delay:  make(map[reaction.State]float64),
	}
	numeric := map[string]map[reaction.State]float64{
		TableVolume: t.Volume,
		TableRhythm: t.Rhythm,
		TableReverb: t.Reverb,
		TableDelay:  t.Delay,
	}

	for table, entries := range raw {
		dst, isNumeric := numeric[table]
		if table != TableEQ && !isNumeric {
			diag(table, "", fmt.Errorf("unknown mapping table %q", table))
			continue
		}

		for key, value := range entries {
			state, err := reaction.ParseState(key)
			if err != nil {
				diag(table, key, err)
				continue
			}

			if table == TableEQ {
				var s EQSetting
				if err := json.Unmarshal(value, &s); err != nil {
					diag(table, key, fmt.Errorf("%w: %v", ErrMalformed, err))
					continue
				}
				t.EQ[state] = s
				continue
			}

			var v float64
			if err := json.Unmarshal(value, &v); err != nil {
				diag(table, key, fmt.Errorf("%w: %v", ErrMalformed, err))
				continue
			}
			dst[state] = v
		}
	}

	return t, nil
}

// Values are the audio parameters mapped for one reaction state.
type Values struct {
	EQ       EQ
	EQPreset string
	Volume   float64
	Rhythm   float64
	Reverb   float64
	Delay    float64
}

// Lookup resolves state in every table. Missing entries take the neutral
// value silently; malformed entries take it too and are reported to diag.
func (t Tables) Lookup(state reaction.State, diag Diagnostic) Values {
	if diag == nil {
		diag = func(string, string, error) {}
	}

	v := Values{
		EQPreset: FlatPreset,
		Volume:   DefaultVolume,
		Rhythm:   DefaultPercent,
		Reverb:   DefaultPercent,
		Delay:    DefaultPercent,
	}

	if s, ok := t.EQ[state]; ok {
		eq, id, valid := ResolveEQ(s)
		if valid {
			v.EQ, v.EQPreset = eq, id
		} else {
			diag(TableEQ, string(state), fmt.Errorf("%w: need a known preset or %d finite gains", ErrMalformed, len(EQ{})))
		}
	}

	if x, ok := t.Volume[state]; ok {
		if finite(x) && x > 0 {
			v.Volume = x
		} else {
			diag(TableVolume, string(state), fmt.Errorf("%w: volume multiplier %v must be positive", ErrMalformed, x))
		}
	}

	v.Rhythm = percent(TableRhythm, state, t.Rhythm, diag)
	v.Reverb = percent(TableReverb, state, t.Reverb, diag)
	v.Delay = percent(TableDelay, state, t.Delay, diag)
	return v
}

func percent(table string, state reaction.State, m map[reaction.State]float64, diag Diagnostic) float64 {
	x, ok := m[state]
	if !ok {
		return DefaultPercent
	}
	if !finite(x) || x < 0 || x > 100 {
		diag(table, string(state), fmt.Errorf("%w: %v is outside [0,100]", ErrMalformed, x))
		return DefaultPercent
	}
	return x
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
