// Package reaction classifies facial expression intensities into a dominant
// emotion and combines it with head nodding into a reaction state label.
package reaction

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownState is returned when a label is not one of the six reaction
// states.
var ErrUnknownState = errors.New("unknown reaction state")

// Emotion is the dominant facial expression.
type Emotion string

const (
	Neutral   Emotion = "neutral"
	Happy     Emotion = "happy"
	Surprised Emotion = "surprised"
)

// State is a reaction state label such as "happy" or "nodding+surprised".
// The empty State means no classification was possible.
type State string

const noddingPrefix = "nodding+"

const (
	StateHappy            State = State(Happy)
	StateSurprised        State = State(Surprised)
	StateNeutral          State = State(Neutral)
	StateNoddingHappy     State = noddingPrefix + State(Happy)
	StateNoddingSurprised State = noddingPrefix + State(Surprised)
	StateNoddingNeutral   State = noddingPrefix + State(Neutral)
)

// States lists every valid reaction state.
func States() []State {
	return []State{
		StateHappy, StateSurprised, StateNeutral,
		StateNoddingHappy, StateNoddingSurprised, StateNoddingNeutral,
	}
}

// Compose builds the reaction state for emotion. Nodding is a plain threshold
// on the (smoothed) nodding amplitude.
func Compose(emotion Emotion, noddingAmplitude, threshold float64) State {
	if noddingAmplitude > threshold {
		return noddingPrefix + State(emotion)
	}
	return State(emotion)
}

// ParseState validates a label read from configuration.
func ParseState(s string) (State, error) {
	candidate := State(strings.TrimSpace(strings.ToLower(s)))
	for _, st := range States() {
		if st == candidate {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownState, s)
}

// IsNodding reports whether the state carries the nodding modifier.
func (s State) IsNodding() bool {
	return strings.HasPrefix(string(s), noddingPrefix)
}

// Emotion returns the base emotion of the state.
func (s State) Emotion() Emotion {
	return Emotion(strings.TrimPrefix(string(s), noddingPrefix))
}
