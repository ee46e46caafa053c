package tray

import (
	"testing"

	"github.com/ayusman/reactune/internal/reaction"
	"github.com/ayusman/reactune/internal/recommend"
)

func TestTitles(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{toggleTitle(true), "● Detecting"},
		{toggleTitle(false), "○ Paused"},
		{reactionTitle(""), "Reaction: none"},
		{reactionTitle("nodding+happy"), "Reaction: nodding+happy"},
		{handTitle(true), "Hand: raised"},
		{handTitle(false), "Hand: down"},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("expected %q, got %q", tt.want, tt.got)
		}
	}
}

// The menu is not built outside Run, so state changes must not touch it.
func TestTray_StateWithoutMenu(t *testing.T) {
	tr := New(false)

	var toggled []bool
	tr.OnToggle(func(enabled bool) { toggled = append(toggled, enabled) })

	tr.handleToggle()
	tr.handleToggle()
	if len(toggled) != 2 || !toggled[0] || toggled[1] {
		t.Errorf("expected toggles [true false], got %v", toggled)
	}

	tr.SetEnabled(true)
	if !tr.IsEnabled() {
		t.Error("expected enabled after SetEnabled")
	}

	tr.SetRecommendation(recommend.Recommendation{ReactionState: reaction.StateSurprised})
	if tr.Reaction() != "surprised" {
		t.Errorf("expected surprised, got %q", tr.Reaction())
	}
	tr.SetHandRaised(true)
}
