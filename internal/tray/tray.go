// Package tray provides a system tray interface for toggling detection and
// showing the current reaction.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/reactune/internal/recommend"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle    func(enabled bool)
	onDashboard func()
	onQuit      func()
	enabled     bool
	reaction    string
	raised      bool
	mu          sync.RWMutex

	// Menu items stored for later updates
	menuToggle   *systray.MenuItem
	menuReaction *systray.MenuItem
	menuHand     *systray.MenuItem
}

// New creates a new Tray with the given initial detection state.
func New(enabled bool) *Tray {
	return &Tray{enabled: enabled}
}

// OnToggle sets the callback run when detection is toggled from the menu.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnDashboard sets the callback run when the dashboard item is clicked.
func (t *Tray) OnDashboard(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDashboard = fn
}

// OnQuit sets the callback run when the quit item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit stops the tray loop.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("Reactune")
	systray.SetTooltip("Reactune reaction-driven audio")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle reaction detection")
	systray.AddSeparator()

	t.menuReaction = systray.AddMenuItem(reactionTitle(t.reaction), "Current reaction state")
	t.menuReaction.Disable()
	t.menuHand = systray.AddMenuItem(handTitle(t.raised), "Hand raise")
	t.menuHand.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuDashboard := systray.AddMenuItem("Open Dashboard...", "Open the dashboard in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Reactune")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuDashboard.ClickedCh:
				t.handleDashboard()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) handleDashboard() {
	t.mu.RLock()
	callback := t.onDashboard
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetEnabled syncs the toggle with a change made elsewhere (e.g. the API).
func (t *Tray) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.enabled = enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
}

// SetRecommendation shows the reaction state of rec.
func (t *Tray) SetRecommendation(rec recommend.Recommendation) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.reaction = string(rec.ReactionState)
	if t.menuReaction != nil {
		t.menuReaction.SetTitle(reactionTitle(t.reaction))
	}
}

// SetHandRaised shows the hand raise indicator.
func (t *Tray) SetHandRaised(raised bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.raised = raised
	if t.menuHand != nil {
		t.menuHand.SetTitle(handTitle(raised))
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// Reaction returns the reaction label last shown.
func (t *Tray) Reaction() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.reaction
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Detecting"
	}
	return "○ Paused"
}

func reactionTitle(state string) string {
	if state == "" {
		return "Reaction: none"
	}
	return fmt.Sprintf("Reaction: %s", state)
}

func handTitle(raised bool) string {
	if raised {
		return "Hand: raised"
	}
	return "Hand: down"
}
