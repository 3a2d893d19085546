package screen

import (
	tea "charm.land/bubbletea/v2"

	"github.com/pharmcheck/pharmcheck/internal/ui/layout"
)

// Screen defines the interface for all application screens.
type Screen interface {
	// Init returns an initial command when the screen is first created.
	Init() tea.Cmd

	// Update handles messages and returns updated screen + command.
	Update(msg tea.Msg) (Screen, tea.Cmd)

	// View renders the screen content (excluding header/footer).
	View(width, height int) string

	// Title returns the screen name for the header.
	Title() string
}

// StatusProvider is an optional interface for screens that show a status
// at the right of the header.
type StatusProvider interface {
	Status() string
}

// KeyHintProvider is an optional interface that screens can implement
// to provide custom footer key hints.
type KeyHintProvider interface {
	KeyHints() []layout.KeyHint
}

// ResetMsg is delivered to the root screen after the stack is unwound to it,
// so it can refresh state that changed while it was hidden.
type ResetMsg struct{}
