// Package screen defines what the router stacks: one page of the report
// browser.
package screen

import (
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/diagnostica/internal/ui/layout"
)

// Screen is a page. View gets the area between header and footer; Title
// becomes one segment of the header breadcrumb.
type Screen interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (Screen, tea.Cmd)
	View(width, height int) string
	Title() string
}

// KeyHintProvider lets a screen replace the footer's default hints.
type KeyHintProvider interface {
	KeyHints() []layout.KeyHint
}
