// Package loading shows a wait message while a report is being built.
package loading

import (
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/diagnostica/internal/router"
	"github.com/abhisek/diagnostica/internal/screen"
	"github.com/abhisek/diagnostica/internal/ui/theme"
)

// Loader produces the screen to show once work completes.
type Loader func() screen.Screen

type doneMsg struct {
	next screen.Screen
}

// LoadingScreen runs a Loader in the background and replaces itself with
// the loaded screen.
type LoadingScreen struct {
	title string
	load  Loader
}

var _ screen.Screen = (*LoadingScreen)(nil)

// New creates a LoadingScreen.
func New(title string, load Loader) *LoadingScreen {
	return &LoadingScreen{title: title, load: load}
}

func (l *LoadingScreen) Init() tea.Cmd {
	return func() tea.Msg {
		return doneMsg{next: l.load()}
	}
}

func (l *LoadingScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if m, ok := msg.(doneMsg); ok {
		return l, func() tea.Msg { return router.ReplaceScreenMsg{Screen: m.next} }
	}
	return l, nil
}

func (l *LoadingScreen) View(width, height int) string {
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.TextDim).
		Render("Building cohort report…")
}

func (l *LoadingScreen) Title() string {
	return l.title
}
