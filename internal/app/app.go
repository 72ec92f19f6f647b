// Package app hosts the root Bubble Tea model for the report browser.
package app

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/diagnostica/internal/router"
	"github.com/abhisek/diagnostica/internal/screen"
	"github.com/abhisek/diagnostica/internal/screens/loading"
	"github.com/abhisek/diagnostica/internal/ui/layout"
)

var (
	quitHint = layout.KeyHint{Key: "Ctrl+C", Description: "Quit"}
	backHint = layout.KeyHint{Key: "Esc", Description: "Back"}
)

// Model is the root Bubble Tea model. It owns the terminal size and the
// header and footer; screens render only the body.
type Model struct {
	router *router.Router
	status string
	width  int
	height int
}

func newModel(title, status string, load loading.Loader) Model {
	return Model{
		router: router.New(loading.New(title, load)),
		status: status,
	}
}

func (m Model) Init() tea.Cmd {
	if active := m.router.Active(); active != nil {
		return active.Init()
	}
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			// At the root, esc belongs to the screen (it clears the filter).
			if m.router.Depth() > 1 {
				return m, func() tea.Msg { return router.PopScreenMsg{} }
			}
		}
	}
	return m, m.router.Update(msg)
}

func (m Model) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true
	switch {
	case m.width == 0 || m.height == 0:
	case layout.IsTooSmall(m.width, m.height):
		v.SetContent(layout.RenderMinSizeMessage(m.width, m.height))
	default:
		v.SetContent(m.frame())
	}
	return v
}

func (m Model) frame() string {
	crumbs := layout.Truncate(strings.Join(m.router.Titles(), " › "), m.width/2)
	header := layout.RenderHeader(crumbs, m.status, m.width)
	footer := layout.RenderFooter(m.footerHints(m.router.Active()), m.width)
	body := m.router.View(m.width, max(0, m.height-lipgloss.Height(header)-lipgloss.Height(footer)))
	return layout.RenderFrame(header, body, footer, m.width, m.height)
}

// footerHints lists the active screen's hints, or Back below the root,
// and always ends with Quit.
func (m Model) footerHints(active screen.Screen) []layout.KeyHint {
	var hints []layout.KeyHint
	if p, ok := active.(screen.KeyHintProvider); ok {
		hints = append(hints, p.KeyHints()...)
	} else if m.router.Depth() > 1 {
		hints = append(hints, backHint)
	}
	return append(hints, quitHint)
}

// Run starts the Bubble Tea program. load runs once in the background and
// its screen replaces the loading screen.
func Run(title, status string, load loading.Loader) error {
	p := tea.NewProgram(newModel(title, status, load))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run report browser: %w", err)
	}
	return nil
}
