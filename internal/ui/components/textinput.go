package components

import (
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/diagnostica/internal/ui/theme"
)

// Filter is a one-line, case-insensitive substring filter built on
// bubbles/textinput. It starts blurred; Focus activates typing.
type Filter struct {
	Model textinput.Model
}

// NewFilter creates a filter input.
func NewFilter(placeholder string, maxLen int) Filter {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = "/ "
	if maxLen > 0 {
		ti.CharLimit = maxLen
	}
	return Filter{Model: ti}
}

// Focus starts accepting keystrokes.
func (f *Filter) Focus() tea.Cmd {
	return f.Model.Focus()
}

// Blur stops accepting keystrokes and keeps the current value.
func (f *Filter) Blur() {
	f.Model.Blur()
}

// Focused reports whether the filter is accepting keystrokes.
func (f Filter) Focused() bool {
	return f.Model.Focused()
}

// Clear empties the filter.
func (f *Filter) Clear() {
	f.Model.SetValue("")
}

// Update handles messages.
func (f Filter) Update(msg tea.Msg) (Filter, tea.Cmd) {
	var cmd tea.Cmd
	f.Model, cmd = f.Model.Update(msg)
	return f, cmd
}

// Value returns the current filter text.
func (f Filter) Value() string {
	return f.Model.Value()
}

// Match reports whether any of the fields contains the filter text.
// An empty filter matches everything.
func (f Filter) Match(fields ...string) bool {
	q := strings.ToLower(strings.TrimSpace(f.Model.Value()))
	if q == "" {
		return true
	}
	for _, s := range fields {
		if strings.Contains(strings.ToLower(s), q) {
			return true
		}
	}
	return false
}

// View renders the input, or a dim hint when blurred and empty.
func (f Filter) View() string {
	if !f.Model.Focused() && f.Model.Value() == "" {
		return theme.Hint.Render("  press / to filter")
	}
	return "  " + f.Model.View()
}
