package components

import (
	"strings"

	"github.com/abhisek/diagnostica/internal/ui/theme"
)

// Tabs is a horizontal tab strip. Selection wraps around.
type Tabs struct {
	Labels   []string
	Selected int
}

// NewTabs creates a tab strip with the first tab selected.
func NewTabs(labels ...string) Tabs {
	return Tabs{Labels: labels}
}

// Next selects the tab to the right.
func (t *Tabs) Next() {
	if len(t.Labels) == 0 {
		return
	}
	t.Selected = (t.Selected + 1) % len(t.Labels)
}

// Prev selects the tab to the left.
func (t *Tabs) Prev() {
	if len(t.Labels) == 0 {
		return
	}
	t.Selected = (t.Selected - 1 + len(t.Labels)) % len(t.Labels)
}

// View renders the strip.
func (t Tabs) View() string {
	parts := make([]string, len(t.Labels))
	for i, l := range t.Labels {
		if i == t.Selected {
			parts[i] = theme.TabActive.Render(l)
		} else {
			parts[i] = theme.TabInactive.Render(l)
		}
	}
	return "  " + strings.Join(parts, " ")
}
