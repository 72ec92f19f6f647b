package theme

import (
	"charm.land/lipgloss/v2"
)

// Color palette, dark background with status accents.
var (
	Primary   = lipgloss.Color("#8B5CF6") // Purple
	Secondary = lipgloss.Color("#14B8A6") // Teal
	Accent    = lipgloss.Color("#F97316") // Orange, warnings
	Success   = lipgloss.Color("#22C55E") // Green
	Error     = lipgloss.Color("#F43F5E") // Rose
	Text      = lipgloss.Color("#F8FAFC")
	TextDim   = lipgloss.Color("#94A3B8")
	BgDark    = lipgloss.Color("#0F172A")
	BgCard    = lipgloss.Color("#1E293B")
	Border    = lipgloss.Color("#334155")
)

// Typography
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Section = lipgloss.NewStyle().
		Foreground(Secondary).
		Bold(true)

	Body = lipgloss.NewStyle().
		Foreground(Text)

	Dim = lipgloss.NewStyle().
		Foreground(TextDim)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)
)

// States
var (
	Selected = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	Unselected = lipgloss.NewStyle().
			Foreground(Text)

	TabActive = lipgloss.NewStyle().
			Background(Primary).
			Foreground(Text).
			Bold(true).
			Padding(0, 2)

	TabInactive = lipgloss.NewStyle().
			Foreground(TextDim).
			Padding(0, 2)
)

// Status returns the style for an item-health or fairness status label.
func Status(status string) lipgloss.Style {
	switch status {
	case "HEALTHY", "OPTIMAL", "MASTERED":
		return lipgloss.NewStyle().Foreground(Success)
	case "TRIVIAL", "WARNING", "GAP":
		return lipgloss.NewStyle().Foreground(Accent)
	case "BROKEN", "CRITICAL", "MISCONCEPTION":
		return lipgloss.NewStyle().Foreground(Error).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(TextDim)
	}
}
