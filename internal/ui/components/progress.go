package components

import (
	"fmt"
	"image/color"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/diagnostica/internal/ui/theme"
)

// ProgressBar draws a rate in [0, 1] as a filled track. Values outside the
// range are clamped.
type ProgressBar struct {
	Label       string
	Percent     float64
	ShowPercent bool
	Width       int

	// Color overrides the fill. Nil means theme.Secondary, or theme.Error
	// once Percent reaches Alert.
	Color color.Color

	// Alert is the rate at which the bar turns to the error color, e.g. the
	// slip rate that marks an item broken. Zero disables it.
	Alert float64
}

func NewProgressBar(label string, percent float64, showPercent bool, width int) ProgressBar {
	return ProgressBar{Label: label, Percent: percent, ShowPercent: showPercent, Width: width}
}

func (p ProgressBar) fill(pct float64) color.Color {
	switch {
	case p.Color != nil:
		return p.Color
	case p.Alert > 0 && pct >= p.Alert:
		return theme.Error
	default:
		return theme.Secondary
	}
}

func (p ProgressBar) View() string {
	var b strings.Builder
	if p.Label != "" {
		b.WriteString(theme.Body.Render(p.Label) + "  ")
	}

	pct := min(max(p.Percent, 0), 1)
	suffix := ""
	if p.ShowPercent {
		suffix = fmt.Sprintf("  %3d%%", int(pct*100+0.5))
	}

	track := max(p.Width-lipgloss.Width(b.String())-lipgloss.Width(suffix), 4)
	filled := int(float64(track) * pct)

	b.WriteString(lipgloss.NewStyle().Background(p.fill(pct)).Render(strings.Repeat(" ", filled)))
	b.WriteString(lipgloss.NewStyle().Background(theme.Border).Render(strings.Repeat(" ", track-filled)))
	if suffix != "" {
		b.WriteString(theme.Dim.Render(suffix))
	}
	return b.String()
}
