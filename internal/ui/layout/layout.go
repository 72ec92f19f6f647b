// Package layout draws the report browser's frame: header bar, footer with
// key hints and the content area between them.
package layout

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"

	"github.com/abhisek/diagnostica/internal/ui/theme"
)

// Below this size the report tables wrap and become unreadable.
const (
	MinWidth  = 80
	MinHeight = 24
)

type KeyHint struct {
	Key         string
	Description string
}

var (
	barStyle = lipgloss.NewStyle().
			Background(theme.BgCard).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border)
	brandStyle  = lipgloss.NewStyle().Foreground(theme.Primary).Bold(true)
	statusStyle = lipgloss.NewStyle().Foreground(theme.Accent)
	keyStyle    = lipgloss.NewStyle().Foreground(theme.Text).Bold(true)
	descStyle   = lipgloss.NewStyle().Foreground(theme.TextDim)
)

func IsTooSmall(width, height int) bool {
	return width < MinWidth || height < MinHeight
}

func RenderMinSizeMessage(width, height int) string {
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.Text).
		Render(fmt.Sprintf("Window is %d x %d.\nThe report needs at least %d x %d.",
			width, height, MinWidth, MinHeight))
}

// RenderHeader shows the product name, a centered title (the navigation
// breadcrumb) and a right-aligned status such as the exam ID.
func RenderHeader(title, status string, width int) string {
	inner := max(width-4, 0)
	brand := brandStyle.Render(" Diagnostica ")
	right := statusStyle.Render(" " + status + " ")

	mid := max(inner-lipgloss.Width(brand)-lipgloss.Width(right), 0)
	center := lipgloss.NewStyle().
		Foreground(theme.Text).
		Width(mid).
		Align(lipgloss.Center).
		Render(Truncate(title, mid))

	return barStyle.Width(width).Render(brand + center + right)
}

// RenderFooter lists key hints left to right. Hints that do not fit are
// dropped from the end, except the last one, which is always kept.
func RenderFooter(hints []KeyHint, width int) string {
	room := max(width-6, 0)
	parts := make([]string, 0, len(hints))
	used := 0
	for i, h := range hints {
		part := keyStyle.Render(h.Key) + " " + descStyle.Render(h.Description)
		w := lipgloss.Width(part) + 3
		if used+w > room && i < len(hints)-1 {
			continue
		}
		parts = append(parts, part)
		used += w
	}
	return barStyle.Width(width).Render(" " + strings.Join(parts, "   "))
}

// RenderFrame stacks header, content and footer, giving content whatever
// height remains.
func RenderFrame(header, content, footer string, width, height int) string {
	rest := max(height-lipgloss.Height(header)-lipgloss.Height(footer), 0)
	body := lipgloss.NewStyle().Width(width).Height(rest).MaxHeight(rest).Render(content)
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

// Truncate cuts s to n display cells, ending with an ellipsis when cut.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	return ansi.Truncate(s, n, "…")
}
