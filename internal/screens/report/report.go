// Package report is the terminal browser for a cohort report.
package report

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/diagnostica/internal/cohort"
	"github.com/abhisek/diagnostica/internal/content"
	"github.com/abhisek/diagnostica/internal/router"
	"github.com/abhisek/diagnostica/internal/screen"
	"github.com/abhisek/diagnostica/internal/ui/components"
	"github.com/abhisek/diagnostica/internal/ui/layout"
	"github.com/abhisek/diagnostica/internal/ui/theme"
)

const (
	tabShadowNodes = iota
	tabItems
	tabFairness
)

// ReportScreen lists shadow nodes, item health and fairness in tabs.
type ReportScreen struct {
	report *cohort.Report
	graph  *content.Graph // nil when the pack is unavailable
	th     cohort.Thresholds

	tabs         components.Tabs
	filter       components.Filter
	cursor       int
	scrollOffset int
}

var _ screen.Screen = (*ReportScreen)(nil)
var _ screen.KeyHintProvider = (*ReportScreen)(nil)

// New creates a ReportScreen. g may be nil.
func New(r *cohort.Report, g *content.Graph) *ReportScreen {
	return &ReportScreen{
		report: r,
		graph:  g,
		th:     cohort.DefaultThresholds(),
		tabs:   components.NewTabs("Shadow nodes", "Item health", "Fairness"),
		filter: components.NewFilter("id, name or status", 40),
	}
}

// WithThresholds sets the limits detail screens highlight against, normally
// the ones the report was built with.
func (s *ReportScreen) WithThresholds(th cohort.Thresholds) *ReportScreen {
	s.th = th
	return s
}

func (s *ReportScreen) Init() tea.Cmd {
	return nil
}

func (s *ReportScreen) Title() string {
	return "Cohort report: " + s.report.ExamID
}

func (s *ReportScreen) KeyHints() []layout.KeyHint {
	if s.filter.Focused() {
		return []layout.KeyHint{
			{Key: "Enter", Description: "Apply"},
			{Key: "Esc", Description: "Clear"},
		}
	}
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Tab", Description: "Section"},
		{Key: "/", Description: "Filter"},
		{Key: "Enter", Description: "Details"},
		{Key: "q", Description: "Quit"},
	}
}

func (s *ReportScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		if s.filter.Focused() {
			var cmd tea.Cmd
			s.filter, cmd = s.filter.Update(msg)
			return s, cmd
		}
		return s, nil
	}

	if s.filter.Focused() {
		switch kmsg.String() {
		case "enter":
			s.filter.Blur()
		case "esc":
			s.filter.Clear()
			s.filter.Blur()
			s.resetCursor()
		default:
			var cmd tea.Cmd
			s.filter, cmd = s.filter.Update(msg)
			s.resetCursor()
			return s, cmd
		}
		return s, nil
	}

	switch kmsg.String() {
	case "up", "k":
		if s.cursor > 0 {
			s.cursor--
		}
	case "down", "j":
		if s.cursor < s.rowCount()-1 {
			s.cursor++
		}
	case "tab", "right", "l":
		s.tabs.Next()
		s.resetCursor()
	case "shift+tab", "left", "h":
		s.tabs.Prev()
		s.resetCursor()
	case "/":
		return s, s.filter.Focus()
	case "esc":
		if s.filter.Value() != "" {
			s.filter.Clear()
			s.resetCursor()
		}
	case "enter":
		return s, s.openDetail()
	case "q":
		return s, tea.Quit
	}
	return s, nil
}

func (s *ReportScreen) resetCursor() {
	s.cursor = 0
	s.scrollOffset = 0
}

func (s *ReportScreen) rowCount() int {
	switch s.tabs.Selected {
	case tabShadowNodes:
		return len(s.visibleNodes())
	case tabItems:
		return len(s.visibleItems())
	default:
		return len(s.visibleFairness())
	}
}

func (s *ReportScreen) competencyName(id string) string {
	if s.graph == nil {
		return id
	}
	c, err := s.graph.Competency(id)
	if err != nil || c.Name == "" {
		return id
	}
	return c.Name
}

func (s *ReportScreen) misconceptionLabel(id string) string {
	if s.graph != nil {
		if m := s.graph.Misconception(id); m != nil && m.Label != "" {
			return m.Label
		}
	}
	return id
}

func (s *ReportScreen) recommendation(competencyID string) *cohort.Recommendation {
	for i := range s.report.Recommendations {
		if s.report.Recommendations[i].CompetencyID == competencyID {
			return &s.report.Recommendations[i]
		}
	}
	return nil
}

func (s *ReportScreen) visibleNodes() []cohort.Pathology {
	var out []cohort.Pathology
	for _, p := range s.report.ShadowNodes {
		if s.filter.Match(p.CompetencyID, s.competencyName(p.CompetencyID)) {
			out = append(out, p)
		}
	}
	return out
}

func (s *ReportScreen) visibleItems() []cohort.ItemHealthStat {
	var out []cohort.ItemHealthStat
	for _, it := range s.report.Items {
		competency := ""
		if s.graph != nil {
			if q := s.graph.Question(it.QuestionID); q != nil {
				competency = s.competencyName(q.CompetencyID)
			}
		}
		if s.filter.Match(it.QuestionID, string(it.Status), competency) {
			out = append(out, it)
		}
	}
	return out
}

func (s *ReportScreen) visibleFairness() []cohort.FairnessMetric {
	var out []cohort.FairnessMetric
	for _, f := range s.report.Fairness {
		if s.filter.Match(f.Dimension, string(f.Status)) {
			out = append(out, f)
		}
	}
	return out
}

func (s *ReportScreen) openDetail() tea.Cmd {
	var detail screen.Screen
	switch s.tabs.Selected {
	case tabShadowNodes:
		nodes := s.visibleNodes()
		if s.cursor >= len(nodes) {
			return nil
		}
		detail = newNodeDetail(nodes[s.cursor], s.recommendation(nodes[s.cursor].CompetencyID), s)
	case tabItems:
		items := s.visibleItems()
		if s.cursor >= len(items) {
			return nil
		}
		detail = newItemDetail(items[s.cursor], s.graph, s.th)
	default:
		metrics := s.visibleFairness()
		if s.cursor >= len(metrics) {
			return nil
		}
		detail = newFairnessDetail(metrics[s.cursor])
	}
	return func() tea.Msg { return router.PushScreenMsg{Screen: detail} }
}

func (s *ReportScreen) View(width, height int) string {
	var b strings.Builder
	b.WriteString("\n" + s.tabs.View() + "\n\n")
	b.WriteString(s.filter.View() + "\n\n")

	if s.report.Error != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Error).Render("  Report failed: "+s.report.Error) + "\n")
		return b.String()
	}

	var rows []string
	switch s.tabs.Selected {
	case tabShadowNodes:
		for i, p := range s.visibleNodes() {
			rows = append(rows, s.renderNode(p, i == s.cursor, width))
		}
	case tabItems:
		for i, it := range s.visibleItems() {
			rows = append(rows, s.renderItem(it, i == s.cursor))
		}
	default:
		for i, f := range s.visibleFairness() {
			rows = append(rows, s.renderFairness(f, i == s.cursor))
		}
	}
	if len(rows) == 0 {
		b.WriteString(theme.Hint.Render("  Nothing to show.") + "\n")
		return b.String()
	}

	avail := height - lipgloss.Height(b.String())
	s.adjustScroll(avail)
	end := s.scrollOffset + avail
	if end > len(rows) || avail <= 0 {
		end = len(rows)
	}
	b.WriteString(strings.Join(rows[s.scrollOffset:end], "\n"))
	return b.String()
}

// adjustScroll keeps the cursor inside the viewport.
func (s *ReportScreen) adjustScroll(height int) {
	if height <= 0 {
		return
	}
	if s.cursor < s.scrollOffset {
		s.scrollOffset = s.cursor
	}
	if s.cursor >= s.scrollOffset+height {
		s.scrollOffset = s.cursor - height + 1
	}
}

func cursorMark(selected bool) string {
	if selected {
		return "▸ "
	}
	return "  "
}

func rowStyle(selected bool) lipgloss.Style {
	if selected {
		return theme.Selected
	}
	return theme.Unselected
}

func (s *ReportScreen) renderNode(p cohort.Pathology, selected bool, width int) string {
	name := layout.Truncate(s.competencyName(p.CompetencyID), 28)
	top := ""
	if len(p.TopMisconceptions) > 0 {
		mc := p.TopMisconceptions[0]
		top = fmt.Sprintf("top: %s (%d)", s.misconceptionLabel(mc.MisconceptionID), mc.Count)
	}
	line := fmt.Sprintf("  %s%-28s %4d misconceptions  %s",
		cursorMark(selected), name, p.Occurrences, theme.Dim.Render(layout.Truncate(top, width-60)))
	return rowStyle(selected).Render(line)
}

func formatParam(v *float64) string {
	if v == nil {
		return "  -  "
	}
	return fmt.Sprintf("%.2f", *v)
}

func (s *ReportScreen) renderItem(it cohort.ItemHealthStat, selected bool) string {
	line := fmt.Sprintf("  %s%-20s slip %s  guess %s  disc %s  M%-3d N%-3d ",
		cursorMark(selected), layout.Truncate(it.QuestionID, 20),
		formatParam(it.Slip), formatParam(it.Guess), formatParam(it.Discrimination),
		it.MasterN, it.NoviceN)
	return rowStyle(selected).Render(line) + theme.Status(string(it.Status)).Render(string(it.Status))
}

func (s *ReportScreen) renderFairness(f cohort.FairnessMetric, selected bool) string {
	ratio := "  -  "
	if f.Ratio != nil {
		ratio = fmt.Sprintf("%.2f", *f.Ratio)
	}
	line := fmt.Sprintf("  %s%-20s ratio %s  %d groups  ",
		cursorMark(selected), layout.Truncate(f.Dimension, 20), ratio, len(f.Groups))
	return rowStyle(selected).Render(line) + theme.Status(string(f.Status)).Render(string(f.Status))
}
