package report

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/diagnostica/internal/cohort"
	"github.com/abhisek/diagnostica/internal/content"
	"github.com/abhisek/diagnostica/internal/screen"
	"github.com/abhisek/diagnostica/internal/ui/components"
	"github.com/abhisek/diagnostica/internal/ui/layout"
	"github.com/abhisek/diagnostica/internal/ui/theme"
)

var backHints = []layout.KeyHint{{Key: "Esc", Description: "Back"}}

func label(s string) string { return theme.Dim.Render(fmt.Sprintf("  %-16s", s)) }

func place(width, height int, body string) string {
	return lipgloss.Place(width, height, lipgloss.Left, lipgloss.Top, "\n"+body)
}

func wrap(width int, text string) string {
	w := width - 8
	if w > 72 {
		w = 72
	}
	return lipgloss.NewStyle().Width(w).PaddingLeft(2).Foreground(theme.Text).Render(text)
}

// ItemDetailScreen shows the parameters of one item.
type ItemDetailScreen struct {
	item     cohort.ItemHealthStat
	question *content.QuestionDefinition
	comp     string
	th       cohort.Thresholds
}

var _ screen.Screen = (*ItemDetailScreen)(nil)
var _ screen.KeyHintProvider = (*ItemDetailScreen)(nil)

func newItemDetail(it cohort.ItemHealthStat, g *content.Graph, th cohort.Thresholds) *ItemDetailScreen {
	d := &ItemDetailScreen{item: it, th: th}
	if g != nil {
		d.question = g.Question(it.QuestionID)
		if d.question != nil {
			d.comp = d.question.CompetencyID
			if c, err := g.Competency(d.comp); err == nil && c.Name != "" {
				d.comp = c.Name
			}
		}
	}
	return d
}

func (d *ItemDetailScreen) Init() tea.Cmd                             { return nil }
func (d *ItemDetailScreen) Title() string                             { return d.item.QuestionID }
func (d *ItemDetailScreen) KeyHints() []layout.KeyHint                { return backHints }
func (d *ItemDetailScreen) Update(tea.Msg) (screen.Screen, tea.Cmd) { return d, nil }

func (d *ItemDetailScreen) View(width, height int) string {
	it := d.item
	var b strings.Builder
	b.WriteString(theme.Title.Render("  "+it.QuestionID) + "  " + theme.Status(string(it.Status)).Render(string(it.Status)) + "\n\n")

	if d.question != nil {
		if d.question.Prompt != "" {
			b.WriteString(wrap(width, d.question.Prompt) + "\n\n")
		}
		b.WriteString(label("Competency") + theme.Body.Render(d.comp) + "\n")
		b.WriteString(label("Options") + theme.Body.Render(fmt.Sprintf("%d", len(d.question.Options))) + "\n")
	}
	b.WriteString(label("Masters (valid)") + theme.Body.Render(fmt.Sprintf("%d", it.MasterN)) + "\n")
	b.WriteString(label("Novices (valid)") + theme.Body.Render(fmt.Sprintf("%d", it.NoviceN)) + "\n\n")

	barWidth := width - 8
	if barWidth > 60 {
		barWidth = 60
	}
	th := d.th
	for _, p := range []struct {
		name  string
		v     *float64
		alert float64
	}{
		{"Slip", it.Slip, th.SlipBroken},
		{"Guess", it.Guess, th.GuessTrivial},
		{"Discrimination", it.Discrimination, 0},
	} {
		if p.v == nil {
			b.WriteString(label(p.name) + theme.Hint.Render("insufficient data") + "\n")
			continue
		}
		bar := components.NewProgressBar(fmt.Sprintf("%-14s", p.name), *p.v, false, barWidth)
		bar.Alert = p.alert
		b.WriteString("  " + bar.View() + fmt.Sprintf("  %.2f", *p.v) + "\n")
	}
	return place(width, height, b.String())
}

// NodeDetailScreen shows one shadow node and its recommendation.
type NodeDetailScreen struct {
	node   cohort.Pathology
	rec    *cohort.Recommendation
	parent *ReportScreen
}

var _ screen.Screen = (*NodeDetailScreen)(nil)

func newNodeDetail(p cohort.Pathology, rec *cohort.Recommendation, parent *ReportScreen) *NodeDetailScreen {
	return &NodeDetailScreen{node: p, rec: rec, parent: parent}
}

func (d *NodeDetailScreen) Init() tea.Cmd                             { return nil }
func (d *NodeDetailScreen) Title() string                             { return d.parent.competencyName(d.node.CompetencyID) }
func (d *NodeDetailScreen) KeyHints() []layout.KeyHint                { return backHints }
func (d *NodeDetailScreen) Update(tea.Msg) (screen.Screen, tea.Cmd) { return d, nil }

func (d *NodeDetailScreen) View(width, height int) string {
	var b strings.Builder
	b.WriteString(theme.Title.Render("  "+d.parent.competencyName(d.node.CompetencyID)) + "\n")
	b.WriteString(theme.Dim.Render(fmt.Sprintf("  %s · %d misconception diagnoses", d.node.CompetencyID, d.node.Occurrences)) + "\n\n")

	b.WriteString(theme.Section.Render("  Misconceptions") + "\n")
	for _, mc := range d.node.TopMisconceptions {
		b.WriteString(theme.Body.Render(fmt.Sprintf("  %4d  %s", mc.Count, d.parent.misconceptionLabel(mc.MisconceptionID))) + "\n")
		if g := d.parent.graph; g != nil {
			if m := g.Misconception(mc.MisconceptionID); m != nil && m.Description != "" {
				b.WriteString(theme.Dim.Render("        "+m.Description) + "\n")
			}
		}
	}

	if d.rec != nil {
		b.WriteString("\n" + theme.Section.Render("  Recommendation") + theme.Hint.Render(" ("+d.rec.Source+")") + "\n")
		b.WriteString(wrap(width, d.rec.Text) + "\n")
	}
	return place(width, height, b.String())
}

// FairnessDetailScreen shows the per-group intervention rates of one dimension.
type FairnessDetailScreen struct {
	metric cohort.FairnessMetric
}

var _ screen.Screen = (*FairnessDetailScreen)(nil)

func newFairnessDetail(f cohort.FairnessMetric) *FairnessDetailScreen {
	return &FairnessDetailScreen{metric: f}
}

func (d *FairnessDetailScreen) Init() tea.Cmd                             { return nil }
func (d *FairnessDetailScreen) Title() string                             { return "Fairness: " + d.metric.Dimension }
func (d *FairnessDetailScreen) KeyHints() []layout.KeyHint                { return backHints }
func (d *FairnessDetailScreen) Update(tea.Msg) (screen.Screen, tea.Cmd) { return d, nil }

func (d *FairnessDetailScreen) View(width, height int) string {
	f := d.metric
	var b strings.Builder
	b.WriteString(theme.Title.Render("  "+f.Dimension) + "  " + theme.Status(string(f.Status)).Render(string(f.Status)) + "\n")
	if f.Ratio != nil {
		b.WriteString(theme.Dim.Render(fmt.Sprintf("  disparate impact ratio %.2f", *f.Ratio)) + "\n")
	}
	b.WriteString("\n" + theme.Section.Render("  Intervention rate by group") + "\n")

	barWidth := width - 8
	if barWidth > 60 {
		barWidth = 60
	}
	for _, g := range f.Groups {
		bar := components.NewProgressBar(fmt.Sprintf("%-12s", layout.Truncate(g.Group, 12)), g.Rate, true, barWidth)
		if !g.Eligible {
			bar.Color = theme.Border
		}
		line := "  " + bar.View() + theme.Dim.Render(fmt.Sprintf("  %d/%d", g.Interventions, g.Attempts))
		b.WriteString(line + "\n")
	}
	if len(f.InsufficientGroups) > 0 {
		b.WriteString("\n" + theme.Hint.Render("  Too few attempts: "+strings.Join(f.InsufficientGroups, ", ")) + "\n")
	}
	return place(width, height, b.String())
}
