package remediation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/diagnostica/internal/cohort"
	"github.com/abhisek/diagnostica/internal/content"
	"github.com/abhisek/diagnostica/internal/llm"
	"github.com/abhisek/diagnostica/internal/metrics"
)

// Recommendation sources.
const (
	SourceTemplate = "template"
	SourceLLM      = "llm"
	SourceFallback = "fallback"
)

// purpose labels narrator calls in the LLM request log.
const purpose = "remediation"

var recommendationSchema = &llm.Schema{
	Name:        "remediation-note",
	Description: "A teacher-facing remediation recommendation",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"recommendation": map[string]any{
				"type":      "string",
				"minLength": 1,
				"maxLength": 800,
			},
		},
		"required":             []any{"recommendation"},
		"additionalProperties": false,
	},
}

const systemPrompt = `You write short remediation recommendations for teachers.
Given a competency that many students hold a misconception about, write two or three
plain sentences: what students believe, how to reteach it, and which later topics to hold back.
Do not invent data that is not in the prompt.`

// Narrator writes recommendations for a report's shadow nodes. With no
// provider it uses a deterministic template; with one it asks the model
// and falls back to the template on any error.
type Narrator struct {
	provider llm.Provider
	timeout  time.Duration
	logger   *zap.Logger
}

// NewNarrator creates a narrator. provider may be nil.
func NewNarrator(provider llm.Provider, timeout time.Duration, logger *zap.Logger) *Narrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Narrator{provider: provider, timeout: timeout, logger: logger}
}

// Recommend returns one recommendation per shadow node, in input order.
// g may be nil, in which case IDs stand in for names.
func (n *Narrator) Recommend(ctx context.Context, g *content.Graph, shadow []cohort.Pathology) []cohort.Recommendation {
	out := make([]cohort.Recommendation, 0, len(shadow))
	for _, p := range shadow {
		out = append(out, n.recommend(ctx, g, p))
	}
	return out
}

func (n *Narrator) recommend(ctx context.Context, g *content.Graph, p cohort.Pathology) cohort.Recommendation {
	facts := describe(g, p)
	if n.provider == nil {
		metrics.RecordNarration(SourceTemplate)
		return cohort.Recommendation{CompetencyID: p.CompetencyID, Text: facts.template(), Source: SourceTemplate}
	}

	call := llm.CallInfo{Purpose: purpose, CompetencyID: p.CompetencyID}
	if g != nil {
		call.ExamID = g.ExamID()
	}
	text, err := n.generate(llm.WithCall(ctx, call), facts)
	if err != nil {
		n.logger.Warn("llm narration failed, using template",
			zap.String("competency", p.CompetencyID), zap.Error(err))
		metrics.RecordNarration(SourceFallback)
		return cohort.Recommendation{CompetencyID: p.CompetencyID, Text: facts.template(), Source: SourceFallback}
	}
	metrics.RecordNarration(SourceLLM)
	return cohort.Recommendation{CompetencyID: p.CompetencyID, Text: text, Source: SourceLLM}
}

func (n *Narrator) generate(ctx context.Context, f facts) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	resp, err := n.provider.Generate(ctx, llm.Request{
		System:      systemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: f.prompt()}},
		Schema:      recommendationSchema,
		MaxTokens:   400,
		Temperature: 0.2,
	})
	if err != nil {
		return "", err
	}

	var body struct {
		Recommendation string `json:"recommendation"`
	}
	if err := json.Unmarshal(resp.Content, &body); err != nil {
		return "", fmt.Errorf("decode recommendation: %w", err)
	}
	text := strings.TrimSpace(body.Recommendation)
	if text == "" {
		return "", fmt.Errorf("empty recommendation")
	}
	return text, nil
}

type misconceptionFact struct {
	label, description string
	count              int
}

type facts struct {
	competency    string
	occurrences   int
	misconception []misconceptionFact
	downstream    []string
}

func describe(g *content.Graph, p cohort.Pathology) facts {
	f := facts{competency: p.CompetencyID, occurrences: p.Occurrences}
	if g != nil {
		if c, err := g.Competency(p.CompetencyID); err == nil && c.Name != "" {
			f.competency = c.Name
		}
		for _, id := range g.Downstream(p.CompetencyID) {
			name := id
			if c, err := g.Competency(id); err == nil && c.Name != "" {
				name = c.Name
			}
			f.downstream = append(f.downstream, name)
		}
	}
	for _, mc := range p.TopMisconceptions {
		m := misconceptionFact{label: mc.MisconceptionID, count: mc.Count}
		if g != nil {
			if def := g.Misconception(mc.MisconceptionID); def != nil {
				m.label = def.Label
				m.description = def.Description
			}
		}
		f.misconception = append(f.misconception, m)
	}
	return f
}

func (f facts) template() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d misconception diagnoses.", f.competency, f.occurrences)
	if len(f.misconception) > 0 {
		top := f.misconception[0]
		fmt.Fprintf(&b, " Most common: %s (%d).", top.label, top.count)
		if top.description != "" {
			fmt.Fprintf(&b, " Reteach with examples that contradict the belief: %s.", strings.TrimSuffix(top.description, "."))
		}
	}
	if len(f.downstream) > 0 {
		fmt.Fprintf(&b, " Hold back %s until resolved.", strings.Join(f.downstream, ", "))
	}
	return b.String()
}

func (f facts) prompt() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Competency: %s\nStudents diagnosed with a misconception: %d\n", f.competency, f.occurrences)
	for _, m := range f.misconception {
		fmt.Fprintf(&b, "- %s (%d students)", m.label, m.count)
		if m.description != "" {
			fmt.Fprintf(&b, ": %s", m.description)
		}
		b.WriteString("\n")
	}
	if len(f.downstream) > 0 {
		fmt.Fprintf(&b, "Later topics that depend on it: %s\n", strings.Join(f.downstream, ", "))
	}
	return b.String()
}
