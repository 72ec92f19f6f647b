package diagnosis

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/abhisek/diagnostica/internal/content"
	"github.com/abhisek/diagnostica/internal/telemetry"
)

// Engine turns the responses of one attempt into per-competency diagnoses
// using an ordered rule chain.
type Engine struct {
	graph      *content.Graph
	rules      []Rule
	thresholds Thresholds
	logger     *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithRules replaces the default rule chain.
func WithRules(rules ...Rule) Option {
	return func(e *Engine) { e.rules = rules }
}

// WithThresholds overrides the default thresholds.
func WithThresholds(th Thresholds) Option {
	return func(e *Engine) { e.thresholds = th }
}

// WithLogger sets the logger used to report isolated failures.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an engine bound to a content graph.
func NewEngine(g *content.Graph, opts ...Option) *Engine {
	e := &Engine{
		graph:      g,
		rules:      DefaultRules(),
		thresholds: DefaultThresholds(),
		logger:     zap.NewNop(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Thresholds returns the engine's active thresholds.
func (e *Engine) Thresholds() Thresholds { return e.thresholds }

// DiagnoseCompetency produces exactly one diagnosis for the competency from
// the responses tagged with it. Responses for other competencies are
// ignored. A failure inside the chain yields NEUTRAL with Evidence.Error set.
func (e *Engine) DiagnoseCompetency(competencyID string, responses []telemetry.QuestionResponse) (d CompetencyDiagnosis) {
	d.CompetencyID = competencyID
	defer func() {
		if rec := recover(); rec != nil {
			d = failed(competencyID, fmt.Errorf("panic: %v", rec))
			e.logger.Error("diagnosis panicked",
				zap.String("competency", competencyID), zap.Any("panic", rec))
		}
	}()

	c, err := e.graph.Competency(competencyID)
	if err != nil {
		return failed(competencyID, err)
	}

	var own []telemetry.QuestionResponse
	for _, r := range responses {
		if r.CompetencyID == competencyID {
			own = append(own, r)
		}
	}

	v, err := RunRules(e.rules, newInput(c, e.graph, e.thresholds, own))
	if err != nil {
		e.logger.Warn("diagnosis failed", zap.String("competency", competencyID), zap.Error(err))
		return failed(competencyID, err)
	}
	if v == nil {
		return CompetencyDiagnosis{
			CompetencyID: competencyID,
			State:        StateNeutral,
			Evidence:     Evidence{Reason: "No rule matched"},
		}
	}
	d.State = v.State
	d.Evidence = v.Evidence
	return d
}

// DiagnoseAll diagnoses every competency in the pack that has at least one
// question, in topological order.
func (e *Engine) DiagnoseAll(responses []telemetry.QuestionResponse) []CompetencyDiagnosis {
	ids := e.graph.AssessedCompetencies()
	out := make([]CompetencyDiagnosis, 0, len(ids))
	for _, id := range ids {
		out = append(out, e.DiagnoseCompetency(id, responses))
	}
	return out
}

func failed(competencyID string, err error) CompetencyDiagnosis {
	return CompetencyDiagnosis{
		CompetencyID: competencyID,
		State:        StateNeutral,
		Evidence: Evidence{
			Reason: "Diagnosis could not be computed",
			Error:  err.Error(),
		},
	}
}
