// Package remediation turns a DiagnosticResult into curriculum mutations
// and teacher-facing recommendations.
package remediation

import (
	"fmt"
	"sort"

	"github.com/abhisek/diagnostica/internal/calibration"
	"github.com/abhisek/diagnostica/internal/content"
	"github.com/abhisek/diagnostica/internal/diagnosis"
	"github.com/abhisek/diagnostica/internal/evaluation"
	"github.com/abhisek/diagnostica/internal/telemetry"
)

// MutationType names a change to the learner's path.
type MutationType string

const (
	MutationLockDownstream    MutationType = "LOCK_DOWNSTREAM"
	MutationInjectScaffolding MutationType = "INJECT_SCAFFOLDING"
	MutationScheduleReview    MutationType = "SCHEDULE_REVIEW"
	MutationRetest            MutationType = "RETEST"
)

func (t MutationType) rank() int {
	switch t {
	case MutationLockDownstream:
		return 0
	case MutationInjectScaffolding:
		return 1
	case MutationScheduleReview:
		return 2
	default:
		return 3
	}
}

// Mutation is one applied change. CompetencyID is empty for session-wide
// mutations.
type Mutation struct {
	Type            MutationType `json:"type"`
	CompetencyID    string       `json:"competencyId,omitempty"`
	MisconceptionID string       `json:"misconceptionId,omitempty"`
	QuestionID      string       `json:"questionId,omitempty"`
	Reason          string       `json:"reason"`
	DueInDays       int          `json:"dueInDays,omitempty"`
}

// Options tune planning.
type Options struct {
	// PriorReviews counts earlier reviews per competency.
	PriorReviews map[string]int

	// RapidGuessFloorMs marks responses faster than this as guesses.
	RapidGuessFloorMs int
}

// Plan derives the mutation list for a result. The list is deduplicated
// and sorted by type, competency, misconception and question, so equal
// inputs always yield equal plans.
func Plan(res *evaluation.DiagnosticResult, g *content.Graph, opts Options) []Mutation {
	if opts.RapidGuessFloorMs <= 0 {
		opts.RapidGuessFloorMs = calibration.DefaultThresholds().RapidGuessFloorMs
	}

	p := &planner{seen: make(map[string]bool), out: []Mutation{}}
	states := make(map[string]diagnosis.State, len(res.CompetencyDiagnoses))

	for _, d := range res.CompetencyDiagnoses {
		states[d.CompetencyID] = d.State
		switch d.State {
		case diagnosis.StateMisconception:
			p.add(Mutation{
				Type:            MutationInjectScaffolding,
				CompetencyID:    d.CompetencyID,
				MisconceptionID: d.Evidence.MisconceptionID,
				QuestionID:      d.Evidence.QuestionID,
				Reason:          d.Evidence.Reason,
			})
			fallthrough
		case diagnosis.StateGap:
			if g == nil {
				continue
			}
			for _, dep := range g.Downstream(d.CompetencyID) {
				p.add(Mutation{
					Type:         MutationLockDownstream,
					CompetencyID: dep,
					Reason:       fmt.Sprintf("prerequisite %s diagnosed %s", d.CompetencyID, d.State),
				})
			}
		}
	}

	for _, r := range res.Responses {
		switch {
		case r.IsCorrect && r.Confidence == telemetry.ConfidenceLow:
			prior := opts.PriorReviews[r.CompetencyID]
			p.add(Mutation{
				Type:         MutationScheduleReview,
				CompetencyID: r.CompetencyID,
				QuestionID:   r.QuestionID,
				Reason:       "correct answer given with low confidence",
				DueInDays:    ReviewIntervalDays(prior),
			})
		case r.IsRapidGuess(opts.RapidGuessFloorMs):
			st, ok := states[r.CompetencyID]
			if !ok || (st != diagnosis.StateNeutral && st != diagnosis.StateGap) {
				continue
			}
			p.add(Mutation{
				Type:         MutationRetest,
				CompetencyID: r.CompetencyID,
				QuestionID:   r.QuestionID,
				Reason:       fmt.Sprintf("answered in %d ms", r.Telemetry.TimeMs),
			})
		}
	}

	if res.BehaviorProfile.IsImpulsive {
		p.add(Mutation{
			Type:   MutationRetest,
			Reason: fmt.Sprintf("impulsive session: %.0f%% rapid guesses", res.BehaviorProfile.RapidGuessRate*100),
		})
	}

	sort.SliceStable(p.out, func(i, j int) bool {
		a, b := p.out[i], p.out[j]
		if a.Type != b.Type {
			return a.Type.rank() < b.Type.rank()
		}
		if a.CompetencyID != b.CompetencyID {
			return a.CompetencyID < b.CompetencyID
		}
		if a.MisconceptionID != b.MisconceptionID {
			return a.MisconceptionID < b.MisconceptionID
		}
		return a.QuestionID < b.QuestionID
	})
	return p.out
}

type planner struct {
	seen map[string]bool
	out  []Mutation
}

// add keeps the first mutation per (type, competency, misconception).
func (p *planner) add(m Mutation) {
	key := string(m.Type) + "|" + m.CompetencyID + "|" + m.MisconceptionID
	if p.seen[key] {
		return
	}
	p.seen[key] = true
	p.out = append(p.out, m)
}
