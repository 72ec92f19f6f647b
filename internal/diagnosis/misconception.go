package diagnosis

import (
	"math"
	"sort"

	"github.com/abhisek/diagnostica/internal/telemetry"
)

// MisconceptionRule fires when an incorrect, non-rapid response selected a
// trap option mapped to one of this competency's misconceptions. When several
// misconceptions are implicated, the one held with the highest self-reported
// confidence wins, then the one with more supporting responses, then the
// lowest ID.
type MisconceptionRule struct{}

func (r *MisconceptionRule) Name() string { return "misconception" }

type misconceptionCandidate struct {
	id      string
	best    *telemetry.QuestionResponse
	support int
}

func (r *MisconceptionRule) Apply(in *Input) (*Verdict, error) {
	byID := make(map[string]*misconceptionCandidate)
	for _, resp := range in.Incorrect {
		if resp.IsRapidGuess(in.Thresholds.RapidGuessFloorMs) {
			continue
		}
		id := trapMisconception(in, resp)
		if id == "" || !in.Graph.BelongsTo(id, in.Competency.ID) {
			continue
		}
		c, ok := byID[id]
		if !ok {
			c = &misconceptionCandidate{id: id, best: resp}
			byID[id] = c
		}
		c.support++
		if resp.Confidence.Rank() > c.best.Confidence.Rank() {
			c.best = resp
		}
	}
	if len(byID) == 0 {
		return nil, nil
	}

	candidates := make([]*misconceptionCandidate, 0, len(byID))
	for _, c := range byID {
		candidates = append(candidates, c)
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if ra, rb := a.best.Confidence.Rank(), b.best.Confidence.Rank(); ra != rb {
			return ra > rb
		}
		if a.support != b.support {
			return a.support > b.support
		}
		return a.id < b.id
	})
	winner := candidates[0]

	m := in.Graph.Misconception(winner.id)
	reason := m.Description
	if reason == "" {
		reason = m.Label
	}
	ev := in.evidence(reason, misconceptionScore(winner.best.Confidence))
	ev.MisconceptionID = winner.id
	ev.QuestionID = winner.best.QuestionID
	return &Verdict{State: StateMisconception, Evidence: ev}, nil
}

// misconceptionScore scales with self-reported certainty: a confidently
// chosen trap option is the strongest signal.
func misconceptionScore(c telemetry.Confidence) float64 {
	return math.Round(50 + c.Certainty()/2)
}

// trapMisconception returns the misconception mapped to the selected option,
// or "" when the option is unknown or a plain distractor.
func trapMisconception(in *Input, resp *telemetry.QuestionResponse) string {
	q := in.Graph.Question(resp.QuestionID)
	if q == nil {
		return ""
	}
	opt := q.Option(resp.SelectedOptionID)
	if opt == nil {
		return ""
	}
	return opt.DiagnosesMisconceptionID
}
