package diagnosis

import (
	"fmt"
	"math"
)

// GapRule classifies any remaining incorrect answer as a knowledge gap.
// This includes rapid guesses on trap options and traps belonging to a
// different competency.
type GapRule struct{}

func (r *GapRule) Name() string { return "gap" }

func (r *GapRule) Apply(in *Input) (*Verdict, error) {
	if len(in.Incorrect) == 0 {
		return nil, nil
	}
	score := math.Round(100 * float64(len(in.Incorrect)) / float64(len(in.Responses)))

	rapid := 0
	for _, resp := range in.Incorrect {
		if resp.IsRapidGuess(in.Thresholds.RapidGuessFloorMs) {
			rapid++
		}
	}
	reason := fmt.Sprintf("%d of %d responses incorrect", len(in.Incorrect), len(in.Responses))
	if rapid > 0 {
		reason += fmt.Sprintf(" (%d rapid guess)", rapid)
	}

	ev := in.evidence(reason, score)
	ev.QuestionID = in.Incorrect[0].QuestionID
	return &Verdict{State: StateGap, Evidence: ev}, nil
}

// NoEvidenceRule yields NEUTRAL when the competency has no responses.
type NoEvidenceRule struct{}

func (r *NoEvidenceRule) Name() string { return "no-evidence" }

func (r *NoEvidenceRule) Apply(in *Input) (*Verdict, error) {
	if len(in.Responses) > 0 {
		return nil, nil
	}
	return &Verdict{State: StateNeutral, Evidence: Evidence{Reason: "No responses for this competency"}}, nil
}

// InconclusiveRule is the terminal rule: all answers correct, but too fast
// or too slow to call mastery.
type InconclusiveRule struct{}

func (r *InconclusiveRule) Name() string { return "inconclusive" }

func (r *InconclusiveRule) Apply(in *Input) (*Verdict, error) {
	rapid := 0
	for _, resp := range in.Responses {
		if resp.IsRapidGuess(in.Thresholds.RapidGuessFloorMs) {
			rapid++
		}
	}
	reason := "All responses correct but slower than expected"
	if rapid > 0 {
		reason = fmt.Sprintf("All responses correct but %d answered faster than the %dms floor",
			rapid, in.Thresholds.RapidGuessFloorMs)
	}
	return &Verdict{State: StateNeutral, Evidence: in.evidence(reason, 0)}, nil
}
