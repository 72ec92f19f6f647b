package diagnosis

import "fmt"

// MasteredRule accepts a competency when every response is correct, none is
// a rapid guess, and the average time stays within MasteryTimeFactor of the
// expected time. The timing check is skipped when no expected time or no
// response time is known, at a lower confidence score.
type MasteredRule struct{}

func (r *MasteredRule) Name() string { return "mastered" }

func (r *MasteredRule) Apply(in *Input) (*Verdict, error) {
	if len(in.Incorrect) > 0 {
		return nil, nil
	}
	for _, resp := range in.Correct {
		if resp.IsRapidGuess(in.Thresholds.RapidGuessFloorMs) {
			return nil, nil
		}
	}

	if in.AvgExpectedTimeMs == 0 || in.Timed == 0 {
		return &Verdict{
			State:    StateMastered,
			Evidence: in.evidence(fmt.Sprintf("All %d responses correct", len(in.Correct)), 75),
		}, nil
	}

	limit := in.Thresholds.MasteryTimeFactor * float64(in.AvgExpectedTimeMs)
	if float64(in.AvgTimeMs) > limit {
		return nil, nil
	}
	return &Verdict{
		State: StateMastered,
		Evidence: in.evidence(fmt.Sprintf("All %d responses correct within %.1fs average (expected %.1fs)",
			len(in.Correct), float64(in.AvgTimeMs)/1000, float64(in.AvgExpectedTimeMs)/1000), 100),
	}, nil
}
