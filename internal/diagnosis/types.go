package diagnosis

import (
	"github.com/abhisek/diagnostica/internal/content"
	"github.com/abhisek/diagnostica/internal/telemetry"
)

// State is the verdict for one competency within one attempt.
type State string

const (
	StateMastered      State = "MASTERED"
	StateGap           State = "GAP"
	StateMisconception State = "MISCONCEPTION"
	StateNeutral       State = "NEUTRAL"
)

// Evidence backs a diagnosis.
type Evidence struct {
	Reason          string  `json:"reason"`
	ConfidenceScore float64 `json:"confidenceScore"` // 0..100
	TimeMs          int     `json:"timeMs"`          // average over the competency's responses
	HesitationCount int     `json:"hesitationCount"` // total over the competency's responses
	MisconceptionID string  `json:"misconceptionId,omitempty"`
	QuestionID      string  `json:"questionId,omitempty"`
	Rule            string  `json:"rule,omitempty"`
	Error           string  `json:"error,omitempty"`
}

// CompetencyDiagnosis is created once per competency per completed attempt
// and never mutated afterwards.
type CompetencyDiagnosis struct {
	CompetencyID string   `json:"competencyId"`
	State        State    `json:"state"`
	Evidence     Evidence `json:"evidence"`
}

// Thresholds are the tunable cut-offs of the rule chain.
type Thresholds struct {
	RapidGuessFloorMs int     `mapstructure:"rapid_guess_floor_ms"`
	MasteryTimeFactor float64 `mapstructure:"mastery_time_factor"`
}

// DefaultThresholds returns the reconstructed production thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		RapidGuessFloorMs: 300,
		MasteryTimeFactor: 1.3,
	}
}

// Input is what a Rule sees for one competency.
type Input struct {
	Competency content.Competency
	Graph      *content.Graph
	Thresholds Thresholds

	Responses []telemetry.QuestionResponse
	Correct   []*telemetry.QuestionResponse
	Incorrect []*telemetry.QuestionResponse

	AvgTimeMs         int // over timed responses only
	AvgExpectedTimeMs int // 0 when no question declares an expected time
	Timed             int
	TotalHesitations  int
}

func newInput(c content.Competency, g *content.Graph, th Thresholds, responses []telemetry.QuestionResponse) *Input {
	in := &Input{
		Competency: c,
		Graph:      g,
		Thresholds: th,
		Responses:  responses,
	}
	var totalTime, totalExpected, withExpected int
	for i := range responses {
		r := &responses[i]
		if r.IsCorrect {
			in.Correct = append(in.Correct, r)
		} else {
			in.Incorrect = append(in.Incorrect, r)
		}
		if !r.Telemetry.TimeUnknown {
			totalTime += r.Telemetry.TimeMs
			in.Timed++
		}
		in.TotalHesitations += r.Telemetry.HesitationCount
		if r.Telemetry.ExpectedTimeMs > 0 {
			totalExpected += r.Telemetry.ExpectedTimeMs
			withExpected++
		}
	}
	if in.Timed > 0 {
		in.AvgTimeMs = totalTime / in.Timed
	}
	if withExpected > 0 {
		in.AvgExpectedTimeMs = totalExpected / withExpected
	}
	return in
}

func (in *Input) evidence(reason string, score float64) Evidence {
	return Evidence{
		Reason:          reason,
		ConfidenceScore: score,
		TimeMs:          in.AvgTimeMs,
		HesitationCount: in.TotalHesitations,
	}
}
