package telemetry

import (
	"strings"
	"time"
)

// EventType identifies a client-side telemetry event.
type EventType string

const (
	EventAnswerUpdate EventType = "ANSWER_UPDATE"
	EventHesitation   EventType = "HESITATION"
	EventFocusLost    EventType = "FOCUS_LOST"
)

// Payload carries the event-specific fields. Correctness and competency
// flags sent by the client are not decoded.
type Payload struct {
	QuestionID       string `json:"questionId"`
	SelectedOptionID string `json:"selectedOptionId,omitempty"`
	Confidence       string `json:"confidence,omitempty"`
	TimeMs           *int   `json:"timeMs,omitempty"`
	Count            int    `json:"count,omitempty"`
	HesitationCount  int    `json:"hesitationCount,omitempty"`
	FocusLostCount   int    `json:"focusLostCount,omitempty"`
}

// Event is one append-only telemetry log entry.
type Event struct {
	Type      EventType `json:"event_type"`
	Payload   Payload   `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// Confidence is the learner's self-reported certainty.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
	ConfidenceNone   Confidence = "NONE"
)

// AllConfidences returns the buckets in descending certainty.
func AllConfidences() []Confidence {
	return []Confidence{ConfidenceHigh, ConfidenceMedium, ConfidenceLow, ConfidenceNone}
}

// ParseConfidence maps free-form client input onto a bucket; anything
// unrecognised is NONE.
func ParseConfidence(s string) Confidence {
	switch Confidence(strings.ToUpper(strings.TrimSpace(s))) {
	case ConfidenceHigh:
		return ConfidenceHigh
	case ConfidenceMedium:
		return ConfidenceMedium
	case ConfidenceLow:
		return ConfidenceLow
	default:
		return ConfidenceNone
	}
}

// Certainty returns the bucket's certainty score on a 0..100 scale.
func (c Confidence) Certainty() float64 {
	switch c {
	case ConfidenceHigh:
		return 100
	case ConfidenceMedium:
		return 66
	case ConfidenceLow:
		return 33
	default:
		return 0
	}
}

// Rank orders buckets for tie-breaking: HIGH > MEDIUM > LOW > NONE.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	default:
		return 0
	}
}

// Telemetry is the per-question behavioural signal.
type Telemetry struct {
	TimeMs          int `json:"timeMs"`
	ExpectedTimeMs  int `json:"expectedTimeMs"`
	HesitationCount int `json:"hesitationCount"`
	FocusLostCount  int `json:"focusLostCount"`
	RevisitCount    int `json:"revisitCount"`

	// TimeUnknown is set when the client sent no timeMs and no earlier
	// event bounds the answer. TimeMs is 0 and carries no meaning then.
	TimeUnknown bool `json:"timeUnknown,omitempty"`
}

// Audit reasons attached to responses that could not be graded normally.
const (
	AuditMissingAnswerKey = "missing-answer-key"
	AuditUnknownQuestion  = "unknown-question"
	AuditUnknownOption    = "unknown-option"
)

// QuestionResponse is one learner answer to one question in one attempt.
// Immutable once a diagnosis has been derived from it.
type QuestionResponse struct {
	QuestionID       string     `json:"questionId"`
	CompetencyID     string     `json:"competencyId"`
	SelectedOptionID string     `json:"selectedOptionId"`
	IsCorrect        bool       `json:"isCorrect"`
	Confidence       Confidence `json:"confidence"`
	Telemetry        Telemetry  `json:"telemetry"`
	AuditReason      string     `json:"auditReason,omitempty"`
}

// IsRapidGuess reports whether the answer came in under the plausible
// reading floor. Untimed answers are never rapid guesses.
func (r *QuestionResponse) IsRapidGuess(floorMs int) bool {
	return !r.Telemetry.TimeUnknown && r.Telemetry.TimeMs < floorMs
}

// Graded reports whether the question belongs to the pack. Ungraded
// responses stay in the result for audit but feed no score or statistic.
func (r *QuestionResponse) Graded() bool {
	return r.AuditReason != AuditUnknownQuestion
}

// Graded returns the responses whose question belongs to the pack.
func Graded(rs []QuestionResponse) []QuestionResponse {
	out := make([]QuestionResponse, 0, len(rs))
	for _, r := range rs {
		if r.Graded() {
			out = append(out, r)
		}
	}
	return out
}

// Flagged reports whether the response carries an audit flag.
func (r *QuestionResponse) Flagged() bool {
	return r.AuditReason != ""
}

// AuditFlag records a response that was graded without a usable answer key.
type AuditFlag struct {
	QuestionID string `json:"questionId"`
	Reason     string `json:"reason"`
}
