package telemetry

import (
	"sort"

	"github.com/abhisek/diagnostica/internal/content"
)

// NormalizeResult is the uniform response set for one attempt.
type NormalizeResult struct {
	Responses []QuestionResponse
	Audit     []AuditFlag
}

type questionAccumulator struct {
	latest      *Event
	derivedMs   int
	untimed     bool
	answers     int
	hesitations int
	focusLosses int
}

// Normalize turns the raw telemetry log of one attempt into one response
// per answered question. The latest ANSWER_UPDATE decides the selection and
// timing; hesitation and focus-loss counts are summed over every event of
// the question. Correctness and competency always come from the pack.
// An answer without timeMs is timed from the preceding event; the
// attempt's first event has none and stays untimed.
func Normalize(events []Event, g *content.Graph) NormalizeResult {
	ordered := make([]Event, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	acc := make(map[string]*questionAccumulator)
	get := func(id string) *questionAccumulator {
		a, ok := acc[id]
		if !ok {
			a = &questionAccumulator{}
			acc[id] = a
		}
		return a
	}

	for i := range ordered {
		ev := &ordered[i]
		if ev.Payload.QuestionID == "" {
			continue
		}
		a := get(ev.Payload.QuestionID)

		switch ev.Type {
		case EventAnswerUpdate:
			a.answers++
			a.latest = ev
			a.derivedMs, a.untimed = 0, i == 0
			if i > 0 {
				a.derivedMs = int(ev.Timestamp.Sub(ordered[i-1].Timestamp).Milliseconds())
			}
			a.hesitations += ev.Payload.HesitationCount
			a.focusLosses += ev.Payload.FocusLostCount
		case EventHesitation:
			a.hesitations += eventCount(ev)
		case EventFocusLost:
			a.focusLosses += eventCount(ev)
		}
	}

	var result NormalizeResult
	for id, a := range acc {
		if a.answers == 0 {
			continue
		}
		resp := buildResponse(id, a, g)
		if resp.AuditReason != "" {
			result.Audit = append(result.Audit, AuditFlag{QuestionID: id, Reason: resp.AuditReason})
		}
		result.Responses = append(result.Responses, resp)
	}

	sortResponses(result.Responses, g)
	sort.Slice(result.Audit, func(i, j int) bool {
		return result.Audit[i].QuestionID < result.Audit[j].QuestionID
	})
	return result
}

func eventCount(ev *Event) int {
	if ev.Payload.Count > 0 {
		return ev.Payload.Count
	}
	return 1
}

func buildResponse(questionID string, a *questionAccumulator, g *content.Graph) QuestionResponse {
	p := a.latest.Payload
	resp := QuestionResponse{
		QuestionID:       questionID,
		SelectedOptionID: p.SelectedOptionID,
		Confidence:       ParseConfidence(p.Confidence),
		Telemetry: Telemetry{
			TimeMs:          a.derivedMs,
			HesitationCount: a.hesitations,
			FocusLostCount:  a.focusLosses,
			RevisitCount:    a.answers - 1,
		},
	}
	switch {
	case p.TimeMs != nil:
		resp.Telemetry.TimeMs = *p.TimeMs
	case a.untimed:
		resp.Telemetry.TimeUnknown = true
	}

	q := g.Question(questionID)
	if q == nil {
		resp.AuditReason = AuditUnknownQuestion
		return resp
	}

	resp.CompetencyID = q.CompetencyID
	resp.Telemetry.ExpectedTimeMs = q.ExpectedTimeMs()

	correct, ok := q.AnswerKey(p.SelectedOptionID)
	switch {
	case ok:
		resp.IsCorrect = correct
	case q.HasAnswerKey():
		resp.AuditReason = AuditUnknownOption
	default:
		resp.AuditReason = AuditMissingAnswerKey
	}
	return resp
}

// sortResponses orders by authored question position; questions unknown
// to the pack go last, by ID.
func sortResponses(rs []QuestionResponse, g *content.Graph) {
	sort.Slice(rs, func(i, j int) bool {
		oi, iok := g.QuestionOrder(rs[i].QuestionID)
		oj, jok := g.QuestionOrder(rs[j].QuestionID)
		switch {
		case iok && jok:
			return oi < oj
		case iok != jok:
			return iok
		default:
			return rs[i].QuestionID < rs[j].QuestionID
		}
	})
}
