package telemetry

import (
	"errors"
	"testing"
	"time"

	"github.com/abhisek/diagnostica/internal/content/contenttest"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func intPtr(v int) *int { return &v }

func answer(q, opt, conf string, at time.Duration, timeMs *int) Event {
	return Event{
		Type:      EventAnswerUpdate,
		Timestamp: t0.Add(at),
		Payload: Payload{
			QuestionID:       q,
			SelectedOptionID: opt,
			Confidence:       conf,
			TimeMs:           timeMs,
		},
	}
}

func TestNormalize_LatestAnswerWins(t *testing.T) {
	g := contenttest.SampleGraph()
	events := []Event{
		answer("q-compare-1", "a", "HIGH", 0, intPtr(5000)),
		{Type: EventHesitation, Timestamp: t0.Add(6 * time.Second), Payload: Payload{QuestionID: "q-compare-1"}},
		{Type: EventFocusLost, Timestamp: t0.Add(7 * time.Second), Payload: Payload{QuestionID: "q-compare-1", Count: 2}},
		answer("q-compare-1", "b", "low", 9*time.Second, intPtr(9000)),
	}

	res := Normalize(events, g)
	if len(res.Responses) != 1 {
		t.Fatalf("got %d responses, want 1", len(res.Responses))
	}
	r := res.Responses[0]
	if r.SelectedOptionID != "b" || r.IsCorrect {
		t.Errorf("got selection %q correct=%v, want b incorrect", r.SelectedOptionID, r.IsCorrect)
	}
	if r.Confidence != ConfidenceLow {
		t.Errorf("got confidence %s, want LOW", r.Confidence)
	}
	if r.CompetencyID != "frac-compare" {
		t.Errorf("got competency %q", r.CompetencyID)
	}
	want := Telemetry{TimeMs: 9000, ExpectedTimeMs: 30000, HesitationCount: 1, FocusLostCount: 2, RevisitCount: 1}
	if r.Telemetry != want {
		t.Errorf("got telemetry %+v, want %+v", r.Telemetry, want)
	}
	if len(res.Audit) != 0 {
		t.Errorf("unexpected audit flags: %v", res.Audit)
	}
}

func TestNormalize_OutOfOrderInput(t *testing.T) {
	g := contenttest.SampleGraph()
	events := []Event{
		answer("q-basics-1", "a", "HIGH", 10*time.Second, intPtr(4000)),
		answer("q-basics-1", "b", "HIGH", 2*time.Second, intPtr(2000)),
	}
	res := Normalize(events, g)
	if got := res.Responses[0].SelectedOptionID; got != "a" {
		t.Errorf("got %q, want the chronologically latest answer a", got)
	}
}

func TestNormalize_DerivedTiming(t *testing.T) {
	g := contenttest.SampleGraph()
	events := []Event{
		answer("q-basics-1", "a", "HIGH", 0, intPtr(1000)),
		answer("q-equiv-1", "a", "HIGH", 12*time.Second, nil),
	}
	res := Normalize(events, g)
	if got := res.Responses[1].Telemetry.TimeMs; got != 12000 {
		t.Errorf("got derived time %d, want 12000", got)
	}
}

func TestNormalize_UntimedFirstAnswer(t *testing.T) {
	g := contenttest.SampleGraph()
	events := []Event{
		answer("q-compare-1", "b", "HIGH", 0, nil),
		answer("q-basics-1", "a", "HIGH", 200*time.Millisecond, nil),
	}
	res := Normalize(events, g)

	first := res.Responses[1]
	if first.QuestionID != "q-compare-1" || !first.Telemetry.TimeUnknown || first.Telemetry.TimeMs != 0 {
		t.Errorf("first answer telemetry = %+v, want unknown time", first.Telemetry)
	}
	if first.IsRapidGuess(300) {
		t.Error("an untimed answer must not count as a rapid guess")
	}

	second := res.Responses[0]
	if second.Telemetry.TimeUnknown || second.Telemetry.TimeMs != 200 {
		t.Errorf("second answer telemetry = %+v, want derived 200ms", second.Telemetry)
	}
	if !second.IsRapidGuess(300) {
		t.Error("a derived 200ms answer is a rapid guess")
	}
}

func TestNormalize_IgnoresClientCorrectness(t *testing.T) {
	g := contenttest.SampleGraph()
	raw := []byte(`[{"event_type":"ANSWER_UPDATE","timestamp":"2026-03-01T09:00:00Z",
		"payload":{"questionId":"q-basics-1","selectedOptionId":"b","isCorrect":true,"competencyId":"frac-mixed","timeMs":3000}}]`)
	events, err := ValidateBatch(raw)
	if err != nil {
		t.Fatalf("ValidateBatch: %v", err)
	}
	res := Normalize(events, g)
	if res.Responses[0].IsCorrect {
		t.Error("client-provided isCorrect must not be trusted")
	}
	if res.Responses[0].CompetencyID != "frac-basics" {
		t.Errorf("competency %q, want the pack's frac-basics", res.Responses[0].CompetencyID)
	}
	if res.Responses[0].Confidence != ConfidenceNone {
		t.Errorf("got confidence %s, want NONE", res.Responses[0].Confidence)
	}
}

func TestNormalize_AuditFlags(t *testing.T) {
	pack := contenttest.SamplePack()
	for i := range pack.Questions[0].Options {
		pack.Questions[0].Options[i].IsCorrect = false
	}
	g := contenttest.GraphFrom(pack)

	events := []Event{
		answer("q-basics-1", "a", "HIGH", 0, intPtr(4000)),
		answer("q-equiv-1", "zz", "HIGH", time.Second, intPtr(4000)),
		{Type: EventAnswerUpdate, Timestamp: t0.Add(2 * time.Second), Payload: Payload{
			QuestionID: "q-ghost", SelectedOptionID: "a", TimeMs: intPtr(4000),
		}},
	}
	res := Normalize(events, g)

	tests := []struct {
		question string
		reason   string
	}{
		{"q-basics-1", AuditMissingAnswerKey},
		{"q-equiv-1", AuditUnknownOption},
		{"q-ghost", AuditUnknownQuestion},
	}
	if len(res.Audit) != len(tests) {
		t.Fatalf("got %d audit flags, want %d: %v", len(res.Audit), len(tests), res.Audit)
	}
	for i, tt := range tests {
		if res.Audit[i].QuestionID != tt.question || res.Audit[i].Reason != tt.reason {
			t.Errorf("audit[%d] = %+v, want %s/%s", i, res.Audit[i], tt.question, tt.reason)
		}
		r := res.Responses[i]
		if r.IsCorrect || !r.Flagged() {
			t.Errorf("response %s: correct=%v flagged=%v", r.QuestionID, r.IsCorrect, r.Flagged())
		}
	}
	if ghost := res.Responses[2]; ghost.CompetencyID != "" || ghost.Graded() {
		t.Errorf("unknown question: competency %q graded=%v, want none", ghost.CompetencyID, ghost.Graded())
	}
	if got := len(Graded(res.Responses)); got != 2 {
		t.Errorf("Graded kept %d responses, want 2", got)
	}
}

func TestNormalize_OrderFollowsPack(t *testing.T) {
	g := contenttest.SampleGraph()
	events := []Event{
		answer("q-mixed-1", "a", "HIGH", 0, intPtr(4000)),
		answer("q-zzz", "a", "HIGH", time.Second, intPtr(4000)),
		answer("q-basics-1", "a", "HIGH", 2*time.Second, intPtr(4000)),
		answer("q-aaa", "a", "HIGH", 3*time.Second, intPtr(4000)),
	}
	res := Normalize(events, g)
	want := []string{"q-basics-1", "q-mixed-1", "q-aaa", "q-zzz"}
	for i, id := range want {
		if res.Responses[i].QuestionID != id {
			t.Errorf("position %d: got %s, want %s", i, res.Responses[i].QuestionID, id)
		}
	}
}

func TestNormalize_HesitationWithoutAnswerDropped(t *testing.T) {
	g := contenttest.SampleGraph()
	events := []Event{
		{Type: EventHesitation, Timestamp: t0, Payload: Payload{QuestionID: "q-basics-1"}},
	}
	if res := Normalize(events, g); len(res.Responses) != 0 {
		t.Errorf("got %d responses, want 0", len(res.Responses))
	}
}

func TestParseConfidence(t *testing.T) {
	tests := []struct {
		in   string
		want Confidence
	}{
		{"HIGH", ConfidenceHigh},
		{" medium ", ConfidenceMedium},
		{"Low", ConfidenceLow},
		{"", ConfidenceNone},
		{"sure", ConfidenceNone},
	}
	for _, tt := range tests {
		if got := ParseConfidence(tt.in); got != tt.want {
			t.Errorf("ParseConfidence(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestValidateBatch_Rejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{`},
		{"not array", `{"event_type":"ANSWER_UPDATE"}`},
		{"bad type", `[{"event_type":"CLICK","timestamp":"2026-03-01T09:00:00Z","payload":{"questionId":"q"}}]`},
		{"missing question", `[{"event_type":"HESITATION","timestamp":"2026-03-01T09:00:00Z","payload":{}}]`},
		{"negative time", `[{"event_type":"ANSWER_UPDATE","timestamp":"2026-03-01T09:00:00Z","payload":{"questionId":"q","timeMs":-1}}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateBatch([]byte(tt.raw))
			var invalid *ErrInvalidBatch
			if !errors.As(err, &invalid) {
				t.Fatalf("got %v, want *ErrInvalidBatch", err)
			}
		})
	}
}
