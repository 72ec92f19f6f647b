package remediation

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/abhisek/diagnostica/internal/calibration"
	"github.com/abhisek/diagnostica/internal/content/contenttest"
	"github.com/abhisek/diagnostica/internal/diagnosis"
	"github.com/abhisek/diagnostica/internal/evaluation"
	"github.com/abhisek/diagnostica/internal/telemetry"
)

func response(q, comp string, correct bool, conf telemetry.Confidence, ms int) telemetry.QuestionResponse {
	return telemetry.QuestionResponse{
		QuestionID:   q,
		CompetencyID: comp,
		IsCorrect:    correct,
		Confidence:   conf,
		Telemetry:    telemetry.Telemetry{TimeMs: ms},
	}
}

func sampleResult() *evaluation.DiagnosticResult {
	return &evaluation.DiagnosticResult{
		AttemptID: "att-1",
		ExamID:    "fractions-diag",
		CompetencyDiagnoses: []diagnosis.CompetencyDiagnosis{
			{CompetencyID: "frac-basics", State: diagnosis.StateMastered},
			{CompetencyID: "frac-equiv", State: diagnosis.StateGap},
			{CompetencyID: "frac-compare", State: diagnosis.StateNeutral},
			{CompetencyID: "frac-add", State: diagnosis.StateMisconception, Evidence: diagnosis.Evidence{
				Reason:          "Adds numerators and denominators separately",
				MisconceptionID: "mc-add-across",
				QuestionID:      "q-add-1",
			}},
			{CompetencyID: "frac-mixed", State: diagnosis.StateNeutral},
		},
		Responses: []telemetry.QuestionResponse{
			response("q-basics-1", "frac-basics", true, telemetry.ConfidenceLow, 9000),
			response("q-equiv-1", "frac-equiv", false, telemetry.ConfidenceNone, 120),
			response("q-add-1", "frac-add", false, telemetry.ConfidenceHigh, 15000),
		},
		BehaviorProfile: calibration.BehaviorProfile{},
	}
}

func TestPlan(t *testing.T) {
	got := Plan(sampleResult(), contenttest.SampleGraph(), Options{
		PriorReviews: map[string]int{"frac-basics": 2},
	})

	want := []Mutation{
		{Type: MutationLockDownstream, CompetencyID: "frac-add", Reason: "prerequisite frac-equiv diagnosed GAP"},
		{Type: MutationLockDownstream, CompetencyID: "frac-compare", Reason: "prerequisite frac-equiv diagnosed GAP"},
		{Type: MutationLockDownstream, CompetencyID: "frac-mixed", Reason: "prerequisite frac-equiv diagnosed GAP"},
		{Type: MutationInjectScaffolding, CompetencyID: "frac-add", MisconceptionID: "mc-add-across", QuestionID: "q-add-1",
			Reason: "Adds numerators and denominators separately"},
		{Type: MutationScheduleReview, CompetencyID: "frac-basics", QuestionID: "q-basics-1",
			Reason: "correct answer given with low confidence", DueInDays: 7},
		{Type: MutationRetest, CompetencyID: "frac-equiv", QuestionID: "q-equiv-1", Reason: "answered in 120 ms"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Plan() mismatch (-want +got):\n%s", diff)
	}
}

func TestPlan_ImpulsiveSessionRetest(t *testing.T) {
	res := sampleResult()
	res.BehaviorProfile = calibration.BehaviorProfile{IsImpulsive: true, RapidGuessRate: 0.5}

	got := Plan(res, contenttest.SampleGraph(), Options{})
	var session []Mutation
	for _, m := range got {
		if m.Type == MutationRetest && m.CompetencyID == "" {
			session = append(session, m)
		}
	}
	if len(session) != 1 {
		t.Fatalf("got %d session retests, want 1: %+v", len(session), got)
	}
	if session[0].Reason != "impulsive session: 50% rapid guesses" {
		t.Errorf("reason = %q", session[0].Reason)
	}
}

func TestPlan_RapidGuessOnlyRetestsInconclusiveStates(t *testing.T) {
	res := sampleResult()
	// Rapid answer inside a MISCONCEPTION competency does not trigger a retest.
	res.Responses = []telemetry.QuestionResponse{
		response("q-add-1", "frac-add", false, telemetry.ConfidenceNone, 50),
	}
	for _, m := range Plan(res, contenttest.SampleGraph(), Options{}) {
		if m.Type == MutationRetest {
			t.Errorf("unexpected retest %+v", m)
		}
	}
}

func TestPlan_Deduplicated(t *testing.T) {
	res := sampleResult()
	res.Responses = append(res.Responses,
		response("q-basics-2", "frac-basics", true, telemetry.ConfidenceLow, 8000),
	)
	got := Plan(res, contenttest.SampleGraph(), Options{})

	seen := make(map[string]int)
	for _, m := range got {
		seen[string(m.Type)+"|"+m.CompetencyID+"|"+m.MisconceptionID]++
	}
	for k, n := range seen {
		if n > 1 {
			t.Errorf("mutation %s appears %d times", k, n)
		}
	}
}

func TestPlan_Deterministic(t *testing.T) {
	g := contenttest.SampleGraph()
	a := Plan(sampleResult(), g, Options{})
	b := Plan(sampleResult(), g, Options{})
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("plans differ:\n%s", diff)
	}
}

func TestPlan_NilGraphSkipsLocks(t *testing.T) {
	for _, m := range Plan(sampleResult(), nil, Options{}) {
		if m.Type == MutationLockDownstream {
			t.Errorf("unexpected lock without graph: %+v", m)
		}
	}
}

func TestReviewIntervalDays(t *testing.T) {
	tests := []struct {
		prior int
		want  int
	}{
		{-1, 1},
		{0, 1},
		{1, 3},
		{2, 7},
		{3, 14},
		{4, 30},
		{5, 60},
		{6, GraduatedIntervalDays},
		{20, GraduatedIntervalDays},
	}
	for _, tt := range tests {
		if got := ReviewIntervalDays(tt.prior); got != tt.want {
			t.Errorf("ReviewIntervalDays(%d) = %d, want %d", tt.prior, got, tt.want)
		}
	}
}
