package evaluation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/diagnostica/internal/content/contenttest"
	"github.com/abhisek/diagnostica/internal/diagnosis"
	"github.com/abhisek/diagnostica/internal/telemetry"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func answer(q, opt string, conf telemetry.Confidence, at time.Duration, timeMs int) telemetry.Event {
	return telemetry.Event{
		Type:      telemetry.EventAnswerUpdate,
		Timestamp: t0.Add(at),
		Payload: telemetry.Payload{
			QuestionID:       q,
			SelectedOptionID: opt,
			Confidence:       string(conf),
			TimeMs:           &timeMs,
		},
	}
}

// mastered basics, gap on equivalence, misconception on comparison.
func threeQuestionEvents(compareTimeMs int) []telemetry.Event {
	return []telemetry.Event{
		answer("q-basics-1", "a", telemetry.ConfidenceHigh, 0, 12000),
		answer("q-equiv-1", "b", telemetry.ConfidenceMedium, 20*time.Second, 15000),
		answer("q-compare-1", "b", telemetry.ConfidenceHigh, 40*time.Second, compareTimeMs),
	}
}

func TestEvaluate_ThreeQuestionScenario(t *testing.T) {
	ev := NewEvaluator(DefaultConfig(), nil)
	res, err := ev.Evaluate(context.Background(), Input{
		AttemptID: "att-1",
		ExamID:    "fractions-diag",
		Events:    threeQuestionEvents(9000),
		Graph:     contenttest.SampleGraph(),
	})
	require.NoError(t, err)

	assert.Equal(t, 33, res.OverallScore)
	assert.Equal(t, CurrentSchemaVersion, res.SchemaVersion)
	assert.Equal(t, EngineVersion, res.EngineVersion)
	assert.Equal(t, "v1.0.0", res.PackVersion)
	assert.Len(t, res.Responses, 3)
	require.Len(t, res.CompetencyDiagnoses, 5)

	assert.Equal(t, diagnosis.StateMastered, res.Diagnosis("frac-basics").State)
	assert.Equal(t, diagnosis.StateGap, res.Diagnosis("frac-equiv").State)
	mc := res.Diagnosis("frac-compare")
	assert.Equal(t, diagnosis.StateMisconception, mc.State)
	assert.Equal(t, "mc-bigger-denominator", mc.Evidence.MisconceptionID)
	assert.Equal(t, diagnosis.StateNeutral, res.Diagnosis("frac-mixed").State)

	assert.True(t, res.NeedsIntervention())
	assert.Equal(t, 1, res.Calibration.BlindSpots)
}

func TestEvaluate_RapidGuessDowngrade(t *testing.T) {
	ev := NewEvaluator(DefaultConfig(), nil)
	res, err := ev.Evaluate(context.Background(), Input{
		AttemptID: "att-2",
		Events:    threeQuestionEvents(150),
		Graph:     contenttest.SampleGraph(),
	})
	require.NoError(t, err)

	d := res.Diagnosis("frac-compare")
	require.NotNil(t, d)
	assert.Equal(t, diagnosis.StateGap, d.State)
	assert.Empty(t, d.Evidence.MisconceptionID)
}

func TestEvaluate_MissingAnswerKeyStillFinalizes(t *testing.T) {
	pack := contenttest.SamplePack()
	pack.Questions[0].Options[0].IsCorrect = false
	ev := NewEvaluator(DefaultConfig(), nil)

	res, err := ev.Evaluate(context.Background(), Input{
		AttemptID: "att-3",
		Events:    threeQuestionEvents(9000),
		Graph:     contenttest.GraphFrom(pack),
	})
	require.NoError(t, err)
	require.Len(t, res.Audit, 1)
	assert.Equal(t, telemetry.AuditMissingAnswerKey, res.Audit[0].Reason)
	assert.Equal(t, 0, res.OverallScore)
	assert.Equal(t, diagnosis.StateGap, res.Diagnosis("frac-basics").State)
}

func TestEvaluate_Errors(t *testing.T) {
	ev := NewEvaluator(DefaultConfig(), nil)

	_, err := ev.Evaluate(context.Background(), Input{AttemptID: "x"})
	assert.Error(t, err)

	_, err = ev.Evaluate(context.Background(), Input{AttemptID: "x", ExamID: "other", Graph: contenttest.SampleGraph()})
	assert.ErrorContains(t, err, "does not match pack")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ev.Evaluate(ctx, Input{AttemptID: "x", Graph: contenttest.SampleGraph()})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestEvaluate_EmptyAttempt(t *testing.T) {
	ev := NewEvaluator(DefaultConfig(), nil)
	res, err := ev.Evaluate(context.Background(), Input{AttemptID: "empty", Graph: contenttest.SampleGraph()})
	require.NoError(t, err)
	assert.Equal(t, 0, res.OverallScore)
	assert.NotNil(t, res.Responses)
	for _, d := range res.CompetencyDiagnoses {
		assert.Equal(t, diagnosis.StateNeutral, d.State, d.CompetencyID)
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	ev := NewEvaluator(DefaultConfig(), nil)
	in := Input{AttemptID: "att-4", Events: threeQuestionEvents(9000), Graph: contenttest.SampleGraph()}

	r1, err := ev.Evaluate(context.Background(), in)
	require.NoError(t, err)
	r2, err := ev.Evaluate(context.Background(), in)
	require.NoError(t, err)

	b1, err := Encode(r1)
	require.NoError(t, err)
	b2, err := Encode(r2)
	require.NoError(t, err)
	assert.Equal(t, string(b1), string(b2))
}

func TestOverallScore(t *testing.T) {
	tests := []struct {
		correct, total int
		want           int
	}{
		{0, 0, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 2, 50},
		{5, 5, 100},
	}
	for _, tt := range tests {
		rs := make([]telemetry.QuestionResponse, tt.total)
		for i := 0; i < tt.correct; i++ {
			rs[i].IsCorrect = true
		}
		assert.Equal(t, tt.want, OverallScore(rs), "%d/%d", tt.correct, tt.total)
	}

	ungraded := []telemetry.QuestionResponse{
		{IsCorrect: true},
		{AuditReason: telemetry.AuditUnknownQuestion},
	}
	assert.Equal(t, 100, OverallScore(ungraded), "unknown questions are not scored")
}

func TestEvaluate_UntimedFirstAnswerIsNotARapidGuess(t *testing.T) {
	ev := NewEvaluator(DefaultConfig(), nil)
	res, err := ev.Evaluate(context.Background(), Input{
		AttemptID: "att-untimed",
		Events: []telemetry.Event{{
			Type:      telemetry.EventAnswerUpdate,
			Timestamp: t0,
			Payload: telemetry.Payload{
				QuestionID:       "q-compare-1",
				SelectedOptionID: "b",
				Confidence:       string(telemetry.ConfidenceHigh),
			},
		}},
		Graph: contenttest.SampleGraph(),
	})
	require.NoError(t, err)

	require.Len(t, res.Responses, 1)
	assert.True(t, res.Responses[0].Telemetry.TimeUnknown)

	mc := res.Diagnosis("frac-compare")
	assert.Equal(t, diagnosis.StateMisconception, mc.State)
	assert.Equal(t, "mc-bigger-denominator", mc.Evidence.MisconceptionID)
	assert.False(t, res.BehaviorProfile.IsImpulsive)
	assert.Zero(t, res.BehaviorProfile.RapidGuessRate)
}

func TestEvaluate_UnknownQuestionDoesNotAffectScoring(t *testing.T) {
	raw := []byte(`[
	  {"event_type":"ANSWER_UPDATE","timestamp":"2026-03-01T09:00:00Z",
	   "payload":{"questionId":"q-basics-1","selectedOptionId":"a","confidence":"HIGH","timeMs":12000}},
	  {"event_type":"ANSWER_UPDATE","timestamp":"2026-03-01T09:00:20Z",
	   "payload":{"questionId":"q-injected","competencyId":"frac-basics","selectedOptionId":"x","confidence":"HIGH","timeMs":9000}}
	]`)
	events, err := telemetry.ValidateBatch(raw)
	require.NoError(t, err)

	ev := NewEvaluator(DefaultConfig(), nil)
	res, err := ev.Evaluate(context.Background(), Input{
		AttemptID: "att-injected",
		Events:    events,
		Graph:     contenttest.SampleGraph(),
	})
	require.NoError(t, err)

	assert.Equal(t, 100, res.OverallScore)
	assert.Equal(t, diagnosis.StateMastered, res.Diagnosis("frac-basics").State)
	assert.InDelta(t, 100, res.Calibration.AccuracyAverage, 1e-9)
	assert.Zero(t, res.Calibration.BlindSpots)

	require.Len(t, res.Audit, 1)
	assert.Equal(t, telemetry.AuditUnknownQuestion, res.Audit[0].Reason)
	require.Len(t, res.Responses, 2, "the flagged response is kept for audit")
	assert.Empty(t, res.Responses[1].CompetencyID)
}
