package calibration

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/abhisek/diagnostica/internal/telemetry"
)

func r(correct bool, conf telemetry.Confidence, timeMs, hes, focus int) telemetry.QuestionResponse {
	return telemetry.QuestionResponse{
		IsCorrect:  correct,
		Confidence: conf,
		Telemetry:  telemetry.Telemetry{TimeMs: timeMs, HesitationCount: hes, FocusLostCount: focus},
	}
}

func repeat(n int, resp telemetry.QuestionResponse) []telemetry.QuestionResponse {
	out := make([]telemetry.QuestionResponse, n)
	for i := range out {
		out[i] = resp
	}
	return out
}

func TestProfile_PerfectCalibration(t *testing.T) {
	cal, beh := Profile(repeat(10, r(true, telemetry.ConfidenceHigh, 5000, 0, 0)), DefaultThresholds())
	if cal.ECEScore != 0 {
		t.Errorf("got ECE %v, want 0", cal.ECEScore)
	}
	if cal.CertaintyAverage != 100 || cal.AccuracyAverage != 100 {
		t.Errorf("got certainty %v accuracy %v", cal.CertaintyAverage, cal.AccuracyAverage)
	}
	if beh.IsImpulsive || beh.IsAnxious {
		t.Errorf("unexpected behaviour flags: %+v", beh)
	}
}

func TestProfile_Calibration(t *testing.T) {
	responses := []telemetry.QuestionResponse{
		r(false, telemetry.ConfidenceHigh, 5000, 0, 0),
		r(true, telemetry.ConfidenceHigh, 5000, 0, 0),
		r(true, telemetry.ConfidenceLow, 5000, 0, 0),
		r(false, telemetry.ConfidenceNone, 5000, 0, 0),
	}
	cal, _ := Profile(responses, DefaultThresholds())

	want := Calibration{
		CertaintyAverage: 58.25,
		AccuracyAverage:  50,
		BlindSpots:       1,
		FragileKnowledge: 1,
		// HIGH |50-100|=50, LOW |100-33|=67, NONE |0-0|=0
		ECEScore: 39,
		Buckets: []BucketStat{
			{Confidence: telemetry.ConfidenceHigh, Count: 2, Certainty: 100, AccuracyPct: 50, Gap: 50},
			{Confidence: telemetry.ConfidenceLow, Count: 1, Certainty: 33, AccuracyPct: 100, Gap: 67},
			{Confidence: telemetry.ConfidenceNone, Count: 1, Certainty: 0, AccuracyPct: 0, Gap: 0},
		},
	}
	if diff := cmp.Diff(want, cal); diff != "" {
		t.Errorf("calibration mismatch (-want +got):\n%s", diff)
	}
}

func TestProfile_ECENonNegative(t *testing.T) {
	confs := telemetry.AllConfidences()
	for mask := 0; mask < 64; mask++ {
		var responses []telemetry.QuestionResponse
		for i := 0; i < 6; i++ {
			responses = append(responses, r(mask&(1<<i) != 0, confs[i%len(confs)], 4000, 0, 0))
		}
		cal, _ := Profile(responses, DefaultThresholds())
		if cal.ECEScore < 0 {
			t.Fatalf("mask %d: negative ECE %v", mask, cal.ECEScore)
		}
	}
}

func TestProfile_Impulsive(t *testing.T) {
	tests := []struct {
		name  string
		rapid int
		want  bool
	}{
		{"none", 0, false},
		{"exactly a quarter", 1, false},
		{"over a quarter", 2, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			responses := repeat(4, r(true, telemetry.ConfidenceMedium, 5000, 0, 0))
			for i := 0; i < tt.rapid; i++ {
				responses[i].Telemetry.TimeMs = 120
			}
			_, beh := Profile(responses, DefaultThresholds())
			if beh.IsImpulsive != tt.want {
				t.Errorf("got impulsive=%v, want %v (rate %v)", beh.IsImpulsive, tt.want, beh.RapidGuessRate)
			}
		})
	}
}

func TestProfile_Anxious(t *testing.T) {
	tests := []struct {
		name     string
		correct  bool
		hes, foc int
		wantFlag bool
	}{
		{"high effort, accurate", true, 3, 2, true},
		{"high effort, inaccurate", false, 3, 2, false},
		{"calm", true, 1, 0, false},
		{"hesitant but focused", true, 3, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, beh := Profile(repeat(5, r(tt.correct, telemetry.ConfidenceLow, 9000, tt.hes, tt.foc)), DefaultThresholds())
			if beh.IsAnxious != tt.wantFlag {
				t.Errorf("got anxious=%v, want %v", beh.IsAnxious, tt.wantFlag)
			}
		})
	}
}

func TestProfile_Empty(t *testing.T) {
	cal, beh := Profile(nil, DefaultThresholds())
	if diff := cmp.Diff(Calibration{}, cal); diff != "" {
		t.Errorf("unexpected calibration: %s", diff)
	}
	if beh != (BehaviorProfile{}) {
		t.Errorf("unexpected behaviour: %+v", beh)
	}
}

func TestProfile_Deterministic(t *testing.T) {
	responses := []telemetry.QuestionResponse{
		r(true, telemetry.ConfidenceMedium, 200, 4, 2),
		r(false, telemetry.ConfidenceHigh, 6000, 0, 1),
		r(true, telemetry.ConfidenceLow, 7000, 2, 0),
	}
	c1, b1 := Profile(responses, DefaultThresholds())
	c2, b2 := Profile(responses, DefaultThresholds())
	if diff := cmp.Diff(c1, c2); diff != "" || b1 != b2 {
		t.Errorf("non-deterministic profile: %s", diff)
	}
}

func TestProfile_UntimedResponsesLeaveRapidRate(t *testing.T) {
	untimed := r(false, telemetry.ConfidenceHigh, 0, 0, 0)
	untimed.Telemetry.TimeUnknown = true

	responses := append(repeat(3, untimed), r(true, telemetry.ConfidenceHigh, 100, 0, 0), r(true, telemetry.ConfidenceHigh, 5000, 0, 0))
	_, beh := Profile(responses, DefaultThresholds())
	if beh.RapidGuessRate != 0.5 {
		t.Errorf("got rapid rate %v, want 0.5 over the two timed responses", beh.RapidGuessRate)
	}
	if !beh.IsImpulsive {
		t.Error("one rapid guess out of two timed responses is impulsive")
	}

	_, beh = Profile(repeat(4, untimed), DefaultThresholds())
	if beh.RapidGuessRate != 0 || beh.IsImpulsive {
		t.Errorf("all-untimed session: %+v, want no rapid guesses", beh)
	}
}
