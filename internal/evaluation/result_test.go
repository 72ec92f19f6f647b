package evaluation

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/abhisek/diagnostica/internal/content/contenttest"
	"github.com/abhisek/diagnostica/internal/diagnosis"
)

func TestEncodeDecode_CurrentVersion(t *testing.T) {
	res, err := NewEvaluator(DefaultConfig(), nil).Evaluate(context.Background(), Input{
		AttemptID: "att-1",
		Events:    threeQuestionEvents(9000),
		Graph:     contenttest.SampleGraph(),
	})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	blob, err := Encode(res)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(blob)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(res, got); diff != "" {
		t.Errorf("decoded result mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_LegacyV1(t *testing.T) {
	blob := []byte(`{
		"engineVersion": "v1.0.0",
		"attemptId": "old",
		"examId": "fractions-diag",
		"overallScore": 50,
		"diagnoses": [{"competencyId": "frac-add", "state": "GAP", "evidence": {"reason": "1 of 2 responses incorrect", "confidenceScore": 50}}],
		"calibration": {"certaintyAverage": 66, "accuracyAverage": 50, "eceScore": 16}
	}`)
	got, err := Decode(blob)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.SchemaVersion != 1 || got.OverallScore != 50 {
		t.Errorf("unexpected header: %+v", got)
	}
	d := got.Diagnosis("frac-add")
	if d == nil || d.State != diagnosis.StateGap {
		t.Fatalf("legacy diagnoses not migrated: %+v", got.CompetencyDiagnoses)
	}
	if got.Calibration.ECEScore != 16 {
		t.Errorf("got ECE %v, want 16", got.Calibration.ECEScore)
	}
}

func TestDecode_Rejects(t *testing.T) {
	tests := []struct {
		name string
		blob string
	}{
		{"newer schema", `{"schemaVersion": 99, "engineVersion": "v1.0.0"}`},
		{"newer major engine", `{"schemaVersion": 2, "engineVersion": "v2.0.0"}`},
		{"newer minor engine", `{"schemaVersion": 2, "engineVersion": "v1.9.0"}`},
		{"invalid engine", `{"schemaVersion": 2, "engineVersion": "latest"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.blob))
			if !errors.Is(err, ErrUnsupportedSchema) {
				t.Errorf("got %v, want ErrUnsupportedSchema", err)
			}
		})
	}

	if _, err := Decode([]byte("not json")); err == nil || errors.Is(err, ErrUnsupportedSchema) {
		t.Errorf("got %v, want a decode error", err)
	}
}

func TestCompatibleEngine(t *testing.T) {
	tests := []struct {
		v    string
		want bool
	}{
		{"", true},
		{"v1.0.0", true},
		{EngineVersion, true},
		{"v0.9.0", false},
		{"v2.0.0", false},
		{"1.0.0", false},
	}
	for _, tt := range tests {
		if got := CompatibleEngine(tt.v); got != tt.want {
			t.Errorf("CompatibleEngine(%q) = %v, want %v", tt.v, got, tt.want)
		}
	}
}
