package evaluation

import (
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/mod/semver"

	"github.com/abhisek/diagnostica/internal/calibration"
	"github.com/abhisek/diagnostica/internal/diagnosis"
	"github.com/abhisek/diagnostica/internal/telemetry"
)

// EngineVersion is stamped into every result.
const EngineVersion = "v1.2.0"

// CurrentSchemaVersion is the blob layout written by Encode.
//
// Version 1 stored diagnoses under "diagnoses" and had no response
// snapshot or audit list.
const CurrentSchemaVersion = 2

// ErrUnsupportedSchema is returned when a blob was written by a newer engine.
var ErrUnsupportedSchema = errors.New("unsupported result schema")

// DiagnosticResult is the full outcome of one attempt. It is produced once
// at finalization and persisted verbatim.
type DiagnosticResult struct {
	SchemaVersion       int                             `json:"schemaVersion"`
	EngineVersion       string                          `json:"engineVersion"`
	AttemptID           string                          `json:"attemptId"`
	ExamID              string                          `json:"examId"`
	PackVersion         string                          `json:"packVersion,omitempty"`
	OverallScore        int                             `json:"overallScore"`
	CompetencyDiagnoses []diagnosis.CompetencyDiagnosis `json:"competencyDiagnoses"`
	Calibration         calibration.Calibration         `json:"calibration"`
	BehaviorProfile     calibration.BehaviorProfile     `json:"behaviorProfile"`
	Audit               []telemetry.AuditFlag           `json:"audit,omitempty"`
	Responses           []telemetry.QuestionResponse    `json:"responses"`
}

// Diagnosis returns the diagnosis for a competency, or nil.
func (r *DiagnosticResult) Diagnosis(competencyID string) *diagnosis.CompetencyDiagnosis {
	for i := range r.CompetencyDiagnoses {
		if r.CompetencyDiagnoses[i].CompetencyID == competencyID {
			return &r.CompetencyDiagnoses[i]
		}
	}
	return nil
}

// NeedsIntervention reports whether any competency was diagnosed as GAP or
// MISCONCEPTION.
func (r *DiagnosticResult) NeedsIntervention() bool {
	for _, d := range r.CompetencyDiagnoses {
		if d.State == diagnosis.StateGap || d.State == diagnosis.StateMisconception {
			return true
		}
	}
	return false
}

// Encode serialises a result at the current schema version.
func Encode(r *DiagnosticResult) ([]byte, error) {
	out := *r
	out.SchemaVersion = CurrentSchemaVersion
	if out.EngineVersion == "" {
		out.EngineVersion = EngineVersion
	}
	b, err := json.Marshal(&out)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return b, nil
}

type schemaProbe struct {
	SchemaVersion int    `json:"schemaVersion"`
	EngineVersion string `json:"engineVersion"`
}

type resultV1 struct {
	EngineVersion   string                          `json:"engineVersion"`
	AttemptID       string                          `json:"attemptId"`
	ExamID          string                          `json:"examId"`
	OverallScore    int                             `json:"overallScore"`
	Diagnoses       []diagnosis.CompetencyDiagnosis `json:"diagnoses"`
	Calibration     calibration.Calibration         `json:"calibration"`
	BehaviorProfile calibration.BehaviorProfile     `json:"behaviorProfile"`
}

// Decode parses a stored blob of any schema version up to the current one.
// Blobs without a schemaVersion are treated as version 1.
func Decode(data []byte) (*DiagnosticResult, error) {
	var probe schemaProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	if probe.SchemaVersion == 0 {
		probe.SchemaVersion = 1
	}
	if probe.SchemaVersion > CurrentSchemaVersion {
		return nil, fmt.Errorf("%w: version %d (max %d)", ErrUnsupportedSchema, probe.SchemaVersion, CurrentSchemaVersion)
	}
	if !CompatibleEngine(probe.EngineVersion) {
		return nil, fmt.Errorf("%w: engine %s", ErrUnsupportedSchema, probe.EngineVersion)
	}

	switch probe.SchemaVersion {
	case 1:
		var v1 resultV1
		if err := json.Unmarshal(data, &v1); err != nil {
			return nil, fmt.Errorf("decode v1 result: %w", err)
		}
		return &DiagnosticResult{
			SchemaVersion:       1,
			EngineVersion:       v1.EngineVersion,
			AttemptID:           v1.AttemptID,
			ExamID:              v1.ExamID,
			OverallScore:        v1.OverallScore,
			CompetencyDiagnoses: v1.Diagnoses,
			Calibration:         v1.Calibration,
			BehaviorProfile:     v1.BehaviorProfile,
		}, nil
	default:
		var r DiagnosticResult
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
		return &r, nil
	}
}

// CompatibleEngine reports whether a blob stamped with engine version v can
// be read: same major version and not newer than this engine. An empty
// version predates stamping and is accepted.
func CompatibleEngine(v string) bool {
	if v == "" {
		return true
	}
	if !semver.IsValid(v) {
		return false
	}
	return semver.Major(v) == semver.Major(EngineVersion) && semver.Compare(v, EngineVersion) <= 0
}
