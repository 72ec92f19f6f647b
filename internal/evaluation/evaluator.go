// Package evaluation runs one attempt through the full pipeline:
// normalization, per-competency diagnosis, calibration profiling and
// scoring. It produces a complete DiagnosticResult or an error, never a
// partial result.
package evaluation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/diagnostica/internal/calibration"
	"github.com/abhisek/diagnostica/internal/content"
	"github.com/abhisek/diagnostica/internal/diagnosis"
	"github.com/abhisek/diagnostica/internal/metrics"
	"github.com/abhisek/diagnostica/internal/telemetry"
)

// Config holds the engine thresholds.
type Config struct {
	Diagnosis   diagnosis.Thresholds   `mapstructure:"diagnosis"`
	Calibration calibration.Thresholds `mapstructure:"calibration"`
}

// Normalized returns c with the calibration floor taken from diagnosis, so
// every stage agrees on what a rapid guess is.
func (c Config) Normalized() Config {
	c.Calibration.RapidGuessFloorMs = c.Diagnosis.RapidGuessFloorMs
	return c
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		Diagnosis:   diagnosis.DefaultThresholds(),
		Calibration: calibration.DefaultThresholds(),
	}
}

// Input is one attempt to evaluate.
type Input struct {
	AttemptID string
	ExamID    string
	Events    []telemetry.Event
	Graph     *content.Graph
}

// Evaluator is safe for concurrent use.
type Evaluator struct {
	cfg    Config
	logger *zap.Logger
}

// NewEvaluator creates an evaluator. A nil logger disables logging.
func NewEvaluator(cfg Config, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{cfg: cfg.Normalized(), logger: logger}
}

// Evaluate computes the diagnostic result for one attempt.
func (ev *Evaluator) Evaluate(ctx context.Context, in Input) (res *DiagnosticResult, err error) {
	if in.Graph == nil {
		return nil, errors.New("evaluate: content graph is required")
	}
	if in.ExamID != "" && in.ExamID != in.Graph.ExamID() {
		return nil, fmt.Errorf("evaluate: attempt exam %q does not match pack %q", in.ExamID, in.Graph.ExamID())
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			res, err = nil, fmt.Errorf("evaluate attempt %s: panic: %v", in.AttemptID, rec)
		}
		if err == nil {
			metrics.RecordEvaluation(time.Since(start).Seconds())
		}
	}()

	norm := telemetry.Normalize(in.Events, in.Graph)
	for _, a := range norm.Audit {
		metrics.RecordAuditFlag(a.Reason)
		ev.logger.Warn("response flagged for audit",
			zap.String("attempt", in.AttemptID),
			zap.String("question", a.QuestionID),
			zap.String("reason", a.Reason))
	}

	engine := diagnosis.NewEngine(in.Graph,
		diagnosis.WithThresholds(ev.cfg.Diagnosis),
		diagnosis.WithLogger(ev.logger.With(zap.String("attempt", in.AttemptID))))
	graded := telemetry.Graded(norm.Responses)
	diagnoses := engine.DiagnoseAll(graded)
	for _, d := range diagnoses {
		metrics.RecordDiagnosis(string(d.State))
	}

	cal, beh := calibration.Profile(graded, ev.cfg.Calibration)

	responses := norm.Responses
	if responses == nil {
		responses = []telemetry.QuestionResponse{}
	}
	res = &DiagnosticResult{
		SchemaVersion:       CurrentSchemaVersion,
		EngineVersion:       EngineVersion,
		AttemptID:           in.AttemptID,
		ExamID:              in.Graph.ExamID(),
		PackVersion:         in.Graph.Pack().Version,
		OverallScore:        OverallScore(graded),
		CompetencyDiagnoses: diagnoses,
		Calibration:         cal,
		BehaviorProfile:     beh,
		Audit:               norm.Audit,
		Responses:           responses,
	}

	ev.logger.Debug("attempt evaluated",
		zap.String("attempt", in.AttemptID),
		zap.Int("responses", len(norm.Responses)),
		zap.Int("score", res.OverallScore),
		zap.Duration("elapsed", time.Since(start)))
	return res, nil
}

// OverallScore is the rounded percentage of correct responses among those
// whose question belongs to the pack.
func OverallScore(responses []telemetry.QuestionResponse) int {
	var graded, correct int
	for _, r := range responses {
		if !r.Graded() {
			continue
		}
		graded++
		if r.IsCorrect {
			correct++
		}
	}
	if graded == 0 {
		return 0
	}
	return int(math.Round(100 * float64(correct) / float64(graded)))
}

// Config returns the thresholds the evaluator was built with.
func (ev *Evaluator) Config() Config { return ev.cfg }

// RapidGuessFloorMs is the floor shared by diagnosis, calibration and
// remediation planning.
func (c Config) RapidGuessFloorMs() int { return c.Diagnosis.RapidGuessFloorMs }
