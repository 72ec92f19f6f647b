// Package attempt manages the lifecycle of exam attempts: start, append
// telemetry, finalize into a cached DiagnosticResult, and read it back.
package attempt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/abhisek/diagnostica/internal/content"
	"github.com/abhisek/diagnostica/internal/evaluation"
	"github.com/abhisek/diagnostica/internal/metrics"
	"github.com/abhisek/diagnostica/internal/remediation"
	"github.com/abhisek/diagnostica/internal/store"
	"github.com/abhisek/diagnostica/internal/telemetry"
)

var tracer = otel.Tracer("diagnostica.attempt")

var (
	// ErrNotFound is returned for unknown attempts, exams or results.
	ErrNotFound = store.ErrNotFound

	// ErrAttemptCompleted is returned when events arrive for a finalized attempt.
	ErrAttemptCompleted = errors.New("attempt already completed")
)

// Finalization outcomes recorded in metrics.
const (
	outcomeCompleted = "completed"
	outcomeCached    = "cached"
	outcomeFailed    = "failed"
)

// Service is safe for concurrent use.
type Service struct {
	store     *store.Store
	evaluator *evaluation.Evaluator
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates an attempt service. A nil logger disables logging.
func NewService(st *store.Store, ev *evaluation.Evaluator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     st,
		evaluator: ev,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ImportExam validates a content pack and stores it, replacing any earlier
// version of the same exam. Warnings are returned alongside a nil error.
func (s *Service) ImportExam(ctx context.Context, p *content.Pack) (content.ValidationReport, error) {
	report := p.Validate()
	if err := report.Err(); err != nil {
		return report, err
	}
	data, err := content.EncodePack(p)
	if err != nil {
		return report, err
	}
	if err := s.store.Exams().Put(ctx, store.Exam{ID: p.ExamID, Version: p.Version, Pack: data}); err != nil {
		return report, err
	}
	s.logger.Info("exam imported",
		zap.String("exam", p.ExamID),
		zap.String("version", p.Version),
		zap.Int("questions", len(p.Questions)),
		zap.Int("warnings", len(report.Warnings)))
	return report, nil
}

// Graph loads the stored pack of an exam.
func (s *Service) Graph(ctx context.Context, examID string) (*content.Graph, error) {
	return loadGraph(ctx, s.store.Exams(), examID)
}

func loadGraph(ctx context.Context, exams store.ExamRepo, examID string) (*content.Graph, error) {
	e, err := exams.Get(ctx, examID)
	if err != nil {
		return nil, err
	}
	p, err := content.ParsePack(e.Pack)
	if err != nil {
		return nil, fmt.Errorf("exam %s: %w", examID, err)
	}
	return content.NewGraph(p)
}

// Start opens a new IN_PROGRESS attempt for a known exam.
func (s *Service) Start(ctx context.Context, examID, studentID string) (*store.Attempt, error) {
	if studentID == "" {
		return nil, errors.New("student id is required")
	}
	if _, err := s.store.Exams().Get(ctx, examID); err != nil {
		return nil, err
	}
	a := store.Attempt{
		ID:        uuid.NewString(),
		ExamID:    examID,
		StudentID: studentID,
		Status:    store.AttemptInProgress,
		StartedAt: s.now(),
	}
	if err := s.store.Attempts().Create(ctx, a); err != nil {
		return nil, err
	}
	s.logger.Debug("attempt started",
		zap.String("attempt", a.ID),
		zap.String("exam", examID),
		zap.String("student", studentID))
	return &a, nil
}

// Get returns an attempt.
func (s *Service) Get(ctx context.Context, attemptID string) (*store.Attempt, error) {
	return s.store.Attempts().Get(ctx, attemptID)
}

// AppendRaw validates a JSON event batch and appends it.
func (s *Service) AppendRaw(ctx context.Context, attemptID string, raw []byte) ([]int64, error) {
	events, err := telemetry.ValidateBatch(raw)
	if err != nil {
		return nil, err
	}
	return s.AppendEvents(ctx, attemptID, events)
}

// AppendEvents appends events to an IN_PROGRESS attempt and returns their
// global sequence numbers.
func (s *Service) AppendEvents(ctx context.Context, attemptID string, events []telemetry.Event) ([]int64, error) {
	rows := make([]store.TelemetryEvent, 0, len(events))
	for _, ev := range events {
		payload, err := json.Marshal(ev.Payload)
		if err != nil {
			return nil, fmt.Errorf("encode event payload: %w", err)
		}
		rows = append(rows, store.TelemetryEvent{
			AttemptID:  attemptID,
			EventType:  string(ev.Type),
			QuestionID: ev.Payload.QuestionID,
			ClientTime: ev.Timestamp,
			Payload:    payload,
		})
	}

	var seqs []int64
	err := s.store.InTx(ctx, func(tx *store.Tx) error {
		a, err := tx.Attempts().Get(ctx, attemptID)
		if err != nil {
			return err
		}
		if a.Status != store.AttemptInProgress {
			return fmt.Errorf("attempt %s: %w", attemptID, ErrAttemptCompleted)
		}
		seqs, err = tx.Telemetry().Append(ctx, rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return seqs, nil
}

// Finalize evaluates the attempt and caches the result in one transaction.
// Finalizing a completed attempt returns the cached result unchanged. If
// evaluation fails the attempt stays IN_PROGRESS and nothing is cached.
func (s *Service) Finalize(ctx context.Context, attemptID string) (*evaluation.DiagnosticResult, error) {
	ctx, span := tracer.Start(ctx, "attempt.Finalize",
		trace.WithAttributes(attribute.String("attempt.id", attemptID)))
	defer span.End()

	var (
		res     *evaluation.DiagnosticResult
		outcome = outcomeCompleted
	)
	err := s.store.InTx(ctx, func(tx *store.Tx) error {
		a, err := tx.Attempts().Get(ctx, attemptID)
		if err != nil {
			return err
		}
		span.SetAttributes(attribute.String("exam.id", a.ExamID))

		if a.Status == store.AttemptCompleted {
			outcome = outcomeCached
			res, err = cachedResult(ctx, tx.Results(), attemptID)
			return err
		}

		g, err := loadGraph(ctx, tx.Exams(), a.ExamID)
		if err != nil {
			return err
		}
		stored, err := tx.Telemetry().List(ctx, attemptID)
		if err != nil {
			return err
		}
		events, err := decodeEvents(stored)
		if err != nil {
			return err
		}

		res, err = s.evaluator.Evaluate(ctx, evaluation.Input{
			AttemptID: attemptID,
			ExamID:    a.ExamID,
			Events:    events,
			Graph:     g,
		})
		if err != nil {
			return err
		}
		data, err := evaluation.Encode(res)
		if err != nil {
			return err
		}
		if err := tx.Results().Insert(ctx, store.Result{
			AttemptID:     attemptID,
			ExamID:        a.ExamID,
			SchemaVersion: evaluation.CurrentSchemaVersion,
			EngineVersion: res.EngineVersion,
			Data:          data,
			CreatedAt:     s.now(),
		}); err != nil {
			return err
		}
		return tx.Attempts().MarkCompleted(ctx, attemptID, s.now())
	})
	if err != nil {
		metrics.RecordFinalization(outcomeFailed)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn("finalize failed", zap.String("attempt", attemptID), zap.Error(err))
		return nil, fmt.Errorf("finalize attempt %s: %w", attemptID, err)
	}

	metrics.RecordFinalization(outcome)
	span.SetAttributes(attribute.String("finalize.outcome", outcome))
	s.logger.Info("attempt finalized",
		zap.String("attempt", attemptID),
		zap.String("outcome", outcome),
		zap.Int("score", res.OverallScore))
	return res, nil
}

// Result returns the cached result of a completed attempt.
func (s *Service) Result(ctx context.Context, attemptID string) (*evaluation.DiagnosticResult, error) {
	return cachedResult(ctx, s.store.Results(), attemptID)
}

// Remediation derives the remediation mutations for a completed attempt.
// A pack that no longer loads yields a plan without downstream locks.
func (s *Service) Remediation(ctx context.Context, attemptID string) ([]remediation.Mutation, error) {
	a, err := s.store.Attempts().Get(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	res, err := s.Result(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	g, err := s.Graph(ctx, a.ExamID)
	if err != nil {
		s.logger.Warn("remediation without content graph", zap.String("exam", a.ExamID), zap.Error(err))
		g = nil
	}
	return remediation.Plan(res, g, remediation.Options{
		RapidGuessFloorMs: s.evaluator.Config().RapidGuessFloorMs(),
	}), nil
}

func cachedResult(ctx context.Context, results store.ResultRepo, attemptID string) (*evaluation.DiagnosticResult, error) {
	row, err := results.Get(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	return evaluation.Decode(row.Data)
}

func decodeEvents(stored []store.TelemetryEvent) ([]telemetry.Event, error) {
	events := make([]telemetry.Event, 0, len(stored))
	for _, row := range stored {
		var p telemetry.Payload
		if err := json.Unmarshal(row.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode event %d: %w", row.Sequence, err)
		}
		events = append(events, telemetry.Event{
			Type:      telemetry.EventType(row.EventType),
			Payload:   p,
			Timestamp: row.ClientTime,
		})
	}
	return events, nil
}
