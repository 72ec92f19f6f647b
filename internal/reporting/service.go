// Package reporting builds cohort reports for an exam from cached results.
package reporting

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/abhisek/diagnostica/internal/cohort"
	"github.com/abhisek/diagnostica/internal/content"
	"github.com/abhisek/diagnostica/internal/evaluation"
	"github.com/abhisek/diagnostica/internal/metrics"
	"github.com/abhisek/diagnostica/internal/remediation"
	"github.com/abhisek/diagnostica/internal/store"
)

var tracer = otel.Tracer("diagnostica.reporting")

// GraphSource loads the content graph of an exam.
type GraphSource interface {
	Graph(ctx context.Context, examID string) (*content.Graph, error)
}

// Options configures a Service.
type Options struct {
	Thresholds        cohort.Thresholds
	RapidGuessFloorMs int
	Narrator          *remediation.Narrator // nil disables recommendations
	Logger            *zap.Logger

	// BuildTimeout bounds one shared build. It runs detached from the
	// requesting context so one caller leaving does not fail the others.
	BuildTimeout time.Duration
}

// DefaultBuildTimeout applies when Options.BuildTimeout is zero.
const DefaultBuildTimeout = 2 * time.Minute

// Service is safe for concurrent use. Concurrent requests for the same
// exam share one build.
type Service struct {
	results store.ResultRepo
	tags    store.TagRepo
	graphs  GraphSource
	opts    Options
	logger  *zap.Logger
	flight  singleflight.Group
}

// NewService creates a reporting service.
func NewService(results store.ResultRepo, tags store.TagRepo, graphs GraphSource, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.RapidGuessFloorMs <= 0 {
		opts.RapidGuessFloorMs = evaluation.DefaultConfig().Diagnosis.RapidGuessFloorMs
	}
	if opts.BuildTimeout <= 0 {
		opts.BuildTimeout = DefaultBuildTimeout
	}
	return &Service{results: results, tags: tags, graphs: graphs, opts: opts, logger: logger}
}

// Report returns the cohort report for an exam. It never fails: load or
// aggregation errors yield an empty report with Error set, as does ctx
// ending before the build finishes. The returned report may be shared with
// concurrent callers and must not be modified.
func (s *Service) Report(ctx context.Context, examID string) *cohort.Report {
	ch := s.flight.DoChan(examID, func() (any, error) {
		bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.BuildTimeout)
		defer cancel()
		return s.build(bctx, examID), nil
	})
	select {
	case res := <-ch:
		if res.Shared {
			s.logger.Debug("report build shared", zap.String("exam", examID))
		}
		return res.Val.(*cohort.Report)
	case <-ctx.Done():
		return cohort.EmptyReport(examID, fmt.Errorf("wait for report: %w", ctx.Err()))
	}
}

func (s *Service) build(ctx context.Context, examID string) *cohort.Report {
	ctx, span := tracer.Start(ctx, "reporting.Report",
		trace.WithAttributes(attribute.String("exam.id", examID)))
	defer span.End()

	start := time.Now()
	report := s.assemble(ctx, examID)

	status := "ok"
	if report.Error != "" {
		status = "error"
		span.SetStatus(codes.Error, report.Error)
		s.logger.Warn("cohort report failed", zap.String("exam", examID), zap.String("error", report.Error))
	}
	span.SetAttributes(attribute.Int("report.attempts", report.Attempts))
	metrics.RecordReport(status, time.Since(start).Seconds())
	return report
}

func (s *Service) assemble(ctx context.Context, examID string) *cohort.Report {
	rows, err := s.results.ListByExam(ctx, examID)
	if err != nil {
		return cohort.EmptyReport(examID, fmt.Errorf("load results: %w", err))
	}

	students := make([]string, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.StudentID)
	}
	groups, err := s.tags.ForStudents(ctx, students)
	if err != nil {
		return cohort.EmptyReport(examID, fmt.Errorf("load cohort tags: %w", err))
	}

	in := cohort.ReportInput{ExamID: examID}
	for _, row := range rows {
		res, err := evaluation.Decode(row.Data)
		if err != nil {
			s.logger.Warn("skipping undecodable result",
				zap.String("attempt", row.AttemptID), zap.Error(err))
			continue
		}
		in.Records = append(in.Records,
			cohort.RecordFromResult(res, row.StudentID, groups[row.StudentID], s.opts.RapidGuessFloorMs))
	}

	var g *content.Graph
	if s.graphs != nil {
		if g, err = s.graphs.Graph(ctx, examID); err != nil {
			s.logger.Debug("report without content graph", zap.String("exam", examID), zap.Error(err))
			g = nil
		}
	}
	if g != nil {
		for _, q := range g.Questions() {
			in.Questions = append(in.Questions, q.ID)
		}
	}

	report := cohort.SafeBuildReport(in, s.opts.Thresholds)
	if report.Error == "" && s.opts.Narrator != nil && len(report.ShadowNodes) > 0 {
		report.Recommendations = s.opts.Narrator.Recommend(ctx, g, report.ShadowNodes)
	}
	return report
}
