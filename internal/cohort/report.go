package cohort

import (
	"encoding/json"
	"fmt"
)

// ReportInput is the historical data for one exam.
type ReportInput struct {
	ExamID    string
	Records   []AttemptRecord
	Questions []string // authored question IDs, so unanswered items still appear
}

// BuildReport aggregates the records. Identical input yields a
// byte-identical JSON encoding.
func BuildReport(in ReportInput, th Thresholds) (*Report, error) {
	if th.CohortFraction <= 0 || th.CohortFraction > 0.5 {
		return nil, fmt.Errorf("cohort fraction %v out of range (0, 0.5]", th.CohortFraction)
	}
	seen := make(map[string]bool, len(in.Records))
	for _, a := range in.Records {
		if seen[a.AttemptID] {
			return nil, fmt.Errorf("duplicate attempt %q in cohort", a.AttemptID)
		}
		seen[a.AttemptID] = true
	}

	ranking := PathologyRanking(in.Records)
	r := &Report{
		ExamID:      in.ExamID,
		Attempts:    len(in.Records),
		Items:       ItemHealth(in.Records, in.Questions, th),
		Pathologies: ranking,
		ShadowNodes: ShadowNodes(ranking, th.ShadowNodes),
		Fairness:    []FairnessMetric{},
	}
	for _, dim := range Dimensions(in.Records) {
		r.Fairness = append(r.Fairness, Fairness(in.Records, dim, th))
	}
	return r, nil
}

// SafeBuildReport never fails: errors and panics yield an empty report
// with Error set.
func SafeBuildReport(in ReportInput, th Thresholds) (r *Report) {
	defer func() {
		if rec := recover(); rec != nil {
			r = EmptyReport(in.ExamID, fmt.Errorf("panic: %v", rec))
		}
	}()
	r, err := BuildReport(in, th)
	if err != nil {
		return EmptyReport(in.ExamID, err)
	}
	return r
}

// EmptyReport is the default report surfaced when aggregation fails.
func EmptyReport(examID string, err error) *Report {
	r := &Report{
		ExamID:      examID,
		Items:       []ItemHealthStat{},
		Pathologies: []Pathology{},
		ShadowNodes: []Pathology{},
		Fairness:    []FairnessMetric{},
	}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// MarshalReport renders a report as indented JSON.
func MarshalReport(r *Report) ([]byte, error) {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return b, nil
}
