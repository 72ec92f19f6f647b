// Package cohort aggregates many completed attempts into item-health,
// pathology and fairness views. All computations are read-only over their
// input and deterministic, so reports can be regenerated at any time.
package cohort

import (
	"github.com/abhisek/diagnostica/internal/diagnosis"
	"github.com/abhisek/diagnostica/internal/evaluation"
)

// ItemOutcome is one attempt's result on one question.
type ItemOutcome struct {
	QuestionID string
	IsCorrect  bool
	RapidGuess bool
	Flagged    bool
}

// Valid reports whether the outcome counts toward item statistics.
func (o ItemOutcome) Valid() bool {
	return !o.RapidGuess && !o.Flagged
}

// AttemptRecord is the cohort view of one completed attempt.
type AttemptRecord struct {
	AttemptID    string
	StudentID    string
	OverallScore int
	Items        []ItemOutcome
	Diagnoses    []diagnosis.CompetencyDiagnosis
	Groups       map[string]string // dimension -> group
}

// NeedsIntervention reports whether any competency was diagnosed GAP or
// MISCONCEPTION.
func (a *AttemptRecord) NeedsIntervention() bool {
	for _, d := range a.Diagnoses {
		if d.State == diagnosis.StateGap || d.State == diagnosis.StateMisconception {
			return true
		}
	}
	return false
}

// RecordFromResult projects a stored result into an AttemptRecord.
func RecordFromResult(res *evaluation.DiagnosticResult, studentID string, groups map[string]string, rapidFloorMs int) AttemptRecord {
	rec := AttemptRecord{
		AttemptID:    res.AttemptID,
		StudentID:    studentID,
		OverallScore: res.OverallScore,
		Diagnoses:    res.CompetencyDiagnoses,
		Groups:       groups,
	}
	for i := range res.Responses {
		r := &res.Responses[i]
		if !r.Graded() {
			continue
		}
		rec.Items = append(rec.Items, ItemOutcome{
			QuestionID: r.QuestionID,
			IsCorrect:  r.IsCorrect,
			RapidGuess: r.IsRapidGuess(rapidFloorMs),
			Flagged:    r.Flagged(),
		})
	}
	return rec
}

// ItemStatus classifies item health.
type ItemStatus string

const (
	ItemHealthy          ItemStatus = "HEALTHY"
	ItemBroken           ItemStatus = "BROKEN"
	ItemTrivial          ItemStatus = "TRIVIAL"
	ItemInsufficientData ItemStatus = "INSUFFICIENT_DATA"
)

// ItemHealthStat carries the classical IRT-style parameters of one item.
// Parameters are nil when the cohort has no valid responses to estimate them.
type ItemHealthStat struct {
	QuestionID     string     `json:"questionId"`
	Slip           *float64   `json:"slip"`
	Guess          *float64   `json:"guess"`
	Discrimination *float64   `json:"discrimination"`
	MasterN        int        `json:"masterN"`
	NoviceN        int        `json:"noviceN"`
	Status         ItemStatus `json:"status"`
}

// MisconceptionCount is one misconception's frequency within a pathology.
type MisconceptionCount struct {
	MisconceptionID string `json:"misconceptionId"`
	Count           int    `json:"count"`
}

// Pathology is the MISCONCEPTION frequency of one competency across a cohort.
type Pathology struct {
	CompetencyID      string               `json:"competencyId"`
	Occurrences       int                  `json:"occurrences"`
	TopMisconceptions []MisconceptionCount `json:"topMisconceptions"`
}

// FairnessStatus is the four-fifths rule verdict for one dimension.
type FairnessStatus string

const (
	FairnessOptimal          FairnessStatus = "OPTIMAL"
	FairnessWarning          FairnessStatus = "WARNING"
	FairnessCritical         FairnessStatus = "CRITICAL"
	FairnessInsufficientData FairnessStatus = "INSUFFICIENT_DATA"
)

// GroupRate is one group's intervention rate within a dimension.
type GroupRate struct {
	Group         string  `json:"group"`
	Attempts      int     `json:"attempts"`
	Interventions int     `json:"interventions"`
	Rate          float64 `json:"rate"`
	Eligible      bool    `json:"eligible"`
}

// FairnessMetric is the disparate impact ratio for one protected dimension.
// Ratio is nil when fewer than two groups meet the minimum sample size.
type FairnessMetric struct {
	Dimension          string         `json:"dimension"`
	Ratio              *float64       `json:"ratio"`
	Status             FairnessStatus `json:"status"`
	Groups             []GroupRate    `json:"groups"`
	InsufficientGroups []string       `json:"insufficientGroups,omitempty"`
}

// Recommendation is a teacher-facing remediation note for a shadow node.
type Recommendation struct {
	CompetencyID string `json:"competencyId"`
	Text         string `json:"text"`
	Source       string `json:"source"`
}

// Report is the cohort-level view of one exam.
type Report struct {
	ExamID          string           `json:"examId"`
	Attempts        int              `json:"attempts"`
	Items           []ItemHealthStat `json:"items"`
	Pathologies     []Pathology      `json:"pathologies"`
	ShadowNodes     []Pathology      `json:"shadowNodes"`
	Fairness        []FairnessMetric `json:"fairness"`
	Recommendations []Recommendation `json:"recommendations,omitempty"`
	Error           string           `json:"error,omitempty"`
}

// Thresholds for cohort classification.
type Thresholds struct {
	CohortFraction        float64 `mapstructure:"cohort_fraction"`
	SlipBroken            float64 `mapstructure:"slip_broken"`
	GuessTrivial          float64 `mapstructure:"guess_trivial"`
	DiscriminationTrivial float64 `mapstructure:"discrimination_trivial"`
	MinGroupSize          int     `mapstructure:"min_group_size"`
	CriticalRatio         float64 `mapstructure:"critical_ratio"`
	WarningRatio          float64 `mapstructure:"warning_ratio"`
	ShadowNodes           int     `mapstructure:"shadow_nodes"`
}

// DefaultThresholds returns the reconstructed production thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CohortFraction:        0.3,
		SlipBroken:            0.4,
		GuessTrivial:          0.7,
		DiscriminationTrivial: 0.2,
		MinGroupSize:          10,
		CriticalRatio:         0.8,
		WarningRatio:          0.9,
		ShadowNodes:           3,
	}
}
