package content

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// ValidationReport lists structural problems found in a pack. Errors make
// the pack unusable; warnings are tolerated because the engine must still
// finalize attempts (for example a question without an answer key).
type ValidationReport struct {
	Errors   []string
	Warnings []string
}

// Err returns a combined error when the report holds any errors.
func (r ValidationReport) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return fmt.Errorf("content pack validation failed:\n  %s", strings.Join(r.Errors, "\n  "))
}

// Validate performs all structural checks on the pack.
func (p *Pack) Validate() ValidationReport {
	var r ValidationReport
	errf := func(format string, args ...any) { r.Errors = append(r.Errors, fmt.Sprintf(format, args...)) }
	warnf := func(format string, args ...any) { r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...)) }

	if p.ExamID == "" {
		errf("examId is required")
	}
	if p.Version != "" && !semver.IsValid(p.Version) {
		errf("version %q is not a valid semantic version", p.Version)
	}

	ids := make(map[string]bool, len(p.Competencies))
	for _, c := range p.Competencies {
		if c.ID == "" {
			errf("competency with empty ID")
			continue
		}
		if ids[c.ID] {
			errf("duplicate competency ID: %q", c.ID)
		}
		ids[c.ID] = true
	}

	for _, c := range p.Competencies {
		for _, prereq := range c.Prerequisites {
			if !ids[prereq] {
				errf("competency %q references nonexistent prerequisite %q", c.ID, prereq)
			}
		}
	}

	// Cycle detection (Kahn).
	inDegree := make(map[string]int, len(p.Competencies))
	adj := make(map[string][]string)
	for _, c := range p.Competencies {
		inDegree[c.ID] = len(c.Prerequisites)
		for _, prereq := range c.Prerequisites {
			adj[prereq] = append(adj[prereq], c.ID)
		}
	}
	var queue []string
	for _, c := range p.Competencies {
		if inDegree[c.ID] == 0 {
			queue = append(queue, c.ID)
		}
	}
	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		for _, dep := range adj[id] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}
	if visited < len(p.Competencies) {
		var cycle []string
		for _, c := range p.Competencies {
			if inDegree[c.ID] > 0 {
				cycle = append(cycle, c.ID)
			}
		}
		errf("cycle detected involving competencies: %s", strings.Join(cycle, ", "))
	}

	misconceptions := make(map[string]bool, len(p.Misconceptions))
	for _, m := range p.Misconceptions {
		if misconceptions[m.ID] {
			errf("duplicate misconception ID: %q", m.ID)
		}
		misconceptions[m.ID] = true
		if !ids[m.CompetencyID] {
			errf("misconception %q references nonexistent competency %q", m.ID, m.CompetencyID)
		}
	}

	questions := make(map[string]bool, len(p.Questions))
	for _, q := range p.Questions {
		if questions[q.ID] {
			errf("duplicate question ID: %q", q.ID)
		}
		questions[q.ID] = true
		if !ids[q.CompetencyID] {
			errf("question %q references nonexistent competency %q", q.ID, q.CompetencyID)
		}
		if len(q.Options) == 0 {
			warnf("question %q has no options", q.ID)
		}
		opts := make(map[string]bool, len(q.Options))
		for _, o := range q.Options {
			if opts[o.ID] {
				errf("question %q has duplicate option ID %q", q.ID, o.ID)
			}
			opts[o.ID] = true
			if o.DiagnosesMisconceptionID == "" {
				continue
			}
			if !misconceptions[o.DiagnosesMisconceptionID] {
				errf("question %q option %q maps to nonexistent misconception %q", q.ID, o.ID, o.DiagnosesMisconceptionID)
			}
			if o.IsCorrect {
				warnf("question %q option %q is correct but maps to misconception %q", q.ID, o.ID, o.DiagnosesMisconceptionID)
			}
		}
		if len(q.Options) > 0 && !q.HasAnswerKey() {
			warnf("question %q has no correct option (missing answer key)", q.ID)
		}
		if q.ExpectedTimeSeconds < 0 {
			errf("question %q: expectedTimeSeconds must be >= 0, got %v", q.ID, q.ExpectedTimeSeconds)
		}
	}

	return r
}
