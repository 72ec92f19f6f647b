// Package contenttest provides a small fractions content pack for tests.
package contenttest

import "github.com/abhisek/diagnostica/internal/content"

// SamplePack returns a fresh fractions pack. Callers may mutate it.
func SamplePack() *content.Pack {
	return &content.Pack{
		ExamID:  "fractions-diag",
		Version: "v1.0.0",
		Title:   "Fractions diagnostic",
		Competencies: []content.Competency{
			{ID: "frac-basics", Name: "Fraction basics", Strand: "fractions"},
			{ID: "frac-equiv", Name: "Equivalent fractions", Strand: "fractions", Prerequisites: []string{"frac-basics"}},
			{ID: "frac-compare", Name: "Comparing fractions", Strand: "fractions", Prerequisites: []string{"frac-equiv"}},
			{ID: "frac-add", Name: "Adding fractions", Strand: "fractions", Prerequisites: []string{"frac-equiv"}},
			{ID: "frac-mixed", Name: "Mixed numbers", Strand: "fractions", Prerequisites: []string{"frac-add"}},
		},
		Misconceptions: []content.Misconception{
			{ID: "mc-bigger-denominator", CompetencyID: "frac-compare", Label: "Bigger denominator",
				Description: "Believes a larger denominator means a larger fraction"},
			{ID: "mc-whole-number-bias", CompetencyID: "frac-compare", Label: "Whole-number bias",
				Description: "Compares numerators only and ignores denominators"},
			{ID: "mc-add-across", CompetencyID: "frac-add", Label: "Add across",
				Description: "Adds numerators and denominators separately"},
		},
		Questions: []content.QuestionDefinition{
			{ID: "q-basics-1", CompetencyID: "frac-basics", ExpectedTimeSeconds: 20, Options: []content.Option{
				{ID: "a", IsCorrect: true}, {ID: "b"},
			}},
			{ID: "q-equiv-1", CompetencyID: "frac-equiv", ExpectedTimeSeconds: 30, Options: []content.Option{
				{ID: "a", IsCorrect: true}, {ID: "b"}, {ID: "c"},
			}},
			{ID: "q-compare-1", CompetencyID: "frac-compare", ExpectedTimeSeconds: 30, Options: []content.Option{
				{ID: "a", IsCorrect: true},
				{ID: "b", DiagnosesMisconceptionID: "mc-bigger-denominator"},
				{ID: "c", DiagnosesMisconceptionID: "mc-whole-number-bias"},
			}},
			{ID: "q-compare-2", CompetencyID: "frac-compare", ExpectedTimeSeconds: 30, Options: []content.Option{
				{ID: "a", IsCorrect: true},
				{ID: "b", DiagnosesMisconceptionID: "mc-whole-number-bias"},
			}},
			{ID: "q-add-1", CompetencyID: "frac-add", ExpectedTimeSeconds: 40, Options: []content.Option{
				{ID: "a", IsCorrect: true},
				{ID: "b", DiagnosesMisconceptionID: "mc-add-across"},
				{ID: "c"},
			}},
			{ID: "q-mixed-1", CompetencyID: "frac-mixed", ExpectedTimeSeconds: 45, Options: []content.Option{
				{ID: "a", IsCorrect: true}, {ID: "b"},
			}},
		},
	}
}

// SampleGraph builds the graph for SamplePack and panics on failure.
func SampleGraph() *content.Graph {
	return GraphFrom(SamplePack())
}

// GraphFrom builds a graph for a (possibly modified) pack and panics on failure.
func GraphFrom(p *content.Pack) *content.Graph {
	g, err := content.NewGraph(p)
	if err != nil {
		panic(err)
	}
	return g
}
