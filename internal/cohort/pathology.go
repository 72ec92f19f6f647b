package cohort

import (
	"sort"

	"github.com/abhisek/diagnostica/internal/diagnosis"
)

// PathologyRanking orders competencies by MISCONCEPTION count, highest
// first, ties by competency ID. Competencies with no occurrences are
// omitted.
func PathologyRanking(records []AttemptRecord) []Pathology {
	type agg struct {
		total int
		byMC  map[string]int
	}
	byComp := make(map[string]*agg)
	for _, a := range records {
		for _, d := range a.Diagnoses {
			if d.State != diagnosis.StateMisconception {
				continue
			}
			g, ok := byComp[d.CompetencyID]
			if !ok {
				g = &agg{byMC: make(map[string]int)}
				byComp[d.CompetencyID] = g
			}
			g.total++
			if d.Evidence.MisconceptionID != "" {
				g.byMC[d.Evidence.MisconceptionID]++
			}
		}
	}

	out := make([]Pathology, 0, len(byComp))
	for id, g := range byComp {
		p := Pathology{CompetencyID: id, Occurrences: g.total, TopMisconceptions: []MisconceptionCount{}}
		for mc, n := range g.byMC {
			p.TopMisconceptions = append(p.TopMisconceptions, MisconceptionCount{MisconceptionID: mc, Count: n})
		}
		sort.Slice(p.TopMisconceptions, func(i, j int) bool {
			a, b := p.TopMisconceptions[i], p.TopMisconceptions[j]
			if a.Count != b.Count {
				return a.Count > b.Count
			}
			return a.MisconceptionID < b.MisconceptionID
		})
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Occurrences != out[j].Occurrences {
			return out[i].Occurrences > out[j].Occurrences
		}
		return out[i].CompetencyID < out[j].CompetencyID
	})
	return out
}

// ShadowNodes returns the top n pathologies.
func ShadowNodes(ranking []Pathology, n int) []Pathology {
	if n > len(ranking) {
		n = len(ranking)
	}
	return append([]Pathology{}, ranking[:n]...)
}
