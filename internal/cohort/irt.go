package cohort

import (
	"math"
	"sort"
)

// SplitCohort returns the masters (top fraction by score) and novices
// (bottom fraction). Each side holds ceil(fraction*n) attempts, at least
// one. Equal scores are ordered by attempt ID.
func SplitCohort(records []AttemptRecord, fraction float64) (masters, novices []*AttemptRecord) {
	n := len(records)
	if n == 0 {
		return nil, nil
	}
	ranked := make([]*AttemptRecord, n)
	for i := range records {
		ranked[i] = &records[i]
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].OverallScore != ranked[j].OverallScore {
			return ranked[i].OverallScore > ranked[j].OverallScore
		}
		return ranked[i].AttemptID < ranked[j].AttemptID
	})

	// epsilon keeps 0.3*10 at 3 rather than ceil(3.0000000000000004).
	k := int(math.Ceil(fraction*float64(n) - 1e-9))
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}
	return ranked[:k], ranked[n-k:]
}

type passCount struct{ valid, correct int }

func (p passCount) rate() float64 {
	return float64(p.correct) / float64(p.valid)
}

func tally(group []*AttemptRecord) map[string]passCount {
	out := make(map[string]passCount)
	for _, a := range group {
		for _, o := range a.Items {
			if !o.Valid() {
				continue
			}
			c := out[o.QuestionID]
			c.valid++
			if o.IsCorrect {
				c.correct++
			}
			out[o.QuestionID] = c
		}
	}
	return out
}

// ItemHealth computes slip, guess and discrimination for every item seen in
// the records plus any extra question IDs, sorted by question ID.
func ItemHealth(records []AttemptRecord, extraQuestions []string, th Thresholds) []ItemHealthStat {
	ids := make(map[string]bool)
	for _, a := range records {
		for _, o := range a.Items {
			ids[o.QuestionID] = true
		}
	}
	for _, q := range extraQuestions {
		ids[q] = true
	}
	sorted := make([]string, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)

	masters, novices := SplitCohort(records, th.CohortFraction)
	mt, nt := tally(masters), tally(novices)

	out := make([]ItemHealthStat, 0, len(sorted))
	for _, id := range sorted {
		out = append(out, itemStat(id, mt[id], nt[id], th))
	}
	return out
}

func itemStat(id string, m, n passCount, th Thresholds) ItemHealthStat {
	s := ItemHealthStat{QuestionID: id, MasterN: m.valid, NoviceN: n.valid}
	if m.valid > 0 {
		s.Slip = ptr(round4(1 - m.rate()))
	}
	if n.valid > 0 {
		s.Guess = ptr(round4(n.rate()))
	}
	if m.valid == 0 || n.valid == 0 {
		s.Status = ItemInsufficientData
		return s
	}
	s.Discrimination = ptr(round4(m.rate() - n.rate()))

	switch {
	case *s.Slip > th.SlipBroken:
		s.Status = ItemBroken
	case *s.Guess >= th.GuessTrivial && *s.Discrimination < th.DiscriminationTrivial:
		s.Status = ItemTrivial
	default:
		s.Status = ItemHealthy
	}
	return s
}

func ptr(v float64) *float64 { return &v }

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
