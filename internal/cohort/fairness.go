package cohort

import "sort"

// Dimensions returns every protected dimension tagged on any record, sorted.
func Dimensions(records []AttemptRecord) []string {
	seen := make(map[string]bool)
	for _, a := range records {
		for dim := range a.Groups {
			seen[dim] = true
		}
	}
	out := make([]string, 0, len(seen))
	for dim := range seen {
		out = append(out, dim)
	}
	sort.Strings(out)
	return out
}

// Fairness computes the disparate impact ratio of intervention rates for
// one dimension. Records without a tag for the dimension are ignored;
// dimensions are never blended.
func Fairness(records []AttemptRecord, dimension string, th Thresholds) FairnessMetric {
	type counts struct{ attempts, interventions int }
	byGroup := make(map[string]*counts)
	for i := range records {
		g, ok := records[i].Groups[dimension]
		if !ok || g == "" {
			continue
		}
		c, ok := byGroup[g]
		if !ok {
			c = &counts{}
			byGroup[g] = c
		}
		c.attempts++
		if records[i].NeedsIntervention() {
			c.interventions++
		}
	}

	m := FairnessMetric{Dimension: dimension, Groups: []GroupRate{}}
	names := make([]string, 0, len(byGroup))
	for g := range byGroup {
		names = append(names, g)
	}
	sort.Strings(names)

	var eligible []float64
	for _, g := range names {
		c := byGroup[g]
		gr := GroupRate{
			Group:         g,
			Attempts:      c.attempts,
			Interventions: c.interventions,
			Rate:          round4(float64(c.interventions) / float64(c.attempts)),
			Eligible:      c.attempts >= th.MinGroupSize,
		}
		m.Groups = append(m.Groups, gr)
		if gr.Eligible {
			eligible = append(eligible, float64(c.interventions)/float64(c.attempts))
		} else {
			m.InsufficientGroups = append(m.InsufficientGroups, g)
		}
	}

	if len(eligible) < 2 {
		m.Status = FairnessInsufficientData
		return m
	}
	ratio := DisparateImpactRatio(eligible)
	m.Ratio = &ratio
	switch {
	case ratio < th.CriticalRatio:
		m.Status = FairnessCritical
	case ratio < th.WarningRatio:
		m.Status = FairnessWarning
	default:
		m.Status = FairnessOptimal
	}
	return m
}

// DisparateImpactRatio is min(rate)/max(rate), or 1 when every rate is 0.
// The result is in [0,1] and independent of group order.
func DisparateImpactRatio(rates []float64) float64 {
	if len(rates) == 0 {
		return 1
	}
	lo, hi := rates[0], rates[0]
	for _, r := range rates[1:] {
		lo = min(lo, r)
		hi = max(hi, r)
	}
	if hi == 0 {
		return 1
	}
	return round4(lo / hi)
}
