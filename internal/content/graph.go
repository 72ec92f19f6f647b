package content

import (
	"fmt"
	"slices"
	"sort"
)

// Graph is a read-only index over a Pack: the competency DAG, the
// misconception lookup table and the question bank.
type Graph struct {
	pack           *Pack
	byID           map[string]*Competency
	dependents     map[string][]string
	topoOrder      []string
	topoIndex      map[string]int
	misconceptions map[string]*Misconception
	byCompetency   map[string][]string
	questions      map[string]*QuestionDefinition
	questionIndex  map[string]int
}

// NewGraph validates the pack structure and builds all indices. Warnings
// from Validate do not prevent construction; errors do.
func NewGraph(p *Pack) (*Graph, error) {
	if err := p.Validate().Err(); err != nil {
		return nil, err
	}
	return buildGraph(p), nil
}

// buildGraph constructs the indices including topological order
// (Kahn's algorithm, lexically ordered for determinism).
func buildGraph(p *Pack) *Graph {
	g := &Graph{
		pack:           p,
		byID:           make(map[string]*Competency, len(p.Competencies)),
		dependents:     make(map[string][]string),
		topoIndex:      make(map[string]int, len(p.Competencies)),
		misconceptions: make(map[string]*Misconception, len(p.Misconceptions)),
		byCompetency:   make(map[string][]string),
		questions:      make(map[string]*QuestionDefinition, len(p.Questions)),
		questionIndex:  make(map[string]int, len(p.Questions)),
	}

	for i := range p.Competencies {
		g.byID[p.Competencies[i].ID] = &p.Competencies[i]
	}
	for i := range p.Competencies {
		for _, prereq := range p.Competencies[i].Prerequisites {
			g.dependents[prereq] = append(g.dependents[prereq], p.Competencies[i].ID)
		}
	}
	for id := range g.dependents {
		sort.Strings(g.dependents[id])
	}

	inDegree := make(map[string]int, len(p.Competencies))
	for _, c := range p.Competencies {
		inDegree[c.ID] = len(c.Prerequisites)
	}
	var queue []string
	for id, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		g.topoIndex[id] = len(g.topoOrder)
		g.topoOrder = append(g.topoOrder, id)
		for _, dep := range g.dependents[id] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	for i := range p.Misconceptions {
		m := &p.Misconceptions[i]
		g.misconceptions[m.ID] = m
		g.byCompetency[m.CompetencyID] = append(g.byCompetency[m.CompetencyID], m.ID)
	}
	for i := range p.Questions {
		q := &p.Questions[i]
		g.questions[q.ID] = q
		g.questionIndex[q.ID] = i
	}
	return g
}

// Pack returns the underlying pack.
func (g *Graph) Pack() *Pack { return g.pack }

// ExamID returns the exam this graph was built for.
func (g *Graph) ExamID() string { return g.pack.ExamID }

// Competency returns a competency by ID.
func (g *Graph) Competency(id string) (Competency, error) {
	c, ok := g.byID[id]
	if !ok {
		return Competency{}, fmt.Errorf("competency not found: %q", id)
	}
	return *c, nil
}

// Competencies returns all competencies in topological order.
func (g *Graph) Competencies() []Competency {
	out := make([]Competency, 0, len(g.topoOrder))
	for _, id := range g.topoOrder {
		out = append(out, *g.byID[id])
	}
	return out
}

// TopologicalOrder returns competency IDs with prerequisites first.
func (g *Graph) TopologicalOrder() []string {
	return slices.Clone(g.topoOrder)
}

// Prerequisites returns the direct prerequisites of a competency.
func (g *Graph) Prerequisites(id string) []string {
	c, ok := g.byID[id]
	if !ok {
		return nil
	}
	return slices.Clone(c.Prerequisites)
}

// Dependents returns competencies that directly list id as a prerequisite.
func (g *Graph) Dependents(id string) []string {
	return slices.Clone(g.dependents[id])
}

// Downstream returns every competency transitively depending on id,
// in topological order.
func (g *Graph) Downstream(id string) []string {
	seen := make(map[string]bool)
	stack := slices.Clone(g.dependents[id])
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		stack = append(stack, g.dependents[cur]...)
	}
	out := make([]string, 0, len(seen))
	for dep := range seen {
		out = append(out, dep)
	}
	sort.Slice(out, func(i, j int) bool {
		return g.topoIndex[out[i]] < g.topoIndex[out[j]]
	})
	return out
}

// Misconception returns a misconception by ID, or nil if not found.
func (g *Graph) Misconception(id string) *Misconception {
	return g.misconceptions[id]
}

// MisconceptionsFor returns the misconception IDs owned by a competency.
func (g *Graph) MisconceptionsFor(competencyID string) []string {
	return slices.Clone(g.byCompetency[competencyID])
}

// BelongsTo reports whether misconceptionID is one of competencyID's misconceptions.
func (g *Graph) BelongsTo(misconceptionID, competencyID string) bool {
	m := g.misconceptions[misconceptionID]
	return m != nil && m.CompetencyID == competencyID
}

// Question returns a question definition by ID, or nil.
func (g *Graph) Question(id string) *QuestionDefinition {
	return g.questions[id]
}

// Questions returns the question bank in authored order.
func (g *Graph) Questions() []QuestionDefinition {
	return slices.Clone(g.pack.Questions)
}

// QuestionOrder returns the authored position of a question and whether it is known.
func (g *Graph) QuestionOrder(id string) (int, bool) {
	i, ok := g.questionIndex[id]
	return i, ok
}

// AssessedCompetencies returns the IDs of competencies with at least one
// question, in topological order.
func (g *Graph) AssessedCompetencies() []string {
	has := make(map[string]bool)
	for _, q := range g.pack.Questions {
		has[q.CompetencyID] = true
	}
	var out []string
	for _, id := range g.topoOrder {
		if has[id] {
			out = append(out, id)
		}
	}
	return out
}
