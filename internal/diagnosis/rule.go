package diagnosis

// Verdict is a rule's conclusion for one competency.
type Verdict struct {
	State    State
	Evidence Evidence
}

// Rule is one step of the diagnosis chain.
// Returns (nil, nil) when the rule doesn't apply.
type Rule interface {
	Name() string
	Apply(in *Input) (*Verdict, error)
}

// DefaultRules returns rules in priority order. Mastery is checked before
// any incorrect-answer rule, and misconception before the generic gap.
func DefaultRules() []Rule {
	return []Rule{
		&NoEvidenceRule{},
		&MasteredRule{},
		&MisconceptionRule{},
		&GapRule{},
		&InconclusiveRule{},
	}
}

// RunRules executes the chain and returns the first match.
func RunRules(rules []Rule, in *Input) (*Verdict, error) {
	for _, r := range rules {
		v, err := r.Apply(in)
		if err != nil {
			return nil, &RuleError{Rule: r.Name(), Err: err}
		}
		if v != nil {
			v.Evidence.Rule = r.Name()
			return v, nil
		}
	}
	return nil, nil
}

// RuleError wraps a failure raised inside a rule.
type RuleError struct {
	Rule string
	Err  error
}

func (e *RuleError) Error() string {
	return "rule " + e.Rule + ": " + e.Err.Error()
}

func (e *RuleError) Unwrap() error {
	return e.Err
}
