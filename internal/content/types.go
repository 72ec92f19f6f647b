package content

// Competency is a single node in an exam's competency graph.
type Competency struct {
	ID            string   `yaml:"id" json:"id"`
	Name          string   `yaml:"name" json:"name"`
	Description   string   `yaml:"description,omitempty" json:"description,omitempty"`
	Strand        string   `yaml:"strand,omitempty" json:"strand,omitempty"`
	Prerequisites []string `yaml:"prerequisites,omitempty" json:"prerequisites,omitempty"`
}

// Misconception is a specific false belief that one or more trap options
// are designed to surface. Options reference it by ID only.
type Misconception struct {
	ID           string `yaml:"id" json:"id"`
	CompetencyID string `yaml:"competencyId" json:"competencyId"`
	Label        string `yaml:"label" json:"label"`
	Description  string `yaml:"description" json:"description"`
}

// Option is one selectable answer of a question.
type Option struct {
	ID        string `yaml:"id" json:"id"`
	Text      string `yaml:"text,omitempty" json:"text,omitempty"`
	IsCorrect bool   `yaml:"isCorrect,omitempty" json:"isCorrect,omitempty"`

	// DiagnosesMisconceptionID is empty for plain distractors.
	DiagnosesMisconceptionID string `yaml:"diagnosesMisconceptionId,omitempty" json:"diagnosesMisconceptionId,omitempty"`
}

// QuestionDefinition is an authored question with its answer key.
type QuestionDefinition struct {
	ID                  string   `yaml:"id" json:"id"`
	CompetencyID        string   `yaml:"competencyId" json:"competencyId"`
	Prompt              string   `yaml:"prompt,omitempty" json:"prompt,omitempty"`
	Options             []Option `yaml:"options" json:"options"`
	ExpectedTimeSeconds float64  `yaml:"expectedTimeSeconds,omitempty" json:"expectedTimeSeconds,omitempty"`
}

// ExpectedTimeMs returns the authored expected answer time in milliseconds.
func (q *QuestionDefinition) ExpectedTimeMs() int {
	return int(q.ExpectedTimeSeconds * 1000)
}

// Option returns the option with the given ID, or nil.
func (q *QuestionDefinition) Option(id string) *Option {
	for i := range q.Options {
		if q.Options[i].ID == id {
			return &q.Options[i]
		}
	}
	return nil
}

// HasAnswerKey reports whether at least one option is marked correct.
func (q *QuestionDefinition) HasAnswerKey() bool {
	for _, o := range q.Options {
		if o.IsCorrect {
			return true
		}
	}
	return false
}

// AnswerKey grades a selected option against the key. ok is false when the
// option is unknown or the question has no correct option at all.
func (q *QuestionDefinition) AnswerKey(optionID string) (correct bool, ok bool) {
	if !q.HasAnswerKey() {
		return false, false
	}
	o := q.Option(optionID)
	if o == nil {
		return false, false
	}
	return o.IsCorrect, true
}

// Pack is the authored content for one exam.
type Pack struct {
	ExamID         string               `yaml:"examId" json:"examId"`
	Version        string               `yaml:"version,omitempty" json:"version,omitempty"`
	Title          string               `yaml:"title,omitempty" json:"title,omitempty"`
	Competencies   []Competency         `yaml:"competencies" json:"competencies"`
	Misconceptions []Misconception      `yaml:"misconceptions,omitempty" json:"misconceptions,omitempty"`
	Questions      []QuestionDefinition `yaml:"questions" json:"questions"`
}
