package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrResultExists is returned when a result is already cached for an
	// attempt. Results are never overwritten.
	ErrResultExists = errors.New("result already cached")

	// ErrStatusConflict is returned when an attempt is not in the expected
	// status for a transition.
	ErrStatusConflict = errors.New("attempt status conflict")
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit   int       // max results (0 = unlimited)
	After   int64     // sequence > After
	Before  int64     // sequence < Before
	From    time.Time // timestamp >= From
	To      time.Time // timestamp <= To
	Purpose string    // exact purpose match, empty for any
}

// Exam is an imported content pack.
type Exam struct {
	ID         string
	Version    string
	Pack       []byte
	ImportedAt time.Time
}

// AttemptStatus is the lifecycle state of an attempt.
type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "IN_PROGRESS"
	AttemptCompleted  AttemptStatus = "COMPLETED"
)

// Attempt is one student's sitting of an exam.
type Attempt struct {
	ID          string
	ExamID      string
	StudentID   string
	Status      AttemptStatus
	StartedAt   time.Time
	CompletedAt *time.Time
}

// TelemetryEvent is one stored client event.
type TelemetryEvent struct {
	Sequence   int64
	Timestamp  time.Time // server receive time
	AttemptID  string
	EventType  string
	QuestionID string
	ClientTime time.Time
	Payload    []byte
}

// Result is a cached, encoded DiagnosticResult.
type Result struct {
	AttemptID     string
	ExamID        string
	StudentID     string // populated by ListByExam
	SchemaVersion int
	EngineVersion string
	Data          []byte
	CreatedAt     time.Time
}

// CohortTag assigns a student to a group within one protected dimension.
type CohortTag struct {
	StudentID string
	Dimension string
	Group     string
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMRequestEvent is a stored LLM request event.
type LLMRequestEvent struct {
	Sequence  int64
	Timestamp time.Time
	LLMRequestEventData
}

// ExamRepo stores content packs.
type ExamRepo interface {
	// Put inserts or replaces an exam.
	Put(ctx context.Context, e Exam) error

	// Get returns the exam or ErrNotFound.
	Get(ctx context.Context, id string) (*Exam, error)

	// List returns every exam ordered by ID.
	List(ctx context.Context) ([]Exam, error)
}

// AttemptRepo stores attempts.
type AttemptRepo interface {
	// Create inserts a new IN_PROGRESS attempt.
	Create(ctx context.Context, a Attempt) error

	// Get returns the attempt or ErrNotFound.
	Get(ctx context.Context, id string) (*Attempt, error)

	// MarkCompleted moves an IN_PROGRESS attempt to COMPLETED. It returns
	// ErrStatusConflict if the attempt is not IN_PROGRESS.
	MarkCompleted(ctx context.Context, id string, at time.Time) error
}

// TelemetryRepo stores raw client events.
type TelemetryRepo interface {
	// Append stores events in order, assigning each a global sequence
	// number. The returned slice holds the assigned sequences.
	Append(ctx context.Context, events []TelemetryEvent) ([]int64, error)

	// List returns an attempt's events ordered by sequence.
	List(ctx context.Context, attemptID string) ([]TelemetryEvent, error)
}

// ResultRepo stores cached results. Rows are insert-only.
type ResultRepo interface {
	// Insert caches a result. It returns ErrResultExists if the attempt
	// already has one.
	Insert(ctx context.Context, r Result) error

	// Get returns the cached result or ErrNotFound.
	Get(ctx context.Context, attemptID string) (*Result, error)

	// ListByExam returns every cached result of an exam ordered by attempt
	// ID, with StudentID joined from the attempt.
	ListByExam(ctx context.Context, examID string) ([]Result, error)
}

// TagRepo stores cohort tags.
type TagRepo interface {
	// Set inserts or replaces the student's group for a dimension.
	Set(ctx context.Context, tag CohortTag) error

	// ForStudents returns student -> dimension -> group for the given IDs.
	ForStudents(ctx context.Context, studentIDs []string) (map[string]map[string]string, error)
}

// EventRepo provides access to LLM request events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMRequests returns events matching opts, newest first.
	QueryLLMRequests(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error)

	// GetLLMRequest returns the event with the given sequence or ErrNotFound.
	GetLLMRequest(ctx context.Context, sequence int64) (*LLMRequestEvent, error)
}
