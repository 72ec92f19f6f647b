package telemetry

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const batchSchemaURL = "schema://telemetry-batch.json"

var batchSchema = map[string]any{
	"type": "array",
	"items": map[string]any{
		"type":     "object",
		"required": []any{"event_type", "payload", "timestamp"},
		"properties": map[string]any{
			"event_type": map[string]any{
				"type": "string",
				"enum": []any{string(EventAnswerUpdate), string(EventHesitation), string(EventFocusLost)},
			},
			"timestamp": map[string]any{"type": "string", "minLength": 1},
			"payload": map[string]any{
				"type":     "object",
				"required": []any{"questionId"},
				"properties": map[string]any{
					"questionId":       map[string]any{"type": "string", "minLength": 1},
					"selectedOptionId": map[string]any{"type": "string"},
					"confidence":       map[string]any{"type": "string"},
					"timeMs":           map[string]any{"type": "integer", "minimum": 0},
					"count":            map[string]any{"type": "integer", "minimum": 0},
					"hesitationCount":  map[string]any{"type": "integer", "minimum": 0},
					"focusLostCount":   map[string]any{"type": "integer", "minimum": 0},
				},
			},
		},
	},
}

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

// ErrInvalidBatch is returned when a raw event batch fails schema validation.
type ErrInvalidBatch struct {
	Err error
}

func (e *ErrInvalidBatch) Error() string {
	return fmt.Sprintf("invalid telemetry batch: %v", e.Err)
}

func (e *ErrInvalidBatch) Unwrap() error {
	return e.Err
}

func getBatchSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource(batchSchemaURL, batchSchema); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiled, compileErr = c.Compile(batchSchemaURL)
	})
	return compiled, compileErr
}

// ValidateBatch checks a raw JSON array of events against the telemetry
// schema and decodes it.
func ValidateBatch(raw []byte) ([]Event, error) {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &ErrInvalidBatch{Err: fmt.Errorf("invalid JSON: %w", err)}
	}

	sch, err := getBatchSchema()
	if err != nil {
		return nil, fmt.Errorf("compile telemetry schema: %w", err)
	}
	if err := sch.Validate(parsed); err != nil {
		return nil, &ErrInvalidBatch{Err: err}
	}

	var events []Event
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil, &ErrInvalidBatch{Err: err}
	}
	return events, nil
}
