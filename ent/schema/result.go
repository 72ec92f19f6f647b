package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Result is the cached DiagnosticResult of a completed attempt. Rows are
// written once and never updated.
type Result struct {
	ent.Schema
}

func (Result) Fields() []ent.Field {
	return []ent.Field{
		field.String("attempt_id").
			Unique().
			Immutable(),
		field.String("exam_id").
			Immutable(),
		field.Int("schema_version").
			Immutable(),
		field.String("engine_version").
			Immutable(),
		field.Text("data").
			Immutable().
			Comment("Encoded DiagnosticResult"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

func (Result) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("exam_id"),
	}
}
