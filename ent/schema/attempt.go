package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Attempt is one student's sitting of an exam.
type Attempt struct {
	ent.Schema
}

func (Attempt) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			NotEmpty().
			Immutable().
			Comment("UUID assigned at start"),
		field.String("exam_id").
			Immutable(),
		field.String("student_id").
			Immutable(),
		field.Enum("status").
			Values("IN_PROGRESS", "COMPLETED").
			Default("IN_PROGRESS"),
		field.Time("started_at").
			Default(time.Now).
			Immutable(),
		field.Time("completed_at").
			Optional().
			Nillable(),
	}
}

func (Attempt) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("exam_id", "status"),
		index.Fields("student_id"),
	}
}
