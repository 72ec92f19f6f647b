package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// TelemetryEvent is one raw client event for an attempt. Rows are
// append-only; normalization happens at finalize time.
type TelemetryEvent struct {
	ent.Schema
}

func (TelemetryEvent) Mixin() []ent.Mixin {
	return []ent.Mixin{SequencedMixin{}}
}

func (TelemetryEvent) Fields() []ent.Field {
	return []ent.Field{
		field.String("attempt_id").
			Immutable(),
		field.String("event_type").
			Immutable().
			Comment("ANSWER_UPDATE, HESITATION or FOCUS_LOST"),
		field.String("question_id").
			Default("").
			Immutable(),
		field.Time("client_time").
			Immutable().
			Comment("Timestamp reported by the client"),
		field.Text("payload").
			Immutable().
			Comment("Event payload as JSON"),
	}
}

func (TelemetryEvent) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("attempt_id"),
	}
}
