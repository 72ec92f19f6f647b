package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
	"entgo.io/ent/schema/mixin"
)

// SequencedMixin adds the global ordering columns shared by telemetry and
// LLM request rows. Both tables draw sequence numbers from one counter, so
// a merged log can be replayed in write order.
type SequencedMixin struct {
	mixin.Schema
}

func (SequencedMixin) Fields() []ent.Field {
	return []ent.Field{
		field.Int64("sequence").
			Positive().
			Unique().
			Immutable().
			Comment("Value from global_sequence at insert time"),
		field.Time("timestamp").
			Default(func() time.Time { return time.Now().UTC() }).
			Immutable().
			Comment("Server receive time, UTC"),
	}
}

// Indexes covers range scans by time. sequence is already unique.
func (SequencedMixin) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("timestamp"),
	}
}
