package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
)

// Exam stores an imported content pack. The pack is kept verbatim so a
// finalized attempt can always be re-evaluated against the exact content
// it was taken on.
type Exam struct {
	ent.Schema
}

func (Exam) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			NotEmpty().
			Immutable().
			Comment("Exam identifier from the content pack"),
		field.String("version").
			Comment("Semantic version of the pack"),
		field.Text("pack").
			Comment("Content pack as JSON"),
		field.Time("imported_at").
			Default(time.Now).
			Comment("When the pack was last imported"),
	}
}
