package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// CohortTag assigns a student to a group within one protected dimension,
// e.g. dimension "region", group "north".
type CohortTag struct {
	ent.Schema
}

func (CohortTag) Fields() []ent.Field {
	return []ent.Field{
		field.String("student_id"),
		field.String("dimension"),
		field.String("group_name"),
	}
}

func (CohortTag) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("student_id", "dimension").Unique(),
	}
}
