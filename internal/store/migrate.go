package store

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"entgo.io/ent"
	entsql "entgo.io/ent/dialect/sql"
	entschema "entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"

	"github.com/abhisek/diagnostica/ent/schema"
)

// Table names, one per ent schema type.
const (
	tableExams       = "exams"
	tableAttempts    = "attempts"
	tableTelemetry   = "telemetry_events"
	tableResults     = "results"
	tableCohortTags  = "cohort_tags"
	tableLLMRequests = "llm_request_events"
)

var entities = []struct {
	table  string
	schema ent.Interface
}{
	{tableExams, schema.Exam{}},
	{tableAttempts, schema.Attempt{}},
	{tableTelemetry, schema.TelemetryEvent{}},
	{tableResults, schema.Result{}},
	{tableCohortTags, schema.CohortTag{}},
	{tableLLMRequests, schema.LLMRequestEvent{}},
}

// migrate creates or alters every table declared in ent/schema. Tables are
// derived from the schema descriptors at runtime, so the schema package is
// the single source of truth for columns and indexes.
func migrate(ctx context.Context, drv *entsql.Driver) error {
	tables := make([]*entschema.Table, 0, len(entities))
	for _, e := range entities {
		t, err := tableFor(e.table, e.schema)
		if err != nil {
			return err
		}
		tables = append(tables, t)
	}

	m, err := entschema.NewMigrate(drv)
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}
	if err := m.Create(ctx, tables...); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

// tableFor converts an ent schema (mixins first) into a migration table.
// A schema without an explicit "id" field gets an auto-increment integer key.
func tableFor(name string, s ent.Interface) (*entschema.Table, error) {
	var fields []ent.Field
	var indexes []ent.Index
	for _, m := range s.Mixin() {
		fields = append(fields, m.Fields()...)
		indexes = append(indexes, m.Indexes()...)
	}
	fields = append(fields, s.Fields()...)
	indexes = append(indexes, s.Indexes()...)

	t := entschema.NewTable(name)
	var cols []*entschema.Column
	var pk *entschema.Column
	for _, f := range fields {
		d := f.Descriptor()
		if d.Err != nil {
			return nil, fmt.Errorf("schema %s field %s: %w", name, d.Name, d.Err)
		}
		c := columnFor(d)
		if c.Name == "id" {
			c.Unique = true
			pk = c
			continue
		}
		cols = append(cols, c)
	}
	if pk == nil {
		pk = &entschema.Column{Name: "id", Type: field.TypeInt, Increment: true}
	}
	t.AddPrimary(pk)
	for _, c := range cols {
		t.AddColumn(c)
	}

	for _, idx := range indexes {
		d := idx.Descriptor()
		idxName := name + "_" + strings.Join(d.Fields, "_")
		if d.StorageKey != "" {
			idxName = d.StorageKey
		}
		t.AddIndex(idxName, d.Unique, d.Fields)
	}
	return t, nil
}

func columnFor(d *field.Descriptor) *entschema.Column {
	name := d.Name
	if d.StorageKey != "" {
		name = d.StorageKey
	}
	c := &entschema.Column{
		Name:       name,
		Type:       d.Info.Type,
		Size:       int64(d.Size),
		Unique:     d.Unique,
		Nullable:   d.Optional,
		SchemaType: d.SchemaType,
		Comment:    d.Comment,
	}
	for _, e := range d.Enums {
		c.Enums = append(c.Enums, e.V)
	}
	// Function defaults (time.Now) are applied by the repositories.
	if d.Default != nil && reflect.TypeOf(d.Default).Kind() != reflect.Func {
		c.Default = d.Default
	}
	return c
}
