package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

type examRepo struct {
	q querier
}

func (r *examRepo) Put(ctx context.Context, e Exam) error {
	if e.ImportedAt.IsZero() {
		e.ImportedAt = time.Now().UTC()
	}
	query, args := builder.Insert(tableExams).
		Columns("id", "version", "pack", "imported_at").
		Values(e.ID, e.Version, string(e.Pack), e.ImportedAt).
		OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues()).
		Query()
	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("put exam %s: %w", e.ID, err)
	}
	return nil
}

func (r *examRepo) Get(ctx context.Context, id string) (*Exam, error) {
	query, args := builder.Select("id", "version", "pack", "imported_at").
		From(builder.Table(tableExams)).
		Where(entsql.EQ("id", id)).
		Query()
	var e Exam
	var pack string
	err := r.q.QueryRowContext(ctx, query, args...).Scan(&e.ID, &e.Version, &pack, &e.ImportedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("exam %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get exam %s: %w", id, err)
	}
	e.Pack = []byte(pack)
	return &e, nil
}

func (r *examRepo) List(ctx context.Context) ([]Exam, error) {
	query, args := builder.Select("id", "version", "pack", "imported_at").
		From(builder.Table(tableExams)).
		OrderBy("id").
		Query()
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	defer rows.Close()

	var out []Exam
	for rows.Next() {
		var e Exam
		var pack string
		if err := rows.Scan(&e.ID, &e.Version, &pack, &e.ImportedAt); err != nil {
			return nil, fmt.Errorf("scan exam: %w", err)
		}
		e.Pack = []byte(pack)
		out = append(out, e)
	}
	return out, rows.Err()
}
