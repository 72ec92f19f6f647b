package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

type attemptRepo struct {
	q querier
}

func (r *attemptRepo) Create(ctx context.Context, a Attempt) error {
	if a.StartedAt.IsZero() {
		a.StartedAt = time.Now().UTC()
	}
	query, args := builder.Insert(tableAttempts).
		Columns("id", "exam_id", "student_id", "status", "started_at").
		Values(a.ID, a.ExamID, a.StudentID, string(AttemptInProgress), a.StartedAt).
		Query()
	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("create attempt %s: %w", a.ID, err)
	}
	return nil
}

func (r *attemptRepo) Get(ctx context.Context, id string) (*Attempt, error) {
	query, args := builder.Select("id", "exam_id", "student_id", "status", "started_at", "completed_at").
		From(builder.Table(tableAttempts)).
		Where(entsql.EQ("id", id)).
		Query()
	var a Attempt
	var status string
	var completed sql.NullTime
	err := r.q.QueryRowContext(ctx, query, args...).
		Scan(&a.ID, &a.ExamID, &a.StudentID, &status, &a.StartedAt, &completed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("attempt %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get attempt %s: %w", id, err)
	}
	a.Status = AttemptStatus(status)
	if completed.Valid {
		t := completed.Time
		a.CompletedAt = &t
	}
	return &a, nil
}

func (r *attemptRepo) MarkCompleted(ctx context.Context, id string, at time.Time) error {
	query, args := builder.Update(tableAttempts).
		Set("status", string(AttemptCompleted)).
		Set("completed_at", at).
		Where(entsql.And(
			entsql.EQ("id", id),
			entsql.EQ("status", string(AttemptInProgress)),
		)).
		Query()
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("complete attempt %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete attempt %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("complete attempt %s: %w", id, ErrStatusConflict)
	}
	return nil
}
