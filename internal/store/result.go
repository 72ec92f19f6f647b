package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

type resultRepo struct {
	q querier
}

func (r *resultRepo) Insert(ctx context.Context, res Result) error {
	if res.CreatedAt.IsZero() {
		res.CreatedAt = time.Now().UTC()
	}
	query, args := builder.Insert(tableResults).
		Columns("attempt_id", "exam_id", "schema_version", "engine_version", "data", "created_at").
		Values(res.AttemptID, res.ExamID, res.SchemaVersion, res.EngineVersion, string(res.Data), res.CreatedAt).
		OnConflict(entsql.ConflictColumns("attempt_id"), entsql.DoNothing()).
		Query()
	out, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("insert result %s: %w", res.AttemptID, err)
	}
	n, err := out.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert result %s: %w", res.AttemptID, err)
	}
	if n == 0 {
		return fmt.Errorf("insert result %s: %w", res.AttemptID, ErrResultExists)
	}
	return nil
}

func (r *resultRepo) Get(ctx context.Context, attemptID string) (*Result, error) {
	query, args := builder.Select("attempt_id", "exam_id", "schema_version", "engine_version", "data", "created_at").
		From(builder.Table(tableResults)).
		Where(entsql.EQ("attempt_id", attemptID)).
		Query()
	var res Result
	var data string
	err := r.q.QueryRowContext(ctx, query, args...).
		Scan(&res.AttemptID, &res.ExamID, &res.SchemaVersion, &res.EngineVersion, &data, &res.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("result %s: %w", attemptID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get result %s: %w", attemptID, err)
	}
	res.Data = []byte(data)
	return &res, nil
}

func (r *resultRepo) ListByExam(ctx context.Context, examID string) ([]Result, error) {
	rt := builder.Table(tableResults)
	at := builder.Table(tableAttempts)
	query, args := builder.Select(
		rt.C("attempt_id"), rt.C("exam_id"), at.C("student_id"),
		rt.C("schema_version"), rt.C("engine_version"), rt.C("data"), rt.C("created_at"),
	).
		From(rt).
		Join(at).On(rt.C("attempt_id"), at.C("id")).
		Where(entsql.EQ(rt.C("exam_id"), examID)).
		OrderBy(rt.C("attempt_id")).
		Query()
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list results for %s: %w", examID, err)
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var res Result
		var data string
		if err := rows.Scan(&res.AttemptID, &res.ExamID, &res.StudentID, &res.SchemaVersion, &res.EngineVersion, &data, &res.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		res.Data = []byte(data)
		out = append(out, res)
	}
	return out, rows.Err()
}
