package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	entsql "entgo.io/ent/dialect/sql"
)

// SetTags replaces the student's groups for the given dimensions in one
// transaction: either every tag is written or none is.
func (s *Store) SetTags(ctx context.Context, studentID string, groups map[string]string) error {
	dims := make([]string, 0, len(groups))
	for dim := range groups {
		dims = append(dims, dim)
	}
	sort.Strings(dims)

	return s.InTx(ctx, func(tx *Tx) error {
		for _, dim := range dims {
			if dim == "" || groups[dim] == "" {
				return errors.New("tag dimension and group must not be empty")
			}
			if err := tx.Tags().Set(ctx, CohortTag{StudentID: studentID, Dimension: dim, Group: groups[dim]}); err != nil {
				return err
			}
		}
		return nil
	})
}

type tagRepo struct {
	q querier
}

func (r *tagRepo) Set(ctx context.Context, tag CohortTag) error {
	query, args := builder.Insert(tableCohortTags).
		Columns("student_id", "dimension", "group_name").
		Values(tag.StudentID, tag.Dimension, tag.Group).
		OnConflict(
			entsql.ConflictColumns("student_id", "dimension"),
			entsql.ResolveWithNewValues(),
		).
		Query()
	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("set tag %s/%s: %w", tag.StudentID, tag.Dimension, err)
	}
	return nil
}

func (r *tagRepo) ForStudents(ctx context.Context, studentIDs []string) (map[string]map[string]string, error) {
	out := make(map[string]map[string]string)
	if len(studentIDs) == 0 {
		return out, nil
	}
	ids := make([]any, len(studentIDs))
	for i, id := range studentIDs {
		ids[i] = id
	}
	query, args := builder.Select("student_id", "dimension", "group_name").
		From(builder.Table(tableCohortTags)).
		Where(entsql.In("student_id", ids...)).
		Query()
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var student, dim, group string
		if err := rows.Scan(&student, &dim, &group); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		if out[student] == nil {
			out[student] = make(map[string]string)
		}
		out[student][dim] = group
	}
	return out, rows.Err()
}
