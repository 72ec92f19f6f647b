package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

// sequenceCounter hands out the global sequence shared by telemetry and
// LLM request rows. The two live in separate tables, so their own row IDs
// cannot order them against each other.
//
// The mutex orders callers within the process; the single-row UPDATE makes
// each reservation atomic in the database. Callers inside a transaction
// pass it as q so a rollback also returns the numbers.
type sequenceCounter struct {
	mu sync.Mutex
}

func newSequenceCounter(db *sql.DB) (*sequenceCounter, error) {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS global_sequence (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		next_val INTEGER NOT NULL DEFAULT 1
	)`); err != nil {
		return nil, fmt.Errorf("create sequence table: %w", err)
	}
	if _, err := db.Exec(`INSERT OR IGNORE INTO global_sequence (id, next_val) VALUES (1, 1)`); err != nil {
		return nil, fmt.Errorf("seed sequence: %w", err)
	}
	return &sequenceCounter{}, nil
}

// Next reserves one sequence number.
func (sc *sequenceCounter) Next(ctx context.Context, q querier) (int64, error) {
	return sc.Reserve(ctx, q, 1)
}

// Reserve claims n consecutive numbers and returns the first. n must be
// positive.
func (sc *sequenceCounter) Reserve(ctx context.Context, q querier, n int) (int64, error) {
	if n < 1 {
		return 0, fmt.Errorf("reserve %d sequence numbers: count must be positive", n)
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()

	var first int64
	err := q.QueryRowContext(ctx,
		`UPDATE global_sequence SET next_val = next_val + ? WHERE id = 1 RETURNING next_val - ?`, n, n,
	).Scan(&first)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return first, nil
}
