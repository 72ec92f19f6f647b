package store

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

type telemetryRepo struct {
	q   querier
	seq *sequenceCounter
}

// telemetryBatch bounds rows per INSERT to stay under SQLite's bound
// parameter limit.
const telemetryBatch = 500

var telemetryColumns = []string{"sequence", "timestamp", "attempt_id", "event_type", "question_id", "client_time", "payload"}

func (r *telemetryRepo) Append(ctx context.Context, events []TelemetryEvent) ([]int64, error) {
	if len(events) == 0 {
		return nil, nil
	}
	first, err := r.seq.Reserve(ctx, r.q, len(events))
	if err != nil {
		return nil, err
	}

	seqs := make([]int64, len(events))
	now := time.Now().UTC()
	for start := 0; start < len(events); start += telemetryBatch {
		end := min(start+telemetryBatch, len(events))
		ins := builder.Insert(tableTelemetry).Columns(telemetryColumns...)
		for i := start; i < end; i++ {
			ev := events[i]
			seqs[i] = first + int64(i)
			ins = ins.Values(seqs[i], now, ev.AttemptID, ev.EventType, ev.QuestionID, ev.ClientTime.UTC(), string(ev.Payload))
		}
		query, args := ins.Query()
		if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
			return nil, fmt.Errorf("append telemetry events: %w", err)
		}
	}
	return seqs, nil
}

func (r *telemetryRepo) List(ctx context.Context, attemptID string) ([]TelemetryEvent, error) {
	query, args := builder.Select(telemetryColumns...).
		From(builder.Table(tableTelemetry)).
		Where(entsql.EQ("attempt_id", attemptID)).
		OrderBy("sequence").
		Query()
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list telemetry for %s: %w", attemptID, err)
	}
	defer rows.Close()

	var out []TelemetryEvent
	for rows.Next() {
		var ev TelemetryEvent
		var payload string
		if err := rows.Scan(&ev.Sequence, &ev.Timestamp, &ev.AttemptID, &ev.EventType, &ev.QuestionID, &ev.ClientTime, &payload); err != nil {
			return nil, fmt.Errorf("scan telemetry event: %w", err)
		}
		ev.Payload = []byte(payload)
		out = append(out, ev)
	}
	return out, rows.Err()
}
