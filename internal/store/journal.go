package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/beaconctl/internal/canon"
	"github.com/roach88/beaconctl/internal/governance"
)

// Append implements governance.EventSink. The payload is serialized in
// canonical form so identical events have identical stored bytes.
func (s stateOps) Append(ctx context.Context, ev governance.Event) error {
	payload, err := canon.MarshalCanonical(ev.Payload)
	if err != nil {
		return fmt.Errorf("serialize event payload: %w", err)
	}
	_, err = s.q.ExecContext(ctx, `
		INSERT INTO events (id, seq, kind, at, payload)
		VALUES (?, ?, ?, ?, ?)
	`, ev.ID, ev.Seq, string(ev.Kind), ev.At.UnixNano(), string(payload))
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// Events returns the full journal ordered by seq.
func (s stateOps) Events(ctx context.Context) ([]governance.Event, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, seq, kind, at, payload FROM events ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	defer rows.Close()

	var out []governance.Event
	for rows.Next() {
		var (
			ev      governance.Event
			kind    string
			at      int64
			payload string
		)
		if err := rows.Scan(&ev.ID, &ev.Seq, &kind, &at, &payload); err != nil {
			return nil, fmt.Errorf("read events: %w", err)
		}
		ev.Kind = governance.EventKind(kind)
		ev.At = time.Unix(0, at)
		// UseNumber keeps integer payload values exact instead of float64.
		dec := json.NewDecoder(strings.NewReader(payload))
		dec.UseNumber()
		if err := dec.Decode(&ev.Payload); err != nil {
			return nil, fmt.Errorf("decode event payload: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// LastSeq returns the highest journal sequence number, or 0 when the journal
// is empty. Used to resume the sequence clock across restarts.
func (s stateOps) LastSeq(ctx context.Context) (int64, error) {
	// MAX over an empty table yields a single NULL row.
	var seq sql.NullInt64
	if err := s.q.QueryRowContext(ctx, `SELECT MAX(seq) FROM events`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("read last seq: %w", err)
	}
	if !seq.Valid {
		return 0, nil
	}
	return seq.Int64, nil
}
