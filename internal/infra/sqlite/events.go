package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/plugpoint/plugpoint/internal/domain"
)

// ─── Event Log ──────────────────────────────────────────────────────────────
// The log is append-only: there is no update or delete path.

// AppendEvents inserts events in slice order.
func (s *txStore) AppendEvents(ctx context.Context, events []domain.Event) error {
	for _, e := range events {
		details, err := json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("encode event details: %w", err)
		}
		if _, err := s.tx.ExecContext(ctx,
			`INSERT INTO events (id, user_id, session_id, kind, action_type, timestamp, details)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.UserID, nullableString(e.SessionID), string(e.Kind),
			nullableString(string(e.ActionType)), millis(e.Timestamp), string(details),
		); err != nil {
			return fmt.Errorf("append event %s: %w", e.ID, err)
		}
	}
	return nil
}

// ListEvents returns a user's most recent events, newest first.
func (d *DB) ListEvents(ctx context.Context, userID string, limit int) ([]domain.Event, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT seq, id, user_id, session_id, kind, action_type, timestamp, details
		 FROM events WHERE user_id = ? ORDER BY seq DESC LIMIT ?`, userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []domain.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// PointsLedgerSum totals every transaction delta for a user.
// It always equals the profile's points balance.
func (d *DB) PointsLedgerSum(ctx context.Context, userID string) (int64, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT details FROM events WHERE user_id = ? AND kind = ?`,
		userID, string(domain.EventPointsTransaction),
	)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var sum int64
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return 0, err
		}
		var det domain.EventDetails
		if err := json.Unmarshal([]byte(raw), &det); err != nil {
			return 0, fmt.Errorf("decode event details: %w", err)
		}
		if det.PointsChange != nil {
			sum += *det.PointsChange
		}
	}
	return sum, rows.Err()
}

func scanEvent(s scanner) (domain.Event, error) {
	var e domain.Event
	var session, action sql.NullString
	var kind, details string
	var ts int64

	if err := s.Scan(&e.Seq, &e.ID, &e.UserID, &session, &kind, &action, &ts, &details); err != nil {
		return e, err
	}
	e.SessionID = session.String
	e.Kind = domain.EventKind(kind)
	e.ActionType = domain.ActionType(action.String)
	e.Timestamp = fromMillis(ts)
	if err := json.Unmarshal([]byte(details), &e.Details); err != nil {
		return e, fmt.Errorf("decode event details: %w", err)
	}
	return e, nil
}
