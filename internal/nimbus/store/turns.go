package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// TurnEntry is one processed conversation turn in the turn log.
type TurnEntry struct {
	ID           int64
	Timestamp    time.Time
	TurnID       string
	TraceID      string
	ChannelID    string
	UserID       string
	RoutedAs     string
	Result       string
	ErrorMessage sql.NullString
}

// WriteTurn records one processed turn. RoutedAs is the intent name the turn
// was dispatched on, or the continuation tag when the turn resumed a pending
// question.
func (s *Store) WriteTurn(ctx context.Context, turnID, traceID, channelID, userID, routedAs, result, errorMsg string) error {
	var errorNull sql.NullString
	if errorMsg != "" {
		errorNull = sql.NullString{String: errorMsg, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO turns (ts, turn_id, trace_id, channel_id, user_id, routed_as, result, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, time.Now(), turnID, traceID, channelID, userID, routedAs, result, errorNull)

	if err != nil {
		return fmt.Errorf("failed to write turn log: %w", err)
	}

	return nil
}

// RecentTurns retrieves the most recent turn log entries, newest first.
func (s *Store) RecentTurns(ctx context.Context, limit int) ([]*TurnEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ts, turn_id, trace_id, channel_id, user_id, routed_as, result, error_message
		FROM turns
		ORDER BY ts DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query turn log: %w", err)
	}
	defer rows.Close()

	var entries []*TurnEntry
	for rows.Next() {
		entry := &TurnEntry{}
		if err := rows.Scan(
			&entry.ID, &entry.Timestamp, &entry.TurnID, &entry.TraceID,
			&entry.ChannelID, &entry.UserID, &entry.RoutedAs, &entry.Result,
			&entry.ErrorMessage,
		); err != nil {
			return nil, fmt.Errorf("failed to scan turn entry: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}
