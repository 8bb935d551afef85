package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nimbusbot/nimbus/internal/nimbus/azure"
)

// state is the persisted shape of a session's slots and caches.
type state struct {
	Values    map[string]string     `json:"values,omitempty"`
	Resources []azure.Resource      `json:"resources,omitempty"`
	Groups    []azure.ResourceGroup `json:"groups,omitempty"`
}

// Store persists sessions in the sessions table. Writes are last-writer-wins
// per (channel, user) row.
type Store struct {
	db *sql.DB
}

// NewStore wraps a database handle for session persistence.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Load fetches the session for the given channel and user. A user with no
// stored row gets a fresh empty session, not an error.
func (st *Store) Load(ctx context.Context, channelID, userID string) (*Session, error) {
	var slotsJSON string
	var contJSON sql.NullString

	err := st.db.QueryRowContext(ctx,
		`SELECT slots_json, continuation_json FROM sessions WHERE channel_id = ? AND user_id = ?`,
		channelID, userID,
	).Scan(&slotsJSON, &contJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return NewSession(channelID, userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: load: %w", err)
	}

	sess := NewSession(channelID, userID)

	var persisted state
	if err := json.Unmarshal([]byte(slotsJSON), &persisted); err != nil {
		return nil, fmt.Errorf("session: decode slots: %w", err)
	}
	if persisted.Values != nil {
		sess.values = persisted.Values
	}
	sess.resources = persisted.Resources
	sess.groups = persisted.Groups

	if contJSON.Valid && contJSON.String != "" {
		var cont Continuation
		if err := json.Unmarshal([]byte(contJSON.String), &cont); err != nil {
			return nil, fmt.Errorf("session: decode continuation: %w", err)
		}
		sess.continuation = &cont
	}

	return sess, nil
}

// Save writes the session back, replacing any previous row for the same
// channel and user.
func (st *Store) Save(ctx context.Context, sess *Session) error {
	slotsJSON, err := json.Marshal(state{
		Values:    sess.values,
		Resources: sess.resources,
		Groups:    sess.groups,
	})
	if err != nil {
		return fmt.Errorf("session: encode slots: %w", err)
	}

	var contJSON any
	if sess.continuation != nil {
		raw, err := json.Marshal(sess.continuation)
		if err != nil {
			return fmt.Errorf("session: encode continuation: %w", err)
		}
		contJSON = string(raw)
	}

	_, err = st.db.ExecContext(ctx,
		`INSERT INTO sessions (channel_id, user_id, slots_json, continuation_json, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(channel_id, user_id) DO UPDATE SET
		   slots_json = excluded.slots_json,
		   continuation_json = excluded.continuation_json,
		   updated_at = excluded.updated_at`,
		sess.ChannelID, sess.UserID, string(slotsJSON), contJSON, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("session: save: %w", err)
	}
	return nil
}
