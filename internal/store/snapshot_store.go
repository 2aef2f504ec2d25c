package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/pathwaylabs/engage/internal/domain"
)

// Accumulator kinds in the time_spent table.
const (
	kindCaseStudy      = "case_study"
	kindProcessSection = "process_section"
)

// SnapshotStore persists the partial session snapshot under the fixed
// namespace. One snapshot exists per database.
type SnapshotStore struct {
	db *DB
}

// NewSnapshotStore creates a snapshot store using the given database.
func NewSnapshotStore(db *DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// Save replaces the stored snapshot with snap.
func (s *SnapshotStore) Save(snap domain.SessionSnapshot) error {
	tx, err := s.db.sql.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var personalised, lastError sql.NullString
	if snap.Personalised != nil {
		personalised = s.encodeColumn("personalised", snap.Personalised)
	}
	if snap.LastError != nil {
		lastError = s.encodeColumn("last_error", snap.LastError)
	}

	if _, err := tx.Exec(
		`INSERT INTO session_state (ns, goal, personalised, last_error, vapi_seconds, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(ns) DO UPDATE SET
		   goal = excluded.goal,
		   personalised = excluded.personalised,
		   last_error = excluded.last_error,
		   vapi_seconds = excluded.vapi_seconds,
		   updated_at = excluded.updated_at`,
		Namespace, snap.Goal, personalised, lastError, snap.VapiTime,
		time.Now().Format(time.DateTime),
	); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM chat_messages WHERE ns = ?`, Namespace); err != nil {
		return err
	}
	for _, msg := range snap.ChatHistory {
		ts := msg.Timestamp
		if ts.IsZero() {
			ts = time.Now()
		}
		if _, err := tx.Exec(
			`INSERT INTO chat_messages (ns, role, message, timestamp) VALUES (?, ?, ?, ?)`,
			Namespace, msg.Role, msg.Message, ts.Format(time.DateTime),
		); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(`DELETE FROM time_spent WHERE ns = ?`, Namespace); err != nil {
		return err
	}
	for kind, entries := range map[string]map[string]int{
		kindCaseStudy:      snap.CaseStudyTime,
		kindProcessSection: snap.ProcessSectionTime,
	} {
		for key, secs := range entries {
			if _, err := tx.Exec(
				`INSERT INTO time_spent (ns, kind, key, seconds) VALUES (?, ?, ?, ?)`,
				Namespace, kind, key, secs,
			); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// encodeColumn marshals v for a nullable JSON column. A marshal failure
// is logged and leaves the column NULL; it never fails the save.
func (s *SnapshotStore) encodeColumn(name string, v any) sql.NullString {
	data, err := json.Marshal(v)
	if err != nil {
		s.db.log.Warn().Str("column", name).Err(err).Msg("failed to encode snapshot column")
		return sql.NullString{}
	}
	return sql.NullString{String: string(data), Valid: true}
}

// Load returns the stored snapshot, or nil when none exists.
func (s *SnapshotStore) Load() (*domain.SessionSnapshot, error) {
	var snap domain.SessionSnapshot
	var personalised, lastError sql.NullString

	err := s.db.sql.QueryRow(
		`SELECT goal, personalised, last_error, vapi_seconds FROM session_state WHERE ns = ?`,
		Namespace,
	).Scan(&snap.Goal, &personalised, &lastError, &snap.VapiTime)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if personalised.Valid && personalised.String != "" {
		var p domain.Personalisation
		if err := json.Unmarshal([]byte(personalised.String), &p); err == nil {
			snap.Personalised = &p
		}
	}
	if lastError.Valid && lastError.String != "" {
		var rec domain.ErrorRecord
		if err := json.Unmarshal([]byte(lastError.String), &rec); err == nil {
			snap.LastError = &rec
		}
	}

	snap.ChatHistory = s.loadChat()
	snap.CaseStudyTime = s.loadTime(kindCaseStudy)
	snap.ProcessSectionTime = s.loadTime(kindProcessSection)
	return &snap, nil
}

// Clear removes the stored snapshot. Prefs are untouched.
func (s *SnapshotStore) Clear() error {
	tx, err := s.db.sql.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM session_state WHERE ns = ?`,
		`DELETE FROM chat_messages WHERE ns = ?`,
		`DELETE FROM time_spent WHERE ns = ?`,
	} {
		if _, err := tx.Exec(stmt, Namespace); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SnapshotStore) loadChat() []domain.ChatMessage {
	rows, err := s.db.sql.Query(
		`SELECT role, message, timestamp FROM chat_messages WHERE ns = ? ORDER BY id`, Namespace,
	)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var msgs []domain.ChatMessage
	for rows.Next() {
		var msg domain.ChatMessage
		var ts string
		if err := rows.Scan(&msg.Role, &msg.Message, &ts); err != nil {
			continue
		}
		msg.Timestamp, _ = time.Parse(time.DateTime, ts)
		msgs = append(msgs, msg)
	}
	return msgs
}

func (s *SnapshotStore) loadTime(kind string) map[string]int {
	rows, err := s.db.sql.Query(
		`SELECT key, seconds FROM time_spent WHERE ns = ? AND kind = ?`, Namespace, kind,
	)
	if err != nil {
		return nil
	}
	defer rows.Close()

	entries := make(map[string]int)
	for rows.Next() {
		var key string
		var secs int
		if err := rows.Scan(&key, &secs); err != nil {
			continue
		}
		entries[key] = secs
	}
	if len(entries) == 0 {
		return nil
	}
	return entries
}
