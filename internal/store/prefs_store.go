package store

import "database/sql"

// Token pref keys. Fixed so the stored pair survives process restarts.
const (
	prefAccessToken  = "auth.access_token"
	prefRefreshToken = "auth.refresh_token"
)

// PrefsStore is a namespaced key/value store for UI preferences and the
// backend session tokens. Prefs survive a session reset.
type PrefsStore struct {
	db *DB
}

// NewPrefsStore creates a prefs store using the given database.
func NewPrefsStore(db *DB) *PrefsStore {
	return &PrefsStore{db: db}
}

// Get returns the value for key, or false when unset.
func (p *PrefsStore) Get(key string) (string, bool) {
	var value string
	err := p.db.sql.QueryRow(
		`SELECT value FROM prefs WHERE ns = ? AND key = ?`, Namespace, key,
	).Scan(&value)
	if err != nil {
		if err != sql.ErrNoRows {
			p.db.log.Error().Err(err).Str("key", key).Msg("failed to read pref")
		}
		return "", false
	}
	return value, true
}

// Set stores a value for key.
func (p *PrefsStore) Set(key, value string) error {
	_, err := p.db.sql.Exec(
		`INSERT INTO prefs (ns, key, value) VALUES (?, ?, ?)
		 ON CONFLICT(ns, key) DO UPDATE SET value = excluded.value`,
		Namespace, key, value,
	)
	return err
}

// Delete removes a key.
func (p *PrefsStore) Delete(key string) error {
	_, err := p.db.sql.Exec(`DELETE FROM prefs WHERE ns = ? AND key = ?`, Namespace, key)
	return err
}

// Tokens implements api.TokenStore.
func (p *PrefsStore) Tokens() (string, string, bool) {
	access, ok := p.Get(prefAccessToken)
	if !ok || access == "" {
		return "", "", false
	}
	refresh, _ := p.Get(prefRefreshToken)
	return access, refresh, true
}

// SaveTokens implements api.TokenStore.
func (p *PrefsStore) SaveTokens(access, refresh string) error {
	if err := p.Set(prefAccessToken, access); err != nil {
		return err
	}
	return p.Set(prefRefreshToken, refresh)
}

// ClearTokens implements api.TokenStore.
func (p *PrefsStore) ClearTokens() error {
	if err := p.Delete(prefAccessToken); err != nil {
		return err
	}
	return p.Delete(prefRefreshToken)
}
