package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create session snapshot tables",
		SQL: `
			CREATE TABLE session_state (
				ns            TEXT PRIMARY KEY,
				goal          TEXT NOT NULL DEFAULT '',
				personalised  TEXT,
				last_error    TEXT,
				vapi_seconds  INTEGER NOT NULL DEFAULT 0,
				updated_at    TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE TABLE chat_messages (
				id         INTEGER PRIMARY KEY AUTOINCREMENT,
				ns         TEXT NOT NULL,
				role       TEXT NOT NULL,
				message    TEXT NOT NULL,
				timestamp  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_chat_messages_ns ON chat_messages (ns, id);

			CREATE TABLE time_spent (
				ns       TEXT NOT NULL,
				kind     TEXT NOT NULL,
				key      TEXT NOT NULL,
				seconds  INTEGER NOT NULL DEFAULT 0,
				PRIMARY KEY (ns, kind, key)
			);
		`,
	},
	{
		Version: 2,
		Name:    "create prefs",
		SQL: `
			CREATE TABLE prefs (
				ns     TEXT NOT NULL,
				key    TEXT NOT NULL,
				value  TEXT NOT NULL,
				PRIMARY KEY (ns, key)
			);
		`,
	},
}
