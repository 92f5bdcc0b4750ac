package sqlite

import "database/sql"

const schemaVersion = 1

const schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS memories (
    seq        INTEGER PRIMARY KEY AUTOINCREMENT,
    id         TEXT NOT NULL UNIQUE,
    room_id    TEXT NOT NULL,
    user_id    TEXT NOT NULL DEFAULT '',
    user_name  TEXT NOT NULL DEFAULT '',
    from_agent INTEGER NOT NULL DEFAULT 0,
    content    TEXT NOT NULL DEFAULT '{}',
    created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_memories_room ON memories(room_id, seq DESC);

CREATE TABLE IF NOT EXISTS analyses (
    id         TEXT PRIMARY KEY,
    room_id    TEXT NOT NULL DEFAULT '',
    handle     TEXT NOT NULL DEFAULT '',
    variant    TEXT NOT NULL DEFAULT '',
    status     TEXT NOT NULL DEFAULT 'ok'
               CHECK(status IN ('ok','failed')),
    error_kind TEXT NOT NULL DEFAULT '',
    error      TEXT NOT NULL DEFAULT '',
    profile    TEXT NOT NULL DEFAULT '',
    response   TEXT NOT NULL DEFAULT '',
    scores     TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_analyses_handle ON analyses(handle);
CREATE INDEX IF NOT EXISTS idx_analyses_created ON analyses(created_at DESC);
`

func runMigrations(db *sql.DB) error {
	// Check current version
	var current int
	row := db.QueryRow("SELECT version FROM schema_version LIMIT 1")
	if err := row.Scan(&current); err != nil {
		// Table missing or empty, run the initial schema
		current = 0
	}

	if current >= schemaVersion {
		return nil
	}

	if current < 1 {
		if _, err := db.Exec(schemaV1); err != nil {
			return err
		}
	}

	// Upsert schema version
	_, err := db.Exec(`
		DELETE FROM schema_version;
		INSERT INTO schema_version (version) VALUES (?);
	`, schemaVersion)
	return err
}
