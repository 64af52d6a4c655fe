package observability

import "database/sql"

// Schema creates the metric and event tables. They share the CV database
// so exports can be joined with the profiles they served.
const Schema = `
CREATE TABLE IF NOT EXISTS cv_metrics (
	id     INTEGER PRIMARY KEY AUTOINCREMENT,
	name   TEXT NOT NULL,
	at     INTEGER NOT NULL,
	value  REAL NOT NULL,
	unit   TEXT NOT NULL DEFAULT '',
	labels TEXT
);
CREATE INDEX IF NOT EXISTS idx_cv_metrics_name_at ON cv_metrics(name, at DESC);

CREATE TABLE IF NOT EXISTS cv_events (
	id          TEXT PRIMARY KEY,
	type        TEXT NOT NULL,
	service     TEXT NOT NULL,
	entity_type TEXT NOT NULL DEFAULT '',
	entity_id   TEXT NOT NULL DEFAULT '',
	user_id     TEXT NOT NULL DEFAULT '',
	action      TEXT NOT NULL,
	details     TEXT,
	success     INTEGER NOT NULL DEFAULT 1,
	at          INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cv_events_type_at ON cv_events(type, at DESC);
`

// Init applies Schema to db.
func Init(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
