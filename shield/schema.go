package shield

import "database/sql"

const defaultMaintenanceMessage = "Sitio en mantenimiento, vuelva en unos minutos."

// Schema holds the middleware state. rate_limits rows are keyed by method
// and chi pattern ("GET /{profileID}/print/"); maintenance has a single row.
// The export route is seeded with a limit since each hit starts a browser.
const Schema = `
CREATE TABLE IF NOT EXISTS rate_limits (
	endpoint       TEXT PRIMARY KEY,
	max_requests   INTEGER NOT NULL DEFAULT 60,
	window_seconds INTEGER NOT NULL DEFAULT 60,
	enabled        INTEGER NOT NULL DEFAULT 1
);
INSERT OR IGNORE INTO rate_limits (endpoint, max_requests, window_seconds)
	VALUES ('GET /{profileID}/print/', 10, 60);

CREATE TABLE IF NOT EXISTS maintenance (
	id      INTEGER PRIMARY KEY CHECK (id = 1),
	active  INTEGER NOT NULL DEFAULT 0,
	message TEXT NOT NULL DEFAULT '` + defaultMaintenanceMessage + `'
);
INSERT OR IGNORE INTO maintenance (id) VALUES (1);
`

// Init applies Schema. Safe to run on every start.
func Init(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
