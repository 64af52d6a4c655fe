// CLAUDE:SUMMARY Opens the SQLite databases (CV store, SQL trace sidecar) with the shared pragmas, schemas and an optional traced driver.
// Package dbopen opens the SQLite databases of hojadevida.
//
// Every connection gets foreign_keys=ON (section records cascade with their
// profile), WAL journaling, a busy timeout and synchronous=NORMAL. Schemas
// are applied in order after the pragmas.
//
//	db, err := dbopen.Open("data/hojadevida.db", dbopen.WithMkdirAll(), dbopen.WithSchema(cvstore.Schema))
//	db := dbopen.OpenMemory(t, dbopen.WithSchema(cvstore.Schema)) // tests
package dbopen

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

type options struct {
	driver      string
	busyTimeout int // ms
	synchronous string
	mkdirAll    bool
	schemas     []string
}

// Option configures Open.
type Option func(*options)

// WithDriver opens through another registered database/sql driver, such as
// sqltrace.DriverName. Default "sqlite".
func WithDriver(name string) Option { return func(o *options) { o.driver = name } }

// WithBusyTimeout sets PRAGMA busy_timeout in milliseconds. Default 10000.
func WithBusyTimeout(ms int) Option { return func(o *options) { o.busyTimeout = ms } }

// WithSynchronous sets PRAGMA synchronous. Default "NORMAL".
func WithSynchronous(mode string) Option { return func(o *options) { o.synchronous = mode } }

// WithMkdirAll creates the parent directory of the database file.
func WithMkdirAll() Option { return func(o *options) { o.mkdirAll = true } }

// WithSchema adds SQL run after the pragmas. Schemas run in the order given.
func WithSchema(sqlText string) Option {
	return func(o *options) { o.schemas = append(o.schemas, sqlText) }
}

// Open opens the database at path and prepares it.
func Open(path string, opts ...Option) (*sql.DB, error) {
	o := options{driver: "sqlite", busyTimeout: 10_000, synchronous: "NORMAL"}
	for _, fn := range opts {
		fn(&o)
	}

	if o.mkdirAll && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("dbopen: %w", err)
		}
	}
	db, err := sql.Open(o.driver, path)
	if err != nil {
		return nil, fmt.Errorf("dbopen: open %s: %w", path, err)
	}
	if err := prepare(db, &o); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// OpenMemory opens a private in-memory database for a test and closes it
// on cleanup. The pool is pinned to one connection since every ":memory:"
// connection is its own database.
func OpenMemory(t testing.TB, opts ...Option) *sql.DB {
	t.Helper()
	db, err := Open(":memory:", opts...)
	if err != nil {
		t.Fatalf("dbopen: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func prepare(db *sql.DB, o *options) error {
	stmts := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", o.busyTimeout),
		"PRAGMA synchronous = " + o.synchronous,
	}
	for _, p := range stmts {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("dbopen: %s: %w", p, err)
		}
	}
	for i, s := range o.schemas {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("dbopen: schema %d: %w", i+1, err)
		}
	}
	return db.Ping()
}
