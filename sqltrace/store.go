package sqltrace

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/hojadevida/dbopen"
)

// Schema is the sql_traces table.
const Schema = `
CREATE TABLE IF NOT EXISTS sql_traces (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	trace_id    TEXT NOT NULL DEFAULT '',
	op          TEXT NOT NULL,
	query       TEXT NOT NULL,
	duration_us INTEGER NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	at          INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sql_traces_at ON sql_traces(at);
CREATE INDEX IF NOT EXISTS idx_sql_traces_duration ON sql_traces(duration_us);
`

const batchSize = 64

// Store persists recorded entries in their own SQLite database, batching
// writes on a background goroutine. Entries are dropped when the buffer
// is full.
type Store struct {
	db    *sql.DB
	owned bool
	ch    chan Entry
	done  chan struct{}
	once  sync.Once
}

var _ Recorder = (*Store)(nil)

// OpenStore opens (or creates) the trace database at path.
func OpenStore(path string) (*Store, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(Schema))
	if err != nil {
		return nil, err
	}
	s := NewStore(db)
	s.owned = true
	return s, nil
}

// NewStore starts a store on db, which must carry Schema and use the plain
// "sqlite" driver.
func NewStore(db *sql.DB) *Store {
	s := &Store{
		db:   db,
		ch:   make(chan Entry, 1024),
		done: make(chan struct{}),
	}
	go s.loop()
	return s
}

// Record queues e without blocking.
func (s *Store) Record(e Entry) {
	select {
	case s.ch <- e:
	default:
	}
}

// Close flushes queued entries and stops the writer. The database is
// closed only when OpenStore opened it.
func (s *Store) Close() error {
	var err error
	s.once.Do(func() {
		close(s.ch)
		<-s.done
		if s.owned {
			err = s.db.Close()
		}
	})
	return err
}

func (s *Store) loop() {
	defer close(s.done)
	batch := make([]Entry, 0, batchSize)
	tick := time.NewTicker(time.Second)
	defer tick.Stop()

	for {
		select {
		case e, ok := <-s.ch:
			if !ok {
				s.flush(batch)
				return
			}
			if batch = append(batch, e); len(batch) >= batchSize {
				s.flush(batch)
				batch = batch[:0]
			}
		case <-tick.C:
			s.flush(batch)
			batch = batch[:0]
		}
	}
}

func (s *Store) flush(batch []Entry) {
	if len(batch) == 0 {
		return
	}
	err := dbopen.RunTx(context.Background(), s.db, func(tx *sql.Tx) error {
		ins, err := tx.Prepare(`INSERT INTO sql_traces (trace_id, op, query, duration_us, error, at) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer ins.Close()
		for _, e := range batch {
			if _, err := ins.Exec(e.TraceID, e.Op, e.Query, e.Duration.Microseconds(), e.Error, e.At.UnixMicro()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		slog.Error("sqltrace: flush", "entries", len(batch), "error", err)
	}
}

// Slowest returns up to limit recorded entries, slowest first.
func (s *Store) Slowest(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT trace_id, op, query, duration_us, error, at
		FROM sql_traces ORDER BY duration_us DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e      Entry
			us, at int64
		)
		if err := rows.Scan(&e.TraceID, &e.Op, &e.Query, &us, &e.Error, &at); err != nil {
			return nil, err
		}
		e.Duration = time.Duration(us) * time.Microsecond
		e.At = time.UnixMicro(at)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Prune deletes entries recorded before cutoff.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sql_traces WHERE at < ?`, cutoff.UnixMicro())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
