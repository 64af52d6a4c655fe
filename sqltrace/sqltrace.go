// CLAUDE:SUMMARY Traced SQLite driver: logs every CV store query with the request trace ID and records slow or failed ones.
// Package sqltrace registers a "sqlite-trace" database/sql driver that wraps
// modernc.org/sqlite and times every statement.
//
// Every statement is logged through slog (Debug, Warn when slow, Error on
// failure) with the request's trace ID from kit. Slow and failed statements
// are also handed to the installed Recorder:
//
//	traces, _ := sqltrace.OpenStore("data/sqltrace.db")
//	sqltrace.SetRecorder(traces)
//	defer traces.Close()
//
//	st, _ := cvstore.Open("data/hojadevida.db", dbopen.WithDriver(sqltrace.DriverName))
//
// The recorder's own database must use the plain "sqlite" driver.
package sqltrace

import (
	"database/sql"
	"sync"
	"time"

	sqlite "modernc.org/sqlite"
)

// DriverName is the name the traced driver registers under.
const DriverName = "sqlite-trace"

// DefaultSlow is the duration above which a statement counts as slow.
const DefaultSlow = 100 * time.Millisecond

// Entry is one traced statement.
type Entry struct {
	TraceID  string        `json:"trace_id"`
	Op       string        `json:"op"` // "exec" or "query"
	Query    string        `json:"query"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
	At       time.Time     `json:"at"`
}

// Recorder keeps slow and failed statements. Record must not block.
type Recorder interface {
	Record(e Entry)
}

var (
	mu       sync.RWMutex
	recorder Recorder
	slow     = DefaultSlow
)

// SetRecorder installs r. Nil keeps logging only.
func SetRecorder(r Recorder) {
	mu.Lock()
	recorder = r
	mu.Unlock()
}

// SetSlowThreshold changes the slow statement threshold. Zero or less
// restores DefaultSlow.
func SetSlowThreshold(d time.Duration) {
	if d <= 0 {
		d = DefaultSlow
	}
	mu.Lock()
	slow = d
	mu.Unlock()
}

func current() (Recorder, time.Duration) {
	mu.RLock()
	defer mu.RUnlock()
	return recorder, slow
}

func init() {
	sql.Register(DriverName, &Driver{Driver: &sqlite.Driver{}})
}
