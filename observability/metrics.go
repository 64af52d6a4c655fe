// CLAUDE:SUMMARY Export metrics and business events stored in SQLite next to the CV data, with batched metric writes and retention cleanup.
// Package observability records export metrics and business events in
// SQLite tables, queryable with plain SQL next to the CV data.
//
// Call Init(db) first. Metrics are buffered and written in batches; events
// are written synchronously but never fail the caller. Nil managers and
// loggers are no-ops.
package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hazyhaar/hojadevida/dbopen"
)

// Metric names.
const (
	MetricExportDurationMs   = "cv_export_duration_ms"
	MetricExportBytes        = "cv_export_bytes"
	MetricExportFailures     = "cv_export_failures"
	MetricAttachmentsMerged  = "cv_attachments_merged"
	MetricAttachmentFailures = "cv_attachment_fetch_failures"
	MetricRenderDurationMs   = "cv_render_duration_ms"
)

// Metric is one datapoint.
type Metric struct {
	Name   string
	At     time.Time
	Value  float64
	Unit   string // "milliseconds", "bytes", "count"
	Labels map[string]string
}

// MetricFilter selects metrics for Query. Zero fields do not filter.
type MetricFilter struct {
	Name  string
	Since time.Time
	Until time.Time
	Limit int
}

// MetricsManager buffers metrics and writes them when the buffer fills or
// on every tick of the flush interval.
type MetricsManager struct {
	db   *sql.DB
	max  int
	mu   sync.Mutex
	buf  []Metric
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewMetricsManager starts a manager writing batches of up to bufferSize
// metrics, at least every flushInterval.
func NewMetricsManager(db *sql.DB, bufferSize int, flushInterval time.Duration) *MetricsManager {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	mm := &MetricsManager{
		db:   db,
		max:  bufferSize,
		buf:  make([]Metric, 0, bufferSize),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go mm.run(flushInterval)
	return mm
}

// Record queues m, stamping it now when At is zero.
func (mm *MetricsManager) Record(m Metric) {
	if mm == nil {
		return
	}
	if m.At.IsZero() {
		m.At = time.Now()
	}
	mm.mu.Lock()
	defer mm.mu.Unlock()
	if mm.buf = append(mm.buf, m); len(mm.buf) >= mm.max {
		mm.writeLocked()
	}
}

// RecordSimple records an unlabelled value.
func (mm *MetricsManager) RecordSimple(name string, value float64, unit string) {
	mm.Record(Metric{Name: name, Value: value, Unit: unit})
}

// RecordLabeled records a value with labels.
func (mm *MetricsManager) RecordLabeled(name string, value float64, unit string, labels map[string]string) {
	mm.Record(Metric{Name: name, Value: value, Unit: unit, Labels: labels})
}

// Flush writes the buffer now.
func (mm *MetricsManager) Flush() {
	if mm == nil {
		return
	}
	mm.mu.Lock()
	mm.writeLocked()
	mm.mu.Unlock()
}

// Close writes what is left and stops the flusher.
func (mm *MetricsManager) Close() error {
	if mm == nil {
		return nil
	}
	mm.once.Do(func() {
		close(mm.stop)
		<-mm.done
	})
	return nil
}

func (mm *MetricsManager) run(every time.Duration) {
	defer close(mm.done)
	tick := time.NewTicker(every)
	defer tick.Stop()
	for {
		select {
		case <-mm.stop:
			mm.Flush()
			return
		case <-tick.C:
			mm.Flush()
		}
	}
}

func (mm *MetricsManager) writeLocked() {
	if len(mm.buf) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := dbopen.RunTx(ctx, mm.db, func(tx *sql.Tx) error {
		ins, err := tx.PrepareContext(ctx, `INSERT INTO cv_metrics (name, at, value, unit, labels) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer ins.Close()
		for _, m := range mm.buf {
			var labels sql.NullString
			if len(m.Labels) > 0 {
				b, _ := json.Marshal(m.Labels)
				labels = sql.NullString{String: string(b), Valid: true}
			}
			if _, err := ins.ExecContext(ctx, m.Name, m.At.Unix(), m.Value, m.Unit, labels); err != nil {
				return fmt.Errorf("%s: %w", m.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		slog.Error("observability: metrics flush", "count", len(mm.buf), "error", err)
	}
	mm.buf = mm.buf[:0]
}

// Query returns stored metrics matching f, newest first. Buffered metrics
// are not visible until flushed.
func (mm *MetricsManager) Query(ctx context.Context, f MetricFilter) ([]Metric, error) {
	var (
		where []string
		args  []any
	)
	if f.Name != "" {
		where, args = append(where, "name = ?"), append(args, f.Name)
	}
	if !f.Since.IsZero() {
		where, args = append(where, "at >= ?"), append(args, f.Since.Unix())
	}
	if !f.Until.IsZero() {
		where, args = append(where, "at <= ?"), append(args, f.Until.Unix())
	}
	q := `SELECT name, at, value, unit, labels FROM cv_metrics`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY at DESC, id DESC`
	if f.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := mm.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("observability: query metrics: %w", err)
	}
	defer rows.Close()

	var out []Metric
	for rows.Next() {
		var (
			m      Metric
			at     int64
			labels sql.NullString
		)
		if err := rows.Scan(&m.Name, &at, &m.Value, &m.Unit, &labels); err != nil {
			return nil, fmt.Errorf("observability: scan metric: %w", err)
		}
		m.At = time.Unix(at, 0)
		if labels.Valid {
			json.Unmarshal([]byte(labels.String), &m.Labels)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
