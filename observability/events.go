package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/hojadevida/idgen"
)

// Event types.
const (
	EventExport      = "cv.export"
	EventAdminChange = "cv.admin"
)

// BusinessEvent is a domain-level event: an export served, a record edited.
type BusinessEvent struct {
	EventType  string
	EntityType string // "profile", "courses", ...
	EntityID   string
	UserID     string
	Action     string // "export", "save", "delete", "upload"
	Details    any    // marshalled to JSON when non-nil
	Success    bool
}

// EventLogger writes business events.
type EventLogger struct {
	db      *sql.DB
	service string
	newID   idgen.Generator
}

// NewEventLogger creates a logger writing events tagged with service.
func NewEventLogger(db *sql.DB, service string) *EventLogger {
	return &EventLogger{
		db:      db,
		service: service,
		newID:   idgen.Event,
	}
}

// LogEvent records ev. Failures are logged and swallowed so a broken
// observability table never fails a request. A nil logger is a no-op.
func (l *EventLogger) LogEvent(ctx context.Context, ev BusinessEvent) {
	if l == nil {
		return
	}
	var details sql.NullString
	if ev.Details != nil {
		if b, err := json.Marshal(ev.Details); err == nil {
			details = sql.NullString{String: string(b), Valid: true}
		}
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO cv_events (id, type, service, entity_type, entity_id, user_id, action, details, success, at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.newID(), ev.EventType, l.service, ev.EntityType, ev.EntityID,
		ev.UserID, ev.Action, details, ev.Success, time.Now().Unix())
	if err != nil {
		slog.Error("observability: event log failed", "error", err, "event_type", ev.EventType)
	}
}

// RetentionConfig specifies per-table retention in days. Zero keeps rows.
type RetentionConfig struct {
	MetricsDays   int
	EventLogsDays int
}

// Cleanup deletes rows older than the retention thresholds.
func Cleanup(ctx context.Context, db *sql.DB, cfg RetentionConfig) error {
	now := time.Now().Unix()
	targets := []struct {
		query string
		days  int
	}{
		{`DELETE FROM cv_metrics WHERE at < ?`, cfg.MetricsDays},
		{`DELETE FROM cv_events WHERE at < ?`, cfg.EventLogsDays},
	}
	for _, t := range targets {
		if t.days <= 0 {
			continue
		}
		if _, err := db.ExecContext(ctx, t.query, now-int64(t.days*86400)); err != nil {
			return fmt.Errorf("observability: cleanup: %w", err)
		}
	}
	return nil
}
