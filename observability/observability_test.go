package observability

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/hazyhaar/hojadevida/dbopen"
)

func obsDB(t *testing.T) *sql.DB {
	t.Helper()
	return dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
}

func count(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n); err != nil {
		t.Fatal(err)
	}
	return n
}

func TestMetrics_RecordFlushQuery(t *testing.T) {
	db := obsDB(t)
	mm := NewMetricsManager(db, 100, time.Hour)
	defer mm.Close()

	mm.RecordLabeled(MetricAttachmentFailures, 1, "count", map[string]string{"section": "courses"})
	mm.RecordSimple(MetricExportDurationMs, 840, "milliseconds")
	if n := count(t, db, "cv_metrics"); n != 0 {
		t.Fatalf("written before flush: %d", n)
	}
	mm.Flush()

	ctx := context.Background()
	failures, err := mm.Query(ctx, MetricFilter{Name: MetricAttachmentFailures})
	if err != nil {
		t.Fatal(err)
	}
	if len(failures) != 1 || failures[0].Labels["section"] != "courses" || failures[0].Unit != "count" {
		t.Fatalf("failures: %+v", failures)
	}
	all, err := mm.Query(ctx, MetricFilter{})
	if err != nil || len(all) != 2 {
		t.Fatalf("all: %d, %v", len(all), err)
	}
}

func TestMetrics_FullBufferWrites(t *testing.T) {
	db := obsDB(t)
	mm := NewMetricsManager(db, 3, time.Hour)
	defer mm.Close()

	for range 3 {
		mm.RecordSimple(MetricAttachmentsMerged, 2, "count")
	}
	if n := count(t, db, "cv_metrics"); n != 3 {
		t.Fatalf("rows = %d, want 3 once the buffer filled", n)
	}
}

func TestMetrics_QueryTimeRangeAndLimit(t *testing.T) {
	db := obsDB(t)
	mm := NewMetricsManager(db, 100, time.Hour)

	now := time.Now()
	mm.Record(Metric{Name: MetricExportBytes, At: now.Add(-3 * time.Hour), Value: 1, Unit: "bytes"})
	mm.Record(Metric{Name: MetricExportBytes, At: now.Add(-time.Minute), Value: 2, Unit: "bytes"})
	mm.Record(Metric{Name: MetricExportBytes, At: now, Value: 3, Unit: "bytes"})
	mm.Close()

	ctx := context.Background()
	recent, err := mm.Query(ctx, MetricFilter{Name: MetricExportBytes, Since: now.Add(-time.Hour)})
	if err != nil || len(recent) != 2 {
		t.Fatalf("since: %d, %v", len(recent), err)
	}
	old, _ := mm.Query(ctx, MetricFilter{Until: now.Add(-time.Hour)})
	if len(old) != 1 || old[0].Value != 1 {
		t.Fatalf("until: %+v", old)
	}
	latest, _ := mm.Query(ctx, MetricFilter{Limit: 1})
	if len(latest) != 1 || latest[0].Value != 3 {
		t.Fatalf("limit: %+v", latest)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var mm *MetricsManager
	mm.RecordSimple(MetricExportBytes, 1, "bytes")
	mm.Flush()
	if err := mm.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestEventLogger_LogEvent(t *testing.T) {
	db := obsDB(t)
	NewEventLogger(db, "hojadevida").LogEvent(context.Background(), BusinessEvent{
		EventType:  EventExport,
		EntityType: "profile",
		EntityID:   "7",
		Action:     "export",
		Details:    map[string]int{"merged": 3, "skipped": 1},
		Success:    true,
	})

	var id, service, details string
	var success bool
	err := db.QueryRow(`SELECT id, service, details, success FROM cv_events WHERE type = ?`, EventExport).
		Scan(&id, &service, &details, &success)
	if err != nil {
		t.Fatal(err)
	}
	if service != "hojadevida" || !success || details != `{"merged":3,"skipped":1}` {
		t.Fatalf("service=%q success=%v details=%q", service, success, details)
	}
	if len(id) < 5 || id[:4] != "evt_" {
		t.Fatalf("id = %q", id)
	}
}

func TestEventLogger_NilIsNoop(t *testing.T) {
	var el *EventLogger
	el.LogEvent(context.Background(), BusinessEvent{EventType: EventExport})
}

func TestCleanup_Retention(t *testing.T) {
	db := obsDB(t)
	old := time.Now().AddDate(0, 0, -40).Unix()
	for _, q := range []struct {
		sql string
		at  int64
	}{
		{`INSERT INTO cv_metrics (name, at, value) VALUES ('m', ?, 1)`, old},
		{`INSERT INTO cv_metrics (name, at, value) VALUES ('m', ?, 1)`, time.Now().Unix()},
		{`INSERT INTO cv_events (id, type, service, action, at) VALUES ('evt_1', 'cv.export', 'svc', 'export', ?)`, old},
	} {
		if _, err := db.Exec(q.sql, q.at); err != nil {
			t.Fatal(err)
		}
	}

	if err := Cleanup(context.Background(), db, RetentionConfig{MetricsDays: 30}); err != nil {
		t.Fatal(err)
	}
	if n := count(t, db, "cv_metrics"); n != 1 {
		t.Fatalf("cv_metrics = %d, want 1", n)
	}
	if n := count(t, db, "cv_events"); n != 1 {
		t.Fatalf("cv_events = %d, want 1 (zero days keeps rows)", n)
	}
}
