package shield

import (
	"context"
	"database/sql"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

// MaintenanceMode closes the site with a 503 while the flag in the
// maintenance table is on. The flag is cached and refreshed by
// StartReloader; a missing table or row reads as off.
type MaintenanceMode struct {
	db     *sql.DB
	bypass []string
	state  atomic.Pointer[maintenanceState]
	page   atomic.Pointer[[]byte]
}

type maintenanceState struct {
	active  bool
	message string
}

// NewMaintenanceMode reads the current flag. Requests whose path starts
// with one of bypass are always served.
func NewMaintenanceMode(db *sql.DB, bypass ...string) *MaintenanceMode {
	m := &MaintenanceMode{db: db, bypass: bypass}
	m.state.Store(&maintenanceState{message: defaultMaintenanceMessage})
	m.refresh(context.Background())
	return m
}

// Active reports whether the site is closed.
func (m *MaintenanceMode) Active() bool { return m.state.Load().active }

// Message is the text shown on the maintenance page.
func (m *MaintenanceMode) Message() string { return m.state.Load().message }

// SetPage replaces the built-in page with a static HTML document.
func (m *MaintenanceMode) SetPage(page []byte) { m.page.Store(&page) }

// Set stores the flag and applies it at once. An empty message leaves the
// stored text unchanged.
func (m *MaintenanceMode) Set(ctx context.Context, active bool, message string) error {
	_, err := m.db.ExecContext(ctx,
		`UPDATE maintenance SET active = ?, message = COALESCE(NULLIF(?, ''), message) WHERE id = 1`,
		active, message)
	if err != nil {
		return err
	}
	m.refresh(ctx)
	return nil
}

// StartReloader picks up changes made by other processes every 5s until
// done is closed.
func (m *MaintenanceMode) StartReloader(done <-chan struct{}) {
	go func() {
		t := time.NewTicker(5 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				m.refresh(context.Background())
			}
		}
	}()
}

func (m *MaintenanceMode) refresh(ctx context.Context) {
	next := maintenanceState{message: m.Message()}
	var msg string
	err := m.db.QueryRowContext(ctx, `SELECT active, message FROM maintenance WHERE id = 1`).Scan(&next.active, &msg)
	if err != nil {
		next.active = false
	} else if msg != "" {
		next.message = msg
	}

	prev := m.state.Swap(&next)
	switch {
	case next.active && !prev.active:
		slog.Warn("shield: maintenance on", "message", next.message)
	case !next.active && prev.active:
		slog.Info("shield: maintenance off")
	}
}

// Middleware answers 503 with Retry-After while the site is closed.
func (m *MaintenanceMode) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.Active() || m.bypassed(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Retry-After", "300")
		w.WriteHeader(http.StatusServiceUnavailable)
		if p := m.page.Load(); p != nil && len(*p) > 0 {
			w.Write(*p)
			return
		}
		if err := maintenancePage.Execute(w, m.Message()); err != nil {
			GetLogger(r.Context()).Error("shield: maintenance page", "error", err)
		}
	})
}

func (m *MaintenanceMode) bypassed(path string) bool {
	for _, prefix := range m.bypass {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

var maintenancePage = template.Must(template.New("maintenance").Parse(`<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Mantenimiento</title>
<style>
body{margin:0;min-height:100vh;display:grid;place-items:center;font-family:system-ui,sans-serif;background:#f4f6f8;color:#2c3e50}
main{max-width:30rem;padding:2rem;text-align:center}
p{color:#666}
</style>
</head>
<body>
<main>
<h1>Hoja de vida en mantenimiento</h1>
<p>{{.}}</p>
</main>
</body>
</html>`))
