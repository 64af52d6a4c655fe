// Package shield holds the HTTP middleware wrapped around the CV site:
// response hardening, request tracing, the maintenance switch and the
// per-route rate limits that protect the PDF export.
//
// Rules and the maintenance flag live in SQLite (see Schema) so they can be
// changed without a restart:
//
//	if err := shield.Init(db); err != nil { ... }
//	stack, mm, rl := shield.DefaultStack(db, proxies)
//	r.Use(stack...)
//	r.With(rl.Middleware).Get("/{profileID}/print/", h.print)
package shield

import (
	"database/sql"
	"net/http"
)

// Middleware wraps a handler.
type Middleware = func(http.Handler) http.Handler

// DefaultStack builds the site-wide chain. Maintenance runs first so a
// closed site does no other work; the trace ID is attached last, closest to
// the handlers that log. The rate limiter needs the matched chi pattern, so
// it is returned for per-route mounting instead of being in the chain.
// proxies decides whose X-Forwarded-For names the client.
func DefaultStack(db *sql.DB, proxies Proxies) ([]Middleware, *MaintenanceMode, *RateLimiter) {
	mm := NewMaintenanceMode(db, "/healthz", "/admin/")
	rl := NewRateLimiter(db)
	stack := []Middleware{
		mm.Middleware,
		HeadToGet,
		SecurityHeaders(SiteHeaders()),
		MaxFormBody(64 << 10),
		RequestTrace(proxies),
	}
	return stack, mm, rl
}
