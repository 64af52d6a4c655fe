package shield

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
)

// Rule is one row of rate_limits: at most Max requests per client in each
// Window.
type Rule struct {
	Max     int
	Window  time.Duration
	Enabled bool
}

type window struct {
	hits int
	ends time.Time
}

// RateLimiter counts requests per client IP and route in fixed windows.
// Routes are named by method and chi pattern, so the export rule covers
// every profile id. Mount with r.With(rl.Middleware): outside a matched
// route the raw path is used instead of the pattern.
type RateLimiter struct {
	db    *sql.DB
	rules atomic.Pointer[map[string]Rule]

	mu      sync.Mutex
	windows map[string]*window
}

// NewRateLimiter loads the rules from db.
func NewRateLimiter(db *sql.DB) *RateLimiter {
	rl := &RateLimiter{db: db, windows: make(map[string]*window)}
	rl.rules.Store(&map[string]Rule{})
	rl.loadRules(context.Background())
	return rl
}

// StartReloader re-reads the rules every minute and forgets finished
// windows every five, until done is closed.
func (rl *RateLimiter) StartReloader(done <-chan struct{}) {
	go func() {
		rules := time.NewTicker(time.Minute)
		sweep := time.NewTicker(5 * time.Minute)
		defer rules.Stop()
		defer sweep.Stop()
		for {
			select {
			case <-done:
				return
			case <-rules.C:
				rl.loadRules(context.Background())
			case now := <-sweep.C:
				rl.sweep(now)
			}
		}
	}()
}

// loadRules keeps the previous rules when the table cannot be read.
func (rl *RateLimiter) loadRules(ctx context.Context) {
	rows, err := rl.db.QueryContext(ctx, `SELECT endpoint, max_requests, window_seconds, enabled FROM rate_limits`)
	if err != nil {
		slog.Warn("shield: load rate limits", "error", err)
		return
	}
	defer rows.Close()

	rules := make(map[string]Rule)
	for rows.Next() {
		var (
			route string
			secs  int
			rule  Rule
		)
		if err := rows.Scan(&route, &rule.Max, &secs, &rule.Enabled); err != nil {
			slog.Warn("shield: bad rate limit row", "error", err)
			continue
		}
		rule.Window = time.Duration(secs) * time.Second
		rules[normalizeRoute(route)] = rule
	}
	if err := rows.Err(); err != nil {
		slog.Warn("shield: load rate limits", "error", err)
		return
	}
	rl.rules.Store(&rules)
	slog.Debug("shield: rate limits loaded", "rules", len(rules))
}

func (rl *RateLimiter) sweep(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, win := range rl.windows {
		if now.After(win.ends) {
			delete(rl.windows, key)
		}
	}
}

// admit counts one request from client on route at now and reports whether
// it fits the route's rule. Routes without an enabled rule always pass.
func (rl *RateLimiter) admit(client, route string, now time.Time) (bool, Rule) {
	rule, ok := (*rl.rules.Load())[route]
	if !ok || !rule.Enabled {
		return true, rule
	}

	key := route + "|" + client
	rl.mu.Lock()
	defer rl.mu.Unlock()
	win := rl.windows[key]
	if win == nil || now.After(win.ends) {
		rl.windows[key] = &window{hits: 1, ends: now.Add(rule.Window)}
		return true, rule
	}
	win.hits++
	return win.hits <= rule.Max, rule
}

// Middleware rejects requests over the matched route's rule with 429 and a
// Retry-After of one window.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.Method + " " + routePattern(r)
		client := ClientIP(r)
		ok, rule := rl.admit(client, route, time.Now())
		if ok {
			next.ServeHTTP(w, r)
			return
		}
		GetLogger(r.Context()).Warn("shield: rate limited", "ip", client, "route", route)
		w.Header().Set("Retry-After", strconv.Itoa(int(rule.Window/time.Second)))
		http.Error(w, "Demasiadas solicitudes, intente de nuevo en un momento.", http.StatusTooManyRequests)
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return normalizeRoute(p)
		}
	}
	return normalizeRoute(r.URL.Path)
}

// normalizeRoute drops a trailing slash: chi reports "/{profileID}/print"
// for a route registered as "/{profileID}/print/", and rows may be written
// either way.
func normalizeRoute(route string) string {
	if route == "/" || !strings.HasSuffix(route, "/") || strings.HasSuffix(route, " /") {
		return route
	}
	return strings.TrimSuffix(route, "/")
}
