// CLAUDE:SUMMARY HTTP surface of the CV site: chi router, shield middleware, public pages, merged PDF export, document redirects and the admin JSON API.
// Package web serves the CV site.
//
// Public routes:
//
//	GET /                          302 to the active profile, or /sin-datos/
//	GET /sin-datos/                no active profile page
//	GET /{profileID}/              on-screen CV
//	GET /{profileID}/print/        merged PDF export (rate limited)
//	GET /{profileID}/markdown/     Markdown CV
//	GET /doc/{kind}/{recordID}/    302 to the attachment of a record
//	GET /healthz                   JSON status
//
// The admin JSON API lives under /admin/api behind HTTP Basic Auth.
package web

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/hojadevida/cv"
	"github.com/hazyhaar/hojadevida/export"
	"github.com/hazyhaar/hojadevida/observability"
	"github.com/hazyhaar/hojadevida/render"
	"github.com/hazyhaar/hojadevida/shield"
	"github.com/hazyhaar/hojadevida/sqltrace"
	"github.com/hazyhaar/hojadevida/uploads"
)

// Store is the storage the site reads and the admin API writes.
// Implemented by *cvstore.Store.
type Store interface {
	cv.Store
	cv.Editor
	Profiles(ctx context.Context) ([]cv.Profile, error)
	Ping(ctx context.Context) error
}

// Uploader stores uploaded files. Implemented by *uploads.Store.
type Uploader interface {
	Put(ctx context.Context, section cv.Section, filename, contentType string, r io.Reader, size int64) (string, error)
	FileURL(key string) string
}

// SlowQueries lists recorded SQL statements. Implemented by *sqltrace.Store.
type SlowQueries interface {
	Slowest(ctx context.Context, limit int) ([]sqltrace.Entry, error)
}

// AdminConfig holds the admin credentials. An empty PasswordHash disables
// the admin API.
type AdminConfig struct {
	User         string `yaml:"user"`
	PasswordHash string `yaml:"password_hash"` // bcrypt
}

// Config wires a Server.
type Config struct {
	// DB holds the shield tables (rate limits, maintenance flag).
	DB *sql.DB

	Store    Store
	Service  *cv.Service
	Renderer *render.Renderer
	Exporter *export.Exporter

	// Uploads is optional; without it file uploads answer 503.
	Uploads Uploader

	// SQLTraces is optional; it backs GET /admin/api/sql/slow.
	SQLTraces SlowQueries

	// TrustedProxies are the reverse proxies whose X-Forwarded-For names
	// the client. Empty uses the peer address.
	TrustedProxies shield.Proxies

	Admin  AdminConfig
	Events *observability.EventLogger
	Logger *slog.Logger
}

// Server is the HTTP surface.
type Server struct {
	store    Store
	service  *cv.Service
	renderer *render.Renderer
	exporter *export.Exporter
	uploads  Uploader
	traces   SlowQueries
	admin    AdminConfig
	events   *observability.EventLogger
	logger   *slog.Logger

	stack       []shield.Middleware
	maintenance *shield.MaintenanceMode
	limiter     *shield.RateLimiter
}

// New creates the shield tables if needed and builds a Server.
func New(cfg Config) (*Server, error) {
	if cfg.DB == nil || cfg.Store == nil || cfg.Service == nil || cfg.Renderer == nil || cfg.Exporter == nil {
		return nil, errors.New("web: DB, Store, Service, Renderer and Exporter are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if err := shield.Init(cfg.DB); err != nil {
		return nil, fmt.Errorf("web: shield tables: %w", err)
	}
	stack, mm, rl := shield.DefaultStack(cfg.DB, cfg.TrustedProxies)
	return &Server{
		store:       cfg.Store,
		service:     cfg.Service,
		renderer:    cfg.Renderer,
		exporter:    cfg.Exporter,
		uploads:     cfg.Uploads,
		traces:      cfg.SQLTraces,
		admin:       cfg.Admin,
		events:      cfg.Events,
		logger:      cfg.Logger,
		stack:       stack,
		maintenance: mm,
		limiter:     rl,
	}, nil
}

// StartReloaders keeps the rate limit rules and the maintenance flag in
// sync with the database until done is closed.
func (s *Server) StartReloaders(done <-chan struct{}) {
	s.limiter.StartReloader(done)
	s.maintenance.StartReloader(done)
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	for _, mw := range s.stack {
		r.Use(mw)
	}

	r.Get("/healthz", s.health)
	r.Get("/", s.home)
	r.Get("/sin-datos/", s.noProfile)
	r.Get("/doc/{kind}/{recordID}/", s.document)

	r.Route("/admin/api", s.adminRoutes)

	r.Get("/{profileID}/", s.detail)
	r.With(s.limiter.Middleware).Get("/{profileID}/print/", s.print)
	r.Get("/{profileID}/markdown/", s.markdown)
	return r
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

// statusOf maps domain errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, cv.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, cv.ErrInvalidInput), errors.Is(err, uploads.ErrInvalidFile):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// idParam parses a positive integer path parameter.
func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s %q", cv.ErrNotFound, name, chi.URLParam(r, name))
	}
	return id, nil
}
