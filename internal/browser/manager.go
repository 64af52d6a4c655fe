// CLAUDE:SUMMARY Owns the shared headless Chrome used for HTML to PDF: started or dialed on first use, replaced after a max age or a failure.
// Package browser keeps one Chrome connection for the PDF printer. Chrome
// is launched locally with Rod's launcher, or dialed over DevTools when a
// remote URL is configured. A connection older than MaxAge, or one a caller
// reported broken, is torn down and the next Acquire opens a new one.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// ErrClosed is returned by Acquire after Close.
var ErrClosed = errors.New("browser: closed")

// Config selects where Chrome comes from.
type Config struct {
	RemoteURL string        // DevTools websocket of a running Chrome; empty launches one
	Bin       string        // local Chrome binary; empty lets the launcher locate or fetch it
	MaxAge    time.Duration // default 4h
	Logger    *slog.Logger
}

// session is one live Chrome connection. proc is nil for remote Chrome.
type session struct {
	browser *rod.Browser
	proc    *launcher.Launcher
	opened  time.Time
}

func (s *session) end(log *slog.Logger) {
	if err := s.browser.Close(); err != nil {
		log.Debug("browser: close", "error", err)
	}
	if s.proc != nil {
		s.proc.Cleanup()
	}
}

// Manager hands out the current Chrome connection.
type Manager struct {
	cfg Config
	log *slog.Logger

	mu     sync.Mutex
	cur    *session
	closed bool
}

// NewManager returns a Manager; nothing is started until Acquire.
func NewManager(cfg Config) *Manager {
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 4 * time.Hour
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Manager{cfg: cfg, log: log}
}

// Acquire returns a connected browser. ctx bounds the launch or dial when a
// new session has to be opened.
func (m *Manager) Acquire(ctx context.Context) (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	if m.cur != nil {
		age := time.Since(m.cur.opened)
		if age < m.cfg.MaxAge {
			return m.cur.browser, nil
		}
		m.log.Info("browser: replacing aged session", "age", age.Round(time.Second))
		m.cur.end(m.log)
		m.cur = nil
	}
	s, err := m.open(ctx)
	if err != nil {
		return nil, err
	}
	m.cur = s
	return s.browser, nil
}

// Invalidate ends the session behind b so the next Acquire reconnects. A
// browser from an already replaced session is ignored.
func (m *Manager) Invalidate(b *rod.Browser) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b == nil || m.cur == nil || m.cur.browser != b {
		return
	}
	m.log.Warn("browser: session reported broken")
	m.cur.end(m.log)
	m.cur = nil
}

// Close ends the session; later Acquire calls fail with ErrClosed.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	if m.cur != nil {
		m.cur.end(m.log)
		m.cur = nil
	}
	return nil
}

func (m *Manager) open(ctx context.Context) (*session, error) {
	s := &session{opened: time.Now()}
	controlURL := m.cfg.RemoteURL
	if controlURL == "" {
		l := launcher.New().Context(ctx).Headless(true).Set("disable-gpu").Set("no-sandbox")
		if m.cfg.Bin != "" {
			l = l.Bin(m.cfg.Bin)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch chrome: %w", err)
		}
		s.proc, controlURL = l, u
	}

	s.browser = rod.New().Context(ctx).ControlURL(controlURL)
	if err := s.browser.Connect(); err != nil {
		if s.proc != nil {
			s.proc.Cleanup()
		}
		return nil, fmt.Errorf("browser: connect %s: %w", controlURL, err)
	}
	// Detach from the caller's context once connected; the session outlives it.
	s.browser = s.browser.Context(context.Background())
	m.log.Info("browser: session opened", "url", controlURL, "local", s.proc != nil)
	return s, nil
}
