package shield

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

func TestRateLimiter_ExportRuleSharedAcrossProfiles(t *testing.T) {
	db := shieldDB(t)
	db.Exec(`UPDATE rate_limits SET max_requests = 2 WHERE endpoint = 'GET /{profileID}/print/'`)
	rl := NewRateLimiter(db)

	r := chi.NewRouter()
	r.With(rl.Middleware).Get("/{profileID}/print/", ok)
	r.Get("/{profileID}/", ok)
	get := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", path, nil)
		req.RemoteAddr = "10.0.0.1:5555"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	for _, p := range []string{"/1/print/", "/2/print/"} {
		if w := get(p); w.Code != http.StatusOK {
			t.Fatalf("%s: %d", p, w.Code)
		}
	}
	w := get("/1/print/")
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") != "60" {
		t.Fatalf("third export: %d Retry-After=%q", w.Code, w.Header().Get("Retry-After"))
	}
	for range 5 {
		if w := get("/1/"); w.Code != http.StatusOK {
			t.Fatalf("profile page limited: %d", w.Code)
		}
	}
}

func TestRateLimiter_Windows(t *testing.T) {
	db := shieldDB(t)
	db.Exec(`INSERT INTO rate_limits (endpoint, max_requests, window_seconds) VALUES ('GET /x', 1, 10)`)
	db.Exec(`INSERT INTO rate_limits (endpoint, max_requests, window_seconds, enabled) VALUES ('GET /off', 1, 10, 0)`)
	rl := NewRateLimiter(db)
	t0 := time.Now()

	steps := []struct {
		client, route string
		at            time.Duration
		want          bool
	}{
		{"a", "GET /x", 0, true},
		{"a", "GET /x", time.Second, false},
		{"b", "GET /x", time.Second, true},
		{"a", "GET /x", 11 * time.Second, true},
		{"a", "GET /off", 0, true},
		{"a", "GET /off", 0, true},
		{"a", "GET /none", 0, true},
	}
	for i, s := range steps {
		if got, _ := rl.admit(s.client, s.route, t0.Add(s.at)); got != s.want {
			t.Fatalf("step %d (%s %s +%s): admitted=%v", i, s.client, s.route, s.at, got)
		}
	}

	rl.sweep(t0.Add(time.Minute))
	if n := len(rl.windows); n != 0 {
		t.Fatalf("%d windows left after sweep", n)
	}
}

func TestNormalizeRoute(t *testing.T) {
	for in, want := range map[string]string{
		"GET /{profileID}/print/": "GET /{profileID}/print",
		"GET /{profileID}/print":  "GET /{profileID}/print",
		"/{profileID}/print/":     "/{profileID}/print",
		"GET /":                   "GET /",
		"/":                       "/",
	} {
		if got := normalizeRoute(in); got != want {
			t.Errorf("normalizeRoute(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRateLimiter_RuleWithoutTrailingSlash(t *testing.T) {
	db := shieldDB(t)
	db.Exec(`INSERT INTO rate_limits (endpoint, max_requests, window_seconds) VALUES ('GET /{profileID}/markdown', 1, 60)`)
	rl := NewRateLimiter(db)

	r := chi.NewRouter()
	r.With(rl.Middleware).Get("/{profileID}/markdown/", ok)
	codes := make([]int, 2)
	for i := range codes {
		req := httptest.NewRequest("GET", "/7/markdown/", nil)
		req.RemoteAddr = "10.0.0.2:4000"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes[i] = w.Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}
}

func TestRateLimiter_ForwardedForRotationDoesNotEscape(t *testing.T) {
	db := shieldDB(t)
	db.Exec(`UPDATE rate_limits SET max_requests = 1 WHERE endpoint = 'GET /{profileID}/print/'`)
	rl := NewRateLimiter(db)

	r := chi.NewRouter()
	r.Use(RequestTrace(nil))
	r.With(rl.Middleware).Get("/{profileID}/print/", ok)
	var codes []int
	for _, fwd := range []string{"198.51.100.1", "198.51.100.2", "198.51.100.3"} {
		req := httptest.NewRequest("GET", "/7/print/", nil)
		req.RemoteAddr = "203.0.113.8:5000"
		req.Header.Set("X-Forwarded-For", fwd)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}
}
