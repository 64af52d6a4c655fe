// CLAUDE:SUMMARY Bounded concurrent GET of attachment documents; results are positional and failures are values, never aborts.
// Package fetch downloads attachment documents for the merged export.
//
// Every download is independent: a timeout, a non-2xx status, an oversized
// body or a body that is not a PDF yields a *Failure in that slot and the
// other downloads carry on. Results are indexed by input position so the
// caller's merge order never depends on which download finished first.
//
//	f := fetch.New(fetch.WithWorkers(4), fetch.WithURLGuard(netguard.ValidateURL))
//	for i, r := range f.FetchAll(ctx, urls) {
//		if r.Err != nil { ... skip ... }
//	}
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/hazyhaar/hojadevida/netguard"
)

// Defaults.
const (
	DefaultTimeout = 15 * time.Second
	DefaultMaxSize = 25 << 20
	DefaultWorkers = 4
	MaxRedirects   = 5
)

// ErrRedirect reports a redirect chain longer than MaxRedirects.
var ErrRedirect = errors.New("fetch: too many redirects")

// pdfMagic opens every PDF file.
var pdfMagic = []byte("%PDF-")

// ErrNotDocument reports a body that does not start with the PDF header.
var ErrNotDocument = errors.New("fetch: not a PDF document")

// Failure describes why one download produced no document.
type Failure struct {
	URL    string
	Status int // HTTP status, 0 when no response was received
	Err    error
}

func (f *Failure) Error() string {
	if f.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d", f.URL, f.Status)
	}
	return fmt.Sprintf("fetch %s: %v", f.URL, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Result is the outcome of one download. Exactly one of Body and Err is set.
type Result struct {
	URL      string
	Body     []byte
	Err      error
	Duration time.Duration
}

// Fetcher performs bounded concurrent GETs.
type Fetcher struct {
	client  *http.Client
	timeout time.Duration
	maxSize int64
	workers int
	guard   func(context.Context, string) error
	ua      string
	logger  *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient sets a custom HTTP client. Its own Timeout is left untouched;
// the per-request timeout is applied through the request context.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithMaxSize caps a single response body, in bytes.
func WithMaxSize(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxSize = n
		}
	}
}

// WithWorkers bounds the number of concurrent downloads.
func WithWorkers(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.workers = n
		}
	}
}

// WithURLGuard rejects URLs before any connection is made, e.g.
// netguard.ValidateURL to refuse private addresses. Every redirect target
// goes through the guard too.
func WithURLGuard(g func(context.Context, string) error) Option {
	return func(f *Fetcher) { f.guard = g }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) { f.ua = ua }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// New creates a Fetcher with the package defaults.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:  &http.Client{},
		timeout: DefaultTimeout,
		maxSize: DefaultMaxSize,
		workers: DefaultWorkers,
		ua:      "hojadevida/1.0 (+certificate export)",
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(f)
	}
	// Copy so a client passed with WithClient is not modified.
	client := *f.client
	client.CheckRedirect = f.checkRedirect
	f.client = &client
	return f
}

func (f *Fetcher) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= MaxRedirects {
		return fmt.Errorf("%w (%d)", ErrRedirect, len(via))
	}
	if f.guard == nil {
		return nil
	}
	if err := f.guard(req.Context(), req.URL.String()); err != nil {
		return fmt.Errorf("fetch: redirect to %s: %w", req.URL.Redacted(), err)
	}
	return nil
}

// FetchAll downloads every URL and returns one Result per input, at the
// input's index. It never returns early: a cancelled ctx turns the
// remaining slots into failures.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) []Result {
	results := make([]Result, len(urls))
	if len(urls) == 0 {
		return results
	}

	sem := make(chan struct{}, f.workers)
	var wg sync.WaitGroup
	for i, u := range urls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results[i] = Result{URL: u, Err: &Failure{URL: u, Err: ctx.Err()}}
				return
			}
			defer func() { <-sem }()
			results[i] = f.Fetch(ctx, u)
		}()
	}
	wg.Wait()
	return results
}

// Fetch downloads one URL.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) Result {
	start := time.Now()
	body, err := f.fetch(ctx, rawURL)
	res := Result{URL: rawURL, Body: body, Err: err, Duration: time.Since(start)}
	if err != nil {
		res.Body = nil
		f.logger.Debug("fetch: failed", "url", rawURL, "error", err, "duration", res.Duration)
		return res
	}
	f.logger.Debug("fetch: fetched", "url", rawURL, "size", len(body), "duration", res.Duration)
	return res
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if f.guard != nil {
		if err := f.guard(ctx, rawURL); err != nil {
			return nil, &Failure{URL: rawURL, Err: err}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Failure{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", f.ua)
	req.Header.Set("Accept", "application/pdf,*/*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &Failure{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Failure{URL: rawURL, Status: resp.StatusCode}
	}

	body, err := netguard.LimitedReadAll(resp.Body, f.maxSize)
	if err != nil {
		return nil, &Failure{URL: rawURL, Err: err}
	}
	if !bytes.HasPrefix(body, pdfMagic) {
		return nil, &Failure{URL: rawURL, Err: ErrNotDocument}
	}
	return body, nil
}
