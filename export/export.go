// CLAUDE:SUMMARY Export pipeline: select → render primary PDF → bounded fetch of attachment documents → merge in fixed order, skipping failed fetches.
// Package export assembles the merged CV document: the rendered profile
// followed by every attachment document of the selected sections.
//
// A failed attachment download is logged, counted and skipped; the export
// still succeeds with the remaining documents. A failed render or merge
// fails the whole export and no partial document is returned.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/hazyhaar/hojadevida/cv"
	"github.com/hazyhaar/hojadevida/fetch"
	"github.com/hazyhaar/hojadevida/kit"
	"github.com/hazyhaar/hojadevida/observability"
	"github.com/hazyhaar/hojadevida/pdfdoc"
)

// Viewer loads the enriched view of a profile. Implemented by *cv.Service.
type Viewer interface {
	View(ctx context.Context, profileID int64, sel cv.Selection) (*cv.View, error)
}

// Renderer produces the primary PDF. Implemented by *render.Renderer.
type Renderer interface {
	PDF(ctx context.Context, v *cv.View) ([]byte, error)
}

// Fetcher downloads attachment documents. Implemented by *fetch.Fetcher.
type Fetcher interface {
	FetchAll(ctx context.Context, urls []string) []fetch.Result
}

// Config wires an Exporter. Metrics and Events may be nil.
type Config struct {
	Views    Viewer
	Renderer Renderer
	Fetcher  Fetcher
	Metrics  *observability.MetricsManager
	Events   *observability.EventLogger
	Logger   *slog.Logger
}

// Exporter runs exports. Safe for concurrent use; nothing is cached
// between calls.
type Exporter struct {
	views    Viewer
	renderer Renderer
	fetcher  Fetcher
	metrics  *observability.MetricsManager
	events   *observability.EventLogger
	logger   *slog.Logger
}

// New creates an Exporter.
func New(cfg Config) *Exporter {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Exporter{
		views:    cfg.Views,
		renderer: cfg.Renderer,
		fetcher:  cfg.Fetcher,
		metrics:  cfg.Metrics,
		events:   cfg.Events,
		logger:   cfg.Logger,
	}
}

// Skipped is an attachment left out of an export.
type Skipped struct {
	Section  cv.Section `json:"section"`
	RecordID int64      `json:"record_id"`
	URL      string     `json:"url"`
	Reason   string     `json:"reason"`
}

// Document is a finished export.
type Document struct {
	Filename string
	Body     []byte
	Merged   int       // attachment documents appended
	Skipped  []Skipped // attachments that could not be fetched
}

// Export renders profileID with the sections of sel and appends the
// selected attachment documents in merge order.
func (e *Exporter) Export(ctx context.Context, profileID int64, sel cv.Selection) (*Document, error) {
	start := time.Now()
	doc, err := e.export(ctx, profileID, sel)
	e.record(ctx, profileID, sel, doc, err, time.Since(start))
	return doc, err
}

func (e *Exporter) export(ctx context.Context, profileID int64, sel cv.Selection) (*Document, error) {
	log := e.logger.With("profile_id", profileID)
	if id := kit.GetTraceID(ctx); id != "" {
		log = log.With("trace_id", id)
	}

	v, err := e.views.View(ctx, profileID, sel)
	if err != nil {
		return nil, err
	}

	renderStart := time.Now()
	primary, err := e.renderer.PDF(ctx, v)
	if err != nil {
		return nil, err
	}
	e.metrics.RecordSimple(observability.MetricRenderDurationMs, float64(time.Since(renderStart).Milliseconds()), "milliseconds")

	entries := v.Attachments()
	urls := make([]string, len(entries))
	for i, a := range entries {
		urls[i] = a.Locator
	}

	doc := &Document{Filename: Filename(v.Profile)}
	parts := make([][]byte, 0, len(entries))
	for i, res := range e.fetcher.FetchAll(ctx, urls) {
		if res.Err != nil {
			a := entries[i]
			log.Warn("export: attachment skipped",
				"section", a.Section, "record_id", a.RecordID, "url", a.Locator, "error", res.Err)
			e.metrics.RecordLabeled(observability.MetricAttachmentFailures, 1, "count",
				map[string]string{"section": string(a.Section), "reason": reason(res.Err)})
			doc.Skipped = append(doc.Skipped, Skipped{
				Section: a.Section, RecordID: a.RecordID, URL: a.Locator, Reason: res.Err.Error(),
			})
			continue
		}
		parts = append(parts, res.Body)
	}

	body, err := pdfdoc.Merge(primary, parts...)
	if err != nil {
		return nil, err
	}
	doc.Body = body
	doc.Merged = len(parts)

	log.Info("export: done", "attachments", len(entries), "merged", doc.Merged,
		"skipped", len(doc.Skipped), "bytes", len(body))
	return doc, nil
}

// reason is a low-cardinality label for a fetch failure.
func reason(err error) string {
	var f *fetch.Failure
	switch {
	case errors.Is(err, fetch.ErrNotDocument):
		return "not_pdf"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &f) && f.Status != 0:
		return "status_" + strconv.Itoa(f.Status)
	}
	return "error"
}

func (e *Exporter) record(ctx context.Context, profileID int64, sel cv.Selection, doc *Document, err error, d time.Duration) {
	ev := observability.BusinessEvent{
		EventType:  observability.EventExport,
		EntityType: "profile",
		EntityID:   strconv.FormatInt(profileID, 10),
		Action:     "export",
		Success:    err == nil,
	}
	if err != nil {
		e.metrics.RecordSimple(observability.MetricExportFailures, 1, "count")
		ev.Details = map[string]any{"selection": sel, "error": err.Error()}
		e.events.LogEvent(ctx, ev)
		return
	}
	e.metrics.RecordSimple(observability.MetricExportDurationMs, float64(d.Milliseconds()), "milliseconds")
	e.metrics.RecordSimple(observability.MetricExportBytes, float64(len(doc.Body)), "bytes")
	e.metrics.RecordSimple(observability.MetricAttachmentsMerged, float64(doc.Merged), "count")
	ev.Details = map[string]any{"selection": sel, "merged": doc.Merged, "skipped": len(doc.Skipped)}
	e.events.LogEvent(ctx, ev)
}

// Filename is the download name of a profile's export:
// CV_<names>_<surnames>.pdf. Characters that would break a quoted
// Content-Disposition value are replaced.
func Filename(p *cv.Profile) string {
	name := fmt.Sprintf("CV_%s_%s.pdf", p.Names, p.Surnames)
	return strings.Map(func(r rune) rune {
		switch {
		case r == '"' || r == '\\' || r == '/' || r < 0x20 || r == 0x7f:
			return '_'
		}
		return r
	}, name)
}
