// CLAUDE:SUMMARY CV renderer: embedded html/template pages (screen, print, empty), bluemonday rich text, Printer-backed PDF, html-to-markdown export.
// Package render turns a cv.View into HTML, PDF and Markdown.
//
// The screen page shows every section the profile allows, with attachment
// links and previews. The print page shows the sections of the export
// selection and never references remote content, so the PDF does not
// depend on the network.
//
//	r, err := render.New(render.Config{Printer: render.NewRodPrinter(browser.NewManager(browser.Config{}))})
//	pdf, err := r.PDF(ctx, view)
package render

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/hojadevida/attachment"
	"github.com/hazyhaar/hojadevida/cv"
)

//go:embed templates/*.html
var templateFS embed.FS

// ErrRender is returned when a template or the printer fails. Nothing is
// written to the caller in that case.
var ErrRender = errors.New("render: failed")

// Printer converts a self-contained HTML document to PDF.
type Printer interface {
	PrintPDF(ctx context.Context, html string) ([]byte, error)
}

// Config configures a Renderer.
type Config struct {
	// Printer produces the primary PDF. Required for PDF only.
	Printer Printer

	// AdminPath is linked from the no-profile page. Empty hides the link.
	AdminPath string

	Logger *slog.Logger
}

// Renderer renders CV views.
type Renderer struct {
	tmpl      *template.Template
	policy    *bluemonday.Policy
	md        *converter.Converter
	printer   Printer
	adminPath string
	logger    *slog.Logger
}

// New parses the embedded templates.
func New(cfg Config) (*Renderer, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	r := &Renderer{
		policy:    bluemonday.UGCPolicy(),
		printer:   cfg.Printer,
		adminPath: cfg.AdminPath,
		logger:    cfg.Logger,
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
	tmpl, err := template.New("cv").Funcs(r.funcs()).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("render: parse templates: %w", err)
	}
	r.tmpl = tmpl
	return r, nil
}

// page is the template data: the view plus which sections to show.
type page struct {
	*cv.View
	print bool
}

// Show reports whether the named section is rendered. The screen page
// honours both the selection and the profile's own flags; the print page
// follows the export selection only.
func (p page) Show(name string) bool {
	sec := cv.Section(name)
	if !p.Selection.Includes(sec) {
		return false
	}
	return p.print || p.Profile.Shows(sec)
}

// docLink is the data of the "attachment" template.
type docLink struct {
	Path     string
	Resolved *attachment.Resolved
	Thumb    string
}

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true}

func newDocLink(kind string, id int64, res *attachment.Resolved) docLink {
	d := docLink{Path: fmt.Sprintf("/doc/%s/%d/", kind, id), Resolved: res}
	if res == nil {
		return d
	}
	// Only show an image when there is one: a transformed preview or a
	// locator that is itself an image.
	if res.Preview != res.Locator || imageExts[strings.ToLower(path.Ext(res.Locator))] {
		d.Thumb = res.Preview
	}
	return d
}

func (r *Renderer) funcs() template.FuncMap {
	return template.FuncMap{
		"rich": func(s string) template.HTML {
			return template.HTML(r.policy.Sanitize(s))
		},
		"date":   formatDate,
		"period": period,
		"money":  func(v float64) string { return fmt.Sprintf("%.2f", v) },
		"doc":    newDocLink,
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006")
}

func period(start, end time.Time) string {
	switch {
	case start.IsZero() && end.IsZero():
		return ""
	case end.IsZero():
		return formatDate(start) + " – Actualidad"
	case start.IsZero():
		return formatDate(end)
	}
	return formatDate(start) + " – " + formatDate(end)
}

func (r *Renderer) execute(w io.Writer, name string, data any) error {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("%w: template %s: %v", ErrRender, name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// HTML renders the screen page of v.
func (r *Renderer) HTML(w io.Writer, v *cv.View) error {
	return r.execute(w, "detail", page{View: v})
}

// NoProfile renders the page shown when no profile is active.
func (r *Renderer) NoProfile(w io.Writer) error {
	return r.execute(w, "empty", struct{ AdminPath string }{r.adminPath})
}

// PrintHTML renders the print page of v. Output is deterministic for a
// given view.
func (r *Renderer) PrintHTML(v *cv.View) (string, error) {
	var sb strings.Builder
	if err := r.execute(&sb, "print", page{View: v, print: true}); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// PDF renders the print page of v and converts it with the Printer.
func (r *Renderer) PDF(ctx context.Context, v *cv.View) ([]byte, error) {
	if r.printer == nil {
		return nil, fmt.Errorf("%w: no printer configured", ErrRender)
	}
	html, err := r.PrintHTML(v)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	pdf, err := r.printer.PrintPDF(ctx, html)
	if err != nil {
		return nil, fmt.Errorf("%w: print: %v", ErrRender, err)
	}
	r.logger.Debug("render: printed", "profile_id", v.Profile.ID, "bytes", len(pdf), "duration", time.Since(start))
	return pdf, nil
}

// Markdown renders v as Markdown, converted from the print page.
func (r *Renderer) Markdown(v *cv.View) (string, error) {
	html, err := r.PrintHTML(v)
	if err != nil {
		return "", err
	}
	md, err := r.md.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("%w: markdown: %v", ErrRender, err)
	}
	return strings.TrimSpace(md) + "\n", nil
}
