package web

import (
	"context"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/net/html"

	"github.com/hazyhaar/hojadevida/attachment"
	"github.com/hazyhaar/hojadevida/cv"
	"github.com/hazyhaar/hojadevida/cvstore"
	"github.com/hazyhaar/hojadevida/dbopen"
	"github.com/hazyhaar/hojadevida/export"
	"github.com/hazyhaar/hojadevida/fetch"
	"github.com/hazyhaar/hojadevida/observability"
	"github.com/hazyhaar/hojadevida/pdfdoc"
	"github.com/hazyhaar/hojadevida/pdfdoc/pdfdoctest"
	"github.com/hazyhaar/hojadevida/render"
	"github.com/hazyhaar/hojadevida/shield"
	"github.com/hazyhaar/hojadevida/sqltrace"
	"github.com/hazyhaar/hojadevida/uploads"
)

const (
	adminUser = "admin"
	adminPass = "s3cret-pass"
)

// pagePrinter prints a one-page PDF reading "CV".
type pagePrinter struct{}

func (pagePrinter) PrintPDF(context.Context, string) ([]byte, error) {
	return pdfdoctest.Build("CV"), nil
}

// fakeUploads accepts PDFs and keeps them nowhere.
type fakeUploads struct {
	puts []string
}

func (f *fakeUploads) Put(_ context.Context, sec cv.Section, filename, contentType string, r io.Reader, _ int64) (string, error) {
	if contentType != "application/pdf" {
		return "", uploads.ErrInvalidFile
	}
	io.Copy(io.Discard, r)
	key := "certificados/" + string(sec) + "/" + filename
	f.puts = append(f.puts, key)
	return key, nil
}

func (f *fakeUploads) FileURL(key string) string { return "https://files.example.com/" + key }

// fakeTraces serves one recorded statement.
type fakeTraces struct {
	limit int
}

func (f *fakeTraces) Slowest(_ context.Context, limit int) ([]sqltrace.Entry, error) {
	f.limit = limit
	return []sqltrace.Entry{{Op: "query", Query: "SELECT * FROM courses", Duration: time.Second}}, nil
}

type env struct {
	srv     *httptest.Server
	store   *cvstore.Store
	files   *fakeUploads
	traces  *fakeTraces
	docs    *httptest.Server
	profile int64
}

type envOption func(*testing.T, *cvstore.Store)

// withPrintLimit sets the print rate limit before the server loads it.
func withPrintLimit(max int) envOption {
	return func(t *testing.T, st *cvstore.Store) {
		if _, err := st.DB().Exec(`UPDATE rate_limits SET max_requests = ? WHERE endpoint = 'GET /{profileID}/print/'`, max); err != nil {
			t.Fatal(err)
		}
	}
}

func newEnv(t *testing.T, opts ...envOption) *env {
	t.Helper()
	db := dbopen.OpenMemory(t, dbopen.WithSchema(cvstore.Schema), dbopen.WithSchema(observability.Schema), dbopen.WithSchema(shield.Schema))
	st := cvstore.New(db)
	for _, o := range opts {
		o(t, st)
	}

	docs := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/"), ".pdf")
		if name == "missing" {
			http.NotFound(w, r)
			return
		}
		w.Write(pdfdoctest.Build(name))
	}))
	t.Cleanup(docs.Close)

	files := &fakeUploads{}
	svc := cv.NewService(st, attachment.NewResolver(files), nil)
	rend, err := render.New(render.Config{Printer: pagePrinter{}, AdminPath: "/admin/"})
	if err != nil {
		t.Fatal(err)
	}
	exp := export.New(export.Config{
		Views:    svc,
		Renderer: rend,
		Fetcher:  fetch.New(fetch.WithTimeout(2 * time.Second)),
	})
	hash, err := bcrypt.GenerateFromPassword([]byte(adminPass), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	traces := &fakeTraces{}
	s, err := New(Config{
		DB:        db,
		Store:     st,
		Service:   svc,
		Renderer:  rend,
		Exporter:  exp,
		Uploads:   files,
		SQLTraces: traces,
		Admin:     AdminConfig{User: adminUser, PasswordHash: string(hash)},
		Events:    observability.NewEventLogger(db, "hojadevida-test"),
	})
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return &env{srv: srv, store: st, files: files, traces: traces, docs: docs}
}

// seed stores an active profile with one course linking to the doc server.
func (e *env) seed(t *testing.T) int64 {
	t.Helper()
	ctx := context.Background()
	p := &cv.Profile{Names: "Ana", Surnames: "Vera", Active: true,
		ShowExperience: true, ShowCourses: true, ShowRecognitions: true, ShowAcademic: true, ShowLabor: true}
	pid, err := e.store.SaveProfile(ctx, p)
	if err != nil {
		t.Fatal(err)
	}
	_, err = e.store.SaveCourse(ctx, &cv.Course{ProfileID: pid, Name: "Go avanzado", Visible: true,
		StartDate: time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC), Attachment: attachment.NewRef("", e.docs.URL+"/course.pdf")})
	if err != nil {
		t.Fatal(err)
	}
	e.profile = pid
	return pid
}

// noRedirect is a client that reports redirects instead of following them.
var noRedirect = &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}

func (e *env) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := noRedirect.Get(e.srv.URL + path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func body(t *testing.T, resp *http.Response) []byte {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

// findNode returns the first node matching pred in document order.
func findNode(n *html.Node, pred func(*html.Node) bool) *html.Node {
	if pred(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if f := findNode(c, pred); f != nil {
			return f
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func TestHome(t *testing.T) {
	e := newEnv(t)
	resp := e.get(t, "/")
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/sin-datos/" {
		t.Fatalf("no profile: %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	pid := e.seed(t)
	resp = e.get(t, "/")
	want := "/" + strconv.FormatInt(pid, 10) + "/"
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != want {
		t.Fatalf("active profile: %d %q, want %q", resp.StatusCode, resp.Header.Get("Location"), want)
	}
}

func TestNoProfilePage(t *testing.T) {
	e := newEnv(t)
	resp := e.get(t, "/sin-datos/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if !strings.Contains(string(body(t, resp)), "No hay perfiles activos") {
		t.Fatal("missing no-profile message")
	}
}

func TestDetail(t *testing.T) {
	e := newEnv(t)
	pid := e.seed(t)

	resp := e.get(t, "/"+strconv.FormatInt(pid, 10)+"/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Trace-ID") == "" {
		t.Error("trace middleware not mounted")
	}
	doc, err := html.Parse(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	form := findNode(doc, func(n *html.Node) bool { return n.Type == html.ElementNode && n.Data == "form" })
	if form == nil {
		t.Fatal("print options form missing")
	}
	if got, want := attr(form, "action"), "/"+strconv.FormatInt(pid, 10)+"/print/"; got != want {
		t.Fatalf("form action %q, want %q", got, want)
	}
	garage := findNode(form, func(n *html.Node) bool { return n.Data == "input" && attr(n, "name") == "garage" })
	if garage == nil {
		t.Fatal("marketplace toggle missing")
	}
	for _, a := range garage.Attr {
		if a.Key == "checked" {
			t.Fatal("marketplace toggle must start unchecked")
		}
	}
	course := findNode(doc, func(n *html.Node) bool { return n.Type == html.TextNode && strings.Contains(n.Data, "Go avanzado") })
	if course == nil {
		t.Fatal("course not rendered")
	}
}

func TestDetail_NotFound(t *testing.T) {
	e := newEnv(t)
	e.seed(t)
	for _, path := range []string{"/999/", "/abc/", "/999/print/", "/999/markdown/"} {
		if resp := e.get(t, path); resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s: status %d, want 404", path, resp.StatusCode)
		}
	}
}

func TestPrint(t *testing.T) {
	e := newEnv(t)
	pid := e.seed(t)
	base := "/" + strconv.FormatInt(pid, 10) + "/print/"

	resp := e.get(t, base)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", resp.StatusCode, body(t, resp))
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("content type %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); cd != "inline; filename=CV_Ana_Vera.pdf" {
		t.Fatalf("content disposition %q", cd)
	}
	pages, err := pdfdoc.PageTexts(body(t, resp))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(pages, "|") != "CV|course" {
		t.Fatalf("pages %q", pages)
	}

	// The modal with every box unticked exports the profile alone.
	resp = e.get(t, base+"?from_modal=true")
	pages, err = pdfdoc.PageTexts(body(t, resp))
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 1 {
		t.Fatalf("pages %q", pages)
	}
}

func TestPrint_AccentedFilename(t *testing.T) {
	e := newEnv(t)
	pid, err := e.store.SaveProfile(context.Background(), &cv.Profile{Names: "José", Surnames: "Núñez", Active: true})
	if err != nil {
		t.Fatal(err)
	}
	resp := e.get(t, "/"+strconv.FormatInt(pid, 10)+"/print/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", resp.StatusCode, body(t, resp))
	}
	cd := resp.Header.Get("Content-Disposition")
	if !strings.Contains(cd, "filename*=") {
		t.Fatalf("content disposition %q lacks extended filename", cd)
	}
	disp, params, err := mime.ParseMediaType(cd)
	if err != nil {
		t.Fatalf("parse %q: %v", cd, err)
	}
	if disp != "inline" || params["filename"] != "CV_José_Núñez.pdf" {
		t.Fatalf("got %q %q", disp, params)
	}
}

func TestPrint_BrokenAttachmentStillExports(t *testing.T) {
	e := newEnv(t)
	pid := e.seed(t)
	_, err := e.store.SaveRecognition(context.Background(), &cv.Recognition{ProfileID: pid, Kind: cv.RecognitionPublic,
		Visible: true, Attachment: attachment.NewRef("", e.docs.URL+"/missing.pdf")})
	if err != nil {
		t.Fatal(err)
	}
	resp := e.get(t, "/"+strconv.FormatInt(pid, 10)+"/print/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	n, err := pdfdoc.PageCount(body(t, resp))
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("pages %d, want 2", n)
	}
}

func TestPrint_RateLimited(t *testing.T) {
	e := newEnv(t, withPrintLimit(1))
	pid := e.seed(t)
	path := "/" + strconv.FormatInt(pid, 10) + "/print/?from_modal=true"

	if resp := e.get(t, path); resp.StatusCode != http.StatusOK {
		t.Fatalf("first: %d", resp.StatusCode)
	}
	resp := e.get(t, path)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second: %d, want 429", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Error("Retry-After missing")
	}
	// The screen page is not limited.
	if resp := e.get(t, "/"+strconv.FormatInt(pid, 10)+"/"); resp.StatusCode != http.StatusOK {
		t.Fatalf("detail: %d", resp.StatusCode)
	}
}

func TestMarkdown(t *testing.T) {
	e := newEnv(t)
	pid := e.seed(t)
	resp := e.get(t, "/"+strconv.FormatInt(pid, 10)+"/markdown/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/markdown") {
		t.Fatalf("content type %q", resp.Header.Get("Content-Type"))
	}
	md := string(body(t, resp))
	if !strings.Contains(md, "# Ana Vera") || !strings.Contains(md, "Go avanzado") {
		t.Fatalf("markdown:\n%s", md)
	}
}

func TestDocumentRedirect(t *testing.T) {
	e := newEnv(t)
	pid := e.seed(t)
	ctx := context.Background()

	linked, _ := e.store.SaveExperience(ctx, &cv.WorkExperience{ProfileID: pid, Position: "Dev", Visible: true,
		Attachment: attachment.NewRef("", "https://drive.example.com/cert.pdf")})
	both, _ := e.store.SaveExperience(ctx, &cv.WorkExperience{ProfileID: pid, Position: "Lead", Visible: true,
		Attachment: attachment.NewRef("", "https://drive.example.com/old.pdf")})
	if err := e.store.SetAttachmentFile(ctx, cv.SectionExperience, both, "certificados/experience/new.pdf"); err != nil {
		t.Fatal(err)
	}
	bare, _ := e.store.SaveRecognition(ctx, &cv.Recognition{ProfileID: pid, Kind: cv.RecognitionPrivate, Visible: true})

	id := func(n int64) string { return strconv.FormatInt(n, 10) }
	tests := []struct {
		path     string
		code     int
		location string
	}{
		{"/doc/exp/" + id(linked) + "/", http.StatusFound, "https://drive.example.com/cert.pdf"},
		{"/doc/exp/" + id(both) + "/", http.StatusFound, "https://files.example.com/certificados/experience/new.pdf"},
		{"/doc/rec/" + id(bare) + "/", http.StatusFound, "/"},
		{"/doc/cursos/999/", http.StatusNotFound, ""},
		{"/doc/acad/1/", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		resp := e.get(t, tt.path)
		if resp.StatusCode != tt.code || resp.Header.Get("Location") != tt.location {
			t.Errorf("%s: %d %q, want %d %q", tt.path, resp.StatusCode, resp.Header.Get("Location"), tt.code, tt.location)
		}
	}
}

func TestHealthz(t *testing.T) {
	e := newEnv(t)
	resp := e.get(t, "/healthz")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body(t, resp)), `"ok"`) {
		t.Fatalf("healthz: %d", resp.StatusCode)
	}
}
