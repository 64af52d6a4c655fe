package export

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hazyhaar/hojadevida/attachment"
	"github.com/hazyhaar/hojadevida/cv"
	"github.com/hazyhaar/hojadevida/cvstore"
	"github.com/hazyhaar/hojadevida/dbopen"
	"github.com/hazyhaar/hojadevida/fetch"
	"github.com/hazyhaar/hojadevida/observability"
	"github.com/hazyhaar/hojadevida/pdfdoc"
	"github.com/hazyhaar/hojadevida/pdfdoc/pdfdoctest"
)

// stubRenderer prints a one-page PDF naming the sections of the view.
type stubRenderer struct {
	err error
}

func (r stubRenderer) PDF(_ context.Context, v *cv.View) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	return pdfdoctest.Build("CV " + v.Profile.FullName()), nil
}

// docServer serves /<name>.pdf as a one-page PDF showing <name>, and
// counts requests.
type docServer struct {
	*httptest.Server
	hits atomic.Int32
}

func newDocServer(t *testing.T) *docServer {
	t.Helper()
	s := &docServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/"), ".pdf")
		switch {
		case strings.HasPrefix(name, "broken"):
			http.Error(w, "gone", http.StatusNotFound)
		case strings.HasPrefix(name, "slow"):
			time.Sleep(300 * time.Millisecond)
			w.Write(pdfdoctest.Build(name))
		default:
			if name == "first" {
				// Finish last so completion order differs from merge order.
				time.Sleep(50 * time.Millisecond)
			}
			w.Write(pdfdoctest.Build(name))
		}
	}))
	t.Cleanup(s.Close)
	return s
}

// files maps uploaded-file keys onto the server, as object storage would.
func (s *docServer) files() attachment.FileURLs {
	return attachment.FileURLFunc(func(key string) string { return s.URL + "/" + key })
}

func setup(t *testing.T) (*cvstore.Store, int64, *docServer) {
	t.Helper()
	db := dbopen.OpenMemory(t, dbopen.WithSchema(cvstore.Schema), dbopen.WithSchema(observability.Schema))
	st := cvstore.New(db)
	docs := newDocServer(t)
	ctx := context.Background()

	pid, err := st.SaveProfile(ctx, &cv.Profile{Names: "Ana", Surnames: "Vera", Active: true})
	if err != nil {
		t.Fatal(err)
	}
	day := func(y int, m time.Month) time.Time { return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC) }
	link := func(name string) attachment.Ref { return attachment.NewRef("", docs.URL+"/"+name+".pdf") }

	mustSave := func(_ int64, err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	mustSave(st.SaveExperience(ctx, &cv.WorkExperience{ProfileID: pid, Position: "Lead", StartDate: day(2022, 1), Visible: true, Attachment: link("first")}))
	mustSave(st.SaveExperience(ctx, &cv.WorkExperience{ProfileID: pid, Position: "Dev", StartDate: day(2019, 1), Visible: true, Attachment: link("broken-exp")}))
	mustSave(st.SaveExperience(ctx, &cv.WorkExperience{ProfileID: pid, Position: "Intern", StartDate: day(2017, 1), Visible: true,
		Attachment: attachment.NewRef("", docs.URL+"/photo.png")}))
	mustSave(st.SaveCourse(ctx, &cv.Course{ProfileID: pid, Name: "Go", StartDate: day(2021, 1), Visible: true, Attachment: link("course")}))
	mustSave(st.SaveRecognition(ctx, &cv.Recognition{ProfileID: pid, Kind: cv.RecognitionPublic, Date: day(2020, 5), Visible: true, Attachment: link("award")}))
	mustSave(st.SaveListing(ctx, &cv.Listing{ProfileID: pid, Product: "Mesa", Price: 10, Condition: "Bueno", PublishedAt: day(2026, 1), Active: true, Attachment: attachment.NewRef("invoice.pdf", "")}))
	return st, pid, docs
}

func newExporter(st *cvstore.Store, files attachment.FileURLs, r Renderer, metrics *observability.MetricsManager, events *observability.EventLogger) *Exporter {
	return New(Config{
		Views:    cv.NewService(st, attachment.NewResolver(files), nil),
		Renderer: r,
		Fetcher:  fetch.New(fetch.WithTimeout(time.Second)),
		Metrics:  metrics,
		Events:   events,
	})
}

func pageTexts(t *testing.T, doc []byte) []string {
	t.Helper()
	texts, err := pdfdoc.PageTexts(doc)
	if err != nil {
		t.Fatal(err)
	}
	return texts
}

func TestExport_SkipsFailedAttachmentAndKeepsOrder(t *testing.T) {
	st, pid, docs := setup(t)
	events := observability.NewEventLogger(st.DB(), "hojadevida")
	e := newExporter(st, docs.files(), stubRenderer{}, nil, events)

	sel := cv.DefaultSelection()
	doc, err := e.Export(context.Background(), pid, sel)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Filename != "CV_Ana_Vera.pdf" {
		t.Fatalf("filename: %q", doc.Filename)
	}
	// exp "first", exp "broken-exp" (404), course, award; marketplace is
	// off by default and the png link is not a document.
	if doc.Merged != 3 || len(doc.Skipped) != 1 {
		t.Fatalf("merged=%d skipped=%+v", doc.Merged, doc.Skipped)
	}
	if doc.Skipped[0].Section != cv.SectionExperience || !strings.Contains(doc.Skipped[0].URL, "broken-exp") {
		t.Fatalf("skipped: %+v", doc.Skipped[0])
	}

	want := []string{"CV Ana Vera", "first", "course", "award"}
	got := pageTexts(t, doc.Body)
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("pages: got %q, want %q", got, want)
	}
	if n := docs.hits.Load(); n != 4 {
		t.Fatalf("downloads: got %d, want 4", n)
	}

	var success int
	st.DB().QueryRow(`SELECT success FROM cv_events WHERE type = ?`, observability.EventExport).Scan(&success)
	if success != 1 {
		t.Fatal("export event not recorded as success")
	}
}

func TestExport_ToggledOffSectionsFetchNothing(t *testing.T) {
	st, pid, docs := setup(t)
	e := newExporter(st, docs.files(), stubRenderer{}, nil, nil)

	doc, err := e.Export(context.Background(), pid, cv.Selection{Academic: true, Labor: true})
	if err != nil {
		t.Fatal(err)
	}
	if doc.Merged != 0 || len(doc.Skipped) != 0 {
		t.Fatalf("merged=%d skipped=%d", doc.Merged, len(doc.Skipped))
	}
	if n := docs.hits.Load(); n != 0 {
		t.Fatalf("downloads with attachment sections off: %d", n)
	}
	if got := pageTexts(t, doc.Body); len(got) != 1 {
		t.Fatalf("pages: %q", got)
	}
}

func TestExport_MarketplaceLast(t *testing.T) {
	st, pid, docs := setup(t)
	e := newExporter(st, docs.files(), stubRenderer{}, nil, nil)

	sel := cv.Selection{Courses: true, Marketplace: true, Recognitions: true}
	want := "CV Ana Vera|course|award|invoice"
	for i := range 3 {
		doc, err := e.Export(context.Background(), pid, sel)
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if doc.Merged != 3 || len(doc.Skipped) != 0 {
			t.Fatalf("run %d: merged=%d skipped=%+v", i, doc.Merged, doc.Skipped)
		}
		if got := strings.Join(pageTexts(t, doc.Body), "|"); got != want {
			t.Fatalf("run %d pages: got %q, want %q", i, got, want)
		}
	}
	if n := docs.hits.Load(); n != 9 {
		t.Fatalf("downloads: got %d, want 9", n)
	}
}

func TestExport_RenderFailureIsFatal(t *testing.T) {
	st, pid, docs := setup(t)
	metrics := observability.NewMetricsManager(st.DB(), 100, time.Hour)
	e := newExporter(st, docs.files(), stubRenderer{err: errors.New("printer down")}, metrics, nil)

	doc, err := e.Export(context.Background(), pid, cv.DefaultSelection())
	if err == nil || doc != nil {
		t.Fatalf("doc=%v err=%v", doc, err)
	}
	if docs.hits.Load() != 0 {
		t.Fatal("attachments fetched after render failure")
	}
	metrics.Flush()
	got, err := metrics.Query(context.Background(), observability.MetricFilter{Name: observability.MetricExportFailures})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("failure metrics: %d", len(got))
	}
	metrics.Close()
}

func TestExport_UnknownProfile(t *testing.T) {
	st, _, docs := setup(t)
	e := newExporter(st, docs.files(), stubRenderer{}, nil, nil)
	if _, err := e.Export(context.Background(), 999, cv.DefaultSelection()); !errors.Is(err, cv.ErrNotFound) {
		t.Fatalf("got %v", err)
	}
}

func TestExport_CorruptAttachmentFailsMerge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("%PDF-1.4\nnot really a pdf"))
	}))
	defer srv.Close()

	db := dbopen.OpenMemory(t, dbopen.WithSchema(cvstore.Schema))
	st := cvstore.New(db)
	ctx := context.Background()
	pid, _ := st.SaveProfile(ctx, &cv.Profile{Names: "A", Active: true})
	st.SaveCourse(ctx, &cv.Course{ProfileID: pid, Name: "x", Visible: true, Attachment: attachment.NewRef("", srv.URL+"/c.pdf")})

	_, err := newExporter(st, nil, stubRenderer{}, nil, nil).Export(ctx, pid, cv.DefaultSelection())
	if !errors.Is(err, pdfdoc.ErrMerge) {
		t.Fatalf("got %v, want ErrMerge", err)
	}
}

func TestFilename(t *testing.T) {
	tests := []struct {
		names, surnames, want string
	}{
		{"Ana", "Vera", "CV_Ana_Vera.pdf"},
		{"José María", "Peña", "CV_José María_Peña.pdf"},
		{`Ana "La"`, `V\e`, "CV_Ana _La__V_e.pdf"},
	}
	for _, tt := range tests {
		if got := Filename(&cv.Profile{Names: tt.names, Surnames: tt.surnames}); got != tt.want {
			t.Errorf("Filename(%q, %q) = %q, want %q", tt.names, tt.surnames, got, tt.want)
		}
	}
}

func TestReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&fetch.Failure{Status: 404}, "status_404"},
		{&fetch.Failure{Err: fetch.ErrNotDocument}, "not_pdf"},
		{&fetch.Failure{Err: context.DeadlineExceeded}, "timeout"},
		{&fetch.Failure{Err: errors.New("dial tcp: refused")}, "error"},
	}
	for _, tt := range tests {
		if got := reason(tt.err); got != tt.want {
			t.Errorf("reason(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
