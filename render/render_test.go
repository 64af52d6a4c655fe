package render

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/hojadevida/attachment"
	"github.com/hazyhaar/hojadevida/cv"
)

type fakePrinter struct {
	html string
	out  []byte
	err  error
}

func (p *fakePrinter) PrintPDF(_ context.Context, html string) ([]byte, error) {
	p.html = html
	return p.out, p.err
}

func testView(sel cv.Selection) *cv.View {
	res := attachment.NewResolver(attachment.FileURLFunc(func(k string) string {
		return "https://res.cloudinary.com/demo/image/upload/" + k
	}))
	d := func(y int, m time.Month, day int) time.Time { return time.Date(y, m, day, 0, 0, 0, 0, time.UTC) }
	v := &cv.View{
		Profile: &cv.Profile{
			ID: 7, Names: "Ana", Surnames: "Vera", PhotoURL: "https://img.example.com/ana.jpg",
			Description:    `<p>Ingeniera <b>backend</b></p><script>alert(1)</script>`,
			Email:          "ana@example.com",
			ShowExperience: true, ShowCourses: true, ShowRecognitions: true,
			ShowAcademic: true, ShowLabor: false, ShowMarketplace: true,
		},
		Selection: sel,
	}
	if sel.Experience {
		v.Experience = cv.Enrich(res, []cv.WorkExperience{
			{ID: 2, Position: "Lead", Company: "Acme", StartDate: d(2022, 1, 10), Attachment: attachment.NewRef("exp/b.pdf", "")},
		})
	}
	if sel.Courses {
		v.Courses = cv.Enrich(res, []cv.Course{
			{ID: 5, Name: "Go avanzado", TotalHours: 40, StartDate: d(2021, 2, 1), EndDate: d(2021, 3, 1)},
		})
	}
	if sel.Labor {
		v.Labor = []cv.LaborProduct{{ID: 8, Name: "Informe anual"}}
	}
	if sel.Marketplace {
		v.Listings = cv.Enrich(res, []cv.Listing{
			{ID: 11, Product: "Escritorio", Price: 80, Condition: cv.ConditionGood, PublishedAt: d(2026, 1, 5)},
		})
	}
	return v
}

func newTestRenderer(t *testing.T, p Printer) *Renderer {
	t.Helper()
	r, err := New(Config{Printer: p, AdminPath: "/admin/"})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestHTML_ScreenPage(t *testing.T) {
	r := newTestRenderer(t, nil)
	var buf bytes.Buffer
	if err := r.HTML(&buf, testView(cv.AllSections())); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	for _, want := range []string{
		"Ana Vera",
		"<b>backend</b>",
		`href="/doc/exp/2/"`,
		"w_600,q_auto,f_jpg,pg_1",
		`action="/7/print/"`,
		"Go avanzado",
		"Escritorio",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("screen page missing %q", want)
		}
	}
	if strings.Contains(out, "<script>alert") {
		t.Error("rich text must be sanitised")
	}
	// ShowLabor is off for this profile.
	if strings.Contains(out, "Informe anual") {
		t.Error("labor section shown despite profile flag")
	}
}

func TestPrintHTML_FollowsSelectionAndStaysOffline(t *testing.T) {
	r := newTestRenderer(t, nil)
	sel := cv.Selection{Experience: true, Labor: true}
	out, err := r.PrintHTML(testView(sel))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Lead") || !strings.Contains(out, "Informe anual") {
		t.Fatal("selected sections missing from print page")
	}
	if strings.Contains(out, "Go avanzado") || strings.Contains(out, "Escritorio") {
		t.Fatal("unselected sections rendered")
	}
	for _, remote := range []string{"<img", "https://", "cloudinary"} {
		if strings.Contains(out, remote) {
			t.Fatalf("print page references remote content: %q", remote)
		}
	}

	again, _ := r.PrintHTML(testView(sel))
	if again != out {
		t.Fatal("print HTML is not deterministic")
	}
}

func TestPDF_UsesPrinter(t *testing.T) {
	p := &fakePrinter{out: []byte("%PDF-1.4 fake")}
	r := newTestRenderer(t, p)
	pdf, err := r.PDF(context.Background(), testView(cv.DefaultSelection()))
	if err != nil {
		t.Fatal(err)
	}
	if string(pdf) != "%PDF-1.4 fake" {
		t.Fatalf("pdf: %q", pdf)
	}
	if !strings.Contains(p.html, "Ana Vera") {
		t.Fatal("printer did not receive the print page")
	}
}

func TestPDF_PrinterFailure(t *testing.T) {
	r := newTestRenderer(t, &fakePrinter{err: errors.New("chrome gone")})
	_, err := r.PDF(context.Background(), testView(cv.DefaultSelection()))
	if !errors.Is(err, ErrRender) {
		t.Fatalf("got %v, want ErrRender", err)
	}

	r = newTestRenderer(t, nil)
	if _, err := r.PDF(context.Background(), testView(cv.DefaultSelection())); !errors.Is(err, ErrRender) {
		t.Fatalf("no printer: got %v", err)
	}
}

func TestMarkdown(t *testing.T) {
	r := newTestRenderer(t, nil)
	md, err := r.Markdown(testView(cv.AllSections()))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"# Ana Vera", "Experiencia laboral", "**backend**", "Escritorio"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestNoProfile(t *testing.T) {
	r := newTestRenderer(t, nil)
	var buf bytes.Buffer
	if err := r.NoProfile(&buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No hay perfiles activos") || !strings.Contains(buf.String(), `href="/admin/"`) {
		t.Fatalf("no-profile page: %s", buf.String())
	}
}

func TestPeriod(t *testing.T) {
	d := func(y int, m time.Month) time.Time { return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC) }
	tests := []struct {
		start, end time.Time
		want       string
	}{
		{time.Time{}, time.Time{}, ""},
		{d(2020, 1), time.Time{}, "01/01/2020 – Actualidad"},
		{d(2020, 1), d(2021, 6), "01/01/2020 – 01/06/2021"},
		{time.Time{}, d(2021, 6), "01/06/2021"},
	}
	for _, tt := range tests {
		if got := period(tt.start, tt.end); got != tt.want {
			t.Errorf("period(%v, %v) = %q, want %q", tt.start, tt.end, got, tt.want)
		}
	}
}

func TestDocLinkThumb(t *testing.T) {
	pdf := &attachment.Resolved{Locator: "https://files.example.com/a.pdf", IsDocument: true, Preview: "https://files.example.com/a.pdf"}
	if d := newDocLink("cursos", 3, pdf); d.Thumb != "" || d.Path != "/doc/cursos/3/" {
		t.Fatalf("plain pdf: %+v", d)
	}
	img := &attachment.Resolved{Locator: "https://files.example.com/a.PNG", Preview: "https://files.example.com/a.PNG"}
	if d := newDocLink("rec", 1, img); d.Thumb == "" {
		t.Fatal("image locator should preview itself")
	}
}
