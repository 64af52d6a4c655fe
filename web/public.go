package web

import (
	"errors"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/hojadevida/cv"
	"github.com/hazyhaar/hojadevida/shield"
)

// fail answers an HTML route with the status of err. Server errors are
// logged; the client gets a generic message.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch code := statusOf(err); code {
	case http.StatusNotFound:
		http.Error(w, "No encontrado", code)
	case http.StatusBadRequest:
		http.Error(w, "Solicitud inválida", code)
	default:
		shield.GetLogger(r.Context()).Error("web: request failed", "error", err)
		http.Error(w, "Error interno", code)
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "down", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	p, err := s.service.ActiveProfile(r.Context())
	if errors.Is(err, cv.ErrNotFound) {
		http.Redirect(w, r, "/sin-datos/", http.StatusFound)
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/"+strconv.FormatInt(p.ID, 10)+"/", http.StatusFound)
}

func (s *Server) noProfile(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.renderer.NoProfile(w); err != nil {
		s.fail(w, r, err)
	}
}

func (s *Server) detail(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "profileID")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	v, err := s.service.View(r.Context(), id, cv.AllSections())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.renderer.HTML(w, v); err != nil {
		s.fail(w, r, err)
	}
}

// print serves the merged PDF. Nothing is written unless the whole export
// succeeded.
func (s *Server) print(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "profileID")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	doc, err := s.exporter.Export(r.Context(), id, cv.SelectionFromQuery(r.URL.Query()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", contentDisposition(doc.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Body)))
	w.Write(doc.Body)
}

// contentDisposition names an inline download. Non-ASCII names are sent
// in the RFC 2231 extended form.
func contentDisposition(filename string) string {
	if v := mime.FormatMediaType("inline", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "inline"
}

func (s *Server) markdown(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "profileID")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	v, err := s.service.View(r.Context(), id, cv.SelectionFromQuery(r.URL.Query()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	md, err := s.renderer.Markdown(v)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Write([]byte(md))
}

// document redirects to the attachment of a record: the uploaded file when
// there is one, else the stored link. A record without attachment sends
// the visitor home.
func (s *Server) document(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "recordID")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, ok, err := s.service.Document(r.Context(), chi.URLParam(r, "kind"), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !ok {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	http.Redirect(w, r, res.Locator, http.StatusFound)
}
