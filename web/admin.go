package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/hazyhaar/hojadevida/attachment"
	"github.com/hazyhaar/hojadevida/cv"
	"github.com/hazyhaar/hojadevida/kit"
	"github.com/hazyhaar/hojadevida/observability"
	"github.com/hazyhaar/hojadevida/sqltrace"
	"github.com/hazyhaar/hojadevida/uploads"
)

// maxUpload bounds a multipart upload request. The storage layer enforces
// the per-file limit.
const maxUpload = 12 << 20

var errUploadsDisabled = errors.New("uploads not configured")

func (s *Server) adminRoutes(r chi.Router) {
	r.Use(s.requireAdmin)

	r.Get("/profiles", s.listProfiles)
	r.Post("/profiles", s.saveProfile)
	r.Put("/profiles/{id}", s.saveProfile)
	r.Delete("/profiles/{id}", s.deleteProfile)
	r.Post("/profiles/{id}/photo", s.uploadPhoto)
	r.Post("/profiles/{id}/{section}", s.createRecord)

	r.Put("/{section}/{id}", s.updateRecord)
	r.Delete("/{section}/{id}", s.deleteRecord)
	r.Post("/{section}/{id}/file", s.uploadFile)
	r.Delete("/{section}/{id}/file", s.clearFile)

	r.Put("/maintenance", s.setMaintenance)
	r.Get("/sql/slow", s.slowQueries)
}

// requireAdmin checks HTTP Basic credentials against the configured user
// and bcrypt hash.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || s.admin.PasswordHash == "" ||
			subtle.ConstantTimeCompare([]byte(user), []byte(s.admin.User)) != 1 ||
			bcrypt.CompareHashAndPassword([]byte(s.admin.PasswordHash), []byte(pass)) != nil {
			w.Header().Set("WWW-Authenticate", `Basic realm="hojadevida"`)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "no autorizado"})
			return
		}
		next.ServeHTTP(w, r.WithContext(kit.WithAdmin(r.Context(), user)))
	})
}

// audit records an admin change.
func (s *Server) audit(ctx context.Context, entity string, id int64, action string, err error) {
	ev := observability.BusinessEvent{
		EventType:  observability.EventAdminChange,
		EntityType: entity,
		EntityID:   strconv.FormatInt(id, 10),
		UserID:     kit.GetAdmin(ctx),
		Action:     action,
		Success:    err == nil,
	}
	if err != nil {
		ev.Details = map[string]string{"error": err.Error()}
	}
	s.events.LogEvent(ctx, ev)
}

// --- profiles ---

func (s *Server) listProfiles(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.Profiles(r.Context())
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	if list == nil {
		list = []cv.Profile{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) saveProfile(w http.ResponseWriter, r *http.Request) {
	var p cv.Profile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	p.ID = 0
	if chi.URLParam(r, "id") != "" {
		id, err := idParam(r, "id")
		if err != nil {
			writeError(w, statusOf(err), err)
			return
		}
		p.ID = id
	}
	id, err := s.store.SaveProfile(r.Context(), &p)
	s.audit(r.Context(), "profile", p.ID, "save", err)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"id": id})
}

func (s *Server) deleteProfile(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err == nil {
		err = s.store.DeleteProfile(r.Context(), id)
		s.audit(r.Context(), "profile", id, "delete", err)
	}
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) uploadPhoto(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	p, err := s.store.Profile(r.Context(), id)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	key, err := s.receive(w, r, uploads.ProfilePhoto)
	if err == nil {
		p.PhotoURL = s.uploads.FileURL(key)
		_, err = s.store.SaveProfile(r.Context(), p)
	}
	s.audit(r.Context(), "profile", id, "upload", err)
	if err != nil {
		writeError(w, uploadStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key, "url": p.PhotoURL})
}

// --- section records ---

// saveJSON decodes a record of type T from data and hands it to save.
func saveJSON[T any](data []byte, save func(*T) (int64, error)) (int64, error) {
	var rec T
	if err := json.Unmarshal(data, &rec); err != nil {
		return 0, fmt.Errorf("%w: %v", cv.ErrInvalidInput, err)
	}
	return save(&rec)
}

// saveRecord stores a section record from a JSON body. The body may carry a
// "link" field, the free-text attachment URL. profileID overrides the
// body's profile_id when non-zero; id zero inserts.
func (s *Server) saveRecord(ctx context.Context, sec cv.Section, profileID, id int64, body io.Reader) (int64, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", cv.ErrInvalidInput, err)
	}
	var extra struct {
		Link string `json:"link"`
	}
	if err := json.Unmarshal(data, &extra); err != nil {
		return 0, fmt.Errorf("%w: %v", cv.ErrInvalidInput, err)
	}
	ref := attachment.NewRef("", extra.Link)
	owner := func(p *int64) {
		if profileID != 0 {
			*p = profileID
		}
	}

	switch sec {
	case cv.SectionExperience:
		return saveJSON(data, func(r *cv.WorkExperience) (int64, error) {
			r.ID, r.Attachment = id, ref
			owner(&r.ProfileID)
			return s.store.SaveExperience(ctx, r)
		})
	case cv.SectionCourses:
		return saveJSON(data, func(r *cv.Course) (int64, error) {
			r.ID, r.Attachment = id, ref
			owner(&r.ProfileID)
			return s.store.SaveCourse(ctx, r)
		})
	case cv.SectionRecognitions:
		return saveJSON(data, func(r *cv.Recognition) (int64, error) {
			r.ID, r.Attachment = id, ref
			owner(&r.ProfileID)
			return s.store.SaveRecognition(ctx, r)
		})
	case cv.SectionAcademic:
		return saveJSON(data, func(r *cv.AcademicProduct) (int64, error) {
			r.ID = id
			owner(&r.ProfileID)
			return s.store.SaveAcademic(ctx, r)
		})
	case cv.SectionLabor:
		return saveJSON(data, func(r *cv.LaborProduct) (int64, error) {
			r.ID = id
			owner(&r.ProfileID)
			return s.store.SaveLabor(ctx, r)
		})
	case cv.SectionMarketplace:
		// Listings only carry uploaded files.
		return saveJSON(data, func(r *cv.Listing) (int64, error) {
			r.ID, r.Attachment = id, attachment.Ref{}
			owner(&r.ProfileID)
			return s.store.SaveListing(ctx, r)
		})
	}
	return 0, fmt.Errorf("%w: section %q", cv.ErrNotFound, sec)
}

func (s *Server) createRecord(w http.ResponseWriter, r *http.Request) {
	pid, err := idParam(r, "id")
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	sec, err := cv.ParseSection(chi.URLParam(r, "section"))
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	id, err := s.saveRecord(r.Context(), sec, pid, 0, r.Body)
	s.audit(r.Context(), string(sec), id, "save", err)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"id": id})
}

// updateRecord rewrites a record's fields. An uploaded file survives the
// edit; the body's link replaces the stored one.
func (s *Server) updateRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sec, err := cv.ParseSection(chi.URLParam(r, "section"))
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}

	var key string
	if sec.DocKind() != "" {
		ref, err := cv.LoadAttachment(ctx, s.store, sec, id)
		if err != nil {
			writeError(w, statusOf(err), err)
			return
		}
		key = ref.FileKey()
	}

	_, err = s.saveRecord(ctx, sec, 0, id, r.Body)
	if err == nil && key != "" {
		err = s.store.SetAttachmentFile(ctx, sec, id, key)
	}
	s.audit(ctx, string(sec), id, "save", err)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"id": id})
}

func (s *Server) deleteRecord(w http.ResponseWriter, r *http.Request) {
	sec, err := cv.ParseSection(chi.URLParam(r, "section"))
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	id, err := idParam(r, "id")
	if err == nil {
		err = s.store.DeleteRecord(r.Context(), sec, id)
		s.audit(r.Context(), string(sec), id, "delete", err)
	}
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- files ---

// attachable resolves the section and record of a file route, checking
// the record exists before anything is stored.
func (s *Server) attachable(r *http.Request) (cv.Section, int64, error) {
	sec, err := cv.ParseSection(chi.URLParam(r, "section"))
	if err != nil {
		return "", 0, err
	}
	if sec.DocKind() == "" {
		return "", 0, fmt.Errorf("%w: section %q takes no attachment", cv.ErrInvalidInput, sec)
	}
	id, err := idParam(r, "id")
	if err != nil {
		return "", 0, err
	}
	if _, err := cv.LoadAttachment(r.Context(), s.store, sec, id); err != nil {
		return "", 0, err
	}
	return sec, id, nil
}

// receive stores the "file" part of a multipart request.
func (s *Server) receive(w http.ResponseWriter, r *http.Request, sec cv.Section) (string, error) {
	if s.uploads == nil {
		return "", errUploadsDisabled
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	file, hdr, err := r.FormFile("file")
	if err != nil {
		return "", fmt.Errorf("%w: %v", uploads.ErrInvalidFile, err)
	}
	defer file.Close()
	return s.uploads.Put(r.Context(), sec, hdr.Filename, hdr.Header.Get("Content-Type"), file, hdr.Size)
}

func uploadStatus(err error) int {
	if errors.Is(err, errUploadsDisabled) {
		return http.StatusServiceUnavailable
	}
	return statusOf(err)
}

func (s *Server) uploadFile(w http.ResponseWriter, r *http.Request) {
	sec, id, err := s.attachable(r)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	key, err := s.receive(w, r, sec)
	if err == nil {
		err = s.store.SetAttachmentFile(r.Context(), sec, id, key)
	}
	s.audit(r.Context(), string(sec), id, "upload", err)
	if err != nil {
		writeError(w, uploadStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key, "url": s.uploads.FileURL(key)})
}

// clearFile drops the uploaded file of a record; a stored link applies again.
func (s *Server) clearFile(w http.ResponseWriter, r *http.Request) {
	sec, id, err := s.attachable(r)
	if err == nil {
		err = s.store.SetAttachmentFile(r.Context(), sec, id, "")
		s.audit(r.Context(), string(sec), id, "clear_file", err)
	}
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- site ---

func (s *Server) setMaintenance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Active  bool   `json:"active"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	err := s.maintenance.Set(r.Context(), req.Active, req.Message)
	s.audit(r.Context(), "site", 0, "maintenance", err)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"active":  s.maintenance.Active(),
		"message": s.maintenance.Message(),
	})
}

// slowQueries lists the slowest recorded SQL statements. ?limit= caps the
// list (default 50).
func (s *Server) slowQueries(w http.ResponseWriter, r *http.Request) {
	if s.traces == nil {
		writeError(w, http.StatusNotFound, errors.New("sql tracing not enabled"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := s.traces.Slowest(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if list == nil {
		list = []sqltrace.Entry{}
	}
	writeJSON(w, http.StatusOK, list)
}
