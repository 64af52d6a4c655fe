// CLAUDE:SUMMARY CV service: section selection over the Store, enriched views, ordered attachment lists and document lookup.
// Package cv holds the CV domain: profile and section records, the export
// selection, and the Service that selects and enriches section records for
// the on-screen view and the merged PDF export.
//
// Usage:
//
//	svc := cv.NewService(store, attachment.NewResolver(files), nil)
//	view, err := svc.View(ctx, profileID, cv.SelectionFromQuery(r.URL.Query()))
//	for _, a := range view.Attachments() { ... }
package cv

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/hojadevida/attachment"
)

// Service selects and enriches CV sections.
type Service struct {
	store    Store
	resolver *attachment.Resolver
	logger   *slog.Logger
}

// NewService creates a Service. logger may be nil.
func NewService(store Store, resolver *attachment.Resolver, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, resolver: resolver, logger: logger}
}

// Selected holds the records of the selected sections of one profile.
// Sections that were not selected are nil.
type Selected struct {
	Experience   []WorkExperience
	Courses      []Course
	Recognitions []Recognition
	Academic     []AcademicProduct
	Labor        []LaborProduct
	Listings     []Listing
}

// ActiveProfile returns the canonical active profile.
func (s *Service) ActiveProfile(ctx context.Context) (*Profile, error) {
	return s.store.ActiveProfile(ctx)
}

// Select loads the visible records of every selected section. Sections
// toggled off are left empty and never queried.
func (s *Service) Select(ctx context.Context, profileID int64, sel Selection) (*Selected, error) {
	var out Selected
	var err error
	if sel.Experience {
		if out.Experience, err = s.store.WorkExperiences(ctx, profileID); err != nil {
			return nil, fmt.Errorf("cv: select experience: %w", err)
		}
	}
	if sel.Courses {
		if out.Courses, err = s.store.Courses(ctx, profileID); err != nil {
			return nil, fmt.Errorf("cv: select courses: %w", err)
		}
	}
	if sel.Recognitions {
		if out.Recognitions, err = s.store.Recognitions(ctx, profileID); err != nil {
			return nil, fmt.Errorf("cv: select recognitions: %w", err)
		}
	}
	if sel.Academic {
		if out.Academic, err = s.store.AcademicProducts(ctx, profileID); err != nil {
			return nil, fmt.Errorf("cv: select academic: %w", err)
		}
	}
	if sel.Labor {
		if out.Labor, err = s.store.LaborProducts(ctx, profileID); err != nil {
			return nil, fmt.Errorf("cv: select labor: %w", err)
		}
	}
	if sel.Marketplace {
		if out.Listings, err = s.store.Listings(ctx, profileID); err != nil {
			return nil, fmt.Errorf("cv: select listings: %w", err)
		}
	}
	return &out, nil
}

// View is the enriched, render-ready CV of one profile.
type View struct {
	Profile      *Profile                    `json:"profile"`
	Selection    Selection                   `json:"selection"`
	Experience   []Annotated[WorkExperience] `json:"experience"`
	Courses      []Annotated[Course]         `json:"courses"`
	Recognitions []Annotated[Recognition]    `json:"recognitions"`
	Academic     []AcademicProduct           `json:"academic"`
	Labor        []LaborProduct              `json:"labor"`
	Listings     []Annotated[Listing]        `json:"listings"`
}

// View loads profileID, selects sections and annotates attachments.
func (s *Service) View(ctx context.Context, profileID int64, sel Selection) (*View, error) {
	p, err := s.store.Profile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	secs, err := s.Select(ctx, p.ID, sel)
	if err != nil {
		return nil, err
	}
	return &View{
		Profile:      p,
		Selection:    sel,
		Experience:   Enrich(s.resolver, secs.Experience),
		Courses:      Enrich(s.resolver, secs.Courses),
		Recognitions: Enrich(s.resolver, secs.Recognitions),
		Academic:     secs.Academic,
		Labor:        secs.Labor,
		Listings:     Enrich(s.resolver, secs.Listings),
	}, nil
}

// AttachmentEntry is one document to append to an export.
type AttachmentEntry struct {
	Section  Section `json:"section"`
	RecordID int64   `json:"record_id"`
	attachment.Resolved
}

// Attachments lists the document attachments of the view in merge order:
// experience, courses, recognitions, marketplace, each in record order.
// Attachments that are not documents are left out.
func (v *View) Attachments() []AttachmentEntry {
	var out []AttachmentEntry
	add := func(sec Section, id int64, r *attachment.Resolved) {
		if r != nil && r.IsDocument {
			out = append(out, AttachmentEntry{Section: sec, RecordID: id, Resolved: *r})
		}
	}
	for _, a := range v.Experience {
		add(SectionExperience, a.Record.ID, a.Attachment)
	}
	for _, a := range v.Courses {
		add(SectionCourses, a.Record.ID, a.Attachment)
	}
	for _, a := range v.Recognitions {
		add(SectionRecognitions, a.Record.ID, a.Attachment)
	}
	for _, a := range v.Listings {
		add(SectionMarketplace, a.Record.ID, a.Attachment)
	}
	return out
}

// Document resolves the attachment of record id in the section named by
// the redirect kind (exp, cursos, rec, garage). ok is false when the
// record exists but carries no attachment.
func (s *Service) Document(ctx context.Context, kind string, id int64) (res attachment.Resolved, ok bool, err error) {
	sec, err := SectionForDocKind(kind)
	if err != nil {
		return attachment.Resolved{}, false, err
	}
	ref, err := LoadAttachment(ctx, s.store, sec, id)
	if err != nil {
		return attachment.Resolved{}, false, err
	}
	res, ok = s.resolver.Resolve(ref)
	if !ok {
		s.logger.Debug("cv: record has no attachment", "kind", kind, "id", id)
	}
	return res, ok, nil
}
