package cv

import (
	"fmt"
	"net/url"
)

// Section identifies one of the six CV section kinds.
type Section string

const (
	SectionExperience   Section = "experience"
	SectionCourses      Section = "courses"
	SectionRecognitions Section = "recognitions"
	SectionAcademic     Section = "academic"
	SectionLabor        Section = "labor"
	SectionMarketplace  Section = "marketplace"
)

// Sections lists every section in display order.
var Sections = []Section{
	SectionExperience,
	SectionCourses,
	SectionAcademic,
	SectionLabor,
	SectionRecognitions,
	SectionMarketplace,
}

// AttachmentSections is the fixed order in which attachment documents are
// appended to an export. Academic and labor products carry no attachment.
var AttachmentSections = []Section{
	SectionExperience,
	SectionCourses,
	SectionRecognitions,
	SectionMarketplace,
}

// QueryKey is the print-modal query parameter toggling the section.
func (s Section) QueryKey() string {
	switch s {
	case SectionExperience:
		return "exp"
	case SectionCourses:
		return "edu"
	case SectionRecognitions:
		return "rec"
	case SectionAcademic:
		return "acad"
	case SectionLabor:
		return "lab"
	case SectionMarketplace:
		return "garage"
	}
	return ""
}

// DocKind is the path segment used by the document redirect, "" for
// sections without attachments.
func (s Section) DocKind() string {
	switch s {
	case SectionExperience:
		return "exp"
	case SectionCourses:
		return "cursos"
	case SectionRecognitions:
		return "rec"
	case SectionMarketplace:
		return "garage"
	}
	return ""
}

// SectionForDocKind maps a document redirect kind back to its section.
func SectionForDocKind(kind string) (Section, error) {
	for _, s := range AttachmentSections {
		if s.DocKind() == kind {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: unknown document kind %q", ErrNotFound, kind)
}

// ParseSection parses a section name as used by the admin API.
func ParseSection(name string) (Section, error) {
	for _, s := range Sections {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: unknown section %q", ErrNotFound, name)
}

// Selection says which sections take part in a view or export.
type Selection struct {
	Experience   bool `json:"exp"`
	Courses      bool `json:"edu"`
	Academic     bool `json:"acad"`
	Labor        bool `json:"lab"`
	Recognitions bool `json:"rec"`
	Marketplace  bool `json:"garage"`
}

// AllSections includes every section; used by the on-screen view.
func AllSections() Selection {
	return Selection{
		Experience:   true,
		Courses:      true,
		Academic:     true,
		Labor:        true,
		Recognitions: true,
		Marketplace:  true,
	}
}

// DefaultSelection is the export selection when the print modal was not
// used: every section except the marketplace.
func DefaultSelection() Selection {
	s := AllSections()
	s.Marketplace = false
	return s
}

// SelectionFromQuery builds the export selection from print request
// parameters. Toggles are honoured only with from_modal=true, where the
// presence of a key (any value) includes its section. Otherwise
// DefaultSelection applies.
func SelectionFromQuery(q url.Values) Selection {
	if q.Get("from_modal") != "true" {
		return DefaultSelection()
	}
	var s Selection
	for _, sec := range Sections {
		_, present := q[sec.QueryKey()]
		s.Set(sec, present)
	}
	return s
}

// Includes reports whether section s is selected.
func (s Selection) Includes(sec Section) bool {
	switch sec {
	case SectionExperience:
		return s.Experience
	case SectionCourses:
		return s.Courses
	case SectionRecognitions:
		return s.Recognitions
	case SectionAcademic:
		return s.Academic
	case SectionLabor:
		return s.Labor
	case SectionMarketplace:
		return s.Marketplace
	}
	return false
}

// Set toggles section sec.
func (s *Selection) Set(sec Section, on bool) {
	switch sec {
	case SectionExperience:
		s.Experience = on
	case SectionCourses:
		s.Courses = on
	case SectionRecognitions:
		s.Recognitions = on
	case SectionAcademic:
		s.Academic = on
	case SectionLabor:
		s.Labor = on
	case SectionMarketplace:
		s.Marketplace = on
	}
}

// Query encodes the selection as print-modal parameters.
func (s Selection) Query() url.Values {
	q := url.Values{"from_modal": {"true"}}
	for _, sec := range Sections {
		if s.Includes(sec) {
			q.Set(sec.QueryKey(), "on")
		}
	}
	return q
}
