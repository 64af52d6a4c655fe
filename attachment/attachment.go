// CLAUDE:SUMMARY Tagged attachment reference (none, uploaded file, external link) and its read-time resolution into locator/type/preview.
// Package attachment turns a section record's attachment columns into a
// single fetchable locator.
//
// A record may carry an uploaded-file key, a free-text link, both, or
// neither. NewRef collapses the columns into one tagged Ref at the storage
// boundary (uploaded file wins); Resolver.Resolve derives the transient
// Resolved view on every read.
//
//	ref := attachment.NewRef(fileKey, link)
//	res, ok := resolver.Resolve(ref)
//	if ok && res.IsDocument { ... }
package attachment

import (
	"net/url"
	"strings"
)

// Kind tags an attachment reference.
type Kind int

const (
	None     Kind = iota // no attachment
	Uploaded             // object key in file storage
	Link                 // free-text external URL
)

func (k Kind) String() string {
	switch k {
	case Uploaded:
		return "uploaded"
	case Link:
		return "link"
	default:
		return "none"
	}
}

// DocumentExt is the only extension treated as a mergeable document.
const DocumentExt = ".pdf"

// Ref is a resolved-once attachment reference.
type Ref struct {
	Kind  Kind
	Value string // object key for Uploaded, URL for Link
}

// NewRef builds a Ref from the two storage columns. A non-empty file key
// takes precedence over the link; a blank link means no attachment.
func NewRef(fileKey, link string) Ref {
	if fileKey = strings.TrimSpace(fileKey); fileKey != "" {
		return Ref{Kind: Uploaded, Value: fileKey}
	}
	if link = strings.TrimSpace(link); link != "" {
		return Ref{Kind: Link, Value: link}
	}
	return Ref{}
}

// IsZero reports whether the reference carries no attachment.
func (r Ref) IsZero() bool { return r.Kind == None }

// FileKey returns the object key for uploaded references, "" otherwise.
func (r Ref) FileKey() string {
	if r.Kind == Uploaded {
		return r.Value
	}
	return ""
}

// LinkURL returns the external URL for link references, "" otherwise.
func (r Ref) LinkURL() string {
	if r.Kind == Link {
		return r.Value
	}
	return ""
}

// FileURLs maps an uploaded-file key to its durable public locator.
// Implementations must not perform network I/O.
type FileURLs interface {
	FileURL(key string) string
}

// FileURLFunc adapts a plain function to FileURLs.
type FileURLFunc func(key string) string

// FileURL implements FileURLs.
func (f FileURLFunc) FileURL(key string) string { return f(key) }

// Resolved is the transient presentation view of an attachment.
type Resolved struct {
	Locator    string `json:"final_url"`
	IsDocument bool   `json:"is_pdf"`
	Preview    string `json:"thumbnail"`
	Source     Kind   `json:"-"`
}

// Resolver derives Resolved views from references.
type Resolver struct {
	files FileURLs
}

// NewResolver creates a Resolver. files may be nil when no uploaded-file
// storage is configured; uploaded references then resolve to their raw key.
func NewResolver(files FileURLs) *Resolver {
	return &Resolver{files: files}
}

// Resolve returns the resolved view for ref, or false when ref carries no
// attachment.
func (r *Resolver) Resolve(ref Ref) (Resolved, bool) {
	var locator string
	switch ref.Kind {
	case Uploaded:
		locator = ref.Value
		if r != nil && r.files != nil {
			locator = r.files.FileURL(ref.Value)
		}
	case Link:
		locator = ref.Value
	default:
		return Resolved{}, false
	}
	if locator == "" {
		return Resolved{}, false
	}
	return Resolved{
		Locator:    locator,
		IsDocument: IsDocument(locator),
		Preview:    Preview(locator),
		Source:     ref.Kind,
	}, true
}

// IsDocument reports whether locator's path ends with DocumentExt,
// case-insensitively. Query strings and fragments are ignored.
func IsDocument(locator string) bool {
	p := strings.TrimSpace(locator)
	if u, err := url.Parse(p); err == nil && u.Path != "" {
		p = u.Path
	}
	return strings.HasSuffix(strings.ToLower(p), DocumentExt)
}
