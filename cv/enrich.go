package cv

import "github.com/hazyhaar/hojadevida/attachment"

// Annotated pairs a stored record with its read-time attachment view.
// The record itself is never modified.
type Annotated[T any] struct {
	Record     T                    `json:"record"`
	Attachment *attachment.Resolved `json:"attachment,omitempty"`
}

// FinalURL is the attachment locator, "" when the record has none.
func (a Annotated[T]) FinalURL() string {
	if a.Attachment == nil {
		return ""
	}
	return a.Attachment.Locator
}

// IsPDF reports whether the attachment is a mergeable document.
func (a Annotated[T]) IsPDF() bool {
	return a.Attachment != nil && a.Attachment.IsDocument
}

// Thumbnail is the preview locator, "" when the record has none.
func (a Annotated[T]) Thumbnail() string {
	if a.Attachment == nil {
		return ""
	}
	return a.Attachment.Preview
}

// Enrich annotates records with their resolved attachments, keeping order.
func Enrich[T Attached](res *attachment.Resolver, records []T) []Annotated[T] {
	out := make([]Annotated[T], len(records))
	for i, r := range records {
		out[i].Record = r
		if resolved, ok := res.Resolve(r.AttachmentRef()); ok {
			out[i].Attachment = &resolved
		}
	}
	return out
}
