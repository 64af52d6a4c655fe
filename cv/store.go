package cv

import (
	"context"

	"github.com/hazyhaar/hojadevida/attachment"
)

// Store is the read side of CV storage. List methods return only visible
// (listings: active) records of the profile, in the fixed section order:
//
//	experience    start_date DESC
//	courses       start_date DESC
//	recognitions  date DESC
//	academic      id DESC
//	labor         date DESC
//	listings      published_at DESC
//
// Ties are broken by id DESC. Lookups of missing rows return ErrNotFound.
type Store interface {
	ActiveProfile(ctx context.Context) (*Profile, error)
	Profile(ctx context.Context, id int64) (*Profile, error)

	WorkExperiences(ctx context.Context, profileID int64) ([]WorkExperience, error)
	Courses(ctx context.Context, profileID int64) ([]Course, error)
	Recognitions(ctx context.Context, profileID int64) ([]Recognition, error)
	AcademicProducts(ctx context.Context, profileID int64) ([]AcademicProduct, error)
	LaborProducts(ctx context.Context, profileID int64) ([]LaborProduct, error)
	Listings(ctx context.Context, profileID int64) ([]Listing, error)

	Experience(ctx context.Context, id int64) (*WorkExperience, error)
	Course(ctx context.Context, id int64) (*Course, error)
	Recognition(ctx context.Context, id int64) (*Recognition, error)
	Listing(ctx context.Context, id int64) (*Listing, error)
}

// Editor is the write side used by the admin API and the seeding command.
// Save methods insert when the record ID is zero and update otherwise; they
// return the record ID.
type Editor interface {
	SaveProfile(ctx context.Context, p *Profile) (int64, error)
	SaveExperience(ctx context.Context, r *WorkExperience) (int64, error)
	SaveCourse(ctx context.Context, r *Course) (int64, error)
	SaveRecognition(ctx context.Context, r *Recognition) (int64, error)
	SaveAcademic(ctx context.Context, r *AcademicProduct) (int64, error)
	SaveLabor(ctx context.Context, r *LaborProduct) (int64, error)
	SaveListing(ctx context.Context, r *Listing) (int64, error)

	DeleteProfile(ctx context.Context, id int64) error
	DeleteRecord(ctx context.Context, section Section, id int64) error
	SetAttachmentFile(ctx context.Context, section Section, id int64, key string) error
}

// LoadAttachment loads the attachment reference of one record by section.
// Sections without attachments return ErrNotFound.
func LoadAttachment(ctx context.Context, st Store, section Section, id int64) (attachment.Ref, error) {
	switch section {
	case SectionExperience:
		r, err := st.Experience(ctx, id)
		if err != nil {
			return attachment.Ref{}, err
		}
		return r.Attachment, nil
	case SectionCourses:
		r, err := st.Course(ctx, id)
		if err != nil {
			return attachment.Ref{}, err
		}
		return r.Attachment, nil
	case SectionRecognitions:
		r, err := st.Recognition(ctx, id)
		if err != nil {
			return attachment.Ref{}, err
		}
		return r.Attachment, nil
	case SectionMarketplace:
		r, err := st.Listing(ctx, id)
		if err != nil {
			return attachment.Ref{}, err
		}
		return r.Attachment, nil
	}
	return attachment.Ref{}, ErrNotFound
}
