package cvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/hazyhaar/hojadevida/cv"
	"github.com/hazyhaar/hojadevida/dbopen"
)

// upsert inserts (id == 0) or updates one row of table. cols and args are
// positional; the update matches on id.
func (s *Store) upsert(ctx context.Context, table string, id int64, cols []string, args []any) (int64, error) {
	if id == 0 {
		q := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`, table,
			strings.Join(cols, ", "), strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "))
		res, err := dbopen.Exec(ctx, s.db, q, args...)
		if err != nil {
			return 0, fmt.Errorf("cvstore: insert %s: %w", table, err)
		}
		return res.LastInsertId()
	}
	q := fmt.Sprintf(`UPDATE %s SET %s = ? WHERE id = ?`, table, strings.Join(cols, " = ?, "))
	res, err := dbopen.Exec(ctx, s.db, q, append(args, id)...)
	if err != nil {
		return 0, fmt.Errorf("cvstore: update %s %d: %w", table, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, notFound(table, id)
	}
	return id, nil
}

// requireProfile turns a dangling profile_id into ErrNotFound before the
// foreign key does it with a driver-specific error.
func (s *Store) requireProfile(ctx context.Context, id int64) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM profiles WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound("profile", id)
	}
	return err
}

// SaveProfile validates and stores p.
func (s *Store) SaveProfile(ctx context.Context, p *cv.Profile) (int64, error) {
	if err := p.Validate(s.now()); err != nil {
		return 0, err
	}
	id, err := s.upsert(ctx, "profiles", p.ID, []string{
		"names", "surnames", "description", "photo_url", "nationality", "birth_place",
		"birth_date", "id_number", "sex", "marital_status", "driving_license", "mobile_phone",
		"land_phone", "email", "work_address", "home_address", "website", "active",
		"show_experience", "show_courses", "show_recognitions", "show_academic", "show_labor",
		"show_marketplace",
	}, []any{
		p.Names, p.Surnames, p.Description, p.PhotoURL, p.Nationality, p.BirthPlace,
		nullDate(p.BirthDate), p.IDNumber, p.Sex, p.MaritalStatus, p.DrivingLicense, p.MobilePhone,
		p.LandPhone, p.Email, p.WorkAddress, p.HomeAddress, p.Website, p.Active,
		p.ShowExperience, p.ShowCourses, p.ShowRecognitions, p.ShowAcademic, p.ShowLabor,
		p.ShowMarketplace,
	})
	if err != nil {
		return 0, err
	}
	p.ID = id
	return id, nil
}

// SaveExperience validates and stores r.
func (s *Store) SaveExperience(ctx context.Context, r *cv.WorkExperience) (int64, error) {
	if err := r.Validate(s.now()); err != nil {
		return 0, err
	}
	if err := s.requireProfile(ctx, r.ProfileID); err != nil {
		return 0, err
	}
	id, err := s.upsert(ctx, "experiences", r.ID, []string{
		"profile_id", "position", "company", "location", "company_email", "company_website",
		"contact_name", "contact_phone", "start_date", "end_date", "duties", "visible",
		"attachment_file", "attachment_link",
	}, []any{
		r.ProfileID, r.Position, r.Company, r.Location, r.CompanyEmail, r.CompanyWebsite,
		r.ContactName, r.ContactPhone, nullDate(r.StartDate), nullDate(r.EndDate), r.Duties, r.Visible,
		r.Attachment.FileKey(), r.Attachment.LinkURL(),
	})
	if err != nil {
		return 0, err
	}
	r.ID = id
	return id, nil
}

// SaveCourse validates and stores r.
func (s *Store) SaveCourse(ctx context.Context, r *cv.Course) (int64, error) {
	if err := r.Validate(s.now()); err != nil {
		return 0, err
	}
	if err := s.requireProfile(ctx, r.ProfileID); err != nil {
		return 0, err
	}
	id, err := s.upsert(ctx, "courses", r.ID, []string{
		"profile_id", "name", "start_date", "end_date", "total_hours", "description", "sponsor",
		"contact_name", "contact_phone", "sponsor_email", "visible", "attachment_file", "attachment_link",
	}, []any{
		r.ProfileID, r.Name, nullDate(r.StartDate), nullDate(r.EndDate), r.TotalHours, r.Description, r.Sponsor,
		r.ContactName, r.ContactPhone, r.SponsorEmail, r.Visible, r.Attachment.FileKey(), r.Attachment.LinkURL(),
	})
	if err != nil {
		return 0, err
	}
	r.ID = id
	return id, nil
}

// SaveRecognition validates and stores r.
func (s *Store) SaveRecognition(ctx context.Context, r *cv.Recognition) (int64, error) {
	if err := r.Validate(s.now()); err != nil {
		return 0, err
	}
	if err := s.requireProfile(ctx, r.ProfileID); err != nil {
		return 0, err
	}
	id, err := s.upsert(ctx, "recognitions", r.ID, []string{
		"profile_id", "kind", "date", "description", "sponsor", "contact_name", "contact_phone",
		"visible", "attachment_file", "attachment_link",
	}, []any{
		r.ProfileID, r.Kind, nullDate(r.Date), r.Description, r.Sponsor, r.ContactName, r.ContactPhone,
		r.Visible, r.Attachment.FileKey(), r.Attachment.LinkURL(),
	})
	if err != nil {
		return 0, err
	}
	r.ID = id
	return id, nil
}

// SaveAcademic validates and stores r.
func (s *Store) SaveAcademic(ctx context.Context, r *cv.AcademicProduct) (int64, error) {
	if err := r.Validate(s.now()); err != nil {
		return 0, err
	}
	if err := s.requireProfile(ctx, r.ProfileID); err != nil {
		return 0, err
	}
	id, err := s.upsert(ctx, "academic_products", r.ID,
		[]string{"profile_id", "name", "classifier", "description", "visible"},
		[]any{r.ProfileID, r.Name, r.Classifier, r.Description, r.Visible})
	if err != nil {
		return 0, err
	}
	r.ID = id
	return id, nil
}

// SaveLabor validates and stores r.
func (s *Store) SaveLabor(ctx context.Context, r *cv.LaborProduct) (int64, error) {
	if err := r.Validate(s.now()); err != nil {
		return 0, err
	}
	if err := s.requireProfile(ctx, r.ProfileID); err != nil {
		return 0, err
	}
	id, err := s.upsert(ctx, "labor_products", r.ID,
		[]string{"profile_id", "name", "date", "description", "visible"},
		[]any{r.ProfileID, r.Name, nullDate(r.Date), r.Description, r.Visible})
	if err != nil {
		return 0, err
	}
	r.ID = id
	return id, nil
}

// SaveListing validates and stores r. Listings carry uploaded files only;
// a link reference is dropped.
func (s *Store) SaveListing(ctx context.Context, r *cv.Listing) (int64, error) {
	if err := r.Validate(s.now()); err != nil {
		return 0, err
	}
	if err := s.requireProfile(ctx, r.ProfileID); err != nil {
		return 0, err
	}
	id, err := s.upsert(ctx, "listings", r.ID, []string{
		"profile_id", "product", "description", "price", "condition", "published_at", "image",
		"active", "attachment_file",
	}, []any{
		r.ProfileID, r.Product, r.Description, r.Price, r.Condition, nullDate(r.PublishedAt), r.Image,
		r.Active, r.Attachment.FileKey(),
	})
	if err != nil {
		return 0, err
	}
	r.ID = id
	return id, nil
}

// DeleteProfile removes a profile and, by cascade, all its records.
func (s *Store) DeleteProfile(ctx context.Context, id int64) error {
	res, err := dbopen.Exec(ctx, s.db, `DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("cvstore: delete profile %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("profile", id)
	}
	return nil
}

var sectionTables = map[cv.Section]string{
	cv.SectionExperience:   "experiences",
	cv.SectionCourses:      "courses",
	cv.SectionRecognitions: "recognitions",
	cv.SectionAcademic:     "academic_products",
	cv.SectionLabor:        "labor_products",
	cv.SectionMarketplace:  "listings",
}

func tableFor(section cv.Section) (string, error) {
	t, ok := sectionTables[section]
	if !ok {
		return "", fmt.Errorf("%w: section %q", cv.ErrNotFound, section)
	}
	return t, nil
}

// DeleteRecord removes one section record.
func (s *Store) DeleteRecord(ctx context.Context, section cv.Section, id int64) error {
	table, err := tableFor(section)
	if err != nil {
		return err
	}
	res, err := dbopen.Exec(ctx, s.db, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("cvstore: delete %s %d: %w", table, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(table, id)
	}
	return nil
}

// SetAttachmentFile points a record's uploaded-file column at key. An empty
// key clears the upload, letting a stored link take effect again.
func (s *Store) SetAttachmentFile(ctx context.Context, section cv.Section, id int64, key string) error {
	switch section {
	case cv.SectionExperience, cv.SectionCourses, cv.SectionRecognitions, cv.SectionMarketplace:
	default:
		return fmt.Errorf("%w: section %q takes no attachment", cv.ErrInvalidInput, section)
	}
	table, _ := tableFor(section)
	res, err := dbopen.Exec(ctx, s.db, `UPDATE `+table+` SET attachment_file = ? WHERE id = ?`, key, id)
	if err != nil {
		return fmt.Errorf("cvstore: set attachment %s %d: %w", table, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(table, id)
	}
	return nil
}
