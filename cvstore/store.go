// CLAUDE:SUMMARY SQLite implementation of cv.Store and cv.Editor: fixed section ordering, attachment columns folded into attachment.Ref.
// Package cvstore persists CV profiles and section records in SQLite.
//
// Usage:
//
//	st, err := cvstore.Open("data/hojadevida.db")
//	defer st.Close()
//	svc := cv.NewService(st, resolver, logger)
package cvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/hojadevida/attachment"
	"github.com/hazyhaar/hojadevida/cv"
	"github.com/hazyhaar/hojadevida/dbopen"
)

const dateLayout = "2006-01-02"

// Store implements cv.Store and cv.Editor.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var (
	_ cv.Store  = (*Store)(nil)
	_ cv.Editor = (*Store)(nil)
)

// Open opens (or creates) the database at path and applies Schema. Extra
// options such as dbopen.WithDriver are passed through.
func Open(path string, opts ...dbopen.Option) (*Store, error) {
	opts = append([]dbopen.Option{dbopen.WithMkdirAll(), dbopen.WithSchema(Schema)}, opts...)
	db, err := dbopen.Open(path, opts...)
	if err != nil {
		return nil, fmt.Errorf("cvstore: %w", err)
	}
	return New(db), nil
}

// New wraps an already opened database. Schema must have been applied.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// DB returns the underlying database for sharing with observability and
// shield tables.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

// Ping checks the database connection, used by /healthz.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

type scanner interface {
	Scan(dest ...any) error
}

func nullDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(dateLayout)
}

func parseDate(ns sql.NullString) time.Time {
	if !ns.Valid || ns.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(dateLayout, ns.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

func notFound(what string, id int64) error {
	return fmt.Errorf("%w: %s %d", cv.ErrNotFound, what, id)
}

// --- profiles ---

const profileCols = `id, names, surnames, description, photo_url, nationality, birth_place,
	birth_date, id_number, sex, marital_status, driving_license, mobile_phone, land_phone,
	email, work_address, home_address, website, active, show_experience, show_courses,
	show_recognitions, show_academic, show_labor, show_marketplace`

func scanProfile(row scanner) (*cv.Profile, error) {
	var p cv.Profile
	var birth sql.NullString
	err := row.Scan(&p.ID, &p.Names, &p.Surnames, &p.Description, &p.PhotoURL, &p.Nationality,
		&p.BirthPlace, &birth, &p.IDNumber, &p.Sex, &p.MaritalStatus, &p.DrivingLicense,
		&p.MobilePhone, &p.LandPhone, &p.Email, &p.WorkAddress, &p.HomeAddress, &p.Website,
		&p.Active, &p.ShowExperience, &p.ShowCourses, &p.ShowRecognitions, &p.ShowAcademic,
		&p.ShowLabor, &p.ShowMarketplace)
	if err != nil {
		return nil, err
	}
	p.BirthDate = parseDate(birth)
	return &p, nil
}

// ActiveProfile returns the active profile with the lowest ID.
func (s *Store) ActiveProfile(ctx context.Context) (*cv.Profile, error) {
	p, err := scanProfile(s.db.QueryRowContext(ctx,
		`SELECT `+profileCols+` FROM profiles WHERE active = 1 ORDER BY id LIMIT 1`))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no active profile", cv.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("cvstore: active profile: %w", err)
	}
	return p, nil
}

// Profile returns profile id regardless of its active flag.
func (s *Store) Profile(ctx context.Context, id int64) (*cv.Profile, error) {
	p, err := scanProfile(s.db.QueryRowContext(ctx,
		`SELECT `+profileCols+` FROM profiles WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("profile", id)
	}
	if err != nil {
		return nil, fmt.Errorf("cvstore: profile %d: %w", id, err)
	}
	return p, nil
}

// Profiles lists every profile by ID, for the admin API.
func (s *Store) Profiles(ctx context.Context) ([]cv.Profile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+profileCols+` FROM profiles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("cvstore: profiles: %w", err)
	}
	defer rows.Close()
	var out []cv.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("cvstore: scan profile: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// --- section lists ---

// list runs a section query and scans every row with scan.
func list[T any](ctx context.Context, db *sql.DB, what, query string, profileID int64, scan func(scanner) (T, error)) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, profileID)
	if err != nil {
		return nil, fmt.Errorf("cvstore: %s: %w", what, err)
	}
	defer rows.Close()
	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("cvstore: scan %s: %w", what, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cvstore: %s: %w", what, err)
	}
	return out, nil
}

// one runs a by-id query.
func one[T any](ctx context.Context, db *sql.DB, what, query string, id int64, scan func(scanner) (T, error)) (*T, error) {
	v, err := scan(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(what, id)
	}
	if err != nil {
		return nil, fmt.Errorf("cvstore: %s %d: %w", what, id, err)
	}
	return &v, nil
}

const experienceCols = `id, profile_id, position, company, location, company_email, company_website,
	contact_name, contact_phone, start_date, end_date, duties, visible, attachment_file, attachment_link`

func scanExperience(row scanner) (cv.WorkExperience, error) {
	var r cv.WorkExperience
	var start, end sql.NullString
	var file, link string
	err := row.Scan(&r.ID, &r.ProfileID, &r.Position, &r.Company, &r.Location, &r.CompanyEmail,
		&r.CompanyWebsite, &r.ContactName, &r.ContactPhone, &start, &end, &r.Duties, &r.Visible,
		&file, &link)
	r.StartDate, r.EndDate = parseDate(start), parseDate(end)
	r.Attachment = attachment.NewRef(file, link)
	return r, err
}

// WorkExperiences returns visible experience, most recent start first.
func (s *Store) WorkExperiences(ctx context.Context, profileID int64) ([]cv.WorkExperience, error) {
	return list(ctx, s.db, "experience", `SELECT `+experienceCols+` FROM experiences
		WHERE profile_id = ? AND visible = 1 ORDER BY start_date DESC, id DESC`, profileID, scanExperience)
}

// Experience returns one experience record by ID.
func (s *Store) Experience(ctx context.Context, id int64) (*cv.WorkExperience, error) {
	return one(ctx, s.db, "experience", `SELECT `+experienceCols+` FROM experiences WHERE id = ?`, id, scanExperience)
}

const courseCols = `id, profile_id, name, start_date, end_date, total_hours, description, sponsor,
	contact_name, contact_phone, sponsor_email, visible, attachment_file, attachment_link`

func scanCourse(row scanner) (cv.Course, error) {
	var r cv.Course
	var start, end sql.NullString
	var file, link string
	err := row.Scan(&r.ID, &r.ProfileID, &r.Name, &start, &end, &r.TotalHours, &r.Description,
		&r.Sponsor, &r.ContactName, &r.ContactPhone, &r.SponsorEmail, &r.Visible, &file, &link)
	r.StartDate, r.EndDate = parseDate(start), parseDate(end)
	r.Attachment = attachment.NewRef(file, link)
	return r, err
}

// Courses returns visible courses, most recent start first.
func (s *Store) Courses(ctx context.Context, profileID int64) ([]cv.Course, error) {
	return list(ctx, s.db, "courses", `SELECT `+courseCols+` FROM courses
		WHERE profile_id = ? AND visible = 1 ORDER BY start_date DESC, id DESC`, profileID, scanCourse)
}

// Course returns one course by ID.
func (s *Store) Course(ctx context.Context, id int64) (*cv.Course, error) {
	return one(ctx, s.db, "course", `SELECT `+courseCols+` FROM courses WHERE id = ?`, id, scanCourse)
}

const recognitionCols = `id, profile_id, kind, date, description, sponsor, contact_name,
	contact_phone, visible, attachment_file, attachment_link`

func scanRecognition(row scanner) (cv.Recognition, error) {
	var r cv.Recognition
	var date sql.NullString
	var file, link string
	err := row.Scan(&r.ID, &r.ProfileID, &r.Kind, &date, &r.Description, &r.Sponsor,
		&r.ContactName, &r.ContactPhone, &r.Visible, &file, &link)
	r.Date = parseDate(date)
	r.Attachment = attachment.NewRef(file, link)
	return r, err
}

// Recognitions returns visible recognitions, most recent first.
func (s *Store) Recognitions(ctx context.Context, profileID int64) ([]cv.Recognition, error) {
	return list(ctx, s.db, "recognitions", `SELECT `+recognitionCols+` FROM recognitions
		WHERE profile_id = ? AND visible = 1 ORDER BY date DESC, id DESC`, profileID, scanRecognition)
}

// Recognition returns one recognition by ID.
func (s *Store) Recognition(ctx context.Context, id int64) (*cv.Recognition, error) {
	return one(ctx, s.db, "recognition", `SELECT `+recognitionCols+` FROM recognitions WHERE id = ?`, id, scanRecognition)
}

func scanAcademic(row scanner) (cv.AcademicProduct, error) {
	var r cv.AcademicProduct
	err := row.Scan(&r.ID, &r.ProfileID, &r.Name, &r.Classifier, &r.Description, &r.Visible)
	return r, err
}

// AcademicProducts returns visible academic output, newest record first.
func (s *Store) AcademicProducts(ctx context.Context, profileID int64) ([]cv.AcademicProduct, error) {
	return list(ctx, s.db, "academic products", `SELECT id, profile_id, name, classifier, description, visible
		FROM academic_products WHERE profile_id = ? AND visible = 1 ORDER BY id DESC`, profileID, scanAcademic)
}

func scanLabor(row scanner) (cv.LaborProduct, error) {
	var r cv.LaborProduct
	var date sql.NullString
	err := row.Scan(&r.ID, &r.ProfileID, &r.Name, &date, &r.Description, &r.Visible)
	r.Date = parseDate(date)
	return r, err
}

// LaborProducts returns visible labor output, most recent first.
func (s *Store) LaborProducts(ctx context.Context, profileID int64) ([]cv.LaborProduct, error) {
	return list(ctx, s.db, "labor products", `SELECT id, profile_id, name, date, description, visible
		FROM labor_products WHERE profile_id = ? AND visible = 1 ORDER BY date DESC, id DESC`, profileID, scanLabor)
}

const listingCols = `id, profile_id, product, description, price, condition, published_at, image,
	active, attachment_file`

func scanListing(row scanner) (cv.Listing, error) {
	var r cv.Listing
	var published sql.NullString
	var file string
	err := row.Scan(&r.ID, &r.ProfileID, &r.Product, &r.Description, &r.Price, &r.Condition,
		&published, &r.Image, &r.Active, &file)
	r.PublishedAt = parseDate(published)
	r.Attachment = attachment.NewRef(file, "")
	return r, err
}

// Listings returns active marketplace listings, most recently published first.
func (s *Store) Listings(ctx context.Context, profileID int64) ([]cv.Listing, error) {
	return list(ctx, s.db, "listings", `SELECT `+listingCols+` FROM listings
		WHERE profile_id = ? AND active = 1 ORDER BY published_at DESC, id DESC`, profileID, scanListing)
}

// Listing returns one listing by ID.
func (s *Store) Listing(ctx context.Context, id int64) (*cv.Listing, error) {
	return one(ctx, s.db, "listing", `SELECT `+listingCols+` FROM listings WHERE id = ?`, id, scanListing)
}
