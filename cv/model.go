// CLAUDE:SUMMARY Domain types for the CV: profile, the six section record kinds and their attachment accessors.
package cv

import (
	"time"

	"github.com/hazyhaar/hojadevida/attachment"
)

// Profile is the person whose CV is shown.
type Profile struct {
	ID             int64     `json:"id" yaml:"id"`
	Names          string    `json:"names" yaml:"names"`
	Surnames       string    `json:"surnames" yaml:"surnames"`
	Description    string    `json:"description" yaml:"description"`
	PhotoURL       string    `json:"photo_url" yaml:"photo_url"`
	Nationality    string    `json:"nationality" yaml:"nationality"`
	BirthPlace     string    `json:"birth_place" yaml:"birth_place"`
	BirthDate      time.Time `json:"birth_date" yaml:"birth_date"`
	IDNumber       string    `json:"id_number" yaml:"id_number"`
	Sex            string    `json:"sex" yaml:"sex"`
	MaritalStatus  string    `json:"marital_status" yaml:"marital_status"`
	DrivingLicense string    `json:"driving_license" yaml:"driving_license"`
	MobilePhone    string    `json:"mobile_phone" yaml:"mobile_phone"`
	LandPhone      string    `json:"land_phone" yaml:"land_phone"`
	Email          string    `json:"email" yaml:"email"`
	WorkAddress    string    `json:"work_address" yaml:"work_address"`
	HomeAddress    string    `json:"home_address" yaml:"home_address"`
	Website        string    `json:"website" yaml:"website"`
	Active         bool      `json:"active" yaml:"active"`

	ShowExperience   bool `json:"show_experience" yaml:"show_experience"`
	ShowCourses      bool `json:"show_courses" yaml:"show_courses"`
	ShowRecognitions bool `json:"show_recognitions" yaml:"show_recognitions"`
	ShowAcademic     bool `json:"show_academic" yaml:"show_academic"`
	ShowLabor        bool `json:"show_labor" yaml:"show_labor"`
	ShowMarketplace  bool `json:"show_marketplace" yaml:"show_marketplace"`
}

// FullName joins names and surnames.
func (p *Profile) FullName() string {
	switch {
	case p.Names == "":
		return p.Surnames
	case p.Surnames == "":
		return p.Names
	}
	return p.Names + " " + p.Surnames
}

// Shows reports whether the profile's own flag allows section s on screen.
func (p *Profile) Shows(s Section) bool {
	switch s {
	case SectionExperience:
		return p.ShowExperience
	case SectionCourses:
		return p.ShowCourses
	case SectionRecognitions:
		return p.ShowRecognitions
	case SectionAcademic:
		return p.ShowAcademic
	case SectionLabor:
		return p.ShowLabor
	case SectionMarketplace:
		return p.ShowMarketplace
	}
	return false
}

// WorkExperience is one job held.
type WorkExperience struct {
	ID             int64          `json:"id" yaml:"id"`
	ProfileID      int64          `json:"profile_id" yaml:"profile_id"`
	Position       string         `json:"position" yaml:"position"`
	Company        string         `json:"company" yaml:"company"`
	Location       string         `json:"location" yaml:"location"`
	CompanyEmail   string         `json:"company_email" yaml:"company_email"`
	CompanyWebsite string         `json:"company_website" yaml:"company_website"`
	ContactName    string         `json:"contact_name" yaml:"contact_name"`
	ContactPhone   string         `json:"contact_phone" yaml:"contact_phone"`
	StartDate      time.Time      `json:"start_date" yaml:"start_date"`
	EndDate        time.Time      `json:"end_date" yaml:"end_date"`
	Duties         string         `json:"duties" yaml:"duties"`
	Visible        bool           `json:"visible" yaml:"visible"`
	Attachment     attachment.Ref `json:"-" yaml:"-"`
}

// Course is a completed training course.
type Course struct {
	ID           int64          `json:"id" yaml:"id"`
	ProfileID    int64          `json:"profile_id" yaml:"profile_id"`
	Name         string         `json:"name" yaml:"name"`
	StartDate    time.Time      `json:"start_date" yaml:"start_date"`
	EndDate      time.Time      `json:"end_date" yaml:"end_date"`
	TotalHours   int            `json:"total_hours" yaml:"total_hours"`
	Description  string         `json:"description" yaml:"description"`
	Sponsor      string         `json:"sponsor" yaml:"sponsor"`
	ContactName  string         `json:"contact_name" yaml:"contact_name"`
	ContactPhone string         `json:"contact_phone" yaml:"contact_phone"`
	SponsorEmail string         `json:"sponsor_email" yaml:"sponsor_email"`
	Visible      bool           `json:"visible" yaml:"visible"`
	Attachment   attachment.Ref `json:"-" yaml:"-"`
}

// Recognition kinds.
const (
	RecognitionPublic   = "Publico"
	RecognitionPrivate  = "Privado"
	RecognitionAcademic = "Academico"
)

// Recognition is an award or public acknowledgement.
type Recognition struct {
	ID           int64          `json:"id" yaml:"id"`
	ProfileID    int64          `json:"profile_id" yaml:"profile_id"`
	Kind         string         `json:"kind" yaml:"kind"`
	Date         time.Time      `json:"date" yaml:"date"`
	Description  string         `json:"description" yaml:"description"`
	Sponsor      string         `json:"sponsor" yaml:"sponsor"`
	ContactName  string         `json:"contact_name" yaml:"contact_name"`
	ContactPhone string         `json:"contact_phone" yaml:"contact_phone"`
	Visible      bool           `json:"visible" yaml:"visible"`
	Attachment   attachment.Ref `json:"-" yaml:"-"`
}

// AcademicProduct is a paper, talk, book or other academic output.
type AcademicProduct struct {
	ID          int64  `json:"id" yaml:"id"`
	ProfileID   int64  `json:"profile_id" yaml:"profile_id"`
	Name        string `json:"name" yaml:"name"`
	Classifier  string `json:"classifier" yaml:"classifier"`
	Description string `json:"description" yaml:"description"`
	Visible     bool   `json:"visible" yaml:"visible"`
}

// LaborProduct is a work deliverable.
type LaborProduct struct {
	ID          int64     `json:"id" yaml:"id"`
	ProfileID   int64     `json:"profile_id" yaml:"profile_id"`
	Name        string    `json:"name" yaml:"name"`
	Date        time.Time `json:"date" yaml:"date"`
	Description string    `json:"description" yaml:"description"`
	Visible     bool      `json:"visible" yaml:"visible"`
}

// Listing conditions.
const (
	ConditionGood = "Bueno"
	ConditionFair = "Regular"
)

// Listing is an item offered in the profile's marketplace ("venta de garaje").
type Listing struct {
	ID          int64          `json:"id" yaml:"id"`
	ProfileID   int64          `json:"profile_id" yaml:"profile_id"`
	Product     string         `json:"product" yaml:"product"`
	Description string         `json:"description" yaml:"description"`
	Price       float64        `json:"price" yaml:"price"`
	Condition   string         `json:"condition" yaml:"condition"`
	PublishedAt time.Time      `json:"published_at" yaml:"published_at"`
	Image       string         `json:"image" yaml:"image"`
	Active      bool           `json:"active" yaml:"active"`
	Attachment  attachment.Ref `json:"-" yaml:"-"`
}

// Attached is implemented by records that may carry an attachment.
type Attached interface {
	AttachmentRef() attachment.Ref
	RecordID() int64
}

func (r WorkExperience) AttachmentRef() attachment.Ref { return r.Attachment }
func (r Course) AttachmentRef() attachment.Ref         { return r.Attachment }
func (r Recognition) AttachmentRef() attachment.Ref    { return r.Attachment }
func (r Listing) AttachmentRef() attachment.Ref        { return r.Attachment }

func (r WorkExperience) RecordID() int64 { return r.ID }
func (r Course) RecordID() int64         { return r.ID }
func (r Recognition) RecordID() int64    { return r.ID }
func (r Listing) RecordID() int64        { return r.ID }
