package cv

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Allowed values for the choice fields.
var (
	RecognitionKinds = []string{RecognitionPublic, RecognitionPrivate, RecognitionAcademic}
	Conditions       = []string{ConditionGood, ConditionFair}
	Classifiers      = []string{
		"Articulo cientifico", "Ponencia", "Proyecto de investigacion",
		"Libro", "Capitulo de libro", "Recurso didactico",
	}
	Sexes           = []string{"Masculino", "Femenino", "Prefiero no decir"}
	MaritalStatuses = []string{"Soltero", "Casado", "Viudo", "Divorciado", "Union de hecho"}
	LicenseTypes    = []string{"A", "B", "F", "A1", "C", "C1", "D", "D1", "E", "E1", "G"}
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func notFuture(field string, d, today time.Time) error {
	if !d.IsZero() && day(d).After(day(today)) {
		return invalid("%s: future dates are not allowed", field)
	}
	return nil
}

func dateRange(start, end time.Time) error {
	if !start.IsZero() && !end.IsZero() && day(end).Before(day(start)) {
		return invalid("end date must not precede start date")
	}
	return nil
}

// ageAt returns completed years between birth and today.
func ageAt(birth, today time.Time) int {
	age := today.Year() - birth.Year()
	if today.Month() < birth.Month() || (today.Month() == birth.Month() && today.Day() < birth.Day()) {
		age--
	}
	return age
}

func tenDigits(field, v string) error {
	if v == "" {
		return nil
	}
	for _, r := range v {
		if r < '0' || r > '9' {
			return invalid("%s: only digits are allowed", field)
		}
	}
	if len(v) != 10 {
		return invalid("%s: must have exactly 10 digits (has %d)", field, len(v))
	}
	return nil
}

func oneOf(field, v string, allowed []string) error {
	if v == "" {
		return nil
	}
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return invalid("%s: %q is not one of %s", field, v, strings.Join(allowed, ", "))
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[n:])
}

// Validate checks the profile against today's date.
func (p *Profile) Validate(today time.Time) error {
	if !p.BirthDate.IsZero() {
		if err := notFuture("birth_date", p.BirthDate, today); err != nil {
			return err
		}
		age := ageAt(p.BirthDate, today)
		if age < 18 {
			return invalid("birth_date: must be of age (is %d)", age)
		}
		if age > 100 {
			return invalid("birth_date: age %d is not valid", age)
		}
	}
	if err := tenDigits("id_number", p.IDNumber); err != nil {
		return err
	}
	if err := tenDigits("mobile_phone", p.MobilePhone); err != nil {
		return err
	}
	if err := oneOf("sex", p.Sex, Sexes); err != nil {
		return err
	}
	if err := oneOf("marital_status", p.MaritalStatus, MaritalStatuses); err != nil {
		return err
	}
	return oneOf("driving_license", p.DrivingLicense, LicenseTypes)
}

// Validate checks the experience dates.
func (r *WorkExperience) Validate(today time.Time) error {
	if err := notFuture("start_date", r.StartDate, today); err != nil {
		return err
	}
	if err := notFuture("end_date", r.EndDate, today); err != nil {
		return err
	}
	return dateRange(r.StartDate, r.EndDate)
}

// Validate checks the course dates and hours. Zero hours means unset.
func (r *Course) Validate(today time.Time) error {
	if err := notFuture("start_date", r.StartDate, today); err != nil {
		return err
	}
	if err := notFuture("end_date", r.EndDate, today); err != nil {
		return err
	}
	if err := dateRange(r.StartDate, r.EndDate); err != nil {
		return err
	}
	if r.TotalHours < 0 {
		return invalid("total_hours: must be greater than zero")
	}
	return nil
}

// Validate checks the recognition date and kind.
func (r *Recognition) Validate(today time.Time) error {
	if err := notFuture("date", r.Date, today); err != nil {
		return err
	}
	return oneOf("kind", r.Kind, RecognitionKinds)
}

// Validate checks the classifier.
func (r *AcademicProduct) Validate(time.Time) error {
	return oneOf("classifier", r.Classifier, Classifiers)
}

// Validate checks the product date.
func (r *LaborProduct) Validate(today time.Time) error {
	return notFuture("date", r.Date, today)
}

// Validate checks the listing and normalises its condition ("bueno" is
// stored as "Bueno").
func (r *Listing) Validate(today time.Time) error {
	if strings.TrimSpace(r.Product) == "" {
		return invalid("product: required")
	}
	if r.Price <= 0 {
		return invalid("price: must be greater than zero")
	}
	if r.PublishedAt.IsZero() {
		return invalid("published_at: required")
	}
	if err := notFuture("published_at", r.PublishedAt, today); err != nil {
		return err
	}
	if r.Condition == "" {
		return invalid("condition: required")
	}
	cond := capitalize(strings.TrimSpace(r.Condition))
	if err := oneOf("condition", cond, Conditions); err != nil {
		return err
	}
	r.Condition = cond
	return nil
}
