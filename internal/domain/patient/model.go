package patient

import (
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/siratop/sistema-clinica/internal/platform/apperr"
	"github.com/siratop/sistema-clinica/internal/platform/phone"
	"github.com/siratop/sistema-clinica/internal/platform/web"
)

const (
	SexMale   = "M"
	SexFemale = "F"
)

type Patient struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	AccountID         *uuid.UUID `db:"account_id" json:"account_id,omitempty"`
	NationalID        string     `db:"national_id" json:"national_id"`
	FirstName         string     `db:"first_name" json:"first_name"`
	LastName          string     `db:"last_name" json:"last_name"`
	BirthDate         time.Time  `db:"birth_date" json:"birth_date"`
	Sex               string     `db:"sex" json:"sex"`
	Phone             string     `db:"phone" json:"phone"`
	Email             *string    `db:"email" json:"email,omitempty"`
	Address           string     `db:"address" json:"address"`
	Allergies         string     `db:"allergies" json:"allergies"`
	ChronicConditions string     `db:"chronic_conditions" json:"chronic_conditions"`
	RegisteredAt      time.Time  `db:"registered_at" json:"registered_at"`

	// Age is derived from BirthDate when the record is read.
	Age int `db:"-" json:"age"`
}

func (p *Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// AgeOn returns the whole years between birth and now's calendar date.
func AgeOn(birth, now time.Time) int {
	years := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// Form is the demographic part of every patient form: staff create/edit,
// self-registration and guest booking.
type Form struct {
	NationalID        string `form:"national_id" json:"national_id"`
	FirstName         string `form:"first_name" json:"first_name"`
	LastName          string `form:"last_name" json:"last_name"`
	BirthDate         string `form:"birth_date" json:"birth_date"`
	Sex               string `form:"sex" json:"sex"`
	Phone             string `form:"phone" json:"phone"`
	Email             string `form:"email" json:"email"`
	Address           string `form:"address" json:"address"`
	Allergies         string `form:"allergies" json:"allergies"`
	ChronicConditions string `form:"chronic_conditions" json:"chronic_conditions"`
}

// Build validates f and returns the patient it describes. Problems are
// collected into v so callers can add their own fields.
func (f Form) Build(v *apperr.ValidationError, now time.Time, phoneRegion string) *Patient {
	p := &Patient{
		NationalID:        web.NormalizeNationalID(f.NationalID),
		FirstName:         collapse(f.FirstName),
		LastName:          collapse(f.LastName),
		Sex:               strings.ToUpper(strings.TrimSpace(f.Sex)),
		Phone:             phone.Normalize(f.Phone, phoneRegion),
		Address:           strings.TrimSpace(f.Address),
		Allergies:         strings.TrimSpace(f.Allergies),
		ChronicConditions: strings.TrimSpace(f.ChronicConditions),
	}

	if p.NationalID == "" {
		v.Add("national_id", "required")
	}
	if p.FirstName == "" {
		v.Add("first_name", "required")
	}
	if p.LastName == "" {
		v.Add("last_name", "required")
	}
	if strings.TrimSpace(f.BirthDate) == "" {
		v.Add("birth_date", "required")
	} else if bd, err := web.ParseDate(f.BirthDate); err != nil {
		v.Add("birth_date", "use the format YYYY-MM-DD")
	} else if bd.After(now) {
		v.Add("birth_date", "must not be in the future")
	} else {
		p.BirthDate = bd
	}
	if p.Sex != SexMale && p.Sex != SexFemale {
		v.Add("sex", "must be M or F")
	}
	if p.Phone == "" {
		v.Add("phone", "required")
	} else if !phone.Valid(f.Phone, phoneRegion) {
		v.Add("phone", "not a valid phone number")
	}
	if email := strings.TrimSpace(f.Email); email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			v.Add("email", "invalid e-mail address")
		} else {
			p.Email = &email
		}
	}
	return p
}

// FormFrom fills a Form from a stored patient for editing.
func FormFrom(p *Patient) Form {
	f := Form{
		NationalID:        p.NationalID,
		FirstName:         p.FirstName,
		LastName:          p.LastName,
		BirthDate:         p.BirthDate.Format(web.DateLayout),
		Sex:               p.Sex,
		Phone:             p.Phone,
		Address:           p.Address,
		Allergies:         p.Allergies,
		ChronicConditions: p.ChronicConditions,
	}
	if p.Email != nil {
		f.Email = *p.Email
	}
	return f
}

// Registration is a self-registration form: demographics plus credentials.
type Registration struct {
	Form
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password,omitempty"`
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
