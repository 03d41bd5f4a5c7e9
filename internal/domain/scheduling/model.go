package scheduling

import (
	"time"

	"github.com/google/uuid"

	"github.com/siratop/sistema-clinica/internal/domain/patient"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusAttended Status = "attended"
)

type Appointment struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	PatientID  uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID   uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	Date       time.Time  `db:"appt_date" json:"date"`
	Time       string     `db:"appt_time" json:"time"`
	Reason     string     `db:"reason" json:"reason"`
	Status     Status     `db:"status" json:"status"`
	Diagnosis  *string    `db:"diagnosis" json:"diagnosis,omitempty"`
	Treatment  *string    `db:"treatment" json:"treatment,omitempty"`
	Notes      *string    `db:"notes" json:"notes,omitempty"`
	AttendedAt *time.Time `db:"attended_at" json:"attended_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`

	// Filled by joins when reading.
	PatientName       string `db:"-" json:"patient_name,omitempty"`
	PatientNationalID string `db:"-" json:"patient_national_id,omitempty"`
	DoctorName        string `db:"-" json:"doctor_name,omitempty"`
}

func (a *Appointment) Attended() bool {
	return a.Status == StatusAttended
}

// Booking is the appointment part of every booking form.
type Booking struct {
	DoctorID string `form:"doctor_id" json:"doctor_id"`
	Date     string `form:"date" json:"date"`
	Time     string `form:"time" json:"time"`
	Reason   string `form:"reason" json:"reason"`
}

// GuestBooking is the walk-in form: patient demographics plus the booking.
type GuestBooking struct {
	patient.Form
	Booking
}

// Consultation holds the clinical fields written when attending.
type Consultation struct {
	Diagnosis string `form:"diagnosis" json:"diagnosis"`
	Treatment string `form:"treatment" json:"treatment"`
	Notes     string `form:"notes" json:"notes"`
}
