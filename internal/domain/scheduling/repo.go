package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// Attend writes the clinical fields and marks the appointment attended.
	// Attending again overwrites the previous values.
	Attend(ctx context.Context, id uuid.UUID, c Consultation, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Appointment, error)
	ListByDoctorOn(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]*Appointment, error)
	CountPending(ctx context.Context) (int, error)
	CountPendingOn(ctx context.Context, day time.Time) (int, error)
}
