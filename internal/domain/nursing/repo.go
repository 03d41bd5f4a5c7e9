package nursing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	// Execute marks a pending order executed. It fails with
	// apperr.ErrAlreadyUsed when the order was executed before.
	Execute(ctx context.Context, id, nurseID uuid.UUID, note string, at time.Time) error
	ListPending(ctx context.Context, limit int) ([]*Order, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit int) ([]*Order, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Order, error)
}
