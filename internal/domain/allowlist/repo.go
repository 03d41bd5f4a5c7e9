package allowlist

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, e *Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	// LockByNationalID loads the entry and holds a row lock until the
	// surrounding transaction ends.
	LockByNationalID(ctx context.Context, nationalID string) (*Entry, error)
	MarkUsed(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*Entry, error)
}
