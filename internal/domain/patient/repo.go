package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByAccount(ctx context.Context, accountID uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
	// Search matches query against names and national ID, case-insensitively.
	Search(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error)
	Count(ctx context.Context) (int, error)
	// UpsertByNationalID inserts p, or when its national ID already exists
	// only refreshes the stored phone. p is reloaded from the stored row.
	UpsertByNationalID(ctx context.Context, p *Patient) (created bool, err error)
}
