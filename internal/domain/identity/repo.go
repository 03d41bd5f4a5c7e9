package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type AccountRepository interface {
	Create(ctx context.Context, a *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByUsername(ctx context.Context, username string) (*Account, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	LoadIdentity(ctx context.Context, id uuid.UUID) (*IdentityRecord, error)
}

type StaffRepository interface {
	Create(ctx context.Context, p *StaffProfile) error
	GetByAccount(ctx context.Context, accountID uuid.UUID) (*StaffProfile, error)
	GetByNationalID(ctx context.Context, nationalID string) (*StaffProfile, error)
	ListDoctors(ctx context.Context) ([]*Doctor, error)
	GetDoctor(ctx context.Context, accountID uuid.UUID) (*Doctor, error)
}

type SpecialtyRepository interface {
	Create(ctx context.Context, s *Specialty) error
	GetByID(ctx context.Context, id uuid.UUID) (*Specialty, error)
	List(ctx context.Context) ([]*Specialty, error)
}
