package patient

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/siratop/sistema-clinica/internal/domain/identity"
	"github.com/siratop/sistema-clinica/internal/platform/apperr"
	"github.com/siratop/sistema-clinica/internal/platform/db"
)

// AccountCreator creates the login behind a self-registered patient.
type AccountCreator interface {
	CreateAccount(ctx context.Context, in identity.NewAccount) (*identity.Account, error)
}

type Service struct {
	repo        Repository
	accounts    AccountCreator
	tx          db.TxRunner
	phoneRegion string
	logger      zerolog.Logger
	now         func() time.Time
}

func NewService(repo Repository, accounts AccountCreator, tx db.TxRunner, phoneRegion string, logger zerolog.Logger) *Service {
	return &Service{
		repo:        repo,
		accounts:    accounts,
		tx:          tx,
		phoneRegion: phoneRegion,
		logger:      logger.With().Str("component", "patient").Logger(),
		now:         time.Now,
	}
}

func (s *Service) withAge(p *Patient) *Patient {
	p.Age = AgeOn(p.BirthDate, s.now())
	return p
}

func (s *Service) withAges(items []*Patient) []*Patient {
	for _, p := range items {
		s.withAge(p)
	}
	return items
}

// Build validates f into a patient without storing it.
func (s *Service) Build(f Form) (*Patient, error) {
	v := apperr.NewValidation()
	p := f.Build(v, s.now(), s.phoneRegion)
	if err := v.Err(); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Create(ctx context.Context, f Form) (*Patient, error) {
	p, err := s.Build(f)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return s.withAge(p), nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withAge(p), nil
}

func (s *Service) GetByAccount(ctx context.Context, accountID uuid.UUID) (*Patient, error) {
	p, err := s.repo.GetByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.withAge(p), nil
}

// Update replaces the demographic fields of an existing patient. The
// account link and registration time are kept.
func (s *Service) Update(ctx context.Context, id uuid.UUID, f Form) (*Patient, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p, err := s.Build(f)
	if err != nil {
		return nil, err
	}
	p.ID = existing.ID
	p.AccountID = existing.AccountID
	p.RegisteredAt = existing.RegisteredAt
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return s.withAge(p), nil
}

// Delete removes the patient together with its appointments, documents and
// nursing orders.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("patient_id", id.String()).Msg("patient deleted")
	return nil
}

// List returns a page of patients, filtered by query when it is not empty.
func (s *Service) List(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error) {
	var (
		items []*Patient
		total int
		err   error
	)
	if query != "" {
		items, total, err = s.repo.Search(ctx, query, limit, offset)
	} else {
		items, total, err = s.repo.List(ctx, limit, offset)
	}
	if err != nil {
		return nil, 0, err
	}
	return s.withAges(items), total, nil
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// SelfRegister creates a login and its patient record together.
func (s *Service) SelfRegister(ctx context.Context, r Registration) (*Patient, error) {
	v := apperr.NewValidation()
	p := r.Form.Build(v, s.now(), s.phoneRegion)
	if r.Username == "" {
		v.Add("username", "required")
	}
	if r.Password == "" {
		v.Add("password", "required")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		in := identity.NewAccount{
			Username:  r.Username,
			Password:  r.Password,
			FirstName: p.FirstName,
			LastName:  p.LastName,
		}
		if p.Email != nil {
			in.Email = *p.Email
		}
		account, err := s.accounts.CreateAccount(ctx, in)
		if err != nil {
			return err
		}
		p.AccountID = &account.ID
		return s.repo.Create(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("patient_id", p.ID.String()).Msg("patient self-registered")
	return s.withAge(p), nil
}

// UpsertGuest finds the patient by national ID, refreshing only its phone,
// or creates it from f. Used by walk-in booking.
func (s *Service) UpsertGuest(ctx context.Context, f Form) (*Patient, bool, error) {
	p, err := s.Build(f)
	if err != nil {
		return nil, false, err
	}
	created, err := s.repo.UpsertByNationalID(ctx, p)
	if err != nil {
		return nil, false, err
	}
	return s.withAge(p), created, nil
}
