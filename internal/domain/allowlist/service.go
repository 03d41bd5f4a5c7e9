package allowlist

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/siratop/sistema-clinica/internal/domain/identity"
	"github.com/siratop/sistema-clinica/internal/platform/apperr"
	"github.com/siratop/sistema-clinica/internal/platform/auth"
	"github.com/siratop/sistema-clinica/internal/platform/db"
	"github.com/siratop/sistema-clinica/internal/platform/phone"
	"github.com/siratop/sistema-clinica/internal/platform/web"
)

// StaffRegistrar is the part of the identity service the gate needs.
type StaffRegistrar interface {
	CreateAccount(ctx context.Context, in identity.NewAccount) (*identity.Account, error)
	CreateStaffProfile(ctx context.Context, p *identity.StaffProfile) error
	DisableStaffByNationalID(ctx context.Context, nationalID string) (bool, error)
}

type Service struct {
	repo        Repository
	staff       StaffRegistrar
	tx          db.TxRunner
	phoneRegion string
	logger      zerolog.Logger
	now         func() time.Time
}

func NewService(repo Repository, staff StaffRegistrar, tx db.TxRunner, phoneRegion string, logger zerolog.Logger) *Service {
	return &Service{
		repo:        repo,
		staff:       staff,
		tx:          tx,
		phoneRegion: phoneRegion,
		logger:      logger.With().Str("component", "allowlist").Logger(),
		now:         time.Now,
	}
}

// Authorize adds nationalID to the allowlist. Only administrators and
// superusers may do so.
func (s *Service) Authorize(ctx context.Context, actor auth.Identity, in AuthorizeInput) (*Entry, error) {
	if !actor.HasRole(auth.RoleAdministrator) {
		return nil, apperr.ErrNotAuthorized
	}

	v := apperr.NewValidation()
	e := &Entry{
		NationalID:  web.NormalizeNationalID(in.NationalID),
		FullName:    strings.Join(strings.Fields(in.FullName), " "),
		Role:        in.Role,
		SpecialtyID: in.SpecialtyID,
	}
	if e.NationalID == "" {
		v.Add("national_id", "required")
	}
	if e.FullName == "" {
		v.Add("full_name", "required")
	}
	if !e.Role.Valid() {
		v.Add("role", "invalid role")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	if e.Role != auth.RoleDoctor {
		e.SpecialtyID = nil
	}
	if actor.AccountID != uuid.Nil {
		createdBy := actor.AccountID
		e.CreatedBy = &createdBy
	}

	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}
	s.logger.Info().Str("entry_id", e.ID.String()).Str("role", string(e.Role)).Msg("national id authorized")
	return e, nil
}

// Consume registers the holder of an allowlisted national ID as staff. The
// entry lock, account, profile and used flag are committed together.
func (s *Service) Consume(ctx context.Context, in ConsumeInput) (*identity.Account, error) {
	nationalID := web.NormalizeNationalID(in.NationalID)
	if nationalID == "" {
		return nil, apperr.Validation("national_id", "required")
	}

	var account *identity.Account
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		e, err := s.repo.LockByNationalID(ctx, nationalID)
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.ErrNotAuthorized
		}
		if err != nil {
			return err
		}
		if e.Used {
			return apperr.ErrAlreadyUsed
		}

		first, last := e.SplitName()
		account, err = s.staff.CreateAccount(ctx, identity.NewAccount{
			Username:  in.Username,
			Password:  in.Password,
			FirstName: first,
			LastName:  last,
			Email:     in.Email,
		})
		if err != nil {
			return err
		}
		profile := &identity.StaffProfile{
			AccountID:   account.ID,
			Role:        e.Role,
			NationalID:  e.NationalID,
			Phone:       phone.Normalize(in.Phone, s.phoneRegion),
			SpecialtyID: e.SpecialtyID,
		}
		if err := s.staff.CreateStaffProfile(ctx, profile); err != nil {
			return err
		}
		return s.repo.MarkUsed(ctx, e.ID, s.now())
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("account_id", account.ID.String()).Msg("allowlist entry consumed")
	return account, nil
}

// Revoke deletes an entry. If its holder already registered, their account
// is disabled; appointments and orders they authored are kept.
func (s *Service) Revoke(ctx context.Context, actor auth.Identity, entryID uuid.UUID) error {
	if !actor.HasRole(auth.RoleAdministrator) {
		return apperr.ErrNotAuthorized
	}
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		e, err := s.repo.GetByID(ctx, entryID)
		if err != nil {
			return err
		}
		disabled, err := s.staff.DisableStaffByNationalID(ctx, e.NationalID)
		if err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, e.ID); err != nil {
			return err
		}
		s.logger.Info().Str("entry_id", e.ID.String()).Bool("account_disabled", disabled).Msg("allowlist entry revoked")
		return nil
	})
}

func (s *Service) List(ctx context.Context) ([]*Entry, error) {
	return s.repo.List(ctx)
}
