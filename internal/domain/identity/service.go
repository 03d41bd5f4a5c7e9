package identity

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/siratop/sistema-clinica/internal/platform/apperr"
	"github.com/siratop/sistema-clinica/internal/platform/auth"
	"github.com/siratop/sistema-clinica/internal/platform/web"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 150
)

type Service struct {
	accounts    AccountRepository
	staff       StaffRepository
	specialties SpecialtyRepository
	logger      zerolog.Logger
	now         func() time.Time
}

func NewService(accounts AccountRepository, staff StaffRepository, specialties SpecialtyRepository, logger zerolog.Logger) *Service {
	return &Service{
		accounts:    accounts,
		staff:       staff,
		specialties: specialties,
		logger:      logger.With().Str("component", "identity").Logger(),
		now:         time.Now,
	}
}

// -- Authentication --

// Authenticate checks credentials. Unknown users, wrong passwords and
// disabled accounts all fail with apperr.ErrNotAuthorized.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*Account, error) {
	a, err := s.accounts.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.ErrNotAuthorized
		}
		return nil, err
	}
	if err := auth.CheckPassword(a.PasswordHash, password); err != nil {
		return nil, apperr.ErrNotAuthorized
	}
	if !a.IsActive {
		return nil, apperr.ErrNotAuthorized
	}
	now := s.now()
	if err := s.accounts.TouchLastLogin(ctx, a.ID, now); err != nil {
		s.logger.Warn().Err(err).Str("account_id", a.ID.String()).Msg("failed to record last login")
	} else {
		a.LastLoginAt = &now
	}
	return a, nil
}

// Resolve decides which kind of identity an account is. A patient link
// takes precedence over a staff profile.
func (s *Service) Resolve(ctx context.Context, accountID uuid.UUID) (auth.Identity, error) {
	rec, err := s.accounts.LoadIdentity(ctx, accountID)
	if err != nil {
		return auth.Identity{}, err
	}
	a := rec.Account
	if !a.IsActive {
		return auth.Identity{}, fmt.Errorf("account %s is disabled: %w", a.ID, apperr.ErrNotAuthorized)
	}

	id := auth.Identity{
		Kind:        auth.KindUnresolved,
		AccountID:   a.ID,
		Username:    a.Username,
		DisplayName: a.FullName(),
		Superuser:   a.IsSuperuser,
	}
	switch {
	case rec.PatientID != nil:
		id.Kind = auth.KindPatient
		id.PatientID = *rec.PatientID
	case rec.Role != nil:
		id.Kind = auth.KindStaff
		id.Role = *rec.Role
	}
	return id, nil
}

// -- Accounts --

// CreateAccount validates and stores a new active login.
func (s *Service) CreateAccount(ctx context.Context, in NewAccount) (*Account, error) {
	v := apperr.NewValidation()
	username := strings.TrimSpace(in.Username)
	switch {
	case username == "":
		v.Add("username", "required")
	case len(username) < minUsernameLen || len(username) > maxUsernameLen:
		v.Add("username", fmt.Sprintf("must be between %d and %d characters", minUsernameLen, maxUsernameLen))
	case strings.ContainsAny(username, " \t\r\n"):
		v.Add("username", "must not contain spaces")
	}
	if len(in.Password) < auth.MinPasswordLength {
		v.Add("password", fmt.Sprintf("must be at least %d characters", auth.MinPasswordLength))
	}
	email := strings.TrimSpace(in.Email)
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			v.Add("email", "invalid e-mail address")
		}
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	a := &Account{
		Username:     username,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        email,
		IsActive:     true,
		IsSuperuser:  in.Superuser,
	}
	if err := s.accounts.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// CreateSuperuser bootstraps an administrator login from the command line.
func (s *Service) CreateSuperuser(ctx context.Context, username, password, email string) (*Account, error) {
	a, err := s.CreateAccount(ctx, NewAccount{Username: username, Password: password, Email: email, Superuser: true})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("account_id", a.ID.String()).Str("username", a.Username).Msg("superuser created")
	return a, nil
}

// DisableAccount prevents future logins and drops active sessions on their
// next request. Records owned by the account are kept.
func (s *Service) DisableAccount(ctx context.Context, accountID uuid.UUID) error {
	if err := s.accounts.SetActive(ctx, accountID, false); err != nil {
		return err
	}
	s.logger.Info().Str("account_id", accountID.String()).Msg("account disabled")
	return nil
}

// DisableStaffByNationalID disables the account behind the staff profile
// holding nationalID. It reports whether such a profile existed.
func (s *Service) DisableStaffByNationalID(ctx context.Context, nationalID string) (bool, error) {
	p, err := s.staff.GetByNationalID(ctx, web.NormalizeNationalID(nationalID))
	if errors.Is(err, apperr.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := s.DisableAccount(ctx, p.AccountID); err != nil {
		return false, err
	}
	return true, nil
}

// -- Staff profiles --

func (s *Service) CreateStaffProfile(ctx context.Context, p *StaffProfile) error {
	v := apperr.NewValidation()
	if !p.Role.Valid() {
		v.Add("role", "invalid role")
	}
	p.NationalID = web.NormalizeNationalID(p.NationalID)
	if p.NationalID == "" {
		v.Add("national_id", "required")
	}
	if p.Role != auth.RoleDoctor {
		p.SpecialtyID = nil
	}
	if err := v.Err(); err != nil {
		return err
	}
	return s.staff.Create(ctx, p)
}

func (s *Service) GetStaffProfile(ctx context.Context, accountID uuid.UUID) (*StaffProfile, error) {
	return s.staff.GetByAccount(ctx, accountID)
}

func (s *Service) ListDoctors(ctx context.Context) ([]*Doctor, error) {
	return s.staff.ListDoctors(ctx)
}

// GetDoctor returns an active doctor; anything else is apperr.ErrNotFound.
func (s *Service) GetDoctor(ctx context.Context, accountID uuid.UUID) (*Doctor, error) {
	return s.staff.GetDoctor(ctx, accountID)
}

func (s *Service) IsActiveDoctor(ctx context.Context, accountID uuid.UUID) (bool, error) {
	_, err := s.staff.GetDoctor(ctx, accountID)
	if errors.Is(err, apperr.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// -- Specialties --

func (s *Service) CreateSpecialty(ctx context.Context, sp *Specialty) error {
	sp.Name = strings.TrimSpace(sp.Name)
	if sp.Name == "" {
		return apperr.Validation("name", "required")
	}
	return s.specialties.Create(ctx, sp)
}

func (s *Service) GetSpecialty(ctx context.Context, id uuid.UUID) (*Specialty, error) {
	return s.specialties.GetByID(ctx, id)
}

func (s *Service) ListSpecialties(ctx context.Context) ([]*Specialty, error) {
	return s.specialties.List(ctx)
}
