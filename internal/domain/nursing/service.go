package nursing

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/siratop/sistema-clinica/internal/platform/apperr"
	"github.com/siratop/sistema-clinica/internal/platform/auth"
)

// ListLimit caps the dashboard queues.
const ListLimit = 50

type Service struct {
	repo   Repository
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("component", "nursing").Logger(),
		now:    time.Now,
	}
}

// Create records a pending order written by the calling doctor.
func (s *Service) Create(ctx context.Context, doctor auth.Identity, f OrderForm) (*Order, error) {
	if !doctor.HasRole(auth.RoleDoctor) {
		return nil, apperr.ErrNotAuthorized
	}
	v := apperr.NewValidation()
	o := &Order{DoctorID: doctor.AccountID, Instruction: strings.TrimSpace(f.Instruction)}
	if id, err := uuid.Parse(strings.TrimSpace(f.PatientID)); err != nil {
		v.Add("patient_id", "select a patient")
	} else {
		o.PatientID = id
	}
	if o.Instruction == "" {
		v.Add("instruction", "required")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, o); err != nil {
		return nil, err
	}
	s.logger.Info().Str("order_id", o.ID.String()).Str("patient_id", o.PatientID.String()).Msg("nursing order created")
	return o, nil
}

// Execute closes the order on behalf of nurse. An order is executed at
// most once.
func (s *Service) Execute(ctx context.Context, nurse auth.Identity, id uuid.UUID, f ExecuteForm) (*Order, error) {
	if !nurse.HasRole(auth.RoleNurse) {
		return nil, apperr.ErrNotAuthorized
	}
	if err := s.repo.Execute(ctx, id, nurse.AccountID, strings.TrimSpace(f.Note), s.now()); err != nil {
		return nil, err
	}
	s.logger.Info().Str("order_id", id.String()).Str("nurse_id", nurse.AccountID.String()).Msg("nursing order executed")
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListPending(ctx context.Context) ([]*Order, error) {
	return s.repo.ListPending(ctx, ListLimit)
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Order, error) {
	return s.repo.ListByDoctor(ctx, doctorID, ListLimit)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Order, error) {
	return s.repo.ListByPatient(ctx, patientID)
}
