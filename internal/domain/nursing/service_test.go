package nursing

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/siratop/sistema-clinica/internal/platform/apperr"
	"github.com/siratop/sistema-clinica/internal/platform/auth"
)

type mockRepo struct {
	orders   map[uuid.UUID]*Order
	patients map[uuid.UUID]bool
}

func newMockRepo() *mockRepo {
	return &mockRepo{orders: make(map[uuid.UUID]*Order), patients: make(map[uuid.UUID]bool)}
}

func (m *mockRepo) Create(_ context.Context, o *Order) error {
	if !m.patients[o.PatientID] {
		return apperr.ErrNotFound
	}
	o.ID = uuid.New()
	o.CreatedAt = time.Now()
	stored := *o
	m.orders[o.ID] = &stored
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockRepo) Execute(_ context.Context, id, nurseID uuid.UUID, note string, at time.Time) error {
	o, ok := m.orders[id]
	if !ok {
		return apperr.ErrNotFound
	}
	if o.Executed {
		return apperr.ErrAlreadyUsed
	}
	o.Executed, o.ExecutionNote, o.ExecutedBy, o.ExecutedAt = true, note, &nurseID, &at
	return nil
}

func (m *mockRepo) filter(keep func(*Order) bool, limit int) []*Order {
	var out []*Order
	for _, o := range m.orders {
		if keep(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (m *mockRepo) ListPending(_ context.Context, limit int) ([]*Order, error) {
	return m.filter(func(o *Order) bool { return !o.Executed }, limit), nil
}

func (m *mockRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID, limit int) ([]*Order, error) {
	return m.filter(func(o *Order) bool { return o.DoctorID == doctorID }, limit), nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*Order, error) {
	return m.filter(func(o *Order) bool { return o.PatientID == patientID }, 0), nil
}

var (
	doctor = auth.Identity{Kind: auth.KindStaff, Role: auth.RoleDoctor, AccountID: uuid.New()}
	nurse  = auth.Identity{Kind: auth.KindStaff, Role: auth.RoleNurse, AccountID: uuid.New()}
)

func newTestService() (*Service, *mockRepo, uuid.UUID) {
	repo := newMockRepo()
	patientID := uuid.New()
	repo.patients[patientID] = true
	return NewService(repo, zerolog.Nop()), repo, patientID
}

func TestService_Create(t *testing.T) {
	svc, _, patientID := newTestService()
	o, err := svc.Create(context.Background(), doctor, OrderForm{PatientID: patientID.String(), Instruction: " curar herida "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Executed || o.DoctorID != doctor.AccountID || o.Instruction != "curar herida" {
		t.Errorf("unexpected order %+v", o)
	}
}

func TestService_Create_Errors(t *testing.T) {
	svc, _, patientID := newTestService()
	ctx := context.Background()

	if _, err := svc.Create(ctx, nurse, OrderForm{PatientID: patientID.String(), Instruction: "x"}); !errors.Is(err, apperr.ErrNotAuthorized) {
		t.Errorf("expected ErrNotAuthorized for nurse, got %v", err)
	}
	_, err := svc.Create(ctx, doctor, OrderForm{PatientID: "bad"})
	fields := apperr.FieldErrors(err)
	if fields["patient_id"] == "" || fields["instruction"] == "" {
		t.Errorf("expected field errors, got %v", err)
	}
	if _, err := svc.Create(ctx, doctor, OrderForm{PatientID: uuid.NewString(), Instruction: "x"}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown patient, got %v", err)
	}
}

func TestService_Execute_Once(t *testing.T) {
	svc, _, patientID := newTestService()
	ctx := context.Background()
	o, _ := svc.Create(ctx, doctor, OrderForm{PatientID: patientID.String(), Instruction: "x"})

	done, err := svc.Execute(ctx, nurse, o.ID, ExecuteForm{Note: "hecho"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !done.Executed || done.ExecutedAt == nil || done.ExecutedBy == nil || *done.ExecutedBy != nurse.AccountID {
		t.Errorf("expected execution fields set together, got %+v", done)
	}

	other := auth.Identity{Kind: auth.KindStaff, Role: auth.RoleNurse, AccountID: uuid.New()}
	if _, err := svc.Execute(ctx, other, o.ID, ExecuteForm{Note: "otra"}); !errors.Is(err, apperr.ErrAlreadyUsed) {
		t.Errorf("expected ErrAlreadyUsed, got %v", err)
	}
	got, _ := svc.Get(ctx, o.ID)
	if got.ExecutionNote != "hecho" || *got.ExecutedBy != nurse.AccountID {
		t.Error("second execution must not overwrite the first")
	}
}

func TestService_Execute_Errors(t *testing.T) {
	svc, _, patientID := newTestService()
	ctx := context.Background()
	o, _ := svc.Create(ctx, doctor, OrderForm{PatientID: patientID.String(), Instruction: "x"})

	if _, err := svc.Execute(ctx, doctor, o.ID, ExecuteForm{}); !errors.Is(err, apperr.ErrNotAuthorized) {
		t.Errorf("expected ErrNotAuthorized for doctor, got %v", err)
	}
	if _, err := svc.Execute(ctx, nurse, uuid.New(), ExecuteForm{}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestService_Lists(t *testing.T) {
	svc, _, patientID := newTestService()
	ctx := context.Background()
	a, _ := svc.Create(ctx, doctor, OrderForm{PatientID: patientID.String(), Instruction: "a"})
	svc.Create(ctx, doctor, OrderForm{PatientID: patientID.String(), Instruction: "b"})
	svc.Execute(ctx, nurse, a.ID, ExecuteForm{})

	pending, _ := svc.ListPending(ctx)
	if len(pending) != 1 || pending[0].Instruction != "b" {
		t.Errorf("unexpected pending queue %v", pending)
	}
	mine, _ := svc.ListByDoctor(ctx, doctor.AccountID)
	if len(mine) != 2 {
		t.Errorf("expected 2 doctor orders, got %d", len(mine))
	}
	byPatient, _ := svc.ListByPatient(ctx, patientID)
	if len(byPatient) != 2 {
		t.Errorf("expected 2 patient orders, got %d", len(byPatient))
	}
}
