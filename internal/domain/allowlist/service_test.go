package allowlist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/siratop/sistema-clinica/internal/domain/identity"
	"github.com/siratop/sistema-clinica/internal/platform/apperr"
	"github.com/siratop/sistema-clinica/internal/platform/auth"
)

// -- Mock Repository --

type mockRepo struct {
	entries map[uuid.UUID]*Entry
}

func newMockRepo() *mockRepo {
	return &mockRepo{entries: make(map[uuid.UUID]*Entry)}
}

func (m *mockRepo) Create(_ context.Context, e *Entry) error {
	for _, existing := range m.entries {
		if existing.NationalID == e.NationalID {
			return apperr.Duplicate("national_id")
		}
	}
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	m.entries[e.ID] = e
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Entry, error) {
	e, ok := m.entries[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return e, nil
}

func (m *mockRepo) LockByNationalID(_ context.Context, nationalID string) (*Entry, error) {
	for _, e := range m.entries {
		if e.NationalID == nationalID {
			return e, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (m *mockRepo) MarkUsed(_ context.Context, id uuid.UUID, at time.Time) error {
	e, ok := m.entries[id]
	if !ok {
		return apperr.ErrNotFound
	}
	if e.Used {
		return apperr.ErrAlreadyUsed
	}
	e.Used = true
	e.UsedAt = &at
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.entries[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(m.entries, id)
	return nil
}

func (m *mockRepo) List(_ context.Context) ([]*Entry, error) {
	var out []*Entry
	for _, e := range m.entries {
		out = append(out, e)
	}
	return out, nil
}

// -- Fake registrar --

type fakeRegistrar struct {
	accounts map[uuid.UUID]*identity.Account
	profiles map[string]*identity.StaffProfile
}

func newFakeRegistrar() *fakeRegistrar {
	return &fakeRegistrar{
		accounts: make(map[uuid.UUID]*identity.Account),
		profiles: make(map[string]*identity.StaffProfile),
	}
}

func (f *fakeRegistrar) CreateAccount(_ context.Context, in identity.NewAccount) (*identity.Account, error) {
	if in.Username == "" {
		return nil, apperr.Validation("username", "required")
	}
	for _, a := range f.accounts {
		if a.Username == in.Username {
			return nil, apperr.Duplicate("username")
		}
	}
	a := &identity.Account{ID: uuid.New(), Username: in.Username, FirstName: in.FirstName, LastName: in.LastName, IsActive: true}
	f.accounts[a.ID] = a
	return a, nil
}

func (f *fakeRegistrar) CreateStaffProfile(_ context.Context, p *identity.StaffProfile) error {
	if _, ok := f.profiles[p.NationalID]; ok {
		return apperr.Duplicate("national_id")
	}
	f.profiles[p.NationalID] = p
	return nil
}

func (f *fakeRegistrar) DisableStaffByNationalID(_ context.Context, nationalID string) (bool, error) {
	p, ok := f.profiles[nationalID]
	if !ok {
		return false, nil
	}
	f.accounts[p.AccountID].IsActive = false
	return true, nil
}

type inlineTx struct{ calls int }

func (t *inlineTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	return fn(ctx)
}

var admin = auth.Identity{Kind: auth.KindStaff, AccountID: uuid.New(), Role: auth.RoleAdministrator}

func newTestService() (*Service, *mockRepo, *fakeRegistrar, *inlineTx) {
	repo := newMockRepo()
	reg := newFakeRegistrar()
	tx := &inlineTx{}
	return NewService(repo, reg, tx, "VE", zerolog.Nop()), repo, reg, tx
}

// -- Tests --

func TestService_Authorize(t *testing.T) {
	svc, _, _, _ := newTestService()
	spec := uuid.New()

	e, err := svc.Authorize(context.Background(), admin, AuthorizeInput{
		NationalID: " v-12345678 ", FullName: "José  Gómez", Role: auth.RoleDoctor, SpecialtyID: &spec,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.NationalID != "V-12345678" {
		t.Errorf("expected normalized national id, got %q", e.NationalID)
	}
	if e.FullName != "José Gómez" {
		t.Errorf("expected collapsed name, got %q", e.FullName)
	}
	if e.Used {
		t.Error("new entry must be unused")
	}
	if e.CreatedBy == nil || *e.CreatedBy != admin.AccountID {
		t.Error("expected creator to be recorded")
	}
	if e.SpecialtyID == nil {
		t.Error("expected doctor specialty to be kept")
	}
}

func TestService_Authorize_Rules(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	nurse := auth.Identity{Kind: auth.KindStaff, Role: auth.RoleNurse}
	if _, err := svc.Authorize(ctx, nurse, AuthorizeInput{NationalID: "V-1", FullName: "A", Role: auth.RoleNurse}); !errors.Is(err, apperr.ErrNotAuthorized) {
		t.Errorf("expected ErrNotAuthorized for nurse, got %v", err)
	}
	root := auth.Identity{Kind: auth.KindUnresolved, Superuser: true}
	if _, err := svc.Authorize(ctx, root, AuthorizeInput{NationalID: "V-1", FullName: "A", Role: auth.RoleNurse}); err != nil {
		t.Errorf("superuser should be allowed, got %v", err)
	}
	if _, err := svc.Authorize(ctx, admin, AuthorizeInput{NationalID: "v-1", FullName: "B", Role: auth.RoleNurse}); !errors.Is(err, apperr.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
	_, err := svc.Authorize(ctx, admin, AuthorizeInput{Role: "janitor"})
	fields := apperr.FieldErrors(err)
	for _, f := range []string{"national_id", "full_name", "role"} {
		if _, ok := fields[f]; !ok {
			t.Errorf("expected field error on %s, got %v", f, err)
		}
	}
}

// Administrator authorizes a doctor, who then registers with that ID.
func TestService_Consume_AuthorizedDoctor(t *testing.T) {
	svc, repo, reg, tx := newTestService()
	ctx := context.Background()
	cardiology := uuid.New()
	e, _ := svc.Authorize(ctx, admin, AuthorizeInput{NationalID: "V-12345678", FullName: "José Gómez", Role: auth.RoleDoctor, SpecialtyID: &cardiology})

	acct, err := svc.Consume(ctx, ConsumeInput{NationalID: "V-12345678", Username: "jgomez", Password: "s3cret-pass", Phone: "0414-1234567"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !acct.IsActive {
		t.Error("expected active account")
	}
	if acct.FirstName != "José" || acct.LastName != "Gómez" {
		t.Errorf("expected name from entry, got %q %q", acct.FirstName, acct.LastName)
	}
	p := reg.profiles["V-12345678"]
	if p == nil || p.Role != auth.RoleDoctor || p.SpecialtyID == nil || *p.SpecialtyID != cardiology {
		t.Fatalf("unexpected staff profile %+v", p)
	}
	if p.Phone != "+584141234567" {
		t.Errorf("expected normalized phone, got %q", p.Phone)
	}
	if !repo.entries[e.ID].Used {
		t.Error("expected entry to be marked used")
	}
	if tx.calls != 1 {
		t.Errorf("expected consume to run in one transaction, got %d", tx.calls)
	}
}

func TestService_Consume_OnlyOnce(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	svc.Authorize(ctx, admin, AuthorizeInput{NationalID: "V-1", FullName: "Ana", Role: auth.RoleNurse})

	if _, err := svc.Consume(ctx, ConsumeInput{NationalID: "V-1", Username: "ana", Password: "s3cret-pass"}); err != nil {
		t.Fatalf("first consume: %v", err)
	}
	_, err := svc.Consume(ctx, ConsumeInput{NationalID: "V-1", Username: "ana2", Password: "s3cret-pass"})
	if !errors.Is(err, apperr.ErrAlreadyUsed) {
		t.Errorf("expected ErrAlreadyUsed, got %v", err)
	}
}

func TestService_Consume_NotAllowlisted(t *testing.T) {
	svc, _, _, _ := newTestService()
	_, err := svc.Consume(context.Background(), ConsumeInput{NationalID: "V-404", Username: "x", Password: "s3cret-pass"})
	if !errors.Is(err, apperr.ErrNotAuthorized) {
		t.Errorf("expected ErrNotAuthorized, got %v", err)
	}
	if _, err := svc.Consume(context.Background(), ConsumeInput{}); apperr.FieldErrors(err)["national_id"] == "" {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestService_Consume_FailureLeavesEntryUnused(t *testing.T) {
	svc, repo, _, _ := newTestService()
	ctx := context.Background()
	e, _ := svc.Authorize(ctx, admin, AuthorizeInput{NationalID: "V-2", FullName: "Ana", Role: auth.RoleNurse})

	if _, err := svc.Consume(ctx, ConsumeInput{NationalID: "V-2"}); err == nil {
		t.Fatal("expected validation error for missing username")
	}
	if repo.entries[e.ID].Used {
		t.Error("entry must stay unused when registration fails")
	}
}

// Revoking a consumed entry disables the account but keeps it.
func TestService_Revoke_DisablesRegisteredAccount(t *testing.T) {
	svc, repo, reg, _ := newTestService()
	ctx := context.Background()
	e, _ := svc.Authorize(ctx, admin, AuthorizeInput{NationalID: "V-3", FullName: "Luis", Role: auth.RoleDoctor})
	acct, _ := svc.Consume(ctx, ConsumeInput{NationalID: "V-3", Username: "luis", Password: "s3cret-pass"})

	if err := svc.Revoke(ctx, admin, e.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := repo.entries[e.ID]; ok {
		t.Error("expected entry to be deleted")
	}
	a, ok := reg.accounts[acct.ID]
	if !ok {
		t.Fatal("account must be kept")
	}
	if a.IsActive {
		t.Error("expected account to be disabled")
	}

	// The ID may be authorized again afterwards.
	if _, err := svc.Authorize(ctx, admin, AuthorizeInput{NationalID: "V-3", FullName: "Luis", Role: auth.RoleDoctor}); err != nil {
		t.Errorf("expected re-authorization to succeed, got %v", err)
	}
}

func TestService_Revoke_Rules(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	e, _ := svc.Authorize(ctx, admin, AuthorizeInput{NationalID: "V-4", FullName: "Eva", Role: auth.RoleSecretary})

	secretary := auth.Identity{Kind: auth.KindStaff, Role: auth.RoleSecretary}
	if err := svc.Revoke(ctx, secretary, e.ID); !errors.Is(err, apperr.ErrNotAuthorized) {
		t.Errorf("expected ErrNotAuthorized, got %v", err)
	}
	if err := svc.Revoke(ctx, admin, uuid.New()); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := svc.Revoke(ctx, admin, e.ID); err != nil {
		t.Errorf("unused entry revoke: %v", err)
	}
}

func TestEntry_SplitName(t *testing.T) {
	tests := []struct{ full, first, last string }{
		{"José Gómez", "José", "Gómez"},
		{"Ana María de la Cruz", "Ana", "María de la Cruz"},
		{"Ana", "Ana", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		e := Entry{FullName: tt.full}
		first, last := e.SplitName()
		if first != tt.first || last != tt.last {
			t.Errorf("SplitName(%q) = %q, %q", tt.full, first, last)
		}
	}
}
