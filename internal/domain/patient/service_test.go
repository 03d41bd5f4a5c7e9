package patient

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/siratop/sistema-clinica/internal/domain/identity"
	"github.com/siratop/sistema-clinica/internal/platform/apperr"
)

// -- Mock Repository --

type mockRepo struct {
	patients map[uuid.UUID]*Patient
}

func newMockRepo() *mockRepo {
	return &mockRepo{patients: make(map[uuid.UUID]*Patient)}
}

func (m *mockRepo) byNationalID(nid string) *Patient {
	for _, p := range m.patients {
		if p.NationalID == nid {
			return p
		}
	}
	return nil
}

func (m *mockRepo) Create(_ context.Context, p *Patient) error {
	if m.byNationalID(p.NationalID) != nil {
		return apperr.Duplicate("national_id")
	}
	p.ID = uuid.New()
	p.RegisteredAt = time.Now()
	stored := *p
	m.patients[p.ID] = &stored
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepo) GetByAccount(_ context.Context, accountID uuid.UUID) (*Patient, error) {
	for _, p := range m.patients {
		if p.AccountID != nil && *p.AccountID == accountID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (m *mockRepo) Update(_ context.Context, p *Patient) error {
	if _, ok := m.patients[p.ID]; !ok {
		return apperr.ErrNotFound
	}
	if other := m.byNationalID(p.NationalID); other != nil && other.ID != p.ID {
		return apperr.Duplicate("national_id")
	}
	stored := *p
	m.patients[p.ID] = &stored
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.patients[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(m.patients, id)
	return nil
}

func (m *mockRepo) page(match func(*Patient) bool, limit, offset int) ([]*Patient, int, error) {
	var all []*Patient
	for _, p := range m.patients {
		if match(p) {
			cp := *p
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].LastName < all[j].LastName })
	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*Patient, int, error) {
	return m.page(func(*Patient) bool { return true }, limit, offset)
}

func (m *mockRepo) Search(_ context.Context, query string, limit, offset int) ([]*Patient, int, error) {
	q := strings.ToLower(query)
	return m.page(func(p *Patient) bool {
		return strings.Contains(strings.ToLower(p.FullName()), q) || strings.Contains(strings.ToLower(p.NationalID), q)
	}, limit, offset)
}

func (m *mockRepo) Count(_ context.Context) (int, error) {
	return len(m.patients), nil
}

func (m *mockRepo) UpsertByNationalID(ctx context.Context, p *Patient) (bool, error) {
	if existing := m.byNationalID(p.NationalID); existing != nil {
		existing.Phone = p.Phone
		*p = *existing
		return false, nil
	}
	return true, m.Create(ctx, p)
}

// -- Fakes --

type fakeAccounts struct {
	usernames map[string]bool
}

func (f *fakeAccounts) CreateAccount(_ context.Context, in identity.NewAccount) (*identity.Account, error) {
	if f.usernames[in.Username] {
		return nil, apperr.Duplicate("username")
	}
	f.usernames[in.Username] = true
	return &identity.Account{ID: uuid.New(), Username: in.Username, IsActive: true}, nil
}

type inlineTx struct{}

func (inlineTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

var fixedNow = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

func newTestService() (*Service, *mockRepo) {
	repo := newMockRepo()
	svc := NewService(repo, &fakeAccounts{usernames: make(map[string]bool)}, inlineTx{}, "VE", zerolog.Nop())
	svc.now = func() time.Time { return fixedNow }
	return svc, repo
}

func validForm() Form {
	return Form{
		NationalID:        "v-1111",
		FirstName:         "María",
		LastName:          "Pérez",
		BirthDate:         "1990-06-16",
		Sex:               "f",
		Phone:             "0414-1234567",
		Email:             "maria@example.com",
		Address:           "Av. Principal",
		Allergies:         "Ninguna conocida",
		ChronicConditions: "Asma",
	}
}

// -- Tests --

func TestAgeOn(t *testing.T) {
	birth := time.Date(1990, 6, 16, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		now  time.Time
		want int
	}{
		{time.Date(2024, 6, 15, 23, 0, 0, 0, time.UTC), 33},
		{time.Date(2024, 6, 16, 0, 0, 0, 0, time.UTC), 34},
		{time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), 34},
		{time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC), 0},
	}
	for _, tt := range tests {
		if got := AgeOn(birth, tt.now); got != tt.want {
			t.Errorf("AgeOn(%s) = %d, want %d", tt.now.Format("2006-01-02"), got, tt.want)
		}
	}
}

func TestService_CreateAndGet_RoundTrip(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, validForm())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if got.NationalID != "V-1111" || got.FirstName != "María" || got.LastName != "Pérez" || got.Sex != "F" {
		t.Errorf("unexpected identity fields %+v", got)
	}
	if !got.BirthDate.Equal(time.Date(1990, 6, 16, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected birth date %v", got.BirthDate)
	}
	if got.Phone != "+584141234567" {
		t.Errorf("expected E.164 phone, got %q", got.Phone)
	}
	if got.Email == nil || *got.Email != "maria@example.com" {
		t.Errorf("unexpected email %v", got.Email)
	}
	if got.Address != "Av. Principal" || got.Allergies != "Ninguna conocida" || got.ChronicConditions != "Asma" {
		t.Errorf("unexpected medical summary %+v", got)
	}
	if got.Age != 33 {
		t.Errorf("expected age 33, got %d", got.Age)
	}
}

func TestService_Create_Validation(t *testing.T) {
	svc, _ := newTestService()
	tests := []struct {
		name   string
		mutate func(*Form)
		field  string
	}{
		{"missing national id", func(f *Form) { f.NationalID = " " }, "national_id"},
		{"missing first name", func(f *Form) { f.FirstName = "" }, "first_name"},
		{"missing last name", func(f *Form) { f.LastName = "" }, "last_name"},
		{"unparseable birth date", func(f *Form) { f.BirthDate = "16/06/1990" }, "birth_date"},
		{"future birth date", func(f *Form) { f.BirthDate = "2030-01-01" }, "birth_date"},
		{"bad sex", func(f *Form) { f.Sex = "X" }, "sex"},
		{"missing phone", func(f *Form) { f.Phone = "" }, "phone"},
		{"invalid phone", func(f *Form) { f.Phone = "123" }, "phone"},
		{"bad email", func(f *Form) { f.Email = "not-an-email" }, "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validForm()
			tt.mutate(&f)
			_, err := svc.Create(context.Background(), f)
			if _, ok := apperr.FieldErrors(err)[tt.field]; !ok {
				t.Errorf("expected error on %s, got %v", tt.field, err)
			}
		})
	}
}

func TestService_Create_DuplicateNationalID(t *testing.T) {
	svc, _ := newTestService()
	svc.Create(context.Background(), validForm())
	if _, err := svc.Create(context.Background(), validForm()); !errors.Is(err, apperr.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestService_Update(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	p, _ := svc.Create(ctx, validForm())

	f := validForm()
	f.Address = "Calle 2"
	f.Email = ""
	updated, err := svc.Update(ctx, p.ID, f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Address != "Calle 2" || updated.Email != nil {
		t.Errorf("unexpected update %+v", updated)
	}
	if !updated.RegisteredAt.Equal(p.RegisteredAt) {
		t.Error("registration time must be kept")
	}
	if _, err := svc.Update(ctx, uuid.New(), f); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestService_Delete(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	p, _ := svc.Create(ctx, validForm())
	if err := svc.Delete(ctx, p.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.patients) != 0 {
		t.Error("expected patient to be removed")
	}
	if err := svc.Delete(ctx, p.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestService_List_Search(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	for i, name := range []string{"Pérez", "Gómez", "Díaz"} {
		f := validForm()
		f.NationalID = "V-" + string(rune('1'+i))
		f.LastName = name
		if _, err := svc.Create(ctx, f); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	all, total, _ := svc.List(ctx, "", 10, 0)
	if total != 3 || len(all) != 3 {
		t.Errorf("expected 3 patients, got %d/%d", len(all), total)
	}
	found, total, _ := svc.List(ctx, "gómez", 10, 0)
	if total != 1 || found[0].LastName != "Gómez" {
		t.Errorf("unexpected search result %v", found)
	}
	if found[0].Age == 0 {
		t.Error("expected age on listed patients")
	}
	if n, _ := svc.Count(ctx); n != 3 {
		t.Errorf("expected count 3, got %d", n)
	}
}

func TestService_SelfRegister(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	p, err := svc.SelfRegister(ctx, Registration{Form: validForm(), Username: "mperez", Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.AccountID == nil {
		t.Fatal("expected patient to be linked to an account")
	}
	got, err := svc.GetByAccount(ctx, *p.AccountID)
	if err != nil || got.ID != p.ID {
		t.Errorf("expected lookup by account, got %v", err)
	}

	f := validForm()
	f.NationalID = "V-2222"
	_, err = svc.SelfRegister(ctx, Registration{Form: f, Username: "mperez", Password: "s3cret-pass"})
	if !errors.Is(err, apperr.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey for taken username, got %v", err)
	}
}

func TestService_SelfRegister_Validation(t *testing.T) {
	svc, _ := newTestService()
	f := validForm()
	f.BirthDate = "yesterday"
	_, err := svc.SelfRegister(context.Background(), Registration{Form: f})
	fields := apperr.FieldErrors(err)
	for _, name := range []string{"birth_date", "username", "password"} {
		if _, ok := fields[name]; !ok {
			t.Errorf("expected error on %s, got %v", name, err)
		}
	}
}

func TestService_UpsertGuest(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	first, created, err := svc.UpsertGuest(ctx, validForm())
	if err != nil || !created {
		t.Fatalf("expected creation, got created=%v err=%v", created, err)
	}

	f := validForm()
	f.Phone = "0412-7654321"
	f.Address = "Otra dirección"
	second, created, err := svc.UpsertGuest(ctx, f)
	if err != nil || created {
		t.Fatalf("expected existing patient, got created=%v err=%v", created, err)
	}
	if second.ID != first.ID {
		t.Error("expected the same patient")
	}
	if len(repo.patients) != 1 {
		t.Errorf("expected one patient row, got %d", len(repo.patients))
	}
	stored := repo.patients[first.ID]
	if stored.Phone != "+584127654321" {
		t.Errorf("expected phone to be refreshed, got %q", stored.Phone)
	}
	if stored.Address != "Av. Principal" {
		t.Errorf("other fields must be untouched, got address %q", stored.Address)
	}
}
