package cms

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/siratop/sistema-clinica/internal/platform/apperr"
	"github.com/siratop/sistema-clinica/internal/platform/blobstore"
)

// -- Mock Repositories --

type mockSlideRepo struct {
	items map[uuid.UUID]*Slide
	seq   int
}

func newMockSlideRepo() *mockSlideRepo {
	return &mockSlideRepo{items: make(map[uuid.UUID]*Slide)}
}

func (m *mockSlideRepo) Create(_ context.Context, s *Slide) error {
	m.seq++
	s.ID = uuid.New()
	s.CreatedAt = time.Date(2024, 1, 1, 0, 0, m.seq, 0, time.UTC)
	cp := *s
	m.items[s.ID] = &cp
	return nil
}

func (m *mockSlideRepo) GetByID(_ context.Context, id uuid.UUID) (*Slide, error) {
	s, ok := m.items[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *mockSlideRepo) Update(_ context.Context, s *Slide) error {
	if _, ok := m.items[s.ID]; !ok {
		return apperr.ErrNotFound
	}
	cp := *s
	m.items[s.ID] = &cp
	return nil
}

func (m *mockSlideRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.items[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *mockSlideRepo) List(_ context.Context, activeOnly bool) ([]*Slide, error) {
	var out []*Slide
	for _, s := range m.items {
		if !activeOnly || s.Active {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

type mockFAQRepo struct {
	items map[uuid.UUID]*FAQ
	seq   int
}

func newMockFAQRepo() *mockFAQRepo {
	return &mockFAQRepo{items: make(map[uuid.UUID]*FAQ)}
}

func (m *mockFAQRepo) Create(_ context.Context, q *FAQ) error {
	m.seq++
	q.ID = uuid.New()
	q.CreatedAt = time.Date(2024, 1, 1, 0, 0, m.seq, 0, time.UTC)
	cp := *q
	m.items[q.ID] = &cp
	return nil
}

func (m *mockFAQRepo) GetByID(_ context.Context, id uuid.UUID) (*FAQ, error) {
	q, ok := m.items[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *q
	return &cp, nil
}

func (m *mockFAQRepo) Update(_ context.Context, q *FAQ) error {
	if _, ok := m.items[q.ID]; !ok {
		return apperr.ErrNotFound
	}
	cp := *q
	m.items[q.ID] = &cp
	return nil
}

func (m *mockFAQRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.items[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *mockFAQRepo) List(_ context.Context, activeOnly bool) ([]*FAQ, error) {
	var out []*FAQ
	for _, q := range m.items {
		if !activeOnly || q.Active {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

type mockAnnouncementRepo struct {
	current *Announcement
}

func (m *mockAnnouncementRepo) Get(context.Context) (*Announcement, error) {
	if m.current == nil {
		return nil, apperr.ErrNotFound
	}
	cp := *m.current
	return &cp, nil
}

func (m *mockAnnouncementRepo) Save(_ context.Context, a *Announcement) error {
	a.UpdatedAt = time.Now()
	cp := *a
	m.current = &cp
	return nil
}

// memoryCache is a map-backed cache.Cache that counts reads.
type memoryCache struct {
	data    map[string][]byte
	hits    int
	lastTTL time.Duration
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string][]byte)}
}

func (m *memoryCache) Get(_ context.Context, key string, dst any) (bool, error) {
	raw, ok := m.data[key]
	if !ok {
		return false, nil
	}
	m.hits++
	return true, json.Unmarshal(raw, dst)
}

func (m *memoryCache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	m.lastTTL = ttl
	return nil
}

func (m *memoryCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

type fixture struct {
	svc    *Service
	slides *mockSlideRepo
	faqs   *mockFAQRepo
	store  *blobstore.MemoryStore
	cache  *memoryCache
}

func newFixture() *fixture {
	f := &fixture{
		slides: newMockSlideRepo(),
		faqs:   newMockFAQRepo(),
		store:  blobstore.NewMemoryStore(),
		cache:  newMemoryCache(),
	}
	f.svc = NewService(f.slides, f.faqs, &mockAnnouncementRepo{}, f.store, f.cache, 1024, zerolog.Nop())
	return f
}

func png(name string) blobstore.Upload {
	return blobstore.Upload{FileName: name, ContentType: "image/png", Size: 4, Content: strings.NewReader("\x89PNG")}
}

// -- Tests --

func TestService_CreateSlide(t *testing.T) {
	f := newFixture()
	s, err := f.svc.CreateSlide(context.Background(), SlideForm{Title: "Bienvenidos", Active: true}, png("a.png"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Overlay != OverlayMedium {
		t.Errorf("expected default overlay, got %q", s.Overlay)
	}
	if !strings.HasPrefix(s.ImageKey, SlidePrefix+"/") || s.ImageURL() != "/media/"+s.ImageKey {
		t.Errorf("unexpected image key %q", s.ImageKey)
	}
	if f.store.Len() != 1 {
		t.Errorf("expected stored image, got %d", f.store.Len())
	}
}

func TestService_CreateSlide_Validation(t *testing.T) {
	f := newFixture()
	_, err := f.svc.CreateSlide(context.Background(), SlideForm{SortOrder: "primero", Overlay: "neon"}, png("a.png"))
	fields := apperr.FieldErrors(err)
	for _, name := range []string{"title", "sort_order", "overlay"} {
		if fields[name] == "" {
			t.Errorf("expected error on %s", name)
		}
	}

	_, err = f.svc.CreateSlide(context.Background(), SlideForm{Title: "x"}, blobstore.Upload{FileName: "doc.pdf", ContentType: "application/pdf", Size: 1, Content: strings.NewReader("x")})
	if apperr.FieldErrors(err)["image"] == "" {
		t.Errorf("expected image error, got %v", err)
	}
	_, err = f.svc.CreateSlide(context.Background(), SlideForm{Title: "x"}, blobstore.Upload{})
	if apperr.FieldErrors(err)["image"] == "" {
		t.Errorf("expected missing image error, got %v", err)
	}
	if f.store.Len() != 0 || len(f.slides.items) != 0 {
		t.Error("nothing should be stored")
	}
}

func TestService_UpdateSlide_ReplacesImage(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	s, _ := f.svc.CreateSlide(ctx, SlideForm{Title: "a"}, png("a.png"))
	oldKey := s.ImageKey

	kept, err := f.svc.UpdateSlide(ctx, s.ID, SlideForm{Title: "b", Overlay: "dark"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kept.ImageKey != oldKey || kept.Title != "b" || kept.Overlay != OverlayDark {
		t.Errorf("unexpected slide %+v", kept)
	}

	img := png("b.png")
	replaced, err := f.svc.UpdateSlide(ctx, s.ID, SlideForm{Title: "b"}, &img)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if replaced.ImageKey == oldKey {
		t.Error("expected a new image key")
	}
	if f.store.Len() != 1 {
		t.Errorf("expected old image removed, %d stored", f.store.Len())
	}
}

func TestService_DeleteSlide(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	s, _ := f.svc.CreateSlide(ctx, SlideForm{Title: "a"}, png("a.png"))
	if err := f.svc.DeleteSlide(ctx, s.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.store.Len() != 0 || len(f.slides.items) != 0 {
		t.Error("expected slide and image removed")
	}
	if err := f.svc.DeleteSlide(ctx, s.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestService_FAQ_CRUD(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	q, err := f.svc.CreateFAQ(ctx, FAQForm{Question: "¿Horario?", Answer: "8 a 5", Active: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.CreateFAQ(ctx, FAQForm{}); apperr.FieldErrors(err)["question"] == "" {
		t.Errorf("expected question error, got %v", err)
	}
	updated, err := f.svc.UpdateFAQ(ctx, q.ID, FAQForm{Question: "¿Horario?", Answer: "7 a 3"})
	if err != nil || updated.Answer != "7 a 3" || updated.Active {
		t.Errorf("unexpected update %+v %v", updated, err)
	}
	if err := f.svc.DeleteFAQ(ctx, q.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.svc.GetFAQ(ctx, q.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// Active items only, by ascending order; equal orders keep insertion order.
func TestService_PublicContent_Ordering(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.svc.CreateFAQ(ctx, FAQForm{Question: "c", Answer: "x", SortOrder: "2", Active: true})
	f.svc.CreateFAQ(ctx, FAQForm{Question: "a", Answer: "x", SortOrder: "1", Active: true})
	f.svc.CreateFAQ(ctx, FAQForm{Question: "b", Answer: "x", SortOrder: "1", Active: true})
	f.svc.CreateFAQ(ctx, FAQForm{Question: "hidden", Answer: "x", SortOrder: "0"})

	pc, err := f.svc.PublicContent(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got []string
	for _, q := range pc.FAQs {
		got = append(got, q.Question)
	}
	if strings.Join(got, ",") != "a,b,c" {
		t.Errorf("unexpected order %v", got)
	}
}

func TestService_PublicContent_Announcement(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	pc, _ := f.svc.PublicContent(ctx)
	if pc.Announcement != nil {
		t.Error("expected no announcement before the first save")
	}

	if _, err := f.svc.SaveAnnouncement(ctx, AnnouncementForm{Title: "Feriado", Message: "Cerrado el lunes"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	pc, _ = f.svc.PublicContent(ctx)
	if pc.Announcement != nil {
		t.Error("inactive announcement must not be public")
	}

	f.svc.SaveAnnouncement(ctx, AnnouncementForm{Title: "Feriado", Message: "Cerrado el lunes", Active: true})
	pc, _ = f.svc.PublicContent(ctx)
	if pc.Announcement == nil || pc.Announcement.Title != "Feriado" {
		t.Errorf("expected active announcement, got %+v", pc.Announcement)
	}
}

func TestService_PublicContent_CachedUntilWrite(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.svc.CreateFAQ(ctx, FAQForm{Question: "a", Answer: "x", Active: true})

	f.svc.PublicContent(ctx)
	pc, _ := f.svc.PublicContent(ctx)
	if f.cache.hits != 1 || len(pc.FAQs) != 1 {
		t.Fatalf("expected second read from cache, hits=%d", f.cache.hits)
	}

	f.svc.CreateFAQ(ctx, FAQForm{Question: "b", Answer: "x", Active: true})
	pc, _ = f.svc.PublicContent(ctx)
	if len(pc.FAQs) != 2 {
		t.Errorf("expected fresh content after write, got %d faqs", len(pc.FAQs))
	}
}

func TestService_SetCacheTTL(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.svc.PublicContent(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.cache.lastTTL != publicContentTTL {
		t.Errorf("expected default ttl %s, got %s", publicContentTTL, f.cache.lastTTL)
	}

	f.svc.SetCacheTTL(0)
	f.svc.SetCacheTTL(time.Minute)
	f.cache.data = make(map[string][]byte)
	if _, err := f.svc.PublicContent(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.cache.lastTTL != time.Minute {
		t.Errorf("expected 1m ttl, got %s", f.cache.lastTTL)
	}
}
