package cms

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/siratop/sistema-clinica/internal/platform/apperr"
	"github.com/siratop/sistema-clinica/internal/platform/blobstore"
	"github.com/siratop/sistema-clinica/internal/platform/cache"
)

const (
	// SlidePrefix is the blob key prefix of carousel images, served
	// publicly under /media/.
	SlidePrefix = "slides"

	publicContentKey = "cms:public"
	publicContentTTL = 5 * time.Minute
)

type Service struct {
	slides        SlideRepository
	faqs          FAQRepository
	announcements AnnouncementRepository
	store         blobstore.Store
	cache         cache.Cache
	imagePolicy   blobstore.Policy
	cacheTTL      time.Duration
	logger        zerolog.Logger
}

func NewService(
	slides SlideRepository,
	faqs FAQRepository,
	announcements AnnouncementRepository,
	store blobstore.Store,
	c cache.Cache,
	maxImageBytes int64,
	logger zerolog.Logger,
) *Service {
	return &Service{
		slides:        slides,
		faqs:          faqs,
		announcements: announcements,
		store:         store,
		cache:         c,
		imagePolicy:   blobstore.Policy{MaxSize: maxImageBytes, ContentTypes: blobstore.ImageContentTypes},
		cacheTTL:      publicContentTTL,
		logger:        logger.With().Str("component", "cms").Logger(),
	}
}

// SetCacheTTL changes how long the public content stays cached. Non-positive
// values keep the default.
func (s *Service) SetCacheTTL(d time.Duration) {
	if d > 0 {
		s.cacheTTL = d
	}
}

// Store exposes the blob store for serving slide images.
func (s *Service) Store() blobstore.Store {
	return s.store
}

// invalidate drops the cached public content after a write.
func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Delete(ctx, publicContentKey); err != nil {
		s.logger.Warn().Err(err).Msg("public content cache not invalidated")
	}
}

func (s *Service) saveImage(ctx context.Context, u blobstore.Upload) (string, error) {
	obj, err := blobstore.Save(ctx, s.store, SlidePrefix, s.imagePolicy, u)
	switch {
	case errors.Is(err, blobstore.ErrMissingFileName):
		return "", apperr.Validation("image", "choose an image")
	case errors.Is(err, blobstore.ErrFileTooLarge):
		return "", apperr.Validation("image", "image is too large")
	case errors.Is(err, blobstore.ErrInvalidContentType):
		return "", apperr.Validation("image", "use a PNG, JPEG, GIF or WebP image")
	case err != nil:
		return "", err
	}
	return obj.Key, nil
}

func (s *Service) dropImage(ctx context.Context, key string) {
	if err := s.store.Delete(ctx, key); err != nil && !errors.Is(err, blobstore.ErrBlobNotFound) {
		s.logger.Error().Err(err).Str("blob_key", key).Msg("orphaned slide image")
	}
}

// -- Slides --

// CreateSlide stores a new slide; an image is required.
func (s *Service) CreateSlide(ctx context.Context, f SlideForm, image blobstore.Upload) (*Slide, error) {
	slide := &Slide{}
	if err := f.apply(slide); err != nil {
		return nil, err
	}
	key, err := s.saveImage(ctx, image)
	if err != nil {
		return nil, err
	}
	slide.ImageKey = key
	if err := s.slides.Create(ctx, slide); err != nil {
		s.dropImage(ctx, key)
		return nil, err
	}
	s.invalidate(ctx)
	return slide, nil
}

func (s *Service) GetSlide(ctx context.Context, id uuid.UUID) (*Slide, error) {
	return s.slides.GetByID(ctx, id)
}

// UpdateSlide saves f onto the slide. A new image, when given, replaces
// the old one.
func (s *Service) UpdateSlide(ctx context.Context, id uuid.UUID, f SlideForm, image *blobstore.Upload) (*Slide, error) {
	slide, err := s.slides.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := f.apply(slide); err != nil {
		return nil, err
	}
	oldKey := slide.ImageKey
	if image != nil {
		if slide.ImageKey, err = s.saveImage(ctx, *image); err != nil {
			return nil, err
		}
	}
	if err := s.slides.Update(ctx, slide); err != nil {
		if slide.ImageKey != oldKey {
			s.dropImage(ctx, slide.ImageKey)
		}
		return nil, err
	}
	if slide.ImageKey != oldKey {
		s.dropImage(ctx, oldKey)
	}
	s.invalidate(ctx)
	return slide, nil
}

func (s *Service) DeleteSlide(ctx context.Context, id uuid.UUID) error {
	slide, err := s.slides.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.slides.Delete(ctx, id); err != nil {
		return err
	}
	s.dropImage(ctx, slide.ImageKey)
	s.invalidate(ctx)
	return nil
}

func (s *Service) ListSlides(ctx context.Context) ([]*Slide, error) {
	return s.slides.List(ctx, false)
}

// -- FAQ --

func (s *Service) CreateFAQ(ctx context.Context, f FAQForm) (*FAQ, error) {
	q := &FAQ{}
	if err := f.apply(q); err != nil {
		return nil, err
	}
	if err := s.faqs.Create(ctx, q); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return q, nil
}

func (s *Service) GetFAQ(ctx context.Context, id uuid.UUID) (*FAQ, error) {
	return s.faqs.GetByID(ctx, id)
}

func (s *Service) UpdateFAQ(ctx context.Context, id uuid.UUID, f FAQForm) (*FAQ, error) {
	q, err := s.faqs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := f.apply(q); err != nil {
		return nil, err
	}
	if err := s.faqs.Update(ctx, q); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return q, nil
}

func (s *Service) DeleteFAQ(ctx context.Context, id uuid.UUID) error {
	if err := s.faqs.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) ListFAQs(ctx context.Context) ([]*FAQ, error) {
	return s.faqs.List(ctx, false)
}

// -- Announcement --

// GetAnnouncement returns nil, nil when none was ever saved.
func (s *Service) GetAnnouncement(ctx context.Context) (*Announcement, error) {
	a, err := s.announcements.Get(ctx)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	return a, err
}

func (s *Service) SaveAnnouncement(ctx context.Context, f AnnouncementForm) (*Announcement, error) {
	a, err := f.build()
	if err != nil {
		return nil, err
	}
	if err := s.announcements.Save(ctx, a); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return a, nil
}

// -- Public --

// PublicContent returns the active slides, FAQs and announcement, served
// from the cache when possible.
func (s *Service) PublicContent(ctx context.Context) (*PublicContent, error) {
	var pc PublicContent
	found, err := s.cache.Get(ctx, publicContentKey, &pc)
	if err != nil {
		s.logger.Warn().Err(err).Msg("public content cache read failed")
	}
	if found {
		return &pc, nil
	}

	pc = PublicContent{}
	if pc.Slides, err = s.slides.List(ctx, true); err != nil {
		return nil, err
	}
	if pc.FAQs, err = s.faqs.List(ctx, true); err != nil {
		return nil, err
	}
	a, err := s.GetAnnouncement(ctx)
	if err != nil {
		return nil, err
	}
	if a != nil && a.Active {
		pc.Announcement = a
	}

	if err := s.cache.Set(ctx, publicContentKey, &pc, s.cacheTTL); err != nil {
		s.logger.Warn().Err(err).Msg("public content cache write failed")
	}
	return &pc, nil
}
