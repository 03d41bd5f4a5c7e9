package cms

import (
	"context"

	"github.com/google/uuid"
)

// Lists return items by ascending sort order; equal orders keep insertion
// order.
type SlideRepository interface {
	Create(ctx context.Context, s *Slide) error
	GetByID(ctx context.Context, id uuid.UUID) (*Slide, error)
	Update(ctx context.Context, s *Slide) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, activeOnly bool) ([]*Slide, error)
}

type FAQRepository interface {
	Create(ctx context.Context, q *FAQ) error
	GetByID(ctx context.Context, id uuid.UUID) (*FAQ, error)
	Update(ctx context.Context, q *FAQ) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, activeOnly bool) ([]*FAQ, error)
}

type AnnouncementRepository interface {
	// Get returns apperr.ErrNotFound until the first Save.
	Get(ctx context.Context) (*Announcement, error)
	Save(ctx context.Context, a *Announcement) error
}
