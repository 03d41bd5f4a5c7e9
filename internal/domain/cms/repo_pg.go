package cms

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/siratop/sistema-clinica/internal/platform/apperr"
	"github.com/siratop/sistema-clinica/internal/platform/db"
)

func exec(ctx context.Context, q db.Querier, sql string, args ...interface{}) error {
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return db.ClassifyError(err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func activeClause(activeOnly bool) string {
	if activeOnly {
		return ` WHERE active`
	}
	return ``
}

// -- Slides --

type slideRepoPG struct{ pool *pgxpool.Pool }

func NewSlideRepoPG(pool *pgxpool.Pool) SlideRepository {
	return &slideRepoPG{pool: pool}
}

func (r *slideRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const slideCols = `id, title, subtitle, image_key, sort_order, active, overlay, created_at`

func scanSlide(row pgx.Row) (*Slide, error) {
	var s Slide
	if err := row.Scan(&s.ID, &s.Title, &s.Subtitle, &s.ImageKey, &s.SortOrder, &s.Active, &s.Overlay, &s.CreatedAt); err != nil {
		return nil, db.ClassifyError(err)
	}
	return &s, nil
}

func (r *slideRepoPG) Create(ctx context.Context, s *Slide) error {
	s.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO carousel_slide (id, title, subtitle, image_key, sort_order, active, overlay)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		s.ID, s.Title, s.Subtitle, s.ImageKey, s.SortOrder, s.Active, s.Overlay,
	).Scan(&s.CreatedAt)
	return db.ClassifyError(err)
}

func (r *slideRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Slide, error) {
	return scanSlide(r.conn(ctx).QueryRow(ctx, `SELECT `+slideCols+` FROM carousel_slide WHERE id = $1`, id))
}

func (r *slideRepoPG) Update(ctx context.Context, s *Slide) error {
	return exec(ctx, r.conn(ctx), `
		UPDATE carousel_slide SET title = $2, subtitle = $3, image_key = $4, sort_order = $5,
			active = $6, overlay = $7
		WHERE id = $1`,
		s.ID, s.Title, s.Subtitle, s.ImageKey, s.SortOrder, s.Active, s.Overlay)
}

func (r *slideRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return exec(ctx, r.conn(ctx), `DELETE FROM carousel_slide WHERE id = $1`, id)
}

func (r *slideRepoPG) List(ctx context.Context, activeOnly bool) ([]*Slide, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+slideCols+` FROM carousel_slide`+activeClause(activeOnly)+`
		ORDER BY sort_order, created_at, id`)
	if err != nil {
		return nil, db.ClassifyError(err)
	}
	defer rows.Close()

	var items []*Slide
	for rows.Next() {
		s, err := scanSlide(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, db.ClassifyError(rows.Err())
}

// -- FAQ --

type faqRepoPG struct{ pool *pgxpool.Pool }

func NewFAQRepoPG(pool *pgxpool.Pool) FAQRepository {
	return &faqRepoPG{pool: pool}
}

func (r *faqRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const faqCols = `id, question, answer, sort_order, active, created_at`

func scanFAQ(row pgx.Row) (*FAQ, error) {
	var q FAQ
	if err := row.Scan(&q.ID, &q.Question, &q.Answer, &q.SortOrder, &q.Active, &q.CreatedAt); err != nil {
		return nil, db.ClassifyError(err)
	}
	return &q, nil
}

func (r *faqRepoPG) Create(ctx context.Context, q *FAQ) error {
	q.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO faq_entry (id, question, answer, sort_order, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		q.ID, q.Question, q.Answer, q.SortOrder, q.Active,
	).Scan(&q.CreatedAt)
	return db.ClassifyError(err)
}

func (r *faqRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*FAQ, error) {
	return scanFAQ(r.conn(ctx).QueryRow(ctx, `SELECT `+faqCols+` FROM faq_entry WHERE id = $1`, id))
}

func (r *faqRepoPG) Update(ctx context.Context, q *FAQ) error {
	return exec(ctx, r.conn(ctx), `
		UPDATE faq_entry SET question = $2, answer = $3, sort_order = $4, active = $5
		WHERE id = $1`,
		q.ID, q.Question, q.Answer, q.SortOrder, q.Active)
}

func (r *faqRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return exec(ctx, r.conn(ctx), `DELETE FROM faq_entry WHERE id = $1`, id)
}

func (r *faqRepoPG) List(ctx context.Context, activeOnly bool) ([]*FAQ, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+faqCols+` FROM faq_entry`+activeClause(activeOnly)+`
		ORDER BY sort_order, created_at, id`)
	if err != nil {
		return nil, db.ClassifyError(err)
	}
	defer rows.Close()

	var items []*FAQ
	for rows.Next() {
		q, err := scanFAQ(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, q)
	}
	return items, db.ClassifyError(rows.Err())
}

// -- Announcement --

type announcementRepoPG struct{ pool *pgxpool.Pool }

func NewAnnouncementRepoPG(pool *pgxpool.Pool) AnnouncementRepository {
	return &announcementRepoPG{pool: pool}
}

func (r *announcementRepoPG) Get(ctx context.Context) (*Announcement, error) {
	var a Announcement
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT title, message, active, updated_at FROM announcement WHERE id = 1`,
	).Scan(&a.Title, &a.Message, &a.Active, &a.UpdatedAt)
	if err != nil {
		return nil, db.ClassifyError(err)
	}
	return &a, nil
}

func (r *announcementRepoPG) Save(ctx context.Context, a *Announcement) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO announcement (id, title, message, active, updated_at)
		VALUES (1, $1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE
			SET title = EXCLUDED.title, message = EXCLUDED.message, active = EXCLUDED.active,
				updated_at = EXCLUDED.updated_at
		RETURNING updated_at`,
		a.Title, a.Message, a.Active,
	).Scan(&a.UpdatedAt)
	return db.ClassifyError(err)
}
