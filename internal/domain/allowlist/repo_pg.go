package allowlist

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/siratop/sistema-clinica/internal/platform/apperr"
	"github.com/siratop/sistema-clinica/internal/platform/auth"
	"github.com/siratop/sistema-clinica/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const entryCols = `e.id, e.national_id, e.full_name, e.role, e.specialty_id, COALESCE(s.name, ''),
	e.used, e.used_at, e.created_by, e.created_at`

const entryFrom = ` FROM allowlist_entry e LEFT JOIN specialty s ON s.id = e.specialty_id`

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	var role string
	err := row.Scan(&e.ID, &e.NationalID, &e.FullName, &role, &e.SpecialtyID, &e.SpecialtyName,
		&e.Used, &e.UsedAt, &e.CreatedBy, &e.CreatedAt)
	if err != nil {
		return nil, db.ClassifyError(err)
	}
	e.Role = auth.Role(role)
	return &e, nil
}

func (r *repoPG) Create(ctx context.Context, e *Entry) error {
	e.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO allowlist_entry (id, national_id, full_name, role, specialty_id, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		e.ID, e.NationalID, e.FullName, string(e.Role), e.SpecialtyID, e.CreatedBy,
	).Scan(&e.CreatedAt)
	return db.ClassifyError(err)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Entry, error) {
	return scanEntry(r.conn(ctx).QueryRow(ctx, `SELECT `+entryCols+entryFrom+` WHERE e.id = $1`, id))
}

func (r *repoPG) LockByNationalID(ctx context.Context, nationalID string) (*Entry, error) {
	return scanEntry(r.conn(ctx).QueryRow(ctx,
		`SELECT `+entryCols+entryFrom+` WHERE e.national_id = $1 FOR UPDATE OF e`, nationalID))
}

func (r *repoPG) MarkUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE allowlist_entry SET used = TRUE, used_at = $2 WHERE id = $1 AND NOT used`, id, at)
	if err != nil {
		return db.ClassifyError(err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrAlreadyUsed
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM allowlist_entry WHERE id = $1`, id)
	if err != nil {
		return db.ClassifyError(err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context) ([]*Entry, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+entryCols+entryFrom+` ORDER BY e.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}
