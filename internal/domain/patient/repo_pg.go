package patient

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/siratop/sistema-clinica/internal/platform/apperr"
	"github.com/siratop/sistema-clinica/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const patientCols = `id, account_id, national_id, first_name, last_name, birth_date, sex, phone, email,
	address, allergies, chronic_conditions, registered_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.AccountID, &p.NationalID, &p.FirstName, &p.LastName, &p.BirthDate,
		&p.Sex, &p.Phone, &p.Email, &p.Address, &p.Allergies, &p.ChronicConditions, &p.RegisteredAt)
	if err != nil {
		return nil, db.ClassifyError(err)
	}
	return &p, nil
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient (id, account_id, national_id, first_name, last_name, birth_date, sex,
			phone, email, address, allergies, chronic_conditions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING registered_at`,
		p.ID, p.AccountID, p.NationalID, p.FirstName, p.LastName, p.BirthDate, p.Sex,
		p.Phone, p.Email, p.Address, p.Allergies, p.ChronicConditions,
	).Scan(&p.RegisteredAt)
	return db.ClassifyError(err)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
}

func (r *repoPG) GetByAccount(ctx context.Context, accountID uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE account_id = $1`, accountID))
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient SET national_id = $2, first_name = $3, last_name = $4, birth_date = $5, sex = $6,
			phone = $7, email = $8, address = $9, allergies = $10, chronic_conditions = $11
		WHERE id = $1`,
		p.ID, p.NationalID, p.FirstName, p.LastName, p.BirthDate, p.Sex,
		p.Phone, p.Email, p.Address, p.Allergies, p.ChronicConditions)
	if err != nil {
		return db.ClassifyError(err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM patient WHERE id = $1`, id)
	if err != nil {
		return db.ClassifyError(err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *repoPG) list(ctx context.Context, where string, args []interface{}, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	n := len(args)
	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+patientCols+` FROM patient`+where+
		` ORDER BY lower(last_name), lower(first_name) LIMIT $`+strconv.Itoa(n+1)+` OFFSET $`+strconv.Itoa(n+2), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return r.list(ctx, "", nil, limit, offset)
}

func (r *repoPG) Search(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error) {
	pattern := "%" + escapeLike(strings.TrimSpace(query)) + "%"
	where := ` WHERE first_name ILIKE $1 OR last_name ILIKE $1 OR national_id ILIKE $1
		OR (first_name || ' ' || last_name) ILIKE $1`
	return r.list(ctx, where, []interface{}{pattern}, limit, offset)
}

func (r *repoPG) Count(ctx context.Context) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient`).Scan(&n)
	return n, err
}

func (r *repoPG) UpsertByNationalID(ctx context.Context, p *Patient) (bool, error) {
	var created bool
	row := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient (id, national_id, first_name, last_name, birth_date, sex,
			phone, email, address, allergies, chronic_conditions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (national_id) DO UPDATE SET phone = EXCLUDED.phone
		RETURNING `+patientCols+`, (xmax = 0)`,
		uuid.New(), p.NationalID, p.FirstName, p.LastName, p.BirthDate, p.Sex,
		p.Phone, p.Email, p.Address, p.Allergies, p.ChronicConditions)
	err := row.Scan(&p.ID, &p.AccountID, &p.NationalID, &p.FirstName, &p.LastName, &p.BirthDate,
		&p.Sex, &p.Phone, &p.Email, &p.Address, &p.Allergies, &p.ChronicConditions, &p.RegisteredAt, &created)
	if err != nil {
		return false, db.ClassifyError(err)
	}
	return created, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
