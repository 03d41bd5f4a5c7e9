package identity

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

// =========== Account Repository ===========

type accountRepoPG struct{ pool *pgxpool.Pool }

func NewAccountRepoPG(pool *pgxpool.Pool) AccountRepository {
	return &accountRepoPG{pool: pool}
}

func (r *accountRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const accountCols = `id, username, password_hash, first_name, last_name, email,
	is_active, is_superuser, created_at, last_login_at`

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.FirstName, &a.LastName, &a.Email,
		&a.IsActive, &a.IsSuperuser, &a.CreatedAt, &a.LastLoginAt)
	if err != nil {
		return nil, db.ClassifyError(err)
	}
	return &a, nil
}

func (r *accountRepoPG) Create(ctx context.Context, a *Account) error {
	a.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO account (id, username, password_hash, first_name, last_name, email, is_active, is_superuser)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`,
		a.ID, a.Username, a.PasswordHash, a.FirstName, a.LastName, a.Email, a.IsActive, a.IsSuperuser,
	).Scan(&a.CreatedAt)
	return db.ClassifyError(err)
}

func (r *accountRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	return scanAccount(r.conn(ctx).QueryRow(ctx, `SELECT `+accountCols+` FROM account WHERE id = $1`, id))
}

func (r *accountRepoPG) GetByUsername(ctx context.Context, username string) (*Account, error) {
	return scanAccount(r.conn(ctx).QueryRow(ctx, `SELECT `+accountCols+` FROM account WHERE username = $1`, username))
}

func (r *accountRepoPG) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE account SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return db.ClassifyError(err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *accountRepoPG) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE account SET last_login_at = $2 WHERE id = $1`, id, at)
	return db.ClassifyError(err)
}

func (r *accountRepoPG) LoadIdentity(ctx context.Context, id uuid.UUID) (*IdentityRecord, error) {
	var rec IdentityRecord
	var role *string
	a := &rec.Account
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT a.id, a.username, a.password_hash, a.first_name, a.last_name, a.email,
		       a.is_active, a.is_superuser, a.created_at, a.last_login_at,
		       s.role, p.id
		FROM account a
		LEFT JOIN staff_profile s ON s.account_id = a.id
		LEFT JOIN patient p ON p.account_id = a.id
		WHERE a.id = $1`, id,
	).Scan(&a.ID, &a.Username, &a.PasswordHash, &a.FirstName, &a.LastName, &a.Email,
		&a.IsActive, &a.IsSuperuser, &a.CreatedAt, &a.LastLoginAt,
		&role, &rec.PatientID)
	if err != nil {
		return nil, db.ClassifyError(err)
	}
	if role != nil {
		staffRole := auth.Role(*role)
		rec.Role = &staffRole
	}
	return &rec, nil
}

// =========== StaffProfile Repository ===========

type staffRepoPG struct{ pool *pgxpool.Pool }

func NewStaffRepoPG(pool *pgxpool.Pool) StaffRepository {
	return &staffRepoPG{pool: pool}
}

func (r *staffRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const staffCols = `account_id, role, national_id, phone, specialty_id, created_at`

func scanStaff(row pgx.Row) (*StaffProfile, error) {
	var p StaffProfile
	var role string
	if err := row.Scan(&p.AccountID, &role, &p.NationalID, &p.Phone, &p.SpecialtyID, &p.CreatedAt); err != nil {
		return nil, db.ClassifyError(err)
	}
	p.Role = auth.Role(role)
	return &p, nil
}

func (r *staffRepoPG) Create(ctx context.Context, p *StaffProfile) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO staff_profile (account_id, role, national_id, phone, specialty_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		p.AccountID, string(p.Role), p.NationalID, p.Phone, p.SpecialtyID,
	).Scan(&p.CreatedAt)
	return db.ClassifyError(err)
}

func (r *staffRepoPG) GetByAccount(ctx context.Context, accountID uuid.UUID) (*StaffProfile, error) {
	return scanStaff(r.conn(ctx).QueryRow(ctx, `SELECT `+staffCols+` FROM staff_profile WHERE account_id = $1`, accountID))
}

func (r *staffRepoPG) GetByNationalID(ctx context.Context, nationalID string) (*StaffProfile, error) {
	return scanStaff(r.conn(ctx).QueryRow(ctx, `SELECT `+staffCols+` FROM staff_profile WHERE national_id = $1`, nationalID))
}

const doctorQuery = `
	SELECT a.id, a.first_name, a.last_name, COALESCE(sp.name, '')
	FROM staff_profile s
	JOIN account a ON a.id = s.account_id
	LEFT JOIN specialty sp ON sp.id = s.specialty_id
	WHERE s.role = 'doctor' AND a.is_active`

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	if err := row.Scan(&d.AccountID, &d.FirstName, &d.LastName, &d.Specialty); err != nil {
		return nil, db.ClassifyError(err)
	}
	return &d, nil
}

func (r *staffRepoPG) ListDoctors(ctx context.Context) ([]*Doctor, error) {
	rows, err := r.conn(ctx).Query(ctx, doctorQuery+` ORDER BY a.last_name, a.first_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

func (r *staffRepoPG) GetDoctor(ctx context.Context, accountID uuid.UUID) (*Doctor, error) {
	return scanDoctor(r.conn(ctx).QueryRow(ctx, doctorQuery+` AND a.id = $1`, accountID))
}

// =========== Specialty Repository ===========

type specialtyRepoPG struct{ pool *pgxpool.Pool }

func NewSpecialtyRepoPG(pool *pgxpool.Pool) SpecialtyRepository {
	return &specialtyRepoPG{pool: pool}
}

func (r *specialtyRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

func scanSpecialty(row pgx.Row) (*Specialty, error) {
	var s Specialty
	if err := row.Scan(&s.ID, &s.Name, &s.Description, &s.CreatedAt); err != nil {
		return nil, db.ClassifyError(err)
	}
	return &s, nil
}

func (r *specialtyRepoPG) Create(ctx context.Context, s *Specialty) error {
	s.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO specialty (id, name, description) VALUES ($1, $2, $3)
		RETURNING created_at`, s.ID, s.Name, s.Description,
	).Scan(&s.CreatedAt)
	return db.ClassifyError(err)
}

func (r *specialtyRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Specialty, error) {
	return scanSpecialty(r.conn(ctx).QueryRow(ctx,
		`SELECT id, name, description, created_at FROM specialty WHERE id = $1`, id))
}

func (r *specialtyRepoPG) List(ctx context.Context) ([]*Specialty, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT id, name, description, created_at FROM specialty ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Specialty
	for rows.Next() {
		s, err := scanSpecialty(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}
