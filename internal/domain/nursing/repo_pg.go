package nursing

import (
	"context"
	"time"

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

const orderSelect = `
	SELECT o.id, o.patient_id, o.doctor_id, o.instruction, o.executed, o.execution_note,
		o.executed_by, o.executed_at, o.created_at,
		p.first_name || ' ' || p.last_name,
		d.first_name || ' ' || d.last_name,
		COALESCE(n.first_name || ' ' || n.last_name, '')
	FROM nursing_order o
	JOIN patient p ON p.id = o.patient_id
	JOIN account d ON d.id = o.doctor_id
	LEFT JOIN account n ON n.id = o.executed_by`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.PatientID, &o.DoctorID, &o.Instruction, &o.Executed, &o.ExecutionNote,
		&o.ExecutedBy, &o.ExecutedAt, &o.CreatedAt, &o.PatientName, &o.DoctorName, &o.NurseName)
	if err != nil {
		return nil, db.ClassifyError(err)
	}
	return &o, nil
}

func (r *repoPG) list(ctx context.Context, query string, args ...interface{}) ([]*Order, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, db.ClassifyError(err)
	}
	defer rows.Close()

	var items []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, db.ClassifyError(rows.Err())
}

func (r *repoPG) Create(ctx context.Context, o *Order) error {
	o.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO nursing_order (id, patient_id, doctor_id, instruction)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		o.ID, o.PatientID, o.DoctorID, o.Instruction,
	).Scan(&o.CreatedAt)
	return db.ClassifyError(err)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	return scanOrder(r.conn(ctx).QueryRow(ctx, orderSelect+` WHERE o.id = $1`, id))
}

func (r *repoPG) Execute(ctx context.Context, id, nurseID uuid.UUID, note string, at time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE nursing_order
		SET executed = TRUE, execution_note = $2, executed_by = $3, executed_at = $4
		WHERE id = $1 AND NOT executed`,
		id, note, nurseID, at)
	if err != nil {
		return db.ClassifyError(err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	var executed bool
	err = r.conn(ctx).QueryRow(ctx, `SELECT executed FROM nursing_order WHERE id = $1`, id).Scan(&executed)
	if err != nil {
		return db.ClassifyError(err)
	}
	return apperr.ErrAlreadyUsed
}

func (r *repoPG) ListPending(ctx context.Context, limit int) ([]*Order, error) {
	return r.list(ctx, orderSelect+` WHERE NOT o.executed ORDER BY o.created_at LIMIT $1`, limit)
}

func (r *repoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit int) ([]*Order, error) {
	return r.list(ctx, orderSelect+` WHERE o.doctor_id = $1 ORDER BY o.created_at DESC LIMIT $2`, doctorID, limit)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Order, error) {
	return r.list(ctx, orderSelect+` WHERE o.patient_id = $1 ORDER BY o.created_at DESC`, patientID)
}
