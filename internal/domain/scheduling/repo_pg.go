package scheduling

import (
	"context"
	"strings"
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

const apptSelect = `
	SELECT ap.id, ap.patient_id, ap.doctor_id, ap.appt_date, to_char(ap.appt_time, 'HH24:MI'),
	       ap.reason, ap.status, ap.diagnosis, ap.treatment, ap.notes, ap.attended_at, ap.created_at,
	       p.first_name || ' ' || p.last_name, p.national_id,
	       trim(d.first_name || ' ' || d.last_name)
	FROM appointment ap
	JOIN patient p ON p.id = ap.patient_id
	JOIN account d ON d.id = ap.doctor_id`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var status string
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.Date, &a.Time,
		&a.Reason, &status, &a.Diagnosis, &a.Treatment, &a.Notes, &a.AttendedAt, &a.CreatedAt,
		&a.PatientName, &a.PatientNationalID, &a.DoctorName)
	if err != nil {
		return nil, db.ClassifyError(err)
	}
	a.Status = Status(status)
	return &a, nil
}

func (r *repoPG) query(ctx context.Context, sql string, args ...interface{}) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	if a.Status == "" {
		a.Status = StatusPending
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointment (id, patient_id, doctor_id, appt_date, appt_time, reason, status)
		VALUES ($1, $2, $3, $4, $5::time, $6, $7)
		RETURNING created_at`,
		a.ID, a.PatientID, a.DoctorID, a.Date, a.Time, a.Reason, string(a.Status),
	).Scan(&a.CreatedAt)
	return db.ClassifyError(err)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(r.conn(ctx).QueryRow(ctx, apptSelect+` WHERE ap.id = $1`, id))
}

func (r *repoPG) Attend(ctx context.Context, id uuid.UUID, c Consultation, at time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment
		SET diagnosis = $2, treatment = $3, notes = $4, status = 'attended', attended_at = $5
		WHERE id = $1`,
		id, nullable(c.Diagnosis), nullable(c.Treatment), nullable(c.Notes), at)
	if err != nil {
		return db.ClassifyError(err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM appointment WHERE id = $1`, id)
	if err != nil {
		return db.ClassifyError(err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Appointment, error) {
	return r.query(ctx, apptSelect+` WHERE ap.patient_id = $1 ORDER BY ap.appt_date DESC, ap.appt_time DESC`, patientID)
}

func (r *repoPG) ListByDoctorOn(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]*Appointment, error) {
	return r.query(ctx, apptSelect+` WHERE ap.doctor_id = $1 AND ap.appt_date = $2 ORDER BY ap.appt_time`,
		doctorID, dateOnly(day))
}

func (r *repoPG) CountPending(ctx context.Context) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointment WHERE status = 'pending'`).Scan(&n)
	return n, err
}

func (r *repoPG) CountPendingOn(ctx context.Context, day time.Time) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM appointment WHERE status = 'pending' AND appt_date = $1`, dateOnly(day)).Scan(&n)
	return n, err
}

func nullable(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
