package ledger

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/siratop/sistema-clinica/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.Type, &e.Amount, &e.Description, &e.Date, &e.Reference, &e.RecordedBy,
		&e.RecordedByName, &e.IsForeign, &e.ExchangeRate, &e.CreatedAt)
	if err != nil {
		return nil, db.ClassifyError(err)
	}
	return &e, nil
}

func (r *repoPG) Create(ctx context.Context, e *Entry) error {
	e.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO ledger_entry (id, entry_type, amount, description, entry_date, reference,
			recorded_by, is_foreign, exchange_rate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`,
		e.ID, e.Type, e.Amount, e.Description, e.Date, e.Reference,
		e.RecordedBy, e.IsForeign, e.ExchangeRate,
	).Scan(&e.CreatedAt)
	return db.ClassifyError(err)
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Entry, int, error) {
	var where []string
	var args []interface{}
	if f.From != nil {
		args = append(args, *f.From)
		where = append(where, "l.entry_date >= $"+strconv.Itoa(len(args)))
	}
	if f.To != nil {
		args = append(args, *f.To)
		where = append(where, "l.entry_date <= $"+strconv.Itoa(len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM ledger_entry l`+clause, args...).Scan(&total); err != nil {
		return nil, 0, db.ClassifyError(err)
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT l.id, l.entry_type, l.amount, l.description, l.entry_date, l.reference, l.recorded_by,
			a.first_name || ' ' || a.last_name, l.is_foreign, l.exchange_rate, l.created_at
		FROM ledger_entry l
		JOIN account a ON a.id = l.recorded_by`+clause+`
		ORDER BY l.entry_date DESC, l.created_at DESC
		LIMIT $`+strconv.Itoa(len(args)-1)+` OFFSET $`+strconv.Itoa(len(args)), args...)
	if err != nil {
		return nil, 0, db.ClassifyError(err)
	}
	defer rows.Close()

	var items []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, db.ClassifyError(rows.Err())
}

func (r *repoPG) SumByType(ctx context.Context) (map[EntryType]decimal.Decimal, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT entry_type, SUM(amount) FROM ledger_entry GROUP BY entry_type`)
	if err != nil {
		return nil, db.ClassifyError(err)
	}
	defer rows.Close()

	sums := make(map[EntryType]decimal.Decimal)
	for rows.Next() {
		var t EntryType
		var sum decimal.Decimal
		if err := rows.Scan(&t, &sum); err != nil {
			return nil, db.ClassifyError(err)
		}
		sums[t] = sum
	}
	return sums, db.ClassifyError(rows.Err())
}
