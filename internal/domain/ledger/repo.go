package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

type Repository interface {
	Create(ctx context.Context, e *Entry) error
	List(ctx context.Context, f Filter, limit, offset int) ([]*Entry, int, error)
	// SumByType totals the whole ledger per entry type.
	SumByType(ctx context.Context) (map[EntryType]decimal.Decimal, error)
}
