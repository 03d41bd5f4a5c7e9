package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/siratop/sistema-clinica/internal/platform/web"
)

type EntryType string

const (
	TypeIncome  EntryType = "income"
	TypeExpense EntryType = "expense"
	TypePayroll EntryType = "payroll"
	TypeTax     EntryType = "tax"
)

var EntryTypes = []EntryType{TypeIncome, TypeExpense, TypePayroll, TypeTax}

func (t EntryType) Valid() bool {
	for _, v := range EntryTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Outflow reports whether t counts toward total expense.
func (t EntryType) Outflow() bool {
	return t == TypeExpense || t == TypePayroll || t == TypeTax
}

// Entry is one accounting movement. Amount keeps the sign it was recorded
// with; ExchangeRate is stored but never applied.
type Entry struct {
	ID             uuid.UUID           `db:"id" json:"id"`
	Type           EntryType           `db:"entry_type" json:"type"`
	Amount         decimal.Decimal     `db:"amount" json:"amount"`
	Description    string              `db:"description" json:"description"`
	Date           time.Time           `db:"entry_date" json:"date"`
	Reference      string              `db:"reference" json:"reference,omitempty"`
	RecordedBy     uuid.UUID           `db:"recorded_by" json:"recorded_by"`
	RecordedByName string              `json:"recorded_by_name,omitempty"`
	IsForeign      bool                `db:"is_foreign" json:"is_foreign"`
	ExchangeRate   decimal.NullDecimal `db:"exchange_rate" json:"exchange_rate"`
	CreatedAt      time.Time           `db:"created_at" json:"created_at"`
}

// Summary holds the ledger totals at face value.
type Summary struct {
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	Balance      decimal.Decimal `json:"balance"`
}

// NewSummary folds per-type sums into totals.
func NewSummary(byType map[EntryType]decimal.Decimal) Summary {
	s := Summary{TotalIncome: decimal.Zero, TotalExpense: decimal.Zero}
	for t, sum := range byType {
		switch {
		case t == TypeIncome:
			s.TotalIncome = s.TotalIncome.Add(sum)
		case t.Outflow():
			s.TotalExpense = s.TotalExpense.Add(sum)
		}
	}
	s.Balance = s.TotalIncome.Sub(s.TotalExpense)
	return s
}

type Form struct {
	Type         string       `form:"type" json:"type"`
	Amount       string       `form:"amount" json:"amount"`
	Description  string       `form:"description" json:"description"`
	Date         string       `form:"date" json:"date"`
	Reference    string       `form:"reference" json:"reference"`
	IsForeign    web.Checkbox `form:"is_foreign" json:"is_foreign"`
	ExchangeRate string       `form:"exchange_rate" json:"exchange_rate"`
}

// Filter narrows List to an inclusive date range; nil bounds are open.
type Filter struct {
	From *time.Time
	To   *time.Time
}
