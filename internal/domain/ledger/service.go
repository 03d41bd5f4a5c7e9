package ledger

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/siratop/sistema-clinica/internal/platform/apperr"
	"github.com/siratop/sistema-clinica/internal/platform/auth"
	"github.com/siratop/sistema-clinica/internal/platform/web"
)

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger.With().Str("component", "ledger").Logger()}
}

// parseDecimal accepts "1234.50" and "1234,50".
func parseDecimal(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", "."))
}

// Build validates field presence only; the amount's sign is not checked.
func (f Form) Build() (*Entry, error) {
	v := apperr.NewValidation()
	e := &Entry{
		Type:        EntryType(strings.TrimSpace(f.Type)),
		Description: strings.TrimSpace(f.Description),
		Reference:   strings.TrimSpace(f.Reference),
		IsForeign:   bool(f.IsForeign),
	}
	if !e.Type.Valid() {
		v.Add("type", "select a movement type")
	}
	if amount, err := parseDecimal(f.Amount); err != nil {
		v.Add("amount", "enter a number")
	} else {
		e.Amount = amount.Round(2)
	}
	if e.Description == "" {
		v.Add("description", "required")
	}
	if d, err := web.ParseDate(f.Date); err != nil {
		v.Add("date", "use the format YYYY-MM-DD")
	} else {
		e.Date = d
	}
	if strings.TrimSpace(f.ExchangeRate) != "" {
		if rate, err := parseDecimal(f.ExchangeRate); err != nil {
			v.Add("exchange_rate", "enter a number")
		} else {
			e.ExchangeRate = decimal.NewNullDecimal(rate.Round(4))
		}
	}
	return e, v.Err()
}

// Record stores an entry on behalf of actor.
func (s *Service) Record(ctx context.Context, actor auth.Identity, f Form) (*Entry, error) {
	if !actor.HasRole(auth.RoleAccountant, auth.RoleAdministrator) {
		return nil, apperr.ErrNotAuthorized
	}
	e, err := f.Build()
	if err != nil {
		return nil, err
	}
	e.RecordedBy = actor.AccountID
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}
	s.logger.Info().Str("entry_id", e.ID.String()).Str("type", string(e.Type)).
		Str("amount", e.Amount.StringFixed(2)).Msg("ledger entry recorded")
	return e, nil
}

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Entry, int, error) {
	return s.repo.List(ctx, f, limit, offset)
}

// Summary recomputes the totals from the full ledger.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	sums, err := s.repo.SumByType(ctx)
	if err != nil {
		return Summary{}, err
	}
	return NewSummary(sums), nil
}
