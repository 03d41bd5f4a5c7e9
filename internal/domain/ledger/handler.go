package ledger

import (
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/siratop/sistema-clinica/internal/platform/auth"
	"github.com/siratop/sistema-clinica/internal/platform/web"
	"github.com/siratop/sistema-clinica/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	books := auth.RequireRole(auth.RoleAccountant, auth.RoleAdministrator)
	g.GET("/ledger", h.List, books)
	g.POST("/ledger", h.Record, books)
}

// Data is what the ledger page and the accountant dashboard show.
type Data struct {
	Entries *pagination.Response `json:"entries"`
	Summary Summary              `json:"summary"`
	Types   []EntryType          `json:"types"`
	From    string               `json:"from,omitempty"`
	To      string               `json:"to,omitempty"`
}

func dateParam(c echo.Context, name string) (*time.Time, string) {
	raw := c.QueryParam(name)
	d, err := web.ParseDate(raw)
	if err != nil {
		return nil, ""
	}
	return &d, raw
}

// Page loads the entries and totals for the ledger views.
func (h *Handler) Page(c echo.Context) (Data, error) {
	ctx := c.Request().Context()
	p := pagination.FromContext(c)
	var f Filter
	var from, to string
	f.From, from = dateParam(c, "from")
	f.To, to = dateParam(c, "to")

	items, total, err := h.svc.List(ctx, f, p.Limit, p.Offset)
	if err != nil {
		return Data{}, err
	}
	summary, err := h.svc.Summary(ctx)
	if err != nil {
		return Data{}, err
	}
	return Data{
		Entries: pagination.NewFilteredResponse(items, total, p, "/ledger", url.Values{"from": {from}, "to": {to}}),
		Summary: summary,
		Types:   EntryTypes,
		From:    from,
		To:      to,
	}, nil
}

func (h *Handler) List(c echo.Context) error {
	data, err := h.Page(c)
	if err != nil {
		return err
	}
	return web.Render(c, http.StatusOK, "ledger", web.Page{Title: "Contabilidad", Form: Form{}, Data: data})
}

func (h *Handler) Record(c echo.Context) error {
	var f Form
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	e, err := h.svc.Record(c.Request().Context(), auth.IdentityFrom(c), f)
	if err != nil {
		data, derr := h.Page(c)
		if derr != nil {
			return derr
		}
		return web.FormError(c, "ledger", web.Page{Title: "Contabilidad", Form: f, Data: data}, err)
	}
	if web.WantsJSON(c) {
		return c.JSON(http.StatusCreated, e)
	}
	return web.Redirect(c, "/ledger", "ledger_recorded")
}
