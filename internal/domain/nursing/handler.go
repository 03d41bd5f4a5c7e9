package nursing

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/siratop/sistema-clinica/internal/platform/apperr"
	"github.com/siratop/sistema-clinica/internal/platform/auth"
	"github.com/siratop/sistema-clinica/internal/platform/web"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/nursing-orders", h.Create, auth.RequireRole(auth.RoleDoctor))
	g.POST("/nursing-orders/:id/execute", h.Execute, auth.RequireRole(auth.RoleNurse))
}

// Both forms live on the dashboard, so failures go back there as a
// message key.
func (h *Handler) fail(c echo.Context, err error) error {
	if web.WantsJSON(c) {
		if errors.Is(err, apperr.ErrAlreadyUsed) {
			return echo.NewHTTPError(http.StatusConflict, "order already executed")
		}
		return web.FormError(c, "dashboard", web.Page{}, err)
	}
	key := web.ErrorKey(err)
	if key == "" {
		return err
	}
	return web.Redirect(c, auth.DashboardPath, key)
}

func (h *Handler) Create(c echo.Context) error {
	var f OrderForm
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	o, err := h.svc.Create(c.Request().Context(), auth.IdentityFrom(c), f)
	if err != nil {
		return h.fail(c, err)
	}
	if web.WantsJSON(c) {
		return c.JSON(http.StatusCreated, o)
	}
	return web.Redirect(c, auth.DashboardPath, "order_created")
}

func (h *Handler) Execute(c echo.Context) error {
	id, err := web.ParamUUID(c, "id")
	if err != nil {
		return err
	}
	var f ExecuteForm
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	o, err := h.svc.Execute(c.Request().Context(), auth.IdentityFrom(c), id, f)
	if err != nil {
		return h.fail(c, err)
	}
	if web.WantsJSON(c) {
		return c.JSON(http.StatusOK, o)
	}
	return web.Redirect(c, auth.DashboardPath, "order_executed")
}
