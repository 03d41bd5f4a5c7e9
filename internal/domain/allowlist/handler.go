package allowlist

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/siratop/sistema-clinica/internal/domain/identity"
	"github.com/siratop/sistema-clinica/internal/platform/apperr"
	"github.com/siratop/sistema-clinica/internal/platform/auth"
	"github.com/siratop/sistema-clinica/internal/platform/web"
)

// SpecialtyLister feeds the specialty choices of the authorize form.
type SpecialtyLister interface {
	ListSpecialties(ctx context.Context) ([]*identity.Specialty, error)
}

type Handler struct {
	svc         *Service
	specialties SpecialtyLister
}

func NewHandler(svc *Service, specialties SpecialtyLister) *Handler {
	return &Handler{svc: svc, specialties: specialties}
}

func (h *Handler) RegisterRoutes(g *echo.Group, limit echo.MiddlewareFunc) {
	g.GET("/register/staff", h.RegisterForm)
	g.POST("/register/staff", h.Register, limit)

	admin := g.Group("/admin/allowlist", auth.RequireRole(auth.RoleAdministrator))
	admin.GET("", h.List)
	admin.POST("", h.Authorize)
	admin.POST("/:id/revoke", h.Revoke)
}

// -- Staff self-registration --

type registerForm struct {
	NationalID string `form:"national_id" json:"national_id"`
	Username   string `form:"username" json:"username"`
	Password   string `form:"password" json:"password,omitempty"`
	Phone      string `form:"phone" json:"phone"`
	Email      string `form:"email" json:"email"`
}

func (h *Handler) RegisterForm(c echo.Context) error {
	return web.Render(c, http.StatusOK, "register_staff", web.Page{Title: "Registro de personal", Form: registerForm{}})
}

func (h *Handler) Register(c echo.Context) error {
	var f registerForm
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	account, err := h.svc.Consume(c.Request().Context(), ConsumeInput{
		NationalID: f.NationalID,
		Username:   f.Username,
		Password:   f.Password,
		Phone:      f.Phone,
		Email:      f.Email,
	})
	f.Password = ""
	if err != nil {
		page := web.Page{Title: "Registro de personal", Form: f}
		if errors.Is(err, apperr.ErrNotAuthorized) {
			page.Result = &web.Result{Status: web.StatusError, Message: "Esta cédula no está autorizada para registrarse."}
			return web.Render(c, http.StatusForbidden, "register_staff", page)
		}
		if res := web.ResultFromError(err); res != nil {
			page.Result = res
			return web.Render(c, http.StatusUnprocessableEntity, "register_staff", page)
		}
		return err
	}
	if web.WantsJSON(c) {
		return c.JSON(http.StatusCreated, account)
	}
	return web.Redirect(c, auth.LoginPath, "staff_registered")
}

// -- Administration --

type authorizeForm struct {
	NationalID  string `form:"national_id" json:"national_id"`
	FullName    string `form:"full_name" json:"full_name"`
	Role        string `form:"role" json:"role"`
	SpecialtyID string `form:"specialty_id" json:"specialty_id"`
}

type listData struct {
	Entries     []*Entry              `json:"entries"`
	Specialties []*identity.Specialty `json:"specialties"`
	Roles       []auth.Role           `json:"roles"`
}

func (h *Handler) listPage(c echo.Context, f authorizeForm) (web.Page, error) {
	ctx := c.Request().Context()
	entries, err := h.svc.List(ctx)
	if err != nil {
		return web.Page{}, err
	}
	specialties, err := h.specialties.ListSpecialties(ctx)
	if err != nil {
		return web.Page{}, err
	}
	return web.Page{
		Title: "Personal autorizado",
		Form:  f,
		Data:  listData{Entries: entries, Specialties: specialties, Roles: auth.StaffRoles},
	}, nil
}

func (h *Handler) List(c echo.Context) error {
	p, err := h.listPage(c, authorizeForm{})
	if err != nil {
		return err
	}
	return web.Render(c, http.StatusOK, "allowlist", p)
}

func (h *Handler) Authorize(c echo.Context) error {
	var f authorizeForm
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	in := AuthorizeInput{NationalID: f.NationalID, FullName: f.FullName, Role: auth.Role(f.Role)}
	if f.SpecialtyID != "" {
		id, err := uuid.Parse(f.SpecialtyID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid specialty")
		}
		in.SpecialtyID = &id
	}

	e, err := h.svc.Authorize(c.Request().Context(), auth.IdentityFrom(c), in)
	if err != nil {
		p, perr := h.listPage(c, f)
		if perr != nil {
			return perr
		}
		return web.FormError(c, "allowlist", p, err)
	}
	if web.WantsJSON(c) {
		return c.JSON(http.StatusCreated, e)
	}
	return web.Redirect(c, "/admin/allowlist", "allowlist_added")
}

func (h *Handler) Revoke(c echo.Context) error {
	id, err := web.ParamUUID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Revoke(c.Request().Context(), auth.IdentityFrom(c), id); err != nil {
		p, perr := h.listPage(c, authorizeForm{})
		if perr != nil {
			return perr
		}
		return web.FormError(c, "allowlist", p, err)
	}
	if web.WantsJSON(c) {
		return c.NoContent(http.StatusNoContent)
	}
	return web.Redirect(c, "/admin/allowlist", "allowlist_revoked")
}
