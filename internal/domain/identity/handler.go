package identity

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/siratop/sistema-clinica/internal/platform/apperr"
	"github.com/siratop/sistema-clinica/internal/platform/auth"
	"github.com/siratop/sistema-clinica/internal/platform/web"
)

type Handler struct {
	svc      *Service
	sessions *auth.SessionManager
}

func NewHandler(svc *Service, sessions *auth.SessionManager) *Handler {
	return &Handler{svc: svc, sessions: sessions}
}

// RegisterRoutes mounts login, logout and specialty administration. limit
// guards the credential form against brute force.
func (h *Handler) RegisterRoutes(g *echo.Group, limit echo.MiddlewareFunc) {
	g.GET("/login", h.LoginForm)
	g.POST("/login", h.Login, limit)
	g.POST("/logout", h.Logout)

	admin := g.Group("/admin/specialties", auth.RequireRole(auth.RoleAdministrator))
	admin.GET("", h.ListSpecialties)
	admin.POST("", h.CreateSpecialty)
}

type loginForm struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password,omitempty"`
	Next     string `form:"next" json:"next,omitempty" query:"next"`
}

func (h *Handler) LoginForm(c echo.Context) error {
	if auth.IdentityFrom(c).Authenticated() {
		return c.Redirect(http.StatusSeeOther, auth.DashboardPath)
	}
	return web.Render(c, http.StatusOK, "login", web.Page{
		Title: "Iniciar sesión",
		Form:  loginForm{Next: c.QueryParam("next")},
	})
}

func (h *Handler) Login(c echo.Context) error {
	var f loginForm
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.Authenticate(c.Request().Context(), f.Username, f.Password)
	f.Password = ""
	if errors.Is(err, apperr.ErrNotAuthorized) {
		return web.Render(c, http.StatusUnauthorized, "login", web.Page{
			Title:  "Iniciar sesión",
			Form:   f,
			Result: &web.Result{Status: web.StatusError, Message: "Usuario o contraseña incorrectos."},
		})
	}
	if err != nil {
		return err
	}
	if err := h.sessions.Login(c, a.ID); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, web.SafeNext(f.Next))
}

func (h *Handler) Logout(c echo.Context) error {
	h.sessions.Logout(c)
	return web.Redirect(c, auth.LoginPath, "logged_out")
}

// -- Specialties --

type specialtyForm struct {
	Name        string `form:"name" json:"name"`
	Description string `form:"description" json:"description"`
}

func (h *Handler) specialtiesPage(c echo.Context, f specialtyForm) (web.Page, error) {
	items, err := h.svc.ListSpecialties(c.Request().Context())
	if err != nil {
		return web.Page{}, err
	}
	return web.Page{Title: "Especialidades", Form: f, Data: items}, nil
}

func (h *Handler) ListSpecialties(c echo.Context) error {
	p, err := h.specialtiesPage(c, specialtyForm{})
	if err != nil {
		return err
	}
	return web.Render(c, http.StatusOK, "specialties", p)
}

func (h *Handler) CreateSpecialty(c echo.Context) error {
	var f specialtyForm
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sp := &Specialty{Name: f.Name, Description: f.Description}
	if err := h.svc.CreateSpecialty(c.Request().Context(), sp); err != nil {
		p, perr := h.specialtiesPage(c, f)
		if perr != nil {
			return perr
		}
		return web.FormError(c, "specialties", p, err)
	}
	if web.WantsJSON(c) {
		return c.JSON(http.StatusCreated, sp)
	}
	return web.Redirect(c, "/admin/specialties", "specialty_saved")
}
