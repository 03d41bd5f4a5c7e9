package patient

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/siratop/sistema-clinica/internal/platform/auth"
	"github.com/siratop/sistema-clinica/internal/platform/web"
	"github.com/siratop/sistema-clinica/pkg/pagination"
)

// SectionFunc loads related records shown on the patient detail page, such
// as appointments or documents.
type SectionFunc func(ctx context.Context, patientID uuid.UUID) (any, error)

type Handler struct {
	svc      *Service
	sessions *auth.SessionManager
	sections map[string]SectionFunc
}

func NewHandler(svc *Service, sessions *auth.SessionManager) *Handler {
	return &Handler{svc: svc, sessions: sessions, sections: make(map[string]SectionFunc)}
}

// AddSection registers related data for the detail page under name.
func (h *Handler) AddSection(name string, fn SectionFunc) {
	h.sections[name] = fn
}

func (h *Handler) RegisterRoutes(g *echo.Group, limit echo.MiddlewareFunc) {
	g.GET("/register", h.RegisterForm)
	g.POST("/register", h.Register, limit)

	staff := g.Group("/patients", auth.RequireStaff())
	staff.GET("", h.List)
	staff.GET("/new", h.NewForm)
	staff.POST("", h.Create)
	staff.GET("/:id", h.Detail)
	staff.GET("/:id/edit", h.EditForm)
	staff.POST("/:id", h.Update)
	staff.POST("/:id/delete", h.Delete, auth.RequireRole(auth.RoleAdministrator))
}

// -- Self-registration --

func (h *Handler) RegisterForm(c echo.Context) error {
	if auth.IdentityFrom(c).Authenticated() {
		return c.Redirect(http.StatusSeeOther, auth.DashboardPath)
	}
	return web.Render(c, http.StatusOK, "register", web.Page{Title: "Registro de paciente", Form: Registration{}})
}

func (h *Handler) Register(c echo.Context) error {
	var r Registration
	if err := c.Bind(&r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.SelfRegister(c.Request().Context(), r)
	r.Password = ""
	if err != nil {
		return web.FormError(c, "register", web.Page{Title: "Registro de paciente", Form: r}, err)
	}
	if err := h.sessions.Login(c, *p.AccountID); err != nil {
		return err
	}
	if web.WantsJSON(c) {
		return c.JSON(http.StatusCreated, p)
	}
	return web.Redirect(c, auth.DashboardPath, "patient_registered")
}

// -- Staff registry --

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	q := strings.TrimSpace(c.QueryParam("q"))
	items, total, err := h.svc.List(c.Request().Context(), q, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return web.Render(c, http.StatusOK, "patients", web.Page{
		Title: "Pacientes",
		Data:  pagination.NewResponse(items, total, pg, "/patients", q),
	})
}

func (h *Handler) NewForm(c echo.Context) error {
	return web.Render(c, http.StatusOK, "patient_form", web.Page{Title: "Nuevo paciente", Form: Form{}})
}

func (h *Handler) Create(c echo.Context) error {
	var f Form
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.Create(c.Request().Context(), f)
	if err != nil {
		return web.FormError(c, "patient_form", web.Page{Title: "Nuevo paciente", Form: f}, err)
	}
	if web.WantsJSON(c) {
		return c.JSON(http.StatusCreated, p)
	}
	return web.Redirect(c, "/patients/"+p.ID.String(), "patient_saved")
}

type detailData struct {
	Patient  *Patient       `json:"patient"`
	Sections map[string]any `json:"sections"`
}

func (h *Handler) Detail(c echo.Context) error {
	id, err := web.ParamUUID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	p, err := h.svc.Get(ctx, id)
	if err != nil {
		return web.FormError(c, "patient_detail", web.Page{}, err)
	}
	data := detailData{Patient: p, Sections: make(map[string]any, len(h.sections))}
	for name, load := range h.sections {
		v, err := load(ctx, id)
		if err != nil {
			return err
		}
		data.Sections[name] = v
	}
	return web.Render(c, http.StatusOK, "patient_detail", web.Page{Title: p.FullName(), Data: data})
}

type editData struct {
	ID uuid.UUID `json:"id"`
}

func (h *Handler) EditForm(c echo.Context) error {
	id, err := web.ParamUUID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return web.FormError(c, "patient_form", web.Page{}, err)
	}
	return web.Render(c, http.StatusOK, "patient_form", web.Page{
		Title: "Editar paciente",
		Form:  FormFrom(p),
		Data:  editData{ID: p.ID},
	})
}

func (h *Handler) Update(c echo.Context) error {
	id, err := web.ParamUUID(c, "id")
	if err != nil {
		return err
	}
	var f Form
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.Update(c.Request().Context(), id, f)
	if err != nil {
		return web.FormError(c, "patient_form", web.Page{Title: "Editar paciente", Form: f, Data: editData{ID: id}}, err)
	}
	if web.WantsJSON(c) {
		return c.JSON(http.StatusOK, p)
	}
	return web.Redirect(c, "/patients/"+p.ID.String(), "patient_saved")
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := web.ParamUUID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return web.FormError(c, "patient_detail", web.Page{}, err)
	}
	if web.WantsJSON(c) {
		return c.NoContent(http.StatusNoContent)
	}
	return web.Redirect(c, "/patients", "patient_deleted")
}
