package documents

import (
	"errors"
	"mime"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/siratop/sistema-clinica/internal/platform/auth"
	"github.com/siratop/sistema-clinica/internal/platform/blobstore"
	"github.com/siratop/sistema-clinica/internal/platform/web"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	staff := auth.RequireStaff()
	g.GET("/patients/:id/documents/new", h.NewForm, staff)
	g.POST("/patients/:id/documents/new", h.Upload, staff)
	g.GET("/documents/:id/download", h.Download, auth.RequireLogin())
	g.POST("/documents/:id/delete", h.Delete, auth.RequireRole(auth.RoleAdministrator))
}

type formData struct {
	PatientID string `json:"patient_id"`
}

func (h *Handler) NewForm(c echo.Context) error {
	id, err := web.ParamUUID(c, "id")
	if err != nil {
		return err
	}
	return web.Render(c, http.StatusOK, "document_form", web.Page{
		Title: "Adjuntar documento",
		Form:  Form{},
		Data:  formData{PatientID: id.String()},
	})
}

func (h *Handler) Upload(c echo.Context) error {
	patientID, err := web.ParamUUID(c, "id")
	if err != nil {
		return err
	}
	f := Form{Title: c.FormValue("title"), Description: c.FormValue("description")}
	page := web.Page{Title: "Adjuntar documento", Form: f, Data: formData{PatientID: patientID.String()}}

	var u blobstore.Upload
	fh, err := c.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		src, err := fh.Open()
		if err != nil {
			return err
		}
		defer src.Close()
		u = blobstore.Upload{
			FileName:    fh.Filename,
			ContentType: fh.Header.Get(echo.HeaderContentType),
			Size:        fh.Size,
			Content:     src,
		}
	}

	d, err := h.svc.Upload(c.Request().Context(), auth.IdentityFrom(c), patientID, f, u)
	if err != nil {
		return web.FormError(c, "document_form", page, err)
	}
	if web.WantsJSON(c) {
		return c.JSON(http.StatusCreated, d)
	}
	return web.Redirect(c, "/patients/"+patientID.String(), "document_uploaded")
}

func (h *Handler) Download(c echo.Context) error {
	id, err := web.ParamUUID(c, "id")
	if err != nil {
		return err
	}
	d, rc, err := h.svc.Open(c.Request().Context(), id)
	if err != nil {
		return web.FormError(c, "document_form", web.Page{}, err)
	}
	defer rc.Close()
	if !CanRead(auth.IdentityFrom(c), d) {
		return auth.Deny(c)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		mime.FormatMediaType("attachment", map[string]string{"filename": d.FileName}))
	return c.Stream(http.StatusOK, d.ContentType, rc)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := web.ParamUUID(c, "id")
	if err != nil {
		return err
	}
	d, err := h.svc.Delete(c.Request().Context(), id)
	if err != nil {
		return web.FormError(c, "document_form", web.Page{}, err)
	}
	if web.WantsJSON(c) {
		return c.NoContent(http.StatusNoContent)
	}
	return web.Redirect(c, "/patients/"+d.PatientID.String(), "document_deleted")
}
