package cms

import (
	"errors"
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

// RegisterRoutes mounts the editor under /cms for any staff identity and
// the public image route under /media.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/media/*", blobstore.PublicHandler(h.svc.Store(), SlidePrefix))

	cms := g.Group("/cms", auth.RequireStaff())
	cms.GET("", h.Index)

	cms.GET("/slides/new", h.NewSlide)
	cms.POST("/slides", h.CreateSlide)
	cms.GET("/slides/:id/edit", h.EditSlide)
	cms.POST("/slides/:id", h.UpdateSlide)
	cms.POST("/slides/:id/delete", h.DeleteSlide)

	cms.GET("/faqs/new", h.NewFAQ)
	cms.POST("/faqs", h.CreateFAQ)
	cms.GET("/faqs/:id/edit", h.EditFAQ)
	cms.POST("/faqs/:id", h.UpdateFAQ)
	cms.POST("/faqs/:id/delete", h.DeleteFAQ)

	cms.GET("/announcement", h.AnnouncementForm)
	cms.POST("/announcement", h.SaveAnnouncement)
}

type indexData struct {
	Slides       []*Slide      `json:"slides"`
	FAQs         []*FAQ        `json:"faqs"`
	Announcement *Announcement `json:"announcement,omitempty"`
}

func (h *Handler) Index(c echo.Context) error {
	ctx := c.Request().Context()
	slides, err := h.svc.ListSlides(ctx)
	if err != nil {
		return err
	}
	faqs, err := h.svc.ListFAQs(ctx)
	if err != nil {
		return err
	}
	a, err := h.svc.GetAnnouncement(ctx)
	if err != nil {
		return err
	}
	return web.Render(c, http.StatusOK, "cms", web.Page{
		Title: "Contenido del sitio",
		Data:  indexData{Slides: slides, FAQs: faqs, Announcement: a},
	})
}

func done(c echo.Context, code int, v any, msgKey string) error {
	if web.WantsJSON(c) {
		if v == nil {
			return c.NoContent(http.StatusNoContent)
		}
		return c.JSON(code, v)
	}
	return web.Redirect(c, "/cms", msgKey)
}

// -- Slides --

type slideData struct {
	Slide    *Slide    `json:"slide,omitempty"`
	Overlays []Overlay `json:"overlays"`
}

func slidePage(title string, f SlideForm, s *Slide) web.Page {
	return web.Page{Title: title, Form: f, Data: slideData{Slide: s, Overlays: Overlays}}
}

// imageUpload reads the optional "image" file field.
func imageUpload(c echo.Context) (*blobstore.Upload, func(), error) {
	fh, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	src, err := fh.Open()
	if err != nil {
		return nil, nil, err
	}
	u := &blobstore.Upload{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Size:        fh.Size,
		Content:     src,
	}
	return u, func() { src.Close() }, nil
}

func bindSlide(c echo.Context) SlideForm {
	return SlideForm{
		Title:     c.FormValue("title"),
		Subtitle:  c.FormValue("subtitle"),
		SortOrder: c.FormValue("sort_order"),
		Active:    web.Checkbox(web.Checked(c.FormValue("active"))),
		Overlay:   c.FormValue("overlay"),
	}
}

func (h *Handler) NewSlide(c echo.Context) error {
	return web.Render(c, http.StatusOK, "cms_slide", slidePage("Nueva diapositiva", SlideForm{Active: true, Overlay: string(OverlayMedium)}, nil))
}

func (h *Handler) CreateSlide(c echo.Context) error {
	f := bindSlide(c)
	image, closeImage, err := imageUpload(c)
	if err != nil {
		return err
	}
	defer closeImage()
	var u blobstore.Upload
	if image != nil {
		u = *image
	}
	s, err := h.svc.CreateSlide(c.Request().Context(), f, u)
	if err != nil {
		return web.FormError(c, "cms_slide", slidePage("Nueva diapositiva", f, nil), err)
	}
	return done(c, http.StatusCreated, s, "content_saved")
}

func (h *Handler) EditSlide(c echo.Context) error {
	id, err := web.ParamUUID(c, "id")
	if err != nil {
		return err
	}
	s, err := h.svc.GetSlide(c.Request().Context(), id)
	if err != nil {
		return web.FormError(c, "cms_slide", web.Page{}, err)
	}
	return web.Render(c, http.StatusOK, "cms_slide", slidePage("Editar diapositiva", slideForm(s), s))
}

func (h *Handler) UpdateSlide(c echo.Context) error {
	id, err := web.ParamUUID(c, "id")
	if err != nil {
		return err
	}
	f := bindSlide(c)
	image, closeImage, err := imageUpload(c)
	if err != nil {
		return err
	}
	defer closeImage()
	s, err := h.svc.UpdateSlide(c.Request().Context(), id, f, image)
	if err != nil {
		return web.FormError(c, "cms_slide", slidePage("Editar diapositiva", f, &Slide{ID: id}), err)
	}
	return done(c, http.StatusOK, s, "content_saved")
}

func (h *Handler) DeleteSlide(c echo.Context) error {
	id, err := web.ParamUUID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteSlide(c.Request().Context(), id); err != nil {
		return web.FormError(c, "cms", web.Page{}, err)
	}
	return done(c, http.StatusNoContent, nil, "content_deleted")
}

// -- FAQ --

func (h *Handler) NewFAQ(c echo.Context) error {
	return web.Render(c, http.StatusOK, "cms_faq", web.Page{Title: "Nueva pregunta", Form: FAQForm{Active: true}})
}

func (h *Handler) CreateFAQ(c echo.Context) error {
	var f FAQForm
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	q, err := h.svc.CreateFAQ(c.Request().Context(), f)
	if err != nil {
		return web.FormError(c, "cms_faq", web.Page{Title: "Nueva pregunta", Form: f}, err)
	}
	return done(c, http.StatusCreated, q, "content_saved")
}

func (h *Handler) EditFAQ(c echo.Context) error {
	id, err := web.ParamUUID(c, "id")
	if err != nil {
		return err
	}
	q, err := h.svc.GetFAQ(c.Request().Context(), id)
	if err != nil {
		return web.FormError(c, "cms_faq", web.Page{}, err)
	}
	return web.Render(c, http.StatusOK, "cms_faq", web.Page{Title: "Editar pregunta", Form: faqForm(q), Data: q})
}

func (h *Handler) UpdateFAQ(c echo.Context) error {
	id, err := web.ParamUUID(c, "id")
	if err != nil {
		return err
	}
	var f FAQForm
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	q, err := h.svc.UpdateFAQ(c.Request().Context(), id, f)
	if err != nil {
		return web.FormError(c, "cms_faq", web.Page{Title: "Editar pregunta", Form: f, Data: &FAQ{ID: id}}, err)
	}
	return done(c, http.StatusOK, q, "content_saved")
}

func (h *Handler) DeleteFAQ(c echo.Context) error {
	id, err := web.ParamUUID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteFAQ(c.Request().Context(), id); err != nil {
		return web.FormError(c, "cms", web.Page{}, err)
	}
	return done(c, http.StatusNoContent, nil, "content_deleted")
}

// -- Announcement --

func (h *Handler) AnnouncementForm(c echo.Context) error {
	a, err := h.svc.GetAnnouncement(c.Request().Context())
	if err != nil {
		return err
	}
	f := AnnouncementForm{Active: true}
	if a != nil {
		f = AnnouncementForm{Title: a.Title, Message: a.Message, Active: web.Checkbox(a.Active)}
	}
	return web.Render(c, http.StatusOK, "cms_announcement", web.Page{Title: "Anuncio", Form: f, Data: a})
}

func (h *Handler) SaveAnnouncement(c echo.Context) error {
	var f AnnouncementForm
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.SaveAnnouncement(c.Request().Context(), f)
	if err != nil {
		return web.FormError(c, "cms_announcement", web.Page{Title: "Anuncio", Form: f}, err)
	}
	return done(c, http.StatusOK, a, "content_saved")
}
