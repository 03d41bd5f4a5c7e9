package cms

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestHandler_CreateSlide(t *testing.T) {
	f := newFixture()
	h, e := NewHandler(f.svc), echo.New()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	w.WriteField("title", "Nueva sede")
	w.WriteField("active", "on")
	w.WriteField("sort_order", "3")
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="image"; filename="sede.png"`)
	hdr.Set("Content-Type", "image/png")
	part, _ := w.CreatePart(hdr)
	part.Write([]byte("\x89PNG"))
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/cms/slides", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()

	if err := h.CreateSlide(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc := rec.Header().Get("Location"); loc != "/cms?msg=content_saved" {
		t.Errorf("unexpected redirect %q", loc)
	}
	slides, _ := f.svc.ListSlides(context.Background())
	if len(slides) != 1 || !slides[0].Active || slides[0].SortOrder != 3 {
		t.Errorf("unexpected slides %+v", slides)
	}
}

func TestHandler_SaveAnnouncement(t *testing.T) {
	f := newFixture()
	h, e := NewHandler(f.svc), echo.New()

	values := url.Values{"title": {"Aviso"}, "message": {"Vacunación gratuita"}, "active": {"on"}}
	req := httptest.NewRequest(http.MethodPost, "/cms/announcement", strings.NewReader(values.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	req.Header.Set(echo.HeaderAccept, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	if err := h.SaveAnnouncement(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"active":true`) {
		t.Errorf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}

func TestHandler_Media(t *testing.T) {
	f := newFixture()
	e := echo.New()
	NewHandler(f.svc).RegisterRoutes(e.Group(""))
	s, _ := f.svc.CreateSlide(context.Background(), SlideForm{Title: "a"}, png("a.png"))
	f.store.Put(context.Background(), "documents/secret.pdf", "application/pdf", strings.NewReader("x"), 1)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, s.ImageURL(), nil))
	if rec.Code != http.StatusOK || rec.Header().Get(echo.HeaderContentType) != "image/png" {
		t.Errorf("expected slide image, got %d %q", rec.Code, rec.Header().Get(echo.HeaderContentType))
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/documents/secret.pdf", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 outside the slide prefix, got %d", rec.Code)
	}
}
