package web

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/siratop/sistema-clinica/internal/platform/auth"
)

func TestNewRenderer_ParsesEveryPage(t *testing.T) {
	r, err := NewRenderer("Clínica Central", "VE")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, name := range []string{
		"home", "login", "register", "register_staff", "dashboard", "patients",
		"patient_form", "patient_detail", "book", "appointment_form", "attend",
		"document_form", "allowlist", "specialties", "ledger", "cms", "cms_slide",
		"cms_faq", "cms_announcement",
	} {
		if _, ok := r.pages[name]; !ok {
			t.Errorf("page %q not parsed", name)
		}
	}
	if _, ok := r.pages["layout"]; ok {
		t.Error("layout should not be a page")
	}
	if _, ok := r.pages["partials"]; ok {
		t.Error("partials should not be a page")
	}
}

type specialty struct {
	Name        string
	Description string
}

func TestRenderer_Render(t *testing.T) {
	r, err := NewRenderer("Clínica Central", "VE")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var buf bytes.Buffer
	page := Page{
		Title:    "Especialidades",
		Identity: auth.Identity{Kind: auth.KindStaff, Role: auth.RoleAdministrator, DisplayName: "Ana"},
		CSRF:     "tok123",
		Result:   ResultFor("specialty_saved"),
		Form:     struct{ Name, Description string }{Name: "<script>"},
		Data:     []specialty{{Name: "Cardiología", Description: "Corazón"}},
	}
	if err := r.Render(&buf, "specialties", page, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Especialidades · Clínica Central",
		`value="tok123"`,
		"Cardiología",
		"Especialidad guardada.",
		`href="/admin/allowlist"`,
		"&lt;script&gt;",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q", want)
		}
	}
}

func TestRenderer_Render_AnonymousNav(t *testing.T) {
	r, err := NewRenderer("Clínica Central", "VE")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var buf bytes.Buffer
	page := Page{Form: struct{ Username, Password, Next string }{Next: "/patients"}}
	if err := r.Render(&buf, "login", page, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `href="/book"`) {
		t.Error("expected booking link for anonymous visitors")
	}
	if strings.Contains(out, `action="/logout"`) {
		t.Error("anonymous visitors should not see the logout form")
	}
}

func TestRenderer_UnknownPage(t *testing.T) {
	r, err := NewRenderer("X", "VE")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Render(&bytes.Buffer{}, "missing", Page{}, nil); err == nil {
		t.Error("expected error for unknown page")
	}
}

func TestRenderer_PhoneFunc(t *testing.T) {
	r, err := NewRenderer("X", "VE")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	display := r.funcs()["phone"].(func(string) string)
	tests := []struct {
		stored, want string
	}{
		{"+584141234567", "0414-1234567"},
		{"+16502530000", "+1 650-253-0000"},
		{"ext. 22", "ext. 22"},
	}
	for _, tt := range tests {
		if got := display(tt.stored); got != tt.want {
			t.Errorf("phone(%q) = %q, want %q", tt.stored, got, tt.want)
		}
	}
}

func TestFormatDate(t *testing.T) {
	d := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	if got := formatDate(d); got != "09/03/2024" {
		t.Errorf("expected 09/03/2024, got %q", got)
	}
	if got := formatDate(&d); got != "09/03/2024" {
		t.Errorf("expected 09/03/2024, got %q", got)
	}
	var nilTime *time.Time
	if got := formatDate(nilTime); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
	if got := formatDate(time.Time{}); got != "" {
		t.Errorf("expected empty string for zero time, got %q", got)
	}
}

func TestRender_JSON(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/x?msg=patient_saved", nil)
	req.Header.Set(echo.HeaderAccept, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := Render(c, http.StatusOK, "patients", Page{Title: "Pacientes", Data: []string{"a"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{`"title":"Pacientes"`, `"data":["a"]`, `"status":"success"`} {
		if !strings.Contains(body, want) {
			t.Errorf("expected body to contain %s, got %s", want, body)
		}
	}
}
