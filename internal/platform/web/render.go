package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/siratop/sistema-clinica/internal/platform/auth"
	"github.com/siratop/sistema-clinica/internal/platform/phone"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	layoutFile   = "templates/layout.html"
	partialsFile = "templates/partials.html"
)

// Renderer is the echo.Renderer for the clinic's pages. Each page template
// is parsed together with the shared layout and partials.
type Renderer struct {
	pages       map[string]*template.Template
	clinicName  string
	phoneRegion string
}

// NewRenderer parses the embedded pages. phoneRegion decides which stored
// numbers are shown in national form.
func NewRenderer(clinicName, phoneRegion string) (*Renderer, error) {
	return newRenderer(templateFS, clinicName, phoneRegion)
}

func newRenderer(fsys fs.FS, clinicName, phoneRegion string) (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template), clinicName: clinicName, phoneRegion: phoneRegion}

	files, err := fs.Glob(fsys, "templates/*.html")
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if f == layoutFile || f == partialsFile {
			continue
		}
		name := strings.TrimSuffix(path.Base(f), ".html")
		t, err := template.New(name).Funcs(r.funcs()).ParseFS(fsys, layoutFile, partialsFile, f)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

func (r *Renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	return t.ExecuteTemplate(w, "layout", data)
}

func (r *Renderer) funcs() template.FuncMap {
	return template.FuncMap{
		"clinic": func() string { return r.clinicName },
		"date":   formatDate,
		"clock": func(t time.Time) string {
			return t.Format(ClockLayout)
		},
		"stamp": func(t time.Time) string {
			return t.Format("02/01/2006 15:04")
		},
		"phone": func(stored string) string {
			return phone.Display(stored, r.phoneRegion)
		},
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		"isStaff": func(id auth.Identity) bool { return id.IsStaff() },
		"hasRole": func(id auth.Identity, roles ...string) bool {
			rs := make([]auth.Role, len(roles))
			for i, role := range roles {
				rs[i] = auth.Role(role)
			}
			return id.HasRole(rs...)
		},
	}
}

func formatDate(v any) string {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return t.Format("02/01/2006")
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.Format("02/01/2006")
	}
	return ""
}
