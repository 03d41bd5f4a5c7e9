package main

import (
	"context"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/siratop/sistema-clinica/internal/config"
	"github.com/siratop/sistema-clinica/internal/platform/auth"
	"github.com/siratop/sistema-clinica/internal/platform/blobstore"
	"github.com/siratop/sistema-clinica/internal/platform/cache"
	"github.com/siratop/sistema-clinica/internal/platform/mail"
	"github.com/siratop/sistema-clinica/internal/platform/middleware"
)

func TestCSRFSkipper(t *testing.T) {
	e := echo.New()
	tests := []struct {
		path   string
		header string
		want   bool
	}{
		{"/health", "", true},
		{"/media/slides/a.png", "", true},
		{"/patients", "", false},
		{"/patients", "Bearer abc.def.ghi", true},
		{"/patients", "bearer abc", true},
		{"/patients", "Basic dXNlcjpwYXNz", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, tt.path, nil)
		if tt.header != "" {
			req.Header.Set(echo.HeaderAuthorization, tt.header)
		}
		c := e.NewContext(req, httptest.NewRecorder())
		if got := csrfSkipper(c); got != tt.want {
			t.Errorf("csrfSkipper(%s, %q) = %v, want %v", tt.path, tt.header, got, tt.want)
		}
	}
}

func TestFormRateLimiter(t *testing.T) {
	e := echo.New()
	handler := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	call := func(mw echo.MiddlewareFunc) int {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		if err := mw(handler)(e.NewContext(req, rec)); err != nil {
			if he, ok := err.(*echo.HTTPError); ok {
				return he.Code
			}
			t.Fatalf("unexpected error: %v", err)
		}
		return rec.Code
	}

	off := formRateLimiter(0)
	for i := 0; i < 20; i++ {
		if code := call(off); code != http.StatusOK {
			t.Fatalf("disabled limiter rejected request %d with %d", i, code)
		}
	}

	on := formRateLimiter(1)
	limited := false
	for i := 0; i < 10; i++ {
		if call(on) == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	if !limited {
		t.Error("expected the limiter to reject a burst of requests")
	}
}

func TestMigrationFiles(t *testing.T) {
	embedded, err := fs.Glob(migrationFiles(""), "*.sql")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(embedded) == 0 {
		t.Error("expected embedded migrations")
	}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "001_x.sql"), []byte("SELECT 1;"), 0o600); err != nil {
		t.Fatal(err)
	}
	onDisk, err := fs.Glob(migrationFiles(dir), "*.sql")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(onDisk) != 1 || onDisk[0] != "001_x.sql" {
		t.Errorf("expected [001_x.sql], got %v", onDisk)
	}
}

func TestNewBlobStore(t *testing.T) {
	ctx := context.Background()

	s, err := newBlobStore(ctx, &config.Config{StorageBackend: "memory"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := s.(*blobstore.MemoryStore); !ok {
		t.Errorf("expected memory store, got %T", s)
	}

	s, err = newBlobStore(ctx, &config.Config{StorageBackend: "local", StorageDir: t.TempDir()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := s.(*blobstore.LocalStore); !ok {
		t.Errorf("expected local store, got %T", s)
	}

	if _, err := newBlobStore(ctx, &config.Config{StorageBackend: "ftp"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestNewCache_WithoutRedis(t *testing.T) {
	c, closeFn := newCache(context.Background(), &config.Config{}, zerolog.Nop())
	defer closeFn()
	if _, ok := c.(cache.Noop); !ok {
		t.Errorf("expected Noop cache, got %T", c)
	}
}

func TestNewMailer(t *testing.T) {
	if _, ok := newMailer(&config.Config{}, zerolog.Nop()).(mail.Noop); !ok {
		t.Error("expected Noop mailer without SMTP host")
	}
	if _, ok := newMailer(&config.Config{SMTPHost: "smtp.example.com", SMTPPort: 587, SMTPFrom: "citas@example.com"}, zerolog.Nop()).(*mail.SMTP); !ok {
		t.Error("expected SMTP mailer")
	}
}

type livePool struct{}

func (livePool) Ping(context.Context) error { return nil }

func (livePool) Stat() *pgxpool.Stat { return nil }

func TestMountOperational(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		id     auth.Identity
		status int
	}{
		{"liveness is open", "/health", auth.Identity{}, http.StatusOK},
		{"readiness is open", "/health/db", auth.Identity{}, http.StatusOK},
		{"metrics anonymous", "/metrics", auth.Identity{}, http.StatusSeeOther},
		{"metrics nurse", "/metrics", auth.Identity{Kind: auth.KindStaff, Role: auth.RoleNurse}, http.StatusSeeOther},
		{"metrics administrator", "/metrics", auth.Identity{Kind: auth.KindStaff, Role: auth.RoleAdministrator}, http.StatusOK},
		{"metrics superuser", "/metrics", auth.Identity{Kind: auth.KindUnresolved, Superuser: true}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
				return func(c echo.Context) error {
					if tt.id.Authenticated() {
						auth.SetIdentity(c, tt.id)
					}
					return next(c)
				}
			})
			mountOperational(e, livePool{}, middleware.NewMetrics("test"))

			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.status {
				t.Errorf("expected %d, got %d", tt.status, rec.Code)
			}
		})
	}
}
