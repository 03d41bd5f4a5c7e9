package web

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/siratop/sistema-clinica/internal/platform/auth"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// ParseDate parses a YYYY-MM-DD form value.
// NormalizeNationalID drops whitespace and upper-cases a national ID
// ("v- 123" -> "V-123"). Patients, allowlist entries and staff profiles are
// all matched on this form.
func NormalizeNationalID(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}

func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

// ParseClock parses an HH:MM or HH:MM:SS form value.
func ParseClock(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(ClockLayout, s); err == nil {
		return t, nil
	}
	return time.Parse("15:04:05", s)
}

// ParamUUID parses the named path parameter.
func ParamUUID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// SafeNext returns next when it is a local path, else the dashboard.
func SafeNext(next string) string {
	if strings.HasPrefix(next, "/") && !strings.HasPrefix(next, "//") && !strings.Contains(next, "\\") {
		return next
	}
	return auth.DashboardPath
}

// Checked interprets an HTML checkbox value.
func Checked(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// Checkbox binds an HTML checkbox from a form ("on") or a JSON boolean.
type Checkbox bool

func (b *Checkbox) UnmarshalParam(v string) error {
	*b = Checkbox(Checked(v))
	return nil
}

func (b *Checkbox) UnmarshalJSON(data []byte) error {
	*b = Checkbox(Checked(strings.Trim(string(data), `"`)))
	return nil
}
