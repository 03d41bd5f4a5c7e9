package auth

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
)

const (
	LoginPath     = "/login"
	DashboardPath = "/dashboard"
)

// Deny sends anonymous callers to the login page and authenticated ones to
// their dashboard with a not-authorized message.
func Deny(c echo.Context) error {
	if !IdentityFrom(c).Authenticated() {
		next := url.QueryEscape(c.Request().URL.RequestURI())
		return c.Redirect(http.StatusSeeOther, LoginPath+"?next="+next)
	}
	return c.Redirect(http.StatusSeeOther, DashboardPath+"?msg=not_authorized")
}

// RequireLogin lets any authenticated identity through.
func RequireLogin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := IdentityFrom(c)
			if !id.Authenticated() {
				return Deny(c)
			}
			return next(c)
		}
	}
}

// RequireStaff lets through any staff identity regardless of role.
func RequireStaff() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := IdentityFrom(c)
			if !id.IsStaff() {
				return Deny(c)
			}
			return next(c)
		}
	}
}

// RequireRole returns middleware that checks the staff identity holds one
// of the given roles. Superusers always pass.
func RequireRole(roles ...Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := IdentityFrom(c)
			if !id.HasRole(roles...) {
				return Deny(c)
			}
			return next(c)
		}
	}
}

// RequirePatient lets through identities linked to a patient record.
func RequirePatient() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := IdentityFrom(c)
			if id.Kind != KindPatient {
				return Deny(c)
			}
			return next(c)
		}
	}
}
