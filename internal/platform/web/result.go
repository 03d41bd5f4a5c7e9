// Package web renders pages for the clinic's handlers. Every handler builds
// a Page, optionally with a Result describing the outcome of a submitted
// form, and hands it to Render, which answers with HTML or JSON depending
// on the Accept header.
package web

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/siratop/sistema-clinica/internal/platform/apperr"
	"github.com/siratop/sistema-clinica/internal/platform/auth"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusInfo    Status = "info"
	StatusError   Status = "error"
)

// Result is the outcome of a request, rendered by the page that handles it.
type Result struct {
	Status      Status            `json:"status"`
	Message     string            `json:"message,omitempty"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
}

// Field returns the error message for a form field, if any.
func (r *Result) Field(name string) string {
	if r == nil {
		return ""
	}
	return r.FieldErrors[name]
}

// messages maps redirect message keys to user-facing text.
var messages = map[string]string{
	"not_authorized":       "No tiene permisos para acceder a esa sección.",
	"logged_out":           "Sesión cerrada correctamente.",
	"welcome":              "Bienvenido.",
	"staff_registered":     "Registro completado. Ya puede iniciar sesión.",
	"patient_registered":   "Registro completado. Bienvenido al portal de pacientes.",
	"patient_saved":        "Datos del paciente guardados.",
	"patient_deleted":      "Paciente eliminado.",
	"appointment_booked":   "Cita registrada correctamente.",
	"appointment_attended": "Consulta registrada.",
	"appointment_deleted":  "Cita eliminada.",
	"document_uploaded":    "Documento subido.",
	"document_deleted":     "Documento eliminado.",
	"order_created":        "Orden de enfermería creada.",
	"order_executed":       "Orden marcada como ejecutada.",
	"ledger_recorded":      "Movimiento registrado.",
	"allowlist_added":      "Cédula autorizada.",
	"allowlist_revoked":    "Autorización revocada.",
	"specialty_saved":      "Especialidad guardada.",
	"content_saved":        "Contenido guardado.",
	"content_deleted":      "Contenido eliminado.",
	"invalid_input":        "Los datos enviados no son válidos.",
	"already_executed":     "La orden ya había sido ejecutada.",
	"not_found":            "El registro solicitado no existe.",
}

var errorMessages = map[string]bool{
	"not_authorized":   true,
	"invalid_input":    true,
	"already_executed": true,
	"not_found":        true,
}

// ErrorKey maps err to a redirect message key for forms posted from a page
// other than their own. Unknown errors yield "".
func ErrorKey(err error) string {
	var v *apperr.ValidationError
	switch {
	case errors.As(err, &v):
		return "invalid_input"
	case errors.Is(err, apperr.ErrAlreadyUsed):
		return "already_executed"
	case errors.Is(err, apperr.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperr.ErrNotAuthorized):
		return "not_authorized"
	}
	return ""
}

// Message returns the text for key, or an empty string for unknown keys.
func Message(key string) string {
	return messages[key]
}

// ResultFor builds the Result announced by a redirect message key.
func ResultFor(key string) *Result {
	text := Message(key)
	if text == "" {
		return nil
	}
	status := StatusSuccess
	if errorMessages[key] {
		status = StatusError
	}
	return &Result{Status: status, Message: text}
}

// ResultFromError describes a form-level failure. It returns nil for errors
// that are not the user's to fix.
func ResultFromError(err error) *Result {
	var v *apperr.ValidationError
	var d *apperr.DuplicateError
	switch {
	case errors.As(err, &v):
		return &Result{Status: StatusError, Message: "Corrija los campos indicados.", FieldErrors: v.Fields}
	case errors.As(err, &d):
		return &Result{Status: StatusError, Message: "Ya existe un registro con ese valor.", FieldErrors: apperr.FieldErrors(err)}
	case errors.Is(err, apperr.ErrDuplicateKey):
		return &Result{Status: StatusError, Message: "Ya existe un registro con ese valor."}
	case errors.Is(err, apperr.ErrAlreadyUsed):
		return &Result{Status: StatusError, Message: "Esta autorización ya fue utilizada."}
	case errors.Is(err, apperr.ErrNotAuthorized):
		return &Result{Status: StatusError, Message: "La operación no está autorizada."}
	}
	return nil
}

// Page is the data every template receives.
type Page struct {
	Title    string        `json:"title,omitempty"`
	Identity auth.Identity `json:"identity"`
	CSRF     string        `json:"-"`
	Result   *Result       `json:"result,omitempty"`
	Form     any           `json:"form,omitempty"`
	Data     any           `json:"data,omitempty"`
}

// Render writes p with the named template, or as JSON when the client asks
// for it. The identity, CSRF token and any ?msg= result are filled in.
func Render(c echo.Context, code int, name string, p Page) error {
	p.Identity = auth.IdentityFrom(c)
	if tok, ok := c.Get(echomw.DefaultCSRFConfig.ContextKey).(string); ok {
		p.CSRF = tok
	}
	if p.Result == nil {
		p.Result = ResultFor(c.QueryParam("msg"))
	}
	if WantsJSON(c) {
		return c.JSON(code, p)
	}
	return c.Render(code, name, p)
}

// WantsJSON reports whether the client prefers a JSON response.
func WantsJSON(c echo.Context) bool {
	return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}

// FormError answers a failed form submission. User-correctable errors
// re-render the form with status 422; a missing record becomes a 404, a
// permission failure a redirect, and anything else goes to echo's error
// handler.
func FormError(c echo.Context, name string, p Page, err error) error {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, apperr.ErrNotAuthorized):
		return auth.Deny(c)
	}
	if res := ResultFromError(err); res != nil {
		p.Result = res
		return Render(c, http.StatusUnprocessableEntity, name, p)
	}
	return err
}

// Redirect sends a 303 to path carrying msgKey for the next page.
func Redirect(c echo.Context, path, msgKey string) error {
	if msgKey != "" {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		path += sep + "msg=" + url.QueryEscape(msgKey)
	}
	return c.Redirect(http.StatusSeeOther, path)
}
