package scheduling

import (
	"context"
	"mime"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/siratop/sistema-clinica/internal/domain/identity"
	"github.com/siratop/sistema-clinica/internal/domain/patient"
	"github.com/siratop/sistema-clinica/internal/platform/auth"
	"github.com/siratop/sistema-clinica/internal/platform/web"
)

// DoctorLister feeds the doctor choices of booking forms.
type DoctorLister interface {
	ListDoctors(ctx context.Context) ([]*identity.Doctor, error)
}

type Handler struct {
	svc     *Service
	doctors DoctorLister
}

func NewHandler(svc *Service, doctors DoctorLister) *Handler {
	return &Handler{svc: svc, doctors: doctors}
}

func (h *Handler) RegisterRoutes(g *echo.Group, limit echo.MiddlewareFunc) {
	g.GET("/book", h.GuestForm)
	g.POST("/book", h.GuestBook, limit)

	desk := auth.RequireRole(auth.RoleSecretary, auth.RoleAdministrator, auth.RoleDoctor)
	g.GET("/patients/:id/appointments/new", h.NewForPatient, desk)
	g.POST("/patients/:id/appointments/new", h.BookForPatient, desk)

	portal := g.Group("/portal", auth.RequirePatient())
	portal.GET("/appointments/new", h.PortalForm)
	portal.POST("/appointments/new", h.PortalBook)

	clinical := auth.RequireRole(auth.RoleDoctor, auth.RoleAdministrator)
	g.GET("/appointments/:id/attend", h.AttendForm, clinical)
	g.POST("/appointments/:id/attend", h.Attend, clinical)
	g.POST("/appointments/:id/delete", h.Delete, desk)
	g.GET("/appointments/:id/prescription.pdf", h.Prescription, auth.RequireStaff())
}

type bookingData struct {
	Doctors []*identity.Doctor `json:"doctors"`
	Patient *patient.Patient   `json:"patient,omitempty"`
	Action  string             `json:"action"`
}

func (h *Handler) bookingPage(c echo.Context, title, action string, p *patient.Patient, form any) (web.Page, error) {
	doctors, err := h.doctors.ListDoctors(c.Request().Context())
	if err != nil {
		return web.Page{}, err
	}
	return web.Page{
		Title: title,
		Form:  form,
		Data:  bookingData{Doctors: doctors, Patient: p, Action: action},
	}, nil
}

// -- Walk-in booking --

func (h *Handler) GuestForm(c echo.Context) error {
	page, err := h.bookingPage(c, "Agendar cita", "/book", nil, GuestBooking{})
	if err != nil {
		return err
	}
	return web.Render(c, http.StatusOK, "book", page)
}

func (h *Handler) GuestBook(c echo.Context) error {
	var g GuestBooking
	if err := c.Bind(&g); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.GuestBook(c.Request().Context(), g)
	if err != nil {
		page, perr := h.bookingPage(c, "Agendar cita", "/book", nil, g)
		if perr != nil {
			return perr
		}
		return web.FormError(c, "book", page, err)
	}
	if web.WantsJSON(c) {
		return c.JSON(http.StatusCreated, a)
	}
	return web.Redirect(c, "/book", "appointment_booked")
}

// -- Staff booking --

func (h *Handler) patientFromParam(c echo.Context) (*patient.Patient, error) {
	id, err := web.ParamUUID(c, "id")
	if err != nil {
		return nil, err
	}
	p, err := h.svc.patients.Get(c.Request().Context(), id)
	if err != nil {
		return nil, web.FormError(c, "appointment_form", web.Page{}, err)
	}
	return p, nil
}

func (h *Handler) NewForPatient(c echo.Context) error {
	p, err := h.patientFromParam(c)
	if err != nil {
		return err
	}
	page, err := h.bookingPage(c, "Nueva cita", "/patients/"+p.ID.String()+"/appointments/new", p, Booking{})
	if err != nil {
		return err
	}
	return web.Render(c, http.StatusOK, "appointment_form", page)
}

func (h *Handler) BookForPatient(c echo.Context) error {
	p, err := h.patientFromParam(c)
	if err != nil {
		return err
	}
	var b Booking
	if err := c.Bind(&b); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.Book(c.Request().Context(), p.ID, b)
	if err != nil {
		page, perr := h.bookingPage(c, "Nueva cita", "/patients/"+p.ID.String()+"/appointments/new", p, b)
		if perr != nil {
			return perr
		}
		return web.FormError(c, "appointment_form", page, err)
	}
	if web.WantsJSON(c) {
		return c.JSON(http.StatusCreated, a)
	}
	return web.Redirect(c, "/patients/"+p.ID.String(), "appointment_booked")
}

// -- Patient portal --

func (h *Handler) PortalForm(c echo.Context) error {
	page, err := h.bookingPage(c, "Solicitar cita", "/portal/appointments/new", nil, Booking{})
	if err != nil {
		return err
	}
	return web.Render(c, http.StatusOK, "appointment_form", page)
}

// PortalBook books for the caller's own patient record; a patient id in
// the form is never consulted.
func (h *Handler) PortalBook(c echo.Context) error {
	var b Booking
	if err := c.Bind(&b); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.Book(c.Request().Context(), auth.IdentityFrom(c).PatientID, b)
	if err != nil {
		page, perr := h.bookingPage(c, "Solicitar cita", "/portal/appointments/new", nil, b)
		if perr != nil {
			return perr
		}
		return web.FormError(c, "appointment_form", page, err)
	}
	if web.WantsJSON(c) {
		return c.JSON(http.StatusCreated, a)
	}
	return web.Redirect(c, auth.DashboardPath, "appointment_booked")
}

// -- Consultation --

func (h *Handler) appointmentFromParam(c echo.Context) (*Appointment, error) {
	id, err := web.ParamUUID(c, "id")
	if err != nil {
		return nil, err
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return nil, web.FormError(c, "attend", web.Page{}, err)
	}
	return a, nil
}

func consultationFrom(a *Appointment) Consultation {
	return Consultation{Diagnosis: deref(a.Diagnosis), Treatment: deref(a.Treatment), Notes: deref(a.Notes)}
}

func (h *Handler) AttendForm(c echo.Context) error {
	a, err := h.appointmentFromParam(c)
	if err != nil {
		return err
	}
	if !canAttend(auth.IdentityFrom(c), a) {
		return auth.Deny(c)
	}
	return web.Render(c, http.StatusOK, "attend", web.Page{Title: "Atender cita", Form: consultationFrom(a), Data: a})
}

func (h *Handler) Attend(c echo.Context) error {
	a, err := h.appointmentFromParam(c)
	if err != nil {
		return err
	}
	var f Consultation
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	updated, err := h.svc.Attend(c.Request().Context(), auth.IdentityFrom(c), a.ID, f)
	if err != nil {
		return web.FormError(c, "attend", web.Page{Title: "Atender cita", Form: f, Data: a}, err)
	}
	if web.WantsJSON(c) {
		return c.JSON(http.StatusOK, updated)
	}
	return web.Redirect(c, "/patients/"+a.PatientID.String(), "appointment_attended")
}

func (h *Handler) Delete(c echo.Context) error {
	a, err := h.appointmentFromParam(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), a.ID); err != nil {
		return err
	}
	if web.WantsJSON(c) {
		return c.NoContent(http.StatusNoContent)
	}
	return web.Redirect(c, "/patients/"+a.PatientID.String(), "appointment_deleted")
}

func (h *Handler) Prescription(c echo.Context) error {
	id, err := web.ParamUUID(c, "id")
	if err != nil {
		return err
	}
	out, name, err := h.svc.Prescription(c.Request().Context(), id, auth.IdentityFrom(c))
	if err != nil {
		return web.FormError(c, "attend", web.Page{}, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, mime.FormatMediaType("inline", map[string]string{"filename": name}))
	return c.Blob(http.StatusOK, "application/pdf", out)
}
