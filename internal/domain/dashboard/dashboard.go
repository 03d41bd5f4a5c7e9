// Package dashboard serves the public home page and the role-routed
// dashboard every signed-in identity lands on.
package dashboard

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/siratop/sistema-clinica/internal/domain/cms"
	"github.com/siratop/sistema-clinica/internal/domain/identity"
	"github.com/siratop/sistema-clinica/internal/domain/ledger"
	"github.com/siratop/sistema-clinica/internal/domain/nursing"
	"github.com/siratop/sistema-clinica/internal/domain/patient"
	"github.com/siratop/sistema-clinica/internal/domain/scheduling"
	"github.com/siratop/sistema-clinica/internal/platform/auth"
	"github.com/siratop/sistema-clinica/internal/platform/web"
)

// RecentLedgerEntries is how many movements the accountant view lists.
const RecentLedgerEntries = 20

type ContentSource interface {
	PublicContent(ctx context.Context) (*cms.PublicContent, error)
}

type DoctorLister interface {
	ListDoctors(ctx context.Context) ([]*identity.Doctor, error)
}

type Patients interface {
	Get(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
	Count(ctx context.Context) (int, error)
}

type Appointments interface {
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*scheduling.Appointment, error)
	ListForDoctorOn(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]*scheduling.Appointment, error)
	CountPending(ctx context.Context) (int, error)
	CountPendingOn(ctx context.Context, day time.Time) (int, error)
}

type Orders interface {
	ListPending(ctx context.Context) ([]*nursing.Order, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*nursing.Order, error)
}

type Ledger interface {
	List(ctx context.Context, f ledger.Filter, limit, offset int) ([]*ledger.Entry, int, error)
	Summary(ctx context.Context) (ledger.Summary, error)
}

// Sources bundles the services the dashboard reads from.
type Sources struct {
	Content      ContentSource
	Doctors      DoctorLister
	Patients     Patients
	Appointments Appointments
	Orders       Orders
	Ledger       Ledger
}

type Handler struct {
	src    Sources
	logger zerolog.Logger
	now    func() time.Time
}

func NewHandler(src Sources, logger zerolog.Logger) *Handler {
	return &Handler{
		src:    src,
		logger: logger.With().Str("component", "dashboard").Logger(),
		now:    time.Now,
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/", h.Home)
	g.GET(auth.DashboardPath, h.Dashboard, auth.RequireLogin())
}

type homeData struct {
	Content *cms.PublicContent `json:"content"`
	Doctors []*identity.Doctor `json:"doctors"`
}

// Home renders the public landing page.
func (h *Handler) Home(c echo.Context) error {
	ctx := c.Request().Context()
	content, err := h.src.Content.PublicContent(ctx)
	if err != nil {
		return err
	}
	doctors, err := h.src.Doctors.ListDoctors(ctx)
	if err != nil {
		return err
	}
	return web.Render(c, http.StatusOK, "home", web.Page{Data: homeData{Content: content, Doctors: doctors}})
}

// View names the dashboard variant shown to an identity.
type View string

const (
	ViewPatient    View = "patient"
	ViewDoctor     View = "doctor"
	ViewAccountant View = "accountant"
	ViewNurse      View = "nurse"
	ViewSummary    View = "summary"
	ViewPending    View = "pending"
)

// ViewFor picks the dashboard variant. Administrators manage the books and
// share the accountant view. Accounts with neither a patient
// record nor a staff profile get the pending view unless they are
// superusers.
func ViewFor(id auth.Identity) View {
	switch id.Kind {
	case auth.KindPatient:
		return ViewPatient
	case auth.KindStaff:
		switch id.Role {
		case auth.RoleDoctor:
			return ViewDoctor
		case auth.RoleAccountant, auth.RoleAdministrator:
			return ViewAccountant
		case auth.RoleNurse:
			return ViewNurse
		}
		return ViewSummary
	}
	if id.Superuser {
		return ViewSummary
	}
	return ViewPending
}

type PatientView struct {
	Patient      *patient.Patient          `json:"patient"`
	Appointments []*scheduling.Appointment `json:"appointments"`
}

type DoctorView struct {
	Today        time.Time                 `json:"today"`
	Appointments []*scheduling.Appointment `json:"appointments"`
	Orders       []*nursing.Order          `json:"orders"`
	// Patients seen today, offered in the quick order form.
	Patients []OrderTarget `json:"patients"`
}

type OrderTarget struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type AccountantView struct {
	Entries []*ledger.Entry    `json:"entries"`
	Total   int                `json:"total"`
	Summary ledger.Summary     `json:"summary"`
	Types   []ledger.EntryType `json:"types"`
}

type NurseView struct {
	Pending []*nursing.Order `json:"pending"`
}

type SummaryView struct {
	PatientCount        int            `json:"patient_count"`
	PendingAppointments int            `json:"pending_appointments"`
	PendingToday        int            `json:"pending_today"`
	Ledger              ledger.Summary `json:"ledger"`
}

type Data struct {
	View       View            `json:"view"`
	Patient    *PatientView    `json:"patient,omitempty"`
	Doctor     *DoctorView     `json:"doctor,omitempty"`
	Accountant *AccountantView `json:"accountant,omitempty"`
	Nurse      *NurseView      `json:"nurse,omitempty"`
	Summary    *SummaryView    `json:"summary,omitempty"`
}

// Dashboard renders the variant chosen by ViewFor.
func (h *Handler) Dashboard(c echo.Context) error {
	id := auth.IdentityFrom(c)
	data, err := h.load(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return web.Render(c, http.StatusOK, "dashboard", web.Page{Title: "Panel", Data: data})
}

func (h *Handler) load(ctx context.Context, id auth.Identity) (Data, error) {
	data := Data{View: ViewFor(id)}
	var err error
	switch data.View {
	case ViewPatient:
		data.Patient, err = h.patientView(ctx, id.PatientID)
	case ViewDoctor:
		data.Doctor, err = h.doctorView(ctx, id.AccountID)
	case ViewAccountant:
		data.Accountant, err = h.accountantView(ctx)
	case ViewNurse:
		var pending []*nursing.Order
		pending, err = h.src.Orders.ListPending(ctx)
		data.Nurse = &NurseView{Pending: pending}
	case ViewSummary:
		data.Summary, err = h.summaryView(ctx)
	}
	return data, err
}

func (h *Handler) patientView(ctx context.Context, patientID uuid.UUID) (*PatientView, error) {
	p, err := h.src.Patients.Get(ctx, patientID)
	if err != nil {
		return nil, err
	}
	appts, err := h.src.Appointments.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return &PatientView{Patient: p, Appointments: appts}, nil
}

func (h *Handler) doctorView(ctx context.Context, doctorID uuid.UUID) (*DoctorView, error) {
	today := h.now()
	appts, err := h.src.Appointments.ListForDoctorOn(ctx, doctorID, today)
	if err != nil {
		return nil, err
	}
	orders, err := h.src.Orders.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	seen := make(map[uuid.UUID]bool)
	var targets []OrderTarget
	for _, a := range appts {
		if seen[a.PatientID] {
			continue
		}
		seen[a.PatientID] = true
		targets = append(targets, OrderTarget{ID: a.PatientID, Name: a.PatientName})
	}
	return &DoctorView{Today: today, Appointments: appts, Orders: orders, Patients: targets}, nil
}

func (h *Handler) accountantView(ctx context.Context) (*AccountantView, error) {
	entries, total, err := h.src.Ledger.List(ctx, ledger.Filter{}, RecentLedgerEntries, 0)
	if err != nil {
		return nil, err
	}
	summary, err := h.src.Ledger.Summary(ctx)
	if err != nil {
		return nil, err
	}
	return &AccountantView{Entries: entries, Total: total, Summary: summary, Types: ledger.EntryTypes}, nil
}

func (h *Handler) summaryView(ctx context.Context) (*SummaryView, error) {
	var v SummaryView
	var err error
	if v.PatientCount, err = h.src.Patients.Count(ctx); err != nil {
		return nil, err
	}
	if v.PendingAppointments, err = h.src.Appointments.CountPending(ctx); err != nil {
		return nil, err
	}
	if v.PendingToday, err = h.src.Appointments.CountPendingOn(ctx, h.now()); err != nil {
		return nil, err
	}
	if v.Ledger, err = h.src.Ledger.Summary(ctx); err != nil {
		return nil, err
	}
	return &v, nil
}
