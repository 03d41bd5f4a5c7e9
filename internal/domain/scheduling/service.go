package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/siratop/sistema-clinica/internal/domain/identity"
	"github.com/siratop/sistema-clinica/internal/domain/patient"
	"github.com/siratop/sistema-clinica/internal/platform/apperr"
	"github.com/siratop/sistema-clinica/internal/platform/auth"
	"github.com/siratop/sistema-clinica/internal/platform/db"
	"github.com/siratop/sistema-clinica/internal/platform/mail"
	"github.com/siratop/sistema-clinica/internal/platform/pdf"
	"github.com/siratop/sistema-clinica/internal/platform/web"
)

// PatientStore is the part of the patient registry booking needs.
type PatientStore interface {
	Build(f patient.Form) (*patient.Patient, error)
	Get(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
	UpsertGuest(ctx context.Context, f patient.Form) (*patient.Patient, bool, error)
}

// DoctorDirectory looks up active doctors.
type DoctorDirectory interface {
	GetDoctor(ctx context.Context, accountID uuid.UUID) (*identity.Doctor, error)
}

type Service struct {
	repo       Repository
	patients   PatientStore
	doctors    DoctorDirectory
	tx         db.TxRunner
	renderer   pdf.Renderer
	mailer     mail.Mailer
	clinicName string
	logger     zerolog.Logger
	now        func() time.Time
}

func NewService(
	repo Repository,
	patients PatientStore,
	doctors DoctorDirectory,
	tx db.TxRunner,
	renderer pdf.Renderer,
	mailer mail.Mailer,
	clinicName string,
	logger zerolog.Logger,
) *Service {
	return &Service{
		repo:       repo,
		patients:   patients,
		doctors:    doctors,
		tx:         tx,
		renderer:   renderer,
		mailer:     mailer,
		clinicName: clinicName,
		logger:     logger.With().Str("component", "scheduling").Logger(),
		now:        time.Now,
	}
}

// parseBooking validates b into an appointment without patient.
func parseBooking(v *apperr.ValidationError, b Booking) *Appointment {
	a := &Appointment{Reason: strings.TrimSpace(b.Reason), Status: StatusPending}
	if id, err := uuid.Parse(strings.TrimSpace(b.DoctorID)); err != nil {
		v.Add("doctor_id", "select a doctor")
	} else {
		a.DoctorID = id
	}
	if d, err := web.ParseDate(b.Date); err != nil {
		v.Add("date", "use the format YYYY-MM-DD")
	} else {
		a.Date = d
	}
	if t, err := web.ParseClock(b.Time); err != nil {
		v.Add("time", "use the format HH:MM")
	} else {
		a.Time = t.Format(web.ClockLayout)
	}
	if a.Reason == "" {
		v.Add("reason", "required")
	}
	return a
}

// mergeInto copies field errors from err into v. Other errors are returned.
func mergeInto(v *apperr.ValidationError, err error) error {
	var other *apperr.ValidationError
	if !errors.As(err, &other) {
		return err
	}
	for f, msg := range other.Fields {
		v.Add(f, msg)
	}
	return nil
}

func (s *Service) requireDoctor(ctx context.Context, id uuid.UUID) (*identity.Doctor, error) {
	d, err := s.doctors.GetDoctor(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.Validation("doctor_id", "select an available doctor")
	}
	return d, err
}

// GuestBook books for a walk-in visitor without a login. The patient is
// matched by national ID; an existing patient only gets its phone updated.
// No overlap check is made against the doctor's other appointments.
func (s *Service) GuestBook(ctx context.Context, g GuestBooking) (*Appointment, error) {
	v := apperr.NewValidation()
	a := parseBooking(v, g.Booking)
	if _, err := s.patients.Build(g.Form); err != nil {
		if err := mergeInto(v, err); err != nil {
			return nil, err
		}
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	var p *patient.Patient
	var doctor *identity.Doctor
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		if doctor, err = s.requireDoctor(ctx, a.DoctorID); err != nil {
			return err
		}
		if p, _, err = s.patients.UpsertGuest(ctx, g.Form); err != nil {
			return err
		}
		a.PatientID = p.ID
		return s.repo.Create(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	a.PatientName, a.PatientNationalID, a.DoctorName = p.FullName(), p.NationalID, doctor.FullName()
	s.confirm(ctx, p, a)
	return a, nil
}

// Book creates a pending appointment for an existing patient.
func (s *Service) Book(ctx context.Context, patientID uuid.UUID, b Booking) (*Appointment, error) {
	v := apperr.NewValidation()
	a := parseBooking(v, b)
	if err := v.Err(); err != nil {
		return nil, err
	}
	p, err := s.patients.Get(ctx, patientID)
	if err != nil {
		return nil, err
	}
	doctor, err := s.requireDoctor(ctx, a.DoctorID)
	if err != nil {
		return nil, err
	}
	a.PatientID = p.ID
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	a.PatientName, a.PatientNationalID, a.DoctorName = p.FullName(), p.NationalID, doctor.FullName()
	s.confirm(ctx, p, a)
	return a, nil
}

// confirm mails the patient about a; failures are only logged.
func (s *Service) confirm(ctx context.Context, p *patient.Patient, a *Appointment) {
	if p.Email == nil || *p.Email == "" {
		return
	}
	body := fmt.Sprintf("Hola %s,\n\nSu cita con Dr(a). %s quedó registrada para el %s a las %s.\nMotivo: %s\n\n%s",
		p.FirstName, a.DoctorName, a.Date.Format("02/01/2006"), a.Time, a.Reason, s.clinicName)
	err := s.mailer.Send(ctx, mail.Message{
		To:       []string{*p.Email},
		Subject:  "Confirmación de cita - " + s.clinicName,
		TextBody: body,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("appointment_id", a.ID.String()).Msg("appointment confirmation not sent")
	}
}

// canAttend reports whether actor may write the consultation of a.
func canAttend(actor auth.Identity, a *Appointment) bool {
	if actor.HasRole(auth.RoleAdministrator) {
		return true
	}
	return actor.Kind == auth.KindStaff && actor.Role == auth.RoleDoctor && actor.AccountID == a.DoctorID
}

// Attend records the consultation. Only the assigned doctor, an
// administrator or a superuser may do so; attending twice overwrites.
func (s *Service) Attend(ctx context.Context, actor auth.Identity, id uuid.UUID, c Consultation) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canAttend(actor, a) {
		return nil, apperr.ErrNotAuthorized
	}
	if err := s.repo.Attend(ctx, id, c, s.now()); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Appointment, error) {
	return s.repo.ListByPatient(ctx, patientID)
}

// ListForDoctorOn returns the doctor's appointments on day's date.
func (s *Service) ListForDoctorOn(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]*Appointment, error) {
	return s.repo.ListByDoctorOn(ctx, doctorID, day)
}

func (s *Service) CountPending(ctx context.Context) (int, error) {
	return s.repo.CountPending(ctx)
}

func (s *Service) CountPendingOn(ctx context.Context, day time.Time) (int, error) {
	return s.repo.CountPendingOn(ctx, day)
}

// Prescription renders the printable prescription of an appointment and
// returns the PDF with its download name.
func (s *Service) Prescription(ctx context.Context, id uuid.UUID, issuer auth.Identity) ([]byte, string, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	p, err := s.patients.Get(ctx, a.PatientID)
	if err != nil {
		return nil, "", err
	}

	data := pdf.Prescription{
		ClinicName:        s.clinicName,
		PatientName:       p.FullName(),
		PatientNationalID: p.NationalID,
		PatientAge:        p.Age,
		AppointmentDate:   a.Date,
		Reason:            a.Reason,
		Diagnosis:         deref(a.Diagnosis),
		Treatment:         deref(a.Treatment),
		Notes:             deref(a.Notes),
		PrintedAt:         s.now(),
	}
	data.DoctorName, data.DoctorSpecialty = s.signer(ctx, a, issuer)

	out, err := s.renderer.Render(pdf.TemplatePrescription, data)
	if err != nil {
		return nil, "", err
	}
	return out, data.FileName(p.FirstName, p.LastName), nil
}

// signer names whoever signs the prescription: the issuing doctor, else the
// issuing staff member, else the doctor the appointment was booked with.
func (s *Service) signer(ctx context.Context, a *Appointment, issuer auth.Identity) (name, specialty string) {
	if issuer.Kind == auth.KindStaff && issuer.Role == auth.RoleDoctor {
		if d, err := s.doctors.GetDoctor(ctx, issuer.AccountID); err == nil {
			return d.FullName(), d.Specialty
		}
	}
	if issuer.DisplayName != "" {
		return issuer.DisplayName, ""
	}
	name = a.DoctorName
	// A doctor disabled since the visit keeps their name on the document.
	if d, err := s.doctors.GetDoctor(ctx, a.DoctorID); err == nil {
		specialty = d.Specialty
	}
	return name, specialty
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
