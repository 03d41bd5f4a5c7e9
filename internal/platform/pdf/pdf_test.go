package pdf

import (
	"bytes"
	"testing"
	"time"
)

func TestRender_Prescription(t *testing.T) {
	r := NewRenderer()
	out, err := r.Render(TemplatePrescription, Prescription{
		ClinicName:        "Clínica Central",
		PatientName:       "María Pérez",
		PatientNationalID: "V-12345678",
		PatientAge:        34,
		DoctorName:        "José Gómez",
		DoctorSpecialty:   "Cardiología",
		AppointmentDate:   time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC),
		Diagnosis:         "flu",
		Treatment:         "rest",
		PrintedAt:         time.Now(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Errorf("expected PDF header, got %q", out[:8])
	}
}

func TestRender_PointerData(t *testing.T) {
	if _, err := NewRenderer().Render(TemplatePrescription, &Prescription{ClinicName: "X", PrintedAt: time.Now()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRender_Errors(t *testing.T) {
	r := NewRenderer()
	if _, err := r.Render("invoice", Prescription{}); err == nil {
		t.Error("expected error for unknown template")
	}
	if _, err := r.Render(TemplatePrescription, "not a prescription"); err == nil {
		t.Error("expected error for wrong data type")
	}
}

func TestPrescriptionFileName(t *testing.T) {
	got := Prescription{}.FileName("Ana María", "De la Cruz")
	want := "Receta_Ana_María_De_la_Cruz.pdf"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
