// Package pdf renders printable documents for the clinic.
package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

// TemplatePrescription is the identifier of the prescription layout.
const TemplatePrescription = "prescription"

// Renderer turns a template identifier and its data into a PDF byte stream.
type Renderer interface {
	Render(template string, data any) ([]byte, error)
}

// Prescription is the data context for TemplatePrescription.
type Prescription struct {
	ClinicName        string
	PatientName       string
	PatientNationalID string
	PatientAge        int
	DoctorName        string
	DoctorSpecialty   string
	AppointmentDate   time.Time
	Reason            string
	Diagnosis         string
	Treatment         string
	Notes             string
	PrintedAt         time.Time
}

// FileName returns the download name for a prescription.
func (p Prescription) FileName(firstName, lastName string) string {
	clean := func(s string) string {
		return strings.Join(strings.Fields(s), "_")
	}
	return fmt.Sprintf("Receta_%s_%s.pdf", clean(firstName), clean(lastName))
}

// FPDFRenderer renders documents with go-pdf/fpdf using the core fonts.
type FPDFRenderer struct{}

func NewRenderer() *FPDFRenderer {
	return &FPDFRenderer{}
}

func (r *FPDFRenderer) Render(template string, data any) ([]byte, error) {
	switch template {
	case TemplatePrescription:
		p, ok := data.(Prescription)
		if !ok {
			if ptr, isPtr := data.(*Prescription); isPtr && ptr != nil {
				p, ok = *ptr, true
			}
		}
		if !ok {
			return nil, fmt.Errorf("pdf: template %q expects Prescription, got %T", template, data)
		}
		return renderPrescription(p)
	default:
		return nil, fmt.Errorf("pdf: unknown template %q", template)
	}
}

func renderPrescription(p Prescription) ([]byte, error) {
	doc := fpdf.New("P", "mm", "Letter", "")
	tr := doc.UnicodeTranslatorFromDescriptor("")
	doc.SetTitle("Receta", true)
	doc.SetAuthor(p.DoctorName, true)
	doc.SetMargins(20, 20, 20)
	doc.SetFooterFunc(func() {
		doc.SetY(-15)
		doc.SetFont("Helvetica", "I", 8)
		doc.CellFormat(0, 10, tr("Impreso el "+p.PrintedAt.Format("02/01/2006 15:04")), "", 0, "C", false, 0, "")
	})
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 16)
	doc.CellFormat(0, 10, tr(p.ClinicName), "", 1, "C", false, 0, "")
	doc.SetFont("Helvetica", "", 11)
	doctorLine := "Dr(a). " + p.DoctorName
	if p.DoctorSpecialty != "" {
		doctorLine += " - " + p.DoctorSpecialty
	}
	doc.CellFormat(0, 6, tr(doctorLine), "", 1, "C", false, 0, "")
	doc.Ln(4)
	y := doc.GetY()
	doc.Line(20, y, 196, y)
	doc.Ln(6)

	field := func(label, value string) {
		doc.SetFont("Helvetica", "B", 11)
		doc.CellFormat(40, 7, tr(label), "", 0, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 11)
		doc.MultiCell(0, 7, tr(value), "", "L", false)
	}

	field("Paciente:", p.PatientName)
	field("Cédula:", p.PatientNationalID)
	field("Edad:", fmt.Sprintf("%d años", p.PatientAge))
	field("Fecha consulta:", p.AppointmentDate.Format("02/01/2006"))
	if p.Reason != "" {
		field("Motivo:", p.Reason)
	}
	doc.Ln(4)

	section := func(title, body string) {
		if strings.TrimSpace(body) == "" {
			return
		}
		doc.SetFont("Helvetica", "B", 12)
		doc.CellFormat(0, 8, tr(title), "B", 1, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 11)
		doc.MultiCell(0, 6, tr(body), "", "L", false)
		doc.Ln(3)
	}
	section("Diagnóstico", p.Diagnosis)
	section("Tratamiento (Rp.)", p.Treatment)
	section("Observaciones", p.Notes)

	doc.Ln(20)
	doc.SetFont("Helvetica", "", 10)
	doc.CellFormat(0, 6, "______________________________", "", 1, "R", false, 0, "")
	doc.CellFormat(0, 6, tr("Firma y sello"), "", 1, "R", false, 0, "")

	if err := doc.Error(); err != nil {
		return nil, fmt.Errorf("pdf: render prescription: %w", err)
	}
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: write prescription: %w", err)
	}
	return buf.Bytes(), nil
}
