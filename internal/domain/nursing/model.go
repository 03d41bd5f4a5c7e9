package nursing

import (
	"time"

	"github.com/google/uuid"
)

// Order is a doctor's instruction for a patient, executed once by a nurse.
// Executed, ExecutedBy and ExecutedAt are written together.
type Order struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	PatientID     uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID      uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	Instruction   string     `db:"instruction" json:"instruction"`
	Executed      bool       `db:"executed" json:"executed"`
	ExecutionNote string     `db:"execution_note" json:"execution_note,omitempty"`
	ExecutedBy    *uuid.UUID `db:"executed_by" json:"executed_by,omitempty"`
	ExecutedAt    *time.Time `db:"executed_at" json:"executed_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`

	PatientName string `json:"patient_name,omitempty"`
	DoctorName  string `json:"doctor_name,omitempty"`
	NurseName   string `json:"nurse_name,omitempty"`
}

type OrderForm struct {
	PatientID   string `form:"patient_id" json:"patient_id"`
	Instruction string `form:"instruction" json:"instruction"`
}

type ExecuteForm struct {
	Note string `form:"execution_note" json:"execution_note"`
}
