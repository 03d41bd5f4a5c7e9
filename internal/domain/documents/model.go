package documents

import (
	"time"

	"github.com/google/uuid"
)

// Document is a file attached to a patient's record. BlobKey never changes
// once the row exists.
type Document struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	PatientID   uuid.UUID  `db:"patient_id" json:"patient_id"`
	BlobKey     string     `db:"blob_key" json:"-"`
	FileName    string     `db:"file_name" json:"file_name"`
	ContentType string     `db:"content_type" json:"content_type"`
	Size        int64      `db:"size_bytes" json:"size"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description,omitempty"`
	UploadedBy  *uuid.UUID `db:"uploaded_by" json:"uploaded_by,omitempty"`
	UploadedAt  time.Time  `db:"uploaded_at" json:"uploaded_at"`
}

// Form carries the text fields of an upload.
type Form struct {
	Title       string `form:"title" json:"title"`
	Description string `form:"description" json:"description"`
}
