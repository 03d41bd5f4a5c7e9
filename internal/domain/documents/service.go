package documents

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/siratop/sistema-clinica/internal/domain/patient"
	"github.com/siratop/sistema-clinica/internal/platform/apperr"
	"github.com/siratop/sistema-clinica/internal/platform/auth"
	"github.com/siratop/sistema-clinica/internal/platform/blobstore"
)

// PatientLookup confirms the owning patient exists.
type PatientLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

type Service struct {
	repo     Repository
	store    blobstore.Store
	patients PatientLookup
	policy   blobstore.Policy
	logger   zerolog.Logger
}

func NewService(repo Repository, store blobstore.Store, patients PatientLookup, maxBytes int64, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		store:    store,
		patients: patients,
		policy:   blobstore.Policy{MaxSize: maxBytes, ContentTypes: blobstore.DocumentContentTypes},
		logger:   logger.With().Str("component", "documents").Logger(),
	}
}

func uploadError(err error) error {
	switch {
	case errors.Is(err, blobstore.ErrMissingFileName):
		return apperr.Validation("file", "choose a file")
	case errors.Is(err, blobstore.ErrFileTooLarge):
		return apperr.Validation("file", "file is too large")
	case errors.Is(err, blobstore.ErrInvalidContentType):
		return apperr.Validation("file", "file type is not allowed")
	}
	return err
}

// Upload stores u and attaches it to the patient. The blob is removed
// again when the row cannot be written.
func (s *Service) Upload(ctx context.Context, actor auth.Identity, patientID uuid.UUID, f Form, u blobstore.Upload) (*Document, error) {
	title := strings.TrimSpace(f.Title)
	if title == "" {
		title = strings.TrimSpace(u.FileName)
	}
	if title == "" {
		return nil, apperr.Validation("file", "choose a file")
	}
	if _, err := s.patients.Get(ctx, patientID); err != nil {
		return nil, err
	}

	obj, err := blobstore.Save(ctx, s.store, "documents/"+patientID.String(), s.policy, u)
	if err != nil {
		return nil, uploadError(err)
	}

	d := &Document{
		PatientID:   patientID,
		BlobKey:     obj.Key,
		FileName:    u.FileName,
		ContentType: obj.ContentType,
		Size:        obj.Size,
		Title:       title,
		Description: strings.TrimSpace(f.Description),
	}
	if actor.AccountID != uuid.Nil {
		uploader := actor.AccountID
		d.UploadedBy = &uploader
	}
	if err := s.repo.Create(ctx, d); err != nil {
		if derr := s.store.Delete(ctx, obj.Key); derr != nil {
			s.logger.Error().Err(derr).Str("blob_key", obj.Key).Msg("orphaned document blob")
		}
		return nil, err
	}
	s.logger.Info().Str("document_id", d.ID.String()).Str("patient_id", patientID.String()).
		Int64("size", d.Size).Msg("document uploaded")
	return d, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Document, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Document, error) {
	return s.repo.ListByPatient(ctx, patientID)
}

// Open returns the document and a reader over its content. The caller
// closes the reader.
func (s *Service) Open(ctx context.Context, id uuid.UUID) (*Document, io.ReadCloser, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, _, err := s.store.Open(ctx, d.BlobKey)
	if errors.Is(err, blobstore.ErrBlobNotFound) {
		return nil, nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	return d, rc, nil
}

// Delete removes the row, then the blob. A blob that cannot be removed is
// logged and left behind.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) (*Document, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, err
	}
	if err := s.store.Delete(ctx, d.BlobKey); err != nil && !errors.Is(err, blobstore.ErrBlobNotFound) {
		s.logger.Error().Err(err).Str("blob_key", d.BlobKey).Msg("orphaned document blob")
	}
	return d, nil
}

// CanRead reports whether actor may download d: staff, or the patient the
// document belongs to.
func CanRead(actor auth.Identity, d *Document) bool {
	if actor.IsStaff() {
		return true
	}
	return actor.Kind == auth.KindPatient && actor.PatientID == d.PatientID
}
