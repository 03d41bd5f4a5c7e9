// Package blobstore stores uploaded files (patient documents and carousel
// images) behind a small key/value interface with in-memory, local-disk and
// S3 backends. Callers keep the returned key; the store never rewrites
// content under an existing key.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrBlobNotFound       = errors.New("blob not found")
	ErrFileTooLarge       = errors.New("file exceeds maximum allowed size")
	ErrInvalidContentType = errors.New("content type is not allowed")
	ErrMissingFileName    = errors.New("file name is required")
	ErrInvalidKey         = errors.New("invalid blob key")
)

// DocumentContentTypes are accepted for patient documents.
var DocumentContentTypes = map[string]bool{
	"application/pdf":    true,
	"image/png":          true,
	"image/jpeg":         true,
	"image/gif":          true,
	"image/webp":         true,
	"text/plain":         true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
}

// ImageContentTypes are accepted for carousel slides.
var ImageContentTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// Object describes a stored blob.
type Object struct {
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// Store is the contract every backend implements.
type Store interface {
	Put(ctx context.Context, key, contentType string, content io.Reader, size int64) (*Object, error)
	Open(ctx context.Context, key string) (io.ReadCloser, *Object, error)
	Delete(ctx context.Context, key string) error
}

// Upload describes an incoming file before it is stored.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// Policy constrains what Save accepts.
type Policy struct {
	MaxSize      int64
	ContentTypes map[string]bool
}

// Validate checks u against p. The content type is normalised by dropping
// parameters such as charset.
func (p Policy) Validate(u Upload) (string, error) {
	if strings.TrimSpace(u.FileName) == "" {
		return "", ErrMissingFileName
	}
	if p.MaxSize > 0 && u.Size > p.MaxSize {
		return "", ErrFileTooLarge
	}
	ct := u.ContentType
	if parsed, _, err := mime.ParseMediaType(ct); err == nil {
		ct = parsed
	}
	if ct == "" || ct == "application/octet-stream" {
		ct = mime.TypeByExtension(strings.ToLower(path.Ext(u.FileName)))
		if parsed, _, err := mime.ParseMediaType(ct); err == nil {
			ct = parsed
		}
	}
	if len(p.ContentTypes) > 0 && !p.ContentTypes[ct] {
		return "", fmt.Errorf("%w: %q", ErrInvalidContentType, ct)
	}
	return ct, nil
}

// Save validates u against p and stores it under a fresh key in prefix.
func Save(ctx context.Context, s Store, prefix string, p Policy, u Upload) (*Object, error) {
	ct, err := p.Validate(u)
	if err != nil {
		return nil, err
	}
	content := u.Content
	if p.MaxSize > 0 {
		content = io.LimitReader(content, p.MaxSize+1)
	}
	return s.Put(ctx, NewKey(prefix, u.FileName), ct, content, u.Size)
}

// NewKey returns "<prefix>/<uuid><ext>" where ext comes from fileName.
func NewKey(prefix, fileName string) string {
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(fileName, "\\", "/"))))
	if len(ext) > 10 {
		ext = ""
	}
	return strings.Trim(prefix, "/") + "/" + uuid.NewString() + ext
}

// ValidKey rejects keys that could escape the store root.
func ValidKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return false
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return false
		}
	}
	return true
}
