package allowlist

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/siratop/sistema-clinica/internal/platform/auth"
)

// Entry pre-authorizes a national ID to register as staff with a given role.
type Entry struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	NationalID    string     `db:"national_id" json:"national_id"`
	FullName      string     `db:"full_name" json:"full_name"`
	Role          auth.Role  `db:"role" json:"role"`
	SpecialtyID   *uuid.UUID `db:"specialty_id" json:"specialty_id,omitempty"`
	SpecialtyName string     `db:"-" json:"specialty_name,omitempty"`
	Used          bool       `db:"used" json:"used"`
	UsedAt        *time.Time `db:"used_at" json:"used_at,omitempty"`
	CreatedBy     *uuid.UUID `db:"created_by" json:"created_by,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// SplitName breaks FullName into first and last name on the first space.
func (e *Entry) SplitName() (first, last string) {
	fields := strings.Fields(e.FullName)
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}

type AuthorizeInput struct {
	NationalID  string
	FullName    string
	Role        auth.Role
	SpecialtyID *uuid.UUID
}

type ConsumeInput struct {
	NationalID string
	Username   string
	Password   string
	Phone      string
	Email      string
}
