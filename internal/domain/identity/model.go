package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/siratop/sistema-clinica/internal/platform/auth"
)

// Account is a login identity. Patients and staff both authenticate
// through an Account; which one it is depends on the linked records.
type Account struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Username     string     `db:"username" json:"username"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FirstName    string     `db:"first_name" json:"first_name"`
	LastName     string     `db:"last_name" json:"last_name"`
	Email        string     `db:"email" json:"email,omitempty"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	IsSuperuser  bool       `db:"is_superuser" json:"is_superuser"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	LastLoginAt  *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
}

// FullName joins first and last name, falling back to the username.
func (a *Account) FullName() string {
	name := strings.TrimSpace(a.FirstName + " " + a.LastName)
	if name == "" {
		return a.Username
	}
	return name
}

type StaffProfile struct {
	AccountID   uuid.UUID  `db:"account_id" json:"account_id"`
	Role        auth.Role  `db:"role" json:"role"`
	NationalID  string     `db:"national_id" json:"national_id"`
	Phone       string     `db:"phone" json:"phone,omitempty"`
	SpecialtyID *uuid.UUID `db:"specialty_id" json:"specialty_id,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

type Specialty struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Doctor is the read model used by booking forms and prescriptions.
type Doctor struct {
	AccountID uuid.UUID `json:"account_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Specialty string    `json:"specialty,omitempty"`
}

func (d *Doctor) FullName() string {
	return strings.TrimSpace(d.FirstName + " " + d.LastName)
}

// IdentityRecord is everything needed to resolve an auth.Identity for one
// account, loaded in a single query.
type IdentityRecord struct {
	Account   Account
	Role      *auth.Role
	PatientID *uuid.UUID
}

// NewAccount is the input for creating a login.
type NewAccount struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
	Email     string
	Superuser bool
}
