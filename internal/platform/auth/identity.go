package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Role is a staff role tag. Patients carry no role.
type Role string

const (
	RoleDoctor        Role = "doctor"
	RoleSecretary     Role = "secretary"
	RoleAdministrator Role = "administrator"
	RoleAccountant    Role = "accountant"
	RoleNurse         Role = "nurse"
)

// StaffRoles lists every role a StaffProfile or allowlist entry may hold.
var StaffRoles = []Role{RoleDoctor, RoleSecretary, RoleAdministrator, RoleAccountant, RoleNurse}

// Valid reports whether r is one of StaffRoles.
func (r Role) Valid() bool {
	for _, s := range StaffRoles {
		if r == s {
			return true
		}
	}
	return false
}

// Kind tags which branch of Identity is populated.
type Kind int

const (
	// KindAnonymous is the zero value: no session.
	KindAnonymous Kind = iota
	// KindUnresolved is an authenticated account with neither a patient
	// record nor a staff profile.
	KindUnresolved
	// KindPatient is an account linked to a patient record.
	KindPatient
	// KindStaff is an account with a staff profile.
	KindStaff
)

func (k Kind) String() string {
	switch k {
	case KindUnresolved:
		return "unresolved"
	case KindPatient:
		return "patient"
	case KindStaff:
		return "staff"
	default:
		return "anonymous"
	}
}

// Identity is resolved once per request by SessionMiddleware and read by
// handlers through IdentityFrom.
type Identity struct {
	Kind        Kind      `json:"kind"`
	AccountID   uuid.UUID `json:"account_id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Superuser   bool      `json:"superuser"`

	// Set when Kind == KindStaff.
	Role Role `json:"role,omitempty"`

	// Set when Kind == KindPatient.
	PatientID uuid.UUID `json:"patient_id,omitempty"`
}

// Authenticated reports whether the request carries a valid session.
func (i Identity) Authenticated() bool {
	return i.Kind != KindAnonymous
}

// IsStaff reports whether i may use staff-only surfaces. Superusers count
// as staff even without a profile.
func (i Identity) IsStaff() bool {
	return i.Kind == KindStaff || i.Superuser
}

// HasRole reports whether i is staff holding one of roles. Superusers hold
// every role.
func (i Identity) HasRole(roles ...Role) bool {
	if i.Superuser {
		return true
	}
	if i.Kind != KindStaff {
		return false
	}
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}

type contextKey string

const (
	IdentityKey contextKey = "identity"

	// identityEchoKey mirrors the identity on the echo context for templates.
	identityEchoKey = "identity"
)

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, id)
}

// FromContext returns the identity stored in ctx; anonymous when absent.
func FromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(IdentityKey).(Identity)
	return id
}

// IdentityFrom returns the identity resolved for the current request.
func IdentityFrom(c echo.Context) Identity {
	return FromContext(c.Request().Context())
}

// SetIdentity stores id on both the request context and the echo context.
func SetIdentity(c echo.Context, id Identity) {
	c.SetRequest(c.Request().WithContext(WithIdentity(c.Request().Context(), id)))
	c.Set(identityEchoKey, id)
}
