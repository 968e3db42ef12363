package domain

import "context"

// Role is the coarse permission level carried by an authenticated identity.
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleMember || r == RoleAdmin
}

// Identity is the resolved caller of an operation. It is produced by an
// IdentityResolver outside the core; the core only authorizes, it never authenticates.
type Identity struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// IdentityResolver turns a request credential (bearer token) into an Identity.
// Implementations return an error wrapping ErrUnauthenticated on any failure.
type IdentityResolver interface {
	Resolve(ctx context.Context, credential string) (Identity, error)
}
