package contextkeys

// contextKey is an unexported type for context keys to avoid collisions.
type contextKey string

const (
	// RequestIDKey is the context key for storing and retrieving a request ID.
	RequestIDKey contextKey = "request_id"

	// UserIDKey is the context key for the id of the authenticated caller.
	UserIDKey contextKey = "user_id"

	// RoleKey is the context key for the role of the authenticated caller.
	RoleKey contextKey = "role"

	// IdentityKey is the context key for the whole domain.Identity of the caller.
	IdentityKey contextKey = "identity"
)

// String makes contextKey satisfy fmt.Stringer to help with debugging/logging of keys themselves.
func (c contextKey) String() string {
	return string(c)
}
