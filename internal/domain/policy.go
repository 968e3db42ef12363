package domain

import "fmt"

// Owned is anything with a creator identity that the access policy can check.
type Owned interface {
	Owner() string
}

// Decision is the outcome of an access-control check.
type Decision struct {
	Allowed bool
	Reason  string
}

// Err returns nil for an allowed decision and an error wrapping ErrForbidden otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrForbidden, d.Reason)
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string) Decision { return Decision{Reason: reason} }

// CanMutate decides whether actor may update or delete item.
// Allowed iff the actor created the item or the actor is an admin.
// An identity without an id never owns anything.
func CanMutate(item Owned, actor Identity) Decision {
	if actor.IsAdmin() {
		return allow()
	}
	if actor.ID != "" && item.Owner() == actor.ID {
		return allow()
	}
	return deny("actor is neither the owner nor an admin")
}

// CanManageUsers gates the administrative user paths (editing another user's
// profile or role, deleting users). Ownership plays no part here.
func CanManageUsers(actor Identity) Decision {
	if actor.IsAdmin() {
		return allow()
	}
	return deny("admin role required")
}
