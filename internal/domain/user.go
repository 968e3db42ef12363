package domain

import "time"

// User is a registered account. Password holds a bcrypt hash and is stripped
// by Public before the user leaves the core.
type User struct {
	ID        string    `json:"id,omitempty"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Password  string    `json:"password,omitempty"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Public returns a copy of u without the password hash.
func (u User) Public() User {
	u.Password = ""
	return u
}

// Owner implements Owned; a user record is owned by itself.
func (u User) Owner() string {
	return u.ID
}
