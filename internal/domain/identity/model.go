package identity

import (
	"time"

	"github.com/google/uuid"
)

// Role labels. Registration defaults to RolePatient; RoleDoctor is granted
// out-of-band by an operator.
const (
	RoleDoctor  = "Doctor"
	RolePatient = "Patient"
)

// User is the credential record. PasswordHash is a bcrypt hash; the
// plaintext is never stored and the hash is never serialized.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Roles        []string  `db:"roles" json:"roles"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// HasRole reports whether the user currently holds the given role.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
