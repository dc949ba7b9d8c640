package user

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         Role      `json:"role" db:"role"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

type Role string

const RoleUser Role = "user"
const RoleAdmin Role = "admin"

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Public returns a copy safe to hand outside the credential store.
func (u *User) Public() *User {
	c := *u
	c.PasswordHash = ""
	return &c
}
