package domain

import (
	"time"

	"github.com/google/uuid"
)

const RoleAdmin = "admin"

// User is a registered forum member.
type User struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	Roles        []string
	CreatedAt    time.Time
}

func (u User) IsAdmin() bool {
	for _, role := range u.Roles {
		if role == RoleAdmin {
			return true
		}
	}
	return false
}
