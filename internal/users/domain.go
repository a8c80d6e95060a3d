package users

import (
	"time"

	"github.com/amparo-app/amparo/internal/authz"
)

// User represents an account with its role and approval status.
type User struct {
	ID           int64        `json:"id"`
	Email        string       `json:"email"`
	Name         string       `json:"name"`
	PasswordHash string       `json:"-"`
	Role         authz.Role   `json:"role"`
	Status       authz.Status `json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}
