package members

import (
	"errors"
	"time"
)

// ErrInvalidMember signals a member record that fails basic checks.
var ErrInvalidMember = errors.New("members: invalid member")

// Member is a congregation member record.
type Member struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	BirthDate *time.Time `json:"birth_date,omitempty"`
	JoinedAt  *time.Time `json:"joined_at,omitempty"`
	Notes     string     `json:"notes,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
