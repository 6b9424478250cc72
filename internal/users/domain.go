// Package users lets an owner manage the staff accounts linked to their
// restaurant.
package users

import (
	"fmt"
	"time"

	"github.com/restopro/restopro/internal/platform/httpx"
)

// ErrNotFound is returned when the staff member does not belong to the owner.
var ErrNotFound = fmt.Errorf("staff member: %w", httpx.ErrNotFound)

// Member is a staff account as seen by its owner.
type Member struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     string    `json:"phone,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ActiveInput toggles whether a staff member can sign in.
type ActiveInput struct {
	Active *bool `json:"active" validate:"required"`
}
