// Package auth registers users, signs them in and resets forgotten passwords.
package auth

import (
	"fmt"
	"time"

	"github.com/restopro/restopro/internal/platform/httpx"
	"github.com/restopro/restopro/internal/shared"
)

var (
	ErrNotFound          = fmt.Errorf("user: %w", httpx.ErrNotFound)
	ErrDuplicate         = fmt.Errorf("an account with this email already exists: %w", httpx.ErrDuplicate)
	ErrInvalidInviteCode = &httpx.ValidationError{Fields: map[string]string{"invite_code": "unknown invite code"}}
)

// User is an account of a restaurant owner, staff member or admin.
type User struct {
	ID             int64       `json:"id"`
	Email          string      `json:"email"`
	FirstName      string      `json:"first_name"`
	LastName       string      `json:"last_name"`
	Phone          string      `json:"phone,omitempty"`
	Role           shared.Role `json:"role"`
	PasswordHash   string      `json:"-"`
	RestaurantName string      `json:"restaurant_name,omitempty"`
	Address        string      `json:"address,omitempty"`
	InviteCode     string      `json:"invite_code,omitempty"`
	OwnerID        *int64      `json:"owner_id,omitempty"`
	IsActive       bool        `json:"is_active"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// FullName joins first and last name.
func (u User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// RegisterInput is the sign-up payload. Owners describe their restaurant,
// staff join one through the owner's invite code.
type RegisterInput struct {
	Email           string `json:"email" validate:"required,email,max=254"`
	FirstName       string `json:"first_name" validate:"required,max=80"`
	LastName        string `json:"last_name" validate:"max=80"`
	Phone           string `json:"phone" validate:"max=32"`
	Password        string `json:"password" validate:"required,min=6,max=72"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
	Role            string `json:"role" validate:"required,oneof=owner staff"`
	RestaurantName  string `json:"restaurant_name" validate:"required_if=Role owner,max=120"`
	Address         string `json:"address" validate:"max=300"`
	InviteCode      string `json:"invite_code" validate:"required_if=Role staff,max=64"`
}

// LoginInput carries credentials.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ForgotPasswordInput requests a reset link.
type ForgotPasswordInput struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordInput sets a new password with a reset token.
type ResetPasswordInput struct {
	Token           string `json:"token" validate:"required"`
	Password        string `json:"password" validate:"required,min=6,max=72"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}
