package shared

import (
	"fmt"

	"github.com/restopro/restopro/internal/platform/httpx"
)

var (
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", httpx.ErrUnauthorized)
	// ErrInvalidToken indicates an unknown or expired password reset token.
	ErrInvalidToken = fmt.Errorf("invalid or expired token: %w", httpx.ErrValidation)
)
