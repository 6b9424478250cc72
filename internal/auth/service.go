package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/restopro/restopro/internal/platform/httpx"
	"github.com/restopro/restopro/internal/shared"
)

// MailQueue hands outgoing mail to the background worker.
type MailQueue interface {
	EnqueueMail(ctx context.Context, to, subject, body string) error
}

// Service wraps authentication business rules.
type Service struct {
	repo      Repository
	tokens    TokenStore
	mail      MailQueue
	validator *validator.Validate
	logger    *slog.Logger
	baseURL   string
	cost      int
}

// NewService constructs a new Service. baseURL prefixes reset links.
func NewService(repo Repository, tokens TokenStore, mail MailQueue, baseURL string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		tokens:    tokens,
		mail:      mail,
		validator: validator.New(),
		logger:    logger,
		baseURL:   strings.TrimRight(baseURL, "/"),
		cost:      bcrypt.DefaultCost,
	}
}

// Register creates an owner or staff account. Owners receive an invite code,
// staff are linked to the owner whose code they present.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	in.Email = normalizeEmail(in.Email)
	in.InviteCode = strings.TrimSpace(in.InviteCode)
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))
	if err := s.validator.StructCtx(ctx, in); err != nil {
		return nil, httpx.NewValidationError(err)
	}
	role, _ := shared.ParseRole(in.Role)

	user := &User{
		Email:     in.Email,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Phone:     strings.TrimSpace(in.Phone),
		Role:      role,
		IsActive:  true,
	}
	switch role {
	case shared.RoleOwner:
		user.RestaurantName = strings.TrimSpace(in.RestaurantName)
		user.Address = strings.TrimSpace(in.Address)
		user.InviteCode = newInviteCode()
	case shared.RoleStaff:
		owner, err := s.repo.FindOwnerByInviteCode(ctx, in.InviteCode)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, ErrInvalidInviteCode
			}
			return nil, err
		}
		user.OwnerID = &owner.ID
		user.RestaurantName = owner.RestaurantName
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = string(hash)

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user registered", slog.Int64("user_id", user.ID), slog.String("role", string(user.Role)))
	return user, nil
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, in LoginInput) (*User, error) {
	in.Email = normalizeEmail(in.Email)
	if err := s.validator.StructCtx(ctx, in); err != nil {
		return nil, httpx.NewValidationError(err)
	}
	user, err := s.repo.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Get loads a user by id.
func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

// ForgotPassword issues a reset token and queues the reset mail. Unknown or
// inactive addresses succeed silently.
func (s *Service) ForgotPassword(ctx context.Context, in ForgotPasswordInput) error {
	in.Email = normalizeEmail(in.Email)
	if err := s.validator.StructCtx(ctx, in); err != nil {
		return httpx.NewValidationError(err)
	}
	user, err := s.repo.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if !user.IsActive {
		return nil
	}
	token, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		return err
	}
	body := fmt.Sprintf("Hi %s,\n\nReset your RestoPro password within 30 minutes:\n%s/reset-password?token=%s\n",
		user.FirstName, s.baseURL, token)
	if err := s.mail.EnqueueMail(ctx, user.Email, "Reset your RestoPro password", body); err != nil {
		return fmt.Errorf("enqueue reset mail: %w", err)
	}
	return nil
}

// ResetPassword consumes the token and stores the new password.
func (s *Service) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	if err := s.validator.StructCtx(ctx, in); err != nil {
		return httpx.NewValidationError(err)
	}
	userID, err := s.tokens.Consume(ctx, strings.TrimSpace(in.Token))
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return err
	}
	s.logger.Info("password reset", slog.Int64("user_id", userID))
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func newInviteCode() string {
	return "RP-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}
