package users

import (
	"context"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/restopro/restopro/internal/platform/httpx"
)

// RepositoryPort defines data access methods for staff accounts.
type RepositoryPort interface {
	ListStaff(ctx context.Context, ownerID int64) ([]Member, error)
	SetActive(ctx context.Context, ownerID, staffID int64, active bool) (*Member, error)
}

// Service handles team management rules.
type Service struct {
	repo      RepositoryPort
	validator *validator.Validate
	logger    *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, validator: validator.New(), logger: logger}
}

// ListStaff returns the owner's staff.
func (s *Service) ListStaff(ctx context.Context, ownerID int64) ([]Member, error) {
	return s.repo.ListStaff(ctx, ownerID)
}

// SetActive enables or disables a staff account. Disabled staff can no
// longer sign in; existing sessions expire with their TTL.
func (s *Service) SetActive(ctx context.Context, ownerID, staffID int64, in ActiveInput) (*Member, error) {
	if err := s.validator.StructCtx(ctx, in); err != nil {
		return nil, httpx.NewValidationError(err)
	}
	m, err := s.repo.SetActive(ctx, ownerID, staffID, *in.Active)
	if err != nil {
		return nil, err
	}
	s.logger.Info("staff access changed",
		slog.Int64("owner_id", ownerID),
		slog.Int64("staff_id", staffID),
		slog.Bool("active", m.IsActive))
	return m, nil
}
