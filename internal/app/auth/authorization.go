package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/yigit/unihousing/internal/app/models"
	"github.com/yigit/unihousing/internal/app/repositories"
	"github.com/yigit/unihousing/internal/pkg/apperrors"
)

// Operation is a user mutation subject to last-manager and self checks
type Operation string

const (
	OpDelete     Operation = "DELETE"
	OpDeactivate Operation = "DEACTIVATE"
	OpDemote     Operation = "DEMOTE"
)

// AuthorizationService decides whether privileged operations are permitted.
// Every check reads through the caller's unit of work, so the decision and
// the write it guards commit together.
type AuthorizationService struct {
	logger zerolog.Logger
}

// NewAuthorizationService creates a new AuthorizationService
func NewAuthorizationService(logger zerolog.Logger) *AuthorizationService {
	return &AuthorizationService{logger: logger}
}

// RequireRole returns the user when it exists, is active and holds role.
func (s *AuthorizationService) RequireRole(ctx context.Context, tx repositories.Tx, userID string, role models.RoleType) (*models.User, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.New(apperrors.CodeUnauthorized, "requester identity is required")
	}

	user, err := tx.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.New(apperrors.CodeUnauthorized, "requester not found")
		}
		s.logger.Error().Err(err).Str("userID", userID).Msg("Error loading requester")
		return nil, apperrors.Storage(err)
	}

	if !user.IsActive {
		return nil, apperrors.New(apperrors.CodeUnauthorized, "requester account is inactive")
	}
	if user.Role != role {
		s.logger.Debug().Str("userID", userID).Str("role", string(user.Role)).Str("required", string(role)).
			Msg("Role check failed")
		return nil, apperrors.Newf(apperrors.CodeUnauthorized, "this action requires the %s role", role)
	}
	return user, nil
}

// RequireActive returns the user when it exists and is active, whatever its role.
func (s *AuthorizationService) RequireActive(ctx context.Context, tx repositories.Tx, userID string) (*models.User, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.New(apperrors.CodeUnauthorized, "requester identity is required")
	}
	user, err := tx.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.New(apperrors.CodeUnauthorized, "requester not found")
		}
		return nil, apperrors.Storage(err)
	}
	if !user.IsActive {
		return nil, apperrors.New(apperrors.CodeUnauthorized, "requester account is inactive")
	}
	return user, nil
}

// LockManagers takes the active manager rows before any other user row is
// read. Units of work that may call GuardLastManager start with it so that
// concurrent ones lock users in the same order.
func (s *AuthorizationService) LockManagers(ctx context.Context, tx repositories.Tx) error {
	if _, err := tx.Users().CountActiveManagers(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Error locking active managers")
		return apperrors.Storage(err)
	}
	return nil
}

// GuardLastManager fails with LAST_MANAGER when op would leave no active manager.
func (s *AuthorizationService) GuardLastManager(ctx context.Context, tx repositories.Tx, target *models.User, op Operation) error {
	if !target.IsActiveManager() {
		return nil
	}

	count, err := tx.Users().CountActiveManagers(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error counting active managers")
		return apperrors.Storage(err)
	}
	if count <= 1 {
		s.logger.Warn().Str("targetID", target.ID).Str("op", string(op)).Msg("Refused to remove the last active manager")
		return apperrors.Newf(apperrors.CodeLastManager, "cannot %s the last active manager", strings.ToLower(string(op)))
	}
	return nil
}

// GuardSelf fails with SELF_DEACTIVATION when a user tries to deactivate their own account.
func (s *AuthorizationService) GuardSelf(requesterID, targetID string, op Operation) error {
	if op == OpDeactivate && requesterID == targetID {
		return apperrors.New(apperrors.CodeSelfDeactivation, "you cannot deactivate your own account")
	}
	return nil
}
