package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/yigit/unihousing/internal/app/audit"
	"github.com/yigit/unihousing/internal/app/auth"
	"github.com/yigit/unihousing/internal/app/models"
	"github.com/yigit/unihousing/internal/app/repositories"
	"github.com/yigit/unihousing/internal/pkg/apperrors"
	pkgauth "github.com/yigit/unihousing/internal/pkg/auth"
	"github.com/yigit/unihousing/internal/pkg/ids"
	"github.com/yigit/unihousing/internal/pkg/tracing"
	"github.com/yigit/unihousing/internal/pkg/validation"
)

// CreateUserInput describes a new staff account
type CreateUserInput struct {
	Name  string
	Email string
	Role  models.RoleType
}

// UpdateUserInput changes a staff account. Nil fields are left alone.
type UpdateUserInput struct {
	Name     *string
	Email    *string
	Role     *models.RoleType
	IsActive *bool
}

// CreatedUser carries the one-time temporary password of a new or reset account
type CreatedUser struct {
	User         *models.User `json:"user"`
	TempPassword string       `json:"tempPassword"`
}

// UserService manages staff accounts
type UserService struct {
	store    repositories.Store
	guard    *auth.AuthorizationService
	recorder *audit.Recorder
	logger   zerolog.Logger
	now      Clock
}

// NewUserService creates a new UserService
func NewUserService(store repositories.Store, guard *auth.AuthorizationService, recorder *audit.Recorder, logger zerolog.Logger) *UserService {
	return &UserService{
		store:    store,
		guard:    guard,
		recorder: recorder,
		logger:   logger.With().Str("service", "user").Logger(),
		now:      utcNow,
	}
}

func validEmail(email string) bool {
	return validation.IsEmail(email)
}

// Create adds a staff account with a generated temporary password.
func (s *UserService) Create(ctx context.Context, requesterID string, input CreateUserInput) (created *CreatedUser, err error) {
	ctx, span := tracing.Start(ctx, "user.Create")
	defer func() { finish(span, "create_user", err) }()

	name := strings.TrimSpace(input.Name)
	email := models.NormalizeEmail(input.Email)
	if name == "" {
		return nil, invalid("name is required")
	}
	if !validEmail(email) {
		return nil, invalid("a valid email is required")
	}
	role := models.RoleType(strings.ToUpper(string(input.Role)))
	if !role.Valid() {
		return nil, apperrors.Newf(apperrors.CodeInvalidInput, "unknown role %q", input.Role)
	}

	plain, hash, err := pkgauth.NewTempPassword()
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate temporary password")
		return nil, apperrors.Storage(err)
	}

	err = s.store.WithTransaction(ctx, func(ctx context.Context, tx repositories.Tx) error {
		if _, err := s.guard.RequireRole(ctx, tx, requesterID, models.RoleManager); err != nil {
			return err
		}
		if _, err := tx.Users().GetByEmail(ctx, email); err == nil {
			return apperrors.New(apperrors.CodeEmailExists, "a user with this email already exists")
		} else if !errors.Is(err, repositories.ErrNotFound) {
			return apperrors.Storage(err)
		}

		now := s.now()
		user := &models.User{
			ID:                 ids.NewEntityID(),
			Name:               name,
			Email:              email,
			PasswordHash:       hash,
			Role:               role,
			IsActive:           true,
			MustChangePassword: true,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if err := tx.Users().Create(ctx, user); err != nil {
			return writeErr(err, apperrors.CodeEmailExists, "a user with this email already exists")
		}
		created = &CreatedUser{User: user, TempPassword: plain}
		return nil
	})
	if err != nil {
		return nil, coded(err)
	}

	s.recorder.Record(ctx, audit.Entry{
		Action:      models.ActionCreateUser,
		ActorID:     requesterID,
		EntityType:  "user",
		EntityID:    created.User.ID,
		Description: fmt.Sprintf("Created %s account for %s", strings.ToLower(string(role)), created.User.Email),
		Metadata:    models.LogMetadata{"email": created.User.Email, "role": string(role)},
	})
	return created, nil
}

// Update changes a staff account, protecting the last active manager.
func (s *UserService) Update(ctx context.Context, requesterID, targetID string, input UpdateUserInput) (user *models.User, err error) {
	ctx, span := tracing.Start(ctx, "user.Update")
	defer func() { finish(span, "update_user", err) }()

	changes := models.LogMetadata{}
	err = s.store.WithTransaction(ctx, func(ctx context.Context, tx repositories.Tx) error {
		if err := s.guard.LockManagers(ctx, tx); err != nil {
			return err
		}
		if _, err := s.guard.RequireRole(ctx, tx, requesterID, models.RoleManager); err != nil {
			return err
		}
		var err error
		user, err = tx.Users().GetByID(ctx, targetID)
		if err != nil {
			return lookupErr(err, "user")
		}

		if input.IsActive != nil && !*input.IsActive && user.IsActive {
			if err := s.guard.GuardSelf(requesterID, user.ID, auth.OpDeactivate); err != nil {
				return err
			}
			if err := s.guard.GuardLastManager(ctx, tx, user, auth.OpDeactivate); err != nil {
				return err
			}
		}
		if input.Role != nil {
			role := models.RoleType(strings.ToUpper(string(*input.Role)))
			if !role.Valid() {
				return apperrors.Newf(apperrors.CodeInvalidInput, "unknown role %q", *input.Role)
			}
			if role != user.Role {
				if user.Role == models.RoleManager {
					if err := s.guard.GuardLastManager(ctx, tx, user, auth.OpDemote); err != nil {
						return err
					}
				}
				changes["role"] = string(role)
				user.Role = role
			}
		}
		if input.IsActive != nil && *input.IsActive != user.IsActive {
			changes["isActive"] = *input.IsActive
			user.IsActive = *input.IsActive
		}
		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				return invalid("name must not be empty")
			}
			if name != user.Name {
				changes["name"] = name
				user.Name = name
			}
		}
		if input.Email != nil {
			email := models.NormalizeEmail(*input.Email)
			if !validEmail(email) {
				return invalid("a valid email is required")
			}
			if email != user.Email {
				existing, err := tx.Users().GetByEmail(ctx, email)
				if err == nil && existing.ID != user.ID {
					return apperrors.New(apperrors.CodeEmailExists, "a user with this email already exists")
				}
				if err != nil && !errors.Is(err, repositories.ErrNotFound) {
					return apperrors.Storage(err)
				}
				changes["email"] = email
				user.Email = email
			}
		}

		user.UpdatedAt = s.now()
		if err := tx.Users().Update(ctx, user); err != nil {
			return writeErr(err, apperrors.CodeEmailExists, "a user with this email already exists")
		}
		return nil
	})
	if err != nil {
		return nil, coded(err)
	}

	s.recorder.Record(ctx, audit.Entry{
		Action:      models.ActionUpdateUser,
		ActorID:     requesterID,
		EntityType:  "user",
		EntityID:    user.ID,
		Description: fmt.Sprintf("Updated user %s", user.Email),
		Metadata:    changes,
	})
	return user, nil
}

// Delete removes a staff account. Users may delete themselves unless they
// are the last active manager.
func (s *UserService) Delete(ctx context.Context, requesterID, targetID string) (err error) {
	ctx, span := tracing.Start(ctx, "user.Delete")
	defer func() { finish(span, "delete_user", err) }()

	var target *models.User
	err = s.store.WithTransaction(ctx, func(ctx context.Context, tx repositories.Tx) error {
		if err := s.guard.LockManagers(ctx, tx); err != nil {
			return err
		}
		if _, err := s.guard.RequireRole(ctx, tx, requesterID, models.RoleManager); err != nil {
			return err
		}
		var err error
		target, err = tx.Users().GetByID(ctx, targetID)
		if err != nil {
			return lookupErr(err, "user")
		}
		if err := s.guard.GuardLastManager(ctx, tx, target, auth.OpDelete); err != nil {
			return err
		}
		if err := tx.Users().Delete(ctx, target.ID); err != nil {
			return lookupErr(err, "user")
		}
		return nil
	})
	if err != nil {
		return coded(err)
	}

	s.recorder.Record(ctx, audit.Entry{
		Action:      models.ActionDeleteUser,
		ActorID:     requesterID,
		EntityType:  "user",
		EntityID:    target.ID,
		Description: fmt.Sprintf("Deleted user %s", target.Email),
		Metadata:    models.LogMetadata{"email": target.Email, "role": string(target.Role)},
	})
	return nil
}

// List returns every staff account. Password hashes never leave the model.
func (s *UserService) List(ctx context.Context, requesterID string, filter repositories.UserFilter) ([]*models.User, error) {
	var users []*models.User
	err := s.store.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
		if _, err := s.guard.RequireRole(ctx, tx, requesterID, models.RoleManager); err != nil {
			return err
		}
		var err error
		users, err = tx.Users().List(ctx, filter)
		return err
	})
	if err != nil {
		return nil, coded(err)
	}
	return users, nil
}

// ResetPassword replaces the user's password with a new temporary one.
func (s *UserService) ResetPassword(ctx context.Context, requesterID, targetID string) (reset *CreatedUser, err error) {
	ctx, span := tracing.Start(ctx, "user.ResetPassword")
	defer func() { finish(span, "reset_password", err) }()

	plain, hash, err := pkgauth.NewTempPassword()
	if err != nil {
		return nil, apperrors.Storage(err)
	}

	err = s.store.WithTransaction(ctx, func(ctx context.Context, tx repositories.Tx) error {
		if _, err := s.guard.RequireRole(ctx, tx, requesterID, models.RoleManager); err != nil {
			return err
		}
		user, err := tx.Users().GetByID(ctx, targetID)
		if err != nil {
			return lookupErr(err, "user")
		}
		user.PasswordHash = hash
		user.MustChangePassword = true
		user.UpdatedAt = s.now()
		if err := tx.Users().Update(ctx, user); err != nil {
			return writeErr(err, apperrors.CodeStorageError, "user update conflict")
		}
		reset = &CreatedUser{User: user, TempPassword: plain}
		return nil
	})
	if err != nil {
		return nil, coded(err)
	}

	s.recorder.Record(ctx, audit.Entry{
		Action:      models.ActionResetPassword,
		ActorID:     requesterID,
		EntityType:  "user",
		EntityID:    reset.User.ID,
		Description: fmt.Sprintf("Reset password of %s", reset.User.Email),
		Metadata:    models.LogMetadata{"email": reset.User.Email},
	})
	return reset, nil
}

// BootstrapManager creates the first manager when no active manager exists.
// It returns nil when nothing had to be created.
func (s *UserService) BootstrapManager(ctx context.Context, name, email string) (*CreatedUser, error) {
	email = models.NormalizeEmail(email)
	if !validEmail(email) {
		return nil, invalid("a valid bootstrap manager email is required")
	}
	plain, hash, err := pkgauth.NewTempPassword()
	if err != nil {
		return nil, apperrors.Storage(err)
	}

	var created *CreatedUser
	err = s.store.WithTransaction(ctx, func(ctx context.Context, tx repositories.Tx) error {
		count, err := tx.Users().CountActiveManagers(ctx)
		if err != nil {
			return apperrors.Storage(err)
		}
		if count > 0 {
			return nil
		}
		now := s.now()
		user := &models.User{
			ID:                 ids.NewEntityID(),
			Name:               strings.TrimSpace(name),
			Email:              email,
			PasswordHash:       hash,
			Role:               models.RoleManager,
			IsActive:           true,
			MustChangePassword: true,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if user.Name == "" {
			user.Name = "Housing Manager"
		}
		if err := tx.Users().Create(ctx, user); err != nil {
			return writeErr(err, apperrors.CodeEmailExists, "bootstrap manager email is taken by an inactive account")
		}
		created = &CreatedUser{User: user, TempPassword: plain}
		return nil
	})
	if err != nil {
		return nil, coded(err)
	}
	if created != nil {
		s.recorder.Record(ctx, audit.Entry{
			Action:      models.ActionCreateUser,
			ActorID:     systemActor,
			EntityType:  "user",
			EntityID:    created.User.ID,
			Description: fmt.Sprintf("Created bootstrap manager %s", created.User.Email),
			Metadata:    models.LogMetadata{"email": created.User.Email, "role": string(models.RoleManager)},
		})
	}
	return created, nil
}
