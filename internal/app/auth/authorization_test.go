package auth

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/unihousing/internal/app/models"
	"github.com/yigit/unihousing/internal/app/repositories"
	"github.com/yigit/unihousing/internal/pkg/apperrors"
	"github.com/yigit/unihousing/internal/store/memory"
)

func seedUsers(t *testing.T, users ...*models.User) *memory.Store {
	t.Helper()
	store := memory.New()
	require.NoError(t, store.WithTransaction(context.Background(), func(ctx context.Context, tx repositories.Tx) error {
		for _, u := range users {
			if u.CreatedAt.IsZero() {
				u.CreatedAt = time.Now()
			}
			if err := tx.Users().Create(ctx, u); err != nil {
				return err
			}
		}
		return nil
	}))
	return store
}

func TestRequireRole(t *testing.T) {
	store := seedUsers(t,
		&models.User{ID: "m1", Email: "m1@h.test", Role: models.RoleManager, IsActive: true},
		&models.User{ID: "m2", Email: "m2@h.test", Role: models.RoleManager, IsActive: false},
		&models.User{ID: "s1", Email: "s1@h.test", Role: models.RoleSupervisor, IsActive: true},
	)
	guard := NewAuthorizationService(zerolog.Nop())

	tests := []struct {
		name   string
		userID string
		ok     bool
	}{
		{"active manager", "m1", true},
		{"inactive manager", "m2", false},
		{"supervisor", "s1", false},
		{"unknown user", "nobody", false},
		{"empty id", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.View(context.Background(), func(ctx context.Context, tx repositories.Tx) error {
				user, err := guard.RequireRole(ctx, tx, tt.userID, models.RoleManager)
				if tt.ok {
					require.NoError(t, err)
					assert.Equal(t, tt.userID, user.ID)
					return nil
				}
				assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized), "got %v", err)
				return nil
			})
			require.NoError(t, err)
		})
	}
}

func TestGuardLastManager(t *testing.T) {
	guard := NewAuthorizationService(zerolog.Nop())
	ctx := context.Background()

	t.Run("sole manager is protected", func(t *testing.T) {
		store := seedUsers(t,
			&models.User{ID: "m1", Email: "m1@h.test", Role: models.RoleManager, IsActive: true},
			&models.User{ID: "m2", Email: "m2@h.test", Role: models.RoleManager, IsActive: false},
		)
		for _, op := range []Operation{OpDelete, OpDeactivate, OpDemote} {
			err := store.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
				target, err := tx.Users().GetByID(ctx, "m1")
				require.NoError(t, err)
				return guard.GuardLastManager(ctx, tx, target, op)
			})
			assert.True(t, apperrors.HasCode(err, apperrors.CodeLastManager), "op %s: %v", op, err)
		}
	})

	t.Run("second manager allows removal", func(t *testing.T) {
		store := seedUsers(t,
			&models.User{ID: "m1", Email: "m1@h.test", Role: models.RoleManager, IsActive: true},
			&models.User{ID: "m2", Email: "m2@h.test", Role: models.RoleManager, IsActive: true},
		)
		err := store.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
			target, err := tx.Users().GetByID(ctx, "m1")
			require.NoError(t, err)
			return guard.GuardLastManager(ctx, tx, target, OpDelete)
		})
		assert.NoError(t, err)
	})

	t.Run("supervisors are never protected", func(t *testing.T) {
		store := seedUsers(t,
			&models.User{ID: "m1", Email: "m1@h.test", Role: models.RoleManager, IsActive: true},
			&models.User{ID: "s1", Email: "s1@h.test", Role: models.RoleSupervisor, IsActive: true},
		)
		err := store.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
			target, err := tx.Users().GetByID(ctx, "s1")
			require.NoError(t, err)
			return guard.GuardLastManager(ctx, tx, target, OpDelete)
		})
		assert.NoError(t, err)
	})
}

func TestGuardSelf(t *testing.T) {
	guard := NewAuthorizationService(zerolog.Nop())

	err := guard.GuardSelf("u1", "u1", OpDeactivate)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeSelfDeactivation))

	assert.NoError(t, guard.GuardSelf("u1", "u2", OpDeactivate))
	assert.NoError(t, guard.GuardSelf("u1", "u1", OpDelete))
}
