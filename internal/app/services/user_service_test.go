package services

import (
	"context"
	"regexp"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/unihousing/internal/app/auth"
	"github.com/yigit/unihousing/internal/app/models"
	"github.com/yigit/unihousing/internal/app/repositories"
	"github.com/yigit/unihousing/internal/pkg/apperrors"
	pkgauth "github.com/yigit/unihousing/internal/pkg/auth"
)

func init() {
	// Keep password hashing fast in tests.
	pkgauth.BcryptCost = 4
}

var tempPasswordPattern = regexp.MustCompile(`^[A-Z0-9]{8}$`)

func TestCreateUser(t *testing.T) {
	forEachStore(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()

		created, err := f.users.Create(ctx, f.managerID, CreateUserInput{Name: "Nora", Email: "Nora@Housing.test", Role: models.RoleSupervisor})
		require.NoError(t, err)
		assert.Regexp(t, tempPasswordPattern, created.TempPassword)
		assert.Equal(t, "nora@housing.test", created.User.Email)
		assert.True(t, created.User.MustChangePassword)
		assert.True(t, pkgauth.CheckPassword(created.User.PasswordHash, created.TempPassword))

		_, err = f.users.Create(ctx, f.managerID, CreateUserInput{Name: "Other", Email: " nora@housing.TEST", Role: models.RoleManager})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeEmailExists), "got %v", err)

		_, err = f.users.Create(ctx, f.supervisorID, CreateUserInput{Name: "Eve", Email: "eve@housing.test", Role: models.RoleManager})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized), "got %v", err)

		_, err = f.users.Create(ctx, f.managerID, CreateUserInput{Name: "Bad", Email: "not-an-email", Role: models.RoleManager})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput), "got %v", err)

		assert.Len(t, f.logs(t, models.ActionCreateUser), 1)
	})
}

func TestDeleteManagersDownToLast(t *testing.T) {
	forEachStore(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		managerB := f.seedUser(t, "Bea Manager", "bea@housing.test", models.RoleManager)

		require.NoError(t, f.users.Delete(ctx, managerB.ID, f.managerID))

		err := f.users.Delete(ctx, managerB.ID, managerB.ID)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeLastManager), "got %v", err)

		users, err := f.users.List(ctx, managerB.ID, repositories.UserFilter{Role: models.RoleManager, ActiveOnly: true})
		require.NoError(t, err)
		assert.Len(t, users, 1)
	})
}

func TestUpdateUserGuards(t *testing.T) {
	forEachStore(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		no := false
		supervisor := models.RoleSupervisor

		_, err := f.users.Update(ctx, f.managerID, f.managerID, UpdateUserInput{IsActive: &no})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeSelfDeactivation), "got %v", err)

		_, err = f.users.Update(ctx, f.managerID, f.managerID, UpdateUserInput{Role: &supervisor})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeLastManager), "got %v", err)

		other := f.seedUser(t, "Lin Manager", "lin@housing.test", models.RoleManager)
		_, err = f.users.Update(ctx, f.managerID, other.ID, UpdateUserInput{IsActive: &no})
		require.NoError(t, err)

		_, err = f.users.Update(ctx, f.managerID, f.managerID, UpdateUserInput{Role: &supervisor})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeLastManager), "inactive managers do not count: %v", err)

		_, err = f.users.Update(ctx, other.ID, other.ID, UpdateUserInput{Name: strPtr("Lin")})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized), "inactive requester: %v", err)

		taken := "sami@housing.test"
		_, err = f.users.Update(ctx, f.managerID, other.ID, UpdateUserInput{Email: &taken})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeEmailExists), "got %v", err)

		renamed := "Lin M."
		updated, err := f.users.Update(ctx, f.managerID, other.ID, UpdateUserInput{Name: &renamed})
		require.NoError(t, err)
		assert.Equal(t, "Lin M.", updated.Name)
		assert.False(t, updated.IsActive)

		require.NoError(t, f.store.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
			n, err := tx.Users().CountActiveManagers(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, n)
			return nil
		}))
	})
}

func TestListUsersRequiresManager(t *testing.T) {
	forEachStore(t, func(t *testing.T, f *fixture) {
		_, err := f.users.List(context.Background(), f.supervisorID, repositories.UserFilter{})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized), "got %v", err)

		users, err := f.users.List(context.Background(), f.managerID, repositories.UserFilter{})
		require.NoError(t, err)
		assert.Len(t, users, 2)
	})
}

func TestResetPassword(t *testing.T) {
	forEachStore(t, func(t *testing.T, f *fixture) {
		reset, err := f.users.ResetPassword(context.Background(), f.managerID, f.supervisorID)
		require.NoError(t, err)
		assert.Regexp(t, tempPasswordPattern, reset.TempPassword)
		assert.True(t, reset.User.MustChangePassword)
		assert.True(t, pkgauth.CheckPassword(reset.User.PasswordHash, reset.TempPassword))
		assert.Len(t, f.logs(t, models.ActionResetPassword), 1)
	})
}

func TestBootstrapManagerOnlyWhenNoneActive(t *testing.T) {
	forEachStore(t, func(t *testing.T, f *fixture) {
		created, err := f.users.BootstrapManager(context.Background(), "Root", "root@housing.test")
		require.NoError(t, err)
		assert.Nil(t, created, "an active manager already exists")
	})
}

// userCallLog records the order of user repository calls made inside write
// units of work.
type userCallLog struct {
	repositories.Store
	mu    sync.Mutex
	calls []string
}

func (s *userCallLog) WithTransaction(ctx context.Context, fn repositories.TransactionFn) error {
	return s.Store.WithTransaction(ctx, func(ctx context.Context, tx repositories.Tx) error {
		return fn(ctx, loggedTx{Tx: tx, log: s})
	})
}

func (s *userCallLog) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *userCallLog) reset() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	calls := s.calls
	s.calls = nil
	return calls
}

type loggedTx struct {
	repositories.Tx
	log *userCallLog
}

func (t loggedTx) Users() repositories.UserRepository {
	return loggedUsers{UserRepository: t.Tx.Users(), log: t.log}
}

type loggedUsers struct {
	repositories.UserRepository
	log *userCallLog
}

func (u loggedUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	u.log.record("GetByID")
	return u.UserRepository.GetByID(ctx, id)
}

func (u loggedUsers) CountActiveManagers(ctx context.Context) (int, error) {
	u.log.record("CountActiveManagers")
	return u.UserRepository.CountActiveManagers(ctx)
}

func TestUserMutationsLockManagersFirst(t *testing.T) {
	forEachStore(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		other := f.seedUser(t, "Second Manager", "second@housing.test", models.RoleManager)

		logged := &userCallLog{Store: f.store}
		logger := zerolog.Nop()
		users := NewUserService(logged, auth.NewAuthorizationService(logger), f.recorder, logger)

		name := "Renamed"
		_, err := users.Update(ctx, f.managerID, other.ID, UpdateUserInput{Name: &name})
		require.NoError(t, err)
		calls := logged.reset()
		require.NotEmpty(t, calls)
		assert.Equal(t, "CountActiveManagers", calls[0], "update calls: %v", calls)

		require.NoError(t, users.Delete(ctx, f.managerID, other.ID))
		calls = logged.reset()
		require.NotEmpty(t, calls)
		assert.Equal(t, "CountActiveManagers", calls[0], "delete calls: %v", calls)
	})
}
