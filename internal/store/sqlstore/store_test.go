package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/yigit/unihousing/internal/app/models"
	"github.com/yigit/unihousing/internal/app/repositories"
)

func newSQLiteStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "housing.db")
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	store := NewSQL(db, SQLite, zerolog.Nop())
	require.NoError(t, store.EnsureSchema(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func strPtr(s string) *string { return &s }

func sampleStudent(id, reg string) *models.Student {
	now := time.Now().UTC()
	return &models.Student{
		ID:                 id,
		RegistrationNumber: reg,
		NationalID:         "N-" + reg,
		FirstName:          "Amal",
		LastName:           "Haddad",
		University:         models.UniversityGovernment,
		RoomType:           models.RoomTypeStandard,
		Status:             models.StudentActive,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func sampleRoom(id, number string, capacity, count int) *models.Room {
	now := time.Now().UTC()
	room := &models.Room{
		ID:           id,
		RoomNumber:   number,
		Floor:        1,
		Wing:         "A",
		Kind:         models.RoomKindResidential,
		Capacity:     capacity,
		RoomType:     models.RoomTypeStandard,
		CurrentCount: count,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if capacity == 0 {
		room.Kind = models.RoomKindStorage
	}
	room.RecomputeOccupied()
	return room
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	store := newSQLiteStore(t)
	assert.NoError(t, store.EnsureSchema(context.Background()))
}

func TestStudentRepository(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	checkIn := time.Date(2024, 9, 1, 10, 30, 0, 0, time.UTC)
	err := store.WithTransaction(ctx, func(ctx context.Context, tx repositories.Tx) error {
		s := sampleStudent("s1", "2024-001")
		s.RoomNumber = strPtr("101")
		s.CheckInDate = &checkIn
		if err := tx.Students().Create(ctx, s); err != nil {
			return err
		}
		return tx.Students().Create(ctx, sampleStudent("s2", "2024-002"))
	})
	require.NoError(t, err)

	t.Run("duplicate registration number", func(t *testing.T) {
		err := store.WithTransaction(ctx, func(ctx context.Context, tx repositories.Tx) error {
			return tx.Students().Create(ctx, sampleStudent("s3", "2024-001"))
		})
		assert.ErrorIs(t, err, repositories.ErrDuplicate)
	})

	t.Run("get", func(t *testing.T) {
		err := store.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
			s, err := tx.Students().GetByRegistrationNumber(ctx, "2024-001")
			require.NoError(t, err)
			assert.Equal(t, "s1", s.ID)
			require.NotNil(t, s.RoomNumber)
			assert.Equal(t, "101", *s.RoomNumber)
			require.NotNil(t, s.CheckInDate)
			assert.True(t, checkIn.Equal(*s.CheckInDate))
			assert.Equal(t, models.UniversityGovernment, s.University)

			_, err = tx.Students().GetByID(ctx, "missing")
			assert.ErrorIs(t, err, repositories.ErrNotFound)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("filters", func(t *testing.T) {
		housed := true
		err := store.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
			list, err := tx.Students().List(ctx, repositories.StudentFilter{Housed: &housed})
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, "s1", list[0].ID)

			list, err = tx.Students().List(ctx, repositories.StudentFilter{Search: "002"})
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, "s2", list[0].ID)

			list, err = tx.Students().List(ctx, repositories.StudentFilter{Skip: 1})
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, "s2", list[0].ID)

			n, err := tx.Students().Count(ctx, repositories.StudentFilter{Status: models.StudentActive})
			require.NoError(t, err)
			assert.Equal(t, 2, n)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("update clears room", func(t *testing.T) {
		err := store.WithTransaction(ctx, func(ctx context.Context, tx repositories.Tx) error {
			s, err := tx.Students().GetByID(ctx, "s1")
			if err != nil {
				return err
			}
			s.RoomNumber = nil
			s.CheckInDate = nil
			return tx.Students().Update(ctx, s)
		})
		require.NoError(t, err)

		err = store.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
			s, err := tx.Students().GetByID(ctx, "s1")
			require.NoError(t, err)
			assert.Nil(t, s.RoomNumber)
			assert.Nil(t, s.CheckInDate)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("delete missing", func(t *testing.T) {
		err := store.WithTransaction(ctx, func(ctx context.Context, tx repositories.Tx) error {
			return tx.Students().Delete(ctx, "missing")
		})
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})
}

func TestRoomRepositoryStatusFilters(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	err := store.WithTransaction(ctx, func(ctx context.Context, tx repositories.Tx) error {
		for _, room := range []*models.Room{
			sampleRoom("r1", "101", 3, 3),
			sampleRoom("r2", "102", 3, 1),
			sampleRoom("r3", "107", 0, 0),
		} {
			if err := tx.Rooms().Create(ctx, room); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	numbers := func(status string) []string {
		var out []string
		err := store.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
			rooms, err := tx.Rooms().List(ctx, repositories.RoomFilter{Status: status})
			for _, r := range rooms {
				out = append(out, r.RoomNumber)
			}
			return err
		})
		require.NoError(t, err)
		return out
	}

	assert.Equal(t, []string{"102"}, numbers(repositories.RoomStatusAvailable))
	assert.Equal(t, []string{"101"}, numbers(repositories.RoomStatusOccupied))
	assert.Equal(t, []string{"107"}, numbers(repositories.RoomStatusStorage))
	assert.Equal(t, []string{"101", "102", "107"}, numbers(""))

	err = store.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
		room, err := tx.Rooms().GetByNumber(ctx, "101")
		require.NoError(t, err)
		assert.True(t, room.IsOccupied)
		assert.Equal(t, models.RoomKindResidential, room.Kind)
		return nil
	})
	require.NoError(t, err)
}

func TestRoomCountCheckConstraint(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	err := store.WithTransaction(ctx, func(ctx context.Context, tx repositories.Tx) error {
		return tx.Rooms().Create(ctx, sampleRoom("r1", "101", 2, 3))
	})
	assert.Error(t, err)
}

func TestRequestPayloadIsStoredTyped(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	payload, err := models.NewRequestPayload(models.RequestClearance, "leaving campus", "s1")
	require.NoError(t, err)

	older := time.Now().UTC().Add(-time.Hour)
	err = store.WithTransaction(ctx, func(ctx context.Context, tx repositories.Tx) error {
		if err := tx.Requests().Create(ctx, &models.Request{
			ID: "q1", Type: models.RequestClearance, Status: models.RequestPending,
			StudentID: strPtr("s1"), Payload: payload, RequesterID: "u1", CreatedAt: older,
		}); err != nil {
			return err
		}
		other, _ := models.NewRequestPayload(models.RequestOther, "broken lamp", "")
		return tx.Requests().Create(ctx, &models.Request{
			ID: "q2", Type: models.RequestOther, Status: models.RequestPending,
			Payload: other, RequesterID: "u1", CreatedAt: time.Now().UTC(),
		})
	})
	require.NoError(t, err)

	err = store.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
		req, err := tx.Requests().GetByID(ctx, "q1")
		require.NoError(t, err)
		require.NotNil(t, req.Payload.Clearance)
		assert.Equal(t, "s1", req.Payload.Clearance.StudentID)
		assert.Equal(t, "leaving campus", req.Description())
		assert.Nil(t, req.ResolvedAt)

		list, err := tx.Requests().List(ctx, repositories.RequestFilter{})
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "q2", list[0].ID, "newest first")

		n, err := tx.Requests().Count(ctx, repositories.RequestFilter{StudentID: "s1"})
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		return nil
	})
	require.NoError(t, err)
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	now := time.Now().UTC()

	err := store.WithTransaction(ctx, func(ctx context.Context, tx repositories.Tx) error {
		users := []*models.User{
			{ID: "u1", Name: "Manager One", Email: "One@Housing.test", PasswordHash: "x", Role: models.RoleManager, IsActive: true, CreatedAt: now, UpdatedAt: now},
			{ID: "u2", Name: "Manager Two", Email: "two@housing.test", PasswordHash: "x", Role: models.RoleManager, IsActive: false, CreatedAt: now, UpdatedAt: now},
			{ID: "u3", Name: "Supervisor", Email: "three@housing.test", PasswordHash: "x", Role: models.RoleSupervisor, IsActive: true, CreatedAt: now, UpdatedAt: now},
		}
		for _, u := range users {
			if err := tx.Users().Create(ctx, u); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	err = store.WithTransaction(ctx, func(ctx context.Context, tx repositories.Tx) error {
		dup := &models.User{ID: "u4", Name: "Dup", Email: "one@housing.test", Role: models.RoleSupervisor, CreatedAt: now, UpdatedAt: now}
		return tx.Users().Create(ctx, dup)
	})
	assert.ErrorIs(t, err, repositories.ErrDuplicate)

	err = store.WithTransaction(ctx, func(ctx context.Context, tx repositories.Tx) error {
		u, err := tx.Users().GetByEmail(ctx, " ONE@housing.test ")
		require.NoError(t, err)
		assert.Equal(t, "u1", u.ID)

		n, err := tx.Users().CountActiveManagers(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		active, err := tx.Users().List(ctx, repositories.UserFilter{ActiveOnly: true})
		require.NoError(t, err)
		assert.Len(t, active, 2)
		return nil
	})
	require.NoError(t, err)
}

func TestLogRepositoryOrdersNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	base := time.Now().UTC()

	err := store.WithTransaction(ctx, func(ctx context.Context, tx repositories.Tx) error {
		for i, action := range []models.LogAction{models.ActionCreateRoom, models.ActionAssignRoom, models.ActionUnassignRoom} {
			if err := tx.Logs().Append(ctx, &models.Log{
				ID:        string(rune('a' + i)),
				Action:    action,
				UserID:    "u1",
				Metadata:  models.LogMetadata{"roomNumber": "101"},
				CreatedAt: base.Add(time.Duration(i) * time.Second),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	err = store.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
		logs, err := tx.Logs().List(ctx, repositories.LogFilter{Limit: 2})
		require.NoError(t, err)
		require.Len(t, logs, 2)
		assert.Equal(t, models.ActionUnassignRoom, logs[0].Action)
		assert.Equal(t, models.ActionAssignRoom, logs[1].Action)
		assert.Equal(t, "101", logs[0].Metadata["roomNumber"])

		logs, err = tx.Logs().List(ctx, repositories.LogFilter{Action: models.ActionCreateRoom})
		require.NoError(t, err)
		require.Len(t, logs, 1)
		return nil
	})
	require.NoError(t, err)
}

func TestNotificationRepository(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	now := time.Now().UTC()

	err := store.WithTransaction(ctx, func(ctx context.Context, tx repositories.Tx) error {
		for i, id := range []string{"n1", "n2"} {
			if err := tx.Notifications().Create(ctx, &models.Notification{
				ID: id, UserID: "u1", Kind: models.NotificationRequestSubmitted,
				Title: "New request", Message: "m", RequestID: strPtr("q1"),
				CreatedAt: now.Add(time.Duration(i) * time.Second),
			}); err != nil {
				return err
			}
		}
		return tx.Notifications().MarkRead(ctx, "n1")
	})
	require.NoError(t, err)

	err = store.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
		unread, err := tx.Notifications().ListByUser(ctx, "u1", true, 0)
		require.NoError(t, err)
		require.Len(t, unread, 1)
		assert.Equal(t, "n2", unread[0].ID)

		all, err := tx.Notifications().ListByUser(ctx, "u1", false, 10)
		require.NoError(t, err)
		assert.Len(t, all, 2)

		none, err := tx.Notifications().ListByUser(ctx, "u2", false, 0)
		require.NoError(t, err)
		assert.NotNil(t, none)
		assert.Empty(t, none)
		return nil
	})
	require.NoError(t, err)

	err = store.WithTransaction(ctx, func(ctx context.Context, tx repositories.Tx) error {
		return tx.Notifications().MarkRead(ctx, "missing")
	})
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestWithTransactionRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	boom := errors.New("boom")

	err := store.WithTransaction(ctx, func(ctx context.Context, tx repositories.Tx) error {
		if err := tx.Rooms().Create(ctx, sampleRoom("r1", "101", 3, 0)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = store.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
		_, err := tx.Rooms().GetByNumber(ctx, "101")
		assert.ErrorIs(t, err, repositories.ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestViewRejectsWrites(t *testing.T) {
	store := newSQLiteStore(t)
	err := store.View(context.Background(), func(ctx context.Context, tx repositories.Tx) error {
		return tx.Rooms().Create(ctx, sampleRoom("r1", "101", 3, 0))
	})
	assert.ErrorIs(t, err, repositories.ErrReadOnly)
}

func TestSnapshotReadsEveryEntity(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	err := store.WithTransaction(ctx, func(ctx context.Context, tx repositories.Tx) error {
		if err := tx.Rooms().Create(ctx, sampleRoom("r1", "101", 3, 0)); err != nil {
			return err
		}
		return tx.Students().Create(ctx, sampleStudent("s1", "2024-001"))
	})
	require.NoError(t, err)

	snap, err := repositories.TakeSnapshot(ctx, store)
	require.NoError(t, err)
	assert.Len(t, snap.Rooms, 1)
	assert.Len(t, snap.Students, 1)
	assert.NotNil(t, snap.Requests)
	assert.NotNil(t, snap.Users)
	assert.NotNil(t, snap.Logs)
}
