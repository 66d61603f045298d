package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/unihousing/internal/app/audit"
	"github.com/yigit/unihousing/internal/app/auth"
	"github.com/yigit/unihousing/internal/app/models"
	"github.com/yigit/unihousing/internal/app/repositories"
	"github.com/yigit/unihousing/internal/db"
	"github.com/yigit/unihousing/internal/pkg/email"
	"github.com/yigit/unihousing/internal/pkg/ids"
	"github.com/yigit/unihousing/internal/pkg/websocket"
	"github.com/yigit/unihousing/internal/store/memory"
	"github.com/yigit/unihousing/internal/store/sqlstore"
)

type recordingPusher struct {
	mu     sync.Mutex
	events []*websocket.Event
}

func (p *recordingPusher) Push(event *websocket.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPusher) For(userID string) []*websocket.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*websocket.Event
	for _, e := range p.events {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	store         repositories.Store
	recorder      *audit.Recorder
	occupancy     *OccupancyService
	requests      *RequestService
	users         *UserService
	students      *StudentService
	notifications *NotificationService
	pusher        *recordingPusher

	managerID    string
	supervisorID string
}

var backends = map[string]func(t *testing.T) repositories.Store{
	"memory": func(t *testing.T) repositories.Store {
		return memory.New()
	},
	"sqlite": func(t *testing.T) repositories.Store {
		conn, err := db.OpenSQLite(filepath.Join(t.TempDir(), "housing.db"))
		require.NoError(t, err)
		store := sqlstore.NewSQL(conn, sqlstore.SQLite, zerolog.Nop())
		require.NoError(t, store.EnsureSchema(context.Background()))
		t.Cleanup(func() { _ = store.Close() })
		return store
	},
}

// forEachStore runs fn against every store backend.
func forEachStore(t *testing.T, fn func(t *testing.T, f *fixture)) {
	for name, open := range backends {
		open := open
		t.Run(name, func(t *testing.T) {
			fn(t, newFixture(t, open(t)))
		})
	}
}

func newFixture(t *testing.T, store repositories.Store) *fixture {
	t.Helper()
	logger := zerolog.Nop()
	guard := auth.NewAuthorizationService(logger)
	recorder := audit.NewRecorder(store, logger)
	pusher := &recordingPusher{}
	notifications := NewNotificationService(store, guard, pusher, email.NewSender(email.SMTPConfig{}, logger), logger)
	occupancy := NewOccupancyService(store, guard, recorder, logger)

	f := &fixture{
		store:         store,
		recorder:      recorder,
		occupancy:     occupancy,
		requests:      NewRequestService(store, guard, occupancy, notifications, recorder, logger),
		users:         NewUserService(store, guard, recorder, logger),
		students:      NewStudentService(store, guard, recorder, logger),
		notifications: notifications,
		pusher:        pusher,
	}
	f.managerID = f.seedUser(t, "Maya Manager", "maya@housing.test", models.RoleManager).ID
	f.supervisorID = f.seedUser(t, "Sami Supervisor", "sami@housing.test", models.RoleSupervisor).ID
	return f
}

func (f *fixture) write(t *testing.T, fn repositories.TransactionFn) {
	t.Helper()
	require.NoError(t, f.store.WithTransaction(context.Background(), fn))
}

func (f *fixture) seedUser(t *testing.T, name, mail string, role models.RoleType) *models.User {
	t.Helper()
	now := time.Now().UTC()
	user := &models.User{
		ID: ids.NewEntityID(), Name: name, Email: mail, Role: role, IsActive: true,
		PasswordHash: "x", CreatedAt: now, UpdatedAt: now,
	}
	f.write(t, func(ctx context.Context, tx repositories.Tx) error {
		return tx.Users().Create(ctx, user)
	})
	return user
}

func (f *fixture) seedRoom(t *testing.T, number string, capacity, count int, roomType models.RoomType) *models.Room {
	t.Helper()
	now := time.Now().UTC()
	room := &models.Room{
		ID: ids.NewEntityID(), RoomNumber: number, Floor: 1, Wing: "A", Kind: models.RoomKindResidential,
		Capacity: capacity, RoomType: roomType, CurrentCount: count, CreatedAt: now, UpdatedAt: now,
	}
	room.RecomputeOccupied()
	f.write(t, func(ctx context.Context, tx repositories.Tx) error {
		return tx.Rooms().Create(ctx, room)
	})
	return room
}

func (f *fixture) seedStudent(t *testing.T, reg string, university models.University, roomType models.RoomType, roomNumber string) *models.Student {
	t.Helper()
	now := time.Now().UTC()
	student := &models.Student{
		ID: ids.NewEntityID(), RegistrationNumber: reg, NationalID: "N" + reg,
		FirstName: "Student", LastName: reg, University: university, RoomType: roomType,
		Status: models.StudentActive, CreatedAt: now, UpdatedAt: now,
	}
	if roomNumber != "" {
		student.RoomNumber = strPtr(roomNumber)
		student.CheckInDate = &now
	}
	f.write(t, func(ctx context.Context, tx repositories.Tx) error {
		return tx.Students().Create(ctx, student)
	})
	return student
}

func (f *fixture) room(t *testing.T, number string) *models.Room {
	t.Helper()
	var room *models.Room
	require.NoError(t, f.store.View(context.Background(), func(ctx context.Context, tx repositories.Tx) error {
		var err error
		room, err = tx.Rooms().GetByNumber(ctx, number)
		return err
	}))
	return room
}

func (f *fixture) student(t *testing.T, id string) *models.Student {
	t.Helper()
	var student *models.Student
	require.NoError(t, f.store.View(context.Background(), func(ctx context.Context, tx repositories.Tx) error {
		var err error
		student, err = tx.Students().GetByID(ctx, id)
		return err
	}))
	return student
}

func (f *fixture) request(t *testing.T, id string) *models.Request {
	t.Helper()
	var request *models.Request
	require.NoError(t, f.store.View(context.Background(), func(ctx context.Context, tx repositories.Tx) error {
		var err error
		request, err = tx.Requests().GetByID(ctx, id)
		return err
	}))
	return request
}

func (f *fixture) logs(t *testing.T, action models.LogAction) []*models.Log {
	t.Helper()
	logs, err := f.recorder.List(context.Background(), repositories.LogFilter{Action: action})
	require.NoError(t, err)
	return logs
}

// assertRoomInvariants checks 0 <= currentCount <= capacity and the derived flag for every room.
func (f *fixture) assertRoomInvariants(t *testing.T) {
	t.Helper()
	require.NoError(t, f.store.View(context.Background(), func(ctx context.Context, tx repositories.Tx) error {
		rooms, err := tx.Rooms().List(ctx, repositories.RoomFilter{})
		if err != nil {
			return err
		}
		for _, r := range rooms {
			assert.GreaterOrEqual(t, r.CurrentCount, 0, "room %s", r.RoomNumber)
			assert.LessOrEqual(t, r.CurrentCount, r.Capacity, "room %s", r.RoomNumber)
			assert.Equal(t, r.CurrentCount >= r.Capacity, r.IsOccupied, "room %s", r.RoomNumber)
		}
		return nil
	}))
}
