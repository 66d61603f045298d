package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/yigit/unihousing/internal/app/models"
)

// Store level errors. Backends translate driver errors into these.
var (
	ErrNotFound    = errors.New("record not found")
	ErrDuplicate   = errors.New("record already exists")
	ErrConstraint  = errors.New("record violates a check constraint")
	ErrReadOnly    = errors.New("write attempted in read-only unit of work")
	ErrStoreClosed = errors.New("store is closed")
)

// Room status filters
const (
	RoomStatusAvailable = "available"
	RoomStatusOccupied  = "occupied"
	RoomStatusStorage   = "storage"
)

// StudentFilter narrows student listings. Zero values mean "any".
type StudentFilter struct {
	Status     models.StudentStatus
	RoomType   models.RoomType
	University models.University
	RoomNumber string
	Housed     *bool
	Search     string
	Limit      int
	Skip       int
}

// RoomFilter narrows room listings.
type RoomFilter struct {
	Status   string
	Floor    *int
	Wing     string
	RoomType models.RoomType
	Kind     models.RoomKind
}

// RequestFilter narrows request listings.
type RequestFilter struct {
	Status      models.RequestStatus
	Type        models.RequestType
	RequesterID string
	StudentID   string
	Limit       int
	Skip        int
}

// UserFilter narrows user listings.
type UserFilter struct {
	Role       models.RoleType
	ActiveOnly bool
}

// LogFilter narrows audit log listings.
type LogFilter struct {
	Action models.LogAction
	UserID string
	Limit  int
	Skip   int
}

// StudentRepository persists students
type StudentRepository interface {
	Create(ctx context.Context, student *models.Student) error
	GetByID(ctx context.Context, id string) (*models.Student, error)
	GetByRegistrationNumber(ctx context.Context, registrationNumber string) (*models.Student, error)
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter StudentFilter) ([]*models.Student, error)
	Count(ctx context.Context, filter StudentFilter) (int, error)
}

// RoomRepository persists rooms
type RoomRepository interface {
	Create(ctx context.Context, room *models.Room) error
	GetByID(ctx context.Context, id string) (*models.Room, error)
	GetByNumber(ctx context.Context, roomNumber string) (*models.Room, error)
	Update(ctx context.Context, room *models.Room) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter RoomFilter) ([]*models.Room, error)
}

// RequestRepository persists requests
type RequestRepository interface {
	Create(ctx context.Context, request *models.Request) error
	GetByID(ctx context.Context, id string) (*models.Request, error)
	Update(ctx context.Context, request *models.Request) error
	List(ctx context.Context, filter RequestFilter) ([]*models.Request, error)
	Count(ctx context.Context, filter RequestFilter) (int, error)
}

// UserRepository persists staff users
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter UserFilter) ([]*models.User, error)
	// CountActiveManagers locks the active manager rows in write units of work.
	CountActiveManagers(ctx context.Context) (int, error)
}

// LogRepository appends and reads audit records
type LogRepository interface {
	Append(ctx context.Context, log *models.Log) error
	List(ctx context.Context, filter LogFilter) ([]*models.Log, error)
}

// NotificationRepository persists per-user notifications
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	GetByID(ctx context.Context, id string) (*models.Notification, error)
	MarkRead(ctx context.Context, id string) error
	ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*models.Notification, error)
}

// Tx is a unit of work. Every repository obtained from it shares the same
// atomicity scope: either everything written through it commits or nothing does.
type Tx interface {
	Students() StudentRepository
	Rooms() RoomRepository
	Requests() RequestRepository
	Users() UserRepository
	Logs() LogRepository
	Notifications() NotificationRepository
}

// TransactionFn is a function that executes within a unit of work
type TransactionFn func(ctx context.Context, tx Tx) error

// Store is the Entity Store
type Store interface {
	// WithTransaction runs fn in a read-write unit of work. Rows read through
	// the unit of work are locked until it ends.
	WithTransaction(ctx context.Context, fn TransactionFn) error
	// View runs fn in a read-only unit of work over a consistent view.
	View(ctx context.Context, fn TransactionFn) error
	Ping(ctx context.Context) error
	Close() error
}

// Snapshot is a consistent copy of every entity
type Snapshot struct {
	TakenAt  time.Time         `json:"takenAt"`
	Students []*models.Student `json:"students"`
	Rooms    []*models.Room    `json:"rooms"`
	Requests []*models.Request `json:"requests"`
	Users    []*models.User    `json:"users"`
	Logs     []*models.Log     `json:"logs"`
}

// TakeSnapshot reads every entity inside one read-only unit of work.
func TakeSnapshot(ctx context.Context, store Store) (*Snapshot, error) {
	snap := &Snapshot{TakenAt: time.Now().UTC()}
	err := store.View(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		if snap.Students, err = tx.Students().List(ctx, StudentFilter{}); err != nil {
			return err
		}
		if snap.Rooms, err = tx.Rooms().List(ctx, RoomFilter{}); err != nil {
			return err
		}
		if snap.Requests, err = tx.Requests().List(ctx, RequestFilter{}); err != nil {
			return err
		}
		if snap.Users, err = tx.Users().List(ctx, UserFilter{}); err != nil {
			return err
		}
		if snap.Logs, err = tx.Logs().List(ctx, LogFilter{}); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}
