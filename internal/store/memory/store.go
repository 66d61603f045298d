// Package memory is an in-process Entity Store. Write units of work run
// against a private copy of the state under an exclusive lock; the copy
// replaces the live state only when the unit of work succeeds.
package memory

import (
	"context"
	"sync"

	"github.com/yigit/unihousing/internal/app/models"
	"github.com/yigit/unihousing/internal/app/repositories"
)

type state struct {
	students      map[string]*models.Student
	rooms         map[string]*models.Room
	requests      map[string]*models.Request
	users         map[string]*models.User
	logs          []*models.Log
	notifications map[string]*models.Notification
}

func newState() *state {
	return &state{
		students:      make(map[string]*models.Student),
		rooms:         make(map[string]*models.Room),
		requests:      make(map[string]*models.Request),
		users:         make(map[string]*models.User),
		notifications: make(map[string]*models.Notification),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.students {
		c.students[k] = cloneStudent(v)
	}
	for k, v := range s.rooms {
		c.rooms[k] = cloneRoom(v)
	}
	for k, v := range s.requests {
		c.requests[k] = cloneRequest(v)
	}
	for k, v := range s.users {
		c.users[k] = cloneUser(v)
	}
	// Logs are append-only; sharing the entries is safe.
	c.logs = append(make([]*models.Log, 0, len(s.logs)+1), s.logs...)
	for k, v := range s.notifications {
		c.notifications[k] = cloneNotification(v)
	}
	return c
}

// Store is the in-memory Entity Store
type Store struct {
	mu     sync.RWMutex
	state  *state
	closed bool
}

// New returns an empty store.
func New() *Store {
	return &Store{state: newState()}
}

// WithTransaction runs fn against a copy of the state and publishes it on success.
func (s *Store) WithTransaction(ctx context.Context, fn repositories.TransactionFn) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return repositories.ErrStoreClosed
	}

	working := s.state.clone()
	if err := fn(ctx, &tx{state: working}); err != nil {
		return err
	}
	s.state = working
	return nil
}

// View runs fn against the live state under a shared lock.
func (s *Store) View(ctx context.Context, fn repositories.TransactionFn) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return repositories.ErrStoreClosed
	}
	return fn(ctx, &tx{state: s.state, readOnly: true})
}

// Ping reports whether the store is open.
func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return repositories.ErrStoreClosed
	}
	return ctx.Err()
}

// Close marks the store closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type tx struct {
	state    *state
	readOnly bool
}

func (t *tx) Students() repositories.StudentRepository { return studentRepo{t} }
func (t *tx) Rooms() repositories.RoomRepository       { return roomRepo{t} }
func (t *tx) Requests() repositories.RequestRepository { return requestRepo{t} }
func (t *tx) Users() repositories.UserRepository       { return userRepo{t} }
func (t *tx) Logs() repositories.LogRepository         { return logRepo{t} }
func (t *tx) Notifications() repositories.NotificationRepository {
	return notificationRepo{t}
}

func (t *tx) writable() error {
	if t.readOnly {
		return repositories.ErrReadOnly
	}
	return nil
}

var _ repositories.Store = (*Store)(nil)
