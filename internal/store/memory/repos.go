package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/yigit/unihousing/internal/app/models"
	"github.com/yigit/unihousing/internal/app/repositories"
)

func cloneStudent(s *models.Student) *models.Student {
	c := *s
	if s.RoomNumber != nil {
		v := *s.RoomNumber
		c.RoomNumber = &v
	}
	if s.CheckInDate != nil {
		v := *s.CheckInDate
		c.CheckInDate = &v
	}
	return &c
}

func cloneRoom(r *models.Room) *models.Room {
	c := *r
	return &c
}

func cloneRequest(r *models.Request) *models.Request {
	c := *r
	c.StudentID = cloneString(r.StudentID)
	c.ResolverID = cloneString(r.ResolverID)
	c.RejectionReason = cloneString(r.RejectionReason)
	if r.ResolvedAt != nil {
		v := *r.ResolvedAt
		c.ResolvedAt = &v
	}
	return &c
}

func cloneUser(u *models.User) *models.User {
	c := *u
	return &c
}

func cloneNotification(n *models.Notification) *models.Notification {
	c := *n
	c.RequestID = cloneString(n.RequestID)
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func page[T any](items []T, skip, limit int) []T {
	if items == nil {
		return []T{}
	}
	if skip > 0 {
		if skip >= len(items) {
			return []T{}
		}
		items = items[skip:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// roomValid mirrors the SQL CHECKs on rooms.
func roomValid(r *models.Room) bool {
	return r.Capacity >= 0 && r.CurrentCount >= 0 && r.CurrentCount <= r.Capacity
}

// --- students ---

type studentRepo struct{ t *tx }

func (r studentRepo) Create(_ context.Context, s *models.Student) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if !s.TierConsistent() {
		return repositories.ErrConstraint
	}
	if _, ok := r.t.state.students[s.ID]; ok {
		return repositories.ErrDuplicate
	}
	for _, existing := range r.t.state.students {
		if existing.RegistrationNumber == s.RegistrationNumber {
			return repositories.ErrDuplicate
		}
	}
	r.t.state.students[s.ID] = cloneStudent(s)
	return nil
}

func (r studentRepo) GetByID(_ context.Context, id string) (*models.Student, error) {
	s, ok := r.t.state.students[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return cloneStudent(s), nil
}

func (r studentRepo) GetByRegistrationNumber(_ context.Context, reg string) (*models.Student, error) {
	for _, s := range r.t.state.students {
		if s.RegistrationNumber == reg {
			return cloneStudent(s), nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r studentRepo) Update(_ context.Context, s *models.Student) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if !s.TierConsistent() {
		return repositories.ErrConstraint
	}
	if _, ok := r.t.state.students[s.ID]; !ok {
		return repositories.ErrNotFound
	}
	for id, existing := range r.t.state.students {
		if id != s.ID && existing.RegistrationNumber == s.RegistrationNumber {
			return repositories.ErrDuplicate
		}
	}
	r.t.state.students[s.ID] = cloneStudent(s)
	return nil
}

func (r studentRepo) Delete(_ context.Context, id string) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if _, ok := r.t.state.students[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.t.state.students, id)
	return nil
}

func (r studentRepo) matching(f repositories.StudentFilter) []*models.Student {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	var out []*models.Student
	for _, s := range r.t.state.students {
		if f.Status != "" && s.Status != f.Status {
			continue
		}
		if f.RoomType != "" && s.RoomType != f.RoomType {
			continue
		}
		if f.University != "" && s.University != f.University {
			continue
		}
		if f.RoomNumber != "" && (s.RoomNumber == nil || *s.RoomNumber != f.RoomNumber) {
			continue
		}
		if f.Housed != nil && s.IsHoused() != *f.Housed {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(s.FirstName), search) &&
			!strings.Contains(strings.ToLower(s.LastName), search) &&
			!strings.Contains(strings.ToLower(s.RegistrationNumber), search) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func (r studentRepo) List(_ context.Context, f repositories.StudentFilter) ([]*models.Student, error) {
	matched := r.matching(f)
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].RegistrationNumber < matched[j].RegistrationNumber
	})
	matched = page(matched, f.Skip, f.Limit)
	out := make([]*models.Student, 0, len(matched))
	for _, s := range matched {
		out = append(out, cloneStudent(s))
	}
	return out, nil
}

func (r studentRepo) Count(_ context.Context, f repositories.StudentFilter) (int, error) {
	return len(r.matching(f)), nil
}

// --- rooms ---

type roomRepo struct{ t *tx }

func (r roomRepo) Create(_ context.Context, room *models.Room) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if !roomValid(room) {
		return repositories.ErrConstraint
	}
	if _, ok := r.t.state.rooms[room.ID]; ok {
		return repositories.ErrDuplicate
	}
	for _, existing := range r.t.state.rooms {
		if existing.RoomNumber == room.RoomNumber {
			return repositories.ErrDuplicate
		}
	}
	r.t.state.rooms[room.ID] = cloneRoom(room)
	return nil
}

func (r roomRepo) GetByID(_ context.Context, id string) (*models.Room, error) {
	room, ok := r.t.state.rooms[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return cloneRoom(room), nil
}

func (r roomRepo) GetByNumber(_ context.Context, number string) (*models.Room, error) {
	for _, room := range r.t.state.rooms {
		if room.RoomNumber == number {
			return cloneRoom(room), nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r roomRepo) Update(_ context.Context, room *models.Room) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if !roomValid(room) {
		return repositories.ErrConstraint
	}
	if _, ok := r.t.state.rooms[room.ID]; !ok {
		return repositories.ErrNotFound
	}
	r.t.state.rooms[room.ID] = cloneRoom(room)
	return nil
}

func (r roomRepo) Delete(_ context.Context, id string) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if _, ok := r.t.state.rooms[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.t.state.rooms, id)
	return nil
}

func (r roomRepo) List(_ context.Context, f repositories.RoomFilter) ([]*models.Room, error) {
	var out []*models.Room
	for _, room := range r.t.state.rooms {
		switch f.Status {
		case repositories.RoomStatusAvailable:
			if room.IsStorage() || room.CurrentCount >= room.Capacity {
				continue
			}
		case repositories.RoomStatusOccupied:
			if room.IsStorage() || room.CurrentCount < room.Capacity {
				continue
			}
		case repositories.RoomStatusStorage:
			if !room.IsStorage() {
				continue
			}
		}
		if f.Floor != nil && room.Floor != *f.Floor {
			continue
		}
		if f.Wing != "" && !strings.EqualFold(room.Wing, f.Wing) {
			continue
		}
		if f.RoomType != "" && room.RoomType != f.RoomType {
			continue
		}
		if f.Kind != "" && room.Kind != f.Kind {
			continue
		}
		out = append(out, cloneRoom(room))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomNumber < out[j].RoomNumber })
	return page(out, 0, 0), nil
}

// --- requests ---

type requestRepo struct{ t *tx }

func (r requestRepo) Create(_ context.Context, req *models.Request) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if _, ok := r.t.state.requests[req.ID]; ok {
		return repositories.ErrDuplicate
	}
	r.t.state.requests[req.ID] = cloneRequest(req)
	return nil
}

func (r requestRepo) GetByID(_ context.Context, id string) (*models.Request, error) {
	req, ok := r.t.state.requests[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return cloneRequest(req), nil
}

func (r requestRepo) Update(_ context.Context, req *models.Request) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if _, ok := r.t.state.requests[req.ID]; !ok {
		return repositories.ErrNotFound
	}
	r.t.state.requests[req.ID] = cloneRequest(req)
	return nil
}

func (r requestRepo) matching(f repositories.RequestFilter) []*models.Request {
	var out []*models.Request
	for _, req := range r.t.state.requests {
		if f.Status != "" && req.Status != f.Status {
			continue
		}
		if f.Type != "" && req.Type != f.Type {
			continue
		}
		if f.RequesterID != "" && req.RequesterID != f.RequesterID {
			continue
		}
		if f.StudentID != "" && (req.StudentID == nil || *req.StudentID != f.StudentID) {
			continue
		}
		out = append(out, req)
	}
	return out
}

func (r requestRepo) List(_ context.Context, f repositories.RequestFilter) ([]*models.Request, error) {
	matched := r.matching(f)
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	matched = page(matched, f.Skip, f.Limit)
	out := make([]*models.Request, 0, len(matched))
	for _, req := range matched {
		out = append(out, cloneRequest(req))
	}
	return out, nil
}

func (r requestRepo) Count(_ context.Context, f repositories.RequestFilter) (int, error) {
	return len(r.matching(f)), nil
}

// --- users ---

type userRepo struct{ t *tx }

func (r userRepo) Create(_ context.Context, u *models.User) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if _, ok := r.t.state.users[u.ID]; ok {
		return repositories.ErrDuplicate
	}
	for _, existing := range r.t.state.users {
		if models.NormalizeEmail(existing.Email) == models.NormalizeEmail(u.Email) {
			return repositories.ErrDuplicate
		}
	}
	r.t.state.users[u.ID] = cloneUser(u)
	return nil
}

func (r userRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	u, ok := r.t.state.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	want := models.NormalizeEmail(email)
	for _, u := range r.t.state.users {
		if models.NormalizeEmail(u.Email) == want {
			return cloneUser(u), nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r userRepo) Update(_ context.Context, u *models.User) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if _, ok := r.t.state.users[u.ID]; !ok {
		return repositories.ErrNotFound
	}
	for id, existing := range r.t.state.users {
		if id != u.ID && models.NormalizeEmail(existing.Email) == models.NormalizeEmail(u.Email) {
			return repositories.ErrDuplicate
		}
	}
	r.t.state.users[u.ID] = cloneUser(u)
	return nil
}

func (r userRepo) Delete(_ context.Context, id string) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if _, ok := r.t.state.users[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.t.state.users, id)
	return nil
}

func (r userRepo) List(_ context.Context, f repositories.UserFilter) ([]*models.User, error) {
	var out []*models.User
	for _, u := range r.t.state.users {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		if f.ActiveOnly && !u.IsActive {
			continue
		}
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Email < out[j].Email
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return page(out, 0, 0), nil
}

func (r userRepo) CountActiveManagers(_ context.Context) (int, error) {
	n := 0
	for _, u := range r.t.state.users {
		if u.IsActiveManager() {
			n++
		}
	}
	return n, nil
}

// --- logs ---

type logRepo struct{ t *tx }

func (r logRepo) Append(_ context.Context, l *models.Log) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	c := *l
	r.t.state.logs = append(r.t.state.logs, &c)
	return nil
}

func (r logRepo) List(_ context.Context, f repositories.LogFilter) ([]*models.Log, error) {
	var out []*models.Log
	// Newest first; logs are stored in append order.
	for i := len(r.t.state.logs) - 1; i >= 0; i-- {
		l := r.t.state.logs[i]
		if f.Action != "" && l.Action != f.Action {
			continue
		}
		if f.UserID != "" && l.UserID != f.UserID {
			continue
		}
		c := *l
		out = append(out, &c)
	}
	return page(out, f.Skip, f.Limit), nil
}

// --- notifications ---

type notificationRepo struct{ t *tx }

func (r notificationRepo) Create(_ context.Context, n *models.Notification) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if _, ok := r.t.state.notifications[n.ID]; ok {
		return repositories.ErrDuplicate
	}
	r.t.state.notifications[n.ID] = cloneNotification(n)
	return nil
}

func (r notificationRepo) GetByID(_ context.Context, id string) (*models.Notification, error) {
	n, ok := r.t.state.notifications[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return cloneNotification(n), nil
}

func (r notificationRepo) MarkRead(_ context.Context, id string) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	n, ok := r.t.state.notifications[id]
	if !ok {
		return repositories.ErrNotFound
	}
	n.IsRead = true
	return nil
}

func (r notificationRepo) ListByUser(_ context.Context, userID string, unreadOnly bool, limit int) ([]*models.Notification, error) {
	var out []*models.Notification
	for _, n := range r.t.state.notifications {
		if n.UserID != userID || (unreadOnly && n.IsRead) {
			continue
		}
		out = append(out, cloneNotification(n))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return page(out, 0, limit), nil
}
