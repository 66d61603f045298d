package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/yigit/unihousing/internal/app/audit"
	"github.com/yigit/unihousing/internal/app/auth"
	"github.com/yigit/unihousing/internal/app/models"
	"github.com/yigit/unihousing/internal/app/repositories"
	"github.com/yigit/unihousing/internal/pkg/apperrors"
	"github.com/yigit/unihousing/internal/pkg/ids"
	"github.com/yigit/unihousing/internal/pkg/metrics"
	"github.com/yigit/unihousing/internal/pkg/tracing"
)

// Assignment is the state of a student and a room after an occupancy change
type Assignment struct {
	Student *models.Student `json:"student"`
	Room    *models.Room    `json:"room"`
}

// CreateRoomInput describes a new room
type CreateRoomInput struct {
	RoomNumber string
	Floor      int
	Wing       string
	Kind       models.RoomKind
	Capacity   int
	RoomType   models.RoomType
}

// UpdateRoomInput changes room attributes. Nil fields are left alone.
type UpdateRoomInput struct {
	Capacity *int
	Floor    *int
	Wing     *string
	RoomType *models.RoomType
}

// DashboardStats summarizes occupancy
type DashboardStats struct {
	TotalStudents   int `json:"totalStudents"`
	ActiveStudents  int `json:"activeStudents"`
	TotalRooms      int `json:"totalRooms"`
	OccupiedRooms   int `json:"occupiedRooms"`
	AvailableRooms  int `json:"availableRooms"`
	StorageRooms    int `json:"storageRooms"`
	TotalBeds       int `json:"totalBeds"`
	UsedBeds        int `json:"usedBeds"`
	PendingRequests int `json:"pendingRequests"`
}

// BuildingLayout drives SeedBuilding
type BuildingLayout struct {
	Floors        int
	PremiumFloors []int
	BedsPerRoom   int
}

// Building layout: 26 slots per floor, wings A-D, the last slot of every wing is storage.
const slotsPerFloor = 26

var wingLastSlot = []struct {
	wing string
	last int
}{{"A", 7}, {"B", 13}, {"C", 20}, {"D", 26}}

// OccupancyService owns room capacity and student room assignment
type OccupancyService struct {
	store    repositories.Store
	guard    *auth.AuthorizationService
	recorder *audit.Recorder
	logger   zerolog.Logger
	now      Clock
}

// NewOccupancyService creates a new OccupancyService
func NewOccupancyService(store repositories.Store, guard *auth.AuthorizationService, recorder *audit.Recorder, logger zerolog.Logger) *OccupancyService {
	return &OccupancyService{
		store:    store,
		guard:    guard,
		recorder: recorder,
		logger:   logger.With().Str("service", "occupancy").Logger(),
		now:      utcNow,
	}
}

// loadRoom resolves a room by id, falling back to its room number.
func loadRoom(ctx context.Context, tx repositories.Tx, ref string) (*models.Room, error) {
	if blank(ref) {
		return nil, invalid("roomId is required")
	}
	room, err := tx.Rooms().GetByID(ctx, ref)
	if errors.Is(err, repositories.ErrNotFound) {
		room, err = tx.Rooms().GetByNumber(ctx, ref)
	}
	if err != nil {
		return nil, lookupErr(err, "room")
	}
	return room, nil
}

func loadStudent(ctx context.Context, tx repositories.Tx, id string) (*models.Student, error) {
	if blank(id) {
		return nil, invalid("studentId is required")
	}
	student, err := tx.Students().GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "student")
	}
	return student, nil
}

// Assign houses a student in a room.
func (s *OccupancyService) Assign(ctx context.Context, actorID, studentID, roomRef string) (result *Assignment, err error) {
	ctx, span := tracing.Start(ctx, "occupancy.Assign")
	defer func() { finish(span, "assign", err) }()

	err = s.store.WithTransaction(ctx, func(ctx context.Context, tx repositories.Tx) error {
		if _, err := s.guard.RequireActive(ctx, tx, actorID); err != nil {
			return err
		}
		student, err := loadStudent(ctx, tx, studentID)
		if err != nil {
			return err
		}
		room, err := loadRoom(ctx, tx, roomRef)
		if err != nil {
			return err
		}

		if room.IsStorage() {
			return apperrors.Newf(apperrors.CodeInvalidInput, "room %s is a storage room", room.RoomNumber)
		}
		if student.IsHoused() {
			return apperrors.Newf(apperrors.CodeStudentAlreadyAssigned, "student is already assigned to room %s", *student.RoomNumber)
		}
		if room.CurrentCount >= room.Capacity {
			return apperrors.Newf(apperrors.CodeRoomFull, "room %s is full", room.RoomNumber).
				WithDetail("capacity", room.Capacity)
		}
		required := models.RequiredRoomType(student.University, student.RoomType)
		if room.RoomType != required {
			return apperrors.Newf(apperrors.CodeTierMismatch, "student requires a %s room but room %s is %s",
				strings.ToLower(string(required)), room.RoomNumber, strings.ToLower(string(room.RoomType)))
		}

		now := s.now()
		room.CurrentCount++
		room.RecomputeOccupied()
		room.UpdatedAt = now
		if err := tx.Rooms().Update(ctx, room); err != nil {
			return writeErr(err, apperrors.CodeStorageError, "room update conflict")
		}

		student.RoomNumber = strPtr(room.RoomNumber)
		student.CheckInDate = &now
		student.UpdatedAt = now
		if err := tx.Students().Update(ctx, student); err != nil {
			return writeErr(err, apperrors.CodeStorageError, "student update conflict")
		}

		result = &Assignment{Student: student, Room: room}
		return nil
	})
	if err != nil {
		s.logger.Debug().Err(err).Str("studentID", studentID).Str("room", roomRef).Msg("Assign refused")
		return nil, coded(err)
	}

	s.recorder.Record(ctx, audit.Entry{
		Action:      models.ActionAssignRoom,
		ActorID:     actorID,
		EntityType:  "student",
		EntityID:    result.Student.ID,
		Description: fmt.Sprintf("Assigned %s to room %s", result.Student.FullName(), result.Room.RoomNumber),
		Metadata: models.LogMetadata{
			"studentId":    result.Student.ID,
			"roomNumber":   result.Room.RoomNumber,
			"currentCount": result.Room.CurrentCount,
			"capacity":     result.Room.Capacity,
		},
	})
	return result, nil
}

// Unassign releases the student's room.
func (s *OccupancyService) Unassign(ctx context.Context, actorID, studentID string) (result *Assignment, err error) {
	ctx, span := tracing.Start(ctx, "occupancy.Unassign")
	defer func() { finish(span, "unassign", err) }()

	err = s.store.WithTransaction(ctx, func(ctx context.Context, tx repositories.Tx) error {
		if _, err := s.guard.RequireActive(ctx, tx, actorID); err != nil {
			return err
		}
		student, err := loadStudent(ctx, tx, studentID)
		if err != nil {
			return err
		}
		room, err := s.vacate(ctx, tx, student)
		if err != nil {
			return err
		}
		result = &Assignment{Student: student, Room: room}
		return nil
	})
	if err != nil {
		return nil, coded(err)
	}

	metadata := models.LogMetadata{"studentId": result.Student.ID}
	roomNumber := ""
	if result.Room != nil {
		roomNumber = result.Room.RoomNumber
		metadata["roomNumber"] = roomNumber
		metadata["currentCount"] = result.Room.CurrentCount
	}
	s.recorder.Record(ctx, audit.Entry{
		Action:      models.ActionUnassignRoom,
		ActorID:     actorID,
		EntityType:  "student",
		EntityID:    result.Student.ID,
		Description: fmt.Sprintf("Removed %s from room %s", result.Student.FullName(), roomNumber),
		Metadata:    metadata,
	})
	return result, nil
}

// vacate clears the student's room inside tx and decrements the room count.
// The returned room is nil when the referenced room no longer exists.
func (s *OccupancyService) vacate(ctx context.Context, tx repositories.Tx, student *models.Student) (*models.Room, error) {
	if !student.IsHoused() {
		return nil, apperrors.New(apperrors.CodeStudentNotAssigned, "student is not assigned to a room")
	}
	now := s.now()
	roomNumber := *student.RoomNumber

	room, err := tx.Rooms().GetByNumber(ctx, roomNumber)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		room = nil
		s.logger.Warn().Str("studentID", student.ID).Str("roomNumber", roomNumber).Msg("Student referenced a missing room")
	case err != nil:
		return nil, apperrors.Storage(err)
	default:
		if room.CurrentCount > 0 {
			room.CurrentCount--
		}
		room.RecomputeOccupied()
		room.UpdatedAt = now
		if err := tx.Rooms().Update(ctx, room); err != nil {
			return nil, writeErr(err, apperrors.CodeStorageError, "room update conflict")
		}
	}

	student.RoomNumber = nil
	student.CheckInDate = nil
	student.UpdatedAt = now
	if err := tx.Students().Update(ctx, student); err != nil {
		return nil, writeErr(err, apperrors.CodeStorageError, "student update conflict")
	}
	return room, nil
}

// CreateRoom adds a residential or storage room.
func (s *OccupancyService) CreateRoom(ctx context.Context, actorID string, input CreateRoomInput) (room *models.Room, err error) {
	ctx, span := tracing.Start(ctx, "occupancy.CreateRoom")
	defer func() { finish(span, "create_room", err) }()

	room, err = s.buildRoom(input)
	if err != nil {
		return nil, err
	}

	err = s.store.WithTransaction(ctx, func(ctx context.Context, tx repositories.Tx) error {
		if _, err := s.guard.RequireActive(ctx, tx, actorID); err != nil {
			return err
		}
		if err := tx.Rooms().Create(ctx, room); err != nil {
			return writeErr(err, apperrors.CodeInvalidInput, fmt.Sprintf("room %s already exists", room.RoomNumber))
		}
		return nil
	})
	if err != nil {
		return nil, coded(err)
	}

	s.recorder.Record(ctx, audit.Entry{
		Action:      models.ActionCreateRoom,
		ActorID:     actorID,
		EntityType:  "room",
		EntityID:    room.ID,
		Description: fmt.Sprintf("Created room %s", room.RoomNumber),
		Metadata: models.LogMetadata{
			"roomNumber": room.RoomNumber,
			"kind":       string(room.Kind),
			"capacity":   room.Capacity,
			"roomType":   string(room.RoomType),
		},
	})
	return room, nil
}

func (s *OccupancyService) buildRoom(input CreateRoomInput) (*models.Room, error) {
	number := strings.TrimSpace(input.RoomNumber)
	if number == "" {
		return nil, invalid("roomNumber is required")
	}
	if input.Floor < 0 {
		return nil, invalid("floor must not be negative")
	}
	if input.Capacity < 0 {
		return nil, invalid("capacity must not be negative")
	}
	kind := input.Kind
	if kind == "" {
		kind = models.RoomKindResidential
	}
	if !kind.Valid() {
		return nil, apperrors.Newf(apperrors.CodeInvalidInput, "unknown room kind %q", input.Kind)
	}
	roomType := input.RoomType
	if roomType == "" {
		roomType = models.RoomTypeStandard
	}
	if !roomType.Valid() {
		return nil, apperrors.Newf(apperrors.CodeInvalidInput, "unknown room type %q", input.RoomType)
	}
	if kind == models.RoomKindStorage && input.Capacity != 0 {
		return nil, invalid("storage rooms must have capacity 0")
	}
	if kind == models.RoomKindResidential && input.Capacity == 0 {
		return nil, invalid("residential rooms need a positive capacity")
	}

	now := s.now()
	room := &models.Room{
		ID:         ids.NewEntityID(),
		RoomNumber: number,
		Floor:      input.Floor,
		Wing:       strings.ToUpper(strings.TrimSpace(input.Wing)),
		Kind:       kind,
		Capacity:   input.Capacity,
		RoomType:   roomType,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	room.RecomputeOccupied()
	return room, nil
}

// UpdateRoom changes capacity, floor, wing or tier. The occupant count is never writable here.
func (s *OccupancyService) UpdateRoom(ctx context.Context, actorID, roomRef string, input UpdateRoomInput) (room *models.Room, err error) {
	ctx, span := tracing.Start(ctx, "occupancy.UpdateRoom")
	defer func() { finish(span, "update_room", err) }()

	changes := models.LogMetadata{}
	err = s.store.WithTransaction(ctx, func(ctx context.Context, tx repositories.Tx) error {
		if _, err := s.guard.RequireActive(ctx, tx, actorID); err != nil {
			return err
		}
		var err error
		room, err = loadRoom(ctx, tx, roomRef)
		if err != nil {
			return err
		}

		if input.Capacity != nil && *input.Capacity != room.Capacity {
			capacity := *input.Capacity
			switch {
			case capacity < 0:
				return invalid("capacity must not be negative")
			case room.IsStorage() && capacity != 0:
				return invalid("storage rooms must have capacity 0")
			case !room.IsStorage() && capacity == 0:
				return invalid("residential rooms need a positive capacity")
			case capacity < room.CurrentCount:
				return apperrors.Newf(apperrors.CodeRoomFull, "room %s has %d occupants, capacity cannot drop to %d",
					room.RoomNumber, room.CurrentCount, capacity)
			}
			changes["capacity"] = capacity
			room.Capacity = capacity
		}
		if input.Floor != nil && *input.Floor != room.Floor {
			if *input.Floor < 0 {
				return invalid("floor must not be negative")
			}
			changes["floor"] = *input.Floor
			room.Floor = *input.Floor
		}
		if input.Wing != nil {
			wing := strings.ToUpper(strings.TrimSpace(*input.Wing))
			if wing != room.Wing {
				changes["wing"] = wing
				room.Wing = wing
			}
		}
		if input.RoomType != nil && *input.RoomType != room.RoomType {
			if !input.RoomType.Valid() {
				return apperrors.Newf(apperrors.CodeInvalidInput, "unknown room type %q", *input.RoomType)
			}
			if room.CurrentCount > 0 {
				return apperrors.Newf(apperrors.CodeTierMismatch, "room %s is occupied, its tier cannot change", room.RoomNumber)
			}
			changes["roomType"] = string(*input.RoomType)
			room.RoomType = *input.RoomType
		}

		room.RecomputeOccupied()
		room.UpdatedAt = s.now()
		if err := tx.Rooms().Update(ctx, room); err != nil {
			return writeErr(err, apperrors.CodeStorageError, "room update conflict")
		}
		return nil
	})
	if err != nil {
		return nil, coded(err)
	}

	changes["roomNumber"] = room.RoomNumber
	s.recorder.Record(ctx, audit.Entry{
		Action:      models.ActionUpdateRoom,
		ActorID:     actorID,
		EntityType:  "room",
		EntityID:    room.ID,
		Description: fmt.Sprintf("Updated room %s", room.RoomNumber),
		Metadata:    changes,
	})
	return room, nil
}

// DeleteRoom removes an empty room.
func (s *OccupancyService) DeleteRoom(ctx context.Context, actorID, roomRef string) (err error) {
	ctx, span := tracing.Start(ctx, "occupancy.DeleteRoom")
	defer func() { finish(span, "delete_room", err) }()

	var room *models.Room
	err = s.store.WithTransaction(ctx, func(ctx context.Context, tx repositories.Tx) error {
		if _, err := s.guard.RequireActive(ctx, tx, actorID); err != nil {
			return err
		}
		var err error
		room, err = loadRoom(ctx, tx, roomRef)
		if err != nil {
			return err
		}
		if room.CurrentCount > 0 {
			return apperrors.Newf(apperrors.CodeRoomNotEmpty, "room %s still has %d occupants", room.RoomNumber, room.CurrentCount)
		}
		if err := tx.Rooms().Delete(ctx, room.ID); err != nil {
			return lookupErr(err, "room")
		}
		return nil
	})
	if err != nil {
		return coded(err)
	}

	s.recorder.Record(ctx, audit.Entry{
		Action:      models.ActionDeleteRoom,
		ActorID:     actorID,
		EntityType:  "room",
		EntityID:    room.ID,
		Description: fmt.Sprintf("Deleted room %s", room.RoomNumber),
		Metadata:    models.LogMetadata{"roomNumber": room.RoomNumber, "floor": room.Floor},
	})
	return nil
}

// GetAvailableRooms returns residential rooms with free beds, ordered by room number.
func (s *OccupancyService) GetAvailableRooms(ctx context.Context, roomType models.RoomType) ([]*models.Room, error) {
	if roomType != "" && !roomType.Valid() {
		return nil, apperrors.Newf(apperrors.CodeInvalidInput, "unknown room type %q", roomType)
	}
	return s.GetRooms(ctx, repositories.RoomFilter{Status: repositories.RoomStatusAvailable, RoomType: roomType})
}

// GetRooms lists rooms matching filter, ordered by room number.
func (s *OccupancyService) GetRooms(ctx context.Context, filter repositories.RoomFilter) ([]*models.Room, error) {
	switch filter.Status {
	case "", repositories.RoomStatusAvailable, repositories.RoomStatusOccupied, repositories.RoomStatusStorage:
	default:
		return nil, apperrors.Newf(apperrors.CodeInvalidInput, "unknown room status %q", filter.Status)
	}
	filter.Wing = strings.ToUpper(strings.TrimSpace(filter.Wing))

	var rooms []*models.Room
	err := s.store.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
		var err error
		rooms, err = tx.Rooms().List(ctx, filter)
		return err
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list rooms")
		return nil, apperrors.Storage(err)
	}
	return rooms, nil
}

// DashboardStats reads the occupancy summary in one consistent view.
func (s *OccupancyService) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{}
	err := s.store.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
		var err error
		if stats.TotalStudents, err = tx.Students().Count(ctx, repositories.StudentFilter{}); err != nil {
			return err
		}
		if stats.ActiveStudents, err = tx.Students().Count(ctx, repositories.StudentFilter{Status: models.StudentActive}); err != nil {
			return err
		}
		if stats.PendingRequests, err = tx.Requests().Count(ctx, repositories.RequestFilter{Status: models.RequestPending}); err != nil {
			return err
		}
		rooms, err := tx.Rooms().List(ctx, repositories.RoomFilter{})
		if err != nil {
			return err
		}
		for _, room := range rooms {
			if room.IsStorage() {
				stats.StorageRooms++
				continue
			}
			stats.TotalRooms++
			stats.TotalBeds += room.Capacity
			stats.UsedBeds += room.CurrentCount
			if room.IsOccupied {
				stats.OccupiedRooms++
			} else {
				stats.AvailableRooms++
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read dashboard stats")
		return nil, apperrors.Storage(err)
	}
	metrics.SetBeds(stats.TotalBeds, stats.UsedBeds)
	return stats, nil
}

// SeedBuilding creates every room of the layout that does not exist yet and
// returns how many were created.
func (s *OccupancyService) SeedBuilding(ctx context.Context, actorID string, layout BuildingLayout) (created int, err error) {
	ctx, span := tracing.Start(ctx, "occupancy.SeedBuilding")
	defer func() { finish(span, "seed_building", err) }()

	if layout.Floors <= 0 {
		return 0, invalid("floors must be positive")
	}
	if layout.BedsPerRoom <= 0 {
		return 0, invalid("bedsPerRoom must be positive")
	}
	premium := make(map[int]bool, len(layout.PremiumFloors))
	for _, f := range layout.PremiumFloors {
		premium[f] = true
	}

	err = s.store.WithTransaction(ctx, func(ctx context.Context, tx repositories.Tx) error {
		if actorID != "" {
			if _, err := s.guard.RequireActive(ctx, tx, actorID); err != nil {
				return err
			}
		}
		for _, input := range layoutRooms(layout.Floors, layout.BedsPerRoom, premium) {
			if _, err := tx.Rooms().GetByNumber(ctx, input.RoomNumber); err == nil {
				continue
			} else if !errors.Is(err, repositories.ErrNotFound) {
				return apperrors.Storage(err)
			}
			room, err := s.buildRoom(input)
			if err != nil {
				return err
			}
			if err := tx.Rooms().Create(ctx, room); err != nil {
				return writeErr(err, apperrors.CodeInvalidInput, fmt.Sprintf("room %s already exists", room.RoomNumber))
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, coded(err)
	}

	if created > 0 {
		actor := actorID
		if actor == "" {
			actor = systemActor
		}
		floors := make([]int, 0, len(premium))
		for f := range premium {
			floors = append(floors, f)
		}
		sort.Ints(floors)
		s.recorder.Record(ctx, audit.Entry{
			Action:      models.ActionSeedRooms,
			ActorID:     actor,
			EntityType:  "room",
			Description: fmt.Sprintf("Seeded %d rooms", created),
			Metadata: models.LogMetadata{
				"created":       created,
				"floors":        layout.Floors,
				"premiumFloors": fmt.Sprint(floors),
			},
		})
	}
	s.logger.Info().Int("created", created).Int("floors", layout.Floors).Msg("Building seeded")
	return created, nil
}

// layoutRooms expands the building layout into room inputs.
func layoutRooms(floors, beds int, premium map[int]bool) []CreateRoomInput {
	rooms := make([]CreateRoomInput, 0, floors*slotsPerFloor)
	for floor := 1; floor <= floors; floor++ {
		roomType := models.RoomTypeStandard
		if premium[floor] {
			roomType = models.RoomTypePremium
		}
		first := 1
		for _, w := range wingLastSlot {
			for slot := first; slot <= w.last; slot++ {
				input := CreateRoomInput{
					RoomNumber: fmt.Sprintf("%d%02d", floor, slot),
					Floor:      floor,
					Wing:       w.wing,
					Kind:       models.RoomKindResidential,
					Capacity:   beds,
					RoomType:   roomType,
				}
				if slot == w.last {
					input.Kind = models.RoomKindStorage
					input.Capacity = 0
				}
				rooms = append(rooms, input)
			}
			first = w.last + 1
		}
	}
	return rooms
}
