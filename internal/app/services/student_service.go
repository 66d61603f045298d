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
	"github.com/yigit/unihousing/internal/pkg/helpers"
	"github.com/yigit/unihousing/internal/pkg/ids"
	"github.com/yigit/unihousing/internal/pkg/tracing"
	"github.com/yigit/unihousing/internal/pkg/validation"
)

const (
	// DefaultStudentLimit applies when a student listing has no limit.
	DefaultStudentLimit = 50
	// MaxStudentLimit caps a student listing.
	MaxStudentLimit = 500
)

// RegisterStudentInput describes a new student
type RegisterStudentInput struct {
	RegistrationNumber string
	NationalID         string
	FirstName          string
	LastName           string
	Email              string
	Phone              string
	University         models.University
	RoomType           models.RoomType
	Status             models.StudentStatus
}

// UpdateStudentInput changes profile fields. Room assignment is not writable here.
type UpdateStudentInput struct {
	NationalID *string
	FirstName  *string
	LastName   *string
	Email      *string
	Phone      *string
	University *models.University
	RoomType   *models.RoomType
	Status     *models.StudentStatus
}

// StudentPage is one page of a student listing
type StudentPage struct {
	Items []*models.Student `json:"items"`
	Total int               `json:"total"`
	Limit int               `json:"limit"`
	Skip  int               `json:"skip"`
}

// StudentService registers and maintains student records
type StudentService struct {
	store    repositories.Store
	guard    *auth.AuthorizationService
	recorder *audit.Recorder
	logger   zerolog.Logger
	now      Clock
}

// NewStudentService creates a new StudentService
func NewStudentService(store repositories.Store, guard *auth.AuthorizationService, recorder *audit.Recorder, logger zerolog.Logger) *StudentService {
	return &StudentService{
		store:    store,
		guard:    guard,
		recorder: recorder,
		logger:   logger.With().Str("service", "student").Logger(),
		now:      utcNow,
	}
}

func tierError(u models.University, t models.RoomType) error {
	return apperrors.Newf(apperrors.CodeTierMismatch, "%s university students must be housed in premium rooms, got %s",
		strings.ToLower(string(u)), strings.ToLower(string(t)))
}

// Register creates a student record. Private-university students default to premium.
func (s *StudentService) Register(ctx context.Context, actorID string, input RegisterStudentInput) (student *models.Student, err error) {
	ctx, span := tracing.Start(ctx, "student.Register")
	defer func() { finish(span, "register_student", err) }()

	student, err = s.buildStudent(input)
	if err != nil {
		return nil, err
	}

	err = s.store.WithTransaction(ctx, func(ctx context.Context, tx repositories.Tx) error {
		if _, err := s.guard.RequireActive(ctx, tx, actorID); err != nil {
			return err
		}
		if _, err := tx.Students().GetByRegistrationNumber(ctx, student.RegistrationNumber); err == nil {
			return apperrors.Newf(apperrors.CodeInvalidInput, "registration number %s is already registered", student.RegistrationNumber)
		} else if !errors.Is(err, repositories.ErrNotFound) {
			return apperrors.Storage(err)
		}
		if err := tx.Students().Create(ctx, student); err != nil {
			return writeErr(err, apperrors.CodeInvalidInput, "student already exists")
		}
		return nil
	})
	if err != nil {
		return nil, coded(err)
	}

	s.recorder.Record(ctx, audit.Entry{
		Action:      models.ActionCreateStudent,
		ActorID:     actorID,
		EntityType:  "student",
		EntityID:    student.ID,
		Description: fmt.Sprintf("Registered %s", student.FullName()),
		Metadata: models.LogMetadata{
			"registrationNumber": student.RegistrationNumber,
			"university":         string(student.University),
			"roomType":           string(student.RoomType),
		},
	})
	return student, nil
}

func (s *StudentService) buildStudent(input RegisterStudentInput) (*models.Student, error) {
	regNo := strings.TrimSpace(input.RegistrationNumber)
	if regNo == "" {
		return nil, invalid("registrationNumber is required")
	}
	if !validation.IsRegistrationNumber(regNo) {
		return nil, apperrors.Newf(apperrors.CodeInvalidInput, "malformed registrationNumber %q", regNo)
	}
	if email := strings.TrimSpace(input.Email); email != "" && !validation.IsEmail(email) {
		return nil, invalid("email must be a valid email address")
	}
	if blank(input.NationalID) {
		return nil, invalid("nationalId is required")
	}
	if blank(input.FirstName) {
		return nil, invalid("firstName is required")
	}

	university := models.University(strings.ToUpper(strings.TrimSpace(string(input.University))))
	if university == "" {
		university = models.UniversityGovernment
	}
	if !university.Valid() {
		return nil, apperrors.Newf(apperrors.CodeInvalidInput, "unknown university %q", input.University)
	}
	roomType := models.RoomType(strings.ToUpper(strings.TrimSpace(string(input.RoomType))))
	if roomType == "" {
		roomType = models.RequiredRoomType(university, models.RoomTypeStandard)
	}
	if !roomType.Valid() {
		return nil, apperrors.Newf(apperrors.CodeInvalidInput, "unknown room type %q", input.RoomType)
	}
	status := input.Status
	if status == "" {
		status = models.StudentActive
	}
	if !status.Valid() {
		return nil, apperrors.Newf(apperrors.CodeInvalidInput, "unknown status %q", input.Status)
	}

	now := s.now()
	student := &models.Student{
		ID:                 ids.NewEntityID(),
		RegistrationNumber: regNo,
		NationalID:         strings.TrimSpace(input.NationalID),
		FirstName:          strings.TrimSpace(input.FirstName),
		LastName:           strings.TrimSpace(input.LastName),
		Email:              strings.TrimSpace(input.Email),
		Phone:              strings.TrimSpace(input.Phone),
		University:         university,
		RoomType:           roomType,
		Status:             status,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if !student.TierConsistent() {
		return nil, tierError(university, roomType)
	}
	return student, nil
}

// Update changes a student's profile, re-checking the tier rules.
func (s *StudentService) Update(ctx context.Context, actorID, studentID string, input UpdateStudentInput) (student *models.Student, err error) {
	ctx, span := tracing.Start(ctx, "student.Update")
	defer func() { finish(span, "update_student", err) }()

	changes := models.LogMetadata{}
	err = s.store.WithTransaction(ctx, func(ctx context.Context, tx repositories.Tx) error {
		if _, err := s.guard.RequireActive(ctx, tx, actorID); err != nil {
			return err
		}
		var err error
		if student, err = loadStudent(ctx, tx, studentID); err != nil {
			return err
		}
		previousType := student.RoomType

		text := func(field string, dst *string, src *string, required bool) error {
			if src == nil {
				return nil
			}
			v := strings.TrimSpace(*src)
			if required && v == "" {
				return apperrors.Newf(apperrors.CodeInvalidInput, "%s must not be empty", field)
			}
			if v != *dst {
				changes[field] = v
				*dst = v
			}
			return nil
		}
		if err := text("nationalId", &student.NationalID, input.NationalID, true); err != nil {
			return err
		}
		if err := text("firstName", &student.FirstName, input.FirstName, true); err != nil {
			return err
		}
		if err := text("lastName", &student.LastName, input.LastName, false); err != nil {
			return err
		}
		if input.Email != nil {
			if email := strings.TrimSpace(*input.Email); email != "" && !validation.IsEmail(email) {
				return invalid("email must be a valid email address")
			}
		}
		if err := text("email", &student.Email, input.Email, false); err != nil {
			return err
		}
		if err := text("phone", &student.Phone, input.Phone, false); err != nil {
			return err
		}

		if input.University != nil {
			u := models.University(strings.ToUpper(string(*input.University)))
			if !u.Valid() {
				return apperrors.Newf(apperrors.CodeInvalidInput, "unknown university %q", *input.University)
			}
			if u != student.University {
				changes["university"] = string(u)
				student.University = u
			}
		}
		if input.RoomType != nil {
			t := models.RoomType(strings.ToUpper(string(*input.RoomType)))
			if !t.Valid() {
				return apperrors.Newf(apperrors.CodeInvalidInput, "unknown room type %q", *input.RoomType)
			}
			if t != student.RoomType {
				changes["roomType"] = string(t)
				student.RoomType = t
			}
		}
		if input.Status != nil {
			if !input.Status.Valid() {
				return apperrors.Newf(apperrors.CodeInvalidInput, "unknown status %q", *input.Status)
			}
			if *input.Status != student.Status {
				changes["status"] = string(*input.Status)
				student.Status = *input.Status
			}
		}

		if !student.TierConsistent() {
			return tierError(student.University, student.RoomType)
		}
		if student.IsHoused() && student.RoomType != previousType {
			room, err := tx.Rooms().GetByNumber(ctx, *student.RoomNumber)
			if err != nil && !errors.Is(err, repositories.ErrNotFound) {
				return apperrors.Storage(err)
			}
			if err == nil && room.RoomType != student.RoomType {
				return apperrors.Newf(apperrors.CodeTierMismatch, "student lives in %s room %s, unassign before changing tier",
					strings.ToLower(string(room.RoomType)), room.RoomNumber)
			}
		}

		student.UpdatedAt = s.now()
		if err := tx.Students().Update(ctx, student); err != nil {
			return writeErr(err, apperrors.CodeInvalidInput, "student update conflict")
		}
		return nil
	})
	if err != nil {
		return nil, coded(err)
	}

	s.recorder.Record(ctx, audit.Entry{
		Action:      models.ActionUpdateStudent,
		ActorID:     actorID,
		EntityType:  "student",
		EntityID:    student.ID,
		Description: fmt.Sprintf("Updated %s", student.FullName()),
		Metadata:    changes,
	})
	return student, nil
}

// Get returns one student.
func (s *StudentService) Get(ctx context.Context, studentID string) (*models.Student, error) {
	var student *models.Student
	err := s.store.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
		var err error
		student, err = loadStudent(ctx, tx, studentID)
		return err
	})
	if err != nil {
		return nil, coded(err)
	}
	return student, nil
}

// List returns students matching filter, with the total count.
func (s *StudentService) List(ctx context.Context, filter repositories.StudentFilter) (*StudentPage, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperrors.Newf(apperrors.CodeInvalidInput, "unknown status %q", filter.Status)
	}
	if filter.RoomType != "" && !filter.RoomType.Valid() {
		return nil, apperrors.Newf(apperrors.CodeInvalidInput, "unknown room type %q", filter.RoomType)
	}
	if filter.University != "" && !filter.University.Valid() {
		return nil, apperrors.Newf(apperrors.CodeInvalidInput, "unknown university %q", filter.University)
	}
	filter.Search = strings.TrimSpace(filter.Search)
	filter.Limit, filter.Skip = helpers.ClampPage(filter.Limit, filter.Skip, DefaultStudentLimit, MaxStudentLimit)

	page := &StudentPage{Limit: filter.Limit, Skip: filter.Skip}
	err := s.store.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
		var err error
		if page.Items, err = tx.Students().List(ctx, filter); err != nil {
			return err
		}
		page.Total, err = tx.Students().Count(ctx, filter)
		return err
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list students")
		return nil, apperrors.Storage(err)
	}
	return page, nil
}
