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
)

const (
	// DefaultRequestLimit applies when a request listing has no limit.
	DefaultRequestLimit = 50
	// MaxRequestLimit caps a request listing.
	MaxRequestLimit = 200

	noReasonGiven = "no reason given"
)

// SubmitRequestInput is a new request. Reason, DesiredRoom, RoomNumber and
// Severity only apply to the request types whose payload carries them.
type SubmitRequestInput struct {
	Type        models.RequestType
	RequesterID string
	StudentID   string
	Description string

	Reason      string // DELETE_STUDENT
	DesiredRoom string // ROOM_CHANGE, room id or number
	RoomNumber  string // MAINTENANCE, room id or number
	Severity    models.Severity
}

// ResolveRequestInput is a manager's decision on a pending request
type ResolveRequestInput struct {
	RequestID       string
	Decision        models.RequestStatus
	ResolverID      string
	RejectionReason string
}

// RequestPage is one page of a request listing
type RequestPage struct {
	Items []*models.Request `json:"items"`
	Total int               `json:"total"`
	Limit int               `json:"limit"`
	Skip  int               `json:"skip"`
}

// RequestService runs the request lifecycle: submit, resolve and the
// follow-up actions of approved requests.
type RequestService struct {
	store         repositories.Store
	guard         *auth.AuthorizationService
	occupancy     *OccupancyService
	notifications *NotificationService
	recorder      *audit.Recorder
	logger        zerolog.Logger
	now           Clock
}

// NewRequestService creates a new RequestService
func NewRequestService(
	store repositories.Store,
	guard *auth.AuthorizationService,
	occupancy *OccupancyService,
	notifications *NotificationService,
	recorder *audit.Recorder,
	logger zerolog.Logger,
) *RequestService {
	return &RequestService{
		store:         store,
		guard:         guard,
		occupancy:     occupancy,
		notifications: notifications,
		recorder:      recorder,
		logger:        logger.With().Str("service", "request").Logger(),
		now:           utcNow,
	}
}

// fillPayloadDetails copies the type-specific submission fields into payload.
// Referenced rooms must exist and are stored by number.
func fillPayloadDetails(ctx context.Context, tx repositories.Tx, payload *models.RequestPayload, input SubmitRequestInput) error {
	switch {
	case payload.DeleteStudent != nil:
		payload.DeleteStudent.Reason = strings.TrimSpace(input.Reason)
	case payload.RoomChange != nil:
		if ref := strings.TrimSpace(input.DesiredRoom); ref != "" {
			room, err := loadRoom(ctx, tx, ref)
			if err != nil {
				return err
			}
			payload.RoomChange.DesiredRoom = room.RoomNumber
		}
	case payload.Maintenance != nil:
		if ref := strings.TrimSpace(input.RoomNumber); ref != "" {
			room, err := loadRoom(ctx, tx, ref)
			if err != nil {
				return err
			}
			payload.Maintenance.RoomNumber = room.RoomNumber
		}
		payload.Maintenance.Severity = input.Severity
	}
	return nil
}

// Submit validates and stores a PENDING request, notifying every active manager.
func (s *RequestService) Submit(ctx context.Context, input SubmitRequestInput) (request *models.Request, err error) {
	ctx, span := tracing.Start(ctx, "request.Submit")
	defer func() { finish(span, "submit_request", err) }()

	input.Type = models.RequestType(strings.ToUpper(strings.TrimSpace(string(input.Type))))
	if !input.Type.Valid() {
		return nil, apperrors.Newf(apperrors.CodeInvalidInput, "unknown request type %q", input.Type)
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, invalid("description is required")
	}
	studentID := strings.TrimSpace(input.StudentID)
	if input.Type.RequiresStudent() && studentID == "" {
		return nil, apperrors.Newf(apperrors.CodeInvalidInput, "%s requests must reference a student", input.Type)
	}
	if input.Severity != "" && !input.Severity.Valid() {
		return nil, apperrors.Newf(apperrors.CodeInvalidInput, "unknown severity %q", input.Severity)
	}

	var batch []outgoing
	err = s.store.WithTransaction(ctx, func(ctx context.Context, tx repositories.Tx) error {
		requester, err := s.guard.RequireActive(ctx, tx, input.RequesterID)
		if err != nil {
			return err
		}

		var student *models.Student
		if studentID != "" {
			if student, err = loadStudent(ctx, tx, studentID); err != nil {
				return err
			}
		}

		payload, err := models.NewRequestPayload(input.Type, description, studentID)
		if err != nil {
			return invalid(err.Error())
		}
		if err := fillPayloadDetails(ctx, tx, &payload, input); err != nil {
			return err
		}
		if student != nil && student.IsHoused() {
			switch {
			case payload.Clearance != nil:
				payload.Clearance.RoomNumber = *student.RoomNumber
			case payload.RoomChange != nil:
				payload.RoomChange.FromRoom = *student.RoomNumber
			}
		}

		now := s.now()
		request = &models.Request{
			ID:          ids.NewEntityID(),
			Type:        input.Type,
			Status:      models.RequestPending,
			Payload:     payload,
			RequesterID: requester.ID,
			CreatedAt:   now,
		}
		if studentID != "" {
			request.StudentID = strPtr(studentID)
		}
		if err := tx.Requests().Create(ctx, request); err != nil {
			return writeErr(err, apperrors.CodeInvalidInput, "request already exists")
		}

		managers, err := tx.Users().List(ctx, repositories.UserFilter{Role: models.RoleManager, ActiveOnly: true})
		if err != nil {
			return apperrors.Storage(err)
		}
		title := fmt.Sprintf("New %s request", humanType(input.Type))
		message := fmt.Sprintf("%s submitted a request: %s", requester.Name, description)
		for _, manager := range managers {
			if manager.ID == requester.ID {
				continue
			}
			out, err := s.notifications.stage(ctx, tx, manager, models.NotificationRequestSubmitted, title, message, request.ID, now)
			if err != nil {
				return err
			}
			batch = append(batch, out)
		}
		return nil
	})
	if err != nil {
		return nil, coded(err)
	}

	metadata := models.LogMetadata{"requestType": string(request.Type)}
	if request.StudentID != nil {
		metadata["studentId"] = *request.StudentID
	}
	s.recorder.Record(ctx, audit.Entry{
		Action:      models.ActionCreateRequest,
		ActorID:     request.RequesterID,
		EntityType:  "request",
		EntityID:    request.ID,
		Description: fmt.Sprintf("Submitted %s request", humanType(request.Type)),
		Metadata:    metadata,
	})
	s.notifications.dispatch(ctx, batch)
	return request, nil
}

// Resolve approves or rejects a pending request. An approved clearance
// releases the student's room in the same unit of work.
func (s *RequestService) Resolve(ctx context.Context, input ResolveRequestInput) (request *models.Request, err error) {
	ctx, span := tracing.Start(ctx, "request.Resolve")
	defer func() { finish(span, "resolve_request", err) }()

	input.Decision = models.RequestStatus(strings.ToUpper(strings.TrimSpace(string(input.Decision))))
	if !input.Decision.IsDecision() {
		return nil, apperrors.Newf(apperrors.CodeInvalidInput, "status must be APPROVED or REJECTED, got %q", input.Decision)
	}
	reason := strings.TrimSpace(input.RejectionReason)

	var (
		vacated *models.Room
		batch   []outgoing
	)
	err = s.store.WithTransaction(ctx, func(ctx context.Context, tx repositories.Tx) error {
		resolver, err := s.guard.RequireRole(ctx, tx, input.ResolverID, models.RoleManager)
		if err != nil {
			return err
		}
		if blank(input.RequestID) {
			return invalid("requestId is required")
		}
		request, err = tx.Requests().GetByID(ctx, input.RequestID)
		if err != nil {
			return lookupErr(err, "request")
		}
		if request.Status != models.RequestPending {
			return apperrors.Newf(apperrors.CodeAlreadyResolved, "request was already %s", strings.ToLower(string(request.Status)))
		}

		if input.Decision == models.RequestApproved && request.Type == models.RequestClearance && request.StudentID != nil {
			student, err := tx.Students().GetByID(ctx, *request.StudentID)
			switch {
			case errors.Is(err, repositories.ErrNotFound):
				s.logger.Warn().Str("requestID", request.ID).Str("studentID", *request.StudentID).Msg("Clearance student no longer exists")
			case err != nil:
				return apperrors.Storage(err)
			case student.IsHoused():
				if vacated, err = s.occupancy.vacate(ctx, tx, student); err != nil {
					return err
				}
			}
		}

		now := s.now()
		request.Status = input.Decision
		request.ResolverID = strPtr(resolver.ID)
		request.ResolvedAt = &now
		if input.Decision == models.RequestRejected {
			request.RejectionReason = strPtr(reason)
		}
		if err := tx.Requests().Update(ctx, request); err != nil {
			return writeErr(err, apperrors.CodeStorageError, "request update conflict")
		}

		if request.RequesterID != resolver.ID {
			requester, err := tx.Users().GetByID(ctx, request.RequesterID)
			switch {
			case errors.Is(err, repositories.ErrNotFound):
			case err != nil:
				return apperrors.Storage(err)
			default:
				title := fmt.Sprintf("Request %s", strings.ToLower(string(input.Decision)))
				message := fmt.Sprintf("Your %s request was %s by %s", humanType(request.Type), strings.ToLower(string(input.Decision)), resolver.Name)
				if input.Decision == models.RequestRejected {
					message += ": " + reasonOrDefault(reason)
				}
				out, err := s.notifications.stage(ctx, tx, requester, models.NotificationRequestResolved, title, message, request.ID, now)
				if err != nil {
					return err
				}
				batch = append(batch, out)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Debug().Err(err).Str("requestID", input.RequestID).Msg("Resolve refused")
		return nil, coded(err)
	}

	s.recorder.Record(ctx, s.resolutionEntry(request, vacated, reason))
	s.notifications.dispatch(ctx, batch)
	return request, nil
}

func (s *RequestService) resolutionEntry(request *models.Request, vacated *models.Room, reason string) audit.Entry {
	entry := audit.Entry{
		ActorID:    *request.ResolverID,
		EntityType: "request",
		EntityID:   request.ID,
		Metadata:   models.LogMetadata{"requestType": string(request.Type)},
	}
	if request.StudentID != nil {
		entry.Metadata["studentId"] = *request.StudentID
	}

	if request.Status == models.RequestRejected {
		entry.Action = models.ActionRejectRequest
		entry.Metadata["reason"] = reasonOrDefault(reason)
		entry.Description = fmt.Sprintf("Rejected %s request: %s", humanType(request.Type), reasonOrDefault(reason))
		return entry
	}

	entry.Action = models.ActionApproveRequest
	entry.Description = fmt.Sprintf("Approved %s request", humanType(request.Type))
	if vacated != nil {
		entry.Metadata["vacatedRoom"] = vacated.RoomNumber
		entry.Metadata["currentCount"] = vacated.CurrentCount
		entry.Description += fmt.Sprintf(", room %s vacated", vacated.RoomNumber)
	}
	return entry
}

// List returns requests newest first.
func (s *RequestService) List(ctx context.Context, filter repositories.RequestFilter) (*RequestPage, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperrors.Newf(apperrors.CodeInvalidInput, "unknown request status %q", filter.Status)
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, apperrors.Newf(apperrors.CodeInvalidInput, "unknown request type %q", filter.Type)
	}
	filter.Limit, filter.Skip = helpers.ClampPage(filter.Limit, filter.Skip, DefaultRequestLimit, MaxRequestLimit)

	page := &RequestPage{Limit: filter.Limit, Skip: filter.Skip}
	err := s.store.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
		var err error
		if page.Items, err = tx.Requests().List(ctx, filter); err != nil {
			return err
		}
		page.Total, err = tx.Requests().Count(ctx, filter)
		return err
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list requests")
		return nil, apperrors.Storage(err)
	}
	return page, nil
}

// ExecuteStudentDeletion carries out an approved DELETE_STUDENT request:
// the student's room is released and the record removed together.
func (s *RequestService) ExecuteStudentDeletion(ctx context.Context, requestID, actorID string) (err error) {
	ctx, span := tracing.Start(ctx, "request.ExecuteStudentDeletion")
	defer func() { finish(span, "execute_student_deletion", err) }()

	var (
		student *models.Student
		vacated *models.Room
	)
	err = s.store.WithTransaction(ctx, func(ctx context.Context, tx repositories.Tx) error {
		if _, err := s.guard.RequireRole(ctx, tx, actorID, models.RoleManager); err != nil {
			return err
		}
		request, err := tx.Requests().GetByID(ctx, requestID)
		if err != nil {
			return lookupErr(err, "request")
		}
		if request.Type != models.RequestDeleteStudent {
			return apperrors.Newf(apperrors.CodeInvalidInput, "request is a %s request, not a student deletion", request.Type)
		}
		if request.Status != models.RequestApproved {
			return apperrors.Newf(apperrors.CodeInvalidInput, "request is %s, only approved requests can be executed", strings.ToLower(string(request.Status)))
		}
		if request.StudentID == nil {
			return invalid("request does not reference a student")
		}

		if student, err = loadStudent(ctx, tx, *request.StudentID); err != nil {
			return err
		}
		if student.IsHoused() {
			if vacated, err = s.occupancy.vacate(ctx, tx, student); err != nil {
				return err
			}
		}
		if err := tx.Students().Delete(ctx, student.ID); err != nil {
			return lookupErr(err, "student")
		}
		return nil
	})
	if err != nil {
		return coded(err)
	}

	metadata := models.LogMetadata{
		"requestId":          requestID,
		"registrationNumber": student.RegistrationNumber,
	}
	if vacated != nil {
		metadata["vacatedRoom"] = vacated.RoomNumber
	}
	s.recorder.Record(ctx, audit.Entry{
		Action:      models.ActionDeleteStudent,
		ActorID:     actorID,
		EntityType:  "student",
		EntityID:    student.ID,
		Description: fmt.Sprintf("Deleted student %s", student.FullName()),
		Metadata:    metadata,
	})
	return nil
}

func reasonOrDefault(reason string) string {
	if reason == "" {
		return noReasonGiven
	}
	return reason
}

func humanType(t models.RequestType) string {
	return strings.ReplaceAll(strings.ToLower(string(t)), "_", " ")
}
