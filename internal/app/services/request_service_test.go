package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/unihousing/internal/app/models"
	"github.com/yigit/unihousing/internal/app/repositories"
	"github.com/yigit/unihousing/internal/pkg/apperrors"
)

func submit(t *testing.T, f *fixture, kind models.RequestType, studentID string) *models.Request {
	t.Helper()
	req, err := f.requests.Submit(context.Background(), SubmitRequestInput{
		Type:        kind,
		RequesterID: f.supervisorID,
		StudentID:   studentID,
		Description: "please handle",
	})
	require.NoError(t, err)
	return req
}

func TestSubmitValidation(t *testing.T) {
	forEachStore(t, func(t *testing.T, f *fixture) {
		student := f.seedStudent(t, "V-1", models.UniversityGovernment, models.RoomTypeStandard, "")

		tests := []struct {
			name  string
			input SubmitRequestInput
			code  apperrors.Code
		}{
			{"unknown type", SubmitRequestInput{Type: "REFUND", RequesterID: f.supervisorID, Description: "x"}, apperrors.CodeInvalidInput},
			{"blank description", SubmitRequestInput{Type: models.RequestOther, RequesterID: f.supervisorID, Description: "  "}, apperrors.CodeInvalidInput},
			{"clearance without student", SubmitRequestInput{Type: models.RequestClearance, RequesterID: f.supervisorID, Description: "x"}, apperrors.CodeInvalidInput},
			{"unknown student", SubmitRequestInput{Type: models.RequestRoomChange, RequesterID: f.supervisorID, StudentID: "missing", Description: "x"}, apperrors.CodeNotFound},
			{"unknown requester", SubmitRequestInput{Type: models.RequestOther, RequesterID: "ghost", Description: "x"}, apperrors.CodeUnauthorized},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := f.requests.Submit(context.Background(), tt.input)
				assert.True(t, apperrors.HasCode(err, tt.code), "want %s, got %v", tt.code, err)
			})
		}

		req := submit(t, f, models.RequestDeleteStudent, student.ID)
		assert.Equal(t, models.RequestPending, req.Status)
		require.NotNil(t, req.Payload.DeleteStudent)
		assert.Equal(t, student.ID, req.Payload.DeleteStudent.StudentID)
		assert.Equal(t, "please handle", req.Description())
	})
}

func TestSubmitNotifiesManagers(t *testing.T) {
	forEachStore(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		second := f.seedUser(t, "Mo Manager", "mo@housing.test", models.RoleManager)

		req := submit(t, f, models.RequestMaintenance, "")

		for _, managerID := range []string{f.managerID, second.ID} {
			notes, err := f.notifications.ListForUser(ctx, managerID, true)
			require.NoError(t, err)
			require.Len(t, notes, 1)
			assert.Equal(t, models.NotificationRequestSubmitted, notes[0].Kind)
			require.NotNil(t, notes[0].RequestID)
			assert.Equal(t, req.ID, *notes[0].RequestID)
			assert.Len(t, f.pusher.For(managerID), 1)
		}

		notes, err := f.notifications.ListForUser(ctx, f.supervisorID, false)
		require.NoError(t, err)
		assert.Empty(t, notes)
		assert.Len(t, f.logs(t, models.ActionCreateRequest), 1)
	})
}

func TestApprovedClearanceVacatesRoom(t *testing.T) {
	forEachStore(t, func(t *testing.T, f *fixture) {
		f.seedRoom(t, "205", 3, 1, models.RoomTypeStandard)
		student := f.seedStudent(t, "CL-1", models.UniversityGovernment, models.RoomTypeStandard, "205")
		req := submit(t, f, models.RequestClearance, student.ID)
		assert.Equal(t, "205", req.Payload.Clearance.RoomNumber)

		resolved, err := f.requests.Resolve(context.Background(), ResolveRequestInput{
			RequestID: req.ID, Decision: models.RequestApproved, ResolverID: f.managerID,
		})
		require.NoError(t, err)
		assert.Equal(t, models.RequestApproved, resolved.Status)
		require.NotNil(t, resolved.ResolverID)
		assert.Equal(t, f.managerID, *resolved.ResolverID)
		assert.NotNil(t, resolved.ResolvedAt)

		room := f.room(t, "205")
		assert.Equal(t, 0, room.CurrentCount)
		assert.False(t, room.IsOccupied)
		assert.Nil(t, f.student(t, student.ID).RoomNumber)

		logs := f.logs(t, models.ActionApproveRequest)
		require.Len(t, logs, 1)
		assert.Equal(t, "205", logs[0].Metadata["vacatedRoom"])
		assert.Empty(t, f.logs(t, models.ActionUnassignRoom), "the clearance writes a single audit entry")

		notes, err := f.notifications.ListForUser(context.Background(), f.supervisorID, true)
		require.NoError(t, err)
		require.Len(t, notes, 1)
		assert.Equal(t, models.NotificationRequestResolved, notes[0].Kind)
	})
}

func TestResolveRequiresManager(t *testing.T) {
	forEachStore(t, func(t *testing.T, f *fixture) {
		req := submit(t, f, models.RequestOther, "")

		_, err := f.requests.Resolve(context.Background(), ResolveRequestInput{
			RequestID: req.ID, Decision: models.RequestApproved, ResolverID: f.supervisorID,
		})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized), "got %v", err)
		assert.Equal(t, models.RequestPending, f.request(t, req.ID).Status)

		_, err = f.requests.Resolve(context.Background(), ResolveRequestInput{
			RequestID: req.ID, Decision: models.RequestPending, ResolverID: f.managerID,
		})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput), "got %v", err)
	})
}

func TestResolvedRequestIsNeverMutated(t *testing.T) {
	forEachStore(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		req := submit(t, f, models.RequestOther, "")

		_, err := f.requests.Resolve(ctx, ResolveRequestInput{
			RequestID: req.ID, Decision: models.RequestRejected, ResolverID: f.managerID, RejectionReason: "duplicate",
		})
		require.NoError(t, err)
		before := f.request(t, req.ID)

		for _, decision := range []models.RequestStatus{models.RequestApproved, models.RequestRejected} {
			_, err := f.requests.Resolve(ctx, ResolveRequestInput{
				RequestID: req.ID, Decision: decision, ResolverID: f.managerID, RejectionReason: "changed my mind",
			})
			assert.True(t, apperrors.HasCode(err, apperrors.CodeAlreadyResolved), "got %v", err)
		}

		after := f.request(t, req.ID)
		assert.Equal(t, before.Status, after.Status)
		require.NotNil(t, after.RejectionReason)
		assert.Equal(t, "duplicate", *after.RejectionReason)
		assert.Len(t, f.logs(t, models.ActionRejectRequest), 1)
	})
}

func TestRejectWithoutReason(t *testing.T) {
	forEachStore(t, func(t *testing.T, f *fixture) {
		req := submit(t, f, models.RequestOther, "")

		_, err := f.requests.Resolve(context.Background(), ResolveRequestInput{
			RequestID: req.ID, Decision: models.RequestRejected, ResolverID: f.managerID,
		})
		require.NoError(t, err)

		logs := f.logs(t, models.ActionRejectRequest)
		require.Len(t, logs, 1)
		assert.Equal(t, "no reason given", logs[0].Metadata["reason"])
	})
}

func TestConcurrentResolveHasOneWinner(t *testing.T) {
	forEachStore(t, func(t *testing.T, f *fixture) {
		f.seedRoom(t, "305", 3, 1, models.RoomTypeStandard)
		student := f.seedStudent(t, "E-1", models.UniversityGovernment, models.RoomTypeStandard, "305")
		req := submit(t, f, models.RequestClearance, student.ID)

		decisions := []models.RequestStatus{models.RequestApproved, models.RequestRejected}
		errs := make([]error, len(decisions))
		var wg sync.WaitGroup
		for i, decision := range decisions {
			wg.Add(1)
			go func(i int, decision models.RequestStatus) {
				defer wg.Done()
				_, errs[i] = f.requests.Resolve(context.Background(), ResolveRequestInput{
					RequestID: req.ID, Decision: decision, ResolverID: f.managerID,
				})
			}(i, decision)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.True(t, apperrors.HasCode(err, apperrors.CodeAlreadyResolved), "got %v", err)
		}
		assert.Equal(t, 1, succeeded)

		final := f.request(t, req.ID)
		room := f.room(t, "305")
		switch final.Status {
		case models.RequestApproved:
			assert.Equal(t, 0, room.CurrentCount)
			assert.Nil(t, f.student(t, student.ID).RoomNumber)
		case models.RequestRejected:
			assert.Equal(t, 1, room.CurrentCount)
			assert.NotNil(t, f.student(t, student.ID).RoomNumber)
		default:
			t.Fatalf("request left in %s", final.Status)
		}
	})
}

func TestListRequests(t *testing.T) {
	forEachStore(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		for i := 0; i < 3; i++ {
			submit(t, f, models.RequestMaintenance, "")
		}
		other := submit(t, f, models.RequestOther, "")
		_, err := f.requests.Resolve(ctx, ResolveRequestInput{RequestID: other.ID, Decision: models.RequestApproved, ResolverID: f.managerID})
		require.NoError(t, err)

		page, err := f.requests.List(ctx, repositories.RequestFilter{Status: models.RequestPending})
		require.NoError(t, err)
		assert.Equal(t, 3, page.Total)
		assert.Len(t, page.Items, 3)
		assert.Equal(t, DefaultRequestLimit, page.Limit)

		page, err = f.requests.List(ctx, repositories.RequestFilter{Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, 4, page.Total)
		require.Len(t, page.Items, 2)
		assert.Equal(t, other.ID, page.Items[0].ID, "newest first")

		_, err = f.requests.List(ctx, repositories.RequestFilter{Status: "OPEN"})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
	})
}

func TestExecuteStudentDeletion(t *testing.T) {
	forEachStore(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		f.seedRoom(t, "405", 3, 2, models.RoomTypeStandard)
		student := f.seedStudent(t, "D-1", models.UniversityGovernment, models.RoomTypeStandard, "405")
		req := submit(t, f, models.RequestDeleteStudent, student.ID)

		err := f.requests.ExecuteStudentDeletion(ctx, req.ID, f.managerID)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput), "pending requests cannot be executed: %v", err)

		_, err = f.requests.Resolve(ctx, ResolveRequestInput{RequestID: req.ID, Decision: models.RequestApproved, ResolverID: f.managerID})
		require.NoError(t, err)
		assert.NotNil(t, f.student(t, student.ID).RoomNumber, "approval alone does not delete")

		err = f.requests.ExecuteStudentDeletion(ctx, req.ID, f.supervisorID)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized), "got %v", err)

		require.NoError(t, f.requests.ExecuteStudentDeletion(ctx, req.ID, f.managerID))
		assert.Equal(t, 1, f.room(t, "405").CurrentCount)

		err = f.store.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
			_, err := tx.Students().GetByID(ctx, student.ID)
			return err
		})
		assert.ErrorIs(t, err, repositories.ErrNotFound)

		err = f.requests.ExecuteStudentDeletion(ctx, req.ID, f.managerID)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound), "got %v", err)
		assert.Len(t, f.logs(t, models.ActionDeleteStudent), 1)
	})
}

func TestSubmitCarriesTypeSpecificDetails(t *testing.T) {
	forEachStore(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		target := f.seedRoom(t, "204", 3, 0, models.RoomTypeStandard)
		f.seedRoom(t, "101", 3, 1, models.RoomTypeStandard)
		student := f.seedStudent(t, "D-1", models.UniversityGovernment, models.RoomTypeStandard, "101")

		move, err := f.requests.Submit(ctx, SubmitRequestInput{
			Type: models.RequestRoomChange, RequesterID: f.supervisorID, StudentID: student.ID,
			Description: "wants a quieter wing", DesiredRoom: target.ID,
		})
		require.NoError(t, err)
		stored := f.request(t, move.ID)
		require.NotNil(t, stored.Payload.RoomChange)
		assert.Equal(t, "101", stored.Payload.RoomChange.FromRoom)
		assert.Equal(t, "204", stored.Payload.RoomChange.DesiredRoom)

		fix, err := f.requests.Submit(ctx, SubmitRequestInput{
			Type: models.RequestMaintenance, RequesterID: f.supervisorID,
			Description: "no hot water", RoomNumber: "101", Severity: models.SeverityHigh,
		})
		require.NoError(t, err)
		stored = f.request(t, fix.ID)
		require.NotNil(t, stored.Payload.Maintenance)
		assert.Equal(t, "101", stored.Payload.Maintenance.RoomNumber)
		assert.Equal(t, models.SeverityHigh, stored.Payload.Maintenance.Severity)

		removal, err := f.requests.Submit(ctx, SubmitRequestInput{
			Type: models.RequestDeleteStudent, RequesterID: f.supervisorID, StudentID: student.ID,
			Description: "left the university", Reason: " graduated ",
		})
		require.NoError(t, err)
		stored = f.request(t, removal.ID)
		require.NotNil(t, stored.Payload.DeleteStudent)
		assert.Equal(t, "graduated", stored.Payload.DeleteStudent.Reason)

		_, err = f.requests.Submit(ctx, SubmitRequestInput{
			Type: models.RequestMaintenance, RequesterID: f.supervisorID, Description: "x", Severity: "URGENT",
		})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput), "got %v", err)

		_, err = f.requests.Submit(ctx, SubmitRequestInput{
			Type: models.RequestRoomChange, RequesterID: f.supervisorID, StudentID: student.ID,
			Description: "x", DesiredRoom: "999",
		})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound), "got %v", err)
	})
}
