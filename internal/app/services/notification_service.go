package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/yigit/unihousing/internal/app/auth"
	"github.com/yigit/unihousing/internal/app/models"
	"github.com/yigit/unihousing/internal/app/repositories"
	"github.com/yigit/unihousing/internal/pkg/apperrors"
	"github.com/yigit/unihousing/internal/pkg/email"
	"github.com/yigit/unihousing/internal/pkg/ids"
	"github.com/yigit/unihousing/internal/pkg/websocket"
)

const (
	// DefaultNotificationLimit caps a notification listing.
	DefaultNotificationLimit = 100

	emailTimeout = 15 * time.Second
)

// Pusher delivers live events to connected sessions
type Pusher interface {
	Push(event *websocket.Event)
}

// NotificationService stores per-user notifications and pushes them after commit
type NotificationService struct {
	store  repositories.Store
	guard  *auth.AuthorizationService
	pusher Pusher
	mailer email.Sender
	logger zerolog.Logger
}

// NewNotificationService creates a new NotificationService. pusher and mailer may be nil.
func NewNotificationService(store repositories.Store, guard *auth.AuthorizationService, pusher Pusher, mailer email.Sender, logger zerolog.Logger) *NotificationService {
	return &NotificationService{
		store:  store,
		guard:  guard,
		pusher: pusher,
		mailer: mailer,
		logger: logger.With().Str("service", "notification").Logger(),
	}
}

// outgoing is a notification created inside a unit of work, waiting for delivery.
type outgoing struct {
	note  *models.Notification
	email string
}

// stage creates a notification for recipient inside tx.
func (s *NotificationService) stage(ctx context.Context, tx repositories.Tx, recipient *models.User, kind models.NotificationKind, title, message string, requestID string, now time.Time) (outgoing, error) {
	note := &models.Notification{
		ID:        ids.NewSortableAt(now),
		UserID:    recipient.ID,
		Kind:      kind,
		Title:     title,
		Message:   message,
		CreatedAt: now,
	}
	if requestID != "" {
		note.RequestID = strPtr(requestID)
	}
	if err := tx.Notifications().Create(ctx, note); err != nil {
		return outgoing{}, apperrors.Storage(err)
	}
	return outgoing{note: note, email: recipient.Email}, nil
}

// dispatch pushes committed notifications to live sessions and mail. It never fails.
func (s *NotificationService) dispatch(ctx context.Context, batch []outgoing) {
	if len(batch) == 0 {
		return
	}
	for _, out := range batch {
		if s.pusher != nil {
			s.pusher.Push(&websocket.Event{
				Type:      "notification",
				UserID:    out.note.UserID,
				Data:      out.note,
				Timestamp: out.note.CreatedAt,
			})
		}
	}
	if s.mailer == nil {
		return
	}

	// Mail delivery is slow; the caller does not wait for it.
	ctx = context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, emailTimeout)
		defer cancel()
		for _, out := range batch {
			if out.email == "" {
				continue
			}
			msg := email.Message{To: []string{out.email}, Subject: out.note.Title, Body: out.note.Message}
			if err := s.mailer.Send(ctx, msg); err != nil {
				s.logger.Warn().Err(err).Str("userID", out.note.UserID).Str("notificationID", out.note.ID).Msg("Failed to email notification")
			}
		}
	}()
}

// ListForUser returns the user's notifications, newest first.
func (s *NotificationService) ListForUser(ctx context.Context, userID string, unreadOnly bool) ([]*models.Notification, error) {
	var notes []*models.Notification
	err := s.store.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
		if _, err := s.guard.RequireActive(ctx, tx, userID); err != nil {
			return err
		}
		var err error
		notes, err = tx.Notifications().ListByUser(ctx, userID, unreadOnly, DefaultNotificationLimit)
		return err
	})
	if err != nil {
		return nil, coded(err)
	}
	return notes, nil
}

// MarkRead marks one of the user's notifications read.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) (*models.Notification, error) {
	var note *models.Notification
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repositories.Tx) error {
		if _, err := s.guard.RequireActive(ctx, tx, userID); err != nil {
			return err
		}
		var err error
		note, err = tx.Notifications().GetByID(ctx, notificationID)
		if err != nil {
			return lookupErr(err, "notification")
		}
		// Other users' notifications are reported as missing.
		if note.UserID != userID {
			return apperrors.New(apperrors.CodeNotFound, "notification not found")
		}
		if note.IsRead {
			return nil
		}
		if err := tx.Notifications().MarkRead(ctx, note.ID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return apperrors.New(apperrors.CodeNotFound, "notification not found")
			}
			return apperrors.Storage(err)
		}
		note.IsRead = true
		return nil
	})
	if err != nil {
		return nil, coded(err)
	}
	return note, nil
}

// CheckRecipient verifies that userID may open a live notification stream.
func (s *NotificationService) CheckRecipient(ctx context.Context, userID string) error {
	err := s.store.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
		_, err := s.guard.RequireActive(ctx, tx, userID)
		return err
	})
	return coded(err)
}
