package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/unihousing/internal/app/auth"
	"github.com/yigit/unihousing/internal/app/models"
	"github.com/yigit/unihousing/internal/pkg/apperrors"
	"github.com/yigit/unihousing/internal/pkg/email"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []email.Message
}

func (m *recordingMailer) Send(_ context.Context, msg email.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) Sent() []email.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]email.Message(nil), m.sent...)
}

func TestMarkRead(t *testing.T) {
	forEachStore(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		submit(t, f, models.RequestMaintenance, "")

		notes, err := f.notifications.ListForUser(ctx, f.managerID, true)
		require.NoError(t, err)
		require.Len(t, notes, 1)

		_, err = f.notifications.MarkRead(ctx, f.supervisorID, notes[0].ID)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound), "other users' notifications are hidden: %v", err)

		read, err := f.notifications.MarkRead(ctx, f.managerID, notes[0].ID)
		require.NoError(t, err)
		assert.True(t, read.IsRead)

		unread, err := f.notifications.ListForUser(ctx, f.managerID, true)
		require.NoError(t, err)
		assert.Empty(t, unread)

		all, err := f.notifications.ListForUser(ctx, f.managerID, false)
		require.NoError(t, err)
		assert.Len(t, all, 1)

		_, err = f.notifications.MarkRead(ctx, f.managerID, "missing")
		assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	})
}

func TestSubmitEmailsManagers(t *testing.T) {
	forEachStore(t, func(t *testing.T, f *fixture) {
		mailer := &recordingMailer{}
		logger := zerolog.Nop()
		notifications := NewNotificationService(f.store, auth.NewAuthorizationService(logger), f.pusher, mailer, logger)
		requests := NewRequestService(f.store, auth.NewAuthorizationService(logger), f.occupancy, notifications, f.recorder, logger)

		_, err := requests.Submit(context.Background(), SubmitRequestInput{
			Type:        models.RequestMaintenance,
			RequesterID: f.supervisorID,
			Description: "leaking tap",
		})
		require.NoError(t, err)

		require.Eventually(t, func() bool { return len(mailer.Sent()) == 1 }, 2*time.Second, 10*time.Millisecond)
		msg := mailer.Sent()[0]
		assert.Equal(t, []string{"maya@housing.test"}, msg.To)
		assert.NotEmpty(t, msg.Subject)
	})
}
