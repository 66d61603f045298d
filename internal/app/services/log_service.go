package services

import (
	"context"
	"strings"

	"github.com/yigit/unihousing/internal/app/audit"
	"github.com/yigit/unihousing/internal/app/auth"
	"github.com/yigit/unihousing/internal/app/models"
	"github.com/yigit/unihousing/internal/app/repositories"
	"github.com/yigit/unihousing/internal/pkg/apperrors"
)

// LogService exposes the audit trail to managers
type LogService struct {
	store    repositories.Store
	guard    *auth.AuthorizationService
	recorder *audit.Recorder
}

// NewLogService creates a new LogService
func NewLogService(store repositories.Store, guard *auth.AuthorizationService, recorder *audit.Recorder) *LogService {
	return &LogService{store: store, guard: guard, recorder: recorder}
}

// List returns audit entries newest first. Only active managers may read them.
func (s *LogService) List(ctx context.Context, requesterID string, filter repositories.LogFilter) ([]*models.Log, error) {
	err := s.store.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
		_, err := s.guard.RequireRole(ctx, tx, requesterID, models.RoleManager)
		return err
	})
	if err != nil {
		return nil, coded(err)
	}

	filter.Action = models.LogAction(strings.ToUpper(strings.TrimSpace(string(filter.Action))))
	if filter.Action != "" && !filter.Action.Valid() {
		return nil, apperrors.Newf(apperrors.CodeInvalidInput, "unknown log action %q", filter.Action)
	}
	return s.recorder.List(ctx, filter)
}
