package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/yigit/unihousing/internal/app/audit"
	"github.com/yigit/unihousing/internal/app/auth"
	"github.com/yigit/unihousing/internal/app/models"
	"github.com/yigit/unihousing/internal/app/repositories"
	"github.com/yigit/unihousing/internal/pkg/apperrors"
	"github.com/yigit/unihousing/internal/pkg/filestorage"
	"github.com/yigit/unihousing/internal/pkg/ids"
	"github.com/yigit/unihousing/internal/pkg/tracing"
)

const backupKeyLayout = "2006-01-02T15-04-05"

// BackupResult describes a written backup
type BackupResult struct {
	Key       string    `json:"key"`
	Location  string    `json:"location"`
	SizeBytes int64     `json:"sizeBytes"`
	CreatedAt time.Time `json:"createdAt"`
	Driver    string    `json:"driver"`
}

// BackupService writes consistent JSON snapshots of the store
type BackupService struct {
	store    repositories.Store
	storage  filestorage.Storage
	guard    *auth.AuthorizationService
	recorder *audit.Recorder
	logger   zerolog.Logger
	now      Clock
}

// NewBackupService creates a new BackupService
func NewBackupService(store repositories.Store, storage filestorage.Storage, guard *auth.AuthorizationService, recorder *audit.Recorder, logger zerolog.Logger) *BackupService {
	return &BackupService{
		store:    store,
		storage:  storage,
		guard:    guard,
		recorder: recorder,
		logger:   logger.With().Str("service", "backup").Logger(),
		now:      utcNow,
	}
}

// BackupKey names the object holding a backup taken at t. The ULID suffix
// keeps keys distinct within the same second.
func BackupKey(t time.Time) string {
	return fmt.Sprintf("housing_backup_%s_%s.json", t.UTC().Format(backupKeyLayout), ids.NewSortableAt(t))
}

// Backup snapshots every entity and writes it to the configured storage.
func (s *BackupService) Backup(ctx context.Context, requesterID string) (result *BackupResult, err error) {
	ctx, span := tracing.Start(ctx, "backup.Backup")
	defer func() { finish(span, "backup", err) }()

	err = s.store.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
		_, err := s.guard.RequireRole(ctx, tx, requesterID, models.RoleManager)
		return err
	})
	if err != nil {
		return nil, coded(err)
	}

	snapshot, err := repositories.TakeSnapshot(ctx, s.store)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to take snapshot")
		return nil, apperrors.Storage(err)
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, apperrors.Storage(err)
	}

	key := BackupKey(s.now())
	info, err := s.storage.Put(ctx, key, data, "application/json")
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("Failed to write backup")
		return nil, apperrors.Storage(err)
	}

	result = &BackupResult{
		Key:       info.Key,
		Location:  info.Location,
		SizeBytes: info.SizeBytes,
		CreatedAt: info.CreatedAt,
		Driver:    string(s.storage.Driver()),
	}
	s.recorder.Record(ctx, audit.Entry{
		Action:      models.ActionBackupDatabase,
		ActorID:     requesterID,
		EntityType:  "backup",
		EntityID:    key,
		Description: fmt.Sprintf("Backed up database to %s", info.Location),
		Metadata: models.LogMetadata{
			"key":       key,
			"sizeBytes": info.SizeBytes,
			"students":  len(snapshot.Students),
			"rooms":     len(snapshot.Rooms),
			"requests":  len(snapshot.Requests),
		},
	})
	return result, nil
}
