// Package audit records state-changing operations. Recording is best-effort:
// it runs after the operation's unit of work has committed and its failures
// never reach the caller.
package audit

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/yigit/unihousing/internal/app/models"
	"github.com/yigit/unihousing/internal/app/repositories"
	"github.com/yigit/unihousing/internal/pkg/apperrors"
	"github.com/yigit/unihousing/internal/pkg/helpers"
	"github.com/yigit/unihousing/internal/pkg/ids"
	"github.com/yigit/unihousing/internal/pkg/metrics"
)

const (
	// DefaultListLimit applies when a log listing has no limit.
	DefaultListLimit = 100
	// MaxListLimit caps a log listing.
	MaxListLimit = 500

	recordTimeout = 5 * time.Second
)

// Entry describes one state change.
type Entry struct {
	Action      models.LogAction
	ActorID     string
	EntityType  string
	EntityID    string
	Description string
	Metadata    models.LogMetadata
}

// Sink receives every log that was appended to the store.
type Sink interface {
	Name() string
	Publish(ctx context.Context, log *models.Log) error
}

// Recorder appends audit logs and fans them out to sinks.
type Recorder struct {
	store  repositories.Store
	sinks  []Sink
	logger zerolog.Logger
	now    func() time.Time
}

// NewRecorder creates a Recorder. Sinks are optional.
func NewRecorder(store repositories.Store, logger zerolog.Logger, sinks ...Sink) *Recorder {
	return &Recorder{
		store:  store,
		sinks:  sinks,
		logger: logger.With().Str("component", "audit").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Record appends e in its own unit of work. It never fails: errors are
// logged and counted.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	// The caller's request may already be finished.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	entry := r.build(e)
	err := r.store.WithTransaction(ctx, func(ctx context.Context, tx repositories.Tx) error {
		return tx.Logs().Append(ctx, entry)
	})
	if err != nil {
		metrics.AuditFailure("store")
		r.logger.Error().Err(err).
			Str("action", string(entry.Action)).
			Str("userID", entry.UserID).
			Str("entityID", entry.EntityID).
			Msg("Failed to append audit log")
		return
	}

	r.logger.Info().
		Str("logID", entry.ID).
		Str("action", string(entry.Action)).
		Str("userID", entry.UserID).
		Str("entityType", entry.EntityType).
		Str("entityID", entry.EntityID).
		Fields(map[string]interface{}(entry.Metadata)).
		Msg(entry.Description)

	for _, sink := range r.sinks {
		if err := sink.Publish(ctx, entry); err != nil {
			metrics.AuditFailure(sink.Name())
			r.logger.Warn().Err(err).Str("sink", sink.Name()).Str("logID", entry.ID).Msg("Failed to publish audit log")
		}
	}
}

func (r *Recorder) build(e Entry) *models.Log {
	now := r.now()
	metadata := e.Metadata
	if metadata == nil {
		metadata = models.LogMetadata{}
	}
	return &models.Log{
		ID:          ids.NewSortableAt(now),
		Action:      e.Action,
		UserID:      e.ActorID,
		EntityType:  e.EntityType,
		EntityID:    e.EntityID,
		Metadata:    metadata,
		Description: e.Description,
		CreatedAt:   now,
	}
}

// List returns logs newest first.
func (r *Recorder) List(ctx context.Context, filter repositories.LogFilter) ([]*models.Log, error) {
	filter.Limit, filter.Skip = helpers.ClampPage(filter.Limit, filter.Skip, DefaultListLimit, MaxListLimit)

	var logs []*models.Log
	err := r.store.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
		var err error
		logs, err = tx.Logs().List(ctx, filter)
		return err
	})
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to list audit logs")
		return nil, apperrors.Storage(err)
	}
	return logs, nil
}
