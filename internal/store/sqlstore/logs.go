package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/yigit/unihousing/internal/app/models"
	"github.com/yigit/unihousing/internal/app/repositories"
)

var logColumns = []string{
	"id", "action", "user_id", "entity_type", "entity_id", "metadata", "description", "created_at",
}

type logRepo struct{ t *tx }

func (r logRepo) Append(ctx context.Context, l *models.Log) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	metadata := []byte("{}")
	if len(l.Metadata) > 0 {
		var err error
		if metadata, err = json.Marshal(l.Metadata); err != nil {
			return fmt.Errorf("failed to encode log metadata: %w", err)
		}
	}
	d := r.t.d
	_, err := r.t.exec(ctx, d.builder().Insert("logs").
		Columns(logColumns...).
		Values(l.ID, string(l.Action), l.UserID, l.EntityType, l.EntityID, string(metadata),
			l.Description, d.timeArg(l.CreatedAt)))
	return err
}

func (r logRepo) List(ctx context.Context, f repositories.LogFilter) ([]*models.Log, error) {
	cond := squirrel.And{}
	if f.Action != "" {
		cond = append(cond, squirrel.Eq{"action": string(f.Action)})
	}
	if f.UserID != "" {
		cond = append(cond, squirrel.Eq{"user_id": f.UserID})
	}
	q := r.t.d.builder().Select(logColumns...).
		From("logs").
		Where(cond).
		OrderBy("created_at DESC", "id DESC")
	query, args, err := paginate(q, f.Limit, f.Skip).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list logs query: %w", err)
	}

	rows, err := r.t.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []*models.Log{}
	for rows.Next() {
		var (
			l         models.Log
			metadata  string
			createdAt timeValue
		)
		if err := rows.Scan(&l.ID, &l.Action, &l.UserID, &l.EntityType, &l.EntityID,
			&metadata, &l.Description, &createdAt); err != nil {
			return nil, err
		}
		if metadata != "" {
			if err := json.Unmarshal([]byte(metadata), &l.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode metadata of log %s: %w", l.ID, err)
			}
		}
		l.CreatedAt = createdAt.Time
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}
