package sqlstore

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/yigit/unihousing/internal/app/models"
)

var notificationColumns = []string{
	"id", "user_id", "kind", "title", "message", "request_id", "is_read", "created_at",
}

type notificationRepo struct{ t *tx }

func scanNotification(row rowScanner) (*models.Notification, error) {
	var (
		n         models.Notification
		createdAt timeValue
	)
	if err := row.Scan(&n.ID, &n.UserID, &n.Kind, &n.Title, &n.Message, &n.RequestID, &n.IsRead, &createdAt); err != nil {
		return nil, err
	}
	n.CreatedAt = createdAt.Time
	return &n, nil
}

func (r notificationRepo) Create(ctx context.Context, n *models.Notification) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	d := r.t.d
	_, err := r.t.exec(ctx, d.builder().Insert("notifications").
		Columns(notificationColumns...).
		Values(n.ID, n.UserID, string(n.Kind), n.Title, n.Message, n.RequestID, n.IsRead, d.timeArg(n.CreatedAt)))
	return err
}

func (r notificationRepo) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	query, args, err := r.t.d.builder().Select(notificationColumns...).
		From("notifications").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get notification query: %w", err)
	}
	return scanNotification(r.t.q.QueryRow(ctx, query, args...))
}

func (r notificationRepo) MarkRead(ctx context.Context, id string) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	return r.t.execOne(ctx, r.t.d.builder().Update("notifications").
		Set("is_read", true).
		Where(squirrel.Eq{"id": id}))
}

func (r notificationRepo) ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*models.Notification, error) {
	cond := squirrel.And{squirrel.Eq{"user_id": userID}}
	if unreadOnly {
		cond = append(cond, squirrel.Eq{"is_read": false})
	}
	q := r.t.d.builder().Select(notificationColumns...).
		From("notifications").
		Where(cond).
		OrderBy("created_at DESC", "id DESC")
	query, args, err := paginate(q, limit, 0).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list notifications query: %w", err)
	}

	rows, err := r.t.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := []*models.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}
