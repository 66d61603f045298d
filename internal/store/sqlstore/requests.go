package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/yigit/unihousing/internal/app/models"
	"github.com/yigit/unihousing/internal/app/repositories"
)

var requestColumns = []string{
	"id", "type", "status", "student_id", "payload", "requester_id",
	"resolver_id", "rejection_reason", "created_at", "resolved_at",
}

type requestRepo struct{ t *tx }

func scanRequest(row rowScanner) (*models.Request, error) {
	var (
		req                   models.Request
		payload               string
		createdAt, resolvedAt timeValue
	)
	err := row.Scan(
		&req.ID, &req.Type, &req.Status, &req.StudentID, &payload, &req.RequesterID,
		&req.ResolverID, &req.RejectionReason, &createdAt, &resolvedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(payload), &req.Payload); err != nil {
		return nil, fmt.Errorf("failed to decode payload of request %s: %w", req.ID, err)
	}
	req.CreatedAt = createdAt.Time
	req.ResolvedAt = resolvedAt.ptr()
	return &req, nil
}

func (r requestRepo) Create(ctx context.Context, req *models.Request) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	payload, err := json.Marshal(req.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode request payload: %w", err)
	}
	d := r.t.d
	_, err = r.t.exec(ctx, d.builder().Insert("requests").
		Columns(requestColumns...).
		Values(req.ID, string(req.Type), string(req.Status), req.StudentID, string(payload), req.RequesterID,
			req.ResolverID, req.RejectionReason, d.timeArg(req.CreatedAt), d.nullTimeArg(req.ResolvedAt)))
	return err
}

func (r requestRepo) GetByID(ctx context.Context, id string) (*models.Request, error) {
	query, args, err := r.t.d.builder().Select(requestColumns...).
		From("requests").
		Where(squirrel.Eq{"id": id}).
		Suffix(r.t.lock()).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get request query: %w", err)
	}
	return scanRequest(r.t.q.QueryRow(ctx, query, args...))
}

func (r requestRepo) Update(ctx context.Context, req *models.Request) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	payload, err := json.Marshal(req.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode request payload: %w", err)
	}
	d := r.t.d
	return r.t.execOne(ctx, d.builder().Update("requests").
		Set("status", string(req.Status)).
		Set("student_id", req.StudentID).
		Set("payload", string(payload)).
		Set("resolver_id", req.ResolverID).
		Set("rejection_reason", req.RejectionReason).
		Set("resolved_at", d.nullTimeArg(req.ResolvedAt)).
		Where(squirrel.Eq{"id": req.ID}))
}

func requestConditions(f repositories.RequestFilter) squirrel.And {
	cond := squirrel.And{}
	if f.Status != "" {
		cond = append(cond, squirrel.Eq{"status": string(f.Status)})
	}
	if f.Type != "" {
		cond = append(cond, squirrel.Eq{"type": string(f.Type)})
	}
	if f.RequesterID != "" {
		cond = append(cond, squirrel.Eq{"requester_id": f.RequesterID})
	}
	if f.StudentID != "" {
		cond = append(cond, squirrel.Eq{"student_id": f.StudentID})
	}
	return cond
}

func (r requestRepo) List(ctx context.Context, f repositories.RequestFilter) ([]*models.Request, error) {
	q := r.t.d.builder().Select(requestColumns...).
		From("requests").
		Where(requestConditions(f)).
		OrderBy("created_at DESC", "id DESC")
	query, args, err := paginate(q, f.Limit, f.Skip).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list requests query: %w", err)
	}

	rows, err := r.t.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := []*models.Request{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

func (r requestRepo) Count(ctx context.Context, f repositories.RequestFilter) (int, error) {
	query, args, err := r.t.d.builder().Select("COUNT(*)").
		From("requests").
		Where(requestConditions(f)).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count requests query: %w", err)
	}
	var n int
	if err := r.t.q.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
