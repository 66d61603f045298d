package sqlstore

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/yigit/unihousing/internal/app/models"
	"github.com/yigit/unihousing/internal/app/repositories"
)

var userColumns = []string{
	"id", "name", "email", "password_hash", "role", "is_active",
	"must_change_password", "created_at", "updated_at",
}

type userRepo struct{ t *tx }

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u                    models.User
		createdAt, updatedAt timeValue
	)
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive,
		&u.MustChangePassword, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.CreatedAt = createdAt.Time
	u.UpdatedAt = updatedAt.Time
	return &u, nil
}

func (r userRepo) Create(ctx context.Context, u *models.User) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	d := r.t.d
	_, err := r.t.exec(ctx, d.builder().Insert("users").
		Columns(userColumns...).
		Values(u.ID, u.Name, models.NormalizeEmail(u.Email), u.PasswordHash, string(u.Role), u.IsActive,
			u.MustChangePassword, d.timeArg(u.CreatedAt), d.timeArg(u.UpdatedAt)))
	return err
}

func (r userRepo) getBy(ctx context.Context, where squirrel.Sqlizer) (*models.User, error) {
	query, args, err := r.t.d.builder().Select(userColumns...).
		From("users").
		Where(where).
		Suffix(r.t.lock()).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get user query: %w", err)
	}
	return scanUser(r.t.q.QueryRow(ctx, query, args...))
}

func (r userRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getBy(ctx, squirrel.Eq{"id": id})
}

func (r userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getBy(ctx, squirrel.Eq{"email": models.NormalizeEmail(email)})
}

func (r userRepo) Update(ctx context.Context, u *models.User) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	d := r.t.d
	return r.t.execOne(ctx, d.builder().Update("users").
		Set("name", u.Name).
		Set("email", models.NormalizeEmail(u.Email)).
		Set("password_hash", u.PasswordHash).
		Set("role", string(u.Role)).
		Set("is_active", u.IsActive).
		Set("must_change_password", u.MustChangePassword).
		Set("updated_at", d.timeArg(u.UpdatedAt)).
		Where(squirrel.Eq{"id": u.ID}))
}

func (r userRepo) Delete(ctx context.Context, id string) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	return r.t.execOne(ctx, r.t.d.builder().Delete("users").Where(squirrel.Eq{"id": id}))
}

func (r userRepo) List(ctx context.Context, f repositories.UserFilter) ([]*models.User, error) {
	cond := squirrel.And{}
	if f.Role != "" {
		cond = append(cond, squirrel.Eq{"role": string(f.Role)})
	}
	if f.ActiveOnly {
		cond = append(cond, squirrel.Eq{"is_active": true})
	}
	query, args, err := r.t.d.builder().Select(userColumns...).
		From("users").
		Where(cond).
		OrderBy("created_at", "email").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list users query: %w", err)
	}

	rows, err := r.t.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CountActiveManagers selects the manager rows rather than COUNT(*) so that
// the rows can be locked; aggregates cannot be combined with FOR UPDATE.
// Rows are locked in id order.
func (r userRepo) CountActiveManagers(ctx context.Context) (int, error) {
	query, args, err := r.t.d.builder().Select("id").
		From("users").
		Where(squirrel.Eq{"role": string(models.RoleManager), "is_active": true}).
		OrderBy("id").
		Suffix(r.t.lock()).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count managers query: %w", err)
	}

	rows, err := r.t.q.Query(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return 0, err
		}
		n++
	}
	return n, rows.Err()
}
