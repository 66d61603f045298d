package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"

	"github.com/yigit/unihousing/internal/app/models"
	"github.com/yigit/unihousing/internal/app/repositories"
)

var studentColumns = []string{
	"id", "registration_number", "national_id", "first_name", "last_name", "email", "phone",
	"university", "room_type", "status", "room_number", "check_in_date", "created_at", "updated_at",
}

type studentRepo struct{ t *tx }

func scanStudent(row rowScanner) (*models.Student, error) {
	var (
		s                             models.Student
		checkIn, createdAt, updatedAt timeValue
	)
	err := row.Scan(
		&s.ID, &s.RegistrationNumber, &s.NationalID, &s.FirstName, &s.LastName, &s.Email, &s.Phone,
		&s.University, &s.RoomType, &s.Status, &s.RoomNumber, &checkIn, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.CheckInDate = checkIn.ptr()
	s.CreatedAt = createdAt.Time
	s.UpdatedAt = updatedAt.Time
	return &s, nil
}

func (r studentRepo) Create(ctx context.Context, s *models.Student) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	d := r.t.d
	_, err := r.t.exec(ctx, d.builder().Insert("students").
		Columns(studentColumns...).
		Values(s.ID, s.RegistrationNumber, s.NationalID, s.FirstName, s.LastName, s.Email, s.Phone,
			string(s.University), string(s.RoomType), string(s.Status), s.RoomNumber,
			d.nullTimeArg(s.CheckInDate), d.timeArg(s.CreatedAt), d.timeArg(s.UpdatedAt)))
	return err
}

func (r studentRepo) getBy(ctx context.Context, where squirrel.Sqlizer) (*models.Student, error) {
	query, args, err := r.t.d.builder().Select(studentColumns...).
		From("students").
		Where(where).
		Suffix(r.t.lock()).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get student query: %w", err)
	}
	return scanStudent(r.t.q.QueryRow(ctx, query, args...))
}

func (r studentRepo) GetByID(ctx context.Context, id string) (*models.Student, error) {
	return r.getBy(ctx, squirrel.Eq{"id": id})
}

func (r studentRepo) GetByRegistrationNumber(ctx context.Context, reg string) (*models.Student, error) {
	return r.getBy(ctx, squirrel.Eq{"registration_number": reg})
}

func (r studentRepo) Update(ctx context.Context, s *models.Student) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	d := r.t.d
	return r.t.execOne(ctx, d.builder().Update("students").
		Set("registration_number", s.RegistrationNumber).
		Set("national_id", s.NationalID).
		Set("first_name", s.FirstName).
		Set("last_name", s.LastName).
		Set("email", s.Email).
		Set("phone", s.Phone).
		Set("university", string(s.University)).
		Set("room_type", string(s.RoomType)).
		Set("status", string(s.Status)).
		Set("room_number", s.RoomNumber).
		Set("check_in_date", d.nullTimeArg(s.CheckInDate)).
		Set("updated_at", d.timeArg(s.UpdatedAt)).
		Where(squirrel.Eq{"id": s.ID}))
}

func (r studentRepo) Delete(ctx context.Context, id string) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	return r.t.execOne(ctx, r.t.d.builder().Delete("students").Where(squirrel.Eq{"id": id}))
}

func studentConditions(f repositories.StudentFilter) squirrel.And {
	cond := squirrel.And{}
	if f.Status != "" {
		cond = append(cond, squirrel.Eq{"status": string(f.Status)})
	}
	if f.RoomType != "" {
		cond = append(cond, squirrel.Eq{"room_type": string(f.RoomType)})
	}
	if f.University != "" {
		cond = append(cond, squirrel.Eq{"university": string(f.University)})
	}
	if f.RoomNumber != "" {
		cond = append(cond, squirrel.Eq{"room_number": f.RoomNumber})
	}
	if f.Housed != nil {
		if *f.Housed {
			cond = append(cond, squirrel.And{squirrel.NotEq{"room_number": nil}, squirrel.NotEq{"room_number": ""}})
		} else {
			cond = append(cond, squirrel.Or{squirrel.Eq{"room_number": nil}, squirrel.Eq{"room_number": ""}})
		}
	}
	if search := strings.ToLower(strings.TrimSpace(f.Search)); search != "" {
		pattern := "%" + search + "%"
		cond = append(cond, squirrel.Or{
			squirrel.Like{"LOWER(first_name)": pattern},
			squirrel.Like{"LOWER(last_name)": pattern},
			squirrel.Like{"LOWER(registration_number)": pattern},
		})
	}
	return cond
}

func (r studentRepo) List(ctx context.Context, f repositories.StudentFilter) ([]*models.Student, error) {
	q := r.t.d.builder().Select(studentColumns...).
		From("students").
		Where(studentConditions(f)).
		OrderBy("registration_number")
	query, args, err := paginate(q, f.Limit, f.Skip).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list students query: %w", err)
	}

	rows, err := r.t.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	students := []*models.Student{}
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

func (r studentRepo) Count(ctx context.Context, f repositories.StudentFilter) (int, error) {
	query, args, err := r.t.d.builder().Select("COUNT(*)").
		From("students").
		Where(studentConditions(f)).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count students query: %w", err)
	}
	var n int
	if err := r.t.q.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
