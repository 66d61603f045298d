package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"

	"github.com/yigit/unihousing/internal/app/models"
	"github.com/yigit/unihousing/internal/app/repositories"
)

var roomColumns = []string{
	"id", "room_number", "floor", "wing", "kind", "capacity", "room_type",
	"current_count", "is_occupied", "created_at", "updated_at",
}

type roomRepo struct{ t *tx }

func scanRoom(row rowScanner) (*models.Room, error) {
	var (
		room                 models.Room
		createdAt, updatedAt timeValue
	)
	err := row.Scan(
		&room.ID, &room.RoomNumber, &room.Floor, &room.Wing, &room.Kind, &room.Capacity, &room.RoomType,
		&room.CurrentCount, &room.IsOccupied, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	room.CreatedAt = createdAt.Time
	room.UpdatedAt = updatedAt.Time
	return &room, nil
}

func (r roomRepo) Create(ctx context.Context, room *models.Room) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	d := r.t.d
	_, err := r.t.exec(ctx, d.builder().Insert("rooms").
		Columns(roomColumns...).
		Values(room.ID, room.RoomNumber, room.Floor, room.Wing, string(room.Kind), room.Capacity,
			string(room.RoomType), room.CurrentCount, room.IsOccupied,
			d.timeArg(room.CreatedAt), d.timeArg(room.UpdatedAt)))
	return err
}

func (r roomRepo) getBy(ctx context.Context, where squirrel.Sqlizer) (*models.Room, error) {
	query, args, err := r.t.d.builder().Select(roomColumns...).
		From("rooms").
		Where(where).
		Suffix(r.t.lock()).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get room query: %w", err)
	}
	return scanRoom(r.t.q.QueryRow(ctx, query, args...))
}

func (r roomRepo) GetByID(ctx context.Context, id string) (*models.Room, error) {
	return r.getBy(ctx, squirrel.Eq{"id": id})
}

func (r roomRepo) GetByNumber(ctx context.Context, number string) (*models.Room, error) {
	return r.getBy(ctx, squirrel.Eq{"room_number": number})
}

func (r roomRepo) Update(ctx context.Context, room *models.Room) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	d := r.t.d
	return r.t.execOne(ctx, d.builder().Update("rooms").
		Set("floor", room.Floor).
		Set("wing", room.Wing).
		Set("kind", string(room.Kind)).
		Set("capacity", room.Capacity).
		Set("room_type", string(room.RoomType)).
		Set("current_count", room.CurrentCount).
		Set("is_occupied", room.IsOccupied).
		Set("updated_at", d.timeArg(room.UpdatedAt)).
		Where(squirrel.Eq{"id": room.ID}))
}

func (r roomRepo) Delete(ctx context.Context, id string) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	return r.t.execOne(ctx, r.t.d.builder().Delete("rooms").Where(squirrel.Eq{"id": id}))
}

func (r roomRepo) List(ctx context.Context, f repositories.RoomFilter) ([]*models.Room, error) {
	cond := squirrel.And{}
	switch f.Status {
	case repositories.RoomStatusAvailable:
		cond = append(cond,
			squirrel.Eq{"kind": string(models.RoomKindResidential)},
			squirrel.Expr("current_count < capacity"))
	case repositories.RoomStatusOccupied:
		cond = append(cond,
			squirrel.Eq{"kind": string(models.RoomKindResidential)},
			squirrel.Expr("current_count >= capacity"))
	case repositories.RoomStatusStorage:
		cond = append(cond, squirrel.Eq{"kind": string(models.RoomKindStorage)})
	}
	if f.Floor != nil {
		cond = append(cond, squirrel.Eq{"floor": *f.Floor})
	}
	if f.Wing != "" {
		cond = append(cond, squirrel.Eq{"wing": strings.ToUpper(f.Wing)})
	}
	if f.RoomType != "" {
		cond = append(cond, squirrel.Eq{"room_type": string(f.RoomType)})
	}
	if f.Kind != "" {
		cond = append(cond, squirrel.Eq{"kind": string(f.Kind)})
	}

	query, args, err := r.t.d.builder().Select(roomColumns...).
		From("rooms").
		Where(cond).
		OrderBy("room_number").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list rooms query: %w", err)
	}

	rows, err := r.t.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rooms := []*models.Room{}
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}
