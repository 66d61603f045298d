package sqlstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/unihousing/internal/app/models"
	"github.com/yigit/unihousing/internal/app/repositories"
)

func TestSQLTxCommitsOnSuccess(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewSQL(db, SQLite, zerolog.Nop())

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE notifications SET is_read").
		WithArgs(true, "n1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = store.WithTransaction(context.Background(), func(ctx context.Context, tx repositories.Tx) error {
		return tx.Notifications().MarkRead(ctx, "n1")
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLTxRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewSQL(db, SQLite, zerolog.Nop())
	dbErr := errors.New("disk I/O error")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO rooms").WillReturnError(dbErr)
	mock.ExpectRollback()

	err = store.WithTransaction(context.Background(), func(ctx context.Context, tx repositories.Tx) error {
		now := time.Now()
		return tx.Rooms().Create(ctx, &models.Room{
			ID: "r1", RoomNumber: "101", Floor: 1, Kind: models.RoomKindResidential,
			Capacity: 3, RoomType: models.RoomTypeStandard, CreatedAt: now, UpdatedAt: now,
		})
	})
	assert.ErrorIs(t, err, dbErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLTxZeroRowsIsNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewSQL(db, SQLite, zerolog.Nop())

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM rooms").WithArgs("r1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err = store.WithTransaction(context.Background(), func(ctx context.Context, tx repositories.Tx) error {
		return tx.Rooms().Delete(ctx, "r1")
	})
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLViewAlwaysRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewSQL(db, SQLite, zerolog.Nop())

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM students").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	mock.ExpectRollback()

	var n int
	err = store.View(context.Background(), func(ctx context.Context, tx repositories.Tx) error {
		var err error
		n, err = tx.Students().Count(ctx, repositories.StudentFilter{})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLBeginFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewSQL(db, SQLite, zerolog.Nop())
	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	err = store.WithTransaction(context.Background(), func(context.Context, repositories.Tx) error {
		t.Fatal("fn must not run")
		return nil
	})
	assert.ErrorContains(t, err, "failed to begin transaction")
}

func TestCountActiveManagersOrdersRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewSQL(db, SQLite, zerolog.Nop())

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM users WHERE .+ ORDER BY id`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("m1").AddRow("m2"))
	mock.ExpectCommit()

	var n int
	err = store.WithTransaction(context.Background(), func(ctx context.Context, tx repositories.Tx) error {
		var err error
		n, err = tx.Users().CountActiveManagers(ctx)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
