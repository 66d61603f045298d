// Package sqlstore implements the Entity Store on SQL databases. The same
// repositories run on PostgreSQL (pgxpool) and SQLite (database/sql).
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/yigit/unihousing/internal/app/repositories"
	"github.com/yigit/unihousing/internal/pkg/dberrors"
)

// DefaultTxTimeout bounds units of work started without a deadline.
const DefaultTxTimeout = 30 * time.Second

// Store is a SQL-backed Entity Store
type Store struct {
	dialect Dialect
	begin   func(ctx context.Context, readOnly bool) (driverTx, error)
	ping    func(ctx context.Context) error
	close   func() error
	logger  zerolog.Logger
}

// NewPostgres wraps a pgx pool.
func NewPostgres(pool *pgxpool.Pool, logger zerolog.Logger) *Store {
	return &Store{
		dialect: Postgres,
		begin: func(ctx context.Context, readOnly bool) (driverTx, error) {
			opts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadWrite}
			if readOnly {
				opts = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}
			}
			tx, err := pool.BeginTx(ctx, opts)
			if err != nil {
				return nil, err
			}
			return pgxTx{tx: tx}, nil
		},
		ping: pool.Ping,
		close: func() error {
			pool.Close()
			return nil
		},
		logger: logger,
	}
}

// NewSQL wraps a database/sql handle using dialect d.
func NewSQL(db *sql.DB, d Dialect, logger zerolog.Logger) *Store {
	return &Store{
		dialect: d,
		begin: func(ctx context.Context, _ bool) (driverTx, error) {
			tx, err := db.BeginTx(ctx, nil)
			if err != nil {
				return nil, err
			}
			return sqlTx{tx: tx}, nil
		},
		ping:   db.PingContext,
		close:  db.Close,
		logger: logger,
	}
}

// Dialect returns the store's dialect.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// WithTransaction runs fn within a read-write transaction
func (s *Store) WithTransaction(ctx context.Context, fn repositories.TransactionFn) error {
	return s.run(ctx, false, fn)
}

// View runs fn within a read-only transaction
func (s *Store) View(ctx context.Context, fn repositories.TransactionFn) error {
	return s.run(ctx, true, fn)
}

func (s *Store) run(ctx context.Context, readOnly bool, fn repositories.TransactionFn) error {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTxTimeout)
		defer cancel()
	}

	dtx, err := s.begin(ctx, readOnly)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	// Rollback on panic
	defer func() {
		if r := recover(); r != nil {
			_ = dtx.Rollback(ctx)
			panic(r)
		}
	}()

	t := &tx{q: dtx, d: s.dialect, readOnly: readOnly}
	if err := fn(ctx, t); err != nil {
		if rbErr := dtx.Rollback(ctx); rbErr != nil && !isTxDone(rbErr) {
			s.logger.Error().Err(rbErr).Msg("Failed to rollback transaction")
		}
		return err
	}

	if readOnly {
		// Nothing to persist; rollback releases the snapshot.
		if rbErr := dtx.Rollback(ctx); rbErr != nil && !isTxDone(rbErr) {
			s.logger.Warn().Err(rbErr).Msg("Failed to release read transaction")
		}
		return nil
	}

	if err := dtx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

// Close releases the underlying pool or handle.
func (s *Store) Close() error {
	return s.close()
}

type tx struct {
	q        querier
	d        Dialect
	readOnly bool
}

func (t *tx) Students() repositories.StudentRepository { return studentRepo{t} }
func (t *tx) Rooms() repositories.RoomRepository       { return roomRepo{t} }
func (t *tx) Requests() repositories.RequestRepository { return requestRepo{t} }
func (t *tx) Users() repositories.UserRepository       { return userRepo{t} }
func (t *tx) Logs() repositories.LogRepository         { return logRepo{t} }
func (t *tx) Notifications() repositories.NotificationRepository {
	return notificationRepo{t}
}

func (t *tx) writable() error {
	if t.readOnly {
		return repositories.ErrReadOnly
	}
	return nil
}

// lock returns the row-lock suffix for selects in write units of work.
func (t *tx) lock() string {
	if t.readOnly {
		return ""
	}
	return t.d.LockSuffix
}

// exec runs a built statement and maps unique and check violations.
func (t *tx) exec(ctx context.Context, b interface {
	ToSql() (string, []interface{}, error)
}) (int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build query: %w", err)
	}
	n, err := t.q.Exec(ctx, query, args...)
	if err != nil {
		if dberrors.IsUniqueViolation(err) {
			return 0, repositories.ErrDuplicate
		}
		if dberrors.IsCheckViolation(err) {
			return 0, repositories.ErrConstraint
		}
		return 0, err
	}
	return n, nil
}

// execOne is exec that requires exactly one affected row.
func (t *tx) execOne(ctx context.Context, b interface {
	ToSql() (string, []interface{}, error)
}) error {
	n, err := t.exec(ctx, b)
	if err != nil {
		return err
	}
	if n == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

var _ repositories.Store = (*Store)(nil)
