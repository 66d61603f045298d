package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/yigit/unihousing/internal/app/repositories"
)

// rowScanner is satisfied by both pgx.Row and *sql.Row.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// rowsIterator is the common subset of pgx.Rows and *sql.Rows.
type rowsIterator interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
	Close()
}

// querier runs statements inside one driver transaction.
type querier interface {
	Exec(ctx context.Context, query string, args ...interface{}) (int64, error)
	QueryRow(ctx context.Context, query string, args ...interface{}) rowScanner
	Query(ctx context.Context, query string, args ...interface{}) (rowsIterator, error)
}

// driverTx is a querier that can be finished.
type driverTx interface {
	querier
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// --- pgx ---

type pgxTx struct {
	tx pgx.Tx
}

func (t pgxTx) Exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	tag, err := t.tx.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (t pgxTx) QueryRow(ctx context.Context, query string, args ...interface{}) rowScanner {
	return notFoundRow{t.tx.QueryRow(ctx, query, args...)}
}

func (t pgxTx) Query(ctx context.Context, query string, args ...interface{}) (rowsIterator, error) {
	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (t pgxTx) Commit(ctx context.Context) error   { return t.tx.Commit(ctx) }
func (t pgxTx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }

// --- database/sql ---

type sqlTx struct {
	tx *sql.Tx
}

func (t sqlTx) Exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (t sqlTx) QueryRow(ctx context.Context, query string, args ...interface{}) rowScanner {
	return notFoundRow{t.tx.QueryRowContext(ctx, query, args...)}
}

func (t sqlTx) Query(ctx context.Context, query string, args ...interface{}) (rowsIterator, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return sqlRows{rows}, nil
}

func (t sqlTx) Commit(context.Context) error   { return t.tx.Commit() }
func (t sqlTx) Rollback(context.Context) error { return t.tx.Rollback() }

type sqlRows struct {
	*sql.Rows
}

func (r sqlRows) Close() { _ = r.Rows.Close() }

// notFoundRow maps both drivers' "no rows" errors to repositories.ErrNotFound.
type notFoundRow struct {
	row rowScanner
}

func (r notFoundRow) Scan(dest ...interface{}) error {
	err := r.row.Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
		return repositories.ErrNotFound
	}
	return err
}

func isTxDone(err error) bool {
	return errors.Is(err, pgx.ErrTxClosed) || errors.Is(err, sql.ErrTxDone)
}
