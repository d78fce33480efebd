// Package sqlstore implements store.Store on sqlx for PostgreSQL (pgx) and
// SQLite (modernc). Queries are written with ? placeholders and rebound per
// driver.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"medstore/m/internal/database"
	"medstore/m/internal/store"
)

// Store is the SQL implementation of store.Store.
type Store struct {
	db       *sqlx.DB
	postgres bool
}

var _ store.Store = (*Store)(nil)

func New(db *sqlx.DB) *Store {
	return &Store{db: db, postgres: database.IsPostgres(db)}
}

// WithTx runs fn in a read-committed transaction on PostgreSQL; row locks
// come from SELECT ... FOR UPDATE. SQLite runs on a single connection, so its
// transactions are already serialised.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	var opts *sql.TxOptions
	if s.postgres {
		opts = &sql.TxOptions{Isolation: sql.LevelReadCommitted}
	}
	tx, err := s.db.BeginTxx(ctx, opts)
	if err != nil {
		return mapErr(fmt.Errorf("begin tx: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(ctx, &sqlTx{tx: tx, postgres: s.postgres}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapErr(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

// mapErr translates driver errors into the store sentinels and keeps the
// original error in the chain.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
		case "40001", "40P01", "55P03":
			return fmt.Errorf("%w: %v", store.ErrConflict, err)
		}
		return err
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		switch {
		case code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
		case code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(err.Error(), "UNIQUE"):
			return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
		case code&0xff == sqlite3.SQLITE_BUSY || code&0xff == sqlite3.SQLITE_LOCKED:
			return fmt.Errorf("%w: %v", store.ErrConflict, err)
		}
	}
	return err
}

type sqlTx struct {
	tx       *sqlx.Tx
	postgres bool
}

// forUpdate appends the row lock clause where the dialect has one.
func (t *sqlTx) forUpdate(query string) string {
	if t.postgres {
		query += " FOR UPDATE"
	}
	return t.tx.Rebind(query)
}

func (t *sqlTx) get(ctx context.Context, dest any, query string, args ...any) error {
	return mapErr(t.tx.GetContext(ctx, dest, t.tx.Rebind(query), args...))
}

func (t *sqlTx) exec(ctx context.Context, query string, args ...any) error {
	_, err := t.tx.ExecContext(ctx, t.tx.Rebind(query), args...)
	return mapErr(err)
}

// execOne is exec for statements that must touch exactly one row.
func (t *sqlTx) execOne(ctx context.Context, query string, args ...any) error {
	res, err := t.tx.ExecContext(ctx, t.tx.Rebind(query), args...)
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// insert runs an INSERT ... RETURNING id and stores the id.
func (t *sqlTx) insert(ctx context.Context, id *int64, query string, args ...any) error {
	return mapErr(t.tx.QueryRowxContext(ctx, t.tx.Rebind(query+" RETURNING id"), args...).Scan(id))
}

func (s *Store) get(ctx context.Context, dest any, query string, args ...any) error {
	return mapErr(s.db.GetContext(ctx, dest, s.db.Rebind(query), args...))
}

func (s *Store) sel(ctx context.Context, dest any, query string, args ...any) error {
	return mapErr(s.db.SelectContext(ctx, dest, s.db.Rebind(query), args...))
}

func like(s string) string {
	return "%" + strings.ToLower(strings.TrimSpace(s)) + "%"
}
