package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/classbooking/internal/domain"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	instructor       TEXT NOT NULL DEFAULT '',
	day_of_week      TEXT NOT NULL,
	start_time       TEXT NOT NULL,
	duration_minutes INTEGER NOT NULL DEFAULT 60,
	capacity         INTEGER NOT NULL CHECK (capacity > 0),
	booked_count     INTEGER NOT NULL DEFAULT 0,
	waitlist_count   INTEGER NOT NULL DEFAULT 0 CHECK (waitlist_count >= 0),
	cancelled        INTEGER NOT NULL DEFAULT 0,
	CHECK (booked_count >= 0 AND booked_count <= capacity)
);

CREATE TABLE IF NOT EXISTS bookings (
	key           TEXT PRIMARY KEY,
	session_id    TEXT NOT NULL REFERENCES sessions (id),
	member_name   TEXT NOT NULL,
	member_email  TEXT NOT NULL,
	member_age    INTEGER NOT NULL,
	health_notes  TEXT NOT NULL DEFAULT '',
	created_at    TEXT NOT NULL,
	reminder_sent INTEGER NOT NULL DEFAULT 0,
	device_token  TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS bookings_session_idx ON bookings (session_id, reminder_sent);

CREATE TABLE IF NOT EXISTS waitlist_entries (
	session_id   TEXT NOT NULL REFERENCES sessions (id),
	key          TEXT NOT NULL,
	member_name  TEXT NOT NULL,
	member_email TEXT NOT NULL,
	member_age   INTEGER NOT NULL,
	created_at   TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'waiting',
	device_token TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (session_id, key)
);
`

// OpenSQLite opens (creating if needed) the database file at path and
// applies the schema. A single connection is kept open so every write
// transaction is serialized.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return db, nil
}

type sqliteTxKey struct{}

func withSQLiteTx(ctx context.Context, db *sql.DB, fn func(ctx context.Context) error) error {
	if sqliteTxFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return sqliteError("begin tx", err)
	}

	txCtx := context.WithValue(ctx, sqliteTxKey{}, tx)
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return sqliteError("commit tx", err)
	}
	return nil
}

func sqliteTxFromContext(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(sqliteTxKey{}).(*sql.Tx)
	return tx
}

type sqliteQuerier struct {
	db *sql.DB
}

func (q sqliteQuerier) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if tx := sqliteTxFromContext(ctx); tx != nil {
		return tx.ExecContext(ctx, query, args...)
	}
	return q.db.ExecContext(ctx, query, args...)
}

func (q sqliteQuerier) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	if tx := sqliteTxFromContext(ctx); tx != nil {
		return tx.QueryRowContext(ctx, query, args...)
	}
	return q.db.QueryRowContext(ctx, query, args...)
}

func (q sqliteQuerier) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if tx := sqliteTxFromContext(ctx); tx != nil {
		return tx.QueryContext(ctx, query, args...)
	}
	return q.db.QueryContext(ctx, query, args...)
}

func sqliteCode(err error) int {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code()
	}
	return 0
}

func isSQLiteUniqueViolation(err error) bool {
	code := sqliteCode(err)
	return code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

func sqliteError(op string, err error) error {
	switch sqliteCode(err) & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return fmt.Errorf("%s: %w: %w", op, domain.ErrTransientConflict, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func formatSQLiteTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseSQLiteTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
