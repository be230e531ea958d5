// Package repo contains all database access logic for the lending backend.
// Each record set has its own file with an interface and a Postgres
// implementation. No business logic lives here — only SQL, transaction
// control, and type mapping.
package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/libris-app/backend/internal/domain"
)

// db is the minimal query interface satisfied by *pgxpool.Pool, *pgx.Conn,
// and pgx.Tx. Accepting this interface instead of *pgxpool.Pool directly
// allows integration tests to pass a transaction that is rolled back after
// each test, giving free per-test isolation without any manual cleanup.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// txDB extends db with transaction control. It is satisfied by *pgxpool.Pool
// and *pgx.Conn but not by pgx.Tx — the lending repo owns its transactions
// and must be able to pick the isolation level, which a savepoint cannot do.
type txDB interface {
	db
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// scanner is satisfied by both pgx.Row and pgx.Rows, allowing the scan
// helpers to be reused for both QueryRow and Query calls.
type scanner interface {
	Scan(dest ...any) error
}

// Postgres SQLSTATE codes relevant to the serializable checkout/return
// transactions.
const (
	sqlstateSerializationFailure = "40001"
	sqlstateDeadlockDetected     = "40P01"
	sqlstateUniqueViolation      = "23505"
)

// isSerializationFailure reports whether err is a Postgres serialization
// loss (or deadlock, which SERIALIZABLE can also surface). These are the
// only errors worth re-running a transaction for: the transaction saw no
// partial effect and a retry may succeed.
func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == sqlstateSerializationFailure || pgErr.Code == sqlstateDeadlockDetected
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation. The active_checkouts.book_id UNIQUE index is the backstop for
// the one-active-checkout-per-book invariant; losing to it is equivalent to
// observing the book already on loan.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == sqlstateUniqueViolation
}

// mapTxError converts low-level transaction failures into domain errors
// after the retry budget has been spent. Serialization losses become
// ErrConflict and deadline expiry becomes ErrTimeout; domain sentinels and
// everything else pass through untouched.
func mapTxError(err error) error {
	switch {
	case err == nil:
		return nil
	case isSerializationFailure(err):
		return domain.ErrConflict
	case errors.Is(err, context.DeadlineExceeded):
		return domain.ErrTimeout
	default:
		return err
	}
}
