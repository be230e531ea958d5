package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/sethvargo/go-retry"

	"github.com/libris-app/backend/internal/domain"
)

// conflictBackoff is the pause between re-runs of a transaction that lost a
// serialization race. Losses resolve as soon as the winning transaction
// commits, so a short constant backoff is enough.
const conflictBackoff = 5 * time.Millisecond

// DefaultConflictRetries bounds how many times a checkout or return
// transaction is re-run after losing a serialization race before the loss
// surfaces to the caller as domain.ErrConflict.
const DefaultConflictRetries = 3

// LendingRepo defines the lending state operations. CreateCheckout and
// CloseCheckout are the transactional core: each runs verify-then-mutate
// inside a single SERIALIZABLE transaction so that two concurrent checkouts
// of the same book can never both observe it as available. The List methods
// are read-only projections over a snapshot read.
type LendingRepo interface {
	// CreateCheckout records a new loan of bookID to borrowerID at the given
	// time and returns the created record with its generated checkout id.
	// Returns domain.ErrNotFound if the book does not exist,
	// domain.ErrAlreadyCheckedOut if it already has an active checkout,
	// domain.ErrConflict after exhausting the serialization retry budget,
	// and domain.ErrTimeout if the context deadline expired.
	CreateCheckout(ctx context.Context, bookID, borrowerID uuid.UUID, at time.Time) (domain.ActiveCheckout, error)

	// CloseCheckout returns a book: it moves the active checkout row into
	// the returned_checkouts history, stamped with the given return time.
	// The (checkoutID, borrowerID) pair must match the recorded active
	// checkout exactly. Returns domain.ErrNotFound if the book does not
	// exist, domain.ErrNotCheckedOut if it has no active checkout,
	// domain.ErrReturnMismatch if the pair differs from the record, and
	// domain.ErrConflict / domain.ErrTimeout as CreateCheckout does.
	CloseCheckout(ctx context.Context, checkoutID, bookID, borrowerID uuid.UUID, at time.Time) error

	// ListActive returns all active checkouts, newest first.
	ListActive(ctx context.Context) ([]domain.ActiveCheckout, error)

	// ListActiveByBorrower returns the borrower's active checkouts, newest first.
	ListActiveByBorrower(ctx context.Context, borrowerID uuid.UUID) ([]domain.ActiveCheckout, error)

	// ListHistoryByBook returns the book's completed loans, most recently
	// returned first. Book existence is the caller's concern; an unknown
	// book simply has an empty history.
	ListHistoryByBook(ctx context.Context, bookID uuid.UUID) ([]domain.ReturnedCheckout, error)
}

// pgLendingRepo is the Postgres implementation of LendingRepo.
type pgLendingRepo struct {
	db      txDB
	retries uint64
	// newID generates checkout ids. Overridable in tests; uuid.New in production.
	newID func() uuid.UUID
}

// NewLendingRepo constructs a LendingRepo backed by the provided connection.
// conflictRetries bounds the serialization-conflict retry loop; pass
// DefaultConflictRetries unless config says otherwise.
func NewLendingRepo(db txDB, conflictRetries uint64) LendingRepo {
	return &pgLendingRepo{db: db, retries: conflictRetries, newID: uuid.New}
}

// lendingState classifies a book's lending state as observed inside an open
// transaction. The read and the subsequent write happen in the same
// SERIALIZABLE transaction, so the classification cannot be invalidated by
// a concurrent commit without the whole transaction failing with a
// serialization error.
type lendingState int

const (
	stateBookNotFound lendingState = iota
	stateAvailable
	stateOnLoan
)

// loanRecord is the active checkout tuple returned alongside stateOnLoan.
type loanRecord struct {
	checkoutID uuid.UUID
	borrowerID uuid.UUID
}

// classifyLending performs the precondition read for both flows: one row
// joining the book against its active checkout, if any.
func classifyLending(ctx context.Context, tx pgx.Tx, bookID uuid.UUID) (lendingState, loanRecord, error) {
	const q = `
		SELECT b.id, c.checkout_id, c.borrower_id
		FROM books AS b
		LEFT OUTER JOIN active_checkouts AS c ON c.book_id = b.id
		WHERE b.id = @book_id`

	var bID, cID, brID pgtype.UUID
	err := tx.QueryRow(ctx, q, pgx.NamedArgs{"book_id": bookID}).Scan(&bID, &cID, &brID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return stateBookNotFound, loanRecord{}, nil
		}
		return stateBookNotFound, loanRecord{}, fmt.Errorf("classify lending state: %w", err)
	}

	if !cID.Valid {
		return stateAvailable, loanRecord{}, nil
	}
	return stateOnLoan, loanRecord{
		checkoutID: uuid.UUID(cID.Bytes),
		borrowerID: uuid.UUID(brID.Bytes),
	}, nil
}

// CreateCheckout runs the checkout transaction, re-running it on
// serialization losses up to the configured budget.
func (r *pgLendingRepo) CreateCheckout(ctx context.Context, bookID, borrowerID uuid.UUID, at time.Time) (domain.ActiveCheckout, error) {
	var created domain.ActiveCheckout

	backoff := retry.WithMaxRetries(r.retries, retry.NewConstant(conflictBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		checkout, err := r.createCheckoutTx(ctx, bookID, borrowerID, at)
		if err != nil {
			if isSerializationFailure(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		created = checkout
		return nil
	})
	if err != nil {
		return domain.ActiveCheckout{}, fmt.Errorf("repo.LendingRepo.CreateCheckout: %w", mapTxError(err))
	}
	return created, nil
}

// createCheckoutTx is one attempt of the checkout flow: verify the book is
// available, insert the active checkout, commit.
func (r *pgLendingRepo) createCheckoutTx(ctx context.Context, bookID, borrowerID uuid.UUID, at time.Time) (domain.ActiveCheckout, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return domain.ActiveCheckout{}, fmt.Errorf("begin: %w", err)
	}
	// Rollback after a successful commit is a no-op; this guarantees no
	// partial effect survives any early return below.
	defer tx.Rollback(ctx) //nolint:errcheck

	state, _, err := classifyLending(ctx, tx, bookID)
	if err != nil {
		return domain.ActiveCheckout{}, err
	}
	switch state {
	case stateBookNotFound:
		return domain.ActiveCheckout{}, domain.ErrNotFound
	case stateOnLoan:
		return domain.ActiveCheckout{}, domain.ErrAlreadyCheckedOut
	}

	checkout := domain.ActiveCheckout{
		CheckoutID:   r.newID(),
		BookID:       bookID,
		BorrowerID:   borrowerID,
		CheckedOutAt: at,
	}

	const q = `
		INSERT INTO active_checkouts (checkout_id, book_id, borrower_id, checked_out_at)
		VALUES (@checkout_id, @book_id, @borrower_id, @checked_out_at)`

	tag, err := tx.Exec(ctx, q, pgx.NamedArgs{
		"checkout_id":    checkout.CheckoutID,
		"book_id":        checkout.BookID,
		"borrower_id":    checkout.BorrowerID,
		"checked_out_at": checkout.CheckedOutAt,
	})
	if err != nil {
		// The UNIQUE index on book_id is the backstop for the
		// one-active-checkout-per-book invariant on stores running below
		// SERIALIZABLE; losing to it means the book is already on loan.
		if isUniqueViolation(err) {
			return domain.ActiveCheckout{}, domain.ErrAlreadyCheckedOut
		}
		return domain.ActiveCheckout{}, fmt.Errorf("insert active checkout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ActiveCheckout{}, domain.ErrWriteAnomaly
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.ActiveCheckout{}, fmt.Errorf("commit: %w", err)
	}
	return checkout, nil
}

// CloseCheckout runs the return transaction with the same retry policy as
// CreateCheckout.
func (r *pgLendingRepo) CloseCheckout(ctx context.Context, checkoutID, bookID, borrowerID uuid.UUID, at time.Time) error {
	backoff := retry.WithMaxRetries(r.retries, retry.NewConstant(conflictBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := r.closeCheckoutTx(ctx, checkoutID, bookID, borrowerID, at); err != nil {
			if isSerializationFailure(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("repo.LendingRepo.CloseCheckout: %w", mapTxError(err))
	}
	return nil
}

// closeCheckoutTx is one attempt of the return flow: verify the active
// checkout matches the request, copy it into the history, delete it, commit.
// Both mutations must affect exactly one row; anything else aborts the
// transaction with domain.ErrWriteAnomaly rather than committing a state
// that violates the active-XOR-returned invariant.
func (r *pgLendingRepo) closeCheckoutTx(ctx context.Context, checkoutID, bookID, borrowerID uuid.UUID, at time.Time) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	state, loan, err := classifyLending(ctx, tx, bookID)
	if err != nil {
		return err
	}
	switch state {
	case stateBookNotFound:
		return domain.ErrNotFound
	case stateAvailable:
		return domain.ErrNotCheckedOut
	}
	if loan.checkoutID != checkoutID || loan.borrowerID != borrowerID {
		return fmt.Errorf("%w: active checkout is (%s, borrower %s), request named (%s, borrower %s)",
			domain.ErrReturnMismatch, loan.checkoutID, loan.borrowerID, checkoutID, borrowerID)
	}

	// Copy the active row into the history with the return timestamp added.
	// INSERT ... SELECT keeps the copied fields authoritative: they come
	// from the row itself, not from the request.
	const insertQ = `
		INSERT INTO returned_checkouts (checkout_id, book_id, borrower_id, checked_out_at, returned_at)
		SELECT checkout_id, book_id, borrower_id, checked_out_at, @returned_at
		FROM active_checkouts
		WHERE checkout_id = @checkout_id`

	tag, err := tx.Exec(ctx, insertQ, pgx.NamedArgs{
		"checkout_id": checkoutID,
		"returned_at": at,
	})
	if err != nil {
		return fmt.Errorf("insert returned checkout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrWriteAnomaly
	}

	const deleteQ = `DELETE FROM active_checkouts WHERE checkout_id = @checkout_id`

	tag, err = tx.Exec(ctx, deleteQ, pgx.NamedArgs{"checkout_id": checkoutID})
	if err != nil {
		return fmt.Errorf("delete active checkout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// The row vanished between the classify read and the delete despite
		// SERIALIZABLE isolation. Abort rather than commit a duplicate
		// history row.
		return domain.ErrWriteAnomaly
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListActive returns all active checkouts ordered by checked_out_at descending.
func (r *pgLendingRepo) ListActive(ctx context.Context) ([]domain.ActiveCheckout, error) {
	const q = `
		SELECT checkout_id, book_id, borrower_id, checked_out_at
		FROM active_checkouts
		ORDER BY checked_out_at DESC`

	checkouts, err := r.queryActive(ctx, q, nil)
	if err != nil {
		return nil, fmt.Errorf("repo.LendingRepo.ListActive: %w", err)
	}
	return checkouts, nil
}

// ListActiveByBorrower returns one borrower's active checkouts, newest first.
func (r *pgLendingRepo) ListActiveByBorrower(ctx context.Context, borrowerID uuid.UUID) ([]domain.ActiveCheckout, error) {
	const q = `
		SELECT checkout_id, book_id, borrower_id, checked_out_at
		FROM active_checkouts
		WHERE borrower_id = @borrower_id
		ORDER BY checked_out_at DESC`

	checkouts, err := r.queryActive(ctx, q, pgx.NamedArgs{"borrower_id": borrowerID})
	if err != nil {
		return nil, fmt.Errorf("repo.LendingRepo.ListActiveByBorrower: %w", err)
	}
	return checkouts, nil
}

// queryActive runs an active_checkouts projection query and scans the rows.
func (r *pgLendingRepo) queryActive(ctx context.Context, q string, args pgx.NamedArgs) ([]domain.ActiveCheckout, error) {
	var rows pgx.Rows
	var err error
	if args == nil {
		rows, err = r.db.Query(ctx, q)
	} else {
		rows, err = r.db.Query(ctx, q, args)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var checkouts []domain.ActiveCheckout
	for rows.Next() {
		c, err := scanActiveCheckout(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		checkouts = append(checkouts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return checkouts, nil
}

// ListHistoryByBook returns a book's completed loans, most recent return first.
func (r *pgLendingRepo) ListHistoryByBook(ctx context.Context, bookID uuid.UUID) ([]domain.ReturnedCheckout, error) {
	const q = `
		SELECT checkout_id, book_id, borrower_id, checked_out_at, returned_at
		FROM returned_checkouts
		WHERE book_id = @book_id
		ORDER BY returned_at DESC`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"book_id": bookID})
	if err != nil {
		return nil, fmt.Errorf("repo.LendingRepo.ListHistoryByBook: %w", err)
	}
	defer rows.Close()

	var history []domain.ReturnedCheckout
	for rows.Next() {
		rc, err := scanReturnedCheckout(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.LendingRepo.ListHistoryByBook: scan: %w", err)
		}
		history = append(history, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.LendingRepo.ListHistoryByBook: rows: %w", err)
	}

	return history, nil
}

// scanActiveCheckout maps a single database row into a domain.ActiveCheckout.
func scanActiveCheckout(s scanner) (domain.ActiveCheckout, error) {
	var (
		c                  domain.ActiveCheckout
		checkoutID, bookID pgtype.UUID
		borrowerID         pgtype.UUID
	)

	if err := s.Scan(&checkoutID, &bookID, &borrowerID, &c.CheckedOutAt); err != nil {
		return domain.ActiveCheckout{}, err
	}

	c.CheckoutID = uuid.UUID(checkoutID.Bytes)
	c.BookID = uuid.UUID(bookID.Bytes)
	c.BorrowerID = uuid.UUID(borrowerID.Bytes)
	return c, nil
}

// scanReturnedCheckout maps a single database row into a domain.ReturnedCheckout.
func scanReturnedCheckout(s scanner) (domain.ReturnedCheckout, error) {
	var (
		rc                 domain.ReturnedCheckout
		checkoutID, bookID pgtype.UUID
		borrowerID         pgtype.UUID
	)

	if err := s.Scan(&checkoutID, &bookID, &borrowerID, &rc.CheckedOutAt, &rc.ReturnedAt); err != nil {
		return domain.ReturnedCheckout{}, err
	}

	rc.CheckoutID = uuid.UUID(checkoutID.Bytes)
	rc.BookID = uuid.UUID(bookID.Bytes)
	rc.BorrowerID = uuid.UUID(borrowerID.Bytes)
	return rc, nil
}
