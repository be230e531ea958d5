// Package service contains the business logic for the lending backend.
// Services validate inputs, apply operation deadlines, and orchestrate repo
// calls. No SQL lives here — services depend on repo interfaces, not
// implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/libris-app/backend/internal/domain"
	"github.com/libris-app/backend/internal/repo"
)

// DefaultCheckoutTimeout bounds a single checkout or return operation,
// including its internal conflict retries. Expiry surfaces as
// domain.ErrTimeout with no partial effect in the store.
const DefaultCheckoutTimeout = 5 * time.Second

// CheckoutService implements the lending operations exposed to the HTTP
// layer. It holds the book repo as well because reporting on a book's loan
// history requires verifying the book exists.
type CheckoutService struct {
	books   repo.BookRepo
	lending repo.LendingRepo
	log     *slog.Logger
	timeout time.Duration
}

// NewCheckoutService constructs a CheckoutService backed by the provided
// repos. A nil logger falls back to slog.Default(); a non-positive timeout
// falls back to DefaultCheckoutTimeout.
func NewCheckoutService(books repo.BookRepo, lending repo.LendingRepo, log *slog.Logger, timeout time.Duration) *CheckoutService {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultCheckoutTimeout
	}
	return &CheckoutService{books: books, lending: lending, log: log, timeout: timeout}
}

// Checkout lends a book to a borrower at the given time.
// Returns domain.ErrValidation for malformed input and passes the lending
// repo's taxonomy through: ErrNotFound, ErrAlreadyCheckedOut, ErrConflict,
// ErrTimeout, ErrWriteAnomaly.
func (s *CheckoutService) Checkout(ctx context.Context, bookID, borrowerID uuid.UUID, at time.Time) (domain.ActiveCheckout, error) {
	if err := validateLendingInput(bookID, borrowerID, at); err != nil {
		return domain.ActiveCheckout{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	checkout, err := s.lending.CreateCheckout(ctx, bookID, borrowerID, at)
	if err != nil {
		s.alertOnAnomaly(ctx, err, "checkout", bookID, borrowerID)
		return domain.ActiveCheckout{}, fmt.Errorf("service.CheckoutService.Checkout: %w", err)
	}
	return checkout, nil
}

// Return closes an active checkout. The (checkoutID, borrowerID) pair must
// match the recorded loan; see repo.LendingRepo.CloseCheckout for the full
// taxonomy.
func (s *CheckoutService) Return(ctx context.Context, checkoutID, bookID, borrowerID uuid.UUID, at time.Time) error {
	if checkoutID == uuid.Nil {
		return fmt.Errorf("%w: checkout id is required", domain.ErrValidation)
	}
	if err := validateLendingInput(bookID, borrowerID, at); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.lending.CloseCheckout(ctx, checkoutID, bookID, borrowerID, at); err != nil {
		s.alertOnAnomaly(ctx, err, "return", bookID, borrowerID)
		return fmt.Errorf("service.CheckoutService.Return: %w", err)
	}
	return nil
}

// ListActive returns all active checkouts, newest first.
// Always returns a non-nil slice so callers can safely range over it.
func (s *CheckoutService) ListActive(ctx context.Context) ([]domain.ActiveCheckout, error) {
	checkouts, err := s.lending.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.CheckoutService.ListActive: %w", err)
	}
	if checkouts == nil {
		return []domain.ActiveCheckout{}, nil
	}
	return checkouts, nil
}

// ListActiveByBorrower returns one borrower's active checkouts, newest first.
// Always returns a non-nil slice so callers can safely range over it.
func (s *CheckoutService) ListActiveByBorrower(ctx context.Context, borrowerID uuid.UUID) ([]domain.ActiveCheckout, error) {
	if borrowerID == uuid.Nil {
		return nil, fmt.Errorf("%w: borrower id is required", domain.ErrValidation)
	}
	checkouts, err := s.lending.ListActiveByBorrower(ctx, borrowerID)
	if err != nil {
		return nil, fmt.Errorf("service.CheckoutService.ListActiveByBorrower: %w", err)
	}
	if checkouts == nil {
		return []domain.ActiveCheckout{}, nil
	}
	return checkouts, nil
}

// HistoryByBook returns a book's completed loans, most recent return first.
// Returns domain.ErrNotFound if the book does not exist; a known book with
// no history yields an empty non-nil slice.
func (s *CheckoutService) HistoryByBook(ctx context.Context, bookID uuid.UUID) ([]domain.ReturnedCheckout, error) {
	if _, err := s.books.GetByID(ctx, bookID); err != nil {
		return nil, fmt.Errorf("service.CheckoutService.HistoryByBook: %w", err)
	}
	history, err := s.lending.ListHistoryByBook(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("service.CheckoutService.HistoryByBook: %w", err)
	}
	if history == nil {
		return []domain.ReturnedCheckout{}, nil
	}
	return history, nil
}

// alertOnAnomaly logs write anomalies at Error level. A write anomaly means
// a mutation that must touch exactly one row touched zero despite
// serializable isolation — the one condition that warrants alerting rather
// than plain error propagation.
func (s *CheckoutService) alertOnAnomaly(ctx context.Context, err error, op string, bookID, borrowerID uuid.UUID) {
	if errors.Is(err, domain.ErrWriteAnomaly) {
		s.log.ErrorContext(ctx, "lending write anomaly",
			"op", op,
			"book_id", bookID.String(),
			"borrower_id", borrowerID.String(),
			"error", err,
		)
	}
}

// validateLendingInput enforces the input rules common to Checkout and Return.
//   - Book and borrower ids must be non-nil UUIDs.
//   - The operation timestamp is caller-supplied and must be set.
func validateLendingInput(bookID, borrowerID uuid.UUID, at time.Time) error {
	if bookID == uuid.Nil {
		return fmt.Errorf("%w: book id is required", domain.ErrValidation)
	}
	if borrowerID == uuid.Nil {
		return fmt.Errorf("%w: borrower id is required", domain.ErrValidation)
	}
	if at.IsZero() {
		return fmt.Errorf("%w: timestamp is required", domain.ErrValidation)
	}
	return nil
}
