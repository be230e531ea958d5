package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/libris-app/backend/internal/domain"
)

// MemoryStore is an in-memory implementation of BookRepo and LendingRepo
// with the same error semantics as the Postgres implementations. It exists
// as the substitutable test double for unit and property tests; a single
// mutex plays the role of the database's transaction manager, so every
// operation is atomic and the lending invariants hold under concurrent use.
type MemoryStore struct {
	mu       sync.Mutex
	books    map[uuid.UUID]domain.Book
	active   map[uuid.UUID]domain.ActiveCheckout // keyed by book id: at most one per book
	returned []domain.ReturnedCheckout
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		books:  make(map[uuid.UUID]domain.Book),
		active: make(map[uuid.UUID]domain.ActiveCheckout),
	}
}

var (
	_ BookRepo    = (*MemoryStore)(nil)
	_ LendingRepo = (*MemoryStore)(nil)
)

// Create inserts a book, generating the fields the database would.
func (m *MemoryStore) Create(_ context.Context, book domain.Book) (domain.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	book.ID = uuid.New()
	book.CreatedAt = now
	book.UpdatedAt = now
	m.books[book.ID] = book
	return book, nil
}

// GetByID retrieves a book or domain.ErrNotFound.
func (m *MemoryStore) GetByID(_ context.Context, id uuid.UUID) (domain.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	book, ok := m.books[id]
	if !ok {
		return domain.Book{}, fmt.Errorf("repo.MemoryStore.GetByID: %w", domain.ErrNotFound)
	}
	return book, nil
}

// List returns all books ordered by title.
func (m *MemoryStore) List(_ context.Context) ([]domain.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var books []domain.Book
	for _, b := range m.books {
		books = append(books, b)
	}
	sort.Slice(books, func(i, j int) bool { return books[i].Title < books[j].Title })
	return books, nil
}

// CreateCheckout records a new loan, enforcing the same preconditions as the
// Postgres transaction.
func (m *MemoryStore) CreateCheckout(_ context.Context, bookID, borrowerID uuid.UUID, at time.Time) (domain.ActiveCheckout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.books[bookID]; !ok {
		return domain.ActiveCheckout{}, fmt.Errorf("repo.MemoryStore.CreateCheckout: %w", domain.ErrNotFound)
	}
	if _, ok := m.active[bookID]; ok {
		return domain.ActiveCheckout{}, fmt.Errorf("repo.MemoryStore.CreateCheckout: %w", domain.ErrAlreadyCheckedOut)
	}

	checkout := domain.ActiveCheckout{
		CheckoutID:   uuid.New(),
		BookID:       bookID,
		BorrowerID:   borrowerID,
		CheckedOutAt: at,
	}
	m.active[bookID] = checkout
	return checkout, nil
}

// CloseCheckout returns a book, moving the active checkout into the history.
func (m *MemoryStore) CloseCheckout(_ context.Context, checkoutID, bookID, borrowerID uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.books[bookID]; !ok {
		return fmt.Errorf("repo.MemoryStore.CloseCheckout: %w", domain.ErrNotFound)
	}
	loan, ok := m.active[bookID]
	if !ok {
		return fmt.Errorf("repo.MemoryStore.CloseCheckout: %w", domain.ErrNotCheckedOut)
	}
	if loan.CheckoutID != checkoutID || loan.BorrowerID != borrowerID {
		return fmt.Errorf("repo.MemoryStore.CloseCheckout: %w", domain.ErrReturnMismatch)
	}

	m.returned = append(m.returned, domain.ReturnedCheckout{
		CheckoutID:   loan.CheckoutID,
		BookID:       loan.BookID,
		BorrowerID:   loan.BorrowerID,
		CheckedOutAt: loan.CheckedOutAt,
		ReturnedAt:   at,
	})
	delete(m.active, bookID)
	return nil
}

// ListActive returns all active checkouts, newest first.
func (m *MemoryStore) ListActive(_ context.Context) ([]domain.ActiveCheckout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var checkouts []domain.ActiveCheckout
	for _, c := range m.active {
		checkouts = append(checkouts, c)
	}
	sort.Slice(checkouts, func(i, j int) bool {
		return checkouts[i].CheckedOutAt.After(checkouts[j].CheckedOutAt)
	})
	return checkouts, nil
}

// ListActiveByBorrower returns one borrower's active checkouts, newest first.
func (m *MemoryStore) ListActiveByBorrower(_ context.Context, borrowerID uuid.UUID) ([]domain.ActiveCheckout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var checkouts []domain.ActiveCheckout
	for _, c := range m.active {
		if c.BorrowerID == borrowerID {
			checkouts = append(checkouts, c)
		}
	}
	sort.Slice(checkouts, func(i, j int) bool {
		return checkouts[i].CheckedOutAt.After(checkouts[j].CheckedOutAt)
	})
	return checkouts, nil
}

// ListHistoryByBook returns a book's completed loans, most recent return first.
func (m *MemoryStore) ListHistoryByBook(_ context.Context, bookID uuid.UUID) ([]domain.ReturnedCheckout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var history []domain.ReturnedCheckout
	for _, rc := range m.returned {
		if rc.BookID == bookID {
			history = append(history, rc)
		}
	}
	sort.Slice(history, func(i, j int) bool {
		return history[i].ReturnedAt.After(history[j].ReturnedAt)
	})
	return history, nil
}
