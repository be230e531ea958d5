package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/libris-app/backend/internal/domain"
	"github.com/libris-app/backend/internal/repo"
)

// BookService implements business logic for the book catalog.
// The catalog is deliberately thin: create and read only, no concurrency
// hazards. The lending core depends on it solely for book existence.
type BookService struct {
	repo repo.BookRepo
}

// NewBookService constructs a BookService backed by the provided BookRepo.
func NewBookService(r repo.BookRepo) *BookService {
	return &BookService{repo: r}
}

// Create validates and persists a new book.
// Returns domain.ErrValidation if required fields are missing.
func (s *BookService) Create(ctx context.Context, book domain.Book) (domain.Book, error) {
	if err := validateBook(book); err != nil {
		return domain.Book{}, err
	}
	result, err := s.repo.Create(ctx, book)
	if err != nil {
		return domain.Book{}, fmt.Errorf("service.BookService.Create: %w", err)
	}
	return result, nil
}

// GetByID returns a single book by ID.
func (s *BookService) GetByID(ctx context.Context, id uuid.UUID) (domain.Book, error) {
	result, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Book{}, fmt.Errorf("service.BookService.GetByID: %w", err)
	}
	return result, nil
}

// List returns all books ordered by title.
// Always returns a non-nil slice so callers can safely range over it.
func (s *BookService) List(ctx context.Context) ([]domain.Book, error) {
	books, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.BookService.List: %w", err)
	}
	if books == nil {
		return []domain.Book{}, nil
	}
	return books, nil
}

// validateBook enforces catalog input rules.
//   - Title and author must be non-empty (whitespace-only values are rejected).
func validateBook(book domain.Book) error {
	if strings.TrimSpace(book.Title) == "" {
		return fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if strings.TrimSpace(book.Author) == "" {
		return fmt.Errorf("%w: author is required", domain.ErrValidation)
	}
	return nil
}
