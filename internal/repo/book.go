package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/libris-app/backend/internal/domain"
)

// BookRepo defines the persistence operations for the book catalog.
// The lending core treats the catalog as a collaborator: it only ever joins
// against the books table to check existence. The service layer depends on
// this interface, not the concrete Postgres implementation, which allows the
// service to be unit-tested with a mock.
type BookRepo interface {
	// Create inserts a new book and returns the persisted record (with
	// DB-generated id, created_at, and updated_at populated).
	Create(ctx context.Context, book domain.Book) (domain.Book, error)

	// GetByID retrieves a single book by its UUID primary key.
	// Returns domain.ErrNotFound if no book with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Book, error)

	// List returns all books ordered by title ascending.
	List(ctx context.Context) ([]domain.Book, error)
}

// pgBookRepo is the Postgres implementation of BookRepo.
type pgBookRepo struct {
	db db
}

// NewBookRepo constructs a BookRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewBookRepo(db db) BookRepo {
	return &pgBookRepo{db: db}
}

// Create inserts a new book row and returns the full persisted record.
func (r *pgBookRepo) Create(ctx context.Context, book domain.Book) (domain.Book, error) {
	const q = `
		INSERT INTO books (title, author, isbn, description)
		VALUES (@title, @author, @isbn, @description)
		RETURNING id, title, author, isbn, description, created_at, updated_at`

	args := pgx.NamedArgs{
		"title":       book.Title,
		"author":      book.Author,
		"isbn":        book.ISBN,
		"description": book.Description,
	}

	row := r.db.QueryRow(ctx, q, args)
	result, err := scanBook(row)
	if err != nil {
		return domain.Book{}, fmt.Errorf("repo.BookRepo.Create: %w", err)
	}
	return result, nil
}

// GetByID retrieves a book by primary key.
func (r *pgBookRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Book, error) {
	const q = `
		SELECT id, title, author, isbn, description, created_at, updated_at
		FROM books
		WHERE id = @id`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id})
	result, err := scanBook(row)
	if err != nil {
		return domain.Book{}, fmt.Errorf("repo.BookRepo.GetByID: %w", err)
	}
	return result, nil
}

// List returns all books ordered by title.
func (r *pgBookRepo) List(ctx context.Context) ([]domain.Book, error) {
	const q = `
		SELECT id, title, author, isbn, description, created_at, updated_at
		FROM books
		ORDER BY title`

	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("repo.BookRepo.List: %w", err)
	}
	defer rows.Close()

	var books []domain.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.BookRepo.List: scan: %w", err)
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.BookRepo.List: rows: %w", err)
	}

	return books, nil
}

// scanBook maps a single database row into a domain.Book.
func scanBook(s scanner) (domain.Book, error) {
	var (
		b  domain.Book
		id pgtype.UUID
	)

	err := s.Scan(&id, &b.Title, &b.Author, &b.ISBN, &b.Description, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Book{}, domain.ErrNotFound
		}
		return domain.Book{}, err
	}

	b.ID = uuid.UUID(id.Bytes)
	return b, nil
}
