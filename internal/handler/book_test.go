package handler_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libris-app/backend/internal/domain"
	"github.com/libris-app/backend/internal/handler"
)

func TestCreateBook(t *testing.T) {
	books := &mockBookServicer{
		createFunc: func(_ context.Context, book domain.Book) (domain.Book, error) {
			assert.Equal(t, "The Lathe of Heaven", book.Title)
			assert.Equal(t, "Ursula K. Le Guin", book.Author)
			book.ID = uuid.New()
			book.CreatedAt = time.Now().UTC()
			return book, nil
		},
	}
	srv := newTestServer(books, nil, nil)

	rec := doRequest(srv, http.MethodPost, "/books", handler.CreateBookRequest{
		Title:  "The Lathe of Heaven",
		Author: "Ursula K. Le Guin",
		ISBN:   "978-0684125299",
	})

	assert.Equal(t, http.StatusCreated, rec.Code)

	var got domain.Book
	require.NoError(t, decodeJSON(rec, &got))
	assert.NotEqual(t, uuid.Nil, got.ID)
	assert.Equal(t, "The Lathe of Heaven", got.Title)
}

func TestCreateBook_ValidationError(t *testing.T) {
	books := &mockBookServicer{
		createFunc: func(context.Context, domain.Book) (domain.Book, error) {
			return domain.Book{}, fmt.Errorf("%w: title is required", domain.ErrValidation)
		},
	}
	srv := newTestServer(books, nil, nil)

	rec := doRequest(srv, http.MethodPost, "/books", handler.CreateBookRequest{Author: "Someone"})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "validation_error", decodeErrorCode(t, rec))
}

func TestCreateBook_MalformedBody(t *testing.T) {
	srv := newTestServer(&mockBookServicer{}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/books", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "validation_error", decodeErrorCode(t, rec))
}

func TestListBooks(t *testing.T) {
	books := &mockBookServicer{
		listFunc: func(context.Context) ([]domain.Book, error) {
			return []domain.Book{
				{ID: uuid.New(), Title: "A Wizard of Earthsea", Author: "Ursula K. Le Guin"},
				{ID: uuid.New(), Title: "The Tombs of Atuan", Author: "Ursula K. Le Guin"},
			}, nil
		},
	}
	srv := newTestServer(books, nil, nil)

	rec := doRequest(srv, http.MethodGet, "/books", nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	var got []domain.Book
	require.NoError(t, decodeJSON(rec, &got))
	assert.Len(t, got, 2)
}

func TestGetBook(t *testing.T) {
	bookID := uuid.New()
	books := &mockBookServicer{
		getByIDFunc: func(_ context.Context, id uuid.UUID) (domain.Book, error) {
			assert.Equal(t, bookID, id)
			return domain.Book{ID: id, Title: "Always Coming Home", Author: "Ursula K. Le Guin"}, nil
		},
	}
	srv := newTestServer(books, nil, nil)

	rec := doRequest(srv, http.MethodGet, "/books/"+bookID.String(), nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	var got domain.Book
	require.NoError(t, decodeJSON(rec, &got))
	assert.Equal(t, bookID, got.ID)
}

func TestGetBook_NotFound(t *testing.T) {
	books := &mockBookServicer{
		getByIDFunc: func(context.Context, uuid.UUID) (domain.Book, error) {
			return domain.Book{}, domain.ErrNotFound
		},
	}
	srv := newTestServer(books, nil, nil)

	rec := doRequest(srv, http.MethodGet, "/books/"+uuid.NewString(), nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeErrorCode(t, rec))
}

func TestGetBook_MalformedID(t *testing.T) {
	srv := newTestServer(&mockBookServicer{}, nil, nil)

	rec := doRequest(srv, http.MethodGet, "/books/not-a-uuid", nil)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "validation_error", decodeErrorCode(t, rec))
}
