package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libris-app/backend/internal/domain"
	"github.com/libris-app/backend/internal/service"
)

func TestBookService_Create(t *testing.T) {
	input := domain.Book{Title: "The Dispossessed", Author: "Ursula K. Le Guin"}

	repo := &mockBookRepo{
		createFunc: func(_ context.Context, book domain.Book) (domain.Book, error) {
			book.ID = uuid.New()
			return book, nil
		},
	}
	s := service.NewBookService(repo)

	got, err := s.Create(context.Background(), input)

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, got.ID)
	assert.Equal(t, input.Title, got.Title)
}

func TestBookService_Create_Validation(t *testing.T) {
	s := service.NewBookService(&mockBookRepo{})

	tests := map[string]domain.Book{
		"missing title":      {Author: "Someone"},
		"missing author":     {Title: "Something"},
		"whitespace title":   {Title: "   ", Author: "Someone"},
		"whitespace author":  {Title: "Something", Author: "\t"},
		"everything missing": {},
	}

	for name, book := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := s.Create(context.Background(), book)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestBookService_GetByID_NotFound(t *testing.T) {
	repo := &mockBookRepo{
		getByIDFunc: func(context.Context, uuid.UUID) (domain.Book, error) {
			return domain.Book{}, domain.ErrNotFound
		},
	}
	s := service.NewBookService(repo)

	_, err := s.GetByID(context.Background(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBookService_List_NeverNil(t *testing.T) {
	repo := &mockBookRepo{
		listFunc: func(context.Context) ([]domain.Book, error) {
			return nil, nil
		},
	}
	s := service.NewBookService(repo)

	books, err := s.List(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, books, "should return empty slice, not nil")
	assert.Empty(t, books)
}

func TestBookService_List_Error(t *testing.T) {
	boom := errors.New("connection reset")
	repo := &mockBookRepo{
		listFunc: func(context.Context) ([]domain.Book, error) {
			return nil, boom
		},
	}
	s := service.NewBookService(repo)

	_, err := s.List(context.Background())

	assert.ErrorIs(t, err, boom)
}
