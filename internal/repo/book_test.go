package repo_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libris-app/backend/internal/domain"
	"github.com/libris-app/backend/internal/repo"
	"github.com/libris-app/backend/testutil"
)

// newTestBookRepo opens a transaction against the test database and returns a
// BookRepo backed by that transaction. The transaction is automatically rolled
// back when the test finishes, giving free per-test isolation.
//
// Requires TEST_DATABASE_URL to be set and all migrations to be applied
// (TestMain takes care of the migrations).
func newTestBookRepo(t *testing.T) repo.BookRepo {
	t.Helper()
	pool := testutil.NewPool(t)

	tx, err := pool.Begin(context.Background())
	require.NoError(t, err, "begin transaction")

	t.Cleanup(func() {
		// Rollback discards all changes made during the test — no cleanup SQL needed.
		_ = tx.Rollback(context.Background())
	})

	return repo.NewBookRepo(tx)
}

// bookFixture returns a domain.Book with sensible defaults for use in tests.
// Callers can override individual fields after calling this function.
func bookFixture() domain.Book {
	return domain.Book{
		Title:       "The Left Hand of Darkness",
		Author:      "Ursula K. Le Guin",
		ISBN:        "978-0441478125",
		Description: "A Hainish cycle novel",
	}
}

func TestBookRepo_Create(t *testing.T) {
	r := newTestBookRepo(t)
	ctx := context.Background()

	input := bookFixture()
	got, err := r.Create(ctx, input)

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, got.ID, "ID should be DB-generated UUID")
	assert.Equal(t, input.Title, got.Title)
	assert.Equal(t, input.Author, got.Author)
	assert.Equal(t, input.ISBN, got.ISBN)
	assert.Equal(t, input.Description, got.Description)
	assert.False(t, got.CreatedAt.IsZero(), "CreatedAt should be set by DB")
	assert.False(t, got.UpdatedAt.IsZero(), "UpdatedAt should be set by DB")
}

func TestBookRepo_GetByID(t *testing.T) {
	r := newTestBookRepo(t)
	ctx := context.Background()

	created, err := r.Create(ctx, bookFixture())
	require.NoError(t, err)

	got, err := r.GetByID(ctx, created.ID)

	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.Title, got.Title)
}

func TestBookRepo_GetByID_NotFound(t *testing.T) {
	r := newTestBookRepo(t)
	ctx := context.Background()

	_, err := r.GetByID(ctx, uuid.New())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBookRepo_List(t *testing.T) {
	r := newTestBookRepo(t)
	ctx := context.Background()

	b1 := bookFixture()
	b1.Title = "A Wizard of Earthsea"

	b2 := bookFixture()
	b2.Title = "The Dispossessed"

	_, err := r.Create(ctx, b1)
	require.NoError(t, err)
	_, err = r.Create(ctx, b2)
	require.NoError(t, err)

	books, err := r.List(ctx)

	require.NoError(t, err)
	require.GreaterOrEqual(t, len(books), 2, "should return at least the two created books")

	var titles []string
	for _, b := range books {
		titles = append(titles, b.Title)
	}
	assert.Contains(t, titles, "A Wizard of Earthsea")
	assert.Contains(t, titles, "The Dispossessed")
}
