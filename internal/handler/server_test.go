package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/libris-app/backend/internal/domain"
	"github.com/libris-app/backend/internal/handler"
)

// mockBookServicer implements handler.BookServicer with overridable function
// fields. A nil field panics when called, which fails the test loudly — tests
// only define the calls they expect.
type mockBookServicer struct {
	createFunc  func(ctx context.Context, book domain.Book) (domain.Book, error)
	getByIDFunc func(ctx context.Context, id uuid.UUID) (domain.Book, error)
	listFunc    func(ctx context.Context) ([]domain.Book, error)
}

var _ handler.BookServicer = (*mockBookServicer)(nil)

func (m *mockBookServicer) Create(ctx context.Context, book domain.Book) (domain.Book, error) {
	return m.createFunc(ctx, book)
}

func (m *mockBookServicer) GetByID(ctx context.Context, id uuid.UUID) (domain.Book, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockBookServicer) List(ctx context.Context) ([]domain.Book, error) {
	return m.listFunc(ctx)
}

// mockCheckoutServicer implements handler.CheckoutServicer the same way.
type mockCheckoutServicer struct {
	checkoutFunc             func(ctx context.Context, bookID, borrowerID uuid.UUID, at time.Time) (domain.ActiveCheckout, error)
	returnFunc               func(ctx context.Context, checkoutID, bookID, borrowerID uuid.UUID, at time.Time) error
	listActiveFunc           func(ctx context.Context) ([]domain.ActiveCheckout, error)
	listActiveByBorrowerFunc func(ctx context.Context, borrowerID uuid.UUID) ([]domain.ActiveCheckout, error)
	historyByBookFunc        func(ctx context.Context, bookID uuid.UUID) ([]domain.ReturnedCheckout, error)
}

var _ handler.CheckoutServicer = (*mockCheckoutServicer)(nil)

func (m *mockCheckoutServicer) Checkout(ctx context.Context, bookID, borrowerID uuid.UUID, at time.Time) (domain.ActiveCheckout, error) {
	return m.checkoutFunc(ctx, bookID, borrowerID, at)
}

func (m *mockCheckoutServicer) Return(ctx context.Context, checkoutID, bookID, borrowerID uuid.UUID, at time.Time) error {
	return m.returnFunc(ctx, checkoutID, bookID, borrowerID, at)
}

func (m *mockCheckoutServicer) ListActive(ctx context.Context) ([]domain.ActiveCheckout, error) {
	return m.listActiveFunc(ctx)
}

func (m *mockCheckoutServicer) ListActiveByBorrower(ctx context.Context, borrowerID uuid.UUID) ([]domain.ActiveCheckout, error) {
	return m.listActiveByBorrowerFunc(ctx, borrowerID)
}

func (m *mockCheckoutServicer) HistoryByBook(ctx context.Context, bookID uuid.UUID) ([]domain.ReturnedCheckout, error) {
	return m.historyByBookFunc(ctx, bookID)
}

// pingerFunc adapts a function to handler.Pinger.
type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// newTestServer builds a full router around the given mocks so tests exercise
// real routing, not handlers in isolation.
func newTestServer(books handler.BookServicer, checkouts handler.CheckoutServicer, db handler.Pinger) http.Handler {
	return handler.NewServer(books, checkouts, db).Routes()
}

// doRequest performs req against h and returns the recorded response.
func doRequest(h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// decodeJSON decodes the recorded response body into v.
func decodeJSON(rec *httptest.ResponseRecorder, v any) error {
	return json.NewDecoder(rec.Body).Decode(v)
}

// decodeErrorCode extracts the stable error code from an error response body.
func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp), "error body should be valid JSON")
	return resp.Error.Code
}
