// Package handler implements the HTTP handlers for the lending API.
// All handlers are methods on Server; they decode requests, call the
// service layer, and map domain errors onto HTTP statuses. Methods are
// split into domain-specific files (health.go, book.go, checkout.go) but
// all share the same Server struct so they can access its dependencies.
package handler

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/libris-app/backend/internal/domain"
)

// BookServicer defines the catalog operations the book handlers depend on.
// Defining the interface here (in the consumer package) follows the Go
// convention: "accept interfaces, return concrete types". It lets handler
// tests inject a mock without touching the database or service layer.
type BookServicer interface {
	Create(ctx context.Context, book domain.Book) (domain.Book, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Book, error)
	List(ctx context.Context) ([]domain.Book, error)
}

// CheckoutServicer defines the lending operations the checkout handlers
// depend on.
type CheckoutServicer interface {
	Checkout(ctx context.Context, bookID, borrowerID uuid.UUID, at time.Time) (domain.ActiveCheckout, error)
	Return(ctx context.Context, checkoutID, bookID, borrowerID uuid.UUID, at time.Time) error
	ListActive(ctx context.Context) ([]domain.ActiveCheckout, error)
	ListActiveByBorrower(ctx context.Context, borrowerID uuid.UUID) ([]domain.ActiveCheckout, error)
	HistoryByBook(ctx context.Context, bookID uuid.UUID) ([]domain.ReturnedCheckout, error)
}

// Pinger reports whether the database is reachable. Satisfied by
// *pgxpool.Pool; the health handler uses it for /healthz/db.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the handler dependencies. Wire it in main.go and mount
// Routes() on the router.
type Server struct {
	books     BookServicer
	checkouts CheckoutServicer
	db        Pinger
}

// NewServer constructs the Server with all its dependencies.
// db may be nil in tests that never hit /healthz/db.
func NewServer(books BookServicer, checkouts CheckoutServicer, db Pinger) *Server {
	return &Server{books: books, checkouts: checkouts, db: db}
}

// Routes returns the chi router for the full API surface.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", s.GetHealth)
	r.Get("/healthz/db", s.GetHealthDB)
	r.Get("/openapi.yaml", s.GetOpenAPI)

	r.Route("/books", func(r chi.Router) {
		r.Post("/", s.CreateBook)
		r.Get("/", s.ListBooks)
		r.Get("/{bookID}", s.GetBook)
		r.Post("/{bookID}/checkouts", s.CreateCheckout)
		r.Put("/{bookID}/checkouts/{checkoutID}/returned", s.ReturnCheckout)
		r.Get("/{bookID}/checkout-history", s.ListHistoryByBook)
	})

	r.Get("/checkouts", s.ListActiveCheckouts)
	r.Get("/borrowers/{borrowerID}/checkouts", s.ListCheckoutsByBorrower)

	return r
}
