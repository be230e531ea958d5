package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/libris-app/backend/internal/domain"
)

// CreateBookRequest is the JSON body for POST /books.
type CreateBookRequest struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	ISBN        string `json:"isbn"`
	Description string `json:"description"`
}

// CreateBook handles POST /books.
func (s *Server) CreateBook(w http.ResponseWriter, r *http.Request) {
	var req CreateBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRequestError(w, "invalid request body")
		return
	}

	created, err := s.books.Create(r.Context(), domain.Book{
		Title:       req.Title,
		Author:      req.Author,
		ISBN:        req.ISBN,
		Description: req.Description,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// ListBooks handles GET /books.
func (s *Server) ListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := s.books.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, books)
}

// GetBook handles GET /books/{bookID}.
func (s *Server) GetBook(w http.ResponseWriter, r *http.Request) {
	bookID, ok := pathUUID(w, r, "bookID", "book id")
	if !ok {
		return
	}

	book, err := s.books.GetByID(r.Context(), bookID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

// pathUUID parses the named chi URL parameter as a UUID. On failure it
// writes a validation error response and returns ok=false.
func pathUUID(w http.ResponseWriter, r *http.Request, param, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeRequestError(w, "invalid "+label)
		return uuid.Nil, false
	}
	return id, true
}
