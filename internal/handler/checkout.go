package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// CreateCheckoutRequest is the JSON body for POST /books/{bookID}/checkouts.
// CheckedOutAt is optional; when omitted the server stamps the current time.
// Tests and backfills supply it explicitly for determinism.
type CreateCheckoutRequest struct {
	BorrowerID   uuid.UUID  `json:"borrower_id"`
	CheckedOutAt *time.Time `json:"checked_out_at,omitempty"`
}

// ReturnCheckoutRequest is the JSON body for
// PUT /books/{bookID}/checkouts/{checkoutID}/returned.
type ReturnCheckoutRequest struct {
	BorrowerID uuid.UUID  `json:"borrower_id"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
}

// CreateCheckout handles POST /books/{bookID}/checkouts.
func (s *Server) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	bookID, ok := pathUUID(w, r, "bookID", "book id")
	if !ok {
		return
	}

	var req CreateCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRequestError(w, "invalid request body")
		return
	}

	at := time.Now().UTC()
	if req.CheckedOutAt != nil {
		at = *req.CheckedOutAt
	}

	checkout, err := s.checkouts.Checkout(r.Context(), bookID, req.BorrowerID, at)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, checkout)
}

// ReturnCheckout handles PUT /books/{bookID}/checkouts/{checkoutID}/returned.
func (s *Server) ReturnCheckout(w http.ResponseWriter, r *http.Request) {
	bookID, ok := pathUUID(w, r, "bookID", "book id")
	if !ok {
		return
	}
	checkoutID, ok := pathUUID(w, r, "checkoutID", "checkout id")
	if !ok {
		return
	}

	var req ReturnCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRequestError(w, "invalid request body")
		return
	}

	at := time.Now().UTC()
	if req.ReturnedAt != nil {
		at = *req.ReturnedAt
	}

	if err := s.checkouts.Return(r.Context(), checkoutID, bookID, req.BorrowerID, at); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "returned"})
}

// ListActiveCheckouts handles GET /checkouts.
func (s *Server) ListActiveCheckouts(w http.ResponseWriter, r *http.Request) {
	checkouts, err := s.checkouts.ListActive(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, checkouts)
}

// ListCheckoutsByBorrower handles GET /borrowers/{borrowerID}/checkouts.
func (s *Server) ListCheckoutsByBorrower(w http.ResponseWriter, r *http.Request) {
	borrowerID, ok := pathUUID(w, r, "borrowerID", "borrower id")
	if !ok {
		return
	}

	checkouts, err := s.checkouts.ListActiveByBorrower(r.Context(), borrowerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, checkouts)
}

// ListHistoryByBook handles GET /books/{bookID}/checkout-history.
func (s *Server) ListHistoryByBook(w http.ResponseWriter, r *http.Request) {
	bookID, ok := pathUUID(w, r, "bookID", "book id")
	if !ok {
		return
	}

	history, err := s.checkouts.HistoryByBook(r.Context(), bookID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}
