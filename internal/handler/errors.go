package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/libris-app/backend/internal/domain"
)

// ErrorDetail is the machine-readable part of an error response.
// Code is stable and intended for client branching; Message is for humans.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is the JSON body returned for every non-2xx response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// writeJSON serialises v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDomainError maps a domain error onto its HTTP status and stable
// error code. Every kind in the taxonomy gets a distinct code so clients
// and tests can branch on them; unrecognised errors become an opaque 500.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeErrorBody(w, http.StatusUnprocessableEntity, "validation_error", unwrapMessage(err))
	case errors.Is(err, domain.ErrNotFound):
		writeErrorBody(w, http.StatusNotFound, "not_found", "book not found")
	case errors.Is(err, domain.ErrAlreadyCheckedOut):
		writeErrorBody(w, http.StatusConflict, "already_checked_out", "book already has an active checkout")
	case errors.Is(err, domain.ErrNotCheckedOut):
		writeErrorBody(w, http.StatusConflict, "not_checked_out", "book has no active checkout")
	case errors.Is(err, domain.ErrReturnMismatch):
		writeErrorBody(w, http.StatusConflict, "return_mismatch", "checkout id or borrower does not match the active checkout")
	case errors.Is(err, domain.ErrConflict):
		writeErrorBody(w, http.StatusServiceUnavailable, "conflict", "transaction conflict, retry the request")
	case errors.Is(err, domain.ErrTimeout):
		writeErrorBody(w, http.StatusGatewayTimeout, "timeout", "operation timed out")
	case errors.Is(err, domain.ErrWriteAnomaly):
		writeErrorBody(w, http.StatusInternalServerError, "write_anomaly", "store consistency fault")
	default:
		writeErrorBody(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// writeRequestError rejects a request before it reaches the service layer
// (e.g. missing or malformed body, bad path parameter).
func writeRequestError(w http.ResponseWriter, message string) {
	writeErrorBody(w, http.StatusUnprocessableEntity, "validation_error", message)
}

func writeErrorBody(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// unwrapMessage extracts the human-readable part from a wrapped sentinel
// error, e.g. "validation error: title is required" → "title is required".
func unwrapMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if idx := strings.LastIndex(msg, "validation error: "); idx >= 0 {
		return msg[idx+len("validation error: "):]
	}
	return msg
}
