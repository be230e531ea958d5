package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the referenced
// resource (a book, usually) does not exist in the database.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. missing borrower id, zero timestamp).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrAlreadyCheckedOut is returned when a checkout is requested for a book
// that already has an active checkout. Handlers should map this to HTTP 409.
var ErrAlreadyCheckedOut = errors.New("book already checked out")

// ErrNotCheckedOut is returned when a return is requested for a book that
// has no active checkout at all. Handlers should map this to HTTP 409.
var ErrNotCheckedOut = errors.New("book not checked out")

// ErrReturnMismatch is returned when a return names a book that is on loan,
// but the checkout id or borrower id does not match the recorded active
// checkout. Handlers should map this to HTTP 409.
var ErrReturnMismatch = errors.New("return does not match active checkout")

// ErrWriteAnomaly is returned when a mutation that must affect exactly one
// row affected zero. It means the serializable isolation guarantee was
// violated or the store is corrupted; the service layer logs it at Error
// level before propagating. Handlers should map this to HTTP 500.
var ErrWriteAnomaly = errors.New("write anomaly: expected row mutation affected zero rows")

// ErrConflict is returned when a transaction lost a serialization race and
// the retry budget is exhausted. The request can be retried by the caller.
// Handlers should map this to HTTP 503.
var ErrConflict = errors.New("transaction conflict")

// ErrTimeout is returned when a checkout or return transaction exceeded its
// deadline. Transaction atomicity guarantees no partial effect remains.
// Handlers should map this to HTTP 504.
var ErrTimeout = errors.New("operation timed out")
