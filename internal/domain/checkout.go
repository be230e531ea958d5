package domain

import (
	"time"

	"github.com/google/uuid"
)

// ActiveCheckout is a book currently on loan. At most one ActiveCheckout
// exists per book at any time; the lending repo's serializable transactions
// (plus a UNIQUE constraint on book_id) enforce this.
//
// An ActiveCheckout is created by the checkout flow and destroyed by the
// return flow, which moves it into a ReturnedCheckout.
type ActiveCheckout struct {
	CheckoutID   uuid.UUID `json:"checkout_id"`
	BookID       uuid.UUID `json:"book_id"`
	BorrowerID   uuid.UUID `json:"borrower_id"`
	CheckedOutAt time.Time `json:"checked_out_at"`
}

// ReturnedCheckout is the immutable historical record of a completed loan.
// It is written exactly once, at the moment of return, by copying the active
// checkout's fields plus the return timestamp. It is never updated or
// deleted.
type ReturnedCheckout struct {
	CheckoutID   uuid.UUID `json:"checkout_id"`
	BookID       uuid.UUID `json:"book_id"`
	BorrowerID   uuid.UUID `json:"borrower_id"`
	CheckedOutAt time.Time `json:"checked_out_at"`
	ReturnedAt   time.Time `json:"returned_at"`
}
