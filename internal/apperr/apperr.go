// Package apperr defines the error kinds shared by the repository, service
// and HTTP layers.  Lower layers wrap a kind with %w to add context; the
// HTTP boundary maps each kind to a status code with errors.Is.
package apperr

import "errors"

var (
	// ErrUnauthenticated: no valid identity on the request (401).
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden: identity lacks the required capability (403).
	ErrForbidden = errors.New("unauthorized action")
	// ErrNotFound: resource missing or hidden from the caller (404).
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput: request failed validation (422).
	ErrInvalidInput = errors.New("the given data was invalid")
	// ErrConflict: unique constraint such as a registered e-mail (409).
	ErrConflict = errors.New("conflict")
)

// Business-rule rejections; all answer 400.
var (
	ErrSalesNotStarted       = errors.New("ticket sales have not started yet")
	ErrSalesEnded            = errors.New("ticket sales have ended")
	ErrInsufficientInventory = errors.New("not enough tickets available")
	ErrAlreadyCancelled      = errors.New("booking is already cancelled")
	ErrAlreadyFavorited      = errors.New("event is already in your favorites")
	ErrNotFavorited          = errors.New("event is not in your favorites")
	ErrHasActiveReservations = errors.New("tickets have outstanding reservations")
)

// IsBusinessRule reports whether err is one of the 400-class rejections.
func IsBusinessRule(err error) bool {
	for _, k := range []error{
		ErrSalesNotStarted, ErrSalesEnded, ErrInsufficientInventory,
		ErrAlreadyCancelled, ErrAlreadyFavorited, ErrNotFavorited,
		ErrHasActiveReservations,
	} {
		if errors.Is(err, k) {
			return true
		}
	}
	return false
}
