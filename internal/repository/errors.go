// Package repository contains data access logic separated from HTTP handlers.
// Errors returned here wrap the kinds from package apperr so that handlers
// can translate them without knowing which table produced them.
package repository

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/webexpert/event-ticketing/internal/apperr"
)

var (
	ErrEventNotFound   = fmt.Errorf("event %w", apperr.ErrNotFound)
	ErrTicketNotFound  = fmt.Errorf("ticket %w", apperr.ErrNotFound)
	ErrBookingNotFound = fmt.Errorf("booking %w", apperr.ErrNotFound)
	ErrUserNotFound    = fmt.Errorf("user %w", apperr.ErrNotFound)

	// ErrEmailExists is returned when registering an address twice.
	ErrEmailExists = fmt.Errorf("email already registered: %w", apperr.ErrConflict)

	// ErrQuantityBelowReserved is returned when a ticket update would drop
	// the total quantity under the units already sold.
	ErrQuantityBelowReserved = fmt.Errorf("quantity is below the units already reserved: %w", apperr.ErrInvalidInput)

	// ErrInvalidRefresh covers unknown, expired and revoked refresh tokens.
	ErrInvalidRefresh = fmt.Errorf("invalid refresh token: %w", apperr.ErrUnauthenticated)
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
