// Package service holds the reservation workflow: the business checks in
// front of the atomic inventory units, metrics around them, and the booking
// events published once they commit.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/webexpert/event-ticketing/internal/apperr"
	"github.com/webexpert/event-ticketing/internal/metrics"
	"github.com/webexpert/event-ticketing/internal/model"
	"github.com/webexpert/event-ticketing/internal/queue"
)

// TicketFinder loads a ticket scoped to its event.
type TicketFinder interface {
	GetByIDAndEvent(ctx context.Context, eventID, id uint64) (*model.Ticket, error)
}

// BookingStore performs the two inventory-moving units of work.  Each call
// must be atomic: on error neither the ticket nor the booking changed.
type BookingStore interface {
	Reserve(ctx context.Context, userID, eventID, ticketID uint64, qty int) (*model.Booking, *model.Ticket, error)
	Cancel(ctx context.Context, userID, bookingID uint64, at time.Time) (*model.Booking, *model.Ticket, error)
}

// EventPublisher hands a booking event to the broker.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.BookingEvent) error
}

// ReservationService reserves and cancels tickets.
type ReservationService struct {
	tickets   TicketFinder
	bookings  BookingStore
	publisher EventPublisher // optional
	log       *slog.Logger

	// Now is the clock used for sale windows and cancellation stamps.
	Now func() time.Time
	// PublishTimeout bounds each post-commit publish.
	PublishTimeout time.Duration

	inflight sync.WaitGroup
}

// NewReservationService wires the service.  publisher may be nil, in which
// case no events are emitted.
func NewReservationService(tickets TicketFinder, bookings BookingStore, publisher EventPublisher, log *slog.Logger) *ReservationService {
	if log == nil {
		log = slog.Default()
	}
	return &ReservationService{
		tickets:        tickets,
		bookings:       bookings,
		publisher:      publisher,
		log:            log,
		Now:            func() time.Time { return time.Now().UTC() },
		PublishTimeout: 5 * time.Second,
	}
}

// Reserve books qty units of a ticket for userID.  Checks run in order and
// the first failing one decides the error: authentication, quantity,
// existence, sale start, sale end, inventory.  The inventory check here is
// only a fast path; the store's conditional decrement is authoritative.
func (s *ReservationService) Reserve(ctx context.Context, userID, eventID, ticketID uint64, qty int) (booking *model.Booking, ticket *model.Ticket, err error) {
	started := time.Now()
	defer func() { metrics.ObserveReservation(err, qty, time.Since(started)) }()

	if userID == 0 {
		return nil, nil, apperr.ErrUnauthenticated
	}
	if qty < 1 {
		return nil, nil, fmt.Errorf("quantity must be at least 1: %w", apperr.ErrInvalidInput)
	}
	current, err := s.tickets.GetByIDAndEvent(ctx, eventID, ticketID)
	if err != nil {
		return nil, nil, err
	}
	now := s.Now()
	switch current.SaleState(now) {
	case model.SaleNotStarted:
		return nil, nil, apperr.ErrSalesNotStarted
	case model.SaleEnded:
		return nil, nil, apperr.ErrSalesEnded
	}
	if current.AvailableQuantity < qty {
		return nil, nil, fmt.Errorf("requested %d, %d left: %w", qty, current.AvailableQuantity, apperr.ErrInsufficientInventory)
	}

	booking, ticket, err = s.bookings.Reserve(ctx, userID, eventID, ticketID, qty)
	if err != nil {
		return nil, nil, err
	}
	s.log.Info("booking confirmed", "booking_id", booking.ID, "user_id", userID, "ticket_id", ticketID,
		"quantity", qty, "available", ticket.AvailableQuantity)
	s.publish(queue.NewBookingEvent(queue.QueueBookingConfirmed, booking, ticket, now))
	return booking, ticket, nil
}

// Cancel cancels one of userID's bookings and returns its units to the
// ticket.  A booking can be cancelled once.
func (s *ReservationService) Cancel(ctx context.Context, userID, bookingID uint64) (booking *model.Booking, ticket *model.Ticket, err error) {
	defer func() { metrics.ObserveCancellation(err) }()

	if userID == 0 {
		return nil, nil, apperr.ErrUnauthenticated
	}
	now := s.Now()
	booking, ticket, err = s.bookings.Cancel(ctx, userID, bookingID, now)
	if err != nil {
		return nil, nil, err
	}
	s.log.Info("booking cancelled", "booking_id", booking.ID, "user_id", userID, "ticket_id", booking.TicketID,
		"quantity", booking.Quantity, "available", ticket.AvailableQuantity)
	s.publish(queue.NewBookingEvent(queue.QueueBookingCancelled, booking, ticket, now))
	return booking, ticket, nil
}

// publish sends ev in the background on a context detached from the request.
// Failures are logged and counted, never returned.
func (s *ReservationService) publish(ev queue.BookingEvent) {
	if s.publisher == nil {
		return
	}
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.PublishTimeout)
		defer cancel()
		if err := s.publisher.Publish(ctx, ev); err != nil {
			metrics.PublishFailed(ev.Kind)
			s.log.Warn("booking event not published", "queue", ev.Kind, "booking_id", ev.BookingID, "err", err)
		}
	}()
}

// Wait blocks until all background publishes have finished.
func (s *ReservationService) Wait() { s.inflight.Wait() }
