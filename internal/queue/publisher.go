package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends booking events to RabbitMQ.  A connection is opened per
// message: events are rare compared to reads and the publisher must never
// hold broker state that could block a request.
type Publisher struct {
	url string
	log *slog.Logger
}

// NewPublisher returns a Publisher for the broker at url.
func NewPublisher(url string, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{url: url, log: log}
}

// Publish declares ev.Kind as a durable queue and publishes ev to it as a
// persistent JSON message.  Errors are logged and returned so the caller can
// ignore them without interrupting the request.
func (p *Publisher) Publish(ctx context.Context, ev BookingEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      contextDialer(ctx),
	})
	if err != nil {
		p.log.Warn("rabbitmq dial failed", "err", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Warn("rabbitmq channel open failed", "err", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(ev.Kind, true, false, false, false, nil); err != nil {
		p.log.Warn("rabbitmq queue declare failed", "queue", ev.Kind, "err", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", ev.Kind, false, false, pub); err != nil {
		p.log.Warn("rabbitmq publish failed", "queue", ev.Kind, "booking_id", ev.BookingID, "err", err)
		return err
	}
	return nil
}

// handshakeTimeout bounds the AMQP handshake when ctx carries no deadline.
const handshakeTimeout = 30 * time.Second

// contextDialer opens the broker socket under ctx and sets its deadline so a
// broker that accepts but never answers cannot outlive the caller.  The
// client clears the deadline once the handshake completes.
func contextDialer(ctx context.Context) func(network, addr string) (net.Conn, error) {
	return func(network, addr string) (net.Conn, error) {
		conn, err := (&net.Dialer{}).DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		deadline, ok := ctx.Deadline()
		if !ok {
			deadline = time.Now().Add(handshakeTimeout)
		}
		if err := conn.SetDeadline(deadline); err != nil {
			_ = conn.Close()
			return nil, err
		}
		return conn, nil
	}
}
