// Package service provides the broker hand-off used by the payment path to
// defer heavy booking persistence off the request. Publish errors are logged
// and returned so the caller can fall back to synchronous booking creation
// instead of failing the request.
package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/ticket-booking/internal/queue"
)

// Publisher publishes booking requests to the durable bookings queue.  A
// zero URL produces a disabled publisher, which callers treat as "no broker:
// book synchronously".
type Publisher struct {
	url string
}

// NewPublisher builds a Publisher for the given broker URL.  The URL may be
// empty; Enabled reports whether the hand-off is active.
func NewPublisher(url string) *Publisher { return &Publisher{url: url} }

// Enabled reports whether a broker URL is configured.
func (p *Publisher) Enabled() bool { return p != nil && p.url != "" }

// PublishBookingRequested publishes the event to the bookings queue.  The
// message is persistent so it survives a broker restart.  The connection is
// established per publish; booking volume is bounded by the WRITE pool, so
// connection churn here is not the bottleneck.
func (p *Publisher) PublishBookingRequested(ctx context.Context, event queue.BookingRequestedEvent) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		queue.BookingQueueName, // name
		true,                   // durable
		false,                  // autoDelete
		false,                  // exclusive
		false,                  // noWait
		nil,                    // args
	); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx,
		"",                     // default exchange
		queue.BookingQueueName, // routing key = queue name
		false,                  // mandatory
		false,                  // immediate
		pub,
	); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}

	return nil
}
