package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DispatcherConfig tunes outbound delivery
type DispatcherConfig struct {
	// Exchange and Queue name the broker topology the dispatcher binds
	Exchange string
	Queue    string

	// BaseURL is the public site URL embedded in email links
	BaseURL string

	// MinInterval is the minimum spacing between sends, protecting the
	// mail provider's rate limit when settlement fans out a batch
	MinInterval time.Duration

	// SendTimeout bounds each SMTP conversation so one unreachable
	// recipient cannot stall the queue
	SendTimeout time.Duration
}

// Dispatcher consumes notification events from the broker and emails them
// out one at a time. Sends are serialized on a single channel with a
// minimum inter-send spacing; a failed send is logged and dropped, never
// retried into the bidder's critical path.
type Dispatcher struct {
	conn     *amqp.Connection
	sender   Sender
	config   DispatcherConfig
	logger   *slog.Logger
	lastSend time.Time
}

// NewDispatcher creates a new mail dispatcher
func NewDispatcher(conn *amqp.Connection, sender Sender, config DispatcherConfig, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		conn:   conn,
		sender: sender,
		config: config,
		logger: logger,
	}
}

// Run starts the consumer loop
func (d *Dispatcher) Run(ctx context.Context) error {
	ch, err := d.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if setupErr := d.setupBroker(ch); setupErr != nil {
		return fmt.Errorf("failed to setup broker topology: %w", setupErr)
	}

	msgs, err := ch.Consume(
		d.config.Queue, // queue
		"",             // consumer tag
		false,          // auto-ack
		false,          // exclusive
		false,          // no-local
		false,          // no-wait
		nil,            // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	d.logger.Info("Mail dispatcher waiting for notifications...")

	for {
		select {
		case <-ctx.Done():
			return nil
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("channel closed")
			}

			if err := d.Handle(ctx, delivery.RoutingKey, delivery.Body); err != nil {
				// Undecodable payloads can never succeed; drop them.
				d.logger.Error("Failed to decode notification", "routing_key", delivery.RoutingKey, "error", err)
				if nackErr := delivery.Nack(false, false); nackErr != nil {
					d.logger.Error("Failed to Nack message", "error", nackErr)
				}
				continue
			}

			// Delivery failures were already logged inside Handle; the
			// message is consumed either way, matching the engine's
			// best-effort notification contract.
			if ackErr := delivery.Ack(false); ackErr != nil {
				d.logger.Error("Failed to Ack message", "error", ackErr)
			}
		}
	}
}

// Handle renders and sends one notification. It returns an error only when
// the payload cannot be decoded; send failures are logged and swallowed.
func (d *Dispatcher) Handle(ctx context.Context, eventType string, payload []byte) error {
	msg, err := render(eventType, payload, d.config.BaseURL)
	if err != nil {
		return err
	}

	d.throttle(ctx)

	sendCtx := ctx
	if d.config.SendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, d.config.SendTimeout)
		defer cancel()
	}

	if err := d.sender.Send(sendCtx, msg); err != nil {
		d.logger.Error("Failed to send notification",
			"recipient", msg.To,
			"subject", msg.Subject,
			"error", err,
		)
		return nil
	}

	d.lastSend = time.Now()
	d.logger.Info("Notification sent", "recipient", msg.To, "type", eventType)
	return nil
}

// throttle enforces the minimum spacing between sends
func (d *Dispatcher) throttle(ctx context.Context) {
	if d.config.MinInterval <= 0 || d.lastSend.IsZero() {
		return
	}
	wait := d.config.MinInterval - time.Since(d.lastSend)
	if wait <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(wait):
	}
}

func (d *Dispatcher) setupBroker(ch *amqp.Channel) error {
	err := ch.ExchangeDeclare(
		d.config.Exchange, // name
		"topic",           // type
		true,              // durable
		false,             // auto-deleted
		false,             // internal
		false,             // no-wait
		nil,               // args
	)
	if err != nil {
		return err
	}

	q, err := ch.QueueDeclare(
		d.config.Queue, // name
		true,           // durable
		false,          // delete when unused
		false,          // exclusive
		false,          // no-wait
		nil,            // args
	)
	if err != nil {
		return err
	}

	return ch.QueueBind(
		q.Name,            // queue name
		"notification.*",  // routing key
		d.config.Exchange, // exchange
		false,
		nil,
	)
}
