package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Routing keys of the events published after a change commits.
const (
	EventAppointmentBooked        = "appointment.booked"
	EventAppointmentRescheduled   = "appointment.rescheduled"
	EventAppointmentStatusChanged = "appointment.status_changed"
	EventAppointmentExpired       = "appointment.expired"
	EventPaymentRefunded          = "payment.refunded"
	EventReviewCreated            = "rating.review_created"
	EventWithdrawalProcessed      = "wallet.withdrawal_processed"
)

const publishConfirmTimeout = 5 * time.Second

// Event is the envelope sent to the notification sink and the rating feed.
type Event struct {
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

type NotificationPublisher interface {
	Publish(ctx context.Context, event Event) error
}

type rabbitPublisher struct {
	mu       sync.Mutex
	channel  *amqp091.Channel
	exchange string
	log      *logrus.Logger
}

// NewRabbitPublisher opens a dedicated channel in confirm mode. Publishing
// waits for the broker to acknowledge each message.
func NewRabbitPublisher(conn *amqp091.Connection, exchange string, log *logrus.Logger) (NotificationPublisher, error) {
	channel, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	if err := channel.Confirm(false); err != nil {
		channel.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	return &rabbitPublisher{
		channel:  channel,
		exchange: exchange,
		log:      log,
	}, nil
}

func (p *rabbitPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	message := amqp091.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    event.OccurredAt,
		Type:         event.Type,
	}

	ctx, cancel := context.WithTimeout(ctx, publishConfirmTimeout)
	defer cancel()

	// A channel is not safe for concurrent publishers.
	p.mu.Lock()
	confirmation, err := p.channel.PublishWithDeferredConfirmWithContext(ctx, p.exchange, event.Type, false, false, message)
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}

	acked, err := confirmation.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("failed waiting for confirm of %s: %w", event.Type, err)
	}
	if !acked {
		return fmt.Errorf("broker rejected %s", event.Type)
	}

	p.log.Debugf("Published %s", event.Type)
	return nil
}

type logPublisher struct {
	log *logrus.Logger
}

// NewLogPublisher is used when no broker is configured. Events are only logged.
func NewLogPublisher(log *logrus.Logger) NotificationPublisher {
	return &logPublisher{log: log}
}

func (p *logPublisher) Publish(ctx context.Context, event Event) error {
	p.log.WithField("event", event.Type).Infof("Notification event (no broker configured): %+v", event.Payload)
	return nil
}
