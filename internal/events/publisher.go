package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/VCongNam/CinemaGo-sub001/internal/metrics"
	"github.com/VCongNam/CinemaGo-sub001/pkg/booking"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	// ExchangeName is the durable topic exchange receiving lifecycle events.
	ExchangeName   = "cinema.bookings"
	exchangeKind   = "topic"
	contentType    = "application/json"
	publishTimeout = 5 * time.Second

	resultOK    = "ok"
	resultError = "error"
)

// Publisher delivers lifecycle events and releases its broker resources on Close.
type Publisher interface {
	booking.EventPublisher
	Close() error
}

// Message is the JSON body of a published lifecycle event.
type Message struct {
	Type          string    `json:"type"`
	BookingID     string    `json:"booking_id"`
	UserID        string    `json:"user_id"`
	ShowtimeID    string    `json:"showtime_id"`
	SeatIDs       []string  `json:"seat_ids"`
	Amount        int64     `json:"amount"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// NewMessage converts a domain event to its wire form.
func NewMessage(event booking.LifecycleEvent) Message {
	return Message{
		Type:          string(event.Type),
		BookingID:     event.BookingID.String(),
		UserID:        event.UserID.String(),
		ShowtimeID:    event.ShowtimeID.String(),
		SeatIDs:       booking.SeatIDStrings(event.SeatIDs),
		Amount:        event.Amount.Int64(),
		Status:        string(event.State.Status),
		PaymentStatus: string(event.State.Payment),
		OccurredAt:    event.OccurredAt.UTC(),
	}
}

// Noop drops every event.
type Noop struct{}

// Publish implements booking.EventPublisher.
func (Noop) Publish(context.Context, booking.LifecycleEvent) {}

// Close implements Publisher.
func (Noop) Close() error { return nil }

type channel interface {
	PublishWithContext(ctx context.Context, exchange string, key string, mandatory bool, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes persistent JSON messages routed by event type.
type AMQPPublisher struct {
	mutex      sync.Mutex
	connection *amqp.Connection
	channel    channel
	logger     *zap.Logger
}

// NewPublisher dials the broker and declares the exchange. An empty url yields Noop.
func NewPublisher(url string, logger *zap.Logger) (Publisher, error) {
	if strings.TrimSpace(url) == "" {
		return Noop{}, nil
	}
	connection, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	amqpChannel, err := connection.Channel()
	if err != nil {
		_ = connection.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if err := amqpChannel.ExchangeDeclare(ExchangeName, exchangeKind, true, false, false, false, nil); err != nil {
		_ = amqpChannel.Close()
		_ = connection.Close()
		return nil, fmt.Errorf("rabbitmq exchange declare: %w", err)
	}
	publisher := newAMQPPublisher(amqpChannel, logger)
	publisher.connection = connection
	return publisher, nil
}

func newAMQPPublisher(amqpChannel channel, logger *zap.Logger) *AMQPPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AMQPPublisher{channel: amqpChannel, logger: logger}
}

// Publish sends the event. Failures are logged and counted, never returned.
func (publisher *AMQPPublisher) Publish(ctx context.Context, event booking.LifecycleEvent) {
	body, err := json.Marshal(NewMessage(event))
	if err != nil {
		publisher.fail(event, err)
		return
	}
	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	publisher.mutex.Lock()
	err = publisher.channel.PublishWithContext(publishCtx, ExchangeName, string(event.Type), false, false, amqp.Publishing{
		ContentType:  contentType,
		DeliveryMode: amqp.Persistent,
		MessageId:    event.BookingID.String() + ":" + string(event.Type),
		Timestamp:    event.OccurredAt.UTC(),
		Body:         body,
	})
	publisher.mutex.Unlock()
	if err != nil {
		publisher.fail(event, err)
		return
	}
	metrics.IncPublished(string(event.Type), resultOK)
}

func (publisher *AMQPPublisher) fail(event booking.LifecycleEvent, err error) {
	metrics.IncPublished(string(event.Type), resultError)
	publisher.logger.Warn("lifecycle event publish failed",
		zap.String("type", string(event.Type)),
		zap.String("booking_id", event.BookingID.String()),
		zap.Error(err),
	)
}

// Close releases the channel and connection.
func (publisher *AMQPPublisher) Close() error {
	publisher.mutex.Lock()
	defer publisher.mutex.Unlock()
	channelErr := publisher.channel.Close()
	if publisher.connection == nil {
		return channelErr
	}
	if err := publisher.connection.Close(); err != nil {
		return err
	}
	return channelErr
}
