package booking

import (
	"context"
	"time"
)

// LifecycleEventType names a committed booking change.
type LifecycleEventType string

const (
	LifecycleCreated       LifecycleEventType = "booking.created"
	LifecycleConfirmed     LifecycleEventType = "booking.confirmed"
	LifecycleCancelled     LifecycleEventType = "booking.cancelled"
	LifecycleExpired       LifecycleEventType = "booking.expired"
	LifecyclePaymentFailed LifecycleEventType = "booking.payment_failed"
)

// LifecycleEvent is published after a booking change commits.
type LifecycleEvent struct {
	Type       LifecycleEventType
	BookingID  BookingID
	UserID     UserID
	ShowtimeID ShowtimeID
	SeatIDs    []SeatID
	Amount     Money
	State      State
	OccurredAt time.Time
}

// EventPublisher delivers lifecycle events. Delivery failures must not affect the booking.
type EventPublisher interface {
	Publish(ctx context.Context, event LifecycleEvent)
}

func lifecycleTypeFor(outcome Outcome) (LifecycleEventType, bool) {
	switch outcome {
	case OutcomeConfirmed:
		return LifecycleConfirmed, true
	case OutcomePaymentFailed:
		return LifecyclePaymentFailed, true
	case OutcomeCancelled:
		return LifecycleCancelled, true
	case OutcomeExpired:
		return LifecycleExpired, true
	default:
		return "", false
	}
}
