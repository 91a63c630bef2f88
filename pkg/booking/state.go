package booking

import (
	"fmt"
	"strings"
)

// Status is the booking lifecycle status.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// ParseStatus validates a booking status string.
func ParseStatus(raw string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusPending:
		return StatusPending, nil
	case StatusConfirmed:
		return StatusConfirmed, nil
	case StatusCancelled:
		return StatusCancelled, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
}

// PaymentStatus is the settlement status of a booking.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentSuccess  PaymentStatus = "success"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// ParsePaymentStatus validates a payment status string.
func ParsePaymentStatus(raw string) (PaymentStatus, error) {
	switch PaymentStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case PaymentPending:
		return PaymentPending, nil
	case PaymentSuccess:
		return PaymentSuccess, nil
	case PaymentFailed:
		return PaymentFailed, nil
	case PaymentRefunded:
		return PaymentRefunded, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPaymentStatus, raw)
	}
}

// State is the (status, payment status) pair of a booking.
type State struct {
	Status  Status
	Payment PaymentStatus
}

var (
	// StatePending is the initial state of every booking.
	StatePending = State{Status: StatusPending, Payment: PaymentPending}
	// StateConfirmed is reached by a successful payment.
	StateConfirmed = State{Status: StatusConfirmed, Payment: PaymentSuccess}
	// StateFailed is reached by a failed payment or an expired hold.
	StateFailed = State{Status: StatusCancelled, Payment: PaymentFailed}
	// StateRefunded is reached by an explicit cancellation.
	StateRefunded = State{Status: StatusCancelled, Payment: PaymentRefunded}
)

// NewState validates that the pair is one the booking lifecycle can reach.
func NewState(status Status, payment PaymentStatus) (State, error) {
	state := State{Status: status, Payment: payment}
	switch state {
	case StatePending, StateConfirmed, StateFailed, StateRefunded:
		return state, nil
	default:
		return State{}, fmt.Errorf("%w: %s/%s", ErrInvalidTransition, status, payment)
	}
}

// HoldsSeats reports whether a booking in this state keeps its seats claimed.
func (state State) HoldsSeats() bool {
	return state.Status == StatusPending || state.Status == StatusConfirmed
}

// String renders the pair as status/payment.
func (state State) String() string {
	return string(state.Status) + "/" + string(state.Payment)
}

// Event is an input to the booking state machine.
type Event string

const (
	EventPaymentSucceeded Event = "payment_succeeded"
	EventPaymentFailed    Event = "payment_failed"
	EventCancel           Event = "cancel"
	EventExpire           Event = "expire"
)

// Outcome names what a transition did.
type Outcome string

const (
	OutcomeConfirmed        Outcome = "confirmed"
	OutcomePaymentFailed    Outcome = "payment_failed"
	OutcomeCancelled        Outcome = "cancelled"
	OutcomeExpired          Outcome = "expired"
	OutcomeAlreadyProcessed Outcome = "already_processed"
	OutcomeNotPending       Outcome = "not_pending"
	OutcomeLatePayment      Outcome = "late_payment"
	OutcomeUnknownOrder     Outcome = "unknown_order"
)

// Decision is the result of applying an event to a state.
type Decision struct {
	Next         State
	Apply        bool
	ReleaseSeats bool
	Outcome      Outcome
}

// Transition is the single transition table shared by cancellation, webhook reconciliation and expiry.
//
// A successful payment reported for an already cancelled booking is not applied. It is surfaced as
// OutcomeLatePayment so operators can reconcile it by hand.
func Transition(current State, event Event) (Decision, error) {
	switch current {
	case StatePending:
		switch event {
		case EventPaymentSucceeded:
			return Decision{Next: StateConfirmed, Apply: true, Outcome: OutcomeConfirmed}, nil
		case EventPaymentFailed:
			return Decision{Next: StateFailed, Apply: true, ReleaseSeats: true, Outcome: OutcomePaymentFailed}, nil
		case EventCancel:
			return Decision{Next: StateRefunded, Apply: true, ReleaseSeats: true, Outcome: OutcomeCancelled}, nil
		case EventExpire:
			return Decision{Next: StateFailed, Apply: true, ReleaseSeats: true, Outcome: OutcomeExpired}, nil
		}
	case StateConfirmed:
		switch event {
		case EventPaymentSucceeded, EventPaymentFailed:
			return Decision{Next: current, Outcome: OutcomeAlreadyProcessed}, nil
		case EventCancel:
			return Decision{Next: StateRefunded, Apply: true, ReleaseSeats: true, Outcome: OutcomeCancelled}, nil
		case EventExpire:
			return Decision{Next: current, Outcome: OutcomeNotPending}, nil
		}
	case StateFailed, StateRefunded:
		switch event {
		case EventPaymentSucceeded:
			return Decision{Next: current, Outcome: OutcomeLatePayment}, nil
		case EventPaymentFailed:
			return Decision{Next: current, Outcome: OutcomeAlreadyProcessed}, nil
		case EventCancel:
			return Decision{}, ErrBookingAlreadyCancelled
		case EventExpire:
			return Decision{Next: current, Outcome: OutcomeNotPending}, nil
		}
	}
	return Decision{}, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, event, current)
}
