package booking

import (
	"errors"
	"fmt"
	"strings"
)

// Domain-level error values returned by the booking service.
var (
	ErrShowtimeNotFound        = errors.New("showtime not found")
	ErrShowtimeClosed          = errors.New("showtime is no longer open for booking")
	ErrInvalidSeats            = errors.New("seats do not belong to the showtime room")
	ErrSeatsAlreadyBooked      = errors.New("seats already booked")
	ErrInvalidSeatPrice        = errors.New("invalid seat price")
	ErrBookingNotFound         = errors.New("booking not found")
	ErrBookingAlreadyCancelled = errors.New("booking already cancelled")
	ErrBookingNotPending       = errors.New("booking is not pending")
	ErrForbidden               = errors.New("forbidden")
	ErrInvalidTransition       = errors.New("invalid booking transition")
	ErrStateConflict           = errors.New("booking state changed concurrently")
	ErrInvalidUserID           = errors.New("invalid user id")
	ErrInvalidBookingID        = errors.New("invalid booking id")
	ErrInvalidShowtimeID       = errors.New("invalid showtime id")
	ErrInvalidSeatID           = errors.New("invalid seat id")
	ErrInvalidRoomID           = errors.New("invalid room id")
	ErrInvalidRole             = errors.New("invalid role")
	ErrInvalidPaymentMethod    = errors.New("invalid payment method")
	ErrInvalidMoney            = errors.New("invalid money amount")
	ErrInvalidStatus           = errors.New("invalid booking status")
	ErrInvalidPaymentStatus    = errors.New("invalid payment status")
	ErrInvalidServiceConfig    = errors.New("invalid service config")
	ErrPaymentLinkNotFound     = errors.New("payment link not found")
	ErrInvalidPaymentLinkID    = errors.New("invalid payment link id")
	ErrGatewayMisconfigured    = errors.New("payment gateway misconfigured")
	ErrGatewayRejected         = errors.New("payment gateway rejected request")
	ErrGatewayUnavailable      = errors.New("payment gateway unavailable")
	ErrWebhookSignature        = errors.New("webhook signature verification failed")
)

// OperationError wraps a failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the operation segment.
func (operationError OperationError) Operation() string {
	return operationError.operation
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}

// SeatConflictError names the seats that another active booking already holds.
type SeatConflictError struct {
	Seats []Seat
}

// Error lists the conflicting seat labels.
func (conflict SeatConflictError) Error() string {
	return fmt.Sprintf("%v: %s", ErrSeatsAlreadyBooked, strings.Join(conflict.Labels(), ", "))
}

// Is matches ErrSeatsAlreadyBooked.
func (conflict SeatConflictError) Is(target error) bool {
	return target == ErrSeatsAlreadyBooked
}

// Labels returns the human-readable seat labels, falling back to ids.
func (conflict SeatConflictError) Labels() []string {
	labels := make([]string, 0, len(conflict.Seats))
	for _, seat := range conflict.Seats {
		if seat.Label != "" {
			labels = append(labels, seat.Label)
			continue
		}
		labels = append(labels, seat.ID.String())
	}
	return labels
}

// SeatIDs returns the ids of the conflicting seats.
func (conflict SeatConflictError) SeatIDs() []SeatID {
	seatIDs := make([]SeatID, 0, len(conflict.Seats))
	for _, seat := range conflict.Seats {
		seatIDs = append(seatIDs, seat.ID)
	}
	return seatIDs
}

// GatewayError carries the provider code and description of a rejected request.
type GatewayError struct {
	Kind        error
	Code        string
	Description string
}

// Error formats the gateway failure.
func (gatewayError GatewayError) Error() string {
	if gatewayError.Code == "" {
		return fmt.Sprintf("%v: %s", gatewayError.Kind, gatewayError.Description)
	}
	return fmt.Sprintf("%v: code %s: %s", gatewayError.Kind, gatewayError.Code, gatewayError.Description)
}

// Unwrap exposes the error kind for errors.Is.
func (gatewayError GatewayError) Unwrap() error {
	return gatewayError.Kind
}
