package booking

import (
	"context"
	"time"
)

// ServiceOption configures a Service instance.
type ServiceOption func(*Service)

// OperationLogger records domain-level events emitted by Service operations.
type OperationLogger interface {
	LogOperation(ctx context.Context, entry OperationLog)
}

// OperationLog describes a state-changing booking operation.
type OperationLog struct {
	Operation  string
	UserID     UserID
	BookingID  *BookingID
	ShowtimeID *ShowtimeID
	SeatIDs    []SeatID
	Amount     Money
	OrderCode  int64
	Outcome    Outcome
	Count      int
	Status     string
	Error      error
}

// WithOperationLogger wires a logger that receives callbacks for every operation.
func WithOperationLogger(logger OperationLogger) ServiceOption {
	return func(service *Service) {
		service.logger = logger
	}
}

// WithEventPublisher wires a publisher notified after committed state changes.
func WithEventPublisher(publisher EventPublisher) ServiceOption {
	return func(service *Service) {
		service.publisher = publisher
	}
}

// WithPaymentGateway wires the gateway used for payment links and webhooks.
func WithPaymentGateway(gateway PaymentGateway) ServiceOption {
	return func(service *Service) {
		service.gateway = gateway
	}
}

// WithHoldTTL overrides how long pending bookings keep their seats.
func WithHoldTTL(holdTTL time.Duration) ServiceOption {
	return func(service *Service) {
		if holdTTL > 0 {
			service.holdTTL = holdTTL
		}
	}
}
