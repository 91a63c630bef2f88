package oplog

import (
	"context"
	"errors"

	"github.com/VCongNam/CinemaGo-sub001/internal/metrics"
	"github.com/VCongNam/CinemaGo-sub001/pkg/booking"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var expectedRejections = []error{
	booking.ErrShowtimeNotFound,
	booking.ErrShowtimeClosed,
	booking.ErrInvalidSeats,
	booking.ErrSeatsAlreadyBooked,
	booking.ErrBookingNotFound,
	booking.ErrBookingAlreadyCancelled,
	booking.ErrBookingNotPending,
	booking.ErrForbidden,
	booking.ErrWebhookSignature,
	booking.ErrGatewayRejected,
	booking.ErrPaymentLinkNotFound,
	booking.ErrInvalidSeatPrice,
	booking.ErrInvalidShowtimeID,
	booking.ErrInvalidSeatID,
	booking.ErrInvalidBookingID,
	booking.ErrInvalidPaymentMethod,
}

// Logger writes booking operations to zap and counts them.
type Logger struct {
	logger *zap.Logger
}

// New builds a Logger. A nil zap logger disables output but keeps metrics.
func New(logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{logger: logger}
}

// LogOperation implements booking.OperationLogger.
func (operationLogger *Logger) LogOperation(_ context.Context, entry booking.OperationLog) {
	metrics.IncOperation(entry.Operation, entry.Status, string(entry.Outcome))
	if errors.Is(entry.Error, booking.ErrSeatsAlreadyBooked) {
		metrics.IncSeatConflict()
	}
	fields := Fields(entry)
	switch Level(entry) {
	case zapcore.ErrorLevel:
		operationLogger.logger.Error("booking operation failed", fields...)
	case zapcore.WarnLevel:
		operationLogger.logger.Warn("booking operation rejected", fields...)
	default:
		operationLogger.logger.Info("booking operation", fields...)
	}
}

// Level picks the severity: late payments and expected rejections warn, other failures are errors.
func Level(entry booking.OperationLog) zapcore.Level {
	if entry.Error == nil {
		if entry.Outcome == booking.OutcomeLatePayment || entry.Outcome == booking.OutcomeUnknownOrder {
			return zapcore.WarnLevel
		}
		return zapcore.InfoLevel
	}
	for _, rejection := range expectedRejections {
		if errors.Is(entry.Error, rejection) {
			return zapcore.WarnLevel
		}
	}
	return zapcore.ErrorLevel
}

// Fields renders an operation log entry as zap fields.
func Fields(entry booking.OperationLog) []zap.Field {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("status", entry.Status),
	}
	if !entry.UserID.IsZero() {
		fields = append(fields, zap.String("user_id", entry.UserID.String()))
	}
	if entry.BookingID != nil {
		fields = append(fields, zap.String("booking_id", entry.BookingID.String()))
	}
	if entry.ShowtimeID != nil {
		fields = append(fields, zap.String("showtime_id", entry.ShowtimeID.String()))
	}
	if len(entry.SeatIDs) > 0 {
		fields = append(fields, zap.Strings("seat_ids", booking.SeatIDStrings(entry.SeatIDs)))
	}
	if entry.Amount != 0 {
		fields = append(fields, zap.Int64("amount", entry.Amount.Int64()))
	}
	if entry.OrderCode != 0 {
		fields = append(fields, zap.Int64("order_code", entry.OrderCode))
	}
	if entry.Outcome != "" {
		fields = append(fields, zap.String("outcome", string(entry.Outcome)))
	}
	if entry.Count != 0 {
		fields = append(fields, zap.Int("count", entry.Count))
	}
	if entry.Error != nil {
		fields = append(fields, zap.Error(entry.Error))
	}
	return fields
}
