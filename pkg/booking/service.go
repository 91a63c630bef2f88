package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Service contains the booking domain logic over a Store.
type Service struct {
	store     Store
	nowFn     func() time.Time
	logger    OperationLogger
	publisher EventPublisher
	gateway   PaymentGateway
	holdTTL   time.Duration
	newID     func() string
}

// NewService wires a Service.
func NewService(store Store, now func() time.Time, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	service := &Service{
		store:   store,
		nowFn:   now,
		holdTTL: DefaultHoldTTL,
		newID:   uuid.NewString,
	}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

// CreateBookingInput is a validated booking request.
type CreateBookingInput struct {
	ShowtimeID    ShowtimeID
	SeatIDs       []SeatID
	PaymentMethod PaymentMethod
}

// NewCreateBookingInput validates raw request values before any transaction opens.
func NewCreateBookingInput(showtimeID string, seatIDs []string, paymentMethod string) (CreateBookingInput, error) {
	parsedShowtimeID, err := NewShowtimeID(showtimeID)
	if err != nil {
		return CreateBookingInput{}, err
	}
	parsedSeatIDs, err := NewSeatIDs(seatIDs)
	if err != nil {
		return CreateBookingInput{}, err
	}
	method, err := ParsePaymentMethod(paymentMethod)
	if err != nil {
		return CreateBookingInput{}, err
	}
	return CreateBookingInput{
		ShowtimeID:    parsedShowtimeID,
		SeatIDs:       parsedSeatIDs,
		PaymentMethod: method,
	}, nil
}

// CreateBooking reserves seats for a showtime. The availability check and the inserts share one transaction.
func (service *Service) CreateBooking(ctx context.Context, actor Actor, input CreateBookingInput) (Booking, error) {
	var created Booking
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		showtime, err := transactionStore.GetShowtime(ctx, input.ShowtimeID, true)
		if err != nil {
			return err
		}
		if showtime.Status != ShowtimeStatusActive {
			return ErrShowtimeClosed
		}
		seats, err := transactionStore.ListRoomSeats(ctx, showtime.RoomID, input.SeatIDs)
		if err != nil {
			return err
		}
		if len(seats) != len(input.SeatIDs) {
			return fmt.Errorf("%w: %d of %d seats found in room %s", ErrInvalidSeats, len(seats), len(input.SeatIDs), showtime.RoomID.String())
		}
		claimed, err := transactionStore.FindClaimedSeats(ctx, input.ShowtimeID, input.SeatIDs)
		if err != nil {
			return err
		}
		if len(claimed) > 0 {
			return SeatConflictError{Seats: claimed}
		}
		total, err := SumSeatPrices(seats)
		if err != nil {
			return err
		}
		bookingID, err := NewBookingID(service.newID())
		if err != nil {
			return err
		}
		now := service.nowFn().UTC()
		booking := Booking{
			ID:            bookingID,
			UserID:        actor.UserID,
			ShowtimeID:    input.ShowtimeID,
			TotalPrice:    total,
			State:         StatePending,
			PaymentMethod: input.PaymentMethod,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := transactionStore.CreateBooking(ctx, booking); err != nil {
			return err
		}
		bookingSeats := make([]BookingSeat, 0, len(input.SeatIDs))
		for _, seatID := range input.SeatIDs {
			bookingSeats = append(bookingSeats, BookingSeat{BookingID: bookingID, ShowtimeID: input.ShowtimeID, SeatID: seatID})
		}
		if err := transactionStore.CreateBookingSeats(ctx, bookingSeats); err != nil {
			return err
		}
		created = booking
		return nil
	})
	showtimeRef := input.ShowtimeID
	entry := OperationLog{
		Operation:  operationCreateBooking,
		UserID:     actor.UserID,
		ShowtimeID: &showtimeRef,
		SeatIDs:    input.SeatIDs,
		Amount:     created.TotalPrice,
		Error:      operationError,
	}
	if operationError == nil {
		bookingRef := created.ID
		entry.BookingID = &bookingRef
	}
	service.logOperation(ctx, entry)
	if operationError != nil {
		return Booking{}, operationError
	}
	service.publish(ctx, LifecycleCreated, created, input.SeatIDs)
	return created, nil
}

// CancelBooking cancels a booking on behalf of its owner or an admin and releases its seats.
func (service *Service) CancelBooking(ctx context.Context, actor Actor, bookingID BookingID) (Booking, error) {
	var (
		cancelled Booking
		released  []SeatID
	)
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		booking, err := transactionStore.GetBooking(ctx, bookingID, true)
		if err != nil {
			return err
		}
		if !actor.CanManage(booking.UserID) {
			return ErrForbidden
		}
		decision, err := Transition(booking.State, EventCancel)
		if err != nil {
			return err
		}
		applied, seatIDs, err := service.applyDecision(ctx, transactionStore, booking, decision, nil)
		if err != nil {
			return err
		}
		if !applied {
			return ErrBookingAlreadyCancelled
		}
		booking.State = decision.Next
		booking.UpdatedAt = service.nowFn().UTC()
		cancelled = booking
		released = seatIDs
		return nil
	})
	bookingRef := bookingID
	service.logOperation(ctx, OperationLog{
		Operation: operationCancelBooking,
		UserID:    actor.UserID,
		BookingID: &bookingRef,
		SeatIDs:   released,
		Amount:    cancelled.TotalPrice,
		Outcome:   outcomeIf(operationError == nil, OutcomeCancelled),
		Error:     operationError,
	})
	if operationError != nil {
		return Booking{}, operationError
	}
	service.publish(ctx, LifecycleCancelled, cancelled, released)
	return cancelled, nil
}

// GetBooking returns a booking with its seats and showtime context to its owner or an admin.
func (service *Service) GetBooking(ctx context.Context, actor Actor, bookingID BookingID) (BookingDetail, error) {
	detail, err := service.store.GetBookingDetail(ctx, bookingID)
	if err != nil {
		return BookingDetail{}, err
	}
	if !actor.CanManage(detail.Booking.UserID) {
		return BookingDetail{}, ErrForbidden
	}
	return detail, nil
}

// ListMyBookings returns the caller's bookings, newest first.
func (service *Service) ListMyBookings(ctx context.Context, actor Actor) ([]BookingDetail, error) {
	return service.store.ListBookingsByUser(ctx, actor.UserID)
}

// ListBookings returns bookings of every user to admins and staff.
func (service *Service) ListBookings(ctx context.Context, actor Actor, filter BookingFilter) ([]BookingDetail, error) {
	if !actor.CanListAll() {
		return nil, ErrForbidden
	}
	if filter.Status != "" {
		if _, err := ParseStatus(string(filter.Status)); err != nil {
			return nil, err
		}
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return service.store.ListBookings(ctx, filter)
}

// ShowtimeSeats reports every seat of the showtime's room and whether an active booking holds it.
func (service *Service) ShowtimeSeats(ctx context.Context, showtimeID ShowtimeID) ([]SeatAvailability, error) {
	if _, err := service.store.GetShowtime(ctx, showtimeID, false); err != nil {
		return nil, err
	}
	return service.store.ListShowtimeSeats(ctx, showtimeID)
}

// applyDecision persists a transition. It reports false when the row changed under a concurrent writer.
func (service *Service) applyDecision(ctx context.Context, transactionStore Store, booking Booking, decision Decision, paidAmount *Money) (bool, []SeatID, error) {
	if !decision.Apply {
		return false, nil, nil
	}
	if err := transactionStore.UpdateBookingState(ctx, booking.ID, booking.State, decision.Next, paidAmount); err != nil {
		if errors.Is(err, ErrStateConflict) {
			return false, nil, nil
		}
		return false, nil, err
	}
	if !decision.ReleaseSeats {
		return true, nil, nil
	}
	seatIDs, err := transactionStore.ListBookingSeatIDs(ctx, booking.ID)
	if err != nil {
		return false, nil, err
	}
	if err := transactionStore.ReleaseSeats(ctx, booking.ID); err != nil {
		return false, nil, err
	}
	return true, seatIDs, nil
}

func (service *Service) publish(ctx context.Context, eventType LifecycleEventType, booking Booking, seatIDs []SeatID) {
	if service.publisher == nil {
		return
	}
	service.publisher.Publish(ctx, LifecycleEvent{
		Type:       eventType,
		BookingID:  booking.ID,
		UserID:     booking.UserID,
		ShowtimeID: booking.ShowtimeID,
		SeatIDs:    seatIDs,
		Amount:     booking.TotalPrice,
		State:      booking.State,
		OccurredAt: service.nowFn().UTC(),
	})
}

func (service *Service) logOperation(ctx context.Context, entry OperationLog) {
	if service.logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = operationStatusError
		} else {
			entry.Status = operationStatusOK
		}
	}
	service.logger.LogOperation(ctx, entry)
}

func outcomeIf(condition bool, outcome Outcome) Outcome {
	if condition {
		return outcome
	}
	return ""
}
