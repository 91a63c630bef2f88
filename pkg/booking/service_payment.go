package booking

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// DeriveOrderCode maps a booking id to the gateway order code: the low 48 bits of its uuid.
// The result is always a positive integer that survives a JSON number round trip.
func DeriveOrderCode(bookingID BookingID) (int64, error) {
	parsed, err := uuid.Parse(bookingID.String())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidBookingID, err)
	}
	var buffer [8]byte
	copy(buffer[2:], parsed[10:16])
	orderCode := int64(binary.BigEndian.Uint64(buffer[:])) & orderCodeMask
	if orderCode == 0 {
		return 0, fmt.Errorf("%w: zero order code", ErrInvalidBookingID)
	}
	return orderCode, nil
}

// TruncateDescription trims a payment description to the gateway limit, marking truncation with an ellipsis.
func TruncateDescription(description string) string {
	trimmed := strings.TrimSpace(description)
	if utf8.RuneCountInString(trimmed) <= paymentDescriptionMaxRunes {
		return trimmed
	}
	runes := []rune(trimmed)
	keep := paymentDescriptionMaxRunes - utf8.RuneCountInString(paymentDescriptionEllipsis)
	return strings.TrimSpace(string(runes[:keep])) + paymentDescriptionEllipsis
}

func paymentDescription(bookingID BookingID) string {
	shortID := strings.ReplaceAll(bookingID.String(), "-", "")
	if len(shortID) > paymentDescriptionShortSize {
		shortID = shortID[:paymentDescriptionShortSize]
	}
	return TruncateDescription(paymentDescriptionPrefix + strings.ToUpper(shortID))
}

// CreatePaymentLink opens a gateway checkout for a pending booking owned by the caller.
// The gateway call runs outside any transaction; the link is stored only if the booking is still pending.
func (service *Service) CreatePaymentLink(ctx context.Context, actor Actor, bookingID BookingID) (PaymentLink, error) {
	link, operationError := service.createPaymentLink(ctx, actor, bookingID)
	bookingRef := bookingID
	service.logOperation(ctx, OperationLog{
		Operation: operationCreatePaymentLink,
		UserID:    actor.UserID,
		BookingID: &bookingRef,
		Amount:    link.Amount,
		OrderCode: link.OrderCode,
		Error:     operationError,
	})
	if operationError != nil {
		return PaymentLink{}, operationError
	}
	return link, nil
}

func (service *Service) createPaymentLink(ctx context.Context, actor Actor, bookingID BookingID) (PaymentLink, error) {
	if service.gateway == nil {
		return PaymentLink{}, fmt.Errorf("%w: no payment gateway configured", ErrGatewayMisconfigured)
	}
	booking, err := service.store.GetBooking(ctx, bookingID, false)
	if err != nil {
		return PaymentLink{}, err
	}
	if booking.UserID != actor.UserID {
		return PaymentLink{}, ErrForbidden
	}
	if booking.State != StatePending {
		return PaymentLink{}, ErrBookingNotPending
	}
	if existing, ok := storedPaymentLink(booking); ok {
		return existing, nil
	}
	orderCode, err := DeriveOrderCode(booking.ID)
	if err != nil {
		return PaymentLink{}, err
	}
	link, err := service.gateway.CreatePaymentLink(ctx, PaymentLinkRequest{
		OrderCode:   orderCode,
		Amount:      booking.TotalPrice,
		Description: paymentDescription(booking.ID),
	})
	if err != nil {
		return PaymentLink{}, err
	}
	link.OrderCode = orderCode
	link.Amount = booking.TotalPrice
	err = service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		current, err := transactionStore.GetBooking(ctx, bookingID, true)
		if err != nil {
			return err
		}
		if current.State != StatePending {
			return ErrBookingNotPending
		}
		return transactionStore.SetPaymentLink(ctx, bookingID, link)
	})
	if err != nil {
		return PaymentLink{}, err
	}
	return link, nil
}

func storedPaymentLink(booking Booking) (PaymentLink, bool) {
	if booking.PaymentLinkID == nil || booking.CheckoutURL == nil || booking.OrderCode == nil {
		return PaymentLink{}, false
	}
	link := PaymentLink{
		OrderCode:     *booking.OrderCode,
		PaymentLinkID: *booking.PaymentLinkID,
		CheckoutURL:   *booking.CheckoutURL,
		Amount:        booking.TotalPrice,
	}
	if booking.QRCode != nil {
		link.QRCode = *booking.QRCode
	}
	return link, true
}

// HandleWebhook reconciles a gateway callback. Unverified payloads are rejected without touching state;
// verified payloads for unknown orders or already settled bookings are acknowledged as no-ops.
func (service *Service) HandleWebhook(ctx context.Context, payload []byte) (WebhookResult, error) {
	if service.gateway == nil {
		return WebhookResult{}, fmt.Errorf("%w: no payment gateway configured", ErrGatewayMisconfigured)
	}
	notification, err := service.gateway.VerifyWebhook(payload)
	if err != nil {
		service.logOperation(ctx, OperationLog{Operation: operationHandleWebhook, Error: err})
		if errors.Is(err, ErrWebhookSignature) {
			return WebhookResult{}, err
		}
		return WebhookResult{}, fmt.Errorf("%w: %v", ErrWebhookSignature, err)
	}
	var (
		result   WebhookResult
		booking  Booking
		released []SeatID
	)
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		result = WebhookResult{}
		released = nil
		event := PaymentEvent{
			OrderCode:  notification.OrderCode,
			Code:       notification.Code,
			Amount:     notification.Amount,
			Payload:    notification.Raw,
			ReceivedAt: service.nowFn().UTC(),
		}
		current, err := transactionStore.GetBookingByOrderCode(ctx, notification.OrderCode, true)
		if errors.Is(err, ErrBookingNotFound) {
			result.Outcome = OutcomeUnknownOrder
			event.Outcome = OutcomeUnknownOrder
			return transactionStore.InsertPaymentEvent(ctx, event)
		}
		if err != nil {
			return err
		}
		bookingRef := current.ID
		result.BookingID = &bookingRef
		event.BookingID = &bookingRef

		stateEvent := EventPaymentFailed
		var paidAmount *Money
		if notification.Succeeded() {
			stateEvent = EventPaymentSucceeded
			amount := notification.Amount
			paidAmount = &amount
		}
		decision, err := Transition(current.State, stateEvent)
		if err != nil {
			return err
		}
		applied, seatIDs, err := service.applyDecision(ctx, transactionStore, current, decision, paidAmount)
		if err != nil {
			return err
		}
		result.Outcome = decision.Outcome
		if decision.Apply && !applied {
			result.Outcome = OutcomeAlreadyProcessed
		}
		if applied {
			current.State = decision.Next
			if paidAmount != nil {
				current.PaidAmount = *paidAmount
			}
			current.UpdatedAt = service.nowFn().UTC()
			released = seatIDs
		}
		booking = current
		event.Outcome = result.Outcome
		return transactionStore.InsertPaymentEvent(ctx, event)
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationHandleWebhook,
		UserID:    booking.UserID,
		BookingID: result.BookingID,
		SeatIDs:   released,
		Amount:    notification.Amount,
		OrderCode: notification.OrderCode,
		Outcome:   result.Outcome,
		Error:     operationError,
	})
	if operationError != nil {
		return WebhookResult{}, operationError
	}
	if eventType, ok := lifecycleTypeFor(result.Outcome); ok {
		service.publish(ctx, eventType, booking, released)
	}
	return result, nil
}

// PaymentStatus returns the local payment view of a booking, enriched with the gateway view when a link exists.
// A gateway failure degrades to the local view.
func (service *Service) PaymentStatus(ctx context.Context, actor Actor, bookingID BookingID) (PaymentStatusView, error) {
	booking, err := service.store.GetBooking(ctx, bookingID, false)
	if err != nil {
		return PaymentStatusView{}, err
	}
	if !actor.CanManage(booking.UserID) {
		return PaymentStatusView{}, ErrForbidden
	}
	view := PaymentStatusView{
		BookingID:     booking.ID,
		State:         booking.State,
		TotalPrice:    booking.TotalPrice,
		PaidAmount:    booking.PaidAmount,
		OrderCode:     booking.OrderCode,
		PaymentLinkID: booking.PaymentLinkID,
	}
	if booking.PaymentLinkID == nil || service.gateway == nil {
		return view, nil
	}
	status, err := service.gateway.GetPaymentLink(ctx, *booking.PaymentLinkID)
	if err != nil {
		view.GatewayError = ErrGatewayUnavailable.Error()
		if errors.Is(err, ErrPaymentLinkNotFound) {
			view.GatewayError = ErrPaymentLinkNotFound.Error()
		}
		return view, nil
	}
	view.Gateway = &status
	return view, nil
}

// CheckPaymentLink returns the gateway-reported status of a payment link.
func (service *Service) CheckPaymentLink(ctx context.Context, paymentLinkID string) (PaymentLinkStatus, error) {
	trimmed := strings.TrimSpace(paymentLinkID)
	if trimmed == "" {
		return PaymentLinkStatus{}, fmt.Errorf("%w: empty value", ErrInvalidPaymentLinkID)
	}
	if service.gateway == nil {
		return PaymentLinkStatus{}, fmt.Errorf("%w: no payment gateway configured", ErrGatewayMisconfigured)
	}
	return service.gateway.GetPaymentLink(ctx, trimmed)
}

// PaymentQRCode returns the stored gateway QR payload of a payment link to the booking owner or an admin.
func (service *Service) PaymentQRCode(ctx context.Context, actor Actor, paymentLinkID string) (string, error) {
	trimmed := strings.TrimSpace(paymentLinkID)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty value", ErrInvalidPaymentLinkID)
	}
	booking, err := service.store.GetBookingByPaymentLinkID(ctx, trimmed)
	if err != nil {
		return "", err
	}
	if !actor.CanManage(booking.UserID) {
		return "", ErrForbidden
	}
	if booking.QRCode == nil || *booking.QRCode == "" {
		return "", ErrPaymentLinkNotFound
	}
	return *booking.QRCode, nil
}
