package booking

import "time"

const (
	operationCreateBooking     = "create_booking"
	operationCancelBooking     = "cancel_booking"
	operationCreatePaymentLink = "create_payment_link"
	operationHandleWebhook     = "handle_webhook"
	operationExpireBooking     = "expire_booking"
	operationCloseShowtimes    = "close_showtimes"

	operationStatusOK    = "ok"
	operationStatusError = "error"

	gatewayCodeSuccess = "00"

	// DefaultHoldTTL is how long an unpaid booking keeps its seats.
	DefaultHoldTTL = 10 * time.Minute

	paymentDescriptionPrefix    = "Thanh toan ve "
	paymentDescriptionMaxRunes  = 25
	paymentDescriptionEllipsis  = "..."
	paymentDescriptionShortSize = 8

	orderCodeMask = int64(1)<<48 - 1
)
