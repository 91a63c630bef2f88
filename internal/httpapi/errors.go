package httpapi

import (
	"errors"
	"net/http"

	"github.com/VCongNam/CinemaGo-sub001/pkg/booking"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const messageInternal = "internal error"

type errorMapping struct {
	target error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{target: booking.ErrSeatsAlreadyBooked, status: http.StatusBadRequest, code: "seats_already_booked"},
	{target: booking.ErrBookingAlreadyCancelled, status: http.StatusBadRequest, code: "booking_already_cancelled"},
	{target: booking.ErrBookingNotPending, status: http.StatusBadRequest, code: "booking_not_pending"},
	{target: booking.ErrInvalidSeats, status: http.StatusBadRequest, code: "invalid_seats"},
	{target: booking.ErrShowtimeClosed, status: http.StatusBadRequest, code: "showtime_closed"},
	{target: booking.ErrInvalidSeatPrice, status: http.StatusBadRequest, code: "invalid_seat_price"},
	{target: booking.ErrGatewayRejected, status: http.StatusBadRequest, code: "payment_rejected"},
	{target: booking.ErrInvalidShowtimeID, status: http.StatusBadRequest, code: "invalid_showtime_id"},
	{target: booking.ErrInvalidSeatID, status: http.StatusBadRequest, code: "invalid_seat_id"},
	{target: booking.ErrInvalidBookingID, status: http.StatusBadRequest, code: "invalid_booking_id"},
	{target: booking.ErrInvalidPaymentMethod, status: http.StatusBadRequest, code: "invalid_payment_method"},
	{target: booking.ErrInvalidPaymentLinkID, status: http.StatusBadRequest, code: "invalid_payment_link_id"},
	{target: booking.ErrInvalidStatus, status: http.StatusBadRequest, code: "invalid_status"},
	{target: booking.ErrWebhookSignature, status: http.StatusBadRequest, code: "invalid_signature"},
	{target: booking.ErrShowtimeNotFound, status: http.StatusNotFound, code: "showtime_not_found"},
	{target: booking.ErrBookingNotFound, status: http.StatusNotFound, code: "booking_not_found"},
	{target: booking.ErrPaymentLinkNotFound, status: http.StatusNotFound, code: "payment_link_not_found"},
	{target: booking.ErrForbidden, status: http.StatusForbidden, code: "forbidden"},
	{target: booking.ErrGatewayUnavailable, status: http.StatusBadGateway, code: "payment_gateway_unavailable"},
}

// respondError maps a domain error to its status. Unmapped errors are logged and reported as internal.
func (handler *httpHandler) respondError(ctx *gin.Context, err error) {
	var conflict booking.SeatConflictError
	if errors.As(err, &conflict) {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "seats_already_booked",
				"message": conflict.Error(),
				"seats":   conflict.Labels(),
			},
		})
		return
	}
	if errors.Is(err, booking.ErrGatewayMisconfigured) {
		handler.logger.Error("payment gateway misconfigured", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, errorResponse("payment_gateway_misconfigured", "payment gateway is not configured"))
		return
	}
	for _, mapping := range errorMappings {
		if errors.Is(err, mapping.target) {
			if mapping.status == http.StatusBadGateway {
				handler.logger.Warn("payment gateway failure", zap.Error(err))
			}
			ctx.JSON(mapping.status, errorResponse(mapping.code, publicMessage(err, mapping)))
			return
		}
	}
	handler.logger.Error("request failed", zap.String("route", ctx.FullPath()), zap.Error(err))
	ctx.JSON(http.StatusInternalServerError, errorResponse("internal_error", messageInternal))
}

func publicMessage(err error, mapping errorMapping) string {
	var gatewayError booking.GatewayError
	if errors.As(err, &gatewayError) && gatewayError.Description != "" && mapping.status == http.StatusBadRequest {
		return gatewayError.Description
	}
	if mapping.status == http.StatusBadRequest {
		return err.Error()
	}
	return mapping.target.Error()
}

func errorResponse(code string, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}
