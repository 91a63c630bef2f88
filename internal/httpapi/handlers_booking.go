package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/VCongNam/CinemaGo-sub001/pkg/booking"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type createBookingRequest struct {
	ShowtimeID    string   `json:"showtime_id" validate:"required"`
	SeatIDs       []string `json:"seat_ids" validate:"required,min=1,unique,dive,required"`
	PaymentMethod string   `json:"payment_method" validate:"required,oneof=online cash"`
}

type listBookingsQuery struct {
	Status     string `form:"status" validate:"omitempty,oneof=pending confirmed cancelled"`
	ShowtimeID string `form:"showtime_id"`
	Limit      int    `form:"limit" validate:"gte=0"`
	Offset     int    `form:"offset" validate:"gte=0"`
}

func (handler *httpHandler) bindJSON(ctx *gin.Context, target any) bool {
	if err := ctx.ShouldBindJSON(target); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return false
	}
	return handler.validateRequest(ctx, target)
}

func (handler *httpHandler) validateRequest(ctx *gin.Context, target any) bool {
	if err := handler.validate.Struct(target); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_request", describeValidation(err)))
		return false
	}
	return true
}

func describeValidation(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}
	messages := make([]string, 0, len(validationErrors))
	for _, fieldError := range validationErrors {
		messages = append(messages, fieldError.Field()+" failed "+fieldError.Tag())
	}
	return strings.Join(messages, "; ")
}

func (handler *httpHandler) requireActor(ctx *gin.Context) (booking.Actor, bool) {
	actor, ok := getActor(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthorized", errMissingToken.Error()))
		return booking.Actor{}, false
	}
	return actor, true
}

func (handler *httpHandler) handleCreateBooking(ctx *gin.Context) {
	actor, ok := handler.requireActor(ctx)
	if !ok {
		return
	}
	var request createBookingRequest
	if !handler.bindJSON(ctx, &request) {
		return
	}
	input, err := booking.NewCreateBookingInput(request.ShowtimeID, request.SeatIDs, request.PaymentMethod)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()

	created, err := handler.service.CreateBooking(requestCtx, actor, input)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, newBookingPayload(created))
}

func (handler *httpHandler) handleCancelBooking(ctx *gin.Context) {
	actor, ok := handler.requireActor(ctx)
	if !ok {
		return
	}
	bookingID, err := booking.NewBookingID(ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()

	cancelled, err := handler.service.CancelBooking(requestCtx, actor, bookingID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, newBookingPayload(cancelled))
}

func (handler *httpHandler) handleGetBooking(ctx *gin.Context) {
	actor, ok := handler.requireActor(ctx)
	if !ok {
		return
	}
	bookingID, err := booking.NewBookingID(ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()

	detail, err := handler.service.GetBooking(requestCtx, actor, bookingID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, newBookingDetailPayload(detail))
}

func (handler *httpHandler) handleMyBookings(ctx *gin.Context) {
	actor, ok := handler.requireActor(ctx)
	if !ok {
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()

	details, err := handler.service.ListMyBookings(requestCtx, actor)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"bookings": newBookingDetailPayloads(details)})
}

func (handler *httpHandler) handleListBookings(ctx *gin.Context) {
	actor, ok := handler.requireActor(ctx)
	if !ok {
		return
	}
	var query listBookingsQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_request", "malformed query"))
		return
	}
	if !handler.validateRequest(ctx, &query) {
		return
	}
	filter := booking.BookingFilter{
		Status: booking.Status(query.Status),
		Limit:  query.Limit,
		Offset: query.Offset,
	}
	if strings.TrimSpace(query.ShowtimeID) != "" {
		showtimeID, err := booking.NewShowtimeID(query.ShowtimeID)
		if err != nil {
			handler.respondError(ctx, err)
			return
		}
		filter.ShowtimeID = &showtimeID
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()

	details, err := handler.service.ListBookings(requestCtx, actor, filter)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"bookings": newBookingDetailPayloads(details),
		"count":    len(details),
		"offset":   query.Offset,
	})
}

func (handler *httpHandler) handleShowtimeSeats(ctx *gin.Context) {
	showtimeID, err := booking.NewShowtimeID(ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()

	seats, err := handler.service.ShowtimeSeats(requestCtx, showtimeID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	payload := make([]seatAvailabilityPayload, 0, len(seats))
	for _, availability := range seats {
		payload = append(payload, seatAvailabilityPayload{
			seatPayload: seatPayload{
				ID:    availability.Seat.ID.String(),
				Label: availability.Seat.Label,
				Type:  availability.Seat.Type,
				Price: availability.Seat.Price,
			},
			Booked: availability.Booked,
		})
	}
	ctx.JSON(http.StatusOK, gin.H{"showtime_id": showtimeID.String(), "seats": payload})
}
