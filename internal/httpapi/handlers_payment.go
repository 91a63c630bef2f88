package httpapi

import (
	"bytes"
	"errors"
	"image/png"
	"io"
	"net/http"

	"github.com/VCongNam/CinemaGo-sub001/pkg/booking"
	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

const (
	maxWebhookBytes = 1 << 20
	qrCodeSize      = 320
)

type createPaymentLinkRequest struct {
	BookingID string `json:"booking_id" validate:"required,uuid"`
}

func (handler *httpHandler) handleCreatePaymentLink(ctx *gin.Context) {
	actor, ok := handler.requireActor(ctx)
	if !ok {
		return
	}
	var request createPaymentLinkRequest
	if !handler.bindJSON(ctx, &request) {
		return
	}
	bookingID, err := booking.NewBookingID(request.BookingID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()

	link, err := handler.service.CreatePaymentLink(requestCtx, actor, bookingID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, paymentLinkPayload{
		BookingID:     bookingID.String(),
		OrderCode:     link.OrderCode,
		PaymentLinkID: link.PaymentLinkID,
		CheckoutURL:   link.CheckoutURL,
		QRCode:        link.QRCode,
		Amount:        link.Amount.Int64(),
		Status:        link.Status,
	})
}

// handleWebhook acknowledges every verified payload with 200 so the gateway stops retrying.
func (handler *httpHandler) handleWebhook(ctx *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(ctx.Request.Body, maxWebhookBytes))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "unreadable body"))
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()

	result, err := handler.service.HandleWebhook(requestCtx, payload)
	if err != nil {
		if errors.Is(err, booking.ErrWebhookSignature) {
			handler.logger.Warn("webhook rejected", zap.Error(err))
		}
		handler.respondError(ctx, err)
		return
	}
	data := gin.H{"outcome": string(result.Outcome)}
	if result.BookingID != nil {
		data["booking_id"] = result.BookingID.String()
	}
	ctx.JSON(http.StatusOK, gin.H{"error": 0, "message": "ok", "data": data})
}

func (handler *httpHandler) handleCheckPaymentLink(ctx *gin.Context) {
	if _, ok := handler.requireActor(ctx); !ok {
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()

	status, err := handler.service.CheckPaymentLink(requestCtx, ctx.Param("paymentLinkId"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, newGatewayStatusPayload(status))
}

func (handler *httpHandler) handlePaymentStatus(ctx *gin.Context) {
	actor, ok := handler.requireActor(ctx)
	if !ok {
		return
	}
	bookingID, err := booking.NewBookingID(ctx.Param("bookingId"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()

	view, err := handler.service.PaymentStatus(requestCtx, actor, bookingID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, newPaymentStatusPayload(view))
}

func (handler *httpHandler) handlePaymentQRCode(ctx *gin.Context) {
	actor, ok := handler.requireActor(ctx)
	if !ok {
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()

	content, err := handler.service.PaymentQRCode(requestCtx, actor, ctx.Param("paymentLinkId"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	image, err := RenderQRCode(content, qrCodeSize)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.Data(http.StatusOK, "image/png", image)
}

// RenderQRCode encodes content as a PNG QR code of size pixels.
func RenderQRCode(content string, size int) ([]byte, error) {
	code, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, err
	}
	buffer := new(bytes.Buffer)
	if err := png.Encode(buffer, code.Image(size)); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
