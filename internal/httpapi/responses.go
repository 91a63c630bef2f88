package httpapi

import (
	"time"

	"github.com/VCongNam/CinemaGo-sub001/pkg/booking"
)

type bookingPayload struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	ShowtimeID    string    `json:"showtime_id"`
	TotalPrice    int64     `json:"total_price"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	PaymentMethod string    `json:"payment_method"`
	PaidAmount    int64     `json:"paid_amount"`
	OrderCode     *int64    `json:"order_code,omitempty"`
	PaymentLinkID *string   `json:"payment_link_id,omitempty"`
	CheckoutURL   *string   `json:"checkout_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type seatPayload struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Type  string `json:"type"`
	Price string `json:"price"`
}

type showtimePayload struct {
	ID          string    `json:"id"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	MovieTitle  string    `json:"movie_title"`
	RoomName    string    `json:"room_name"`
	TheaterName string    `json:"theater_name"`
}

type bookingDetailPayload struct {
	bookingPayload
	Seats    []seatPayload   `json:"seats"`
	Showtime showtimePayload `json:"showtime"`
}

type seatAvailabilityPayload struct {
	seatPayload
	Booked bool `json:"booked"`
}

type paymentLinkPayload struct {
	BookingID     string `json:"booking_id"`
	OrderCode     int64  `json:"order_code"`
	PaymentLinkID string `json:"payment_link_id"`
	CheckoutURL   string `json:"checkout_url"`
	QRCode        string `json:"qr_code,omitempty"`
	Amount        int64  `json:"amount"`
	Status        string `json:"status,omitempty"`
}

type gatewayStatusPayload struct {
	PaymentLinkID string `json:"payment_link_id"`
	OrderCode     int64  `json:"order_code"`
	Amount        int64  `json:"amount"`
	AmountPaid    int64  `json:"amount_paid"`
	Status        string `json:"status"`
}

type paymentStatusPayload struct {
	BookingID     string                `json:"booking_id"`
	Status        string                `json:"status"`
	PaymentStatus string                `json:"payment_status"`
	TotalPrice    int64                 `json:"total_price"`
	PaidAmount    int64                 `json:"paid_amount"`
	OrderCode     *int64                `json:"order_code,omitempty"`
	PaymentLinkID *string               `json:"payment_link_id,omitempty"`
	Gateway       *gatewayStatusPayload `json:"gateway,omitempty"`
	GatewayError  string                `json:"gateway_error,omitempty"`
}

func newBookingPayload(record booking.Booking) bookingPayload {
	return bookingPayload{
		ID:            record.ID.String(),
		UserID:        record.UserID.String(),
		ShowtimeID:    record.ShowtimeID.String(),
		TotalPrice:    record.TotalPrice.Int64(),
		Status:        string(record.State.Status),
		PaymentStatus: string(record.State.Payment),
		PaymentMethod: record.PaymentMethod.String(),
		PaidAmount:    record.PaidAmount.Int64(),
		OrderCode:     record.OrderCode,
		PaymentLinkID: record.PaymentLinkID,
		CheckoutURL:   record.CheckoutURL,
		CreatedAt:     record.CreatedAt,
		UpdatedAt:     record.UpdatedAt,
	}
}

func newBookingDetailPayload(detail booking.BookingDetail) bookingDetailPayload {
	seats := make([]seatPayload, 0, len(detail.Seats))
	for _, seat := range detail.Seats {
		seats = append(seats, seatPayload{ID: seat.ID.String(), Label: seat.Label, Type: seat.Type, Price: seat.Price})
	}
	return bookingDetailPayload{
		bookingPayload: newBookingPayload(detail.Booking),
		Seats:          seats,
		Showtime: showtimePayload{
			ID:          detail.Showtime.ID.String(),
			StartTime:   detail.Showtime.StartTime,
			EndTime:     detail.Showtime.EndTime,
			MovieTitle:  detail.Showtime.MovieTitle,
			RoomName:    detail.Showtime.RoomName,
			TheaterName: detail.Showtime.TheaterName,
		},
	}
}

func newBookingDetailPayloads(details []booking.BookingDetail) []bookingDetailPayload {
	payloads := make([]bookingDetailPayload, 0, len(details))
	for _, detail := range details {
		payloads = append(payloads, newBookingDetailPayload(detail))
	}
	return payloads
}

func newGatewayStatusPayload(status booking.PaymentLinkStatus) gatewayStatusPayload {
	return gatewayStatusPayload{
		PaymentLinkID: status.PaymentLinkID,
		OrderCode:     status.OrderCode,
		Amount:        status.Amount.Int64(),
		AmountPaid:    status.AmountPaid.Int64(),
		Status:        status.Status,
	}
}

func newPaymentStatusPayload(view booking.PaymentStatusView) paymentStatusPayload {
	payload := paymentStatusPayload{
		BookingID:     view.BookingID.String(),
		Status:        string(view.State.Status),
		PaymentStatus: string(view.State.Payment),
		TotalPrice:    view.TotalPrice.Int64(),
		PaidAmount:    view.PaidAmount.Int64(),
		OrderCode:     view.OrderCode,
		PaymentLinkID: view.PaymentLinkID,
		GatewayError:  view.GatewayError,
	}
	if view.Gateway != nil {
		gateway := newGatewayStatusPayload(*view.Gateway)
		payload.Gateway = &gateway
	}
	return payload
}
