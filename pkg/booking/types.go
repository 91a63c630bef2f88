package booking

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// UserID identifies a booking owner.
type UserID struct {
	value string
}

// BookingID identifies a booking.
type BookingID struct {
	value string
}

// ShowtimeID identifies a scheduled screening.
type ShowtimeID struct {
	value string
}

// SeatID identifies a physical seat in a room.
type SeatID struct {
	value string
}

// RoomID identifies a screening room.
type RoomID struct {
	value string
}

// NewUserID validates and normalizes a user id.
func NewUserID(raw string) (UserID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return UserID{}, fmt.Errorf("%w: empty value", ErrInvalidUserID)
	}
	return UserID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id UserID) String() string {
	return id.value
}

// IsZero reports whether the id was never set.
func (id UserID) IsZero() bool {
	return id.value == ""
}

// NewBookingID validates and normalizes a booking id.
func NewBookingID(raw string) (BookingID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return BookingID{}, fmt.Errorf("%w: empty value", ErrInvalidBookingID)
	}
	return BookingID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id BookingID) String() string {
	return id.value
}

// IsZero reports whether the id was never set.
func (id BookingID) IsZero() bool {
	return id.value == ""
}

// NewShowtimeID validates and normalizes a showtime id.
func NewShowtimeID(raw string) (ShowtimeID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ShowtimeID{}, fmt.Errorf("%w: empty value", ErrInvalidShowtimeID)
	}
	return ShowtimeID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id ShowtimeID) String() string {
	return id.value
}

// NewSeatID validates and normalizes a seat id.
func NewSeatID(raw string) (SeatID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return SeatID{}, fmt.Errorf("%w: empty value", ErrInvalidSeatID)
	}
	return SeatID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id SeatID) String() string {
	return id.value
}

// NewSeatIDs validates a requested seat set. The set must be non-empty and free of duplicates.
func NewSeatIDs(raw []string) ([]SeatID, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: no seats requested", ErrInvalidSeatID)
	}
	seen := make(map[string]struct{}, len(raw))
	seatIDs := make([]SeatID, 0, len(raw))
	for _, value := range raw {
		seatID, err := NewSeatID(value)
		if err != nil {
			return nil, err
		}
		if _, duplicate := seen[seatID.String()]; duplicate {
			return nil, fmt.Errorf("%w: duplicate seat %s", ErrInvalidSeatID, seatID.String())
		}
		seen[seatID.String()] = struct{}{}
		seatIDs = append(seatIDs, seatID)
	}
	return seatIDs, nil
}

// SeatIDStrings converts seat ids back to their raw form.
func SeatIDStrings(seatIDs []SeatID) []string {
	values := make([]string, 0, len(seatIDs))
	for _, seatID := range seatIDs {
		values = append(values, seatID.String())
	}
	return values
}

// NewRoomID validates and normalizes a room id.
func NewRoomID(raw string) (RoomID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return RoomID{}, fmt.Errorf("%w: empty value", ErrInvalidRoomID)
	}
	return RoomID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id RoomID) String() string {
	return id.value
}

// Role is the privilege level carried by an authenticated caller.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleStaff    Role = "staff"
	RoleCustomer Role = "customer"
)

// ParseRole validates a role string.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleStaff:
		return RoleStaff, nil
	case RoleCustomer:
		return RoleCustomer, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, raw)
	}
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID UserID
	Role   Role
}

// NewActor validates an actor.
func NewActor(userID UserID, role Role) (Actor, error) {
	if userID.IsZero() {
		return Actor{}, fmt.Errorf("%w: empty value", ErrInvalidUserID)
	}
	if _, err := ParseRole(string(role)); err != nil {
		return Actor{}, err
	}
	return Actor{UserID: userID, Role: role}, nil
}

// CanManage reports whether the actor may view or cancel a booking owned by owner.
func (actor Actor) CanManage(owner UserID) bool {
	return actor.Role == RoleAdmin || actor.UserID == owner
}

// CanListAll reports whether the actor may browse bookings of every user.
func (actor Actor) CanListAll() bool {
	return actor.Role == RoleAdmin || actor.Role == RoleStaff
}

// PaymentMethod defines how a booking is settled.
type PaymentMethod string

const (
	PaymentMethodOnline PaymentMethod = "online"
	PaymentMethodCash   PaymentMethod = "cash"
)

// ParsePaymentMethod validates a payment method string.
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	switch PaymentMethod(strings.ToLower(strings.TrimSpace(raw))) {
	case PaymentMethodOnline:
		return PaymentMethodOnline, nil
	case PaymentMethodCash:
		return PaymentMethodCash, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, raw)
	}
}

// String returns the method name.
func (method PaymentMethod) String() string {
	return string(method)
}

// ShowtimeStatus is the lifecycle of a screening.
type ShowtimeStatus string

const (
	ShowtimeStatusActive   ShowtimeStatus = "active"
	ShowtimeStatusInactive ShowtimeStatus = "inactive"
)

// Showtime is the subset of a screening the booking core reads.
type Showtime struct {
	ID              ShowtimeID
	RoomID          RoomID
	MovieID         string
	StartTime       time.Time
	EndTime         time.Time
	Status          ShowtimeStatus
	MovieDurationMn int
}

// Seat is a physical seat with its base price.
type Seat struct {
	ID     SeatID
	RoomID RoomID
	Label  string
	Type   string
	Price  string
}

// Booking is a reservation of one or more seats for a showtime.
type Booking struct {
	ID            BookingID
	UserID        UserID
	ShowtimeID    ShowtimeID
	TotalPrice    Money
	State         State
	PaymentMethod PaymentMethod
	PaidAmount    Money
	OrderCode     *int64
	PaymentLinkID *string
	CheckoutURL   *string
	QRCode        *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// BookingSeat binds one seat to a booking.
type BookingSeat struct {
	BookingID  BookingID
	ShowtimeID ShowtimeID
	SeatID     SeatID
}

// SeatSummary describes a seat attached to a booking.
type SeatSummary struct {
	ID    SeatID
	Label string
	Type  string
	Price string
}

// ShowtimeSummary carries the showtime, movie, room and theater context of a booking.
type ShowtimeSummary struct {
	ID          ShowtimeID
	StartTime   time.Time
	EndTime     time.Time
	MovieTitle  string
	RoomName    string
	TheaterName string
}

// BookingDetail is a booking joined with its seats and showtime context.
type BookingDetail struct {
	Booking  Booking
	Seats    []SeatSummary
	Showtime ShowtimeSummary
}

// BookingFilter narrows administrative booking listings.
type BookingFilter struct {
	Status     Status
	ShowtimeID *ShowtimeID
	Limit      int
	Offset     int
}

// SeatAvailability reports whether a room seat is claimed for a showtime.
type SeatAvailability struct {
	Seat   Seat
	Booked bool
}

// PaymentLink is the data returned by the gateway for a new checkout.
type PaymentLink struct {
	OrderCode     int64
	PaymentLinkID string
	CheckoutURL   string
	QRCode        string
	Amount        Money
	Status        string
}

// PaymentLinkRequest asks the gateway to open a checkout.
type PaymentLinkRequest struct {
	OrderCode   int64
	Amount      Money
	Description string
}

// PaymentLinkStatus is the gateway-reported state of a checkout.
type PaymentLinkStatus struct {
	PaymentLinkID string
	OrderCode     int64
	Amount        Money
	AmountPaid    Money
	Status        string
}

// WebhookNotification is a verified gateway callback.
type WebhookNotification struct {
	Code          string
	Description   string
	OrderCode     int64
	Amount        Money
	PaymentLinkID string
	Reference     string
	Raw           []byte
}

// Succeeded reports whether the gateway reported a completed payment.
func (notification WebhookNotification) Succeeded() bool {
	return notification.Code == gatewayCodeSuccess
}

// PaymentEvent is the audit record of a processed webhook.
type PaymentEvent struct {
	BookingID  *BookingID
	OrderCode  int64
	Code       string
	Amount     Money
	Outcome    Outcome
	Payload    []byte
	ReceivedAt time.Time
}

// WebhookResult is returned to the transport after a verified webhook.
type WebhookResult struct {
	Outcome   Outcome
	BookingID *BookingID
}

// PaymentStatusView combines the local booking state with the gateway view.
type PaymentStatusView struct {
	BookingID     BookingID
	State         State
	TotalPrice    Money
	PaidAmount    Money
	OrderCode     *int64
	PaymentLinkID *string
	Gateway       *PaymentLinkStatus
	GatewayError  string
}

// Store is the persistence contract used by Service.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error
	GetShowtime(ctx context.Context, showtimeID ShowtimeID, forUpdate bool) (Showtime, error)
	ListRoomSeats(ctx context.Context, roomID RoomID, seatIDs []SeatID) ([]Seat, error)
	FindClaimedSeats(ctx context.Context, showtimeID ShowtimeID, seatIDs []SeatID) ([]Seat, error)
	CreateBooking(ctx context.Context, booking Booking) error
	CreateBookingSeats(ctx context.Context, seats []BookingSeat) error
	GetBooking(ctx context.Context, bookingID BookingID, forUpdate bool) (Booking, error)
	GetBookingByOrderCode(ctx context.Context, orderCode int64, forUpdate bool) (Booking, error)
	GetBookingByPaymentLinkID(ctx context.Context, paymentLinkID string) (Booking, error)
	UpdateBookingState(ctx context.Context, bookingID BookingID, from, to State, paidAmount *Money) error
	ListBookingSeatIDs(ctx context.Context, bookingID BookingID) ([]SeatID, error)
	ReleaseSeats(ctx context.Context, bookingID BookingID) error
	SetPaymentLink(ctx context.Context, bookingID BookingID, link PaymentLink) error
	ListExpiredPending(ctx context.Context, cutoff time.Time) ([]Booking, error)
	GetBookingDetail(ctx context.Context, bookingID BookingID) (BookingDetail, error)
	ListBookingsByUser(ctx context.Context, userID UserID) ([]BookingDetail, error)
	ListBookings(ctx context.Context, filter BookingFilter) ([]BookingDetail, error)
	ListShowtimeSeats(ctx context.Context, showtimeID ShowtimeID) ([]SeatAvailability, error)
	InsertPaymentEvent(ctx context.Context, event PaymentEvent) error
	ListActiveShowtimes(ctx context.Context) ([]Showtime, error)
	DeactivateShowtimes(ctx context.Context, showtimeIDs []ShowtimeID) error
}

// PaymentGateway is the external payment provider contract.
type PaymentGateway interface {
	CreatePaymentLink(ctx context.Context, request PaymentLinkRequest) (PaymentLink, error)
	GetPaymentLink(ctx context.Context, paymentLinkID string) (PaymentLinkStatus, error)
	VerifyWebhook(payload []byte) (WebhookNotification, error)
}
