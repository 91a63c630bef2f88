package gormstore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Theater mirrors the theaters table.
type Theater struct {
	ID      string `gorm:"type:varchar(36);primaryKey"`
	Name    string `gorm:"not null"`
	Address string
}

func (Theater) TableName() string { return "theaters" }

func (theater *Theater) BeforeCreate(tx *gorm.DB) error {
	if theater.ID == "" {
		theater.ID = uuid.NewString()
	}
	return nil
}

// Room mirrors the rooms table.
type Room struct {
	ID        string `gorm:"type:varchar(36);primaryKey"`
	TheaterID string `gorm:"type:varchar(36);not null;index"`
	Name      string `gorm:"not null"`
}

func (Room) TableName() string { return "rooms" }

func (room *Room) BeforeCreate(tx *gorm.DB) error {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	return nil
}

// Movie mirrors the movies table.
type Movie struct {
	ID              string `gorm:"type:varchar(36);primaryKey"`
	Title           string `gorm:"not null"`
	DurationMinutes int    `gorm:"not null"`
}

func (Movie) TableName() string { return "movies" }

func (movie *Movie) BeforeCreate(tx *gorm.DB) error {
	if movie.ID == "" {
		movie.ID = uuid.NewString()
	}
	return nil
}

// Seat mirrors the seats table. Price is a decimal string.
type Seat struct {
	ID     string `gorm:"type:varchar(36);primaryKey"`
	RoomID string `gorm:"type:varchar(36);not null;index"`
	Label  string `gorm:"type:varchar(16);not null"`
	Type   string `gorm:"type:varchar(16);not null;default:normal"`
	Price  string `gorm:"type:varchar(32);not null"`
	Status string `gorm:"type:varchar(16);not null;default:available"`
}

func (Seat) TableName() string { return "seats" }

func (seat *Seat) BeforeCreate(tx *gorm.DB) error {
	if seat.ID == "" {
		seat.ID = uuid.NewString()
	}
	return nil
}

// Showtime mirrors the showtimes table.
type Showtime struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	MovieID   string    `gorm:"type:varchar(36);not null;index"`
	RoomID    string    `gorm:"type:varchar(36);not null;index"`
	StartTime time.Time `gorm:"not null"`
	EndTime   time.Time `gorm:"not null"`
	Status    string    `gorm:"type:varchar(16);not null;index"`
}

func (Showtime) TableName() string { return "showtimes" }

func (showtime *Showtime) BeforeCreate(tx *gorm.DB) error {
	if showtime.ID == "" {
		showtime.ID = uuid.NewString()
	}
	return nil
}

// Booking mirrors the bookings table.
type Booking struct {
	ID            string    `gorm:"type:varchar(36);primaryKey"`
	UserID        string    `gorm:"type:varchar(64);not null;index:idx_bookings_user_created,priority:1"`
	ShowtimeID    string    `gorm:"type:varchar(36);not null;index"`
	TotalPrice    int64     `gorm:"not null"`
	Status        string    `gorm:"type:varchar(16);not null;index:idx_bookings_status_created,priority:1"`
	PaymentStatus string    `gorm:"type:varchar(16);not null"`
	PaymentMethod string    `gorm:"type:varchar(16);not null"`
	PaidAmount    int64     `gorm:"not null;default:0"`
	OrderCode     *int64    `gorm:"uniqueIndex:uniq_bookings_order_code"`
	PaymentLinkID *string   `gorm:"type:varchar(64);index"`
	CheckoutURL   *string   `gorm:"type:varchar(512)"`
	QRCode        *string   `gorm:"type:text"`
	CreatedAt     time.Time `gorm:"not null;index:idx_bookings_user_created,priority:2;index:idx_bookings_status_created,priority:2"`
	UpdatedAt     time.Time `gorm:"not null"`
}

func (Booking) TableName() string { return "bookings" }

// BookingSeat mirrors the booking_seats table. Claim is true while the booking holds the seat and NULL
// once released; NULLs never collide in uniq_booking_seats_claim, so released history rows stay.
type BookingSeat struct {
	BookingID  string `gorm:"type:varchar(36);primaryKey"`
	SeatID     string `gorm:"type:varchar(36);primaryKey;index:uniq_booking_seats_claim,unique,priority:2"`
	ShowtimeID string `gorm:"type:varchar(36);not null;index:uniq_booking_seats_claim,unique,priority:1"`
	Claim      *bool  `gorm:"index:uniq_booking_seats_claim,unique,priority:3"`
}

func (BookingSeat) TableName() string { return "booking_seats" }

// PaymentEvent mirrors the payment_events audit table.
type PaymentEvent struct {
	ID         string         `gorm:"type:varchar(36);primaryKey"`
	BookingID  *string        `gorm:"type:varchar(36);index"`
	OrderCode  int64          `gorm:"not null;index"`
	Code       string         `gorm:"type:varchar(8);not null"`
	Amount     int64          `gorm:"not null"`
	Outcome    string         `gorm:"type:varchar(32);not null"`
	Payload    datatypes.JSON `gorm:"not null"`
	ReceivedAt time.Time      `gorm:"not null"`
}

func (PaymentEvent) TableName() string { return "payment_events" }

func (event *PaymentEvent) BeforeCreate(tx *gorm.DB) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	return nil
}

// Models lists every table owned by the store in migration order.
func Models() []any {
	return []any{
		&Theater{},
		&Room{},
		&Movie{},
		&Seat{},
		&Showtime{},
		&Booking{},
		&BookingSeat{},
		&PaymentEvent{},
	}
}
