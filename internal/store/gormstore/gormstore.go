package gormstore

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/VCongNam/CinemaGo-sub001/pkg/booking"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	constraintBookingSeatsClaim  = "uniq_booking_seats_claim"
	constraintBookingsOrderCode  = "uniq_bookings_order_code"
	defaultPayloadJSON           = "{}"
	pgUniqueViolationCode        = "23505"
	mysqlDuplicateEntryCode      = 1062
	sqliteConstraintCode         = 19
	errorOperationStore          = "store"
	errorSubjectBooking          = "booking"
	errorSubjectBookingSeat      = "booking_seat"
	errorSubjectPaymentEvent     = "payment_event"
	errorSubjectSeat             = "seat"
	errorSubjectShowtime         = "showtime"
	errorCodeCreate              = "create"
	errorCodeDuplicate           = "duplicate"
	errorCodeGet                 = "get"
	errorCodeInsert              = "insert"
	errorCodeInvalid             = "invalid"
	errorCodeList                = "list"
	errorCodeRelease             = "release"
	errorCodeUpdateStatus        = "update_status"
	errorCodeUpdatePaymentLink   = "update_payment_link"
	errorCodeDeactivate          = "deactivate"
	showtimeStatusActiveValue    = string(booking.ShowtimeStatusActive)
	showtimeStatusInactiveValue  = string(booking.ShowtimeStatusInactive)
	bookingStatusPendingValue    = string(booking.StatusPending)
	bookingStatusConfirmedValue  = string(booking.StatusConfirmed)
	lockingStrengthUpdate        = "UPDATE"
	bookingSeatClaimActiveClause = "booking_seats.claim = ?"
)

var activeBookingStatuses = []string{bookingStatusPendingValue, bookingStatusConfirmedValue}

// Store implements booking.Store using GORM.
type Store struct {
	db *gorm.DB
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates every table the store owns.
func Migrate(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).AutoMigrate(Models()...)
}

// WithTx executes fn within a transaction.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore booking.Store) error) error {
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &Store{db: transaction})
	})
}

func (store *Store) query(ctx context.Context, forUpdate bool) *gorm.DB {
	db := store.db.WithContext(ctx)
	if forUpdate {
		db = db.Clauses(clause.Locking{Strength: lockingStrengthUpdate})
	}
	return db
}

func (store *Store) GetShowtime(ctx context.Context, showtimeID booking.ShowtimeID, forUpdate bool) (booking.Showtime, error) {
	var model Showtime
	err := store.query(ctx, forUpdate).Where("id = ?", showtimeID.String()).Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return booking.Showtime{}, wrapStoreError(errorSubjectShowtime, errorCodeGet, booking.ErrShowtimeNotFound)
		}
		return booking.Showtime{}, wrapStoreError(errorSubjectShowtime, errorCodeGet, err)
	}
	durations, err := store.movieDurations(ctx, []string{model.MovieID})
	if err != nil {
		return booking.Showtime{}, err
	}
	showtime, err := mapShowtime(model, durations[model.MovieID])
	if err != nil {
		return booking.Showtime{}, wrapStoreError(errorSubjectShowtime, errorCodeInvalid, err)
	}
	return showtime, nil
}

func (store *Store) ListRoomSeats(ctx context.Context, roomID booking.RoomID, seatIDs []booking.SeatID) ([]booking.Seat, error) {
	var rows []Seat
	err := store.db.WithContext(ctx).
		Where("room_id = ? AND id IN ?", roomID.String(), booking.SeatIDStrings(seatIDs)).
		Order("label").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectSeat, errorCodeList, err)
	}
	return mapSeats(rows)
}

func (store *Store) FindClaimedSeats(ctx context.Context, showtimeID booking.ShowtimeID, seatIDs []booking.SeatID) ([]booking.Seat, error) {
	var rows []Seat
	err := store.db.WithContext(ctx).
		Model(&Seat{}).
		Select("seats.*").
		Joins("JOIN booking_seats ON booking_seats.seat_id = seats.id").
		Joins("JOIN bookings ON bookings.id = booking_seats.booking_id").
		Where("booking_seats.showtime_id = ? AND booking_seats.seat_id IN ?", showtimeID.String(), booking.SeatIDStrings(seatIDs)).
		Where(bookingSeatClaimActiveClause, true).
		Where("bookings.status IN ?", activeBookingStatuses).
		Order("seats.label").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectBookingSeat, errorCodeList, err)
	}
	return mapSeats(rows)
}

func (store *Store) CreateBooking(ctx context.Context, record booking.Booking) error {
	model := bookingModel(record)
	err := store.db.WithContext(ctx).Create(&model).Error
	if err != nil {
		return wrapStoreError(errorSubjectBooking, errorCodeCreate, err)
	}
	return nil
}

func (store *Store) CreateBookingSeats(ctx context.Context, seats []booking.BookingSeat) error {
	if len(seats) == 0 {
		return nil
	}
	rows := make([]BookingSeat, 0, len(seats))
	for _, seat := range seats {
		claim := true
		rows = append(rows, BookingSeat{
			BookingID:  seat.BookingID.String(),
			SeatID:     seat.SeatID.String(),
			ShowtimeID: seat.ShowtimeID.String(),
			Claim:      &claim,
		})
	}
	err := store.db.WithContext(ctx).Create(&rows).Error
	if isUniqueViolation(err, constraintBookingSeatsClaim) {
		return wrapStoreError(errorSubjectBookingSeat, errorCodeDuplicate, booking.ErrSeatsAlreadyBooked)
	}
	if err != nil {
		return wrapStoreError(errorSubjectBookingSeat, errorCodeInsert, err)
	}
	return nil
}

func (store *Store) GetBooking(ctx context.Context, bookingID booking.BookingID, forUpdate bool) (booking.Booking, error) {
	return store.takeBooking(ctx, forUpdate, booking.ErrBookingNotFound, "id = ?", bookingID.String())
}

func (store *Store) GetBookingByOrderCode(ctx context.Context, orderCode int64, forUpdate bool) (booking.Booking, error) {
	return store.takeBooking(ctx, forUpdate, booking.ErrBookingNotFound, "order_code = ?", orderCode)
}

func (store *Store) GetBookingByPaymentLinkID(ctx context.Context, paymentLinkID string) (booking.Booking, error) {
	return store.takeBooking(ctx, false, booking.ErrPaymentLinkNotFound, "payment_link_id = ?", paymentLinkID)
}

func (store *Store) takeBooking(ctx context.Context, forUpdate bool, notFound error, condition string, value any) (booking.Booking, error) {
	var model Booking
	err := store.query(ctx, forUpdate).Where(condition, value).Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return booking.Booking{}, wrapStoreError(errorSubjectBooking, errorCodeGet, notFound)
		}
		return booking.Booking{}, wrapStoreError(errorSubjectBooking, errorCodeGet, err)
	}
	record, err := mapBooking(model)
	if err != nil {
		return booking.Booking{}, wrapStoreError(errorSubjectBooking, errorCodeInvalid, err)
	}
	return record, nil
}

func (store *Store) UpdateBookingState(ctx context.Context, bookingID booking.BookingID, from, to booking.State, paidAmount *booking.Money) error {
	updates := map[string]any{
		"status":         string(to.Status),
		"payment_status": string(to.Payment),
		"updated_at":     time.Now().UTC(),
	}
	if paidAmount != nil {
		updates["paid_amount"] = paidAmount.Int64()
	}
	result := store.db.WithContext(ctx).
		Model(&Booking{}).
		Where("id = ? AND status = ? AND payment_status = ?", bookingID.String(), string(from.Status), string(from.Payment)).
		Updates(updates)
	if result.Error != nil {
		return wrapStoreError(errorSubjectBooking, errorCodeUpdateStatus, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectBooking, errorCodeUpdateStatus, booking.ErrStateConflict)
	}
	return nil
}

func (store *Store) ListBookingSeatIDs(ctx context.Context, bookingID booking.BookingID) ([]booking.SeatID, error) {
	var values []string
	err := store.db.WithContext(ctx).
		Model(&BookingSeat{}).
		Where("booking_id = ?", bookingID.String()).
		Order("seat_id").
		Pluck("seat_id", &values).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectBookingSeat, errorCodeList, err)
	}
	if len(values) == 0 {
		return nil, nil
	}
	seatIDs, err := booking.NewSeatIDs(values)
	if err != nil {
		return nil, wrapStoreError(errorSubjectBookingSeat, errorCodeInvalid, err)
	}
	return seatIDs, nil
}

func (store *Store) ReleaseSeats(ctx context.Context, bookingID booking.BookingID) error {
	err := store.db.WithContext(ctx).
		Model(&BookingSeat{}).
		Where("booking_id = ? AND claim IS NOT NULL", bookingID.String()).
		Update("claim", gorm.Expr("NULL")).Error
	if err != nil {
		return wrapStoreError(errorSubjectBookingSeat, errorCodeRelease, err)
	}
	return nil
}

func (store *Store) SetPaymentLink(ctx context.Context, bookingID booking.BookingID, link booking.PaymentLink) error {
	result := store.db.WithContext(ctx).
		Model(&Booking{}).
		Where("id = ? AND status = ?", bookingID.String(), bookingStatusPendingValue).
		Updates(map[string]any{
			"order_code":      link.OrderCode,
			"payment_link_id": link.PaymentLinkID,
			"checkout_url":    link.CheckoutURL,
			"qr_code":         link.QRCode,
			"updated_at":      time.Now().UTC(),
		})
	if isUniqueViolation(result.Error, constraintBookingsOrderCode) {
		return wrapStoreError(errorSubjectBooking, errorCodeDuplicate, result.Error)
	}
	if result.Error != nil {
		return wrapStoreError(errorSubjectBooking, errorCodeUpdatePaymentLink, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectBooking, errorCodeUpdatePaymentLink, booking.ErrBookingNotPending)
	}
	return nil
}

func (store *Store) ListExpiredPending(ctx context.Context, cutoff time.Time) ([]booking.Booking, error) {
	var rows []Booking
	err := store.query(ctx, true).
		Where("status = ? AND created_at <= ?", bookingStatusPendingValue, cutoff.UTC()).
		Order("created_at").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectBooking, errorCodeList, err)
	}
	bookings := make([]booking.Booking, 0, len(rows))
	for _, row := range rows {
		record, err := mapBooking(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectBooking, errorCodeInvalid, err)
		}
		bookings = append(bookings, record)
	}
	return bookings, nil
}

func (store *Store) GetBookingDetail(ctx context.Context, bookingID booking.BookingID) (booking.BookingDetail, error) {
	record, err := store.GetBooking(ctx, bookingID, false)
	if err != nil {
		return booking.BookingDetail{}, err
	}
	details, err := store.attachDetails(ctx, []booking.Booking{record})
	if err != nil {
		return booking.BookingDetail{}, err
	}
	return details[0], nil
}

func (store *Store) ListBookingsByUser(ctx context.Context, userID booking.UserID) ([]booking.BookingDetail, error) {
	var rows []Booking
	err := store.db.WithContext(ctx).
		Where("user_id = ?", userID.String()).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectBooking, errorCodeList, err)
	}
	return store.detailsFromRows(ctx, rows)
}

func (store *Store) ListBookings(ctx context.Context, filter booking.BookingFilter) ([]booking.BookingDetail, error) {
	query := store.db.WithContext(ctx).Model(&Booking{})
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.ShowtimeID != nil {
		query = query.Where("showtime_id = ?", filter.ShowtimeID.String())
	}
	var rows []Booking
	err := query.Order("created_at DESC").Limit(filter.Limit).Offset(filter.Offset).Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectBooking, errorCodeList, err)
	}
	return store.detailsFromRows(ctx, rows)
}

func (store *Store) ListShowtimeSeats(ctx context.Context, showtimeID booking.ShowtimeID) ([]booking.SeatAvailability, error) {
	showtime, err := store.GetShowtime(ctx, showtimeID, false)
	if err != nil {
		return nil, err
	}
	var rows []Seat
	if err := store.db.WithContext(ctx).Where("room_id = ?", showtime.RoomID.String()).Order("label").Find(&rows).Error; err != nil {
		return nil, wrapStoreError(errorSubjectSeat, errorCodeList, err)
	}
	var claimed []string
	err = store.db.WithContext(ctx).
		Model(&BookingSeat{}).
		Joins("JOIN bookings ON bookings.id = booking_seats.booking_id").
		Where("booking_seats.showtime_id = ?", showtimeID.String()).
		Where(bookingSeatClaimActiveClause, true).
		Where("bookings.status IN ?", activeBookingStatuses).
		Pluck("booking_seats.seat_id", &claimed).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectBookingSeat, errorCodeList, err)
	}
	claimedSet := make(map[string]struct{}, len(claimed))
	for _, seatID := range claimed {
		claimedSet[seatID] = struct{}{}
	}
	seats, err := mapSeats(rows)
	if err != nil {
		return nil, err
	}
	availability := make([]booking.SeatAvailability, 0, len(seats))
	for _, seat := range seats {
		_, isClaimed := claimedSet[seat.ID.String()]
		availability = append(availability, booking.SeatAvailability{Seat: seat, Booked: isClaimed})
	}
	return availability, nil
}

func (store *Store) InsertPaymentEvent(ctx context.Context, event booking.PaymentEvent) error {
	var bookingID *string
	if event.BookingID != nil {
		value := event.BookingID.String()
		bookingID = &value
	}
	model := PaymentEvent{
		BookingID:  bookingID,
		OrderCode:  event.OrderCode,
		Code:       event.Code,
		Amount:     event.Amount.Int64(),
		Outcome:    string(event.Outcome),
		Payload:    datatypesJSON(event.Payload),
		ReceivedAt: event.ReceivedAt.UTC(),
	}
	if model.ReceivedAt.IsZero() {
		model.ReceivedAt = time.Now().UTC()
	}
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		return wrapStoreError(errorSubjectPaymentEvent, errorCodeInsert, err)
	}
	return nil
}

func (store *Store) ListActiveShowtimes(ctx context.Context) ([]booking.Showtime, error) {
	var rows []Showtime
	err := store.db.WithContext(ctx).Where("status = ?", showtimeStatusActiveValue).Order("start_time").Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectShowtime, errorCodeList, err)
	}
	movieIDs := make([]string, 0, len(rows))
	for _, row := range rows {
		movieIDs = append(movieIDs, row.MovieID)
	}
	durations, err := store.movieDurations(ctx, movieIDs)
	if err != nil {
		return nil, err
	}
	showtimes := make([]booking.Showtime, 0, len(rows))
	for _, row := range rows {
		showtime, err := mapShowtime(row, durations[row.MovieID])
		if err != nil {
			return nil, wrapStoreError(errorSubjectShowtime, errorCodeInvalid, err)
		}
		showtimes = append(showtimes, showtime)
	}
	return showtimes, nil
}

func (store *Store) DeactivateShowtimes(ctx context.Context, showtimeIDs []booking.ShowtimeID) error {
	if len(showtimeIDs) == 0 {
		return nil
	}
	values := make([]string, 0, len(showtimeIDs))
	for _, showtimeID := range showtimeIDs {
		values = append(values, showtimeID.String())
	}
	err := store.db.WithContext(ctx).
		Model(&Showtime{}).
		Where("id IN ? AND status = ?", values, showtimeStatusActiveValue).
		Update("status", showtimeStatusInactiveValue).Error
	if err != nil {
		return wrapStoreError(errorSubjectShowtime, errorCodeDeactivate, err)
	}
	return nil
}

func (store *Store) movieDurations(ctx context.Context, movieIDs []string) (map[string]int, error) {
	durations := make(map[string]int, len(movieIDs))
	if len(movieIDs) == 0 {
		return durations, nil
	}
	var movies []Movie
	if err := store.db.WithContext(ctx).Where("id IN ?", movieIDs).Find(&movies).Error; err != nil {
		return nil, wrapStoreError(errorSubjectShowtime, errorCodeGet, err)
	}
	for _, movie := range movies {
		durations[movie.ID] = movie.DurationMinutes
	}
	return durations, nil
}

func (store *Store) detailsFromRows(ctx context.Context, rows []Booking) ([]booking.BookingDetail, error) {
	records := make([]booking.Booking, 0, len(rows))
	for _, row := range rows {
		record, err := mapBooking(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectBooking, errorCodeInvalid, err)
		}
		records = append(records, record)
	}
	return store.attachDetails(ctx, records)
}

type bookingSeatRow struct {
	BookingID string
	SeatID    string
	Label     string
	Type      string
	Price     string
}

type showtimeSummaryRow struct {
	ID          string
	StartTime   time.Time
	EndTime     time.Time
	MovieTitle  string
	RoomName    string
	TheaterName string
}

// attachDetails loads seats and showtime context for a page of bookings in two queries.
func (store *Store) attachDetails(ctx context.Context, records []booking.Booking) ([]booking.BookingDetail, error) {
	details := make([]booking.BookingDetail, 0, len(records))
	if len(records) == 0 {
		return details, nil
	}
	bookingIDs := make([]string, 0, len(records))
	showtimeIDSet := make(map[string]struct{}, len(records))
	for _, record := range records {
		bookingIDs = append(bookingIDs, record.ID.String())
		showtimeIDSet[record.ShowtimeID.String()] = struct{}{}
	}
	showtimeIDs := make([]string, 0, len(showtimeIDSet))
	for showtimeID := range showtimeIDSet {
		showtimeIDs = append(showtimeIDs, showtimeID)
	}
	sort.Strings(showtimeIDs)

	var seatRows []bookingSeatRow
	err := store.db.WithContext(ctx).
		Model(&BookingSeat{}).
		Select("booking_seats.booking_id, booking_seats.seat_id, seats.label, seats.type, seats.price").
		Joins("JOIN seats ON seats.id = booking_seats.seat_id").
		Where("booking_seats.booking_id IN ?", bookingIDs).
		Order("seats.label").
		Scan(&seatRows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectBookingSeat, errorCodeList, err)
	}
	seatsByBooking := make(map[string][]booking.SeatSummary, len(records))
	for _, row := range seatRows {
		seatID, err := booking.NewSeatID(row.SeatID)
		if err != nil {
			return nil, wrapStoreError(errorSubjectBookingSeat, errorCodeInvalid, err)
		}
		seatsByBooking[row.BookingID] = append(seatsByBooking[row.BookingID], booking.SeatSummary{
			ID:    seatID,
			Label: row.Label,
			Type:  row.Type,
			Price: row.Price,
		})
	}

	var summaryRows []showtimeSummaryRow
	err = store.db.WithContext(ctx).
		Model(&Showtime{}).
		Select("showtimes.id, showtimes.start_time, showtimes.end_time, movies.title AS movie_title, rooms.name AS room_name, theaters.name AS theater_name").
		Joins("LEFT JOIN movies ON movies.id = showtimes.movie_id").
		Joins("LEFT JOIN rooms ON rooms.id = showtimes.room_id").
		Joins("LEFT JOIN theaters ON theaters.id = rooms.theater_id").
		Where("showtimes.id IN ?", showtimeIDs).
		Scan(&summaryRows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectShowtime, errorCodeList, err)
	}
	summaries := make(map[string]booking.ShowtimeSummary, len(summaryRows))
	for _, row := range summaryRows {
		showtimeID, err := booking.NewShowtimeID(row.ID)
		if err != nil {
			return nil, wrapStoreError(errorSubjectShowtime, errorCodeInvalid, err)
		}
		summaries[row.ID] = booking.ShowtimeSummary{
			ID:          showtimeID,
			StartTime:   row.StartTime.UTC(),
			EndTime:     row.EndTime.UTC(),
			MovieTitle:  row.MovieTitle,
			RoomName:    row.RoomName,
			TheaterName: row.TheaterName,
		}
	}

	for _, record := range records {
		details = append(details, booking.BookingDetail{
			Booking:  record,
			Seats:    seatsByBooking[record.ID.String()],
			Showtime: summaries[record.ShowtimeID.String()],
		})
	}
	return details, nil
}

func wrapStoreError(subject string, code string, err error) error {
	return booking.WrapError(errorOperationStore, subject, code, err)
}

func bookingModel(record booking.Booking) Booking {
	createdAt := record.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	updatedAt := record.UpdatedAt.UTC()
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}
	return Booking{
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
		QRCode:        record.QRCode,
		CreatedAt:     createdAt,
		UpdatedAt:     updatedAt,
	}
}

func mapBooking(row Booking) (booking.Booking, error) {
	bookingID, err := booking.NewBookingID(row.ID)
	if err != nil {
		return booking.Booking{}, err
	}
	userID, err := booking.NewUserID(row.UserID)
	if err != nil {
		return booking.Booking{}, err
	}
	showtimeID, err := booking.NewShowtimeID(row.ShowtimeID)
	if err != nil {
		return booking.Booking{}, err
	}
	status, err := booking.ParseStatus(row.Status)
	if err != nil {
		return booking.Booking{}, err
	}
	paymentStatus, err := booking.ParsePaymentStatus(row.PaymentStatus)
	if err != nil {
		return booking.Booking{}, err
	}
	state, err := booking.NewState(status, paymentStatus)
	if err != nil {
		return booking.Booking{}, err
	}
	method, err := booking.ParsePaymentMethod(row.PaymentMethod)
	if err != nil {
		return booking.Booking{}, err
	}
	totalPrice, err := booking.NewMoney(row.TotalPrice)
	if err != nil {
		return booking.Booking{}, err
	}
	paidAmount, err := booking.NewMoney(row.PaidAmount)
	if err != nil {
		return booking.Booking{}, err
	}
	return booking.Booking{
		ID:            bookingID,
		UserID:        userID,
		ShowtimeID:    showtimeID,
		TotalPrice:    totalPrice,
		State:         state,
		PaymentMethod: method,
		PaidAmount:    paidAmount,
		OrderCode:     row.OrderCode,
		PaymentLinkID: row.PaymentLinkID,
		CheckoutURL:   row.CheckoutURL,
		QRCode:        row.QRCode,
		CreatedAt:     row.CreatedAt.UTC(),
		UpdatedAt:     row.UpdatedAt.UTC(),
	}, nil
}

func mapShowtime(row Showtime, durationMinutes int) (booking.Showtime, error) {
	showtimeID, err := booking.NewShowtimeID(row.ID)
	if err != nil {
		return booking.Showtime{}, err
	}
	roomID, err := booking.NewRoomID(row.RoomID)
	if err != nil {
		return booking.Showtime{}, err
	}
	return booking.Showtime{
		ID:              showtimeID,
		RoomID:          roomID,
		MovieID:         row.MovieID,
		StartTime:       row.StartTime.UTC(),
		EndTime:         row.EndTime.UTC(),
		Status:          booking.ShowtimeStatus(row.Status),
		MovieDurationMn: durationMinutes,
	}, nil
}

func mapSeats(rows []Seat) ([]booking.Seat, error) {
	seats := make([]booking.Seat, 0, len(rows))
	for _, row := range rows {
		seatID, err := booking.NewSeatID(row.ID)
		if err != nil {
			return nil, wrapStoreError(errorSubjectSeat, errorCodeInvalid, err)
		}
		roomID, err := booking.NewRoomID(row.RoomID)
		if err != nil {
			return nil, wrapStoreError(errorSubjectSeat, errorCodeInvalid, err)
		}
		seats = append(seats, booking.Seat{
			ID:     seatID,
			RoomID: roomID,
			Label:  row.Label,
			Type:   row.Type,
			Price:  row.Price,
		})
	}
	return seats, nil
}

func datatypesJSON(raw []byte) datatypes.JSON {
	if len(raw) == 0 {
		return datatypes.JSON([]byte(defaultPayloadJSON))
	}
	return datatypes.JSON(raw)
}

func isUniqueViolation(err error, constraint string) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode && (pgErr.ConstraintName == "" || pgErr.ConstraintName == constraint)
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlDuplicateEntryCode
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode
	}
	return false
}
