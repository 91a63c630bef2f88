package booking

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"
)

var testNow = time.Date(2025, time.March, 14, 18, 0, 0, 0, time.UTC)

type stubBookingSeat struct {
	BookingSeat
	claimed bool
}

type stubStore struct {
	showtimes     map[ShowtimeID]Showtime
	seats         map[SeatID]Seat
	bookings      map[BookingID]Booking
	bookingSeats  []stubBookingSeat
	paymentEvents []PaymentEvent
	deactivated   []ShowtimeID
	staleExpired  []Booking

	getShowtimeError     error
	listRoomSeatsError   error
	findClaimedError     error
	createBookingError   error
	createSeatsError     error
	getBookingError      error
	updateStateError     error
	releaseSeatsError    error
	setPaymentLinkError  error
	listExpiredError     error
	insertEventError     error
	listShowtimesError   error
	deactivateError      error
	transactionCount     int
	rolledBackCount      int
	setPaymentLinkCalled int
}

func newStubStore(test *testing.T) *stubStore {
	test.Helper()
	return &stubStore{
		showtimes: make(map[ShowtimeID]Showtime),
		seats:     make(map[SeatID]Seat),
		bookings:  make(map[BookingID]Booking),
	}
}

// newCinemaStore seeds one active showtime in room-1 with seats A1..A4.
func newCinemaStore(test *testing.T) *stubStore {
	test.Helper()
	store := newStubStore(test)
	roomID := mustRoomID(test, "room-1")
	showtimeID := mustShowtimeID(test, showtimeIDValue)
	store.showtimes[showtimeID] = Showtime{
		ID:              showtimeID,
		RoomID:          roomID,
		MovieID:         "movie-1",
		StartTime:       testNow.Add(2 * time.Hour),
		EndTime:         testNow.Add(4 * time.Hour),
		Status:          ShowtimeStatusActive,
		MovieDurationMn: 120,
	}
	prices := map[string]string{"A1": "100000", "A2": "120000.00", "A3": "90000", "A4": "90000"}
	for label, price := range prices {
		seatID := mustSeatID(test, "seat-"+label)
		store.seats[seatID] = Seat{ID: seatID, RoomID: roomID, Label: label, Type: "normal", Price: price}
	}
	return store
}

func (store *stubStore) WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error {
	store.transactionCount++
	bookingsSnapshot := make(map[BookingID]Booking, len(store.bookings))
	for key, value := range store.bookings {
		bookingsSnapshot[key] = value
	}
	seatsSnapshot := append([]stubBookingSeat(nil), store.bookingSeats...)
	eventsSnapshot := append([]PaymentEvent(nil), store.paymentEvents...)
	showtimesSnapshot := make(map[ShowtimeID]Showtime, len(store.showtimes))
	for key, value := range store.showtimes {
		showtimesSnapshot[key] = value
	}
	if err := fn(ctx, store); err != nil {
		store.rolledBackCount++
		store.bookings = bookingsSnapshot
		store.bookingSeats = seatsSnapshot
		store.paymentEvents = eventsSnapshot
		store.showtimes = showtimesSnapshot
		return err
	}
	return nil
}

func (store *stubStore) GetShowtime(ctx context.Context, showtimeID ShowtimeID, forUpdate bool) (Showtime, error) {
	if store.getShowtimeError != nil {
		return Showtime{}, store.getShowtimeError
	}
	showtime, ok := store.showtimes[showtimeID]
	if !ok {
		return Showtime{}, ErrShowtimeNotFound
	}
	return showtime, nil
}

func (store *stubStore) ListRoomSeats(ctx context.Context, roomID RoomID, seatIDs []SeatID) ([]Seat, error) {
	if store.listRoomSeatsError != nil {
		return nil, store.listRoomSeatsError
	}
	var seats []Seat
	for _, seatID := range seatIDs {
		seat, ok := store.seats[seatID]
		if ok && seat.RoomID == roomID {
			seats = append(seats, seat)
		}
	}
	return seats, nil
}

func (store *stubStore) FindClaimedSeats(ctx context.Context, showtimeID ShowtimeID, seatIDs []SeatID) ([]Seat, error) {
	if store.findClaimedError != nil {
		return nil, store.findClaimedError
	}
	requested := make(map[SeatID]struct{}, len(seatIDs))
	for _, seatID := range seatIDs {
		requested[seatID] = struct{}{}
	}
	var claimed []Seat
	for _, row := range store.bookingSeats {
		if !row.claimed || row.ShowtimeID != showtimeID {
			continue
		}
		if _, ok := requested[row.SeatID]; !ok {
			continue
		}
		if !store.bookings[row.BookingID].State.HoldsSeats() {
			continue
		}
		claimed = append(claimed, store.seats[row.SeatID])
	}
	return claimed, nil
}

func (store *stubStore) CreateBooking(ctx context.Context, booking Booking) error {
	if store.createBookingError != nil {
		return store.createBookingError
	}
	store.bookings[booking.ID] = booking
	return nil
}

func (store *stubStore) CreateBookingSeats(ctx context.Context, seats []BookingSeat) error {
	if store.createSeatsError != nil {
		return store.createSeatsError
	}
	for _, seat := range seats {
		store.bookingSeats = append(store.bookingSeats, stubBookingSeat{BookingSeat: seat, claimed: true})
	}
	return nil
}

func (store *stubStore) GetBooking(ctx context.Context, bookingID BookingID, forUpdate bool) (Booking, error) {
	if store.getBookingError != nil {
		return Booking{}, store.getBookingError
	}
	booking, ok := store.bookings[bookingID]
	if !ok {
		return Booking{}, ErrBookingNotFound
	}
	return booking, nil
}

func (store *stubStore) GetBookingByOrderCode(ctx context.Context, orderCode int64, forUpdate bool) (Booking, error) {
	if store.getBookingError != nil {
		return Booking{}, store.getBookingError
	}
	for _, booking := range store.bookings {
		if booking.OrderCode != nil && *booking.OrderCode == orderCode {
			return booking, nil
		}
	}
	return Booking{}, ErrBookingNotFound
}

func (store *stubStore) GetBookingByPaymentLinkID(ctx context.Context, paymentLinkID string) (Booking, error) {
	for _, booking := range store.bookings {
		if booking.PaymentLinkID != nil && *booking.PaymentLinkID == paymentLinkID {
			return booking, nil
		}
	}
	return Booking{}, ErrPaymentLinkNotFound
}

func (store *stubStore) UpdateBookingState(ctx context.Context, bookingID BookingID, from, to State, paidAmount *Money) error {
	if store.updateStateError != nil {
		return store.updateStateError
	}
	booking, ok := store.bookings[bookingID]
	if !ok {
		return ErrBookingNotFound
	}
	if booking.State != from {
		return fmt.Errorf("%w: %s", ErrStateConflict, booking.State)
	}
	booking.State = to
	if paidAmount != nil {
		booking.PaidAmount = *paidAmount
	}
	store.bookings[bookingID] = booking
	return nil
}

func (store *stubStore) ListBookingSeatIDs(ctx context.Context, bookingID BookingID) ([]SeatID, error) {
	var seatIDs []SeatID
	for _, row := range store.bookingSeats {
		if row.BookingID == bookingID {
			seatIDs = append(seatIDs, row.SeatID)
		}
	}
	return seatIDs, nil
}

func (store *stubStore) ReleaseSeats(ctx context.Context, bookingID BookingID) error {
	if store.releaseSeatsError != nil {
		return store.releaseSeatsError
	}
	for index := range store.bookingSeats {
		if store.bookingSeats[index].BookingID == bookingID {
			store.bookingSeats[index].claimed = false
		}
	}
	return nil
}

func (store *stubStore) SetPaymentLink(ctx context.Context, bookingID BookingID, link PaymentLink) error {
	store.setPaymentLinkCalled++
	if store.setPaymentLinkError != nil {
		return store.setPaymentLinkError
	}
	booking, ok := store.bookings[bookingID]
	if !ok {
		return ErrBookingNotFound
	}
	orderCode := link.OrderCode
	linkID := link.PaymentLinkID
	checkoutURL := link.CheckoutURL
	qrCode := link.QRCode
	booking.OrderCode = &orderCode
	booking.PaymentLinkID = &linkID
	booking.CheckoutURL = &checkoutURL
	booking.QRCode = &qrCode
	store.bookings[bookingID] = booking
	return nil
}

func (store *stubStore) ListExpiredPending(ctx context.Context, cutoff time.Time) ([]Booking, error) {
	if store.listExpiredError != nil {
		return nil, store.listExpiredError
	}
	if store.staleExpired != nil {
		return store.staleExpired, nil
	}
	var expired []Booking
	for _, booking := range store.bookings {
		if booking.State.Status == StatusPending && !booking.CreatedAt.After(cutoff) {
			expired = append(expired, booking)
		}
	}
	sort.Slice(expired, func(left, right int) bool {
		return expired[left].CreatedAt.Before(expired[right].CreatedAt)
	})
	return expired, nil
}

func (store *stubStore) GetBookingDetail(ctx context.Context, bookingID BookingID) (BookingDetail, error) {
	booking, err := store.GetBooking(ctx, bookingID, false)
	if err != nil {
		return BookingDetail{}, err
	}
	return BookingDetail{Booking: booking}, nil
}

func (store *stubStore) ListBookingsByUser(ctx context.Context, userID UserID) ([]BookingDetail, error) {
	var details []BookingDetail
	for _, booking := range store.bookings {
		if booking.UserID == userID {
			details = append(details, BookingDetail{Booking: booking})
		}
	}
	return details, nil
}

func (store *stubStore) ListBookings(ctx context.Context, filter BookingFilter) ([]BookingDetail, error) {
	var details []BookingDetail
	for _, booking := range store.bookings {
		if filter.Status != "" && booking.State.Status != filter.Status {
			continue
		}
		details = append(details, BookingDetail{Booking: booking})
	}
	if len(details) > filter.Limit {
		details = details[:filter.Limit]
	}
	return details, nil
}

func (store *stubStore) ListShowtimeSeats(ctx context.Context, showtimeID ShowtimeID) ([]SeatAvailability, error) {
	showtime := store.showtimes[showtimeID]
	claimed := make(map[SeatID]bool)
	for _, row := range store.bookingSeats {
		if row.claimed && row.ShowtimeID == showtimeID {
			claimed[row.SeatID] = true
		}
	}
	var availability []SeatAvailability
	for _, seat := range store.seats {
		if seat.RoomID == showtime.RoomID {
			availability = append(availability, SeatAvailability{Seat: seat, Booked: claimed[seat.ID]})
		}
	}
	return availability, nil
}

func (store *stubStore) InsertPaymentEvent(ctx context.Context, event PaymentEvent) error {
	if store.insertEventError != nil {
		return store.insertEventError
	}
	store.paymentEvents = append(store.paymentEvents, event)
	return nil
}

func (store *stubStore) ListActiveShowtimes(ctx context.Context) ([]Showtime, error) {
	if store.listShowtimesError != nil {
		return nil, store.listShowtimesError
	}
	var active []Showtime
	for _, showtime := range store.showtimes {
		if showtime.Status == ShowtimeStatusActive {
			active = append(active, showtime)
		}
	}
	return active, nil
}

func (store *stubStore) DeactivateShowtimes(ctx context.Context, showtimeIDs []ShowtimeID) error {
	if store.deactivateError != nil {
		return store.deactivateError
	}
	for _, showtimeID := range showtimeIDs {
		showtime := store.showtimes[showtimeID]
		showtime.Status = ShowtimeStatusInactive
		store.showtimes[showtimeID] = showtime
		store.deactivated = append(store.deactivated, showtimeID)
	}
	return nil
}

func (store *stubStore) claimedSeatLabels(showtimeID ShowtimeID) map[string]bool {
	labels := make(map[string]bool)
	for _, row := range store.bookingSeats {
		if row.claimed && row.ShowtimeID == showtimeID {
			labels[store.seats[row.SeatID].Label] = true
		}
	}
	return labels
}

func (store *stubStore) mustBooking(test *testing.T, bookingID BookingID) Booking {
	test.Helper()
	booking, ok := store.bookings[bookingID]
	if !ok {
		test.Fatalf("booking %s not found", bookingID.String())
	}
	return booking
}

type stubGateway struct {
	link            PaymentLink
	createError     error
	createCalls     int
	lastRequest     PaymentLinkRequest
	status          PaymentLinkStatus
	statusError     error
	notification    WebhookNotification
	verifyError     error
	notificationFor map[string]WebhookNotification
}

func (gateway *stubGateway) CreatePaymentLink(ctx context.Context, request PaymentLinkRequest) (PaymentLink, error) {
	gateway.createCalls++
	gateway.lastRequest = request
	if gateway.createError != nil {
		return PaymentLink{}, gateway.createError
	}
	return gateway.link, nil
}

func (gateway *stubGateway) GetPaymentLink(ctx context.Context, paymentLinkID string) (PaymentLinkStatus, error) {
	if gateway.statusError != nil {
		return PaymentLinkStatus{}, gateway.statusError
	}
	return gateway.status, nil
}

func (gateway *stubGateway) VerifyWebhook(payload []byte) (WebhookNotification, error) {
	if gateway.verifyError != nil {
		return WebhookNotification{}, gateway.verifyError
	}
	if notification, ok := gateway.notificationFor[string(payload)]; ok {
		notification.Raw = payload
		return notification, nil
	}
	notification := gateway.notification
	notification.Raw = payload
	return notification, nil
}

type recorderPublisher struct {
	events []LifecycleEvent
}

func (publisher *recorderPublisher) Publish(_ context.Context, event LifecycleEvent) {
	publisher.events = append(publisher.events, event)
}

type testClock struct {
	now time.Time
}

func (clock *testClock) Now() time.Time {
	return clock.now
}

func mustNewService(test *testing.T, store Store, options ...ServiceOption) *Service {
	test.Helper()
	service, err := NewService(store, func() time.Time { return testNow }, options...)
	if err != nil {
		test.Fatalf("new service: %v", err)
	}
	return service
}

func mustUserID(test *testing.T, raw string) UserID {
	test.Helper()
	value, err := NewUserID(raw)
	if err != nil {
		test.Fatalf("user id: %v", err)
	}
	return value
}

func mustBookingID(test *testing.T, raw string) BookingID {
	test.Helper()
	value, err := NewBookingID(raw)
	if err != nil {
		test.Fatalf("booking id: %v", err)
	}
	return value
}

func mustShowtimeID(test *testing.T, raw string) ShowtimeID {
	test.Helper()
	value, err := NewShowtimeID(raw)
	if err != nil {
		test.Fatalf("showtime id: %v", err)
	}
	return value
}

func mustSeatID(test *testing.T, raw string) SeatID {
	test.Helper()
	value, err := NewSeatID(raw)
	if err != nil {
		test.Fatalf("seat id: %v", err)
	}
	return value
}

func mustRoomID(test *testing.T, raw string) RoomID {
	test.Helper()
	value, err := NewRoomID(raw)
	if err != nil {
		test.Fatalf("room id: %v", err)
	}
	return value
}

func mustActor(test *testing.T, userID string, role Role) Actor {
	test.Helper()
	actor, err := NewActor(mustUserID(test, userID), role)
	if err != nil {
		test.Fatalf("actor: %v", err)
	}
	return actor
}

func mustBookingInput(test *testing.T, labels ...string) CreateBookingInput {
	test.Helper()
	seatIDs := make([]string, 0, len(labels))
	for _, label := range labels {
		seatIDs = append(seatIDs, "seat-"+label)
	}
	input, err := NewCreateBookingInput(showtimeIDValue, seatIDs, string(PaymentMethodOnline))
	if err != nil {
		test.Fatalf("booking input: %v", err)
	}
	return input
}

func mustCreateBooking(test *testing.T, service *Service, actor Actor, labels ...string) Booking {
	test.Helper()
	booking, err := service.CreateBooking(context.Background(), actor, mustBookingInput(test, labels...))
	if err != nil {
		test.Fatalf("create booking: %v", err)
	}
	return booking
}
