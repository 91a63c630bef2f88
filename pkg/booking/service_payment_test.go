package booking

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

const (
	paymentLinkIDValue = "link-123"
	checkoutURLValue   = "https://pay.example/checkout/link-123"
	qrPayloadValue     = "00020101021238570010A000000727"
)

func newPaymentFixture(test *testing.T) (*stubStore, *stubGateway, *recorderPublisher, *Service) {
	test.Helper()
	store := newCinemaStore(test)
	gateway := &stubGateway{
		link: PaymentLink{PaymentLinkID: paymentLinkIDValue, CheckoutURL: checkoutURLValue, QRCode: qrPayloadValue, Status: "PENDING"},
	}
	publisher := &recorderPublisher{}
	service := mustNewService(test, store, WithPaymentGateway(gateway), WithEventPublisher(publisher))
	return store, gateway, publisher, service
}

func mustLinkedBooking(test *testing.T, service *Service, owner Actor, labels ...string) (Booking, PaymentLink) {
	test.Helper()
	booking := mustCreateBooking(test, service, owner, labels...)
	link, err := service.CreatePaymentLink(context.Background(), owner, booking.ID)
	if err != nil {
		test.Fatalf("create payment link: %v", err)
	}
	return booking, link
}

func TestDeriveOrderCode(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		bookingID string
		want      int64
	}{
		{bookingID: "00000000-0000-0000-0000-000000000001", want: 1},
		{bookingID: "ffffffff-ffff-ffff-ffff-ffffffffffff", want: 1<<48 - 1},
		{bookingID: "6f1c2a9e-4b7d-4e2f-9a3c-0000000f4240", want: 1000000},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.bookingID, func(test *testing.T) {
			test.Parallel()
			orderCode, err := DeriveOrderCode(mustBookingID(test, testCase.bookingID))
			if err != nil {
				test.Fatalf("derive: %v", err)
			}
			if orderCode != testCase.want {
				test.Fatalf("expected %d, got %d", testCase.want, orderCode)
			}
		})
	}
	if _, err := DeriveOrderCode(mustBookingID(test, "not-a-uuid")); !errors.Is(err, ErrInvalidBookingID) {
		test.Fatalf("expected ErrInvalidBookingID, got %v", err)
	}
	if _, err := DeriveOrderCode(mustBookingID(test, "00000000-0000-0000-0000-000000000000")); !errors.Is(err, ErrInvalidBookingID) {
		test.Fatalf("expected ErrInvalidBookingID for zero code, got %v", err)
	}
}

func TestTruncateDescription(test *testing.T) {
	test.Parallel()
	if got := TruncateDescription("  Thanh toan ve ABC  "); got != "Thanh toan ve ABC" {
		test.Fatalf("unexpected short description %q", got)
	}
	long := "Thanh toan ve xem phim cuoi tuan"
	got := TruncateDescription(long)
	if utf8.RuneCountInString(got) > paymentDescriptionMaxRunes {
		test.Fatalf("expected at most %d runes, got %q", paymentDescriptionMaxRunes, got)
	}
	if !strings.HasSuffix(got, "...") || !strings.HasPrefix(got, "Thanh toan ve xem phim") {
		test.Fatalf("unexpected truncated description %q", got)
	}
	accented := strings.Repeat("ê", 30)
	if got := TruncateDescription(accented); utf8.RuneCountInString(got) != paymentDescriptionMaxRunes {
		test.Fatalf("expected rune-based truncation, got %q", got)
	}
}

func TestCreatePaymentLinkStoresGatewayLink(test *testing.T) {
	test.Parallel()
	store, gateway, _, service := newPaymentFixture(test)
	owner := mustActor(test, customerUValue, RoleCustomer)
	booking, link := mustLinkedBooking(test, service, owner, "A1", "A2")

	expectedOrderCode, err := DeriveOrderCode(booking.ID)
	if err != nil {
		test.Fatalf("derive: %v", err)
	}
	if gateway.lastRequest.OrderCode != expectedOrderCode || gateway.lastRequest.Amount != 220000 {
		test.Fatalf("unexpected gateway request %+v", gateway.lastRequest)
	}
	if utf8.RuneCountInString(gateway.lastRequest.Description) > paymentDescriptionMaxRunes {
		test.Fatalf("description too long: %q", gateway.lastRequest.Description)
	}
	if link.OrderCode != expectedOrderCode || link.PaymentLinkID != paymentLinkIDValue {
		test.Fatalf("unexpected link %+v", link)
	}
	stored := store.mustBooking(test, booking.ID)
	if stored.OrderCode == nil || *stored.OrderCode != expectedOrderCode {
		test.Fatalf("expected order code persisted, got %v", stored.OrderCode)
	}
	if stored.PaymentLinkID == nil || *stored.PaymentLinkID != paymentLinkIDValue {
		test.Fatalf("expected payment link id persisted, got %v", stored.PaymentLinkID)
	}

	again, err := service.CreatePaymentLink(context.Background(), owner, booking.ID)
	if err != nil {
		test.Fatalf("second link: %v", err)
	}
	if gateway.createCalls != 1 {
		test.Fatalf("expected existing link reuse, got %d gateway calls", gateway.createCalls)
	}
	if again.CheckoutURL != checkoutURLValue || again.QRCode != qrPayloadValue {
		test.Fatalf("unexpected reused link %+v", again)
	}
}

func TestCreatePaymentLinkErrors(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name      string
		actor     string
		configure func(test *testing.T, store *stubStore, gateway *stubGateway, bookingID BookingID)
		wantErr   error
		wantCalls int
	}{
		{
			name:    "not owner",
			actor:   customerVValue,
			wantErr: ErrForbidden,
		},
		{
			name:    "admin is not owner",
			actor:   adminValue,
			wantErr: ErrForbidden,
		},
		{
			name:  "not pending",
			actor: customerUValue,
			configure: func(test *testing.T, store *stubStore, gateway *stubGateway, bookingID BookingID) {
				booking := store.bookings[bookingID]
				booking.State = StateFailed
				store.bookings[bookingID] = booking
			},
			wantErr: ErrBookingNotPending,
		},
		{
			name:  "gateway rejected",
			actor: customerUValue,
			configure: func(test *testing.T, store *stubStore, gateway *stubGateway, bookingID BookingID) {
				gateway.createError = GatewayError{Kind: ErrGatewayRejected, Code: "20", Description: "description too long"}
			},
			wantErr:   ErrGatewayRejected,
			wantCalls: 1,
		},
		{
			name:  "gateway unavailable",
			actor: customerUValue,
			configure: func(test *testing.T, store *stubStore, gateway *stubGateway, bookingID BookingID) {
				gateway.createError = GatewayError{Kind: ErrGatewayUnavailable, Description: "timeout"}
			},
			wantErr:   ErrGatewayUnavailable,
			wantCalls: 1,
		},
		{
			name:  "persist failure",
			actor: customerUValue,
			configure: func(test *testing.T, store *stubStore, gateway *stubGateway, bookingID BookingID) {
				store.setPaymentLinkError = errStoreFailure
			},
			wantErr:   errStoreFailure,
			wantCalls: 1,
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			store, gateway, _, service := newPaymentFixture(test)
			booking := mustCreateBooking(test, service, mustActor(test, customerUValue, RoleCustomer), "A1")
			if testCase.configure != nil {
				testCase.configure(test, store, gateway, booking.ID)
			}
			role := RoleCustomer
			if testCase.actor == adminValue {
				role = RoleAdmin
			}

			_, err := service.CreatePaymentLink(context.Background(), mustActor(test, testCase.actor, role), booking.ID)
			if !errors.Is(err, testCase.wantErr) {
				test.Fatalf(errorMismatchMessage, testCase.wantErr, err)
			}
			if gateway.createCalls != testCase.wantCalls {
				test.Fatalf("expected %d gateway calls, got %d", testCase.wantCalls, gateway.createCalls)
			}
		})
	}
}

func TestCreatePaymentLinkWithoutGateway(test *testing.T) {
	test.Parallel()
	store := newCinemaStore(test)
	service := mustNewService(test, store)
	owner := mustActor(test, customerUValue, RoleCustomer)
	booking := mustCreateBooking(test, service, owner, "A1")

	_, err := service.CreatePaymentLink(context.Background(), owner, booking.ID)
	if !errors.Is(err, ErrGatewayMisconfigured) {
		test.Fatalf("expected ErrGatewayMisconfigured, got %v", err)
	}
}

func TestHandleWebhookSuccessIsIdempotent(test *testing.T) {
	test.Parallel()
	store, gateway, publisher, service := newPaymentFixture(test)
	owner := mustActor(test, customerUValue, RoleCustomer)
	booking, link := mustLinkedBooking(test, service, owner, "A1", "A2")
	gateway.notification = WebhookNotification{Code: "00", OrderCode: link.OrderCode, Amount: 220000, PaymentLinkID: link.PaymentLinkID}
	payload := []byte(`{"code":"00"}`)

	first, err := service.HandleWebhook(context.Background(), payload)
	if err != nil {
		test.Fatalf("first webhook: %v", err)
	}
	if first.Outcome != OutcomeConfirmed {
		test.Fatalf("expected confirmed outcome, got %s", first.Outcome)
	}
	stored := store.mustBooking(test, booking.ID)
	if stored.State != StateConfirmed || stored.PaidAmount != 220000 {
		test.Fatalf("expected confirmed with 220000 paid, got %s / %d", stored.State, stored.PaidAmount)
	}

	gateway.notification.Amount = 440000
	second, err := service.HandleWebhook(context.Background(), payload)
	if err != nil {
		test.Fatalf("second webhook: %v", err)
	}
	if second.Outcome != OutcomeAlreadyProcessed {
		test.Fatalf("expected already_processed, got %s", second.Outcome)
	}
	stored = store.mustBooking(test, booking.ID)
	if stored.PaidAmount != 220000 {
		test.Fatalf("expected paid amount unchanged, got %d", stored.PaidAmount)
	}
	if len(store.paymentEvents) != 2 {
		test.Fatalf("expected 2 audit rows, got %d", len(store.paymentEvents))
	}
	if !store.claimedSeatLabels(booking.ShowtimeID)["A1"] {
		test.Fatalf("expected confirmed booking to keep its seats")
	}
	confirmedEvents := 0
	for _, event := range publisher.events {
		if event.Type == LifecycleConfirmed {
			confirmedEvents++
		}
	}
	if confirmedEvents != 1 {
		test.Fatalf("expected exactly one confirmed event, got %d", confirmedEvents)
	}
}

func TestHandleWebhookFailureReleasesSeats(test *testing.T) {
	test.Parallel()
	store, gateway, _, service := newPaymentFixture(test)
	owner := mustActor(test, customerUValue, RoleCustomer)
	booking, link := mustLinkedBooking(test, service, owner, "A1")
	gateway.notification = WebhookNotification{Code: "24", OrderCode: link.OrderCode, Amount: 100000}

	result, err := service.HandleWebhook(context.Background(), []byte(`{"code":"24"}`))
	if err != nil {
		test.Fatalf("webhook: %v", err)
	}
	if result.Outcome != OutcomePaymentFailed {
		test.Fatalf("expected payment_failed, got %s", result.Outcome)
	}
	stored := store.mustBooking(test, booking.ID)
	if stored.State != StateFailed || stored.PaidAmount != 0 {
		test.Fatalf("expected cancelled/failed unpaid, got %s / %d", stored.State, stored.PaidAmount)
	}
	if store.claimedSeatLabels(booking.ShowtimeID)["A1"] {
		test.Fatalf("expected A1 released")
	}
}

func TestHandleWebhookUnknownOrderIsAcknowledged(test *testing.T) {
	test.Parallel()
	store, gateway, _, service := newPaymentFixture(test)
	booking := mustCreateBooking(test, service, mustActor(test, customerUValue, RoleCustomer), "A1")
	gateway.notification = WebhookNotification{Code: "00", OrderCode: 987654, Amount: 100000}

	result, err := service.HandleWebhook(context.Background(), []byte(`{}`))
	if err != nil {
		test.Fatalf("webhook: %v", err)
	}
	if result.Outcome != OutcomeUnknownOrder || result.BookingID != nil {
		test.Fatalf("unexpected result %+v", result)
	}
	if store.mustBooking(test, booking.ID).State != StatePending {
		test.Fatalf("expected no mutation")
	}
	if len(store.paymentEvents) != 1 || store.paymentEvents[0].Outcome != OutcomeUnknownOrder {
		test.Fatalf("expected unknown_order audit row, got %+v", store.paymentEvents)
	}
}

func TestHandleWebhookRejectsBadSignature(test *testing.T) {
	test.Parallel()
	store, gateway, _, service := newPaymentFixture(test)
	owner := mustActor(test, customerUValue, RoleCustomer)
	booking, _ := mustLinkedBooking(test, service, owner, "A1")
	gateway.verifyError = ErrWebhookSignature

	_, err := service.HandleWebhook(context.Background(), []byte(`{"signature":"bogus"}`))
	if !errors.Is(err, ErrWebhookSignature) {
		test.Fatalf("expected ErrWebhookSignature, got %v", err)
	}
	if store.mustBooking(test, booking.ID).State != StatePending {
		test.Fatalf("expected no mutation on bad signature")
	}
	if len(store.paymentEvents) != 0 {
		test.Fatalf("expected no audit rows, got %d", len(store.paymentEvents))
	}
}

func TestHandleWebhookLatePaymentIsFlagged(test *testing.T) {
	test.Parallel()
	store, gateway, _, service := newPaymentFixture(test)
	logger := &recorderLogger{}
	WithOperationLogger(logger)(service)
	owner := mustActor(test, customerUValue, RoleCustomer)
	booking, link := mustLinkedBooking(test, service, owner, "A1")
	expired := store.bookings[booking.ID]
	expired.State = StateFailed
	store.bookings[booking.ID] = expired
	gateway.notification = WebhookNotification{Code: "00", OrderCode: link.OrderCode, Amount: 100000}

	result, err := service.HandleWebhook(context.Background(), []byte(`{"code":"00"}`))
	if err != nil {
		test.Fatalf("webhook: %v", err)
	}
	if result.Outcome != OutcomeLatePayment {
		test.Fatalf("expected late_payment, got %s", result.Outcome)
	}
	stored := store.mustBooking(test, booking.ID)
	if stored.State != StateFailed || stored.PaidAmount != 0 {
		test.Fatalf("expected booking untouched, got %s / %d", stored.State, stored.PaidAmount)
	}
	last := logger.entries[len(logger.entries)-1]
	if last.Operation != operationHandleWebhook || last.Outcome != OutcomeLatePayment {
		test.Fatalf("expected late payment log entry, got %+v", last)
	}
}

func TestHandleWebhookAuditFailureRollsBack(test *testing.T) {
	test.Parallel()
	store, gateway, _, service := newPaymentFixture(test)
	owner := mustActor(test, customerUValue, RoleCustomer)
	booking, link := mustLinkedBooking(test, service, owner, "A1")
	gateway.notification = WebhookNotification{Code: "00", OrderCode: link.OrderCode, Amount: 100000}
	store.insertEventError = errStoreFailure

	if _, err := service.HandleWebhook(context.Background(), []byte(`{}`)); !errors.Is(err, errStoreFailure) {
		test.Fatalf(errorMismatchMessage, errStoreFailure, err)
	}
	if store.mustBooking(test, booking.ID).State != StatePending {
		test.Fatalf("expected rollback to pending")
	}
}

func TestPaymentStatusDegradesOnGatewayError(test *testing.T) {
	test.Parallel()
	_, gateway, _, service := newPaymentFixture(test)
	owner := mustActor(test, customerUValue, RoleCustomer)
	booking, _ := mustLinkedBooking(test, service, owner, "A1")

	gateway.status = PaymentLinkStatus{PaymentLinkID: paymentLinkIDValue, Status: "PENDING", Amount: 100000}
	view, err := service.PaymentStatus(context.Background(), owner, booking.ID)
	if err != nil {
		test.Fatalf("status: %v", err)
	}
	if view.Gateway == nil || view.Gateway.Status != "PENDING" {
		test.Fatalf("expected gateway status, got %+v", view)
	}

	gateway.statusError = GatewayError{Kind: ErrGatewayUnavailable, Description: "timeout"}
	view, err = service.PaymentStatus(context.Background(), owner, booking.ID)
	if err != nil {
		test.Fatalf("status: %v", err)
	}
	if view.Gateway != nil || view.GatewayError == "" || view.State != StatePending {
		test.Fatalf("expected local view with gateway error, got %+v", view)
	}

	if _, err := service.PaymentStatus(context.Background(), mustActor(test, customerVValue, RoleCustomer), booking.ID); !errors.Is(err, ErrForbidden) {
		test.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestPaymentQRCodeAuthorization(test *testing.T) {
	test.Parallel()
	_, _, _, service := newPaymentFixture(test)
	owner := mustActor(test, customerUValue, RoleCustomer)
	mustLinkedBooking(test, service, owner, "A1")

	payload, err := service.PaymentQRCode(context.Background(), owner, paymentLinkIDValue)
	if err != nil {
		test.Fatalf("qr: %v", err)
	}
	if payload != qrPayloadValue {
		test.Fatalf("unexpected qr payload %q", payload)
	}
	if _, err := service.PaymentQRCode(context.Background(), mustActor(test, customerVValue, RoleCustomer), paymentLinkIDValue); !errors.Is(err, ErrForbidden) {
		test.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := service.PaymentQRCode(context.Background(), owner, " "); !errors.Is(err, ErrInvalidPaymentLinkID) {
		test.Fatalf("expected ErrInvalidPaymentLinkID, got %v", err)
	}
	if _, err := service.CheckPaymentLink(context.Background(), ""); !errors.Is(err, ErrInvalidPaymentLinkID) {
		test.Fatalf("expected ErrInvalidPaymentLinkID, got %v", err)
	}
}
