package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/VCongNam/CinemaGo-sub001/internal/metrics"
	"github.com/VCongNam/CinemaGo-sub001/pkg/booking"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const (
	defaultRequestTimeout = 10 * time.Second
	shutdownTimeout       = 5 * time.Second
)

// BookingService is the domain surface served over HTTP.
type BookingService interface {
	CreateBooking(ctx context.Context, actor booking.Actor, input booking.CreateBookingInput) (booking.Booking, error)
	CancelBooking(ctx context.Context, actor booking.Actor, bookingID booking.BookingID) (booking.Booking, error)
	GetBooking(ctx context.Context, actor booking.Actor, bookingID booking.BookingID) (booking.BookingDetail, error)
	ListMyBookings(ctx context.Context, actor booking.Actor) ([]booking.BookingDetail, error)
	ListBookings(ctx context.Context, actor booking.Actor, filter booking.BookingFilter) ([]booking.BookingDetail, error)
	ShowtimeSeats(ctx context.Context, showtimeID booking.ShowtimeID) ([]booking.SeatAvailability, error)
	CreatePaymentLink(ctx context.Context, actor booking.Actor, bookingID booking.BookingID) (booking.PaymentLink, error)
	HandleWebhook(ctx context.Context, payload []byte) (booking.WebhookResult, error)
	PaymentStatus(ctx context.Context, actor booking.Actor, bookingID booking.BookingID) (booking.PaymentStatusView, error)
	CheckPaymentLink(ctx context.Context, paymentLinkID string) (booking.PaymentLinkStatus, error)
	PaymentQRCode(ctx context.Context, actor booking.Actor, paymentLinkID string) (string, error)
}

// Options configures the router.
type Options struct {
	AllowedOrigins []string
	JWTSecret      string
	JWTIssuer      string
	RequestTimeout time.Duration
}

// Dependencies are the collaborators of the HTTP surface. Limiter may be nil.
type Dependencies struct {
	Service BookingService
	Logger  *zap.Logger
	Limiter Limiter
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(options Options, dependencies Dependencies) (*gin.Engine, error) {
	if dependencies.Service == nil {
		return nil, errors.New("httpapi: booking service is required")
	}
	if len(options.JWTSecret) == 0 {
		return nil, errors.New("httpapi: jwt secret is required")
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if options.RequestTimeout <= 0 {
		options.RequestTimeout = defaultRequestTimeout
	}
	handler := &httpHandler{
		service:        dependencies.Service,
		logger:         logger,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		requestTimeout: options.RequestTimeout,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(accessLog(logger))
	if len(options.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     options.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowHeaders:     []string{"Authorization", "Content-Type", "Origin", "Accept"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/showtimes/:id/seats", handler.handleShowtimeSeats)
	router.POST("/payments/webhook", handler.handleWebhook)

	authenticated := router.Group("/")
	authenticated.Use(authMiddleware([]byte(options.JWTSecret), options.JWTIssuer))
	limited := rateLimit(dependencies.Limiter, logger)

	bookings := authenticated.Group("/bookings")
	bookings.POST("", limited, handler.handleCreateBooking)
	bookings.GET("", handler.handleListBookings)
	bookings.GET("/my-bookings", handler.handleMyBookings)
	bookings.GET("/:id", handler.handleGetBooking)
	bookings.PUT("/:id/cancel", handler.handleCancelBooking)

	payments := authenticated.Group("/payments")
	payments.POST("/create-payment-link", limited, handler.handleCreatePaymentLink)
	payments.GET("/check/:paymentLinkId", handler.handleCheckPaymentLink)
	payments.GET("/booking/:bookingId/status", handler.handlePaymentStatus)
	payments.GET("/:paymentLinkId/qr", handler.handlePaymentQRCode)

	return router, nil
}

// Run serves handler on addr until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, addr string, handler http.Handler, logger *zap.Logger) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("cinemad listening", zap.String("addr", addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	}
}

type httpHandler struct {
	service        BookingService
	logger         *zap.Logger
	validate       *validator.Validate
	requestTimeout time.Duration
}

func (handler *httpHandler) requestContext(ctx *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx.Request.Context(), handler.requestTimeout)
}

func accessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		started := time.Now()
		ctx.Next()
		elapsed := time.Since(started)
		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := ctx.Writer.Status()
		metrics.ObserveHTTP(route, ctx.Request.Method, status, elapsed)
		logger.Info("http request",
			zap.String("method", ctx.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("latency", elapsed),
			zap.String("client_ip", ctx.ClientIP()),
		)
	}
}
