package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/VCongNam/CinemaGo-sub001/pkg/booking"
)

const (
	defaultListenAddr            = ":8080"
	defaultDatabaseURL           = "sqlite:///tmp/cinemad.db"
	defaultAllowedOrigin         = "http://localhost:3000"
	defaultJWTIssuer             = "cinemago"
	defaultPayOSBaseURL          = "https://api-merchant.payos.vn"
	defaultPayOSTimeout          = 15 * time.Second
	defaultSweepInterval         = time.Minute
	defaultShowtimeCloseInterval = time.Minute
	defaultRequestTimeout        = 10 * time.Second
	defaultRateLimitCapacity     = 10
	defaultRateLimitRefill       = 6 * time.Second
)

// ErrInvalidConfig reports a missing or malformed runtime setting.
var ErrInvalidConfig = errors.New("invalid config")

// PayOS holds payment gateway credentials and redirect targets.
type PayOS struct {
	ClientID    string
	APIKey      string
	ChecksumKey string
	BaseURL     string
	ReturnURL   string
	CancelURL   string
	Timeout     time.Duration
}

// RateLimit configures the per-user token bucket on booking and payment-link creation.
type RateLimit struct {
	Enabled        bool
	Capacity       int
	RefillInterval time.Duration
}

// Config aggregates runtime settings for cinemad.
type Config struct {
	DatabaseURL           string
	ListenAddr            string
	AllowedOrigins        []string
	JWTSecret             string
	JWTIssuer             string
	PayOS                 PayOS
	HoldTTL               time.Duration
	SweepInterval         time.Duration
	ShowtimeCloseInterval time.Duration
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	RateLimit             RateLimit
	RabbitMQURL           string
	RequestTimeout        time.Duration
}

// ApplyDefaults fills unset values.
func (cfg *Config) ApplyDefaults() {
	cfg.DatabaseURL = defaultIfEmpty(cfg.DatabaseURL, defaultDatabaseURL)
	cfg.ListenAddr = defaultIfEmpty(cfg.ListenAddr, defaultListenAddr)
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{defaultAllowedOrigin}
	}
	cfg.JWTIssuer = defaultIfEmpty(cfg.JWTIssuer, defaultJWTIssuer)
	cfg.PayOS.BaseURL = defaultIfEmpty(cfg.PayOS.BaseURL, defaultPayOSBaseURL)
	if cfg.PayOS.Timeout <= 0 {
		cfg.PayOS.Timeout = defaultPayOSTimeout
	}
	if cfg.HoldTTL <= 0 {
		cfg.HoldTTL = booking.DefaultHoldTTL
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	if cfg.ShowtimeCloseInterval <= 0 {
		cfg.ShowtimeCloseInterval = defaultShowtimeCloseInterval
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.RateLimit.Capacity <= 0 {
		cfg.RateLimit.Capacity = defaultRateLimitCapacity
	}
	if cfg.RateLimit.RefillInterval <= 0 {
		cfg.RateLimit.RefillInterval = defaultRateLimitRefill
	}
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		cfg.RateLimit.Enabled = false
	}
}

// Validate fills defaults and ensures the configuration can start a server.
func (cfg *Config) Validate() error {
	cfg.ApplyDefaults()
	if err := cfg.ValidateStorage(); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		return fmt.Errorf("%w: listen addr is required", ErrInvalidConfig)
	}
	if len(cfg.JWTSecret) == 0 {
		return fmt.Errorf("%w: jwt secret is required", ErrInvalidConfig)
	}
	if cfg.RedisDB < 0 {
		return fmt.Errorf("%w: redis db must be non-negative", ErrInvalidConfig)
	}
	return cfg.ValidatePayOS()
}

// ValidateStorage checks only what offline commands need.
func (cfg *Config) ValidateStorage() error {
	cfg.DatabaseURL = defaultIfEmpty(cfg.DatabaseURL, defaultDatabaseURL)
	if cfg.HoldTTL <= 0 {
		cfg.HoldTTL = booking.DefaultHoldTTL
	}
	return nil
}

// ValidatePayOS fails when any gateway credential is missing.
func (cfg *Config) ValidatePayOS() error {
	var missing []string
	if strings.TrimSpace(cfg.PayOS.ClientID) == "" {
		missing = append(missing, "client id")
	}
	if strings.TrimSpace(cfg.PayOS.APIKey) == "" {
		missing = append(missing, "api key")
	}
	if strings.TrimSpace(cfg.PayOS.ChecksumKey) == "" {
		missing = append(missing, "checksum key")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: payos %s required", booking.ErrGatewayMisconfigured, strings.Join(missing, ", "))
	}
	return nil
}

func defaultIfEmpty(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// ParseAllowedOrigins splits comma-delimited origins into a slice.
func ParseAllowedOrigins(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	normalized := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			normalized = append(normalized, trimmed)
		}
	}
	return normalized
}
