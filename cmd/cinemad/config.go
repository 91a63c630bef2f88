package main

import (
	"strings"
	"time"

	"github.com/VCongNam/CinemaGo-sub001/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "CINEMAD"

type flagBinding struct {
	flag       string
	legacyEnv  string
	usage      string
	defaultVal any
}

var flagBindings = []flagBinding{
	{flag: "database-url", legacyEnv: "DATABASE_URL", usage: "database url (postgres://, mysql://, sqlite:// or a sqlite path)", defaultVal: "sqlite:///tmp/cinemad.db"},
	{flag: "listen-addr", legacyEnv: "PORT", usage: "HTTP listen address", defaultVal: ":8080"},
	{flag: "allowed-origins", legacyEnv: "CORS_ORIGINS", usage: "comma-separated CORS origins", defaultVal: ""},
	{flag: "jwt-secret", legacyEnv: "JWT_SECRET", usage: "HS256 secret used to verify access tokens", defaultVal: ""},
	{flag: "jwt-issuer", legacyEnv: "JWT_ISSUER", usage: "expected token issuer", defaultVal: ""},
	{flag: "payos-client-id", legacyEnv: "PAYOS_CLIENT_ID", usage: "PayOS client id", defaultVal: ""},
	{flag: "payos-api-key", legacyEnv: "PAYOS_API_KEY", usage: "PayOS api key", defaultVal: ""},
	{flag: "payos-checksum-key", legacyEnv: "PAYOS_CHECKSUM_KEY", usage: "PayOS checksum key", defaultVal: ""},
	{flag: "payos-base-url", legacyEnv: "PAYOS_BASE_URL", usage: "PayOS API base url", defaultVal: ""},
	{flag: "payos-return-url", legacyEnv: "PAYOS_RETURN_URL", usage: "checkout return url", defaultVal: ""},
	{flag: "payos-cancel-url", legacyEnv: "PAYOS_CANCEL_URL", usage: "checkout cancel url", defaultVal: ""},
	{flag: "payos-timeout", legacyEnv: "", usage: "PayOS request timeout", defaultVal: 15 * time.Second},
	{flag: "hold-ttl", legacyEnv: "", usage: "how long pending bookings hold seats", defaultVal: 10 * time.Minute},
	{flag: "sweep-interval", legacyEnv: "", usage: "expiration sweep interval", defaultVal: time.Minute},
	{flag: "showtime-close-interval", legacyEnv: "", usage: "showtime closing interval", defaultVal: time.Minute},
	{flag: "redis-addr", legacyEnv: "REDIS_ADDR", usage: "redis address for rate limiting (empty disables)", defaultVal: ""},
	{flag: "redis-password", legacyEnv: "REDIS_PASSWORD", usage: "redis password", defaultVal: ""},
	{flag: "redis-db", legacyEnv: "REDIS_DB", usage: "redis database number", defaultVal: 0},
	{flag: "rate-limit-enabled", legacyEnv: "", usage: "enable rate limiting on booking and payment-link creation", defaultVal: true},
	{flag: "rate-limit-capacity", legacyEnv: "", usage: "token bucket capacity per user and route", defaultVal: 10},
	{flag: "rate-limit-refill", legacyEnv: "", usage: "token bucket refill interval", defaultVal: 6 * time.Second},
	{flag: "rabbitmq-url", legacyEnv: "RABBITMQ_URL", usage: "AMQP url for lifecycle events (empty disables)", defaultVal: ""},
	{flag: "request-timeout", legacyEnv: "", usage: "per-request timeout", defaultVal: 10 * time.Second},
}

func registerFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	for _, binding := range flagBindings {
		switch value := binding.defaultVal.(type) {
		case string:
			flags.String(binding.flag, value, binding.usage)
		case int:
			flags.Int(binding.flag, value, binding.usage)
		case bool:
			flags.Bool(binding.flag, value, binding.usage)
		case time.Duration:
			flags.Duration(binding.flag, value, binding.usage)
		}
	}
}

type configLoader struct {
	viper *viper.Viper
}

func newConfigLoader() *configLoader {
	return &configLoader{viper: viper.New()}
}

func configKey(flag string) string {
	return strings.ReplaceAll(flag, "-", "_")
}

func (loader *configLoader) load(cmd *cobra.Command) (config.Config, error) {
	settings := loader.viper
	settings.SetEnvPrefix(envPrefix)
	settings.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	settings.AutomaticEnv()

	for _, binding := range flagBindings {
		key := configKey(binding.flag)
		envNames := []string{key, envPrefix + "_" + strings.ToUpper(key)}
		if binding.legacyEnv != "" {
			envNames = append(envNames, binding.legacyEnv)
		}
		if err := settings.BindEnv(envNames...); err != nil {
			return config.Config{}, err
		}
		if err := settings.BindPFlag(key, cmd.Flag(binding.flag)); err != nil {
			return config.Config{}, err
		}
	}

	listenAddr := settings.GetString("listen_addr")
	if listenAddr != "" && !strings.Contains(listenAddr, ":") {
		listenAddr = ":" + listenAddr
	}
	return config.Config{
		DatabaseURL:    settings.GetString("database_url"),
		ListenAddr:     listenAddr,
		AllowedOrigins: config.ParseAllowedOrigins(settings.GetString("allowed_origins")),
		JWTSecret:      settings.GetString("jwt_secret"),
		JWTIssuer:      settings.GetString("jwt_issuer"),
		PayOS: config.PayOS{
			ClientID:    settings.GetString("payos_client_id"),
			APIKey:      settings.GetString("payos_api_key"),
			ChecksumKey: settings.GetString("payos_checksum_key"),
			BaseURL:     settings.GetString("payos_base_url"),
			ReturnURL:   settings.GetString("payos_return_url"),
			CancelURL:   settings.GetString("payos_cancel_url"),
			Timeout:     settings.GetDuration("payos_timeout"),
		},
		HoldTTL:               settings.GetDuration("hold_ttl"),
		SweepInterval:         settings.GetDuration("sweep_interval"),
		ShowtimeCloseInterval: settings.GetDuration("showtime_close_interval"),
		RedisAddr:             settings.GetString("redis_addr"),
		RedisPassword:         settings.GetString("redis_password"),
		RedisDB:               settings.GetInt("redis_db"),
		RateLimit: config.RateLimit{
			Enabled:        settings.GetBool("rate_limit_enabled"),
			Capacity:       settings.GetInt("rate_limit_capacity"),
			RefillInterval: settings.GetDuration("rate_limit_refill"),
		},
		RabbitMQURL:    settings.GetString("rabbitmq_url"),
		RequestTimeout: settings.GetDuration("request_timeout"),
	}, nil
}
