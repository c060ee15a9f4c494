package helper

import (
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

var IntentTTLMinutesDefault = 30

type Config struct {
	AppEnv            string
	DatabaseDSN       string
	RedisAddr         string
	HTTPAddr          string
	PaymentGatewayURL string
	PaymentReturnURL  string
	PaymentSecret     string
	IntentTTL         time.Duration
}

// LoadConfig reads .env when present and then the process environment.
// The returned bool reports whether a .env file was loaded.
func LoadConfig() (Config, bool) {
	loaded := godotenv.Load() == nil

	ttl := IntentTTLMinutesDefault
	if v, err := strconv.Atoi(GetEnv("INTENT_TTL_MINUTES", "")); err == nil && v > 0 {
		ttl = v
	}

	return Config{
		AppEnv:            GetEnv("APP_ENV", "production"),
		DatabaseDSN:       GetEnv("DATABASE_DSN", "postgres://admin:nimda@db:5432/bookstore?sslmode=disable"),
		RedisAddr:         GetEnv("REDIS_ADDR", "redis:6379"),
		HTTPAddr:          GetEnv("HTTP_ADDR", ":8080"),
		PaymentGatewayURL: GetEnv("PAYMENT_GATEWAY_URL", "https://pay.example.com/checkout"),
		PaymentReturnURL:  GetEnv("PAYMENT_RETURN_URL", "http://localhost:8080/payment/callback"),
		PaymentSecret:     GetEnv("PAYMENT_GATEWAY_SECRET", ""),
		IntentTTL:         time.Duration(ttl) * time.Minute,
	}, loaded
}
