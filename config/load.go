package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

func Load() App {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := App{
		Port:        getenv("APP_PORT", "8080"),
		DatabaseURL: must("DATABASE_URL"),
		JWTSecret:   getenv("JWT_SECRET", "local_dev_secret"),
		Env:         getenv("APP_ENV", "dev"),

		GatewayBaseURL: getenv("PAYGATE_BASE_URL", "https://api.paygate.test/v1"),
		GatewaySecret:  os.Getenv("PAYGATE_SECRET_KEY"),
		WebhookSecret:  os.Getenv("PAYGATE_WEBHOOK_SECRET"),
		SuccessURL:     getenv("CHECKOUT_SUCCESS_URL", "http://localhost:3000/payment/success"),
		CancelURL:      getenv("CHECKOUT_CANCEL_URL", "http://localhost:3000/payment/cancel"),
	}
	if cfg.WebhookSecret == "" {
		slog.Warn("no webhook secret configured; webhook signatures will not be verified")
	}
	return cfg
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		slog.Error("required env missing", "key", k)
		panic("missing env " + k)
	}
	return v
}
