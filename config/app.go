package config

type App struct {
	Port        string `env:"APP_PORT" default:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	JWTSecret   string `env:"JWT_SECRET,required"`
	Env         string `env:"APP_ENV" default:"dev"`

	// Payment gateway
	GatewayBaseURL string `env:"PAYGATE_BASE_URL"`
	GatewaySecret  string `env:"PAYGATE_SECRET_KEY"`
	// WebhookSecret empty means signature checks are skipped; acceptable
	// only against the fake gateway in local development.
	WebhookSecret string `env:"PAYGATE_WEBHOOK_SECRET"`
	SuccessURL    string `env:"CHECKOUT_SUCCESS_URL"`
	CancelURL     string `env:"CHECKOUT_CANCEL_URL"`
}
