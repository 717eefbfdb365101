package config

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds runtime configuration for the shopen service. Discount
// rates, thresholds, and expiry windows are read once at startup.
type Config struct {
	Addr           string   `env:"ADDR,default=:8080"`
	DBDSN          string   `env:"DB_DSN,required"`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS,default=*"`
	OTLPEndpoint   string   `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	SessionTTL time.Duration `env:"SESSION_TTL,default=24h"`

	AdminDiscount      float64 `env:"ADMIN_DISCOUNT,default=0.2"`
	WholesaleDiscount  float64 `env:"WHOLESALE_DISCOUNT,default=0.1"`
	WholesaleThreshold float64 `env:"WHOLESALE_THRESHOLD,default=5000"`

	RequestExpiryMinutes int `env:"TRANSACTION_REQUEST_MINUTES,default=5"`
	RefundExpiryMinutes  int `env:"TRANSACTION_REFUND_MINUTES,default=20"`

	SuperAdminToken string `env:"SUPER_ADMIN_TOKEN,required"`
}

// RequestExpiry is the window within which a requested transaction can
// still be completed.
func (c Config) RequestExpiry() time.Duration {
	return time.Duration(c.RequestExpiryMinutes) * time.Minute
}

// RefundExpiry is the window within which a completed transaction can
// still be refunded.
func (c Config) RefundExpiry() time.Duration {
	return time.Duration(c.RefundExpiryMinutes) * time.Minute
}

// Load returns a Config populated from environment variables.
func Load(ctx context.Context) (Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
