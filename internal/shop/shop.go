// Package shop implements the inventory operations, the pricing policy,
// and the transaction engine driving the requested -> completed /
// cancelled / refunded lifecycle.
package shop

import (
	"time"

	"github.com/shopspring/decimal"

	"shopen/internal/store"
)

// Config carries the externally supplied pricing and expiry parameters.
type Config struct {
	AdminDiscount      decimal.Decimal
	WholesaleDiscount  decimal.Decimal
	WholesaleThreshold decimal.Decimal
	RequestExpiry      time.Duration
	RefundExpiry       time.Duration
}

// Service exposes the shop operations over an injected store.
type Service struct {
	store store.Store
	cfg   Config
	now   func() time.Time
}

// New builds the shop service.
func New(st store.Store, cfg Config) *Service {
	return &Service{
		store: st,
		cfg:   cfg,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}
