package shop

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"shopen/internal/models"
	"shopen/internal/store"
	"shopen/internal/store/memstore"
)

// fakeClock is a settable time source for expiry tests.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestService(t *testing.T) (*Service, *memstore.Store, *fakeClock) {
	t.Helper()
	st := memstore.New()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	cfg := testPricingConfig()
	cfg.RequestExpiry = 5 * time.Minute
	cfg.RefundExpiry = 20 * time.Minute
	svc := New(st, cfg).WithClock(clock.Now)
	return svc, st, clock
}

func seedUser(t *testing.T, st store.Store, name, role string, credit int64) *models.User {
	t.Helper()
	user := &models.User{
		Name:       name,
		SecretHash: "x",
		Role:       role,
		Credit:     decimal.NewFromInt(credit),
	}
	if err := st.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func seedPen(t *testing.T, st store.Store, brand string, price int64, stock int) *models.Pen {
	t.Helper()
	pen := &models.Pen{Brand: brand, Price: decimal.NewFromInt(price), Stock: stock}
	if err := st.CreatePen(context.Background(), pen); err != nil {
		t.Fatalf("seed pen: %v", err)
	}
	return pen
}

func mustPen(t *testing.T, st store.Store, id uint) *models.Pen {
	t.Helper()
	pen, err := st.PenByID(context.Background(), id)
	if err != nil {
		t.Fatalf("pen %d: %v", id, err)
	}
	return pen
}

func mustUser(t *testing.T, st store.Store, id uint) *models.User {
	t.Helper()
	user, err := st.UserByID(context.Background(), id)
	if err != nil {
		t.Fatalf("user %d: %v", id, err)
	}
	return user
}

func mustTx(t *testing.T, st store.Store, id uint) *models.Transaction {
	t.Helper()
	tx, err := st.TransactionByID(context.Background(), id)
	if err != nil {
		t.Fatalf("transaction %d: %v", id, err)
	}
	return tx
}
