package memstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"shopen/internal/models"
	"shopen/internal/store"
)

func TestAtomicallyRollsBackOnError(t *testing.T) {
	st := New()
	ctx := context.Background()

	pen := &models.Pen{Brand: "Pilot", Price: decimal.NewFromInt(10), Stock: 5}
	if err := st.CreatePen(ctx, pen); err != nil {
		t.Fatalf("CreatePen() error = %v", err)
	}

	boom := errors.New("boom")
	err := st.Atomically(ctx, func(s store.Store) error {
		p, err := s.PenByID(ctx, pen.ID)
		if err != nil {
			return err
		}
		p.Stock = 0
		if err := s.SavePen(ctx, p); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Atomically() error = %v, want boom", err)
	}

	got, err := st.PenByID(ctx, pen.ID)
	if err != nil {
		t.Fatalf("PenByID() error = %v", err)
	}
	if got.Stock != 5 {
		t.Fatalf("stock = %d, want 5 after rollback", got.Stock)
	}
}

func TestAtomicallySerializesUnits(t *testing.T) {
	st := New()
	ctx := context.Background()

	pen := &models.Pen{Brand: "Pilot", Price: decimal.NewFromInt(10), Stock: 0}
	if err := st.CreatePen(ctx, pen); err != nil {
		t.Fatalf("CreatePen() error = %v", err)
	}

	const workers = 8
	const perWorker = 50

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				_ = st.Atomically(ctx, func(s store.Store) error {
					p, err := s.PenByID(ctx, pen.ID)
					if err != nil {
						return err
					}
					p.Stock++
					return s.SavePen(ctx, p)
				})
			}
		}()
	}
	wg.Wait()

	got, err := st.PenByID(ctx, pen.ID)
	if err != nil {
		t.Fatalf("PenByID() error = %v", err)
	}
	if got.Stock != workers*perWorker {
		t.Fatalf("stock = %d, want %d", got.Stock, workers*perWorker)
	}
}

func TestCreateUserDuplicateNameConflicts(t *testing.T) {
	st := New()
	ctx := context.Background()

	if err := st.CreateUser(ctx, &models.User{Name: "alice", SecretHash: "x", Role: models.RoleCustomer}); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	// The unique constraint holds even without the service-level
	// name pre-check.
	err := st.CreateUser(ctx, &models.User{Name: "alice", SecretHash: "y", Role: models.RoleCustomer})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("duplicate CreateUser() error = %v, want ErrConflict", err)
	}
}

func TestSessionSweep(t *testing.T) {
	st := New()
	ctx := context.Background()

	user := &models.User{Name: "alice", SecretHash: "x", Role: models.RoleCustomer}
	if err := st.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	live := &models.Session{UserID: user.ID, Token: "live", ExpiresAt: now.Add(time.Hour)}
	dead := &models.Session{UserID: user.ID, Token: "dead", ExpiresAt: now}
	for _, s := range []*models.Session{live, dead} {
		if err := st.CreateSession(ctx, s); err != nil {
			t.Fatalf("CreateSession() error = %v", err)
		}
	}

	if err := st.DeleteExpiredSessions(ctx, now); err != nil {
		t.Fatalf("DeleteExpiredSessions() error = %v", err)
	}
	if _, err := st.SessionByToken(ctx, "dead", now); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("dead session error = %v, want ErrNotFound", err)
	}
	if _, err := st.SessionByToken(ctx, "live", now); err != nil {
		t.Fatalf("live session error = %v", err)
	}
}
