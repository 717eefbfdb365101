package shop

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"shopen/internal/models"
	"shopen/internal/store"
	"shopen/internal/store/memstore"
)

func TestRequestTransaction(t *testing.T) {
	svc, st, _ := newTestService(t)
	user := seedUser(t, st, "alice", models.RoleCustomer, 100)
	pen := seedPen(t, st, "Pilot", 10, 50)

	tx, err := svc.RequestTransaction(context.Background(), user, []models.OrderLine{{PenID: pen.ID, Count: 3}})
	if err != nil {
		t.Fatalf("RequestTransaction() error = %v", err)
	}
	if tx.Status != models.StatusRequested {
		t.Fatalf("status = %s, want requested", tx.Status)
	}
	if !tx.Price.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("price = %s, want 30", tx.Price)
	}

	// No reservation: stock and credit are untouched at request time.
	if got := mustPen(t, st, pen.ID).Stock; got != 50 {
		t.Fatalf("stock after request = %d, want 50", got)
	}
	if got := mustUser(t, st, user.ID).Credit; !got.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("credit after request = %s, want 100", got)
	}
}

func TestRequestValidation(t *testing.T) {
	svc, st, _ := newTestService(t)
	user := seedUser(t, st, "alice", models.RoleCustomer, 100)
	pen := seedPen(t, st, "Pilot", 10, 5)

	deleted := seedPen(t, st, "Parker", 10, 5)
	if err := svc.DeletePen(context.Background(), seedUser(t, st, "root", models.RoleAdmin, 0), deleted.ID); err != nil {
		t.Fatalf("DeletePen() error = %v", err)
	}

	tests := []struct {
		name    string
		lines   []models.OrderLine
		wantErr error
	}{
		{"empty order", nil, store.ErrBadRequest},
		{"zero count", []models.OrderLine{{PenID: pen.ID, Count: 0}}, store.ErrBadRequest},
		{"unknown pen", []models.OrderLine{{PenID: 999, Count: 1}}, store.ErrNotFound},
		{"deleted pen", []models.OrderLine{{PenID: deleted.ID, Count: 1}}, store.ErrNotFound},
		{"over stock", []models.OrderLine{{PenID: pen.ID, Count: 6}}, store.ErrInsufficientStock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.RequestTransaction(context.Background(), user, tt.lines); !errors.Is(err, tt.wantErr) {
				t.Fatalf("RequestTransaction() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRequestCreditCheckedBeforeDiscount(t *testing.T) {
	svc, st, _ := newTestService(t)
	// Admin would pay 80 after discount, but the credit check runs
	// against the pre-discount subtotal of 100.
	admin := seedUser(t, st, "boss", models.RoleAdmin, 95)
	pen := seedPen(t, st, "Parker", 10, 50)

	_, err := svc.RequestTransaction(context.Background(), admin, []models.OrderLine{{PenID: pen.ID, Count: 10}})
	if !errors.Is(err, store.ErrInsufficientCredit) {
		t.Fatalf("RequestTransaction() error = %v, want ErrInsufficientCredit", err)
	}
}

func TestAdminDiscountOnRequest(t *testing.T) {
	svc, st, _ := newTestService(t)
	admin := seedUser(t, st, "boss", models.RoleAdmin, 100)
	pen := seedPen(t, st, "Pilot", 10, 50)

	tx, err := svc.RequestTransaction(context.Background(), admin, []models.OrderLine{{PenID: pen.ID, Count: 3}})
	if err != nil {
		t.Fatalf("RequestTransaction() error = %v", err)
	}
	if !tx.Price.Equal(decimal.NewFromInt(24)) {
		t.Fatalf("price = %s, want 24", tx.Price)
	}
}

func TestRequestThenCancelChangesNothing(t *testing.T) {
	svc, st, _ := newTestService(t)
	user := seedUser(t, st, "alice", models.RoleCustomer, 100)
	pen := seedPen(t, st, "Pilot", 10, 50)

	tx, err := svc.RequestTransaction(context.Background(), user, []models.OrderLine{{PenID: pen.ID, Count: 3}})
	if err != nil {
		t.Fatalf("RequestTransaction() error = %v", err)
	}
	if err := svc.CancelTransaction(context.Background(), user, tx.ID); err != nil {
		t.Fatalf("CancelTransaction() error = %v", err)
	}

	if got := mustTx(t, st, tx.ID).Status; got != models.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", got)
	}
	if got := mustPen(t, st, pen.ID).Stock; got != 50 {
		t.Fatalf("stock = %d, want 50", got)
	}
	if got := mustUser(t, st, user.ID).Credit; !got.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("credit = %s, want 100", got)
	}
}

func TestCompleteRefundRoundTrip(t *testing.T) {
	svc, st, clock := newTestService(t)
	user := seedUser(t, st, "alice", models.RoleCustomer, 100)
	pen := seedPen(t, st, "Pilot", 10, 50)
	ctx := context.Background()

	tx, err := svc.RequestTransaction(ctx, user, []models.OrderLine{{PenID: pen.ID, Count: 3}})
	if err != nil {
		t.Fatalf("RequestTransaction() error = %v", err)
	}

	if err := svc.CompleteTransaction(ctx, user, tx.ID); err != nil {
		t.Fatalf("CompleteTransaction() error = %v", err)
	}
	if got := mustPen(t, st, pen.ID).Stock; got != 47 {
		t.Fatalf("stock after complete = %d, want 47", got)
	}
	if got := mustUser(t, st, user.ID).Credit; !got.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("credit after complete = %s, want 70", got)
	}
	if got := mustTx(t, st, tx.ID).Status; got != models.StatusCompleted {
		t.Fatalf("status = %s, want completed", got)
	}

	clock.Advance(10 * time.Minute) // inside the 20m refund window

	if err := svc.RefundTransaction(ctx, user, tx.ID); err != nil {
		t.Fatalf("RefundTransaction() error = %v", err)
	}
	if got := mustPen(t, st, pen.ID).Stock; got != 50 {
		t.Fatalf("stock after refund = %d, want 50", got)
	}
	if got := mustUser(t, st, user.ID).Credit; !got.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("credit after refund = %s, want 100", got)
	}
	if got := mustTx(t, st, tx.ID).Status; got != models.StatusRefunded {
		t.Fatalf("status = %s, want refunded", got)
	}
}

func TestCompleteTwice(t *testing.T) {
	svc, st, _ := newTestService(t)
	user := seedUser(t, st, "alice", models.RoleCustomer, 100)
	pen := seedPen(t, st, "Pilot", 10, 50)
	ctx := context.Background()

	tx, err := svc.RequestTransaction(ctx, user, []models.OrderLine{{PenID: pen.ID, Count: 1}})
	if err != nil {
		t.Fatalf("RequestTransaction() error = %v", err)
	}
	if err := svc.CompleteTransaction(ctx, user, tx.ID); err != nil {
		t.Fatalf("first CompleteTransaction() error = %v", err)
	}
	if err := svc.CompleteTransaction(ctx, user, tx.ID); !errors.Is(err, store.ErrInvalidState) {
		t.Fatalf("second CompleteTransaction() error = %v, want ErrInvalidState", err)
	}
}

func TestCompleteExpired(t *testing.T) {
	svc, st, clock := newTestService(t)
	user := seedUser(t, st, "alice", models.RoleCustomer, 100)
	pen := seedPen(t, st, "Pilot", 10, 50)
	ctx := context.Background()

	tx, err := svc.RequestTransaction(ctx, user, []models.OrderLine{{PenID: pen.ID, Count: 3}})
	if err != nil {
		t.Fatalf("RequestTransaction() error = %v", err)
	}

	clock.Advance(6 * time.Minute)

	err = svc.CompleteTransaction(ctx, user, tx.ID)
	if !errors.Is(err, store.ErrExpired) {
		t.Fatalf("CompleteTransaction() error = %v, want ErrExpired", err)
	}
	if got := mustTx(t, st, tx.ID).Status; got != models.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", got)
	}
	// Expiry cancels without touching stock or credit, regardless of
	// current sufficiency.
	if got := mustPen(t, st, pen.ID).Stock; got != 50 {
		t.Fatalf("stock = %d, want 50", got)
	}
	if got := mustUser(t, st, user.ID).Credit; !got.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("credit = %s, want 100", got)
	}
}

func TestCompleteAllOrNothing(t *testing.T) {
	svc, st, _ := newTestService(t)
	user := seedUser(t, st, "alice", models.RoleCustomer, 1000)
	first := seedPen(t, st, "Pilot", 10, 50)
	second := seedPen(t, st, "Parker", 10, 5)
	ctx := context.Background()

	tx, err := svc.RequestTransaction(ctx, user, []models.OrderLine{
		{PenID: first.ID, Count: 2},
		{PenID: second.ID, Count: 5},
	})
	if err != nil {
		t.Fatalf("RequestTransaction() error = %v", err)
	}

	// Drain the second pen behind the transaction's back.
	drained := mustPen(t, st, second.ID)
	drained.Stock = 1
	if err := st.SavePen(ctx, drained); err != nil {
		t.Fatalf("SavePen() error = %v", err)
	}

	err = svc.CompleteTransaction(ctx, user, tx.ID)
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("CompleteTransaction() error = %v, want ErrInsufficientStock", err)
	}

	// The first line must not have been decremented: the unit validates
	// every line before applying anything.
	if got := mustPen(t, st, first.ID).Stock; got != 50 {
		t.Fatalf("first pen stock = %d, want 50", got)
	}
	if got := mustUser(t, st, user.ID).Credit; !got.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("credit = %s, want 1000", got)
	}
	if got := mustTx(t, st, tx.ID).Status; got != models.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", got)
	}
}

func TestCompleteInsufficientCredit(t *testing.T) {
	svc, st, _ := newTestService(t)
	user := seedUser(t, st, "alice", models.RoleCustomer, 100)
	pen := seedPen(t, st, "Pilot", 10, 50)
	ctx := context.Background()

	tx, err := svc.RequestTransaction(ctx, user, []models.OrderLine{{PenID: pen.ID, Count: 3}})
	if err != nil {
		t.Fatalf("RequestTransaction() error = %v", err)
	}

	// Drain the balance between request and completion.
	broke := mustUser(t, st, user.ID)
	broke.Credit = decimal.NewFromInt(5)
	if err := st.SaveUser(ctx, broke); err != nil {
		t.Fatalf("SaveUser() error = %v", err)
	}

	err = svc.CompleteTransaction(ctx, user, tx.ID)
	if !errors.Is(err, store.ErrInsufficientCredit) {
		t.Fatalf("CompleteTransaction() error = %v, want ErrInsufficientCredit", err)
	}
	if got := mustPen(t, st, pen.ID).Stock; got != 50 {
		t.Fatalf("stock = %d, want 50", got)
	}
	if got := mustTx(t, st, tx.ID).Status; got != models.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", got)
	}
}

func TestTransactionOwnership(t *testing.T) {
	svc, st, _ := newTestService(t)
	owner := seedUser(t, st, "alice", models.RoleCustomer, 100)
	admin := seedUser(t, st, "boss", models.RoleAdmin, 100)
	stranger := seedUser(t, st, "bob", models.RoleCustomer, 100)
	pen := seedPen(t, st, "Pilot", 10, 50)
	ctx := context.Background()

	tx, err := svc.RequestTransaction(ctx, owner, []models.OrderLine{{PenID: pen.ID, Count: 1}})
	if err != nil {
		t.Fatalf("RequestTransaction() error = %v", err)
	}

	// Admins may view but never complete, cancel, or refund another
	// user's transaction.
	if _, err := svc.GetTransaction(ctx, admin, tx.ID); err != nil {
		t.Fatalf("admin GetTransaction() error = %v", err)
	}
	if _, err := svc.GetTransaction(ctx, stranger, tx.ID); !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("stranger GetTransaction() error = %v, want ErrForbidden", err)
	}
	if err := svc.CompleteTransaction(ctx, admin, tx.ID); !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("admin CompleteTransaction() error = %v, want ErrForbidden", err)
	}
	if err := svc.CancelTransaction(ctx, admin, tx.ID); !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("admin CancelTransaction() error = %v, want ErrForbidden", err)
	}
	if err := svc.CompleteTransaction(ctx, owner, tx.ID); err != nil {
		t.Fatalf("owner CompleteTransaction() error = %v", err)
	}
	if err := svc.RefundTransaction(ctx, admin, tx.ID); !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("admin RefundTransaction() error = %v, want ErrForbidden", err)
	}
}

func TestRefundRules(t *testing.T) {
	svc, st, clock := newTestService(t)
	user := seedUser(t, st, "alice", models.RoleCustomer, 100)
	pen := seedPen(t, st, "Pilot", 10, 50)
	ctx := context.Background()

	requested, err := svc.RequestTransaction(ctx, user, []models.OrderLine{{PenID: pen.ID, Count: 1}})
	if err != nil {
		t.Fatalf("RequestTransaction() error = %v", err)
	}
	if err := svc.RefundTransaction(ctx, user, requested.ID); !errors.Is(err, store.ErrInvalidState) {
		t.Fatalf("refund of requested error = %v, want ErrInvalidState", err)
	}

	if err := svc.CompleteTransaction(ctx, user, requested.ID); err != nil {
		t.Fatalf("CompleteTransaction() error = %v", err)
	}

	clock.Advance(21 * time.Minute)

	if err := svc.RefundTransaction(ctx, user, requested.ID); !errors.Is(err, store.ErrExpired) {
		t.Fatalf("late refund error = %v, want ErrExpired", err)
	}
	// Past the window the transaction stays completed.
	if got := mustTx(t, st, requested.ID).Status; got != models.StatusCompleted {
		t.Fatalf("status = %s, want completed", got)
	}
}

func TestConcurrentCompletesOverSameStock(t *testing.T) {
	svc, st, _ := newTestService(t)
	alice := seedUser(t, st, "alice", models.RoleCustomer, 100)
	bob := seedUser(t, st, "bob", models.RoleCustomer, 100)
	pen := seedPen(t, st, "Pilot", 10, 3)
	ctx := context.Background()

	// Both requests pass the unreserved stock check.
	txA, err := svc.RequestTransaction(ctx, alice, []models.OrderLine{{PenID: pen.ID, Count: 2}})
	if err != nil {
		t.Fatalf("RequestTransaction(alice) error = %v", err)
	}
	txB, err := svc.RequestTransaction(ctx, bob, []models.OrderLine{{PenID: pen.ID, Count: 2}})
	if err != nil {
		t.Fatalf("RequestTransaction(bob) error = %v", err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		errs[0] = svc.CompleteTransaction(ctx, alice, txA.ID)
	}()
	go func() {
		defer wg.Done()
		errs[1] = svc.CompleteTransaction(ctx, bob, txB.ID)
	}()
	wg.Wait()

	var completed, failed int
	for _, err := range errs {
		switch {
		case err == nil:
			completed++
		case errors.Is(err, store.ErrInsufficientStock):
			failed++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if completed != 1 || failed != 1 {
		t.Fatalf("completed = %d, failed = %d, want exactly one of each", completed, failed)
	}
	if got := mustPen(t, st, pen.ID).Stock; got != 1 {
		t.Fatalf("stock = %d, want 1", got)
	}
}

func TestConcurrentCompleteOfSameTransaction(t *testing.T) {
	svc, st, _ := newTestService(t)
	user := seedUser(t, st, "alice", models.RoleCustomer, 100)
	pen := seedPen(t, st, "Pilot", 10, 50)
	ctx := context.Background()

	tx, err := svc.RequestTransaction(ctx, user, []models.OrderLine{{PenID: pen.ID, Count: 2}})
	if err != nil {
		t.Fatalf("RequestTransaction() error = %v", err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	for i := 0; i < 2; i++ {
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.CompleteTransaction(ctx, user, tx.ID)
		}(i)
	}
	wg.Wait()

	var ok, invalid int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, store.ErrInvalidState):
			invalid++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || invalid != 1 {
		t.Fatalf("ok = %d, invalid = %d, want exactly one of each", ok, invalid)
	}
	// The debit happened once.
	if got := mustPen(t, st, pen.ID).Stock; got != 48 {
		t.Fatalf("stock = %d, want 48", got)
	}
	if got := mustUser(t, st, user.ID).Credit; !got.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("credit = %s, want 80", got)
	}
}

// racingStore lets a test squeeze a competing mutation into the window
// between a failed completion unit and the follow-up cancellation.
type racingStore struct {
	store.Store
	fired      bool
	afterError func()
}

func (s *racingStore) Atomically(ctx context.Context, fn func(store.Store) error) error {
	err := s.Store.Atomically(ctx, fn)
	if err != nil && !s.fired {
		s.fired = true
		s.afterError()
	}
	return err
}

func TestFailedCompleteDoesNotOverrideConcurrentCompletion(t *testing.T) {
	st := memstore.New()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	cfg := testPricingConfig()
	cfg.RequestExpiry = 5 * time.Minute
	cfg.RefundExpiry = 20 * time.Minute

	rs := &racingStore{Store: st}
	svc := New(rs, cfg).WithClock(clock.Now)
	ctx := context.Background()

	user := seedUser(t, st, "alice", models.RoleCustomer, 100)
	pen := seedPen(t, st, "Pilot", 10, 2)

	tx, err := svc.RequestTransaction(ctx, user, []models.OrderLine{{PenID: pen.ID, Count: 2}})
	if err != nil {
		t.Fatalf("RequestTransaction() error = %v", err)
	}

	// Drain the stock so the completion unit fails, then — in the gap
	// before the engine records the cancellation — restock and land a
	// competing completion of the same transaction.
	drained := mustPen(t, st, pen.ID)
	drained.Stock = 1
	if err := st.SavePen(ctx, drained); err != nil {
		t.Fatalf("SavePen() error = %v", err)
	}
	rs.afterError = func() {
		restocked := mustPen(t, st, pen.ID)
		restocked.Stock = 2
		if err := st.SavePen(ctx, restocked); err != nil {
			t.Fatalf("SavePen() error = %v", err)
		}
		if err := New(st, cfg).WithClock(clock.Now).CompleteTransaction(ctx, user, tx.ID); err != nil {
			t.Fatalf("competing CompleteTransaction() error = %v", err)
		}
	}

	err = svc.CompleteTransaction(ctx, user, tx.ID)
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("CompleteTransaction() error = %v, want ErrInsufficientStock", err)
	}

	// The competing completion won; the late cancellation must not
	// overwrite it, and the debit stands exactly once.
	if got := mustTx(t, st, tx.ID).Status; got != models.StatusCompleted {
		t.Fatalf("status = %s, want completed", got)
	}
	if got := mustUser(t, st, user.ID).Credit; !got.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("credit = %s, want 80", got)
	}
	if got := mustPen(t, st, pen.ID).Stock; got != 0 {
		t.Fatalf("stock = %d, want 0", got)
	}
}

func TestCancelRequestedSkipsAdvancedTransactions(t *testing.T) {
	svc, st, _ := newTestService(t)
	user := seedUser(t, st, "alice", models.RoleCustomer, 100)
	pen := seedPen(t, st, "Pilot", 10, 50)
	ctx := context.Background()

	tx, err := svc.RequestTransaction(ctx, user, []models.OrderLine{{PenID: pen.ID, Count: 1}})
	if err != nil {
		t.Fatalf("RequestTransaction() error = %v", err)
	}
	if err := svc.CompleteTransaction(ctx, user, tx.ID); err != nil {
		t.Fatalf("CompleteTransaction() error = %v", err)
	}

	// Cancellation guards on the live status: a transaction that moved
	// past requested is left untouched.
	if err := svc.cancelRequested(ctx, tx.ID); err != nil {
		t.Fatalf("cancelRequested() error = %v", err)
	}
	if got := mustTx(t, st, tx.ID).Status; got != models.StatusCompleted {
		t.Fatalf("status = %s, want completed", got)
	}
}

func TestListTransactions(t *testing.T) {
	svc, st, _ := newTestService(t)
	alice := seedUser(t, st, "alice", models.RoleCustomer, 1000)
	admin := seedUser(t, st, "boss", models.RoleAdmin, 1000)
	pen := seedPen(t, st, "Pilot", 10, 50)
	ctx := context.Background()

	mine, err := svc.RequestTransaction(ctx, alice, []models.OrderLine{{PenID: pen.ID, Count: 1}})
	if err != nil {
		t.Fatalf("RequestTransaction() error = %v", err)
	}
	if _, err := svc.RequestTransaction(ctx, admin, []models.OrderLine{{PenID: pen.ID, Count: 1}}); err != nil {
		t.Fatalf("RequestTransaction() error = %v", err)
	}
	if err := svc.CancelTransaction(ctx, alice, mine.ID); err != nil {
		t.Fatalf("CancelTransaction() error = %v", err)
	}

	tests := []struct {
		name    string
		user    *models.User
		showOwn bool
		status  string
		want    int
	}{
		{"customer sees own", alice, true, "", 1},
		{"customer cannot widen scope", alice, false, "", 1},
		{"admin sees own by default", admin, true, "", 1},
		{"admin sees all", admin, false, "", 2},
		{"admin filters by status", admin, false, models.StatusCancelled, 1},
		{"status filter matches exactly", alice, true, models.StatusRequested, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txs, err := svc.ListTransactions(ctx, tt.user, tt.showOwn, tt.status)
			if err != nil {
				t.Fatalf("ListTransactions() error = %v", err)
			}
			if len(txs) != tt.want {
				t.Fatalf("len = %d, want %d", len(txs), tt.want)
			}
		})
	}

	if _, err := svc.ListTransactions(ctx, alice, true, "bogus"); !errors.Is(err, store.ErrBadRequest) {
		t.Fatalf("unknown status error = %v, want ErrBadRequest", err)
	}
}
