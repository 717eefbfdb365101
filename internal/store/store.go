package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"shopen/internal/models"
)

// PenFilter narrows ListPens. Nil/empty fields impose no constraint.
// Price and length bounds are inclusive; MinStock is strictly greater-than.
type PenFilter struct {
	Brands    []string
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
	MinStock  *int
	Colors    []string
	MinLength *int
	MaxLength *int
}

// TransactionFilter narrows ListTransactions.
type TransactionFilter struct {
	UserID *uint
	Status *string
}

// UserStore persists shop accounts. CreateUser returns ErrConflict when
// the name is already held, backing the unique constraint even when two
// registrations race past the UserNameTaken pre-check.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	UserByID(ctx context.Context, id uint) (*models.User, error)
	UserByName(ctx context.Context, name string) (*models.User, error)
	SaveUser(ctx context.Context, user *models.User) error
	ListUsers(ctx context.Context) ([]models.User, error)
	// UserNameTaken reports whether another user (id != excludeID) holds name.
	UserNameTaken(ctx context.Context, name string, excludeID uint) (bool, error)
}

// PenStore persists inventory. PenByID returns soft-deleted pens too;
// ListPens never does.
type PenStore interface {
	CreatePen(ctx context.Context, pen *models.Pen) error
	PenByID(ctx context.Context, id uint) (*models.Pen, error)
	SavePen(ctx context.Context, pen *models.Pen) error
	ListPens(ctx context.Context, filter PenFilter) ([]models.Pen, error)
}

// SessionStore persists authentication sessions. Deletes are idempotent.
type SessionStore interface {
	CreateSession(ctx context.Context, session *models.Session) error
	// SessionByToken returns the session for token if it is still live at now.
	SessionByToken(ctx context.Context, token string, now time.Time) (*models.Session, error)
	DeleteSessionByToken(ctx context.Context, token string) error
	DeleteSessionsForUser(ctx context.Context, userID uint) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) error
}

// TransactionStore persists purchase transactions.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	TransactionByID(ctx context.Context, id uint) (*models.Transaction, error)
	SaveTransaction(ctx context.Context, tx *models.Transaction) error
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]models.Transaction, error)
}

// Store aggregates the per-entity stores and provides the atomic unit
// completion and refund run inside. Within Atomically the passed Store
// reads rows with update intent: two concurrent units touching the same
// pen or user rows serialize, so both cannot observe sufficient
// stock/credit before either commits. The callback must return nil only
// after the whole multi-row mutation has been applied.
type Store interface {
	UserStore
	PenStore
	SessionStore
	TransactionStore

	Atomically(ctx context.Context, fn func(Store) error) error
}
