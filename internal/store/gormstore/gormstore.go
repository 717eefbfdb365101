// Package gormstore implements the store interfaces on a GORM-managed
// PostgreSQL database.
package gormstore

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shopen/internal/models"
	"shopen/internal/store"
)

// Store is the GORM-backed store. Inside Atomically it runs on the
// transaction handle and reads pen/user/transaction rows with
// SELECT ... FOR UPDATE so concurrent units on the same rows serialize.
type Store struct {
	db     *gorm.DB
	locked bool
}

// New wraps an open GORM handle.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) orm(ctx context.Context) *gorm.DB {
	q := s.db.WithContext(ctx)
	if s.locked {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

// Atomically runs fn inside a database transaction with row locking
// enabled on reads. The transaction commits iff fn returns nil.
func (s *Store) Atomically(ctx context.Context, fn func(store.Store) error) error {
	if s.locked {
		// Already inside a unit; nested calls join it.
		return fn(s)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, locked: true})
	})
}

func mapErr(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		// Unique-index violation, e.g. two registrations racing past
		// the name pre-check. Needs TranslateError on the gorm config.
		return store.ErrConflict
	}
	return err
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	return mapErr(s.db.WithContext(ctx).Create(user).Error)
}

func (s *Store) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.orm(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &user, nil
}

func (s *Store) UserByName(ctx context.Context, name string) (*models.User, error) {
	var user models.User
	if err := s.orm(ctx).First(&user, "name = ?", name).Error; err != nil {
		return nil, mapErr(err)
	}
	return &user, nil
}

func (s *Store) SaveUser(ctx context.Context, user *models.User) error {
	return s.db.WithContext(ctx).Save(user).Error
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UserNameTaken(ctx context.Context, name string, excludeID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("name = ? AND id <> ?", name, excludeID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) CreatePen(ctx context.Context, pen *models.Pen) error {
	return s.db.WithContext(ctx).Create(pen).Error
}

func (s *Store) PenByID(ctx context.Context, id uint) (*models.Pen, error) {
	var pen models.Pen
	if err := s.orm(ctx).First(&pen, "id = ?", id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &pen, nil
}

func (s *Store) SavePen(ctx context.Context, pen *models.Pen) error {
	return s.db.WithContext(ctx).Save(pen).Error
}

func (s *Store) ListPens(ctx context.Context, filter store.PenFilter) ([]models.Pen, error) {
	q := s.db.WithContext(ctx).Where("deleted = ?", false)
	if len(filter.Brands) > 0 {
		q = q.Where("brand IN ?", filter.Brands)
	}
	if filter.MinPrice != nil {
		q = q.Where("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		q = q.Where("price <= ?", *filter.MaxPrice)
	}
	if filter.MinStock != nil {
		q = q.Where("stock > ?", *filter.MinStock)
	}
	if len(filter.Colors) > 0 {
		q = q.Where("color IN ?", filter.Colors)
	}
	if filter.MinLength != nil {
		q = q.Where("length >= ?", *filter.MinLength)
	}
	if filter.MaxLength != nil {
		q = q.Where("length <= ?", *filter.MaxLength)
	}

	var pens []models.Pen
	if err := q.Order("id").Find(&pens).Error; err != nil {
		return nil, err
	}
	return pens, nil
}

func (s *Store) CreateSession(ctx context.Context, session *models.Session) error {
	return mapErr(s.db.WithContext(ctx).Create(session).Error)
}

func (s *Store) SessionByToken(ctx context.Context, token string, now time.Time) (*models.Session, error) {
	var session models.Session
	err := s.db.WithContext(ctx).
		First(&session, "token = ? AND expires_at > ?", token, now).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return &session, nil
}

func (s *Store) DeleteSessionByToken(ctx context.Context, token string) error {
	return s.db.WithContext(ctx).
		Where("token = ?", token).
		Delete(&models.Session{}).Error
}

func (s *Store) DeleteSessionsForUser(ctx context.Context, userID uint) error {
	return s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.Session{}).Error
}

func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) error {
	return s.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&models.Session{}).Error
}

func (s *Store) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	return s.db.WithContext(ctx).Create(tx).Error
}

func (s *Store) TransactionByID(ctx context.Context, id uint) (*models.Transaction, error) {
	var tx models.Transaction
	if err := s.orm(ctx).First(&tx, "id = ?", id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &tx, nil
}

func (s *Store) SaveTransaction(ctx context.Context, tx *models.Transaction) error {
	return s.db.WithContext(ctx).Save(tx).Error
}

func (s *Store) ListTransactions(ctx context.Context, filter store.TransactionFilter) ([]models.Transaction, error) {
	q := s.db.WithContext(ctx)
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}

	var txs []models.Transaction
	if err := q.Order("id").Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}

var _ store.Store = (*Store)(nil)
