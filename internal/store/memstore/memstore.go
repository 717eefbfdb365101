// Package memstore implements the store interfaces in process memory.
// It backs the package tests and mirrors the locking contract of the
// database store: Atomically serializes units under one mutex and rolls
// the dataset back when the callback fails.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"shopen/internal/models"
	"shopen/internal/store"
)

type tables struct {
	users        map[uint]models.User
	pens         map[uint]models.Pen
	sessions     map[uint]models.Session
	transactions map[uint]models.Transaction

	nextUserID    uint
	nextPenID     uint
	nextSessionID uint
	nextTxID      uint
}

func (t *tables) clone() *tables {
	cp := &tables{
		users:         make(map[uint]models.User, len(t.users)),
		pens:          make(map[uint]models.Pen, len(t.pens)),
		sessions:      make(map[uint]models.Session, len(t.sessions)),
		transactions:  make(map[uint]models.Transaction, len(t.transactions)),
		nextUserID:    t.nextUserID,
		nextPenID:     t.nextPenID,
		nextSessionID: t.nextSessionID,
		nextTxID:      t.nextTxID,
	}
	for id, u := range t.users {
		cp.users[id] = u
	}
	for id, p := range t.pens {
		cp.pens[id] = p
	}
	for id, s := range t.sessions {
		cp.sessions[id] = s
	}
	for id, tx := range t.transactions {
		cp.transactions[id] = tx
	}
	return cp
}

// Store is the in-memory store.
type Store struct {
	mu     *sync.Mutex
	data   *tables
	inUnit bool
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		mu: &sync.Mutex{},
		data: &tables{
			users:         make(map[uint]models.User),
			pens:          make(map[uint]models.Pen),
			sessions:      make(map[uint]models.Session),
			transactions:  make(map[uint]models.Transaction),
			nextUserID:    1,
			nextPenID:     1,
			nextSessionID: 1,
			nextTxID:      1,
		},
	}
}

func (s *Store) locked(fn func(t *tables) error) error {
	if s.inUnit {
		return fn(s.data)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

// Atomically serializes the unit against every other mutation and
// restores the previous dataset if fn fails.
func (s *Store) Atomically(_ context.Context, fn func(store.Store) error) error {
	if s.inUnit {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	child := &Store{mu: s.mu, data: s.data, inUnit: true}
	if err := fn(child); err != nil {
		*s.data = *snapshot
		return err
	}
	return nil
}

func (s *Store) CreateUser(_ context.Context, user *models.User) error {
	return s.locked(func(t *tables) error {
		for _, u := range t.users {
			if u.Name == user.Name {
				return store.ErrConflict
			}
		}
		if user.ID == 0 {
			user.ID = t.nextUserID
			t.nextUserID++
		} else if user.ID >= t.nextUserID {
			t.nextUserID = user.ID + 1
		}
		t.users[user.ID] = *user
		return nil
	})
}

func (s *Store) UserByID(_ context.Context, id uint) (*models.User, error) {
	var out *models.User
	err := s.locked(func(t *tables) error {
		u, ok := t.users[id]
		if !ok {
			return store.ErrNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

func (s *Store) UserByName(_ context.Context, name string) (*models.User, error) {
	var out *models.User
	err := s.locked(func(t *tables) error {
		for _, u := range t.users {
			if u.Name == name {
				cp := u
				out = &cp
				return nil
			}
		}
		return store.ErrNotFound
	})
	return out, err
}

func (s *Store) SaveUser(_ context.Context, user *models.User) error {
	return s.locked(func(t *tables) error {
		if _, ok := t.users[user.ID]; !ok {
			return store.ErrNotFound
		}
		t.users[user.ID] = *user
		return nil
	})
}

func (s *Store) ListUsers(_ context.Context) ([]models.User, error) {
	var out []models.User
	err := s.locked(func(t *tables) error {
		for _, u := range t.users {
			out = append(out, u)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (s *Store) UserNameTaken(_ context.Context, name string, excludeID uint) (bool, error) {
	taken := false
	err := s.locked(func(t *tables) error {
		for _, u := range t.users {
			if u.Name == name && u.ID != excludeID {
				taken = true
				return nil
			}
		}
		return nil
	})
	return taken, err
}

func (s *Store) CreatePen(_ context.Context, pen *models.Pen) error {
	return s.locked(func(t *tables) error {
		if pen.ID == 0 {
			pen.ID = t.nextPenID
			t.nextPenID++
		} else if pen.ID >= t.nextPenID {
			t.nextPenID = pen.ID + 1
		}
		t.pens[pen.ID] = *pen
		return nil
	})
}

func (s *Store) PenByID(_ context.Context, id uint) (*models.Pen, error) {
	var out *models.Pen
	err := s.locked(func(t *tables) error {
		p, ok := t.pens[id]
		if !ok {
			return store.ErrNotFound
		}
		out = &p
		return nil
	})
	return out, err
}

func (s *Store) SavePen(_ context.Context, pen *models.Pen) error {
	return s.locked(func(t *tables) error {
		if _, ok := t.pens[pen.ID]; !ok {
			return store.ErrNotFound
		}
		t.pens[pen.ID] = *pen
		return nil
	})
}

func (s *Store) ListPens(_ context.Context, filter store.PenFilter) ([]models.Pen, error) {
	var out []models.Pen
	err := s.locked(func(t *tables) error {
		for _, p := range t.pens {
			if matchesPen(p, filter) {
				out = append(out, p)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func matchesPen(p models.Pen, f store.PenFilter) bool {
	if p.Deleted {
		return false
	}
	if len(f.Brands) > 0 && !contains(f.Brands, p.Brand) {
		return false
	}
	if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	if f.MinStock != nil && p.Stock <= *f.MinStock {
		return false
	}
	if len(f.Colors) > 0 && (p.Color == nil || !contains(f.Colors, *p.Color)) {
		return false
	}
	if f.MinLength != nil && (p.Length == nil || *p.Length < *f.MinLength) {
		return false
	}
	if f.MaxLength != nil && (p.Length == nil || *p.Length > *f.MaxLength) {
		return false
	}
	return true
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func (s *Store) CreateSession(_ context.Context, session *models.Session) error {
	return s.locked(func(t *tables) error {
		if session.ID == 0 {
			session.ID = t.nextSessionID
			t.nextSessionID++
		}
		t.sessions[session.ID] = *session
		return nil
	})
}

func (s *Store) SessionByToken(_ context.Context, token string, now time.Time) (*models.Session, error) {
	var out *models.Session
	err := s.locked(func(t *tables) error {
		for _, sess := range t.sessions {
			if sess.Token == token && sess.Valid(now) {
				cp := sess
				out = &cp
				return nil
			}
		}
		return store.ErrNotFound
	})
	return out, err
}

func (s *Store) DeleteSessionByToken(_ context.Context, token string) error {
	return s.locked(func(t *tables) error {
		for id, sess := range t.sessions {
			if sess.Token == token {
				delete(t.sessions, id)
			}
		}
		return nil
	})
}

func (s *Store) DeleteSessionsForUser(_ context.Context, userID uint) error {
	return s.locked(func(t *tables) error {
		for id, sess := range t.sessions {
			if sess.UserID == userID {
				delete(t.sessions, id)
			}
		}
		return nil
	})
}

func (s *Store) DeleteExpiredSessions(_ context.Context, now time.Time) error {
	return s.locked(func(t *tables) error {
		for id, sess := range t.sessions {
			if !sess.Valid(now) {
				delete(t.sessions, id)
			}
		}
		return nil
	})
}

func (s *Store) CreateTransaction(_ context.Context, tx *models.Transaction) error {
	return s.locked(func(t *tables) error {
		if tx.ID == 0 {
			tx.ID = t.nextTxID
			t.nextTxID++
		}
		t.transactions[tx.ID] = *tx
		return nil
	})
}

func (s *Store) TransactionByID(_ context.Context, id uint) (*models.Transaction, error) {
	var out *models.Transaction
	err := s.locked(func(t *tables) error {
		tx, ok := t.transactions[id]
		if !ok {
			return store.ErrNotFound
		}
		out = &tx
		return nil
	})
	return out, err
}

func (s *Store) SaveTransaction(_ context.Context, tx *models.Transaction) error {
	return s.locked(func(t *tables) error {
		if _, ok := t.transactions[tx.ID]; !ok {
			return store.ErrNotFound
		}
		t.transactions[tx.ID] = *tx
		return nil
	})
}

func (s *Store) ListTransactions(_ context.Context, filter store.TransactionFilter) ([]models.Transaction, error) {
	var out []models.Transaction
	err := s.locked(func(t *tables) error {
		for _, tx := range t.transactions {
			if filter.UserID != nil && tx.UserID != *filter.UserID {
				continue
			}
			if filter.Status != nil && tx.Status != *filter.Status {
				continue
			}
			out = append(out, tx)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

var _ store.Store = (*Store)(nil)
