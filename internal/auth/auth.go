// Package auth implements account registration, credential checks,
// session issuance and the role-based authorization rules consumed by
// every mutating operation.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"shopen/internal/models"
	"shopen/internal/store"
)

// Service is the identity store facade. All operations take the store as
// an explicit dependency; the clock is injected for expiry tests.
type Service struct {
	store      store.Store
	sessionTTL time.Duration
	now        func() time.Time
}

// New builds the identity service with a 24h default session window.
func New(st store.Store, sessionTTL time.Duration) *Service {
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &Service{
		store:      st,
		sessionTTL: sessionTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Register creates a customer account with zero credit and logs it in.
func (s *Service) Register(ctx context.Context, name, secret string) (string, error) {
	if name == "" || secret == "" {
		return "", fmt.Errorf("%w: username and password are required", store.ErrBadRequest)
	}
	taken, err := s.store.UserNameTaken(ctx, name, 0)
	if err != nil {
		return "", err
	}
	if taken {
		return "", fmt.Errorf("%w: username %q already exists", store.ErrConflict, name)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	user := models.User{
		Name:       name,
		SecretHash: string(hash),
		Role:       models.RoleCustomer,
		Credit:     decimal.Zero,
	}
	if err := s.store.CreateUser(ctx, &user); err != nil {
		return "", err
	}
	return s.Authenticate(ctx, name, secret)
}

// Authenticate verifies the credentials and issues a fresh session. Any
// prior sessions of the user are purged first, so logging in invalidates
// concurrent logins from other devices.
func (s *Service) Authenticate(ctx context.Context, name, secret string) (string, error) {
	now := s.now()
	// Best-effort sweep; expired rows are garbage either way.
	_ = s.store.DeleteExpiredSessions(ctx, now)

	user, err := s.store.UserByName(ctx, name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", fmt.Errorf("%w: unknown user or wrong password", store.ErrUnauthorized)
		}
		return "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.SecretHash), []byte(secret)) != nil {
		return "", fmt.Errorf("%w: unknown user or wrong password", store.ErrUnauthorized)
	}

	if err := s.store.DeleteSessionsForUser(ctx, user.ID); err != nil {
		return "", err
	}

	session := models.Session{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.store.CreateSession(ctx, &session); err != nil {
		return "", err
	}
	return session.Token, nil
}

// ResolveSession returns the user owning a live session token. Expired
// sessions are swept as a side effect of every check.
func (s *Service) ResolveSession(ctx context.Context, token string) (*models.User, error) {
	now := s.now()
	_ = s.store.DeleteExpiredSessions(ctx, now)

	session, err := s.store.SessionByToken(ctx, token, now)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: could not validate credentials", store.ErrForbidden)
		}
		return nil, err
	}
	return s.store.UserByID(ctx, session.UserID)
}

// Logout deletes the session matching token. Absent tokens are a no-op.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.store.DeleteSessionByToken(ctx, token)
}

// GetUser returns a user record, visible to admins and the user itself.
func (s *Service) GetUser(ctx context.Context, acting *models.User, id uint) (*models.User, error) {
	if !acting.IsAdmin() && acting.ID != id {
		return nil, fmt.Errorf("%w: only admins can view other users", store.ErrForbidden)
	}
	return s.store.UserByID(ctx, id)
}

// ListUsers returns every account. Admins only.
func (s *Service) ListUsers(ctx context.Context, acting *models.User) ([]models.User, error) {
	if !acting.IsAdmin() {
		return nil, fmt.Errorf("%w: only admins can list users", store.ErrForbidden)
	}
	return s.store.ListUsers(ctx)
}

// SetCredit replaces a user's credit balance. Admins only; the balance
// must stay non-negative.
func (s *Service) SetCredit(ctx context.Context, acting *models.User, userID uint, credit decimal.Decimal) error {
	if !acting.IsAdmin() {
		return fmt.Errorf("%w: only admins can set user credit", store.ErrForbidden)
	}
	if credit.IsNegative() {
		return fmt.Errorf("%w: credit must be non-negative", store.ErrBadRequest)
	}
	user, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return err
	}
	user.Credit = credit
	return s.store.SaveUser(ctx, user)
}

// Promote raises a user to the admin role. Admins only.
func (s *Service) Promote(ctx context.Context, acting *models.User, userID uint) error {
	if !acting.IsAdmin() {
		return fmt.Errorf("%w: only admins can promote users", store.ErrForbidden)
	}
	user, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return err
	}
	user.Role = models.RoleAdmin
	return s.store.SaveUser(ctx, user)
}

// EditProfile changes a user's name and secret. Permitted to admins and
// to the user itself; renaming onto an existing name is a conflict.
func (s *Service) EditProfile(ctx context.Context, acting *models.User, userID uint, name, secret string) error {
	if !acting.IsAdmin() && acting.ID != userID {
		return fmt.Errorf("%w: only admins can edit other users", store.ErrForbidden)
	}
	if name == "" || secret == "" {
		return fmt.Errorf("%w: username and password are required", store.ErrBadRequest)
	}
	taken, err := s.store.UserNameTaken(ctx, name, userID)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: username %q already exists", store.ErrConflict, name)
	}

	user, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.Name = name
	user.SecretHash = string(hash)
	return s.store.SaveUser(ctx, user)
}
