package shop

import (
	"context"
	"errors"
	"fmt"

	"shopen/internal/models"
	"shopen/internal/store"
)

// RequestTransaction records a purchase request. Stock is checked
// against live counts but not reserved; concurrent requests may both
// pass this check and are arbitrated later by the completion unit. The
// credit check uses the pre-discount subtotal; the stored price is the
// discounted total.
func (s *Service) RequestTransaction(ctx context.Context, user *models.User, lines []models.OrderLine) (*models.Transaction, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: order must contain at least one line", store.ErrBadRequest)
	}

	pens := make(map[uint]*models.Pen, len(lines))
	for _, line := range lines {
		if line.Count < 1 {
			return nil, fmt.Errorf("%w: count must be at least 1", store.ErrBadRequest)
		}
		pen, err := s.GetPen(ctx, line.PenID)
		if err != nil {
			return nil, err
		}
		if pen.Deleted {
			return nil, fmt.Errorf("%w: pen %d is no longer sold", store.ErrNotFound, pen.ID)
		}
		pens[line.PenID] = pen
	}

	subtotal, err := Subtotal(lines, pens)
	if err != nil {
		return nil, err
	}
	if user.Credit.LessThan(subtotal) {
		return nil, fmt.Errorf("%w: order needs %s, balance is %s",
			store.ErrInsufficientCredit, subtotal, user.Credit)
	}

	tx := models.Transaction{
		UserID:    user.ID,
		Price:     Discount(subtotal, user.Role, s.cfg),
		Status:    models.StatusRequested,
		CreatedAt: s.now(),
	}
	if err := tx.SetLines(lines); err != nil {
		return nil, err
	}
	if err := s.store.CreateTransaction(ctx, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// CompleteTransaction debits stock and credit for a requested
// transaction. Only the owner may complete it; admins cannot complete
// another user's transaction. The multi-row mutation runs as one atomic
// unit: every line's stock and the full credit amount are validated
// before any row is written, so a failing unit changes nothing except
// the transaction's own status, which becomes cancelled.
func (s *Service) CompleteTransaction(ctx context.Context, user *models.User, id uint) error {
	tx, err := s.ownedTransaction(ctx, user, id)
	if err != nil {
		return err
	}
	if tx.Status != models.StatusRequested {
		return fmt.Errorf("%w: transaction %d is %s", store.ErrInvalidState, tx.ID, tx.Status)
	}
	if s.now().Sub(tx.CreatedAt) > s.cfg.RequestExpiry {
		if err := s.cancelRequested(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("%w: request window elapsed, transaction cancelled", store.ErrExpired)
	}

	lines, err := tx.Lines()
	if err != nil {
		return err
	}

	err = s.store.Atomically(ctx, func(st store.Store) error {
		current, err := st.TransactionByID(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != models.StatusRequested {
			// Lost the race against a concurrent complete/cancel.
			return fmt.Errorf("%w: transaction %d is %s", store.ErrInvalidState, current.ID, current.Status)
		}

		pens := make([]*models.Pen, len(lines))
		for i, line := range lines {
			pen, err := st.PenByID(ctx, line.PenID)
			if err != nil {
				return err
			}
			if pen.Stock < line.Count {
				return fmt.Errorf("%w: pen %d has %d in stock, %d requested",
					store.ErrInsufficientStock, pen.ID, pen.Stock, line.Count)
			}
			pens[i] = pen
		}

		owner, err := st.UserByID(ctx, current.UserID)
		if err != nil {
			return err
		}
		if owner.Credit.LessThan(current.Price) {
			return fmt.Errorf("%w: transaction needs %s, balance is %s",
				store.ErrInsufficientCredit, current.Price, owner.Credit)
		}

		// Everything validated; apply the whole unit.
		for i, line := range lines {
			pens[i].Stock -= line.Count
			if err := st.SavePen(ctx, pens[i]); err != nil {
				return err
			}
		}
		owner.Credit = owner.Credit.Sub(current.Price)
		if err := st.SaveUser(ctx, owner); err != nil {
			return err
		}
		current.Status = models.StatusCompleted
		return st.SaveTransaction(ctx, current)
	})
	if err == nil {
		return nil
	}

	// A business failure inside the unit cancels the transaction; the
	// aborted unit itself applied nothing.
	if errors.Is(err, store.ErrInsufficientStock) || errors.Is(err, store.ErrInsufficientCredit) {
		if cancelErr := s.cancelRequested(ctx, id); cancelErr != nil {
			return cancelErr
		}
	}
	return err
}

// cancelRequested moves a transaction to cancelled iff it is still in
// the requested state. A transaction that advanced concurrently between
// our snapshot and this write is left untouched: cancelled is reachable
// from requested only.
func (s *Service) cancelRequested(ctx context.Context, id uint) error {
	return s.store.Atomically(ctx, func(st store.Store) error {
		current, err := st.TransactionByID(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != models.StatusRequested {
			return nil
		}
		current.Status = models.StatusCancelled
		return st.SaveTransaction(ctx, current)
	})
}

// CancelTransaction cancels a requested transaction. Nothing was
// reserved, so no stock or credit moves.
func (s *Service) CancelTransaction(ctx context.Context, user *models.User, id uint) error {
	tx, err := s.ownedTransaction(ctx, user, id)
	if err != nil {
		return err
	}
	if tx.Status != models.StatusRequested {
		return fmt.Errorf("%w: transaction %d is %s", store.ErrInvalidState, tx.ID, tx.Status)
	}
	tx.Status = models.StatusCancelled
	return s.store.SaveTransaction(ctx, tx)
}

// RefundTransaction restores stock and credits back the discounted
// price of a completed transaction within the refund window.
func (s *Service) RefundTransaction(ctx context.Context, user *models.User, id uint) error {
	tx, err := s.ownedTransaction(ctx, user, id)
	if err != nil {
		return err
	}
	if tx.Status != models.StatusCompleted {
		return fmt.Errorf("%w: transaction %d is %s", store.ErrInvalidState, tx.ID, tx.Status)
	}
	if s.now().Sub(tx.CreatedAt) > s.cfg.RefundExpiry {
		return fmt.Errorf("%w: refund window elapsed", store.ErrExpired)
	}

	lines, err := tx.Lines()
	if err != nil {
		return err
	}

	return s.store.Atomically(ctx, func(st store.Store) error {
		current, err := st.TransactionByID(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != models.StatusCompleted {
			return fmt.Errorf("%w: transaction %d is %s", store.ErrInvalidState, current.ID, current.Status)
		}

		for _, line := range lines {
			pen, err := st.PenByID(ctx, line.PenID)
			if err != nil {
				return err
			}
			pen.Stock += line.Count
			if err := st.SavePen(ctx, pen); err != nil {
				return err
			}
		}

		owner, err := st.UserByID(ctx, current.UserID)
		if err != nil {
			return err
		}
		owner.Credit = owner.Credit.Add(current.Price)
		if err := st.SaveUser(ctx, owner); err != nil {
			return err
		}
		current.Status = models.StatusRefunded
		return st.SaveTransaction(ctx, current)
	})
}

// GetTransaction returns a transaction visible to its owner or an admin.
func (s *Service) GetTransaction(ctx context.Context, user *models.User, id uint) (*models.Transaction, error) {
	tx, err := s.store.TransactionByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: transaction %d", store.ErrNotFound, id)
	}
	if !user.IsAdmin() && tx.UserID != user.ID {
		return nil, fmt.Errorf("%w: only admins can view other users' transactions", store.ErrForbidden)
	}
	return tx, nil
}

// ListTransactions lists the caller's transactions, or every user's when
// an admin asks with showOwn=false. An optional status filters exactly.
func (s *Service) ListTransactions(ctx context.Context, user *models.User, showOwn bool, status string) ([]models.Transaction, error) {
	if status != "" && !models.KnownStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", store.ErrBadRequest, status)
	}

	filter := store.TransactionFilter{}
	if showOwn || !user.IsAdmin() {
		userID := user.ID
		filter.UserID = &userID
	}
	if status != "" {
		filter.Status = &status
	}
	return s.store.ListTransactions(ctx, filter)
}

// ownedTransaction loads a transaction and enforces exact ownership:
// completion, cancellation and refund are never available to admins on
// someone else's transaction.
func (s *Service) ownedTransaction(ctx context.Context, user *models.User, id uint) (*models.Transaction, error) {
	tx, err := s.store.TransactionByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: transaction %d", store.ErrNotFound, id)
	}
	if tx.UserID != user.ID {
		return nil, fmt.Errorf("%w: you can only act on your own transactions", store.ErrForbidden)
	}
	return tx, nil
}
