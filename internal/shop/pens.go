package shop

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"shopen/internal/models"
	"shopen/internal/store"
)

// ListPens returns the non-deleted pens matching the filter.
func (s *Service) ListPens(ctx context.Context, filter store.PenFilter) ([]models.Pen, error) {
	return s.store.ListPens(ctx, filter)
}

// GetPen returns a pen by id. Soft-deleted pens stay retrievable here so
// historic transactions can still be displayed.
func (s *Service) GetPen(ctx context.Context, id uint) (*models.Pen, error) {
	pen, err := s.store.PenByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: pen %d", store.ErrNotFound, id)
	}
	return pen, nil
}

// AddPen inserts a new pen. Admins only.
func (s *Service) AddPen(ctx context.Context, acting *models.User, brand string, price decimal.Decimal, stock int, color *string, length *int) (*models.Pen, error) {
	if !acting.IsAdmin() {
		return nil, fmt.Errorf("%w: only admins can add pens", store.ErrForbidden)
	}
	if brand == "" {
		return nil, fmt.Errorf("%w: brand is required", store.ErrBadRequest)
	}
	if price.IsNegative() {
		return nil, fmt.Errorf("%w: price must be non-negative", store.ErrBadRequest)
	}
	if stock < 0 {
		return nil, fmt.Errorf("%w: stock must be non-negative", store.ErrBadRequest)
	}
	if length != nil && *length < 0 {
		return nil, fmt.Errorf("%w: length must be non-negative", store.ErrBadRequest)
	}

	pen := models.Pen{Brand: brand, Price: price, Stock: stock, Color: color, Length: length}
	if err := s.store.CreatePen(ctx, &pen); err != nil {
		return nil, err
	}
	return &pen, nil
}

// RestockPen adjusts a pen's stock by delta. Admins only; the resulting
// stock must not go negative.
func (s *Service) RestockPen(ctx context.Context, acting *models.User, id uint, delta int) (*models.Pen, error) {
	if !acting.IsAdmin() {
		return nil, fmt.Errorf("%w: only admins can restock pens", store.ErrForbidden)
	}
	pen, err := s.GetPen(ctx, id)
	if err != nil {
		return nil, err
	}
	if pen.Stock+delta < 0 {
		return nil, fmt.Errorf("%w: stock cannot go negative", store.ErrBadRequest)
	}
	pen.Stock += delta
	if err := s.store.SavePen(ctx, pen); err != nil {
		return nil, err
	}
	return pen, nil
}

// DeletePen soft-deletes a pen and zeroes its stock. Admins only.
func (s *Service) DeletePen(ctx context.Context, acting *models.User, id uint) error {
	if !acting.IsAdmin() {
		return fmt.Errorf("%w: only admins can delete pens", store.ErrForbidden)
	}
	pen, err := s.GetPen(ctx, id)
	if err != nil {
		return err
	}
	pen.Deleted = true
	pen.Stock = 0
	return s.store.SavePen(ctx, pen)
}
