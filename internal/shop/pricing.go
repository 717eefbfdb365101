package shop

import (
	"fmt"

	"github.com/shopspring/decimal"

	"shopen/internal/models"
	"shopen/internal/store"
)

// Subtotal sums price x count over the order lines, rejecting any line
// whose count exceeds the referenced pen's live stock.
func Subtotal(lines []models.OrderLine, pens map[uint]*models.Pen) (decimal.Decimal, error) {
	subtotal := decimal.Zero
	for _, line := range lines {
		pen, ok := pens[line.PenID]
		if !ok {
			return decimal.Zero, fmt.Errorf("%w: pen %d", store.ErrNotFound, line.PenID)
		}
		if pen.Stock < line.Count {
			return decimal.Zero, fmt.Errorf("%w: pen %d has %d in stock, %d requested",
				store.ErrInsufficientStock, pen.ID, pen.Stock, line.Count)
		}
		subtotal = subtotal.Add(pen.Price.Mul(decimal.NewFromInt(int64(line.Count))))
	}
	return subtotal, nil
}

// Discount applies exactly one discount tier to the subtotal: the admin
// rate for admins, else the wholesale rate once the subtotal exceeds the
// threshold. Customers below the threshold pay the subtotal unchanged.
func Discount(subtotal decimal.Decimal, role string, cfg Config) decimal.Decimal {
	switch {
	case role == models.RoleAdmin:
		return subtotal.Mul(decimal.NewFromInt(1).Sub(cfg.AdminDiscount))
	case subtotal.GreaterThan(cfg.WholesaleThreshold):
		return subtotal.Mul(decimal.NewFromInt(1).Sub(cfg.WholesaleDiscount))
	default:
		return subtotal
	}
}

// ComputeTotal returns the discounted order total.
func ComputeTotal(lines []models.OrderLine, pens map[uint]*models.Pen, role string, cfg Config) (decimal.Decimal, error) {
	subtotal, err := Subtotal(lines, pens)
	if err != nil {
		return decimal.Zero, err
	}
	return Discount(subtotal, role, cfg), nil
}
