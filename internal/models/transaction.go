package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Transaction statuses. Allowed transitions: requested -> completed,
// requested -> cancelled, completed -> refunded. Cancelled and refunded
// are terminal.
const (
	StatusRequested = "requested"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusRefunded  = "refunded"
)

// KnownStatus reports whether s is one of the four transaction statuses.
func KnownStatus(s string) bool {
	switch s {
	case StatusRequested, StatusCompleted, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// OrderLine is one entry of a transaction's order snapshot.
type OrderLine struct {
	PenID uint `json:"penId"`
	Count int  `json:"count"`
}

// Transaction is a recorded purchase order. Price stores the discounted
// total computed at request time; refunds credit back exactly this amount.
type Transaction struct {
	ID        uint            `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID    uint            `json:"userId" gorm:"not null;index"`
	Price     decimal.Decimal `json:"price" gorm:"type:numeric;not null"`
	Order     datatypes.JSON  `json:"order" gorm:"type:jsonb;not null"`
	Status    string          `json:"status" gorm:"type:text;not null;default:requested;index"`
	CreatedAt time.Time       `json:"timestamp"`

	User User `json:"-" gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID"`
}

// Lines decodes the order snapshot.
func (t *Transaction) Lines() ([]OrderLine, error) {
	var lines []OrderLine
	if err := json.Unmarshal(t.Order, &lines); err != nil {
		return nil, err
	}
	return lines, nil
}

// SetLines stores the order snapshot.
func (t *Transaction) SetLines(lines []OrderLine) error {
	raw, err := json.Marshal(lines)
	if err != nil {
		return err
	}
	t.Order = datatypes.JSON(raw)
	return nil
}
