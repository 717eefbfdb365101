package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Pen is a sellable inventory unit. Deleted pens are excluded from
// listings and cannot be ordered, but stay retrievable by id so that
// historic transactions keep rendering.
type Pen struct {
	ID        uint            `json:"id" gorm:"primaryKey;autoIncrement"`
	Brand     string          `json:"brand" gorm:"type:text;not null"`
	Price     decimal.Decimal `json:"price" gorm:"type:numeric;not null"`
	Stock     int             `json:"stock" gorm:"not null"`
	Color     *string         `json:"color,omitempty" gorm:"type:text"`
	Length    *int            `json:"length,omitempty"`
	Deleted   bool            `json:"-" gorm:"not null;default:false;index"`
	CreatedAt time.Time       `json:"-" gorm:"autoCreateTime"`
	UpdatedAt time.Time       `json:"-" gorm:"autoUpdateTime"`
}
