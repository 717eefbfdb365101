package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Roles form a closed set; there is no hierarchy beyond admin > customer.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// User represents a shop account. Credit is only mutated by admin
// credit-set and by transaction completion/refund.
type User struct {
	ID          uint            `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string          `json:"username" gorm:"type:text;uniqueIndex;not null"`
	SecretHash  string          `json:"-" gorm:"type:text;not null"`
	Role        string          `json:"role" gorm:"type:text;not null;default:customer"`
	Credit      decimal.Decimal `json:"credit" gorm:"type:numeric;not null;default:0"`
	IsSuperuser bool            `json:"-" gorm:"not null;default:false"`
	CreatedAt   time.Time       `json:"-" gorm:"autoCreateTime"`
	UpdatedAt   time.Time       `json:"-" gorm:"autoUpdateTime"`

	Sessions     []Session     `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Transactions []Transaction `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }
