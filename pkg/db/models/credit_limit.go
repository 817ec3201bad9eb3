package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sokoyetu/sokoyetu-backend/pkg/enums"
)

// CreditLimit tracks one user's buy-now-pay-later facility. The invariant
// 0 <= current_usage <= max_limit holds after every operation.
type CreditLimit struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID       `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	MaxLimit     decimal.Decimal `gorm:"column:max_limit;type:numeric(12,2);not null"`
	CurrentUsage decimal.Decimal `gorm:"column:current_usage;type:numeric(12,2);not null;default:0"`
	Currency     enums.Currency  `gorm:"column:currency;type:text;not null;default:'KES'"`
	Eligible     bool            `gorm:"column:eligible;not null;default:true"`
	Active       bool            `gorm:"column:active;not null;default:true"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// Available returns the credit still spendable against the limit.
func (c CreditLimit) Available() decimal.Decimal {
	return c.MaxLimit.Sub(c.CurrentUsage)
}
