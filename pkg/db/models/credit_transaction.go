package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sokoyetu/sokoyetu-backend/pkg/enums"
)

// CreditTransaction is one append-only entry in a user's credit log,
// mirroring the wallet ledger pattern.
type CreditTransaction struct {
	ID          uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID                   `gorm:"column:user_id;type:uuid;not null;index"`
	Type        enums.CreditTransactionType `gorm:"column:type;type:credit_transaction_type;not null"`
	Amount      decimal.Decimal             `gorm:"column:amount;type:numeric(12,2);not null"`
	Reference   string                      `gorm:"column:reference"`
	Description string                      `gorm:"column:description"`
	CreatedAt   time.Time                   `gorm:"column:created_at;autoCreateTime"`
}
