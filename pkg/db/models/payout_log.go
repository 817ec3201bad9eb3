package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sokoyetu/sokoyetu-backend/pkg/enums"
)

// PayoutLog is the immutable audit record of one payout execution attempt
// against an external money-movement provider.
type PayoutLog struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	WithdrawalID  uuid.UUID          `gorm:"column:withdrawal_id;type:uuid;not null;index"`
	VendorID      uuid.UUID          `gorm:"column:vendor_id;type:uuid;not null;index"`
	Provider      string             `gorm:"column:provider;not null"`
	Amount        decimal.Decimal    `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency      enums.Currency     `gorm:"column:currency;type:text;not null"`
	Destination   string             `gorm:"column:destination;not null"`
	ProviderTxRef string             `gorm:"column:provider_tx_ref"`
	Status        enums.PayoutStatus `gorm:"column:status;type:payout_status;not null;default:'pending'"`
	FailureReason *string            `gorm:"column:failure_reason"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
}
