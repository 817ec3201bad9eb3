package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sokoyetu/sokoyetu-backend/pkg/enums"
)

// Withdrawal is a vendor's request to move wallet funds out via a payout
// provider. The balance check at request time is advisory; the binding check
// happens atomically at approval, which also debits the wallet.
type Withdrawal struct {
	ID           uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID     uuid.UUID              `gorm:"column:vendor_id;type:uuid;not null;index"`
	Amount       decimal.Decimal        `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency     enums.Currency         `gorm:"column:currency;type:text;not null;default:'KES'"`
	Method       string                 `gorm:"column:method;not null"`
	Provider     string                 `gorm:"column:provider;not null"`
	Destination  string                 `gorm:"column:destination;not null"`
	Status       enums.WithdrawalStatus `gorm:"column:status;type:withdrawal_status;not null;default:'pending'"`
	RejectReason *string                `gorm:"column:reject_reason"`
	ApproverID   *uuid.UUID             `gorm:"column:approver_id;type:uuid"`
	ApprovedAt   *time.Time             `gorm:"column:approved_at"`
	RejectedAt   *time.Time             `gorm:"column:rejected_at"`
	CreatedAt    time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
