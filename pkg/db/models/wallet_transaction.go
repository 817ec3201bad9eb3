package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sokoyetu/sokoyetu-backend/pkg/enums"
)

// WalletTransaction is one immutable, signed entry in a wallet's ledger.
// Entries are never updated or deleted; corrections are new adjustment rows.
// For earning entries OrderItemID is the idempotency key and carries a partial
// unique index so the storage layer rejects double settlement.
type WalletTransaction struct {
	ID          uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	WalletID    uuid.UUID                   `gorm:"column:wallet_id;type:uuid;not null;index"`
	Type        enums.WalletTransactionType `gorm:"column:type;type:wallet_transaction_type;not null"`
	Amount      decimal.Decimal             `gorm:"column:amount;type:numeric(12,2);not null"`
	OrderItemID *uuid.UUID                  `gorm:"column:order_item_id;type:uuid"`
	Reference   string                      `gorm:"column:reference"`
	FXRate      *decimal.Decimal            `gorm:"column:fx_rate;type:numeric(12,6)"`
	Description string                      `gorm:"column:description"`
	CreatedAt   time.Time                   `gorm:"column:created_at;autoCreateTime"`
}
