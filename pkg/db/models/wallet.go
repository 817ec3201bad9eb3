package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sokoyetu/sokoyetu-backend/pkg/enums"
)

// Wallet holds the cached balance for one vendor. The balance is a projection
// over the append-only wallet_transactions log; it must equal the sum of all
// transaction amounts at any consistent read.
type Wallet struct {
	ID       uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID uuid.UUID       `gorm:"column:vendor_id;type:uuid;not null;uniqueIndex"`
	Balance  decimal.Decimal `gorm:"column:balance;type:numeric(12,2);not null;default:0"`
	Currency enums.Currency  `gorm:"column:currency;type:text;not null;default:'KES'"`
	// AuditHold blocks all writes after a ledger integrity violation until an
	// operator reconciles the wallet by hand.
	AuditHold bool      `gorm:"column:audit_hold;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
