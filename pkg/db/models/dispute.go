package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sokoyetu/sokoyetu-backend/pkg/enums"
)

// Dispute records a buyer complaint against an order. At most one dispute per
// order (unique index). Resolved and refunded are terminal; the status guard
// makes refund resolution idempotent.
type Dispute struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID           `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	OrderItemID     uuid.UUID           `gorm:"column:order_item_id;type:uuid;not null"`
	Reason          string              `gorm:"column:reason;not null"`
	Status          enums.DisputeStatus `gorm:"column:status;type:dispute_status;not null;default:'open'"`
	ResolutionNotes *string             `gorm:"column:resolution_notes"`
	ResolverID      *uuid.UUID          `gorm:"column:resolver_id;type:uuid"`
	ResolvedAt      *time.Time          `gorm:"column:resolved_at"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
