package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sokoyetu/sokoyetu-backend/pkg/enums"
)

// Vendor carries the subset of vendor data the settlement core reads: the
// business model and the commission rate in force for new sales.
type Vendor struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         uuid.UUID           `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Name           string              `gorm:"column:name;not null"`
	BusinessModel  enums.BusinessModel `gorm:"column:business_model;type:business_model;not null;default:'commission'"`
	CommissionRate decimal.Decimal     `gorm:"column:commission_rate;type:numeric(6,4);not null;default:0"`
	Currency       enums.Currency      `gorm:"column:currency;type:text;not null;default:'KES'"`
	Active         bool                `gorm:"column:active;not null;default:true"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
