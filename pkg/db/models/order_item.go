package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sokoyetu/sokoyetu-backend/pkg/enums"
)

// OrderItem is the snapshot of one purchased item within an order. Fees and
// net earning are computed once at pricing time and persisted so later
// commission-rate changes cannot drift historical settlement amounts.
// Settlement is marked implicitly: an earning wallet transaction referencing
// the item id means the item is settled.
type OrderItem struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID             `gorm:"column:order_id;type:uuid;not null;index"`
	VendorID    uuid.UUID             `gorm:"column:vendor_id;type:uuid;not null;index"`
	ProductName string                `gorm:"column:product_name;not null"`
	UnitPrice   decimal.Decimal       `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Qty         int                   `gorm:"column:qty;not null"`
	Gross       decimal.Decimal       `gorm:"column:gross;type:numeric(12,2);not null"`
	PlatformFee decimal.Decimal       `gorm:"column:platform_fee;type:numeric(12,2);not null;default:0"`
	GatewayFee  decimal.Decimal       `gorm:"column:gateway_fee;type:numeric(12,2);not null;default:0"`
	NetEarning  decimal.Decimal       `gorm:"column:net_earning;type:numeric(12,2);not null;default:0"`
	Status      enums.OrderItemStatus `gorm:"column:status;type:order_item_status;not null;default:'pending'"`
	DeliveredAt *time.Time            `gorm:"column:delivered_at"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
