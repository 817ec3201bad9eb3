package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sokoyetu/sokoyetu-backend/pkg/db/models"
	"github.com/sokoyetu/sokoyetu-backend/pkg/enums"
)

// SettleableItem is the projection the engine needs per order item: the item
// id to settle against, the vendor owed, and the precomputed net earning.
type SettleableItem struct {
	ItemID     uuid.UUID       `gorm:"column:item_id"`
	VendorID   uuid.UUID       `gorm:"column:vendor_id"`
	NetEarning decimal.Decimal `gorm:"column:net_earning"`
	Currency   enums.Currency  `gorm:"column:currency"`
}

// Repository exposes the settlement engine's queries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// ListSettleableItems returns delivered, unsettled order items for active
	// commission vendors whose delivery falls inside [from, to), ordered by
	// vendor id then item id so runs are deterministic.
	ListSettleableItems(ctx context.Context, from, to time.Time) ([]SettleableItem, error)
	CreateRun(ctx context.Context, run *models.SettlementRun) error
	UpdateRun(ctx context.Context, run *models.SettlementRun) error
	FindRun(ctx context.Context, id uuid.UUID) (*models.SettlementRun, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a settlement repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListSettleableItems(ctx context.Context, from, to time.Time) ([]SettleableItem, error) {
	var items []SettleableItem
	err := r.db.WithContext(ctx).
		Table("order_items").
		Select("order_items.id AS item_id, order_items.vendor_id AS vendor_id, order_items.net_earning AS net_earning, vendors.currency AS currency").
		Joins("JOIN vendors ON vendors.id = order_items.vendor_id").
		Joins("LEFT JOIN wallet_transactions earned ON earned.order_item_id = order_items.id AND earned.type = ?", enums.WalletTransactionTypeEarning).
		Where("order_items.status = ?", enums.OrderItemStatusDelivered).
		Where("order_items.delivered_at >= ? AND order_items.delivered_at < ?", from, to).
		Where("vendors.business_model = ?", enums.BusinessModelCommission).
		Where("vendors.active = ?", true).
		Where("earned.id IS NULL").
		Order("order_items.vendor_id ASC, order_items.id ASC").
		Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) CreateRun(ctx context.Context, run *models.SettlementRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *repository) UpdateRun(ctx context.Context, run *models.SettlementRun) error {
	return r.db.WithContext(ctx).
		Model(&models.SettlementRun{}).
		Where("id = ?", run.ID).
		Updates(map[string]any{
			"status":          run.Status,
			"items_processed": run.ItemsProcessed,
			"items_credited":  run.ItemsCredited,
			"items_failed":    run.ItemsFailed,
			"total_credited":  run.TotalCredited,
			"finished_at":     run.FinishedAt,
		}).Error
}

func (r *repository) FindRun(ctx context.Context, id uuid.UUID) (*models.SettlementRun, error) {
	var run models.SettlementRun
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}
