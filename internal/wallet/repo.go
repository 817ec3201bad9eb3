package wallet

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sokoyetu/sokoyetu-backend/pkg/db/models"
	"github.com/sokoyetu/sokoyetu-backend/pkg/enums"
	"github.com/sokoyetu/sokoyetu-backend/pkg/pagination"
)

// Repository manages persistence for wallets and their append-only
// transaction log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Wallet, error)
	FindByVendor(ctx context.Context, vendorID uuid.UUID) (*models.Wallet, error)
	FindOrCreateByVendor(ctx context.Context, vendorID uuid.UUID, currency enums.Currency) (*models.Wallet, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.Wallet, error)
	CreateTransaction(ctx context.Context, txn *models.WalletTransaction) error
	UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error
	SetAuditHold(ctx context.Context, id uuid.UUID, hold bool) error
	SumTransactions(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, error)
	FindEarningForOrderItem(ctx context.Context, orderItemID uuid.UUID) (*models.WalletTransaction, error)
	ListWallets(ctx context.Context, limit int, offset int) ([]models.Wallet, error)
	ListTransactions(ctx context.Context, walletID uuid.UUID, params pagination.Params) ([]models.WalletTransaction, *pagination.Cursor, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a wallet repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) FindByVendor(ctx context.Context, vendorID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).Where("vendor_id = ?", vendorID).First(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) FindOrCreateByVendor(ctx context.Context, vendorID uuid.UUID, currency enums.Currency) (*models.Wallet, error) {
	wallet, err := r.FindByVendor(ctx, vendorID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	created := &models.Wallet{
		ID:       uuid.New(),
		VendorID: vendorID,
		Balance:  decimal.Zero,
		Currency: currency,
	}
	if err := r.db.WithContext(ctx).Create(created).Error; err != nil {
		return nil, err
	}
	return created, nil
}

// LockByID loads the wallet row under a row-level lock, serializing all
// balance mutations for one wallet without blocking other wallets. The
// sqlite driver used in tests does not support FOR UPDATE; its transactions
// are serialized by the engine anyway.
func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
	query := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var wallet models.Wallet
	if err := query.Where("id = ?", id).First(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.WalletTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("id = ?", id).
		Update("balance", balance).Error
}

func (r *repository) SetAuditHold(ctx context.Context, id uuid.UUID, hold bool) error {
	return r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("id = ?", id).
		Update("audit_hold", hold).Error
}

func (r *repository) SumTransactions(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Model(&models.WalletTransaction{}).
		Select("SUM(amount)").
		Where("wallet_id = ?", walletID).
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

func (r *repository) FindEarningForOrderItem(ctx context.Context, orderItemID uuid.UUID) (*models.WalletTransaction, error) {
	var txn models.WalletTransaction
	err := r.db.WithContext(ctx).
		Where("type = ? AND order_item_id = ?", enums.WalletTransactionTypeEarning, orderItemID).
		First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repository) ListWallets(ctx context.Context, limit int, offset int) ([]models.Wallet, error) {
	var wallets []models.Wallet
	query := r.db.WithContext(ctx).Order("created_at ASC, id ASC").Offset(offset)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&wallets).Error; err != nil {
		return nil, err
	}
	return wallets, nil
}

func (r *repository) ListTransactions(ctx context.Context, walletID uuid.UUID, params pagination.Params) ([]models.WalletTransaction, *pagination.Cursor, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, nil, err
	}

	limit := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var txns []models.WalletTransaction
	if err := query.Find(&txns).Error; err != nil {
		return nil, nil, err
	}

	var next *pagination.Cursor
	if len(txns) > limit {
		txns = txns[:limit]
		last := txns[len(txns)-1]
		next = &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return txns, next, nil
}
