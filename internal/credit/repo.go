package credit

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sokoyetu/sokoyetu-backend/pkg/db/models"
)

// Repository manages persistence for credit limits and the credit log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, limit *models.CreditLimit) error
	FindByUser(ctx context.Context, userID uuid.UUID) (*models.CreditLimit, error)
	LockByUser(ctx context.Context, userID uuid.UUID) (*models.CreditLimit, error)
	UpdateUsage(ctx context.Context, id uuid.UUID, usage decimal.Decimal) error
	CreateTransaction(ctx context.Context, txn *models.CreditTransaction) error
	ListTransactions(ctx context.Context, userID uuid.UUID) ([]models.CreditTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a credit repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, limit *models.CreditLimit) error {
	return r.db.WithContext(ctx).Create(limit).Error
}

func (r *repository) FindByUser(ctx context.Context, userID uuid.UUID) (*models.CreditLimit, error) {
	var limit models.CreditLimit
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&limit).Error; err != nil {
		return nil, err
	}
	return &limit, nil
}

// LockByUser loads the credit limit under a row-level lock so concurrent uses
// and repayments for one user serialize.
func (r *repository) LockByUser(ctx context.Context, userID uuid.UUID) (*models.CreditLimit, error) {
	query := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var limit models.CreditLimit
	if err := query.Where("user_id = ?", userID).First(&limit).Error; err != nil {
		return nil, err
	}
	return &limit, nil
}

func (r *repository) UpdateUsage(ctx context.Context, id uuid.UUID, usage decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.CreditLimit{}).
		Where("id = ?", id).
		Update("current_usage", usage).Error
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.CreditTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) ListTransactions(ctx context.Context, userID uuid.UUID) ([]models.CreditTransaction, error) {
	var txns []models.CreditTransaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&txns).Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}
