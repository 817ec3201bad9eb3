package withdrawals

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sokoyetu/sokoyetu-backend/pkg/db/models"
	"github.com/sokoyetu/sokoyetu-backend/pkg/enums"
)

// Repository manages persistence for withdrawals and payout logs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, withdrawal *models.Withdrawal) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) error
	ListByVendor(ctx context.Context, vendorID uuid.UUID) ([]models.Withdrawal, error)
	CreatePayoutLog(ctx context.Context, log *models.PayoutLog) error
	FindSuccessfulPayout(ctx context.Context, withdrawalID uuid.UUID) (*models.PayoutLog, error)
	ListPayoutLogs(ctx context.Context, withdrawalID uuid.UUID) ([]models.PayoutLog, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a withdrawals repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, withdrawal *models.Withdrawal) error {
	return r.db.WithContext(ctx).Create(withdrawal).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error) {
	var withdrawal models.Withdrawal
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&withdrawal).Error; err != nil {
		return nil, err
	}
	return &withdrawal, nil
}

// LockByID loads the withdrawal under a row-level lock so approval, rejection
// and execution serialize per withdrawal.
func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error) {
	query := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var withdrawal models.Withdrawal
	if err := query.Where("id = ?", id).First(&withdrawal).Error; err != nil {
		return nil, err
	}
	return &withdrawal, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Withdrawal{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repository) ListByVendor(ctx context.Context, vendorID uuid.UUID) ([]models.Withdrawal, error) {
	var withdrawals []models.Withdrawal
	err := r.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Order("created_at DESC, id DESC").
		Find(&withdrawals).Error
	if err != nil {
		return nil, err
	}
	return withdrawals, nil
}

func (r *repository) CreatePayoutLog(ctx context.Context, log *models.PayoutLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *repository) FindSuccessfulPayout(ctx context.Context, withdrawalID uuid.UUID) (*models.PayoutLog, error) {
	var log models.PayoutLog
	err := r.db.WithContext(ctx).
		Where("withdrawal_id = ? AND status = ?", withdrawalID, enums.PayoutStatusSuccess).
		First(&log).Error
	if err != nil {
		return nil, err
	}
	return &log, nil
}

func (r *repository) ListPayoutLogs(ctx context.Context, withdrawalID uuid.UUID) ([]models.PayoutLog, error) {
	var logs []models.PayoutLog
	err := r.db.WithContext(ctx).
		Where("withdrawal_id = ?", withdrawalID).
		Order("created_at ASC").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
