package credit

import (
	"context"
	stdErrors "errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sokoyetu/sokoyetu-backend/pkg/db/models"
	"github.com/sokoyetu/sokoyetu-backend/pkg/enums"
	"github.com/sokoyetu/sokoyetu-backend/pkg/errors"
	"github.com/sokoyetu/sokoyetu-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the credit service.
type ServiceParams struct {
	Logger *logger.Logger
	DB     txRunner
	Repo   Repository
	// DefaultLimit is granted to every approved applicant.
	DefaultLimit decimal.Decimal
}

// Service manages buy-now-pay-later facilities: one limit per user with
// usage moving up on purchases and down on repayments, never outside
// [0, max_limit].
type Service struct {
	logg         *logger.Logger
	db           txRunner
	repo         Repository
	defaultLimit decimal.Decimal
}

// NewService builds a credit service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("repo required")
	}
	if !params.DefaultLimit.IsPositive() {
		return nil, fmt.Errorf("default limit must be positive")
	}
	return &Service{
		logg:         params.Logger,
		db:           params.DB,
		repo:         params.Repo,
		defaultLimit: params.DefaultLimit,
	}, nil
}

// Apply provisions the user's facility with the default limit. Calling it
// again returns the existing facility untouched.
func (s *Service) Apply(ctx context.Context, userID uuid.UUID) (*models.CreditLimit, error) {
	if userID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "user id is required")
	}
	existing, err := s.repo.FindByUser(ctx, userID)
	if err == nil {
		return existing, nil
	}
	if !stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	limit := &models.CreditLimit{
		ID:           uuid.New(),
		UserID:       userID,
		MaxLimit:     s.defaultLimit,
		CurrentUsage: decimal.Zero,
		Currency:     enums.CurrencyKES,
		Eligible:     true,
		Active:       true,
	}
	if err := s.repo.Create(ctx, limit); err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"user_id":   userID.String(),
		"max_limit": limit.MaxLimit.String(),
	}), "credit facility opened")
	return limit, nil
}

// Use draws amount against the facility for a purchase. The exact remaining
// amount is allowed; one cent over is not.
func (s *Service) Use(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, orderRef string) (*models.CreditTransaction, error) {
	if !amount.IsPositive() {
		return nil, errors.New(errors.CodeInvalidAmount, "credit usage amount must be positive")
	}

	var txn *models.CreditTransaction
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		limit, err := repo.LockByUser(ctx, userID)
		if err != nil {
			return err
		}
		if !limit.Active || !limit.Eligible {
			return errors.New(errors.CodeNotEligible, "credit facility is not available")
		}
		if amount.GreaterThan(limit.Available()) {
			return errors.New(errors.CodeInsufficientCredit,
				fmt.Sprintf("requested %s exceeds available credit %s", amount, limit.Available()))
		}

		if err := repo.UpdateUsage(ctx, limit.ID, limit.CurrentUsage.Add(amount)); err != nil {
			return err
		}
		txn = &models.CreditTransaction{
			ID:        uuid.New(),
			UserID:    userID,
			Type:      enums.CreditTransactionTypeUsage,
			Amount:    amount,
			Reference: orderRef,
		}
		return repo.CreateTransaction(ctx, txn)
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// Repay reduces usage by amount, capped at zero: overpaying clears the debt
// and discards the surplus rather than going negative.
func (s *Service) Repay(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*models.CreditTransaction, error) {
	if !amount.IsPositive() {
		return nil, errors.New(errors.CodeInvalidAmount, "repayment amount must be positive")
	}

	var txn *models.CreditTransaction
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		limit, err := repo.LockByUser(ctx, userID)
		if err != nil {
			return err
		}

		remaining := limit.CurrentUsage.Sub(amount)
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}
		if err := repo.UpdateUsage(ctx, limit.ID, remaining); err != nil {
			return err
		}
		txn = &models.CreditTransaction{
			ID:     uuid.New(),
			UserID: userID,
			Type:   enums.CreditTransactionTypeRepayment,
			Amount: amount,
		}
		return repo.CreateTransaction(ctx, txn)
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// Facility returns the user's credit limit.
func (s *Service) Facility(ctx context.Context, userID uuid.UUID) (*models.CreditLimit, error) {
	return s.repo.FindByUser(ctx, userID)
}

// History returns the user's credit log, newest first.
func (s *Service) History(ctx context.Context, userID uuid.UUID) ([]models.CreditTransaction, error) {
	return s.repo.ListTransactions(ctx, userID)
}
