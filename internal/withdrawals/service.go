package withdrawals

import (
	"context"
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sokoyetu/sokoyetu-backend/internal/wallet"
	"github.com/sokoyetu/sokoyetu-backend/pkg/db/models"
	"github.com/sokoyetu/sokoyetu-backend/pkg/enums"
	"github.com/sokoyetu/sokoyetu-backend/pkg/errors"
	"github.com/sokoyetu/sokoyetu-backend/pkg/logger"
	"github.com/sokoyetu/sokoyetu-backend/pkg/payment"
)

var validate = validator.New()

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the withdrawal service.
type ServiceParams struct {
	Logger   *logger.Logger
	DB       txRunner
	Repo     Repository
	Wallets  *wallet.Service
	Provider payment.Provider
	// MinimumAmount is the smallest withdrawal a vendor may request.
	MinimumAmount decimal.Decimal
}

// Service runs the withdrawal lifecycle: request, manual approve/reject, and
// payout execution against the provider. Funds leave the wallet at approval;
// a failed payout is compensated in full and the withdrawal reopens.
type Service struct {
	logg     *logger.Logger
	db       txRunner
	repo     Repository
	wallets  *wallet.Service
	provider payment.Provider
	minimum  decimal.Decimal
}

// NewService builds a withdrawal service.
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
	if params.Wallets == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if params.Provider == nil {
		return nil, fmt.Errorf("payout provider required")
	}
	if params.MinimumAmount.IsNegative() {
		return nil, fmt.Errorf("minimum amount must not be negative")
	}
	return &Service{
		logg:     params.Logger,
		db:       params.DB,
		repo:     params.Repo,
		wallets:  params.Wallets,
		provider: params.Provider,
		minimum:  params.MinimumAmount,
	}, nil
}

// RequestInput is a vendor's withdrawal request.
type RequestInput struct {
	VendorID    uuid.UUID       `validate:"required"`
	Amount      decimal.Decimal `validate:"required"`
	Currency    enums.Currency
	Method      string `validate:"required"`
	Destination string `validate:"required"`
}

// Request records a PENDING withdrawal. The balance check here is advisory,
// to reject obviously unfundable requests early; the binding check happens at
// approval under the wallet lock.
func (s *Service) Request(ctx context.Context, input RequestInput) (*models.Withdrawal, error) {
	if err := validate.Struct(input); err != nil {
		return nil, errors.Wrap(errors.CodeValidation, err, "invalid withdrawal request")
	}
	if !input.Amount.IsPositive() {
		return nil, errors.New(errors.CodeInvalidAmount, "withdrawal amount must be positive")
	}
	if input.Amount.LessThan(s.minimum) {
		return nil, errors.New(errors.CodeValidation,
			fmt.Sprintf("withdrawal amount %s below minimum %s", input.Amount, s.minimum))
	}

	vendorWallet, err := s.wallets.EnsureWallet(ctx, input.VendorID, input.Currency)
	if err != nil {
		return nil, err
	}
	if input.Amount.GreaterThan(vendorWallet.Balance) {
		return nil, errors.New(errors.CodeInsufficient, "withdrawal amount exceeds wallet balance")
	}

	currency := input.Currency
	if !currency.IsValid() {
		currency = vendorWallet.Currency
	}
	withdrawal := &models.Withdrawal{
		ID:          uuid.New(),
		VendorID:    input.VendorID,
		Amount:      input.Amount,
		Currency:    currency,
		Method:      input.Method,
		Provider:    s.provider.Name(),
		Destination: input.Destination,
		Status:      enums.WithdrawalStatusPending,
	}
	if err := s.repo.Create(ctx, withdrawal); err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"withdrawal_id": withdrawal.ID.String(),
		"vendor_id":     input.VendorID.String(),
		"amount":        input.Amount.String(),
	}), "withdrawal requested")
	return withdrawal, nil
}

// Approve debits the wallet and marks the withdrawal APPROVED in one
// transaction. If the balance no longer covers the amount the whole operation
// rolls back and the withdrawal stays PENDING.
func (s *Service) Approve(ctx context.Context, withdrawalID, approverID uuid.UUID) (*models.Withdrawal, error) {
	var approved *models.Withdrawal
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		withdrawal, err := repo.LockByID(ctx, withdrawalID)
		if err != nil {
			return err
		}
		if withdrawal.Status != enums.WithdrawalStatusPending {
			return errors.New(errors.CodeStateConflict,
				fmt.Sprintf("withdrawal is %s, only pending withdrawals can be approved", withdrawal.Status))
		}

		vendorWallet, err := s.wallets.EnsureWallet(ctx, withdrawal.VendorID, withdrawal.Currency)
		if err != nil {
			return err
		}
		if _, err := s.wallets.DebitInTx(ctx, tx, wallet.DebitInput{
			WalletID:    vendorWallet.ID,
			Type:        enums.WalletTransactionTypePayout,
			Amount:      withdrawal.Amount,
			Reference:   withdrawal.ID.String(),
			Description: "withdrawal approved",
		}); err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := repo.Update(ctx, withdrawal.ID, map[string]any{
			"status":      enums.WithdrawalStatusApproved,
			"approver_id": approverID,
			"approved_at": now,
		}); err != nil {
			return err
		}
		withdrawal.Status = enums.WithdrawalStatusApproved
		withdrawal.ApproverID = &approverID
		withdrawal.ApprovedAt = &now
		approved = withdrawal
		return nil
	})
	if err != nil {
		return nil, err
	}
	return approved, nil
}

// Reject closes a PENDING withdrawal without touching the ledger.
func (s *Service) Reject(ctx context.Context, withdrawalID uuid.UUID, reason string) error {
	if reason == "" {
		return errors.New(errors.CodeValidation, "rejections require a reason")
	}
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		withdrawal, err := repo.LockByID(ctx, withdrawalID)
		if err != nil {
			return err
		}
		if withdrawal.Status != enums.WithdrawalStatusPending {
			return errors.New(errors.CodeStateConflict,
				fmt.Sprintf("withdrawal is %s, only pending withdrawals can be rejected", withdrawal.Status))
		}
		return repo.Update(ctx, withdrawal.ID, map[string]any{
			"status":        enums.WithdrawalStatusRejected,
			"reject_reason": reason,
			"rejected_at":   time.Now().UTC(),
		})
	})
}

// Execute sends an APPROVED withdrawal to the payout provider. On success it
// records a SUCCESS payout log. On failure it records a FAILED log, credits
// the debited amount back, and reopens the withdrawal as PENDING so it can be
// re-approved once the provider recovers; the vendor is never left debited
// with no money in flight.
func (s *Service) Execute(ctx context.Context, withdrawalID uuid.UUID) (*models.PayoutLog, error) {
	withdrawal, err := s.repo.FindByID(ctx, withdrawalID)
	if err != nil {
		return nil, err
	}
	if withdrawal.Status != enums.WithdrawalStatusApproved {
		return nil, errors.New(errors.CodeStateConflict,
			fmt.Sprintf("withdrawal is %s, only approved withdrawals can be executed", withdrawal.Status))
	}
	if _, err := s.repo.FindSuccessfulPayout(ctx, withdrawal.ID); err == nil {
		return nil, errors.New(errors.CodeStateConflict, "withdrawal already paid out")
	} else if !stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	resp, providerErr := s.provider.Payout(ctx, payment.PayoutRequest{
		WithdrawalID: withdrawal.ID.String(),
		Amount:       withdrawal.Amount,
		Currency:     withdrawal.Currency,
		Destination:  withdrawal.Destination,
		Description:  "vendor withdrawal " + withdrawal.ID.String(),
	})
	if providerErr == nil && resp != nil && resp.Status == enums.PayoutStatusSuccess {
		log := &models.PayoutLog{
			ID:            uuid.New(),
			WithdrawalID:  withdrawal.ID,
			VendorID:      withdrawal.VendorID,
			Provider:      s.provider.Name(),
			Amount:        withdrawal.Amount,
			Currency:      withdrawal.Currency,
			Destination:   withdrawal.Destination,
			ProviderTxRef: resp.ProviderTxRef,
			Status:        enums.PayoutStatusSuccess,
		}
		if err := s.repo.CreatePayoutLog(ctx, log); err != nil {
			return nil, err
		}
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"withdrawal_id":   withdrawal.ID.String(),
			"provider_tx_ref": resp.ProviderTxRef,
		}), "payout executed")
		return log, nil
	}

	reason := "provider reported failure"
	if providerErr != nil {
		reason = providerErr.Error()
	}
	if err := s.compensate(ctx, withdrawal, reason); err != nil {
		return nil, err
	}
	return nil, errors.New(errors.CodeProviderFailure, "payout failed: "+reason)
}

// compensate logs the failed attempt, restores the debited amount, and
// reopens the withdrawal, all in one transaction.
func (s *Service) compensate(ctx context.Context, withdrawal *models.Withdrawal, reason string) error {
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		log := &models.PayoutLog{
			ID:            uuid.New(),
			WithdrawalID:  withdrawal.ID,
			VendorID:      withdrawal.VendorID,
			Provider:      s.provider.Name(),
			Amount:        withdrawal.Amount,
			Currency:      withdrawal.Currency,
			Destination:   withdrawal.Destination,
			Status:        enums.PayoutStatusFailed,
			FailureReason: &reason,
		}
		if err := repo.CreatePayoutLog(ctx, log); err != nil {
			return err
		}

		vendorWallet, err := s.wallets.EnsureWallet(ctx, withdrawal.VendorID, withdrawal.Currency)
		if err != nil {
			return err
		}
		if _, err := s.wallets.CreditInTx(ctx, tx, wallet.CreditInput{
			WalletID:    vendorWallet.ID,
			Type:        enums.WalletTransactionTypeRefund,
			Amount:      withdrawal.Amount,
			Reference:   withdrawal.ID.String(),
			Description: "payout failed, withdrawal refunded",
		}); err != nil {
			return err
		}

		if err := repo.Update(ctx, withdrawal.ID, map[string]any{
			"status":      enums.WithdrawalStatusPending,
			"approver_id": nil,
			"approved_at": nil,
		}); err != nil {
			return err
		}

		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"withdrawal_id": withdrawal.ID.String(),
			"vendor_id":     withdrawal.VendorID.String(),
			"reason":        reason,
		}), "payout failed, wallet refunded")
		return nil
	})
}

// Find returns one withdrawal.
func (s *Service) Find(ctx context.Context, withdrawalID uuid.UUID) (*models.Withdrawal, error) {
	return s.repo.FindByID(ctx, withdrawalID)
}

// ListByVendor returns a vendor's withdrawals, newest first.
func (s *Service) ListByVendor(ctx context.Context, vendorID uuid.UUID) ([]models.Withdrawal, error) {
	return s.repo.ListByVendor(ctx, vendorID)
}

// PayoutHistory returns the payout attempts for one withdrawal in order.
func (s *Service) PayoutHistory(ctx context.Context, withdrawalID uuid.UUID) ([]models.PayoutLog, error) {
	return s.repo.ListPayoutLogs(ctx, withdrawalID)
}
