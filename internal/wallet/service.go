package wallet

import (
	"context"
	stdErrors "errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sokoyetu/sokoyetu-backend/pkg/db"
	"github.com/sokoyetu/sokoyetu-backend/pkg/db/models"
	"github.com/sokoyetu/sokoyetu-backend/pkg/enums"
	"github.com/sokoyetu/sokoyetu-backend/pkg/errors"
	"github.com/sokoyetu/sokoyetu-backend/pkg/logger"
	"github.com/sokoyetu/sokoyetu-backend/pkg/pagination"
)

// earningUniqueIndex is the partial unique index guarding settlement
// idempotency at the storage layer.
const earningUniqueIndex = "uq_wallet_transactions_earning_item"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the wallet service.
type ServiceParams struct {
	Logger *logger.Logger
	DB     txRunner
	Repo   Repository
}

// Service is the single entry point for wallet balance mutation. Every
// component that moves vendor money (settlement, withdrawals, disputes)
// funnels through Credit/Debit/Adjust; nothing writes balances directly.
type Service struct {
	logg *logger.Logger
	db   txRunner
	repo Repository
}

// NewService builds a wallet service.
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
	return &Service{logg: params.Logger, db: params.DB, repo: params.Repo}, nil
}

// CreditInput describes one credit entry. Amount is always positive; earnings
// must carry the order item id as the idempotency key.
type CreditInput struct {
	WalletID    uuid.UUID
	Type        enums.WalletTransactionType
	Amount      decimal.Decimal
	OrderItemID *uuid.UUID
	Reference   string
	Description string
	FXRate      *decimal.Decimal
}

// DebitInput describes one debit entry. Amount is the positive magnitude; the
// ledger stores it negated. Payout and payment entries are subject to the
// balance sufficiency check; refund reversals are not.
type DebitInput struct {
	WalletID    uuid.UUID
	Type        enums.WalletTransactionType
	Amount      decimal.Decimal
	OrderItemID *uuid.UUID
	Reference   string
	Description string
}

// EnsureWallet lazily creates the vendor's wallet on first need.
func (s *Service) EnsureWallet(ctx context.Context, vendorID uuid.UUID, currency enums.Currency) (*models.Wallet, error) {
	if vendorID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "vendor id is required")
	}
	if !currency.IsValid() {
		currency = enums.CurrencyKES
	}
	return s.repo.FindOrCreateByVendor(ctx, vendorID, currency)
}

// Credit appends a positive ledger entry and updates the cached balance in
// one transaction.
func (s *Service) Credit(ctx context.Context, input CreditInput) (*models.WalletTransaction, error) {
	var txn *models.WalletTransaction
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		txn, err = s.CreditInTx(ctx, tx, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// CreditInTx is Credit composed into a caller-owned transaction; the
// settlement engine and dispute handler use it to keep the idempotency check
// and the balance write atomic with their own rows.
func (s *Service) CreditInTx(ctx context.Context, tx *gorm.DB, input CreditInput) (*models.WalletTransaction, error) {
	if !input.Type.IsCredit() {
		return nil, errors.New(errors.CodeValidation, fmt.Sprintf("type %q is not a credit entry", input.Type))
	}
	if !input.Amount.IsPositive() {
		return nil, errors.New(errors.CodeInvalidAmount, "credit amount must be positive")
	}
	if input.Type == enums.WalletTransactionTypeEarning && input.OrderItemID == nil {
		return nil, errors.New(errors.CodeValidation, "earnings require an order item reference")
	}

	repo := s.repo.WithTx(tx)
	wallet, err := repo.LockByID(ctx, input.WalletID)
	if err != nil {
		return nil, err
	}
	if wallet.AuditHold {
		return nil, errors.New(errors.CodeLedgerIntegrity, "wallet is on audit hold")
	}

	if input.Type == enums.WalletTransactionTypeEarning {
		// Idempotency check under the wallet lock; the partial unique index
		// backs it up at the storage layer.
		if _, err := repo.FindEarningForOrderItem(ctx, *input.OrderItemID); err == nil {
			return nil, errors.New(errors.CodeAlreadySettled, "order item already settled")
		} else if !stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	txn := &models.WalletTransaction{
		ID:          uuid.New(),
		WalletID:    wallet.ID,
		Type:        input.Type,
		Amount:      input.Amount,
		OrderItemID: input.OrderItemID,
		Reference:   input.Reference,
		FXRate:      input.FXRate,
		Description: input.Description,
	}
	if err := repo.CreateTransaction(ctx, txn); err != nil {
		if db.IsUniqueViolation(err, earningUniqueIndex) {
			return nil, errors.Wrap(errors.CodeAlreadySettled, err, "order item already settled")
		}
		return nil, err
	}
	if err := repo.UpdateBalance(ctx, wallet.ID, wallet.Balance.Add(input.Amount)); err != nil {
		return nil, err
	}
	return txn, nil
}

// Debit appends a negative ledger entry and updates the cached balance in one
// transaction.
func (s *Service) Debit(ctx context.Context, input DebitInput) (*models.WalletTransaction, error) {
	var txn *models.WalletTransaction
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		txn, err = s.DebitInTx(ctx, tx, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// DebitInTx is Debit composed into a caller-owned transaction.
func (s *Service) DebitInTx(ctx context.Context, tx *gorm.DB, input DebitInput) (*models.WalletTransaction, error) {
	isRefundReversal := input.Type == enums.WalletTransactionTypeRefund
	if !input.Type.IsDebit() && !isRefundReversal {
		return nil, errors.New(errors.CodeValidation, fmt.Sprintf("type %q is not a debit entry", input.Type))
	}
	if !input.Amount.IsPositive() {
		return nil, errors.New(errors.CodeInvalidAmount, "debit amount must be positive")
	}

	repo := s.repo.WithTx(tx)
	wallet, err := repo.LockByID(ctx, input.WalletID)
	if err != nil {
		return nil, err
	}
	if wallet.AuditHold {
		return nil, errors.New(errors.CodeLedgerIntegrity, "wallet is on audit hold")
	}
	if input.Type.IsDebit() && input.Amount.GreaterThan(wallet.Balance) {
		return nil, errors.New(errors.CodeInsufficient, "debit exceeds wallet balance")
	}

	txn := &models.WalletTransaction{
		ID:          uuid.New(),
		WalletID:    wallet.ID,
		Type:        input.Type,
		Amount:      input.Amount.Neg(),
		OrderItemID: input.OrderItemID,
		Reference:   input.Reference,
		Description: input.Description,
	}
	if err := repo.CreateTransaction(ctx, txn); err != nil {
		return nil, err
	}
	if err := repo.UpdateBalance(ctx, wallet.ID, wallet.Balance.Sub(input.Amount)); err != nil {
		return nil, err
	}
	return txn, nil
}

// Adjust appends a signed administrative correction. It bypasses the
// sufficiency check but demands a human-readable reason.
func (s *Service) Adjust(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, reason string) (*models.WalletTransaction, error) {
	if amount.IsZero() {
		return nil, errors.New(errors.CodeInvalidAmount, "adjustment amount must not be zero")
	}
	if reason == "" {
		return nil, errors.New(errors.CodeValidation, "adjustments require a reason")
	}

	var txn *models.WalletTransaction
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		wallet, err := repo.LockByID(ctx, walletID)
		if err != nil {
			return err
		}
		if wallet.AuditHold {
			return errors.New(errors.CodeLedgerIntegrity, "wallet is on audit hold")
		}
		txn = &models.WalletTransaction{
			ID:          uuid.New(),
			WalletID:    wallet.ID,
			Type:        enums.WalletTransactionTypeAdjustment,
			Amount:      amount,
			Description: reason,
		}
		if err := repo.CreateTransaction(ctx, txn); err != nil {
			return err
		}
		return repo.UpdateBalance(ctx, wallet.ID, wallet.Balance.Add(amount))
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// Balance returns the cached balance.
func (s *Service) Balance(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, error) {
	wallet, err := s.repo.FindByID(ctx, walletID)
	if err != nil {
		return decimal.Zero, err
	}
	return wallet.Balance, nil
}

// Reconcile recomputes the balance from the transaction log and compares it
// to the cache. A mismatch puts the wallet on audit hold and is surfaced as a
// ledger integrity violation; it is never auto-corrected.
func (s *Service) Reconcile(ctx context.Context, walletID uuid.UUID) error {
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		wallet, err := repo.LockByID(ctx, walletID)
		if err != nil {
			return err
		}
		computed, err := repo.SumTransactions(ctx, wallet.ID)
		if err != nil {
			return err
		}
		if wallet.Balance.Equal(computed) {
			return nil
		}
		if err := repo.SetAuditHold(ctx, wallet.ID, true); err != nil {
			return err
		}
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"wallet_id": wallet.ID.String(),
			"cached":    wallet.Balance.String(),
			"computed":  computed.String(),
		})
		s.logg.Error(logCtx, "wallet balance diverged from ledger; audit hold set", nil)
		return errors.New(errors.CodeLedgerIntegrity, "cached balance does not match ledger sum")
	})
}

// ReleaseAuditHold clears the audit hold after manual reconciliation.
func (s *Service) ReleaseAuditHold(ctx context.Context, walletID uuid.UUID) error {
	return s.repo.SetAuditHold(ctx, walletID, false)
}

// ListTransactions pages through a wallet's ledger, newest first.
func (s *Service) ListTransactions(ctx context.Context, walletID uuid.UUID, params pagination.Params) ([]models.WalletTransaction, *pagination.Cursor, error) {
	return s.repo.ListTransactions(ctx, walletID, params)
}
