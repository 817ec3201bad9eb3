package wallet

import (
	"context"
	"io"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sokoyetu/sokoyetu-backend/pkg/db/models"
	"github.com/sokoyetu/sokoyetu-backend/pkg/enums"
	"github.com/sokoyetu/sokoyetu-backend/pkg/errors"
	"github.com/sokoyetu/sokoyetu-backend/pkg/logger"
)

func setupWalletTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	wallets := `
CREATE TABLE IF NOT EXISTS wallets (
  id TEXT PRIMARY KEY,
  vendor_id TEXT NOT NULL UNIQUE,
  balance NUMERIC NOT NULL DEFAULT 0,
  currency TEXT NOT NULL DEFAULT 'KES',
  audit_hold INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	walletTransactions := `
CREATE TABLE IF NOT EXISTS wallet_transactions (
  id TEXT PRIMARY KEY,
  wallet_id TEXT NOT NULL,
  type TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  order_item_id TEXT,
  reference TEXT NOT NULL DEFAULT '',
  fx_rate NUMERIC,
  description TEXT NOT NULL DEFAULT '',
  created_at DATETIME
);`
	earningIndex := `
CREATE UNIQUE INDEX IF NOT EXISTS uq_wallet_transactions_earning_item
  ON wallet_transactions (order_item_id) WHERE type = 'earning';`

	for _, stmt := range []string{wallets, walletTransactions, earningIndex} {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r *gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestService(t *testing.T, db *gorm.DB) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Logger: logger.New(logger.Options{ServiceName: "wallet-test", Level: zerolog.Disabled, Output: io.Discard}),
		DB:     &gormTxRunner{db: db},
		Repo:   NewRepository(db),
	})
	require.NoError(t, err)
	return svc
}

func seedWallet(t *testing.T, db *gorm.DB, balance string) *models.Wallet {
	t.Helper()
	wallet := &models.Wallet{
		ID:       uuid.New(),
		VendorID: uuid.New(),
		Balance:  decimal.RequireFromString(balance),
		Currency: enums.CurrencyKES,
	}
	require.NoError(t, db.Create(wallet).Error)
	return wallet
}

func TestService_CreditAndDebitKeepBalanceEqualToLedgerSum(t *testing.T) {
	db := setupWalletTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	wallet := seedWallet(t, db, "0")

	itemA := uuid.New()
	itemB := uuid.New()

	_, err := svc.Credit(ctx, CreditInput{
		WalletID:    wallet.ID,
		Type:        enums.WalletTransactionTypeEarning,
		Amount:      decimal.RequireFromString("95.00"),
		OrderItemID: &itemA,
	})
	require.NoError(t, err)

	_, err = svc.Credit(ctx, CreditInput{
		WalletID:    wallet.ID,
		Type:        enums.WalletTransactionTypeEarning,
		Amount:      decimal.RequireFromString("45.50"),
		OrderItemID: &itemB,
	})
	require.NoError(t, err)

	_, err = svc.Debit(ctx, DebitInput{
		WalletID: wallet.ID,
		Type:     enums.WalletTransactionTypePayout,
		Amount:   decimal.RequireFromString("100.00"),
	})
	require.NoError(t, err)

	balance, err := svc.Balance(ctx, wallet.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("40.50")), "balance = %s", balance)

	sum, err := NewRepository(db).SumTransactions(ctx, wallet.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(sum), "cached %s != ledger sum %s", balance, sum)

	// The cache stays consistent, so reconciliation passes.
	require.NoError(t, svc.Reconcile(ctx, wallet.ID))
}

func TestService_CreditRejectsNonPositiveAmount(t *testing.T) {
	db := setupWalletTestDB(t)
	svc := newTestService(t, db)
	wallet := seedWallet(t, db, "0")

	for _, amount := range []string{"0", "-5.00"} {
		_, err := svc.Credit(context.Background(), CreditInput{
			WalletID: wallet.ID,
			Type:     enums.WalletTransactionTypeDeposit,
			Amount:   decimal.RequireFromString(amount),
		})
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.CodeInvalidAmount), "amount %s: got %v", amount, err)
	}
}

func TestService_CreditEarningIsIdempotentPerOrderItem(t *testing.T) {
	db := setupWalletTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	wallet := seedWallet(t, db, "0")
	itemID := uuid.New()

	input := CreditInput{
		WalletID:    wallet.ID,
		Type:        enums.WalletTransactionTypeEarning,
		Amount:      decimal.RequireFromString("95.00"),
		OrderItemID: &itemID,
	}
	_, err := svc.Credit(ctx, input)
	require.NoError(t, err)

	_, err = svc.Credit(ctx, input)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeAlreadySettled), "got %v", err)

	balance, err := svc.Balance(ctx, wallet.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("95.00")), "balance = %s", balance)

	var count int64
	require.NoError(t, db.Model(&models.WalletTransaction{}).Where("wallet_id = ?", wallet.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestService_CreditEarningRequiresOrderItem(t *testing.T) {
	db := setupWalletTestDB(t)
	svc := newTestService(t, db)
	wallet := seedWallet(t, db, "0")

	_, err := svc.Credit(context.Background(), CreditInput{
		WalletID: wallet.ID,
		Type:     enums.WalletTransactionTypeEarning,
		Amount:   decimal.RequireFromString("10.00"),
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeValidation), "got %v", err)
}

func TestService_DebitRejectsInsufficientBalance(t *testing.T) {
	db := setupWalletTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	wallet := seedWallet(t, db, "50.00")

	_, err := svc.Debit(ctx, DebitInput{
		WalletID: wallet.ID,
		Type:     enums.WalletTransactionTypePayout,
		Amount:   decimal.RequireFromString("50.01"),
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeInsufficient), "got %v", err)

	// Nothing was written.
	balance, err := svc.Balance(ctx, wallet.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("50.00")))

	// Exactly the full balance is allowed.
	_, err = svc.Debit(ctx, DebitInput{
		WalletID: wallet.ID,
		Type:     enums.WalletTransactionTypePayout,
		Amount:   decimal.RequireFromString("50.00"),
	})
	require.NoError(t, err)
}

func TestService_RefundDebitBypassesSufficiencyCheck(t *testing.T) {
	db := setupWalletTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	wallet := seedWallet(t, db, "10.00")

	// Dispute reversals may drive the balance negative.
	_, err := svc.Debit(ctx, DebitInput{
		WalletID:    wallet.ID,
		Type:        enums.WalletTransactionTypeRefund,
		Amount:      decimal.RequireFromString("95.00"),
		Description: "dispute reversal",
	})
	require.NoError(t, err)

	balance, err := svc.Balance(ctx, wallet.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("-85.00")), "balance = %s", balance)
}

func TestService_AdjustBypassesSufficiencyAndRequiresReason(t *testing.T) {
	db := setupWalletTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	wallet := seedWallet(t, db, "0")

	_, err := svc.Adjust(ctx, wallet.ID, decimal.RequireFromString("-20.00"), "")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeValidation), "got %v", err)

	_, err = svc.Adjust(ctx, wallet.ID, decimal.Zero, "noop")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidAmount), "got %v", err)

	_, err = svc.Adjust(ctx, wallet.ID, decimal.RequireFromString("-20.00"), "chargeback correction")
	require.NoError(t, err)

	balance, err := svc.Balance(ctx, wallet.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("-20.00")), "balance = %s", balance)
}

func TestService_ReconcileSetsAuditHoldOnDivergence(t *testing.T) {
	db := setupWalletTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	wallet := seedWallet(t, db, "0")

	_, err := svc.Credit(ctx, CreditInput{
		WalletID: wallet.ID,
		Type:     enums.WalletTransactionTypeDeposit,
		Amount:   decimal.RequireFromString("30.00"),
	})
	require.NoError(t, err)

	// Corrupt the cached balance behind the service's back.
	require.NoError(t, db.Model(&models.Wallet{}).
		Where("id = ?", wallet.ID).
		Update("balance", decimal.RequireFromString("31.00")).Error)

	err = svc.Reconcile(ctx, wallet.ID)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeLedgerIntegrity), "got %v", err)

	// The wallet is frozen: all further writes are refused.
	_, err = svc.Credit(ctx, CreditInput{
		WalletID: wallet.ID,
		Type:     enums.WalletTransactionTypeDeposit,
		Amount:   decimal.RequireFromString("1.00"),
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeLedgerIntegrity), "got %v", err)

	_, err = svc.Adjust(ctx, wallet.ID, decimal.RequireFromString("1.00"), "should be refused")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeLedgerIntegrity), "got %v", err)

	// The bad balance is never auto-corrected.
	var frozen models.Wallet
	require.NoError(t, db.Where("id = ?", wallet.ID).First(&frozen).Error)
	assert.True(t, frozen.AuditHold)
	assert.True(t, frozen.Balance.Equal(decimal.RequireFromString("31.00")))
}

func TestService_ReleaseAuditHoldRestoresWrites(t *testing.T) {
	db := setupWalletTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	wallet := seedWallet(t, db, "0")

	require.NoError(t, NewRepository(db).SetAuditHold(ctx, wallet.ID, true))
	_, err := svc.Credit(ctx, CreditInput{
		WalletID: wallet.ID,
		Type:     enums.WalletTransactionTypeDeposit,
		Amount:   decimal.RequireFromString("5.00"),
	})
	require.Error(t, err)

	require.NoError(t, svc.ReleaseAuditHold(ctx, wallet.ID))
	_, err = svc.Credit(ctx, CreditInput{
		WalletID: wallet.ID,
		Type:     enums.WalletTransactionTypeDeposit,
		Amount:   decimal.RequireFromString("5.00"),
	})
	require.NoError(t, err)
}

func TestService_EnsureWalletCreatesOnce(t *testing.T) {
	db := setupWalletTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	vendorID := uuid.New()

	first, err := svc.EnsureWallet(ctx, vendorID, enums.CurrencyTZS)
	require.NoError(t, err)
	assert.Equal(t, enums.CurrencyTZS, first.Currency)
	assert.True(t, first.Balance.IsZero())

	second, err := svc.EnsureWallet(ctx, vendorID, enums.CurrencyTZS)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestService_BalanceEqualsLedgerSumOverRandomSequences(t *testing.T) {
	db := setupWalletTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	wallet := seedWallet(t, db, "0")
	repo := NewRepository(db)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 60; i++ {
		amount := decimal.NewFromInt(rng.Int63n(10000) + 1).Div(decimal.NewFromInt(100))
		switch rng.Intn(3) {
		case 0:
			_, err := svc.Credit(ctx, CreditInput{
				WalletID: wallet.ID,
				Type:     enums.WalletTransactionTypeDeposit,
				Amount:   amount,
			})
			require.NoError(t, err)
		case 1:
			_, err := svc.Debit(ctx, DebitInput{
				WalletID: wallet.ID,
				Type:     enums.WalletTransactionTypePayout,
				Amount:   amount,
			})
			if err != nil {
				require.True(t, errors.HasCode(err, errors.CodeInsufficient), "got %v", err)
			}
		default:
			_, err := svc.Adjust(ctx, wallet.ID, amount.Neg(), "fuzz correction")
			require.NoError(t, err)
		}

		balance, err := svc.Balance(ctx, wallet.ID)
		require.NoError(t, err)
		sum, err := repo.SumTransactions(ctx, wallet.ID)
		require.NoError(t, err)
		require.True(t, balance.Equal(sum), "step %d: cached %s != ledger sum %s", i, balance, sum)
	}
}

func TestService_CreditRejectsDebitTypes(t *testing.T) {
	db := setupWalletTestDB(t)
	svc := newTestService(t, db)
	wallet := seedWallet(t, db, "0")

	_, err := svc.Credit(context.Background(), CreditInput{
		WalletID: wallet.ID,
		Type:     enums.WalletTransactionTypePayout,
		Amount:   decimal.RequireFromString("10.00"),
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeValidation), "got %v", err)
}
