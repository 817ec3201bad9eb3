package credit

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
	"github.com/sokoyetu/sokoyetu-backend/pkg/errors"
	"github.com/sokoyetu/sokoyetu-backend/pkg/logger"
)

func setupCreditTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{`
CREATE TABLE IF NOT EXISTS credit_limits (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  max_limit NUMERIC NOT NULL,
  current_usage NUMERIC NOT NULL DEFAULT 0,
  currency TEXT NOT NULL DEFAULT 'KES',
  eligible INTEGER NOT NULL DEFAULT 1,
  active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS credit_transactions (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  type TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  reference TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  created_at DATETIME
);`}

	for _, stmt := range statements {
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

func newTestCreditService(t *testing.T, db *gorm.DB) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Logger:       logger.New(logger.Options{ServiceName: "credit-test", Level: zerolog.Disabled, Output: io.Discard}),
		DB:           &gormTxRunner{db: db},
		Repo:         NewRepository(db),
		DefaultLimit: decimal.RequireFromString("5000.00"),
	})
	require.NoError(t, err)
	return svc
}

func TestService_ApplyIsIdempotent(t *testing.T) {
	db := setupCreditTestDB(t)
	svc := newTestCreditService(t, db)
	ctx := context.Background()
	userID := uuid.New()

	first, err := svc.Apply(ctx, userID)
	require.NoError(t, err)
	assert.True(t, first.MaxLimit.Equal(decimal.RequireFromString("5000.00")))
	assert.True(t, first.CurrentUsage.IsZero())

	// Draw some credit, then apply again: the facility is untouched.
	_, err = svc.Use(ctx, userID, decimal.RequireFromString("1000.00"), "order-1")
	require.NoError(t, err)

	second, err := svc.Apply(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.CurrentUsage.Equal(decimal.RequireFromString("1000.00")))
}

func TestService_UseExactRemainingAllowedOneCentOverRefused(t *testing.T) {
	db := setupCreditTestDB(t)
	svc := newTestCreditService(t, db)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.Apply(ctx, userID)
	require.NoError(t, err)

	_, err = svc.Use(ctx, userID, decimal.RequireFromString("4000.00"), "order-1")
	require.NoError(t, err)

	// One cent over the remaining 1000.00 fails and changes nothing.
	_, err = svc.Use(ctx, userID, decimal.RequireFromString("1000.01"), "order-2")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeInsufficientCredit), "got %v", err)

	facility, err := svc.Facility(ctx, userID)
	require.NoError(t, err)
	assert.True(t, facility.CurrentUsage.Equal(decimal.RequireFromString("4000.00")))

	// Exactly the remaining amount succeeds.
	_, err = svc.Use(ctx, userID, decimal.RequireFromString("1000.00"), "order-3")
	require.NoError(t, err)

	facility, err = svc.Facility(ctx, userID)
	require.NoError(t, err)
	assert.True(t, facility.Available().IsZero())
}

func TestService_UseRequiresEligibleActiveFacility(t *testing.T) {
	db := setupCreditTestDB(t)
	svc := newTestCreditService(t, db)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.Apply(ctx, userID)
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.CreditLimit{}).
		Where("user_id = ?", userID).
		Update("eligible", false).Error)

	_, err = svc.Use(ctx, userID, decimal.RequireFromString("10.00"), "order-1")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeNotEligible), "got %v", err)
}

func TestService_RepayCapsAtZero(t *testing.T) {
	db := setupCreditTestDB(t)
	svc := newTestCreditService(t, db)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.Apply(ctx, userID)
	require.NoError(t, err)
	_, err = svc.Use(ctx, userID, decimal.RequireFromString("300.00"), "order-1")
	require.NoError(t, err)

	// Overpayment clears the debt; the surplus is discarded.
	_, err = svc.Repay(ctx, userID, decimal.RequireFromString("500.00"))
	require.NoError(t, err)

	facility, err := svc.Facility(ctx, userID)
	require.NoError(t, err)
	assert.True(t, facility.CurrentUsage.IsZero(), "usage = %s", facility.CurrentUsage)
	assert.True(t, facility.Available().Equal(facility.MaxLimit))
}

func TestService_RejectsNonPositiveAmounts(t *testing.T) {
	db := setupCreditTestDB(t)
	svc := newTestCreditService(t, db)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.Apply(ctx, userID)
	require.NoError(t, err)

	for _, amount := range []string{"0", "-10.00"} {
		_, err := svc.Use(ctx, userID, decimal.RequireFromString(amount), "order-1")
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.CodeInvalidAmount), "use %s: got %v", amount, err)

		_, err = svc.Repay(ctx, userID, decimal.RequireFromString(amount))
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.CodeInvalidAmount), "repay %s: got %v", amount, err)
	}
}

func TestService_UsageStaysInBoundsOverRandomSequences(t *testing.T) {
	db := setupCreditTestDB(t)
	svc := newTestCreditService(t, db)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.Apply(ctx, userID)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 80; i++ {
		amount := decimal.NewFromInt(rng.Int63n(200000) + 1).Div(decimal.NewFromInt(100))
		if rng.Intn(2) == 0 {
			_, err := svc.Use(ctx, userID, amount, "fuzz")
			if err != nil {
				require.True(t, errors.HasCode(err, errors.CodeInsufficientCredit), "got %v", err)
			}
		} else {
			_, err := svc.Repay(ctx, userID, amount)
			require.NoError(t, err)
		}

		facility, err := svc.Facility(ctx, userID)
		require.NoError(t, err)
		require.False(t, facility.CurrentUsage.IsNegative(), "step %d: usage %s below zero", i, facility.CurrentUsage)
		require.False(t, facility.CurrentUsage.GreaterThan(facility.MaxLimit), "step %d: usage %s above limit", i, facility.CurrentUsage)
	}
}
