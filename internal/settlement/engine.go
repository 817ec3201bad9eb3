package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sokoyetu/sokoyetu-backend/internal/wallet"
	"github.com/sokoyetu/sokoyetu-backend/pkg/db/models"
	"github.com/sokoyetu/sokoyetu-backend/pkg/enums"
	"github.com/sokoyetu/sokoyetu-backend/pkg/errors"
	"github.com/sokoyetu/sokoyetu-backend/pkg/logger"
	"github.com/sokoyetu/sokoyetu-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// EngineParams groups dependencies for the settlement engine.
type EngineParams struct {
	Logger  *logger.Logger
	DB      txRunner
	Repo    Repository
	Wallets *wallet.Service
	Metrics *metrics.SettlementMetrics
}

// Engine credits vendor wallets with net earnings for delivered order items.
// Each item settles in its own transaction, so one bad item never rolls back
// the rest of a run; uncredited items simply show up again next cycle.
type Engine struct {
	logg    *logger.Logger
	db      txRunner
	repo    Repository
	wallets *wallet.Service
	metrics *metrics.SettlementMetrics
}

// ItemFailure records one order item the run could not settle.
type ItemFailure struct {
	OrderItemID uuid.UUID
	Err         string
}

// Report summarizes one settlement run.
type Report struct {
	RunID          uuid.UUID
	PeriodStart    time.Time
	PeriodEnd      time.Time
	ItemsProcessed int
	ItemsCredited  int
	ItemsSkipped   int
	ItemsFailed    int
	TotalCredited  decimal.Decimal
	Failures       []ItemFailure
}

// NewEngine builds a settlement engine.
func NewEngine(params EngineParams) (*Engine, error) {
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
	return &Engine{
		logg:    params.Logger,
		db:      params.DB,
		repo:    params.Repo,
		wallets: params.Wallets,
		metrics: params.Metrics,
	}, nil
}

// Run settles every eligible order item delivered inside [periodStart,
// periodEnd). It is safe to call for overlapping or repeated windows: settled
// items are excluded from the query and double-credits are rejected under the
// wallet lock.
func (e *Engine) Run(ctx context.Context, periodStart, periodEnd time.Time) (*Report, error) {
	if !periodEnd.After(periodStart) {
		return nil, errors.New(errors.CodeValidation, "settlement period end must be after start")
	}

	run := &models.SettlementRun{
		ID:          uuid.New(),
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		Status:      enums.SettlementRunStatusRunning,
		StartedAt:   time.Now().UTC(),
	}
	if err := e.repo.CreateRun(ctx, run); err != nil {
		return nil, err
	}

	report := &Report{
		RunID:         run.ID,
		PeriodStart:   periodStart,
		PeriodEnd:     periodEnd,
		TotalCredited: decimal.Zero,
	}

	items, err := e.repo.ListSettleableItems(ctx, periodStart, periodEnd)
	if err != nil {
		e.finalize(ctx, run, report, enums.SettlementRunStatusFailed)
		return report, err
	}

	logCtx := e.logg.WithFields(ctx, map[string]any{
		"run_id":       run.ID.String(),
		"period_start": periodStart.Format(time.RFC3339),
		"period_end":   periodEnd.Format(time.RFC3339),
		"items":        len(items),
	})
	e.logg.Info(logCtx, "settlement run started")

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			e.finalize(ctx, run, report, enums.SettlementRunStatusFailed)
			return report, err
		}

		report.ItemsProcessed++
		switch err := e.settleItem(ctx, item); {
		case err == nil:
			report.ItemsCredited++
			report.TotalCredited = report.TotalCredited.Add(item.NetEarning)
		case errors.HasCode(err, errors.CodeAlreadySettled):
			report.ItemsSkipped++
		default:
			report.ItemsFailed++
			report.Failures = append(report.Failures, ItemFailure{
				OrderItemID: item.ItemID,
				Err:         err.Error(),
			})
			itemCtx := e.logg.WithFields(logCtx, map[string]any{
				"order_item_id": item.ItemID.String(),
				"vendor_id":     item.VendorID.String(),
			})
			e.logg.Error(itemCtx, "settlement item failed", err)
		}
	}

	e.finalize(ctx, run, report, enums.SettlementRunStatusCompleted)
	e.logg.Info(e.logg.WithFields(logCtx, map[string]any{
		"credited": report.ItemsCredited,
		"skipped":  report.ItemsSkipped,
		"failed":   report.ItemsFailed,
		"total":    report.TotalCredited.String(),
	}), "settlement run finished")
	return report, nil
}

func (e *Engine) settleItem(ctx context.Context, item SettleableItem) error {
	if !item.NetEarning.IsPositive() {
		// Fully discounted or fee-consumed items carry nothing to credit.
		return errors.New(errors.CodeAlreadySettled, "no net earning to credit")
	}

	vendorWallet, err := e.wallets.EnsureWallet(ctx, item.VendorID, item.Currency)
	if err != nil {
		return err
	}

	itemID := item.ItemID
	return e.db.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := e.wallets.CreditInTx(ctx, tx, wallet.CreditInput{
			WalletID:    vendorWallet.ID,
			Type:        enums.WalletTransactionTypeEarning,
			Amount:      item.NetEarning,
			OrderItemID: &itemID,
			Reference:   itemID.String(),
			Description: "settlement of delivered order item",
		})
		return err
	})
}

func (e *Engine) finalize(ctx context.Context, run *models.SettlementRun, report *Report, status enums.SettlementRunStatus) {
	// The run row must be finalized even when the run context was cancelled.
	ctx = context.WithoutCancel(ctx)
	now := time.Now().UTC()
	run.Status = status
	run.ItemsProcessed = report.ItemsProcessed
	run.ItemsCredited = report.ItemsCredited
	run.ItemsFailed = report.ItemsFailed
	run.TotalCredited = report.TotalCredited
	run.FinishedAt = &now
	if err := e.repo.UpdateRun(ctx, run); err != nil {
		e.logg.Error(e.logg.WithField(ctx, "run_id", run.ID.String()), "failed to finalize settlement run", err)
	}
	if e.metrics != nil {
		e.metrics.Observe(report.ItemsProcessed, report.ItemsCredited, report.ItemsFailed)
	}
}
