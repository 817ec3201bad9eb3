package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/sokoyetu/sokoyetu-backend/pkg/db/models"
	"github.com/sokoyetu/sokoyetu-backend/pkg/errors"
	"github.com/sokoyetu/sokoyetu-backend/pkg/logger"
)

const reconcileBatchSize = 200

// walletLister is the slice of the wallet repository the job needs.
type walletLister interface {
	ListWallets(ctx context.Context, limit int, offset int) ([]models.Wallet, error)
}

// walletReconciler is the slice of the wallet service the job needs.
type walletReconciler interface {
	Reconcile(ctx context.Context, walletID uuid.UUID) error
}

// WalletReconcileJobParams configure the reconciliation job.
type WalletReconcileJobParams struct {
	Logger  *logger.Logger
	Wallets walletLister
	Service walletReconciler
}

// WalletReconcileJob sweeps every wallet and verifies the cached balance
// against the transaction log. Divergent wallets are frozen by the wallet
// service; this job only surfaces them.
type WalletReconcileJob struct {
	logg    *logger.Logger
	wallets walletLister
	service walletReconciler
}

// NewWalletReconcileJob builds the reconciliation job.
func NewWalletReconcileJob(params WalletReconcileJobParams) (*WalletReconcileJob, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Wallets == nil {
		return nil, fmt.Errorf("wallet lister required")
	}
	if params.Service == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	return &WalletReconcileJob{
		logg:    params.Logger,
		wallets: params.Wallets,
		service: params.Service,
	}, nil
}

// Name identifies the job in logs and metrics.
func (j *WalletReconcileJob) Name() string { return "wallet_reconcile" }

// Run checks every wallet, accumulating integrity violations instead of
// stopping at the first one.
func (j *WalletReconcileJob) Run(ctx context.Context) error {
	var (
		checked    int
		violations error
		offset     int
	)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		wallets, err := j.wallets.ListWallets(ctx, reconcileBatchSize, offset)
		if err != nil {
			return err
		}
		if len(wallets) == 0 {
			break
		}
		for _, w := range wallets {
			checked++
			if err := j.service.Reconcile(ctx, w.ID); err != nil {
				if errors.HasCode(err, errors.CodeLedgerIntegrity) {
					violations = multierr.Append(violations, fmt.Errorf("wallet %s: %w", w.ID, err))
					continue
				}
				return err
			}
		}
		offset += len(wallets)
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"checked":    checked,
		"violations": len(multierr.Errors(violations)),
	}), "wallet reconciliation sweep finished")
	return violations
}
