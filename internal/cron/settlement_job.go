package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/sokoyetu/sokoyetu-backend/internal/settlement"
	"github.com/sokoyetu/sokoyetu-backend/pkg/logger"
)

const defaultSettlementPeriod = 7 * 24 * time.Hour

// settlementRunner is the slice of the engine the job needs.
type settlementRunner interface {
	Run(ctx context.Context, periodStart, periodEnd time.Time) (*settlement.Report, error)
}

// SettlementJobParams configure the settlement job.
type SettlementJobParams struct {
	Logger *logger.Logger
	Engine settlementRunner
	// Period is how far back each run looks for delivered items.
	Period time.Duration
	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// SettlementJob runs the settlement engine over the trailing period each
// cycle. Overlapping windows across cycles are harmless: settled items drop
// out of the query.
type SettlementJob struct {
	logg   *logger.Logger
	engine settlementRunner
	period time.Duration
	now    func() time.Time
}

// NewSettlementJob builds the settlement job.
func NewSettlementJob(params SettlementJobParams) (*SettlementJob, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Engine == nil {
		return nil, fmt.Errorf("settlement engine required")
	}
	period := params.Period
	if period <= 0 {
		period = defaultSettlementPeriod
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &SettlementJob{
		logg:   params.Logger,
		engine: params.Engine,
		period: period,
		now:    now,
	}, nil
}

// Name identifies the job in logs and metrics.
func (j *SettlementJob) Name() string { return "settlement" }

// Run settles the trailing period ending now.
func (j *SettlementJob) Run(ctx context.Context) error {
	end := j.now().UTC()
	start := end.Add(-j.period)

	report, err := j.engine.Run(ctx, start, end)
	if err != nil {
		return err
	}
	if report.ItemsFailed > 0 {
		return fmt.Errorf("settlement run %s left %d items unsettled", report.RunID, report.ItemsFailed)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"run_id":   report.RunID.String(),
		"credited": report.ItemsCredited,
		"skipped":  report.ItemsSkipped,
		"total":    report.TotalCredited.String(),
	}), "settlement job finished")
	return nil
}
