package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sokoyetu/sokoyetu-backend/internal/settlement"
	"github.com/sokoyetu/sokoyetu-backend/pkg/logger"
)

type fakeEngine struct {
	report *settlement.Report
	err    error
	start  time.Time
	end    time.Time
}

func (f *fakeEngine) Run(ctx context.Context, periodStart, periodEnd time.Time) (*settlement.Report, error) {
	f.start = periodStart
	f.end = periodEnd
	if f.err != nil {
		return nil, f.err
	}
	return f.report, nil
}

func TestSettlementJobComputesTrailingWindow(t *testing.T) {
	now := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	engine := &fakeEngine{report: &settlement.Report{RunID: uuid.New(), TotalCredited: decimal.Zero}}
	job, err := NewSettlementJob(SettlementJobParams{
		Logger: logger.New(logger.Options{ServiceName: "worker-test"}),
		Engine: engine,
		Period: 7 * 24 * time.Hour,
		Now:    func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !engine.end.Equal(now) {
		t.Fatalf("window end = %s, want %s", engine.end, now)
	}
	if !engine.start.Equal(now.AddDate(0, 0, -7)) {
		t.Fatalf("window start = %s, want %s", engine.start, now.AddDate(0, 0, -7))
	}
}

func TestSettlementJobSurfacesEngineError(t *testing.T) {
	engine := &fakeEngine{err: errors.New("db down")}
	job, err := NewSettlementJob(SettlementJobParams{
		Logger: logger.New(logger.Options{ServiceName: "worker-test"}),
		Engine: engine,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error from engine")
	}
}

func TestSettlementJobFailsWhenItemsLeftUnsettled(t *testing.T) {
	engine := &fakeEngine{report: &settlement.Report{
		RunID:          uuid.New(),
		ItemsProcessed: 3,
		ItemsCredited:  2,
		ItemsFailed:    1,
		TotalCredited:  decimal.Zero,
	}}
	job, err := NewSettlementJob(SettlementJobParams{
		Logger: logger.New(logger.Options{ServiceName: "worker-test"}),
		Engine: engine,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error when items failed to settle")
	}
}
