package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sokoyetu/sokoyetu-backend/pkg/enums"
)

// SettlementRun summarizes one batch settlement execution over a period.
type SettlementRun struct {
	ID             uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PeriodStart    time.Time                 `gorm:"column:period_start;not null"`
	PeriodEnd      time.Time                 `gorm:"column:period_end;not null"`
	Status         enums.SettlementRunStatus `gorm:"column:status;type:settlement_run_status;not null;default:'running'"`
	ItemsProcessed int                       `gorm:"column:items_processed;not null;default:0"`
	ItemsCredited  int                       `gorm:"column:items_credited;not null;default:0"`
	ItemsFailed    int                       `gorm:"column:items_failed;not null;default:0"`
	TotalCredited  decimal.Decimal           `gorm:"column:total_credited;type:numeric(14,2);not null;default:0"`
	StartedAt      time.Time                 `gorm:"column:started_at;not null"`
	FinishedAt     *time.Time                `gorm:"column:finished_at"`
	CreatedAt      time.Time                 `gorm:"column:created_at;autoCreateTime"`
}
