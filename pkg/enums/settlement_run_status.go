package enums

// SettlementRunStatus tracks a batch settlement run.
type SettlementRunStatus string

const (
	SettlementRunStatusRunning   SettlementRunStatus = "running"
	SettlementRunStatusCompleted SettlementRunStatus = "completed"
	SettlementRunStatusFailed    SettlementRunStatus = "failed"
)

// IsValid reports whether the status matches the canonical enum.
func (s SettlementRunStatus) IsValid() bool {
	switch s {
	case SettlementRunStatusRunning, SettlementRunStatusCompleted, SettlementRunStatusFailed:
		return true
	}
	return false
}
