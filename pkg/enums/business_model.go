package enums

import "fmt"

// BusinessModel distinguishes how a vendor pays the platform: a percentage
// commission per sale, or a flat subscription with no per-sale platform fee.
type BusinessModel string

const (
	BusinessModelCommission   BusinessModel = "commission"
	BusinessModelSubscription BusinessModel = "subscription"
)

var validBusinessModels = []BusinessModel{
	BusinessModelCommission,
	BusinessModelSubscription,
}

// String implements fmt.Stringer.
func (m BusinessModel) String() string {
	return string(m)
}

// IsValid reports whether the business model is recognized.
func (m BusinessModel) IsValid() bool {
	for _, candidate := range validBusinessModels {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseBusinessModel converts a raw string into a BusinessModel.
func ParseBusinessModel(value string) (BusinessModel, error) {
	for _, candidate := range validBusinessModels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid business model %q", value)
}
