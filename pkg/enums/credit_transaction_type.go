package enums

import "fmt"

// CreditTransactionType classifies entries in the credit (BNPL) log.
type CreditTransactionType string

const (
	CreditTransactionTypeUsage      CreditTransactionType = "usage"
	CreditTransactionTypeRepayment  CreditTransactionType = "repayment"
	CreditTransactionTypeAdjustment CreditTransactionType = "adjustment"
)

var validCreditTransactionTypes = []CreditTransactionType{
	CreditTransactionTypeUsage,
	CreditTransactionTypeRepayment,
	CreditTransactionTypeAdjustment,
}

// IsValid reports whether the value matches the canonical enum.
func (t CreditTransactionType) IsValid() bool {
	for _, candidate := range validCreditTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseCreditTransactionType converts raw input into CreditTransactionType.
func ParseCreditTransactionType(value string) (CreditTransactionType, error) {
	for _, candidate := range validCreditTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid credit transaction type %q", value)
}
