package enums

import "fmt"

// WalletTransactionType maps to the wallet_transaction_type enum in Postgres.
type WalletTransactionType string

const (
	WalletTransactionTypeEarning             WalletTransactionType = "earning"
	WalletTransactionTypePayout              WalletTransactionType = "payout"
	WalletTransactionTypeRefund              WalletTransactionType = "refund"
	WalletTransactionTypeAdjustment          WalletTransactionType = "adjustment"
	WalletTransactionTypeDeposit             WalletTransactionType = "deposit"
	WalletTransactionTypePayment             WalletTransactionType = "payment"
	WalletTransactionTypeSubscription        WalletTransactionType = "subscription"
	WalletTransactionTypeSubscriptionRenewal WalletTransactionType = "subscription_renewal"
)

var validWalletTransactionTypes = []WalletTransactionType{
	WalletTransactionTypeEarning,
	WalletTransactionTypePayout,
	WalletTransactionTypeRefund,
	WalletTransactionTypeAdjustment,
	WalletTransactionTypeDeposit,
	WalletTransactionTypePayment,
	WalletTransactionTypeSubscription,
	WalletTransactionTypeSubscriptionRenewal,
}

// IsValid reports whether the value matches the canonical enum.
func (t WalletTransactionType) IsValid() bool {
	for _, candidate := range validWalletTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// IsCredit reports whether entries of this type must carry a positive amount.
func (t WalletTransactionType) IsCredit() bool {
	switch t {
	case WalletTransactionTypeEarning, WalletTransactionTypeDeposit, WalletTransactionTypeRefund:
		return true
	}
	return false
}

// IsDebit reports whether entries of this type are subject to the balance
// sufficiency check.
func (t WalletTransactionType) IsDebit() bool {
	switch t {
	case WalletTransactionTypePayout, WalletTransactionTypePayment,
		WalletTransactionTypeSubscription, WalletTransactionTypeSubscriptionRenewal:
		return true
	}
	return false
}

// ParseWalletTransactionType converts raw input into WalletTransactionType.
func ParseWalletTransactionType(value string) (WalletTransactionType, error) {
	for _, candidate := range validWalletTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet transaction type %q", value)
}
