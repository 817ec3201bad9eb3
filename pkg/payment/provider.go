package payment

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/sokoyetu/sokoyetu-backend/pkg/enums"
)

// PayoutRequest describes one transfer from the platform to a vendor
// destination (mobile-money wallet or bank account).
type PayoutRequest struct {
	WithdrawalID string
	Amount       decimal.Decimal
	Currency     enums.Currency
	Destination  string // e.g. 254712345678 for mobile money
	Description  string
}

// PayoutResponse is the provider's answer to a transfer attempt.
type PayoutResponse struct {
	ProviderTxRef string
	Status        enums.PayoutStatus
}

// Provider is the external money-movement adapter. Implementations wrap a
// concrete gateway (M-Pesa B2C and friends); the settlement core treats it as
// a black box returning success or failure.
type Provider interface {
	Name() string
	Payout(ctx context.Context, req PayoutRequest) (*PayoutResponse, error)
}
