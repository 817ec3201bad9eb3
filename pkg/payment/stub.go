package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/sokoyetu/sokoyetu-backend/pkg/enums"
)

// StubProvider is a no-op provider for development and tests; real deployments
// wire a mobile-money adapter instead.
type StubProvider struct {
	// Fail forces every payout to report failure when set.
	Fail bool
}

func (s *StubProvider) Name() string { return "stub" }

func (s *StubProvider) Payout(ctx context.Context, req PayoutRequest) (*PayoutResponse, error) {
	if s.Fail {
		return &PayoutResponse{Status: enums.PayoutStatusFailed}, fmt.Errorf("stub provider configured to fail")
	}
	return &PayoutResponse{
		ProviderTxRef: fmt.Sprintf("stub_%d_%s", time.Now().UnixNano(), req.WithdrawalID),
		Status:        enums.PayoutStatusSuccess,
	}, nil
}
