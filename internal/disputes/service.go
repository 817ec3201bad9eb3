package disputes

import (
	"context"
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sokoyetu/sokoyetu-backend/internal/wallet"
	"github.com/sokoyetu/sokoyetu-backend/pkg/db"
	"github.com/sokoyetu/sokoyetu-backend/pkg/db/models"
	"github.com/sokoyetu/sokoyetu-backend/pkg/enums"
	"github.com/sokoyetu/sokoyetu-backend/pkg/errors"
	"github.com/sokoyetu/sokoyetu-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the dispute service.
type ServiceParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repo       Repository
	Wallets    *wallet.Service
	WalletRepo wallet.Repository
}

// Service handles buyer disputes. A refund resolution reverses the vendor's
// settled earning for the disputed item; repaying the buyer is the payment
// gateway's concern, not the ledger's.
type Service struct {
	logg       *logger.Logger
	db         txRunner
	repo       Repository
	wallets    *wallet.Service
	walletRepo wallet.Repository
}

// NewService builds a dispute service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("repo required")
	}
	if params.Wallets == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if params.WalletRepo == nil {
		return nil, fmt.Errorf("wallet repo required")
	}
	return &Service{
		logg:       params.Logger,
		db:         params.DB,
		repo:       params.Repo,
		wallets:    params.Wallets,
		walletRepo: params.WalletRepo,
	}, nil
}

// Open files a dispute against an order. At most one dispute may exist per
// order; duplicates are rejected.
func (s *Service) Open(ctx context.Context, orderID, orderItemID uuid.UUID, reason string) (*models.Dispute, error) {
	if orderID == uuid.Nil || orderItemID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "order and order item ids are required")
	}
	if reason == "" {
		return nil, errors.New(errors.CodeValidation, "disputes require a reason")
	}

	if _, err := s.repo.FindByOrder(ctx, orderID); err == nil {
		return nil, errors.New(errors.CodeConflict, "order already has a dispute")
	} else if !stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	dispute := &models.Dispute{
		ID:          uuid.New(),
		OrderID:     orderID,
		OrderItemID: orderItemID,
		Reason:      reason,
		Status:      enums.DisputeStatusOpen,
	}
	if err := s.repo.Create(ctx, dispute); err != nil {
		if db.IsUniqueViolation(err, "order_id") {
			return nil, errors.Wrap(errors.CodeConflict, err, "order already has a dispute")
		}
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"dispute_id": dispute.ID.String(),
		"order_id":   orderID.String(),
	}), "dispute opened")
	return dispute, nil
}

// Resolve closes an open dispute. Outcome RESOLVED only flips the status.
// Outcome REFUNDED also posts a refund debit reversing the settled earning
// for the disputed item, in the same transaction as the status flip; if the
// item was never settled there is nothing to reverse. Both outcomes are
// terminal.
func (s *Service) Resolve(ctx context.Context, disputeID uuid.UUID, outcome enums.DisputeStatus, resolverID uuid.UUID, notes string) (*models.Dispute, error) {
	if outcome != enums.DisputeStatusResolved && outcome != enums.DisputeStatusRefunded {
		return nil, errors.New(errors.CodeValidation, fmt.Sprintf("invalid dispute outcome %q", outcome))
	}

	var resolved *models.Dispute
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		dispute, err := repo.LockByID(ctx, disputeID)
		if err != nil {
			return err
		}
		if dispute.Status.IsTerminal() {
			return errors.New(errors.CodeDisputeResolved,
				fmt.Sprintf("dispute already %s", dispute.Status))
		}

		if outcome == enums.DisputeStatusRefunded {
			if err := s.reverseEarning(ctx, tx, dispute); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		if err := repo.Update(ctx, dispute.ID, map[string]any{
			"status":           outcome,
			"resolution_notes": notes,
			"resolver_id":      resolverID,
			"resolved_at":      now,
		}); err != nil {
			return err
		}
		dispute.Status = outcome
		dispute.ResolutionNotes = &notes
		dispute.ResolverID = &resolverID
		dispute.ResolvedAt = &now
		resolved = dispute
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resolved, nil
}

// reverseEarning debits back exactly what settlement credited for the
// disputed item. The refund bypasses the sufficiency check: the vendor owes
// the money whether or not the balance covers it.
func (s *Service) reverseEarning(ctx context.Context, tx *gorm.DB, dispute *models.Dispute) error {
	earning, err := s.walletRepo.WithTx(tx).FindEarningForOrderItem(ctx, dispute.OrderItemID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			s.logg.Info(s.logg.WithField(ctx, "dispute_id", dispute.ID.String()),
				"disputed item was never settled, nothing to reverse")
			return nil
		}
		return err
	}

	_, err = s.wallets.DebitInTx(ctx, tx, wallet.DebitInput{
		WalletID:    earning.WalletID,
		Type:        enums.WalletTransactionTypeRefund,
		Amount:      earning.Amount,
		OrderItemID: &dispute.OrderItemID,
		Reference:   dispute.ID.String(),
		Description: "dispute refund, earning reversed",
	})
	return err
}

// Find returns one dispute.
func (s *Service) Find(ctx context.Context, disputeID uuid.UUID) (*models.Dispute, error) {
	return s.repo.FindByID(ctx, disputeID)
}
