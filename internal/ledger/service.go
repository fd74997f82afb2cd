package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tundeabiodun/handyfix-backend/pkg/config"
	"github.com/tundeabiodun/handyfix-backend/pkg/db/models"
	"github.com/tundeabiodun/handyfix-backend/pkg/enums"
	"github.com/tundeabiodun/handyfix-backend/pkg/errors"
)

// TxRunner executes a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service owns every wallet mutation. Balance changes and ledger inserts
// always land in the same transaction.
type Service interface {
	Topup(ctx context.Context, userID uuid.UUID, amount int64, ref *string) (*models.Transaction, error)
	AdminAdjust(ctx context.Context, userID uuid.UUID, amount int64, ref *string) (*models.Transaction, error)
	ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, error)

	FundEscrow(ctx context.Context, tx *gorm.DB, customerID, orderID uuid.UUID, jobAmount, platformFee int64) error
	ReleaseEscrow(ctx context.Context, tx *gorm.DB, providerID, orderID uuid.UUID, jobAmount, commission int64) error
	RefundEscrow(ctx context.Context, tx *gorm.DB, customerID, orderID uuid.UUID, jobAmount, platformFee int64) error
}

type service struct {
	repo     Repository
	txRunner TxRunner
	currency enums.Currency
}

// NewService wires a ledger service with the provided repository and
// transaction runner.
func NewService(repo Repository, txRunner TxRunner, fees config.FeesConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if txRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	currency, err := enums.ParseCurrency(fees.Currency)
	if err != nil {
		return nil, fmt.Errorf("fees config: %w", err)
	}
	return &service{repo: repo, txRunner: txRunner, currency: currency}, nil
}

func (s *service) Topup(ctx context.Context, userID uuid.UUID, amount int64, ref *string) (*models.Transaction, error) {
	if userID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "user id is required")
	}
	if amount <= 0 {
		return nil, errors.New(errors.CodeValidation, "topup amount must be positive")
	}

	entry := &models.Transaction{
		UserID:    userID,
		Direction: enums.TransactionDirectionIn,
		Type:      enums.TransactionTypeTopup,
		Amount:    amount,
		Currency:  s.currency,
		Ref:       ref,
	}

	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreditWallet(ctx, userID, amount); err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.New(errors.CodeNotFound, "user not found")
			}
			return err
		}
		return repo.Create(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// AdminAdjust applies a signed correction. Negative adjustments honor the
// non-negative balance guard like any other debit.
func (s *service) AdminAdjust(ctx context.Context, userID uuid.UUID, amount int64, ref *string) (*models.Transaction, error) {
	if userID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "user id is required")
	}
	if amount == 0 {
		return nil, errors.New(errors.CodeValidation, "adjustment amount must be non-zero")
	}

	direction := enums.TransactionDirectionIn
	magnitude := amount
	if amount < 0 {
		direction = enums.TransactionDirectionOut
		magnitude = -amount
	}

	entry := &models.Transaction{
		UserID:    userID,
		Direction: direction,
		Type:      enums.TransactionTypeAdjustment,
		Amount:    magnitude,
		Currency:  s.currency,
		Ref:       ref,
	}

	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if direction == enums.TransactionDirectionOut {
			ok, err := repo.DebitWallet(ctx, userID, magnitude)
			if err != nil {
				return err
			}
			if !ok {
				return errors.New(errors.CodePrecondition, "insufficient wallet balance")
			}
		} else {
			if err := repo.CreditWallet(ctx, userID, magnitude); err != nil {
				if err == gorm.ErrRecordNotFound {
					return errors.New(errors.CodeNotFound, "user not found")
				}
				return err
			}
		}
		return repo.Create(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, error) {
	if userID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "user id is required")
	}
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// FundEscrow debits the customer for job amount plus platform fee and writes
// one ledger entry per component. Runs inside the caller's transaction so the
// order status change commits with the money movement.
func (s *service) FundEscrow(ctx context.Context, tx *gorm.DB, customerID, orderID uuid.UUID, jobAmount, platformFee int64) error {
	if jobAmount <= 0 || platformFee < 0 {
		return errors.New(errors.CodeValidation, "invalid escrow amounts")
	}

	repo := s.repo.WithTx(tx)
	total := jobAmount + platformFee

	ok, err := repo.DebitWallet(ctx, customerID, total)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New(errors.CodePrecondition, "insufficient wallet balance").
			WithDetails(map[string]any{"required": total})
	}

	ref := orderID.String()
	entries := []*models.Transaction{
		{
			UserID:    customerID,
			Direction: enums.TransactionDirectionOut,
			Type:      enums.TransactionTypeEscrowDebit,
			Amount:    jobAmount,
			Currency:  s.currency,
			Ref:       &ref,
		},
		{
			UserID:    customerID,
			Direction: enums.TransactionDirectionOut,
			Type:      enums.TransactionTypePlatformFee,
			Amount:    platformFee,
			Currency:  s.currency,
			Ref:       &ref,
		},
	}
	for _, entry := range entries {
		if err := repo.Create(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

// ReleaseEscrow credits the provider with the job amount net of commission.
// The wallet moves by the net in a single credit, but the ledger books two
// entries: the gross job amount as a payout in-entry and the commission as a
// platform-fee out-entry. A single net entry would hide the fee taken from
// the provider; the pair keeps it visible while still summing to exactly the
// wallet delta.
func (s *service) ReleaseEscrow(ctx context.Context, tx *gorm.DB, providerID, orderID uuid.UUID, jobAmount, commission int64) error {
	if jobAmount <= 0 || commission < 0 || commission > jobAmount {
		return errors.New(errors.CodeValidation, "invalid escrow amounts")
	}

	repo := s.repo.WithTx(tx)
	net := jobAmount - commission

	if err := repo.CreditWallet(ctx, providerID, net); err != nil {
		if err == gorm.ErrRecordNotFound {
			return errors.New(errors.CodeNotFound, "provider not found")
		}
		return err
	}

	ref := orderID.String()
	entries := []*models.Transaction{
		{
			UserID:    providerID,
			Direction: enums.TransactionDirectionIn,
			Type:      enums.TransactionTypePayout,
			Amount:    jobAmount,
			Currency:  s.currency,
			Ref:       &ref,
		},
		{
			UserID:    providerID,
			Direction: enums.TransactionDirectionOut,
			Type:      enums.TransactionTypePlatformFee,
			Amount:    commission,
			Currency:  s.currency,
			Ref:       &ref,
		},
	}
	for _, entry := range entries {
		if err := repo.Create(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

// RefundEscrow returns the full held amount to the customer after a funded
// order is canceled. The refund mirrors the funding entries so the ledger
// reads as a clean reversal.
func (s *service) RefundEscrow(ctx context.Context, tx *gorm.DB, customerID, orderID uuid.UUID, jobAmount, platformFee int64) error {
	if jobAmount <= 0 || platformFee < 0 {
		return errors.New(errors.CodeValidation, "invalid refund amounts")
	}

	repo := s.repo.WithTx(tx)
	if err := repo.CreditWallet(ctx, customerID, jobAmount+platformFee); err != nil {
		if err == gorm.ErrRecordNotFound {
			return errors.New(errors.CodeNotFound, "customer not found")
		}
		return err
	}

	ref := orderID.String()
	entries := []*models.Transaction{
		{
			UserID:    customerID,
			Direction: enums.TransactionDirectionIn,
			Type:      enums.TransactionTypeRefund,
			Amount:    jobAmount,
			Currency:  s.currency,
			Ref:       &ref,
		},
		{
			UserID:    customerID,
			Direction: enums.TransactionDirectionIn,
			Type:      enums.TransactionTypeRefund,
			Amount:    platformFee,
			Currency:  s.currency,
			Ref:       &ref,
		},
	}
	for _, entry := range entries {
		if err := repo.Create(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}
