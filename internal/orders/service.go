package orders

import (
	"context"
	"crypto/rand"
	stdErrors "errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tundeabiodun/handyfix-backend/internal/ledger"
	"github.com/tundeabiodun/handyfix-backend/internal/users"
	"github.com/tundeabiodun/handyfix-backend/pkg/catalog"
	"github.com/tundeabiodun/handyfix-backend/pkg/config"
	"github.com/tundeabiodun/handyfix-backend/pkg/db/models"
	"github.com/tundeabiodun/handyfix-backend/pkg/enums"
	"github.com/tundeabiodun/handyfix-backend/pkg/errors"
	"github.com/tundeabiodun/handyfix-backend/pkg/storage"
	"github.com/tundeabiodun/handyfix-backend/pkg/types"
)

// Service is the order lifecycle state machine. Every money-moving
// transition runs as one transaction: status change, wallet mutation, and
// ledger inserts commit or roll back together.
type Service interface {
	Create(ctx context.Context, actor Actor, input CreateOrderInput) (*OrderView, error)
	Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderView, error)
	ListMine(ctx context.Context, actor Actor, limit, offset int) ([]OrderView, error)
	ListAll(ctx context.Context, actor Actor, status *enums.OrderStatus, limit, offset int) ([]OrderView, error)
	Accept(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderView, error)
	ConfirmPrice(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderView, error)
	Start(ctx context.Context, actor Actor, orderID uuid.UUID, input StartInput) (*OrderView, error)
	Complete(ctx context.Context, actor Actor, orderID uuid.UUID, input CompleteInput) (*OrderView, error)
	SetStatus(ctx context.Context, actor Actor, orderID uuid.UUID, input SetStatusInput) (*OrderView, error)
	Rate(ctx context.Context, actor Actor, orderID uuid.UUID, input RateInput) (*OrderView, error)
}

type service struct {
	repo     Repository
	users    users.Repository
	ledger   ledger.Service
	files    storage.FileStore
	txRunner ledger.TxRunner
	fees     config.FeesConfig
}

// ServiceParams bundles the dependencies required to build the orders service.
type ServiceParams struct {
	Repo       Repository
	Users      users.Repository
	Ledger     ledger.Service
	Files      storage.FileStore
	TxRunner   ledger.TxRunner
	FeesConfig config.FeesConfig
}

// NewService validates and wires the order lifecycle service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.Files == nil {
		return nil, fmt.Errorf("file store required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:     params.Repo,
		users:    params.Users,
		ledger:   params.Ledger,
		files:    params.Files,
		txRunner: params.TxRunner,
		fees:     params.FeesConfig,
	}, nil
}

// Create opens a new requested order for the calling customer. The 6-digit
// verification code is generated server-side and shared out of band.
func (s *service) Create(ctx context.Context, actor Actor, input CreateOrderInput) (*OrderView, error) {
	if actor.Role != enums.RoleCustomer {
		return nil, errors.New(errors.CodeForbidden, "only customers create orders")
	}
	if !catalog.IsValidKey(input.ServiceKey) {
		return nil, errors.New(errors.CodeValidation, "unknown service key").
			WithDetails(map[string]any{"serviceKey": input.ServiceKey})
	}
	if input.Price <= 0 {
		return nil, errors.New(errors.CodeValidation, "price must be positive")
	}

	var scheduledAt *time.Time
	if input.ScheduledAt != nil && *input.ScheduledAt != "" {
		parsed, err := time.Parse(time.RFC3339, *input.ScheduledAt)
		if err != nil {
			return nil, errors.New(errors.CodeValidation, "scheduledAt must be RFC 3339")
		}
		scheduledAt = &parsed
	}

	code, err := generateVerificationCode()
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "generate verification code")
	}

	now := time.Now().UTC()
	order := &models.Order{
		CustomerID:       actor.ID,
		ServiceKey:       input.ServiceKey,
		Title:            input.Title,
		Description:      input.Description,
		Address:          input.Address,
		Country:          input.Country,
		State:            input.State,
		LGA:              input.LGA,
		Price:            input.Price,
		VerificationCode: code,
		Status:           enums.OrderStatusRequested,
		Timeline: []types.TimelineEntry{
			timelineEntry(enums.OrderStatusRequested, actor, now, ""),
		},
		ScheduledAt: scheduledAt,
	}
	if err := s.repo.Create(ctx, order); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "create order")
	}

	return s.projectFor(ctx, order, actor)
}

// Get returns the order as seen by the caller. Providers that are not a
// party may still inspect a requested, unassigned order when their profile
// matches its location and skill.
func (s *service) Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderView, error) {
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := authorize(actor, order, opView); err != nil {
		if !s.marketplaceVisible(ctx, actor, order) {
			return nil, err
		}
	}

	return s.projectFor(ctx, order, actor)
}

func (s *service) ListMine(ctx context.Context, actor Actor, limit, offset int) ([]OrderView, error) {
	records, err := s.repo.ListByUser(ctx, actor.ID, limit, offset)
	if err != nil {
		return nil, err
	}
	return s.projectAll(ctx, records, actor)
}

func (s *service) ListAll(ctx context.Context, actor Actor, status *enums.OrderStatus, limit, offset int) ([]OrderView, error) {
	if actor.Role != enums.RoleAdmin {
		return nil, errors.New(errors.CodeForbidden, "not allowed to perform this action")
	}
	if status != nil && !status.IsValid() {
		return nil, errors.New(errors.CodeValidation, "invalid status filter")
	}
	records, err := s.repo.ListAll(ctx, status, limit, offset)
	if err != nil {
		return nil, err
	}
	return s.projectAll(ctx, records, actor)
}

// Accept claims a requested order for the calling provider. Assignment is a
// compare-and-swap; the race loser gets a conflict.
func (s *service) Accept(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderView, error) {
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, order, opAccept); err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusRequested || order.ProviderID != nil {
		return nil, acceptFailure(order)
	}

	if actor.Role == enums.RoleProvider {
		if err := s.requireMatchingProfile(ctx, actor.ID, order); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	timeline := append(order.Timeline, timelineEntry(enums.OrderStatusAccepted, actor, now, ""))

	ok, err := s.repo.Assign(ctx, order.ID, actor.ID, timeline)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "assign order")
	}
	if !ok {
		// lost the race; reload for an accurate rejection
		if refreshed, ferr := s.repo.FindByID(ctx, order.ID); ferr == nil {
			return nil, acceptFailure(refreshed)
		}
		return nil, errors.New(errors.CodeConflict, "order already assigned")
	}

	order, err = s.findOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	return s.projectFor(ctx, order, actor)
}

func acceptFailure(order *models.Order) error {
	if order.ProviderID != nil {
		return errors.New(errors.CodeConflict, "order already assigned")
	}
	return errors.New(errors.CodePrecondition, "order is not available")
}

// ConfirmPrice marks the assigned provider's agreement with the customer's
// price. Re-confirmation is a harmless no-op.
func (s *service) ConfirmPrice(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderView, error) {
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, order, opConfirmPrice); err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusAccepted {
		return nil, errors.New(errors.CodePrecondition, "price can only be confirmed on an accepted order")
	}
	if order.PriceConfirmed {
		return s.projectFor(ctx, order, actor)
	}

	now := time.Now().UTC()
	order.PriceConfirmed = true
	order.PriceConfirmedAt = &now

	if err := s.saveGuarded(ctx, nil, order, enums.OrderStatusAccepted); err != nil {
		return nil, err
	}
	return s.projectFor(ctx, order, actor)
}

// Start moves an accepted order into in_progress. It verifies the one-time
// code, requires a before photo, and funds escrow: the customer is debited
// price plus platform fee in the same transaction as the status change.
func (s *service) Start(ctx context.Context, actor Actor, orderID uuid.UUID, input StartInput) (*OrderView, error) {
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, order, opStart); err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusAccepted {
		return nil, errors.New(errors.CodePrecondition, "order must be accepted to start")
	}
	if !order.PriceConfirmed {
		return nil, errors.New(errors.CodePrecondition, "price must be confirmed before starting")
	}

	if order.VerificationVerifiedAt == nil {
		if input.VerificationCode == "" {
			return nil, errors.New(errors.CodePrecondition, "verification code is required")
		}
		if input.VerificationCode != order.VerificationCode {
			return nil, errors.New(errors.CodePrecondition, "invalid verification code")
		}
		now := time.Now().UTC()
		order.VerificationVerifiedAt = &now
		by := actor.ID
		order.VerificationVerifiedBy = &by
	}

	photoURL, err := s.storePhoto(ctx, "before", input.Photo)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	fee := ledger.PercentOf(order.Price, s.fees.PlatformFeePercent)

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if order.EscrowFundedAt == nil {
			if err := s.ledger.FundEscrow(ctx, tx, order.CustomerID, order.ID, order.Price, fee); err != nil {
				return err
			}
			order.EscrowJobAmount = order.Price
			order.EscrowPlatformFee = fee
			order.EscrowTotal = order.Price + fee
			order.EscrowFundedAt = &now
		}

		order.BeforeImageURLs = append(order.BeforeImageURLs, photoURL)
		order.Status = enums.OrderStatusInProgress
		order.Timeline = append(order.Timeline, timelineEntry(enums.OrderStatusInProgress, actor, now, ""))

		return s.saveGuarded(ctx, tx, order, enums.OrderStatusAccepted)
	})
	if err != nil {
		s.discardPhoto(ctx, photoURL)
		return nil, err
	}

	return s.projectFor(ctx, order, actor)
}

// Complete finishes an in-progress order: requires an after photo and a
// funded, unreleased escrow, then credits the provider net of commission in
// the same transaction as the status change.
func (s *service) Complete(ctx context.Context, actor Actor, orderID uuid.UUID, input CompleteInput) (*OrderView, error) {
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, order, opComplete); err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusInProgress {
		return nil, errors.New(errors.CodePrecondition, "order must be in progress to complete")
	}
	if order.EscrowFundedAt == nil {
		return nil, errors.New(errors.CodePrecondition, "escrow has not been funded")
	}
	if order.EscrowReleasedAt != nil {
		return nil, errors.New(errors.CodePrecondition, "escrow already released")
	}

	photoURL, err := s.storePhoto(ctx, "after", input.Photo)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	commission := ledger.PercentOf(order.EscrowJobAmount, s.fees.CommissionPercent)

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.ledger.ReleaseEscrow(ctx, tx, actor.ID, order.ID, order.EscrowJobAmount, commission); err != nil {
			return err
		}

		order.EscrowReleasedAt = &now
		order.AfterImageURLs = append(order.AfterImageURLs, photoURL)
		order.Status = enums.OrderStatusCompleted
		order.Timeline = append(order.Timeline, timelineEntry(enums.OrderStatusCompleted, actor, now, ""))

		return s.saveGuarded(ctx, tx, order, enums.OrderStatusInProgress)
	})
	if err != nil {
		s.discardPhoto(ctx, photoURL)
		return nil, err
	}

	return s.projectFor(ctx, order, actor)
}

// SetStatus is the generic override path. Cancels route through the cancel
// logic (and refund funded escrow); every other target is an admin-only
// audit override that moves no money.
func (s *service) SetStatus(ctx context.Context, actor Actor, orderID uuid.UUID, input SetStatusInput) (*OrderView, error) {
	target, err := enums.ParseOrderStatus(input.Status)
	if err != nil {
		return nil, errors.New(errors.CodeValidation, "invalid status")
	}

	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if target == enums.OrderStatusCanceled {
		return s.cancel(ctx, actor, order, input.Note)
	}

	if err := authorize(actor, order, opSetStatus); err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() {
		return nil, errors.New(errors.CodePrecondition, "order is in a terminal state")
	}
	if order.Status == target {
		return s.projectFor(ctx, order, actor)
	}

	prior := order.Status
	order.Status = target
	order.Timeline = append(order.Timeline, timelineEntry(target, actor, time.Now().UTC(), input.Note))

	if err := s.saveGuarded(ctx, nil, order, prior); err != nil {
		return nil, err
	}
	return s.projectFor(ctx, order, actor)
}

// cancel moves a non-terminal order to canceled. Funded, unreleased escrow
// is refunded in full to the customer inside the same transaction.
func (s *service) cancel(ctx context.Context, actor Actor, order *models.Order, note string) (*OrderView, error) {
	if err := authorize(actor, order, opCancel); err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() {
		return nil, errors.New(errors.CodePrecondition, "order is in a terminal state")
	}

	prior := order.Status
	now := time.Now().UTC()
	order.Status = enums.OrderStatusCanceled
	order.Timeline = append(order.Timeline, timelineEntry(enums.OrderStatusCanceled, actor, now, note))

	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if order.EscrowFundedAt != nil && order.EscrowReleasedAt == nil {
			if err := s.ledger.RefundEscrow(ctx, tx, order.CustomerID, order.ID,
				order.EscrowJobAmount, order.EscrowPlatformFee); err != nil {
				return err
			}
			order.EscrowReleasedAt = &now
		}
		return s.saveGuarded(ctx, tx, order, prior)
	})
	if err != nil {
		return nil, err
	}
	return s.projectFor(ctx, order, actor)
}

// Rate records one party's one-shot review of the other and folds it into
// the counterparty's running aggregate atomically.
func (s *service) Rate(ctx context.Context, actor Actor, orderID uuid.UUID, input RateInput) (*OrderView, error) {
	if input.Stars < 1 || input.Stars > 5 {
		return nil, errors.New(errors.CodeValidation, "stars must be between 1 and 5")
	}
	if len(input.Note) > 500 {
		return nil, errors.New(errors.CodeValidation, "note must be at most 500 characters")
	}

	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, order, opRate); err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusCompleted {
		return nil, errors.New(errors.CodePrecondition, "only completed orders can be rated")
	}

	rating := &types.OrderRating{
		Stars: input.Stars,
		Note:  input.Note,
		At:    time.Now().UTC(),
	}

	rel := relationOf(actor, order)
	if rel != relationCustomer && rel != relationAssignedProvider {
		return nil, errors.New(errors.CodeForbidden, "not allowed to perform this action")
	}
	side := RatingSideCustomer
	taken := order.CustomerRating != nil
	if rel == relationAssignedProvider {
		side = RatingSideHandyman
		taken = order.HandymanRating != nil
	}
	if taken {
		return nil, errors.New(errors.CodeConflict, "you have already rated this order")
	}

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		// the slot write is a compare-and-swap; a concurrent duplicate sees
		// zero rows and aborts before touching the aggregate
		ok, err := s.repo.WithTx(tx).SetRating(ctx, order.ID, side, rating)
		if err != nil {
			return errors.Wrap(errors.CodeInternal, err, "record rating")
		}
		if !ok {
			return errors.New(errors.CodeConflict, "you have already rated this order")
		}
		userRepo := s.users.WithTx(tx)
		if rel == relationCustomer {
			return userRepo.ApplyHandymanRating(ctx, *order.ProviderID, input.Stars)
		}
		return userRepo.ApplyCustomerRating(ctx, order.CustomerID, input.Stars)
	})
	if err != nil {
		return nil, err
	}

	if rel == relationCustomer {
		order.CustomerRating = rating
	} else {
		order.HandymanRating = rating
	}
	return s.projectFor(ctx, order, actor)
}

func (s *service) findOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "order id is required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "order not found")
		}
		return nil, errors.Wrap(errors.CodeInternal, err, "load order")
	}
	return order, nil
}

// saveGuarded persists the order while its stored status still matches the
// expected one; otherwise a concurrent transition won and we report conflict.
func (s *service) saveGuarded(ctx context.Context, tx *gorm.DB, order *models.Order, expected enums.OrderStatus) error {
	ok, err := s.repo.WithTx(tx).UpdateGuarded(ctx, order, expected)
	if err != nil {
		return errors.Wrap(errors.CodeInternal, err, "update order")
	}
	if !ok {
		return errors.New(errors.CodeConflict, "order changed concurrently")
	}
	return nil
}

// storePhoto validates the payload is a real image and persists it.
func (s *service) storePhoto(ctx context.Context, prefix string, payload []byte) (string, error) {
	if len(payload) == 0 {
		return "", errors.New(errors.CodePrecondition, "a photo is required")
	}
	ext, err := storage.SniffImage(payload)
	if err != nil {
		return "", errors.Wrap(errors.CodePrecondition, err, "photo must be an image")
	}
	url, err := s.files.Save(ctx, prefix, payload, ext)
	if err != nil {
		return "", errors.Wrap(errors.CodeInternal, err, "store photo")
	}
	return url, nil
}

// discardPhoto removes a stored photo whose transaction did not commit, so
// an aborted transition leaves no unreferenced file behind.
func (s *service) discardPhoto(ctx context.Context, url string) {
	_ = s.files.Remove(ctx, url)
}

// requireMatchingProfile enforces the marketplace criteria at accept time:
// a complete, available profile whose location and skills match the order.
func (s *service) requireMatchingProfile(ctx context.Context, providerID uuid.UUID, order *models.Order) error {
	provider, err := s.users.FindByID(ctx, providerID)
	if err != nil {
		return errors.Wrap(errors.CodeInternal, err, "load provider")
	}
	profile := provider.ProviderProfile
	if !profile.IsComplete() {
		return errors.New(errors.CodePrecondition, "complete your provider profile first")
	}
	if !profile.Available {
		return errors.New(errors.CodePrecondition, "set yourself available to accept orders")
	}
	if profile.Country != order.Country || profile.State != order.State || profile.LGA != order.LGA {
		return errors.New(errors.CodePrecondition, "order is outside your service area")
	}
	if !profile.HasSkill(order.ServiceKey) {
		return errors.New(errors.CodePrecondition, "order requires a skill you have not listed")
	}
	return nil
}

// marketplaceVisible implements the pre-accept inspection carve-out: a
// requested, unassigned order is visible to any provider whose profile
// matches it.
func (s *service) marketplaceVisible(ctx context.Context, actor Actor, order *models.Order) bool {
	if actor.Role != enums.RoleProvider {
		return false
	}
	if order.Status != enums.OrderStatusRequested || order.ProviderID != nil {
		return false
	}
	provider, err := s.users.FindByID(ctx, actor.ID)
	if err != nil {
		return false
	}
	profile := provider.ProviderProfile
	if !profile.IsComplete() || !profile.Available {
		return false
	}
	return profile.Country == order.Country &&
		profile.State == order.State &&
		profile.LGA == order.LGA &&
		profile.HasSkill(order.ServiceKey)
}

func (s *service) projectFor(ctx context.Context, order *models.Order, viewer Actor) (*OrderView, error) {
	parties, err := s.loadParties(ctx, order)
	if err != nil {
		return nil, err
	}
	return Project(order, viewer, parties), nil
}

func (s *service) projectAll(ctx context.Context, records []models.Order, viewer Actor) ([]OrderView, error) {
	views := make([]OrderView, 0, len(records))
	for i := range records {
		view, err := s.projectFor(ctx, &records[i], viewer)
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	return views, nil
}

func (s *service) loadParties(ctx context.Context, order *models.Order) (Parties, error) {
	// contact info is only disclosed once a provider is assigned
	if order.ProviderID == nil {
		return Parties{}, nil
	}

	ids := []uuid.UUID{order.CustomerID, *order.ProviderID}
	records, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return Parties{}, errors.Wrap(errors.CodeInternal, err, "load order parties")
	}

	var parties Parties
	for i := range records {
		switch records[i].ID {
		case order.CustomerID:
			parties.Customer = &records[i]
		case *order.ProviderID:
			parties.Provider = &records[i]
		}
	}
	return parties, nil
}

func timelineEntry(status enums.OrderStatus, actor Actor, at time.Time, note string) types.TimelineEntry {
	return types.TimelineEntry{
		Status: status.String(),
		At:     at,
		By:     actor.ID.String(),
		Note:   note,
	}
}

// generateVerificationCode returns a random 6-digit numeric code.
func generateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
