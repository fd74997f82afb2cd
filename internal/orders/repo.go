package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tundeabiodun/handyfix-backend/pkg/db/models"
	"github.com/tundeabiodun/handyfix-backend/pkg/enums"
	"github.com/tundeabiodun/handyfix-backend/pkg/types"
)

// marketplaceCap bounds the marketplace listing; no pagination by design.
const marketplaceCap = 50

// MarketplaceMatch describes the provider-side filter for open orders.
// Location fields compare by exact string equality.
type MarketplaceMatch struct {
	Country string
	State   string
	LGA     string
	Skills  []string
}

// RatingSide names the review slot a rating write targets. The value is the
// database column so the compare-and-swap can address it directly.
type RatingSide string

const (
	RatingSideCustomer RatingSide = "customer_rating"
	RatingSideHandyman RatingSide = "handyman_rating"
)

// Repository manages order persistence. Assign and SetRating are
// compare-and-swaps so a race between two writers has exactly one winner.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Order, error)
	ListAll(ctx context.Context, status *enums.OrderStatus, limit, offset int) ([]models.Order, error)
	ListMarketplace(ctx context.Context, match MarketplaceMatch) ([]models.Order, error)
	Assign(ctx context.Context, orderID, providerID uuid.UUID, timeline []types.TimelineEntry) (bool, error)
	UpdateGuarded(ctx context.Context, order *models.Order, expected enums.OrderStatus) (bool, error)
	SetRating(ctx context.Context, orderID uuid.UUID, side RatingSide, rating *types.OrderRating) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an orders repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// ListByUser returns the orders the user participates in on either side.
func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Where("customer_id = ? OR provider_id = ?", userID, userID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var records []models.Order
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repository) ListAll(ctx context.Context, status *enums.OrderStatus, limit, offset int) ([]models.Order, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{}).Order("created_at DESC")
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var records []models.Order
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// ListMarketplace returns unassigned requested orders matching the provider's
// location and skills, newest first, capped.
func (r *repository) ListMarketplace(ctx context.Context, match MarketplaceMatch) ([]models.Order, error) {
	if len(match.Skills) == 0 {
		return nil, nil
	}
	var records []models.Order
	err := r.db.WithContext(ctx).
		Where("status = ? AND provider_id IS NULL", enums.OrderStatusRequested).
		Where("country = ? AND state = ? AND lga = ?", match.Country, match.State, match.LGA).
		Where("service_key IN ?", match.Skills).
		Order("created_at DESC").
		Limit(marketplaceCap).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Assign atomically claims a requested, unassigned order for the provider.
// A false return means another provider won the race or the order moved on.
func (r *repository) Assign(ctx context.Context, orderID, providerID uuid.UUID, timeline []types.TimelineEntry) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ? AND provider_id IS NULL", orderID, enums.OrderStatusRequested).
		Updates(&models.Order{
			ProviderID: &providerID,
			Status:     enums.OrderStatusAccepted,
			Timeline:   timeline,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// SetRating fills one side's review slot only while the order is completed
// and that slot is still empty. The write touches nothing but the slot
// itself, so the two sides never overwrite each other. A false return means
// a concurrent rating got there first or the order moved on.
func (r *repository) SetRating(ctx context.Context, orderID uuid.UUID, side RatingSide, rating *types.OrderRating) (bool, error) {
	patch := &models.Order{}
	switch side {
	case RatingSideCustomer:
		patch.CustomerRating = rating
	case RatingSideHandyman:
		patch.HandymanRating = rating
	default:
		return false, fmt.Errorf("unknown rating side %q", side)
	}
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ? AND "+string(side)+" IS NULL", orderID, enums.OrderStatusCompleted).
		Select(string(side)).
		Updates(patch)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// UpdateGuarded writes the full order back only while it still holds the
// expected status. A false return means a concurrent transition got there
// first.
func (r *repository) UpdateGuarded(ctx context.Context, order *models.Order, expected enums.OrderStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, expected).
		Select("*").
		Omit("id", "created_at").
		Updates(order)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
