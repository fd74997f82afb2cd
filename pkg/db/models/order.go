package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tundeabiodun/handyfix-backend/pkg/enums"
	"github.com/tundeabiodun/handyfix-backend/pkg/types"
)

// Order is a job requested by a customer and fulfilled by a provider.
// ProviderID is assigned exactly once; escrow fields are each stamped at
// most once; the timeline is append-only.
type Order struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID uuid.UUID  `gorm:"column:customer_id;type:uuid;not null;index"`
	ProviderID *uuid.UUID `gorm:"column:provider_id;type:uuid;index"`

	ServiceKey  string  `gorm:"column:service_key;type:text;not null;index"`
	Title       string  `gorm:"column:title;type:text;not null"`
	Description *string `gorm:"column:description"`
	Address     *string `gorm:"column:address"`
	Country     string  `gorm:"column:country;type:text;not null"`
	State       string  `gorm:"column:state;type:text;not null"`
	LGA         string  `gorm:"column:lga;type:text;not null"`

	Price            int64      `gorm:"column:price;not null"`
	PriceConfirmed   bool       `gorm:"column:price_confirmed;not null;default:false"`
	PriceConfirmedAt *time.Time `gorm:"column:price_confirmed_at"`

	VerificationCode       string     `gorm:"column:verification_code;type:text;not null"`
	VerificationVerifiedAt *time.Time `gorm:"column:verification_verified_at"`
	VerificationVerifiedBy *uuid.UUID `gorm:"column:verification_verified_by;type:uuid"`

	Status   enums.OrderStatus     `gorm:"column:status;type:text;not null;default:'requested';index"`
	Timeline []types.TimelineEntry `gorm:"column:timeline;type:jsonb;serializer:json"`

	EscrowJobAmount   int64      `gorm:"column:escrow_job_amount;not null;default:0"`
	EscrowPlatformFee int64      `gorm:"column:escrow_platform_fee;not null;default:0"`
	EscrowTotal       int64      `gorm:"column:escrow_total;not null;default:0"`
	EscrowFundedAt    *time.Time `gorm:"column:escrow_funded_at"`
	EscrowReleasedAt  *time.Time `gorm:"column:escrow_released_at"`

	CustomerRating *types.OrderRating `gorm:"column:customer_rating;type:jsonb;serializer:json"`
	HandymanRating *types.OrderRating `gorm:"column:handyman_rating;type:jsonb;serializer:json"`

	BeforeImageURLs []string `gorm:"column:before_image_urls;type:jsonb;serializer:json"`
	AfterImageURLs  []string `gorm:"column:after_image_urls;type:jsonb;serializer:json"`

	ScheduledAt *time.Time `gorm:"column:scheduled_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// IsParty reports whether the given user is the customer or the assigned
// provider on this order.
func (o *Order) IsParty(userID uuid.UUID) bool {
	if o.CustomerID == userID {
		return true
	}
	return o.ProviderID != nil && *o.ProviderID == userID
}
