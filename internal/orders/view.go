package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/tundeabiodun/handyfix-backend/internal/users"
	"github.com/tundeabiodun/handyfix-backend/pkg/db/models"
	"github.com/tundeabiodun/handyfix-backend/pkg/enums"
	"github.com/tundeabiodun/handyfix-backend/pkg/types"
)

// OrderView is the viewer-scoped projection of an order. The canonical
// record is never mutated for display; omitted fields simply stay nil.
type OrderView struct {
	ID          uuid.UUID  `json:"_id"`
	CustomerID  uuid.UUID  `json:"customerId"`
	ProviderID  *uuid.UUID `json:"providerId,omitempty"`
	ServiceKey  string     `json:"serviceKey"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Address     *string    `json:"address,omitempty"`
	Country     string     `json:"country"`
	State       string     `json:"state"`
	LGA         string     `json:"lga"`
	Price       int64      `json:"price"`

	PriceConfirmed   bool       `json:"priceConfirmed"`
	PriceConfirmedAt *time.Time `json:"priceConfirmedAt,omitempty"`

	VerificationCode       *string    `json:"verificationCode,omitempty"`
	VerificationVerifiedAt *time.Time `json:"verificationVerifiedAt,omitempty"`

	Status   enums.OrderStatus     `json:"status"`
	Timeline []types.TimelineEntry `json:"timeline"`

	EscrowJobAmount   int64      `json:"escrowJobAmount,omitempty"`
	EscrowPlatformFee int64      `json:"escrowPlatformFee,omitempty"`
	EscrowTotal       int64      `json:"escrowTotal,omitempty"`
	EscrowFundedAt    *time.Time `json:"escrowFundedAt,omitempty"`
	EscrowReleasedAt  *time.Time `json:"escrowReleasedAt,omitempty"`

	CustomerRating *types.OrderRating `json:"customerRating,omitempty"`
	HandymanRating *types.OrderRating `json:"handymanRating,omitempty"`

	CustomerInfo *users.PublicUserDTO `json:"customerInfo,omitempty"`
	HandymanInfo *users.PublicUserDTO `json:"handymanInfo,omitempty"`

	BeforeImageURLs []string `json:"beforeImageUrls,omitempty"`
	AfterImageURLs  []string `json:"afterImageUrls,omitempty"`

	ScheduledAt *time.Time `json:"scheduledAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Parties carries the loaded party records a projection may disclose.
type Parties struct {
	Customer *models.User
	Provider *models.User
}

// Project builds the order payload the given viewer is allowed to see:
//   - the verification code is serialized only for the customer and admin;
//   - counterparty contact info appears only once a provider is assigned,
//     and only for the two parties or an admin;
//   - each party sees the rating dimension relevant to them, admin sees both.
func Project(order *models.Order, viewer Actor, parties Parties) *OrderView {
	view := &OrderView{
		ID:               order.ID,
		CustomerID:       order.CustomerID,
		ProviderID:       order.ProviderID,
		ServiceKey:       order.ServiceKey,
		Title:            order.Title,
		Description:      order.Description,
		Address:          order.Address,
		Country:          order.Country,
		State:            order.State,
		LGA:              order.LGA,
		Price:            order.Price,
		PriceConfirmed:   order.PriceConfirmed,
		PriceConfirmedAt: order.PriceConfirmedAt,

		VerificationVerifiedAt: order.VerificationVerifiedAt,

		Status:   order.Status,
		Timeline: append([]types.TimelineEntry(nil), order.Timeline...),

		EscrowJobAmount:   order.EscrowJobAmount,
		EscrowPlatformFee: order.EscrowPlatformFee,
		EscrowTotal:       order.EscrowTotal,
		EscrowFundedAt:    order.EscrowFundedAt,
		EscrowReleasedAt:  order.EscrowReleasedAt,

		CustomerRating: order.CustomerRating,
		HandymanRating: order.HandymanRating,

		BeforeImageURLs: append([]string(nil), order.BeforeImageURLs...),
		AfterImageURLs:  append([]string(nil), order.AfterImageURLs...),

		ScheduledAt: order.ScheduledAt,
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.UpdatedAt,
	}

	isAdmin := viewer.Role == enums.RoleAdmin
	rel := relationOf(viewer, order)

	if isAdmin || rel == relationCustomer {
		code := order.VerificationCode
		view.VerificationCode = &code
	}

	if order.ProviderID != nil && (isAdmin || rel != relationNone) {
		if isAdmin || rel == relationCustomer {
			view.HandymanInfo = users.AsHandymanPublic(parties.Provider)
		}
		if isAdmin || rel == relationAssignedProvider {
			view.CustomerInfo = users.AsCustomerPublic(parties.Customer)
		}
	}

	return view
}
