package marketplace

import (
	"context"
	stdErrors "errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/tundeabiodun/handyfix-backend/internal/orders"
	"github.com/tundeabiodun/handyfix-backend/internal/users"
	"github.com/tundeabiodun/handyfix-backend/pkg/enums"
	"github.com/tundeabiodun/handyfix-backend/pkg/errors"
)

// Service answers the provider-facing marketplace query: open orders the
// calling provider could take on.
type Service interface {
	List(ctx context.Context, actor orders.Actor) ([]orders.OrderView, error)
}

type service struct {
	orders orders.Repository
	users  users.Repository
}

// NewService wires the marketplace query with its repositories.
func NewService(ordersRepo orders.Repository, usersRepo users.Repository) (Service, error) {
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if usersRepo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &service{orders: ordersRepo, users: usersRepo}, nil
}

// List returns unassigned requested orders matching the provider's location
// and skills, newest first, capped at 50. An unavailable provider sees an
// empty list; an incomplete profile is a configuration error.
func (s *service) List(ctx context.Context, actor orders.Actor) ([]orders.OrderView, error) {
	if actor.Role != enums.RoleProvider {
		return nil, errors.New(errors.CodeForbidden, "marketplace is for providers")
	}

	provider, err := s.users.FindByID(ctx, actor.ID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "user not found")
		}
		return nil, errors.Wrap(errors.CodeInternal, err, "load provider")
	}

	profile := provider.ProviderProfile
	if !profile.IsComplete() {
		return nil, errors.New(errors.CodePrecondition,
			"complete your provider profile (location and skills) to browse the marketplace")
	}
	if !profile.Available {
		return []orders.OrderView{}, nil
	}

	records, err := s.orders.ListMarketplace(ctx, orders.MarketplaceMatch{
		Country: profile.Country,
		State:   profile.State,
		LGA:     profile.LGA,
		Skills:  profile.Skills,
	})
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "query marketplace")
	}

	views := make([]orders.OrderView, 0, len(records))
	for i := range records {
		views = append(views, *orders.Project(&records[i], actor, orders.Parties{}))
	}
	return views, nil
}
