package controllers

import (
	"context"

	"github.com/google/uuid"

	"github.com/tundeabiodun/handyfix-backend/api/middleware"
	"github.com/tundeabiodun/handyfix-backend/internal/orders"
	"github.com/tundeabiodun/handyfix-backend/pkg/enums"
	pkgerrors "github.com/tundeabiodun/handyfix-backend/pkg/errors"
)

// actorFromContext rebuilds the authenticated actor from the claims seeded
// by the auth middleware.
func actorFromContext(ctx context.Context) (orders.Actor, error) {
	userID, err := uuid.Parse(middleware.UserIDFromContext(ctx))
	if err != nil {
		return orders.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	role, err := enums.ParseRole(middleware.RoleFromContext(ctx))
	if err != nil {
		return orders.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return orders.Actor{ID: userID, Role: role}, nil
}
