package controllers

import (
	"net/http"

	"github.com/tundeabiodun/handyfix-backend/api/responses"
	"github.com/tundeabiodun/handyfix-backend/internal/marketplace"
	pkgerrors "github.com/tundeabiodun/handyfix-backend/pkg/errors"
	"github.com/tundeabiodun/handyfix-backend/pkg/logger"
)

// MarketplaceList returns open orders the calling provider could take on.
func MarketplaceList(svc marketplace.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "marketplace service unavailable"))
			return
		}

		actor, err := actorFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		views, err := svc.List(ctx, actor)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, views)
	}
}
