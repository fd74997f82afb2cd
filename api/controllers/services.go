package controllers

import (
	"net/http"

	"github.com/tundeabiodun/handyfix-backend/api/responses"
	"github.com/tundeabiodun/handyfix-backend/pkg/catalog"
)

// ServicesCatalog returns the static service catalog.
func ServicesCatalog() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, catalog.List())
	}
}
