package orders

import (
	"github.com/google/uuid"

	"github.com/tundeabiodun/handyfix-backend/pkg/db/models"
	"github.com/tundeabiodun/handyfix-backend/pkg/enums"
	"github.com/tundeabiodun/handyfix-backend/pkg/errors"
)

// relation is the caller's ownership relationship to an order.
type relation int

const (
	relationNone relation = iota
	relationCustomer
	relationAssignedProvider
)

// operation names an authorizable lifecycle action.
type operation int

const (
	opView operation = iota
	opAccept
	opConfirmPrice
	opStart
	opComplete
	opCancel
	opSetStatus
	opRate
)

type authzKey struct {
	role     enums.Role
	relation relation
}

// allowTable is the single source of truth for who may do what. Viewing by
// unrelated providers has an extra marketplace-match carve-out handled in
// the service; everything else resolves here.
var allowTable = map[operation]map[authzKey]bool{
	opView: {
		{enums.RoleAdmin, relationNone}:                true,
		{enums.RoleAdmin, relationCustomer}:            true,
		{enums.RoleAdmin, relationAssignedProvider}:    true,
		{enums.RoleCustomer, relationCustomer}:         true,
		{enums.RoleProvider, relationAssignedProvider}: true,
	},
	opAccept: {
		{enums.RoleProvider, relationNone}: true,
		{enums.RoleAdmin, relationNone}:    true,
	},
	opConfirmPrice: {
		{enums.RoleProvider, relationAssignedProvider}: true,
	},
	opStart: {
		{enums.RoleProvider, relationAssignedProvider}: true,
	},
	opComplete: {
		{enums.RoleProvider, relationAssignedProvider}: true,
	},
	opCancel: {
		{enums.RoleCustomer, relationCustomer}:      true,
		{enums.RoleAdmin, relationNone}:             true,
		{enums.RoleAdmin, relationCustomer}:         true,
		{enums.RoleAdmin, relationAssignedProvider}: true,
	},
	opSetStatus: {
		{enums.RoleAdmin, relationNone}:             true,
		{enums.RoleAdmin, relationCustomer}:         true,
		{enums.RoleAdmin, relationAssignedProvider}: true,
	},
	opRate: {
		{enums.RoleCustomer, relationCustomer}:         true,
		{enums.RoleProvider, relationAssignedProvider}: true,
	},
}

// relationOf resolves the actor's relationship to the order.
func relationOf(actor Actor, order *models.Order) relation {
	switch {
	case order.CustomerID == actor.ID:
		return relationCustomer
	case order.ProviderID != nil && *order.ProviderID == actor.ID:
		return relationAssignedProvider
	default:
		return relationNone
	}
}

// authorize checks the allow table once per operation.
func authorize(actor Actor, order *models.Order, op operation) error {
	if !actor.Role.IsValid() || actor.ID == uuid.Nil {
		return errors.New(errors.CodeUnauthorized, "authentication required")
	}
	key := authzKey{role: actor.Role, relation: relationOf(actor, order)}
	if allowTable[op][key] {
		return nil
	}
	return errors.New(errors.CodeForbidden, "not allowed to perform this action")
}
