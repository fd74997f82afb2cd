package orders

import (
	"github.com/google/uuid"

	"github.com/tundeabiodun/handyfix-backend/pkg/enums"
)

// Actor identifies the authenticated caller of a lifecycle operation.
type Actor struct {
	ID   uuid.UUID
	Role enums.Role
}

// CreateOrderInput is the payload a customer submits to request a job.
type CreateOrderInput struct {
	ServiceKey  string  `json:"serviceKey" validate:"required"`
	Title       string  `json:"title" validate:"required,max=120"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	Address     *string `json:"address,omitempty" validate:"omitempty,max=300"`
	Country     string  `json:"country" validate:"required"`
	State       string  `json:"state" validate:"required"`
	LGA         string  `json:"lga" validate:"required"`
	Price       int64   `json:"price" validate:"required,gt=0"`
	ScheduledAt *string `json:"scheduledAt,omitempty"`
}

// StartInput carries the multipart pieces of a start request. Photo holds
// the raw file bytes; the verification code comes from the customer by
// word of mouth.
type StartInput struct {
	VerificationCode string
	Photo            []byte
}

// CompleteInput carries the after photo proving the work was done.
type CompleteInput struct {
	Photo []byte
}

// RateInput is one party's one-shot review of the other.
type RateInput struct {
	Stars int    `json:"stars" validate:"required,min=1,max=5"`
	Note  string `json:"note" validate:"max=500"`
}

// SetStatusInput is the generic status override payload.
type SetStatusInput struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note" validate:"max=500"`
}
