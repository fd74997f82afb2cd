package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/tundeabiodun/handyfix-backend/pkg/db/models"
	"github.com/tundeabiodun/handyfix-backend/pkg/enums"
	"github.com/tundeabiodun/handyfix-backend/pkg/types"
)

// RatingSummary is one aggregate dimension of a user's ratings.
type RatingSummary struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// Ratings groups both dimensions. Customers are rated by providers and vice
// versa, so the two never mix.
type Ratings struct {
	AsCustomer RatingSummary `json:"asCustomer"`
	AsHandyman RatingSummary `json:"asHandyman"`
}

// UserDTO is the transport shape the owner (or an admin) sees. Credentials
// never leave the model.
type UserDTO struct {
	ID              uuid.UUID              `json:"_id"`
	Email           string                 `json:"email"`
	Username        string                 `json:"username"`
	Role            enums.Role             `json:"role"`
	FirstName       *string                `json:"firstName,omitempty"`
	LastName        *string                `json:"lastName,omitempty"`
	Phone           *string                `json:"phone,omitempty"`
	Gender          *string                `json:"gender,omitempty"`
	AvatarURL       *string                `json:"avatarUrl,omitempty"`
	ProviderProfile *types.ProviderProfile `json:"providerProfile,omitempty"`
	WalletBalance   int64                  `json:"walletBalance"`
	Ratings         Ratings                `json:"ratings"`
	LastLoginAt     *time.Time             `json:"lastLoginAt,omitempty"`
	CreatedAt       time.Time              `json:"createdAt"`
	UpdatedAt       time.Time              `json:"updatedAt"`
}

// PublicUserDTO is what a counterparty on an order sees. Contact details are
// included because the two sides coordinate the visit directly; only the
// rating dimension relevant to the viewer's relationship is exposed.
type PublicUserDTO struct {
	ID        uuid.UUID     `json:"_id"`
	Username  string        `json:"username"`
	FirstName *string       `json:"firstName,omitempty"`
	LastName  *string       `json:"lastName,omitempty"`
	Phone     *string       `json:"phone,omitempty"`
	AvatarURL *string       `json:"avatarUrl,omitempty"`
	Rating    RatingSummary `json:"rating"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email        string
	Username     string
	PasswordHash string
	Role         enums.Role
	FirstName    *string
	LastName     *string
	Phone        *string
	Gender       *string
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:              u.ID,
		Email:           u.Email,
		Username:        u.Username,
		Role:            u.Role,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		Phone:           u.Phone,
		Gender:          u.Gender,
		AvatarURL:       u.AvatarURL,
		ProviderProfile: u.ProviderProfile,
		WalletBalance:   u.WalletBalance,
		Ratings: Ratings{
			AsCustomer: RatingSummary{Average: u.RatingAsCustomerAvg, Count: u.RatingAsCustomerCount},
			AsHandyman: RatingSummary{Average: u.RatingAsHandymanAvg, Count: u.RatingAsHandymanCount},
		},
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// AsCustomerPublic projects the user as the customer side of an order.
func AsCustomerPublic(u *models.User) *PublicUserDTO {
	if u == nil {
		return nil
	}
	dto := publicBase(u)
	dto.Rating = RatingSummary{Average: u.RatingAsCustomerAvg, Count: u.RatingAsCustomerCount}
	return dto
}

// AsHandymanPublic projects the user as the provider side of an order.
func AsHandymanPublic(u *models.User) *PublicUserDTO {
	if u == nil {
		return nil
	}
	dto := publicBase(u)
	dto.Rating = RatingSummary{Average: u.RatingAsHandymanAvg, Count: u.RatingAsHandymanCount}
	return dto
}

func publicBase(u *models.User) *PublicUserDTO {
	return &PublicUserDTO{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
		AvatarURL: u.AvatarURL,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	return &models.User{
		Email:        c.Email,
		Username:     c.Username,
		PasswordHash: c.PasswordHash,
		Role:         c.Role,
		FirstName:    c.FirstName,
		LastName:     c.LastName,
		Phone:        c.Phone,
		Gender:       c.Gender,
	}
}
