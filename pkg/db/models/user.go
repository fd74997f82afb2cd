package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tundeabiodun/handyfix-backend/pkg/enums"
	"github.com/tundeabiodun/handyfix-backend/pkg/types"
)

// User represents the canonical identity entity. The wallet balance is
// denormalized here and must always equal the net sum of the user's
// transactions.
type User struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string     `gorm:"column:email;type:text;not null;uniqueIndex"`
	Username     string     `gorm:"column:username;type:text;not null;uniqueIndex"`
	PasswordHash string     `gorm:"column:password_hash;not null"`
	Role         enums.Role `gorm:"column:role;type:text;not null;default:'customer'"`
	FirstName    *string    `gorm:"column:first_name"`
	LastName     *string    `gorm:"column:last_name"`
	Phone        *string    `gorm:"column:phone"`
	Gender       *string    `gorm:"column:gender"`
	AvatarURL    *string    `gorm:"column:avatar_url"`

	ProviderProfile *types.ProviderProfile `gorm:"column:provider_profile;type:jsonb;serializer:json"`

	WalletBalance int64 `gorm:"column:wallet_balance;not null;default:0"`

	RatingAsCustomerAvg   float64 `gorm:"column:rating_as_customer_avg;not null;default:0"`
	RatingAsCustomerCount int     `gorm:"column:rating_as_customer_count;not null;default:0"`
	RatingAsHandymanAvg   float64 `gorm:"column:rating_as_handyman_avg;not null;default:0"`
	RatingAsHandymanCount int     `gorm:"column:rating_as_handyman_count;not null;default:0"`

	LastLoginAt *time.Time `gorm:"column:last_login_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
