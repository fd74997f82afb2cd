package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tundeabiodun/handyfix-backend/pkg/db/models"
	"github.com/tundeabiodun/handyfix-backend/pkg/enums"
	"github.com/tundeabiodun/handyfix-backend/pkg/types"
)

func setupUsersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  username TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'customer',
  first_name TEXT,
  last_name TEXT,
  phone TEXT,
  gender TEXT,
  avatar_url TEXT,
  provider_profile TEXT,
  wallet_balance INTEGER NOT NULL DEFAULT 0,
  rating_as_customer_avg REAL NOT NULL DEFAULT 0,
  rating_as_customer_count INTEGER NOT NULL DEFAULT 0,
  rating_as_handyman_avg REAL NOT NULL DEFAULT 0,
  rating_as_handyman_count INTEGER NOT NULL DEFAULT 0,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func seedUser(t *testing.T, db *gorm.DB, role enums.Role) *models.User {
	t.Helper()

	user := &models.User{
		ID:           uuid.New(),
		Email:        uuid.NewString() + "@example.com",
		Username:     uuid.NewString(),
		PasswordHash: "x",
		Role:         role,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestRepository_CreateAndFind(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, CreateUserDTO{
		Email:        "ada@example.com",
		Username:     "ada",
		PasswordHash: "hash",
		Role:         enums.RoleProvider,
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)

	byEmail, err := repo.FindByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	byUsername, err := repo.FindByUsername(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byUsername.ID)

	_, err = repo.FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepository_ProviderProfileRoundTrip(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	provider := seedUser(t, db, enums.RoleProvider)

	profile := &types.ProviderProfile{
		Country:   "Nigeria",
		State:     "Lagos",
		LGA:       "Ikeja",
		Skills:    []string{"plumbing"},
		Available: true,
	}
	require.NoError(t, repo.UpdateProviderProfile(ctx, provider.ID, profile))

	reloaded, err := repo.FindByID(ctx, provider.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.ProviderProfile)
	assert.Equal(t, "Ikeja", reloaded.ProviderProfile.LGA)
	assert.True(t, reloaded.ProviderProfile.Available)
	assert.Equal(t, []string{"plumbing"}, reloaded.ProviderProfile.Skills)
}

func TestRepository_ApplyRatingRunningMean(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	provider := seedUser(t, db, enums.RoleProvider)

	require.NoError(t, repo.ApplyHandymanRating(ctx, provider.ID, 5))
	require.NoError(t, repo.ApplyHandymanRating(ctx, provider.ID, 4))
	require.NoError(t, repo.ApplyHandymanRating(ctx, provider.ID, 3))

	reloaded, err := repo.FindByID(ctx, provider.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, reloaded.RatingAsHandymanCount)
	assert.InDelta(t, 4.0, reloaded.RatingAsHandymanAvg, 1e-9)

	// the customer dimension stays untouched
	assert.Equal(t, 0, reloaded.RatingAsCustomerCount)
	assert.Zero(t, reloaded.RatingAsCustomerAvg)
}

func TestRepository_ApplyRatingUnknownUser(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)

	err := repo.ApplyCustomerRating(context.Background(), uuid.New(), 5)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepository_ListFiltersByRole(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seedUser(t, db, enums.RoleCustomer)
	seedUser(t, db, enums.RoleProvider)
	seedUser(t, db, enums.RoleProvider)

	role := enums.RoleProvider
	providers, err := repo.List(ctx, &role, 0, 0)
	require.NoError(t, err)
	assert.Len(t, providers, 2)

	everyone, err := repo.List(ctx, nil, 0, 0)
	require.NoError(t, err)
	assert.Len(t, everyone, 3)
}
