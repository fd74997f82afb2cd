package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tundeabiodun/handyfix-backend/pkg/db/models"
	"github.com/tundeabiodun/handyfix-backend/pkg/enums"
)

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	users := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL,
  username TEXT NOT NULL,
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
	transactions := `
CREATE TABLE IF NOT EXISTS transactions (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  direction TEXT NOT NULL,
  type TEXT NOT NULL,
  amount INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'NGN',
  ref TEXT,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(users).Error)
	require.NoError(t, db.Exec(transactions).Error)
	return db
}

func newWalletUser(t *testing.T, db *gorm.DB, balance int64) *models.User {
	t.Helper()

	user := &models.User{
		ID:            uuid.New(),
		Email:         uuid.NewString() + "@example.com",
		Username:      uuid.NewString(),
		PasswordHash:  "x",
		Role:          enums.RoleCustomer,
		WalletBalance: balance,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestRepository_DebitWalletGuard(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	user := newWalletUser(t, db, 1000)

	ok, err := repo.DebitWallet(ctx, user.ID, 600)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.DebitWallet(ctx, user.ID, 600)
	require.NoError(t, err)
	assert.False(t, ok, "second debit exceeds remaining balance")

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, "id = ?", user.ID).Error)
	assert.Equal(t, int64(400), reloaded.WalletBalance)
}

func TestRepository_CreditWalletUnknownUser(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)

	err := repo.CreditWallet(context.Background(), uuid.New(), 100)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepository_ListByUserNewestFirst(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	user := newWalletUser(t, db, 0)
	other := newWalletUser(t, db, 0)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, amount := range []int64{100, 200, 300} {
		entry := &models.Transaction{
			ID:        uuid.New(),
			UserID:    user.ID,
			Direction: enums.TransactionDirectionIn,
			Type:      enums.TransactionTypeTopup,
			Amount:    amount,
			Currency:  enums.CurrencyNGN,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Create(ctx, entry))
	}
	require.NoError(t, repo.Create(ctx, &models.Transaction{
		ID:        uuid.New(),
		UserID:    other.ID,
		Direction: enums.TransactionDirectionIn,
		Type:      enums.TransactionTypeTopup,
		Amount:    999,
		Currency:  enums.CurrencyNGN,
	}))

	entries, err := repo.ListByUser(ctx, user.ID, 2, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(300), entries[0].Amount)
	assert.Equal(t, int64(200), entries[1].Amount)

	rest, err := repo.ListByUser(ctx, user.ID, 2, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, int64(100), rest[0].Amount)
}
