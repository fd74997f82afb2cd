package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tundeabiodun/handyfix-backend/pkg/enums"
)

// Transaction records an immutable wallet ledger entry. Rows are only ever
// inserted; amounts are non-negative with direction carried separately.
type Transaction struct {
	ID        uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID                  `gorm:"column:user_id;type:uuid;not null;index"`
	Direction enums.TransactionDirection `gorm:"column:direction;type:text;not null"`
	Type      enums.TransactionType      `gorm:"column:type;type:text;not null;index"`
	Amount    int64                      `gorm:"column:amount;not null"`
	Currency  enums.Currency             `gorm:"column:currency;type:text;not null;default:'NGN'"`
	Ref       *string                    `gorm:"column:ref;index"`
	CreatedAt time.Time                  `gorm:"column:created_at;autoCreateTime"`
}

// Signed returns the balance effect of the entry: positive for credits,
// negative for debits.
func (t *Transaction) Signed() int64 {
	if t.Direction == enums.TransactionDirectionOut {
		return -t.Amount
	}
	return t.Amount
}
