package enums

import "fmt"

// TransactionType classifies an immutable wallet ledger entry.
type TransactionType string

const (
	TransactionTypeTopup       TransactionType = "topup"
	TransactionTypeEscrowDebit TransactionType = "escrow_debit"
	TransactionTypePayout      TransactionType = "payout"
	TransactionTypePlatformFee TransactionType = "platform_fee"
	TransactionTypeRefund      TransactionType = "refund"
	TransactionTypeAdjustment  TransactionType = "adjustment"
)

var validTransactionTypes = []TransactionType{
	TransactionTypeTopup,
	TransactionTypeEscrowDebit,
	TransactionTypePayout,
	TransactionTypePlatformFee,
	TransactionTypeRefund,
	TransactionTypeAdjustment,
}

// IsValid reports whether the value is a known TransactionType.
func (t TransactionType) IsValid() bool {
	for _, candidate := range validTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTransactionType converts raw input into a TransactionType.
func ParseTransactionType(value string) (TransactionType, error) {
	for _, candidate := range validTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction type %q", value)
}
