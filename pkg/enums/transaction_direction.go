package enums

import "fmt"

// TransactionDirection marks whether funds entered or left a wallet.
type TransactionDirection string

const (
	TransactionDirectionIn  TransactionDirection = "in"
	TransactionDirectionOut TransactionDirection = "out"
)

// IsValid reports whether the value is a known TransactionDirection.
func (d TransactionDirection) IsValid() bool {
	return d == TransactionDirectionIn || d == TransactionDirectionOut
}

// ParseTransactionDirection converts raw input into a TransactionDirection.
func ParseTransactionDirection(value string) (TransactionDirection, error) {
	switch TransactionDirection(value) {
	case TransactionDirectionIn:
		return TransactionDirectionIn, nil
	case TransactionDirectionOut:
		return TransactionDirectionOut, nil
	}
	return "", fmt.Errorf("invalid transaction direction %q", value)
}
