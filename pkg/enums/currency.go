package enums

import "fmt"

// Currency is the wallet currency. The ledger is single-currency today.
type Currency string

const (
	CurrencyNGN Currency = "NGN"
)

// IsValid reports whether the value is a known Currency.
func (c Currency) IsValid() bool {
	return c == CurrencyNGN
}

// ParseCurrency converts raw input into a Currency.
func ParseCurrency(value string) (Currency, error) {
	if Currency(value) == CurrencyNGN {
		return CurrencyNGN, nil
	}
	return "", fmt.Errorf("invalid currency %q", value)
}
