package payments

import (
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Currencies Stripe charges in whole units.
var zeroDecimalCurrencies = map[string]struct{}{
	"bif": {}, "clp": {}, "djf": {}, "gnf": {}, "jpy": {}, "kmf": {}, "krw": {}, "mga": {},
	"pyg": {}, "rwf": {}, "ugx": {}, "vnd": {}, "vuv": {}, "xaf": {}, "xof": {}, "xpf": {},
}

// IsZeroDecimal reports whether the currency has no minor unit.
func IsZeroDecimal(currency string) bool {
	_, ok := zeroDecimalCurrencies[strings.ToLower(strings.TrimSpace(currency))]
	return ok
}

// ToMinorUnits converts a decimal amount into the integer unit Stripe expects,
// rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal, currency string) (int64, error) {
	if amount.IsNegative() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "amount must not be negative")
	}
	scaled := amount
	if !IsZeroDecimal(currency) {
		scaled = amount.Shift(2)
	}
	return scaled.Round(0).IntPart(), nil
}

// ResolveCurrency picks the first non-blank candidate, falling back to usd, and
// checks it is a three-letter code.
func ResolveCurrency(candidates ...string) (string, error) {
	currency := defaultCurrency
	for _, candidate := range candidates {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			currency = strings.ToLower(trimmed)
			break
		}
	}
	if len(currency) != 3 {
		return "", invalidCurrency(currency)
	}
	for _, r := range currency {
		if r < 'a' || r > 'z' {
			return "", invalidCurrency(currency)
		}
	}
	return currency, nil
}

const defaultCurrency = "usd"

func invalidCurrency(currency string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "currency must be a three-letter code").
		WithDetails(map[string]any{"currency": currency})
}
