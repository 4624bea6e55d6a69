package utils

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// FormatWithCurrencyPrecision formats an amount with the display precision of
// the given ISO currency code.
// Example: amount 12.3456 with USD (fraction 2) returns "12.35"
// Example: amount 12.3456 with JPY (fraction 0) returns "12"
// Codes unknown to the currency table (crypto tickers and the like) keep
// their full precision.
func FormatWithCurrencyPrecision(amount decimal.Decimal, currencyCode string) string {
	cur := money.GetCurrency(currencyCode)
	if cur == nil {
		return amount.String()
	}
	return amount.Round(int32(cur.Fraction)).String()
}
