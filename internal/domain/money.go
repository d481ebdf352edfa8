package domain

import "github.com/shopspring/decimal"

// Monetary amounts are carried as arbitrary-precision decimals and rounded to
// two places (half up) at every published boundary.

// TaxRate is the TVA rate applied to the discounted total of every order.
var TaxRate = decimal.New(20, -2)

// PromoDiscountRate is the flat rate granted by a valid promo code.
var PromoDiscountRate = decimal.New(5, -2)

// CashPaymentCeiling is the maximum single payment amount accepted in cash.
var CashPaymentCeiling = decimal.New(20000, 0)

// RoundMoney normalises an amount to two decimal places, rounding half up.
func RoundMoney(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// MoneyEqual compares two amounts ignoring exponent representation.
func MoneyEqual(a, b decimal.Decimal) bool {
	return a.Cmp(b) == 0
}

// IsMoneyZero reports whether the amount equals zero at any scale.
func IsMoneyZero(amount decimal.Decimal) bool {
	return amount.IsZero()
}
