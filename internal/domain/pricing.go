package domain

import "github.com/shopspring/decimal"

// PricingBreakdown captures the monetary results of pricing an order.
// All amounts are rounded to two decimal places.
type PricingBreakdown struct {
	Subtotal        Amount
	LoyaltyDiscount Amount
	PromoDiscount   Amount
	TotalHT         Amount
	TaxAmount       Amount
	TotalTTC        Amount
}

// Amount aliases the decimal type used for every monetary field.
type Amount = decimal.Decimal

// PriceOrder computes the full breakdown for the given priced items.
// The loyalty discount derives from the client tier and the subtotal, the
// promo discount is the flat rate applied when a valid code is attached,
// and TVA applies to the discounted total.
func PriceOrder(items []OrderItem, tier CustomerTier, promoApplied bool) PricingBreakdown {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	subtotal = RoundMoney(subtotal)

	loyalty := RoundMoney(subtotal.Mul(LoyaltyDiscountRate(tier, subtotal)))

	promo := decimal.Zero
	if promoApplied {
		promo = RoundMoney(subtotal.Mul(PromoDiscountRate))
	}

	totalHT := subtotal.Sub(loyalty).Sub(promo)
	tax := RoundMoney(totalHT.Mul(TaxRate))
	totalTTC := totalHT.Add(tax)

	return PricingBreakdown{
		Subtotal:        subtotal,
		LoyaltyDiscount: loyalty,
		PromoDiscount:   promo,
		TotalHT:         totalHT,
		TaxAmount:       tax,
		TotalTTC:        totalTTC,
	}
}

// PriceLine returns the rounded extended amount for one order line.
func PriceLine(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return RoundMoney(unitPrice.Mul(decimal.NewFromInt(int64(quantity))))
}
