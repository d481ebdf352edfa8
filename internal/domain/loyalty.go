package domain

import "github.com/shopspring/decimal"

// Tier thresholds. A client qualifies for a tier by order count or by
// cumulative spend, whichever is reached first.
var (
	platinumOrders = 20
	platinumSpent  = decimal.New(15000, 0)
	goldOrders     = 10
	goldSpent      = decimal.New(5000, 0)
	silverOrders   = 3
	silverSpent    = decimal.New(1000, 0)
)

// Loyalty discount rates and the minimum subtotal that activates each.
var (
	silverRate      = decimal.New(5, -2)
	silverThreshold = decimal.New(500, 0)
	goldRate        = decimal.New(10, -2)
	goldThreshold   = decimal.New(800, 0)
	platinumRate    = decimal.New(15, -2)
	platinumMinimum = decimal.New(1200, 0)
)

// TierFor derives the loyalty tier from a client's lifetime statistics.
func TierFor(totalOrders int, totalSpent decimal.Decimal) CustomerTier {
	switch {
	case totalOrders >= platinumOrders || totalSpent.Cmp(platinumSpent) >= 0:
		return TierPlatinum
	case totalOrders >= goldOrders || totalSpent.Cmp(goldSpent) >= 0:
		return TierGold
	case totalOrders >= silverOrders || totalSpent.Cmp(silverSpent) >= 0:
		return TierSilver
	default:
		return TierBasic
	}
}

// LoyaltyDiscountRate returns the discount rate a tier earns on the given
// subtotal. The rate is zero when the subtotal is below the tier's
// activation threshold or the tier carries no discount.
func LoyaltyDiscountRate(tier CustomerTier, subtotal decimal.Decimal) decimal.Decimal {
	switch tier {
	case TierPlatinum:
		if subtotal.Cmp(platinumMinimum) >= 0 {
			return platinumRate
		}
	case TierGold:
		if subtotal.Cmp(goldThreshold) >= 0 {
			return goldRate
		}
	case TierSilver:
		if subtotal.Cmp(silverThreshold) >= 0 {
			return silverRate
		}
	}
	return decimal.Zero
}
