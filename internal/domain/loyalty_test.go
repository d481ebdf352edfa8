package domain

import "testing"

func TestTierForThresholds(t *testing.T) {
	cases := []struct {
		name   string
		orders int
		spent  string
		want   CustomerTier
	}{
		{"new client", 0, "0", TierBasic},
		{"just under silver", 2, "999.99", TierBasic},
		{"silver by orders", 3, "0", TierSilver},
		{"silver by spend", 1, "1000", TierSilver},
		{"gold by orders", 10, "0", TierGold},
		{"gold by spend", 1, "5000", TierGold},
		{"platinum by orders", 20, "0", TierPlatinum},
		{"platinum by spend", 1, "15000", TierPlatinum},
		{"platinum wins over gold", 25, "6000", TierPlatinum},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := TierFor(tc.orders, money(t, tc.spent))
			if got != tc.want {
				t.Fatalf("TierFor(%d, %s) = %s, want %s", tc.orders, tc.spent, got, tc.want)
			}
		})
	}
}

func TestLoyaltyDiscountRateActivation(t *testing.T) {
	cases := []struct {
		name     string
		tier     CustomerTier
		subtotal string
		want     string
	}{
		{"basic never discounts", TierBasic, "100000", "0"},
		{"silver below threshold", TierSilver, "499.99", "0"},
		{"silver at threshold", TierSilver, "500", "0.05"},
		{"gold below threshold", TierGold, "799.99", "0"},
		{"gold at threshold", TierGold, "800", "0.10"},
		{"platinum below minimum", TierPlatinum, "1199.99", "0"},
		{"platinum at minimum", TierPlatinum, "1200", "0.15"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := LoyaltyDiscountRate(tc.tier, money(t, tc.subtotal))
			assertAmount(t, "rate", got, tc.want)
		})
	}
}
