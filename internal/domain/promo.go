package domain

import "regexp"

// Promo codes follow the fixed PROMO-XXXX shape where X is an uppercase
// letter or digit.
var promoCodePattern = regexp.MustCompile(`^PROMO-[A-Z0-9]{4}$`)

// ValidPromoCode reports whether the code matches the accepted format.
func ValidPromoCode(code string) bool {
	return promoCodePattern.MatchString(code)
}
