package redact

// Payment-card numbers in the wild are 13–19 digits; anything outside that
// range is rejected before the checksum is attempted.
const (
	minCardDigits = 13
	maxCardDigits = 19
)

// ValidLuhn reports whether s contains a plausible payment-card number.
//
// Only decimal digits in s are considered; every other character is
// discarded. When fewer than 13 or more than 19 digits remain the check
// fails closed and ValidLuhn returns false. Otherwise the standard Luhn
// mod-10 checksum is computed over the digits, doubling every second digit
// from the right and subtracting 9 from doubled values above 9.
func ValidLuhn(s string) bool {
	var digits []int
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits = append(digits, int(r-'0'))
		}
	}
	if len(digits) < minCardDigits || len(digits) > maxCardDigits {
		return false
	}

	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := digits[i]
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
