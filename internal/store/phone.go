package store

import "strings"

// FormatPhone normalizes a phone number: non-digits are dropped, and an
// 11+ digit number is rendered as XXX-XXXX-XXXX from its first 11 digits.
// Shorter inputs come back as bare digits.
func FormatPhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	num := b.String()
	if len(num) >= 11 {
		return num[:3] + "-" + num[3:7] + "-" + num[7:11]
	}
	return num
}
