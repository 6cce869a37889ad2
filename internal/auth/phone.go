package auth

import "strings"

// NormalizePhone keeps a leading + and strips every other non-digit.
// It returns ErrInvalidPhone when no digits remain.
func NormalizePhone(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	var b strings.Builder
	if strings.HasPrefix(phone, "+") {
		b.WriteByte('+')
		phone = phone[1:]
	}
	digits := 0
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			digits++
		}
	}
	if digits == 0 {
		return "", ErrInvalidPhone
	}
	return b.String(), nil
}

// MaskPhone masks a phone number for logging (e.g., +9**********67)
func MaskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return phone[:2] + strings.Repeat("*", len(phone)-4) + phone[len(phone)-2:]
}
