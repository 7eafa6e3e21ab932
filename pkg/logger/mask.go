package logger

import (
	"strings"

	"go.uber.org/zap"
)

// MaskEmail creates a zap field with the local part of an email masked.
// Example: jane.doe@example.com -> j•••@example.com
func MaskEmail(key, email string) zap.Field {
	return zap.String(key, maskEmail(email))
}

// MaskPhone creates a zap field that masks all but the last four digits.
func MaskPhone(key, phone string) zap.Field {
	if len(phone) > 4 {
		return zap.String(key, strings.Repeat("•", len(phone)-4)+phone[len(phone)-4:])
	}
	return zap.String(key, strings.Repeat("•", len(phone)))
}

func maskEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 0 {
		return email
	}
	return email[:1] + "•••" + email[at:]
}
