package domain

import (
	"net/mail"
	"strings"
)

// NormalizeEmail lower-cases the address and replaces every character
// outside [a-z0-9] with an underscore.
func NormalizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	var b strings.Builder
	b.Grow(len(email))
	for _, r := range email {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
	}
	return b.String()
}

func BookingKey(sessionID, email string) string {
	return sessionID + "_" + NormalizeEmail(email)
}

func WaitlistKey(email string) string {
	return NormalizeEmail(email)
}

// Validate checks the fields a reservation requires.
func (m Member) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return ErrInvalidMember
	}
	email := strings.TrimSpace(m.Email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidMember
	}
	if m.Age <= 0 {
		return ErrInvalidMember
	}
	return nil
}
