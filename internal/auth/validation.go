package auth

import (
	"fmt"
	"strings"
)

// NormalizeEmail trims and lower-cases an address. Every read and write of a
// principal's email goes through it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EmailDomain returns the part after the last @, or "" when there is none.
func EmailDomain(email string) string {
	i := strings.LastIndex(email, "@")
	if i < 0 || i == len(email)-1 {
		return ""
	}
	return email[i+1:]
}

// ValidateEmail validates email format (basic RFC 5322 check)
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email is empty")
	}

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return fmt.Errorf("invalid email format: expected exactly one @")
	}

	if parts[0] == "" {
		return fmt.Errorf("invalid email format: empty local part")
	}
	if parts[1] == "" {
		return fmt.Errorf("invalid email format: empty domain")
	}
	if !strings.Contains(parts[1], ".") {
		return fmt.Errorf("invalid email format: domain missing TLD")
	}

	return nil
}
