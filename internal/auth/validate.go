package auth

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	minPasswordLength = 6
	// bcrypt refuses longer input.
	maxPasswordBytes = 72

	// Column widths of users.name and users.email.
	maxNameLength  = 100
	maxEmailLength = 120
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func validEmail(email string) bool {
	return emailPattern.MatchString(email)
}

func validPassword(password string) bool {
	return len(password) >= minPasswordLength
}

func passwordFits(password string) bool {
	return len(password) <= maxPasswordBytes
}

func fits(s string, limit int) bool {
	return utf8.RuneCountInString(s) <= limit
}

// allPresent reports whether every value is non-empty after trimming.
func allPresent(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}
