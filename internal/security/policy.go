package security

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode"
)

const (
	PasswordMinLen = 12
	PasswordMaxLen = 128
	EmailMaxLen    = 255
)

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]{3,32}$`)

// ValidUsername reports whether name is 3-32 characters of letters,
// digits, and underscore.
func ValidUsername(name string) bool {
	return usernameRe.MatchString(name)
}

// ValidEmail reports whether addr parses as a bare RFC 5322 address and
// fits the storage column.
func ValidEmail(addr string) bool {
	if addr == "" || len(addr) > EmailMaxLen {
		return false
	}
	parsed, err := mail.ParseAddress(addr)
	if err != nil {
		return false
	}
	// Reject display-name forms like "Alice <a@x.com>".
	return parsed.Address == addr
}

// ValidPasswordLength checks only the length bounds. Login uses this
// alone: a stored password must keep working even if the complexity
// policy tightens after it was registered.
func ValidPasswordLength(password string) bool {
	return len(password) >= PasswordMinLen && len(password) <= PasswordMaxLen
}

// ValidPasswordComplexity enforces the registration policy: length bounds
// plus at least one lowercase letter, uppercase letter, digit, and symbol.
func ValidPasswordComplexity(password string) bool {
	if !ValidPasswordLength(password) {
		return false
	}

	var lower, upper, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case !unicode.IsSpace(r):
			symbol = true
		}
	}
	return lower && upper && digit && symbol
}

// NormalizeIdentifier lowercases and trims a username or email for
// storage and lookup. All uniqueness is enforced on the normalized form.
func NormalizeIdentifier(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
