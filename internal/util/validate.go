package util

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

var (
	validate        = validator.New()
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
)

// Validator exposes the shared validator instance for struct tags.
func Validator() *validator.Validate {
	return validate
}

// ValidateEmail reports whether email is a syntactically valid address.
func ValidateEmail(email string) bool {
	return validate.Var(email, "required,email") == nil
}

// ValidUsername reports whether s only uses letters, digits and underscores.
func ValidUsername(s string) bool {
	return usernamePattern.MatchString(s)
}

// SanitizeInput trims s and strips angle brackets.
func SanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.NewReplacer("<", "", ">", "").Replace(s)
}

// MaskEmail hides most of the local part: "alice@x.io" becomes "al***@x.io".
// Characters are counted in runes.
func MaskEmail(email string) string {
	if utf8.RuneCountInString(email) < 3 {
		return email
	}
	local, domain, ok := strings.Cut(email, "@")
	if !ok || domain == "" || local == "" {
		return email
	}
	keep := []rune(local)
	if len(keep) <= 2 {
		keep = keep[:1]
	} else {
		keep = keep[:2]
	}
	return string(keep) + "***@" + domain
}
