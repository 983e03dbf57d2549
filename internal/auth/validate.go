package auth

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"placegrad/internal/models"
	"placegrad/internal/util"

	"github.com/go-playground/validator/v10"
)

var otpPattern = regexp.MustCompile(`^\d{6}$`)

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// LoginInput is the credential step request.
type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

// RegisterInput is a new-account request.
type RegisterInput struct {
	Username string         `json:"username" validate:"required,min=3,max=20"`
	Email    string         `json:"email" validate:"required,email"`
	Password string         `json:"password" validate:"required,min=6,max=72"`
	Role     string         `json:"role"`
	Profile  models.Profile `json:"profile" validate:"-"`
}

func validateLogin(in LoginInput) *Error {
	username := strings.TrimSpace(in.Username)
	switch {
	case username == "":
		return validationError(CodeValidation, "Username or email is required")
	case in.Password == "":
		return validationError(CodeValidation, "Password is required")
	case strings.Contains(username, "@"):
		if !util.ValidateEmail(username) {
			return validationError(CodeValidation, "Please enter a valid email address")
		}
	case len(username) < 3:
		return validationError(CodeValidation, "Username must be at least 3 characters long")
	case !util.ValidUsername(username):
		return validationError(CodeValidation, "Username can only contain letters, numbers, and underscores")
	}
	return nil
}

const passwordTooLong = "Password must be at most 72 bytes long"

var registerMessages = map[string]string{
	"Username.required": "Username is required",
	"Username.min":      "Username must be at least 3 characters long",
	"Username.max":      "Username must be less than 20 characters",
	"Email.required":    "Email is required",
	"Email.email":       "Please enter a valid email address",
	"Password.required": "Password is required",
	"Password.min":      "Password must be at least 6 characters long",
	"Password.max":      passwordTooLong,
}

func validateRegistration(in RegisterInput) *Error {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := util.Validator().Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			key := verrs[0].Field() + "." + verrs[0].Tag()
			if msg, ok := registerMessages[key]; ok {
				return validationError(CodeValidation, msg)
			}
		}
		return validationError(CodeValidation, "Invalid registration data")
	}
	if !util.ValidUsername(in.Username) {
		return validationError(CodeValidation, "Username can only contain letters, numbers, and underscores")
	}
	if len(in.Password) > MaxPasswordBytes {
		return validationError(CodeValidation, passwordTooLong)
	}
	if !hasLetter(in.Password) || !hasDigit(in.Password) {
		return validationError(CodeValidation, "Password must contain at least one letter and one number")
	}
	if err := util.Validator().Struct(in.Profile); err != nil {
		return validationError(CodeValidation, "Invalid profile data")
	}
	return nil
}

// checkResetPassword enforces length and character-class rules for a new
// password. Only ASCII letters and digits count towards the classes; special
// characters are allowed but not required.
func checkResetPassword(pw string) *Error {
	if utf8.RuneCountInString(pw) < 8 {
		return validationError(CodeWeakPassword, "Password must be at least 8 characters long")
	}
	if len(pw) > MaxPasswordBytes {
		return validationError(CodeWeakPassword, passwordTooLong)
	}
	var upper, lower, digit bool
	for _, r := range pw {
		switch {
		case 'A' <= r && r <= 'Z':
			upper = true
		case 'a' <= r && r <= 'z':
			lower = true
		case '0' <= r && r <= '9':
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return validationError(CodeWeakPassword, "Password must contain at least one uppercase letter, one lowercase letter, and one number")
	}
	return nil
}

func hasLetter(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool {
		return 'A' <= r && r <= 'Z' || 'a' <= r && r <= 'z'
	}) >= 0
}

func hasDigit(s string) bool {
	return strings.ContainsAny(s, "0123456789")
}
