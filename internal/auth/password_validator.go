package auth

import (
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	// MinPasswordLength is the minimum required password length
	MinPasswordLength = 6
	// MaxPasswordLength matches the 72 byte input limit of bcrypt, so any
	// password that validates can also be hashed
	MaxPasswordLength = 72
	// BcryptCost is the cost factor for bcrypt hashing
	BcryptCost = 12
)

// PasswordValidationError represents a specific password validation failure
type PasswordValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// PasswordValidator handles password validation and hashing
type PasswordValidator struct{}

// NewPasswordValidator creates a new PasswordValidator instance
func NewPasswordValidator() *PasswordValidator {
	return &PasswordValidator{}
}

// ValidatePassword checks if a password meets the strength requirements.
// Returns a list of validation errors (empty if password is valid).
func (v *PasswordValidator) ValidatePassword(password string) []PasswordValidationError {
	var errs []PasswordValidationError

	if len(password) < MinPasswordLength {
		errs = append(errs, PasswordValidationError{
			Field:   "password",
			Message: "Password must be at least 6 characters long",
		})
	}
	if len(password) > MaxPasswordLength {
		errs = append(errs, PasswordValidationError{
			Field:   "password",
			Message: "Password too long",
		})
	}

	var hasDigit, hasOther bool
	for _, char := range password {
		if unicode.IsDigit(char) {
			hasDigit = true
		} else {
			hasOther = true
		}
	}

	if len(password) > 0 && !hasOther {
		errs = append(errs, PasswordValidationError{
			Field:   "password",
			Message: "Password cannot be all numbers",
		})
	}
	if !hasDigit {
		errs = append(errs, PasswordValidationError{
			Field:   "password",
			Message: "Password must contain at least one number",
		})
	}

	return errs
}

// IsValidPassword returns true if the password meets all requirements
func (v *PasswordValidator) IsValidPassword(password string) bool {
	return len(v.ValidatePassword(password)) == 0
}

// HashPassword creates a bcrypt hash of the password
func (v *PasswordValidator) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares a password with its bcrypt hash.
// Returns nil if they match, error otherwise.
func (v *PasswordValidator) VerifyPassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
