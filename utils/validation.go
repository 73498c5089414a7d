package utils

import "fmt"

const defaultAllowedChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_-:.@+"

// allowedCharsArray is a precomputed lookup table for the default character set
var allowedCharsArray [128]bool

func init() {
	for _, c := range defaultAllowedChars {
		allowedCharsArray[c] = true
	}
}

// ValidationOptions defines the validation rules for a string
type ValidationOptions struct {
	FieldName              string // Name of the field for error messages
	MaxLength              int    // Maximum allowed length in bytes
	MinLength              int    // Minimum allowed length (0 means no minimum)
	EmptyAllowed           bool   // Whether empty strings are allowed
	AdditionalAllowedChars string // Additional ASCII characters beyond the default set
}

// ValidateString validates a string against the given options
func ValidateString(value string, opts ValidationOptions) error {
	if len(value) == 0 {
		if opts.EmptyAllowed {
			return nil
		}
		return fmt.Errorf("%s cannot be empty", opts.FieldName)
	}

	if opts.MinLength > 0 && len(value) < opts.MinLength {
		return fmt.Errorf("%s must be at least %d characters, got %d", opts.FieldName, opts.MinLength, len(value))
	}

	if opts.MaxLength > 0 && len(value) > opts.MaxLength {
		return fmt.Errorf("%s cannot exceed %d bytes, got %d bytes", opts.FieldName, opts.MaxLength, len(value))
	}

	const hint = "Only alphanumeric ASCII, underscore (_), hyphen (-), colon (:), period (.), at (@), and plus (+) are allowed"

	allowed := allowedCharsArray
	for _, c := range opts.AdditionalAllowedChars {
		if c < 128 {
			allowed[c] = true
		}
	}

	for i, r := range value {
		if r >= 128 || !allowed[r] {
			return fmt.Errorf("%s contains invalid character '%c' at position %d. %s", opts.FieldName, r, i, hint)
		}
	}

	return nil
}

// ValidateKey validates a storage base key
func ValidateKey(key string) error {
	return ValidateString(key, ValidationOptions{
		FieldName: "key",
		MaxLength: 64,
		MinLength: 1,
	})
}

// ValidateAccount validates an account identifier used inside storage keys
func ValidateAccount(account string) error {
	return ValidateString(account, ValidationOptions{
		FieldName: "account",
		MaxLength: 128,
		MinLength: 1,
	})
}
