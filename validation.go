package rsajwt

import (
	"fmt"
	"strings"
)

// validateTokenSize rejects empty and oversized tokens before decoding
func validateTokenSize(tokenString string, maxLength int) error {
	if len(tokenString) == 0 {
		return ErrEmptyToken
	}
	if len(tokenString) > maxLength {
		return fmt.Errorf("%w: %d characters, maximum %d", ErrTokenTooLarge, len(tokenString), maxLength)
	}
	return nil
}

// validateHeaderField checks a value that is written verbatim into every
// header. It must stay a plain printable ASCII JSON string.
func validateHeaderField(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return &ValidationError{
			Field:   fieldName,
			Message: fmt.Sprintf("too long: maximum %d characters", maxLength),
		}
	}

	if i := strings.IndexFunc(value, func(r rune) bool {
		return r < 0x20 || r >= 0x7f || r == '"' || r == '\\'
	}); i >= 0 {
		return &ValidationError{
			Field:   fieldName,
			Message: fmt.Sprintf("invalid character at position %d", i),
		}
	}

	if containsDangerousPattern(value) {
		return &ValidationError{
			Field:   fieldName,
			Message: "contains suspicious pattern",
		}
	}

	return nil
}

var dangerousPatterns = [...]string{
	"<script", "javascript:", "data:", "eval(", "../", "file://", "vbscript:",
}

func containsDangerousPattern(value string) bool {
	lower := strings.ToLower(value)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}
