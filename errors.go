package rsajwt

import (
	"errors"
	"fmt"

	"github.com/cybergodev/rsajwt/internal/base64url"
	"github.com/cybergodev/rsajwt/internal/core"
	"github.com/cybergodev/rsajwt/internal/signing"
)

// Predefined errors for token operations. All of them are matched with
// errors.Is; the returned errors carry additional context.
var (
	// Key errors
	ErrKeyLoad = errors.New("failed to load key record")

	// Codec errors
	ErrInvalidCharacter = base64url.ErrInvalidCharacter
	ErrInvalidEncoding  = base64url.ErrInvalidEncoding
	ErrInvalidJSON      = base64url.ErrInvalidJSON

	// Token errors
	ErrEmptyToken       = core.ErrEmptyToken
	ErrMalformedToken   = core.ErrMalformedToken
	ErrSignatureInvalid = signing.ErrSignatureInvalid
	ErrSerialization    = signing.ErrSerialization
	ErrTokenTooLarge    = errors.New("token exceeds the configured maximum length")
	ErrTokenRevoked     = errors.New("token has been revoked and is no longer valid")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")

	// System errors
	ErrRateLimitExceeded = errors.New("rate limit exceeded: too many requests")
	ErrProcessorClosed   = errors.New("processor is closed: cannot perform operations")
)

// KeyLoadError describes why a key record could not be read or parsed.
// It matches ErrKeyLoad with errors.Is.
type KeyLoadError struct {
	Path string // Source of the record, empty for readers
	Line int    // 1-based line of the offending value, 0 if not line specific
	Err  error  // Underlying error
}

func (e *KeyLoadError) Error() string {
	src := e.Path
	if src == "" {
		src = "key record"
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s: line %d: %v", src, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %v", src, e.Err)
}

func (e *KeyLoadError) Unwrap() error {
	return e.Err
}

func (e *KeyLoadError) Is(target error) bool {
	return target == ErrKeyLoad
}

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string // The field that failed validation
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("validation failed for field '%s': %s: %v", e.Field, e.Message, e.Err)
	}
	return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
