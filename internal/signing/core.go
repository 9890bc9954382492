package signing

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cybergodev/rsajwt/internal/base64url"
)

var (
	ErrSignatureInvalid = errors.New("signature does not match signing input")
	ErrSerialization    = errors.New("failed to serialize token segment")
)

// Method represents a signing method for tokens
type Method interface {
	Alg() string
	Sign(signingString string, key any) (string, error)
	Verify(signingString string, signature string, key any) error
}

// SignedString serializes header and claims, signs "header.claims" and returns
// the three-segment token.
func SignedString(header any, claims any, method Method, key any) (string, error) {
	headerJSON, err := MarshalCompact(header)
	if err != nil {
		return "", fmt.Errorf("%w: header: %v", ErrSerialization, err)
	}

	claimsJSON, err := MarshalCompact(claims)
	if err != nil {
		return "", fmt.Errorf("%w: payload: %v", ErrSerialization, err)
	}

	signingString := base64url.Encode(headerJSON) + "." + base64url.Encode(claimsJSON)

	signature, err := method.Sign(signingString, key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	tokenBuf := make([]byte, 0, len(signingString)+1+len(signature))
	tokenBuf = append(tokenBuf, signingString...)
	tokenBuf = append(tokenBuf, '.')
	tokenBuf = append(tokenBuf, signature...)

	return string(tokenBuf), nil
}

// MarshalCompact encodes v as compact JSON without HTML escaping.
func MarshalCompact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}
