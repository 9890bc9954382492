package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/cybergodev/rsajwt/internal/base64url"
	"github.com/cybergodev/rsajwt/internal/signing"
)

var (
	ErrMalformedToken = errors.New("token must have exactly three segments")

	// ErrEmptyToken is a malformed token with a single empty segment.
	ErrEmptyToken = fmt.Errorf("empty token: %w", ErrMalformedToken)
)

// NewTokenWithClaims builds an unsigned token for claims. Claims that are
// already raw JSON must be valid JSON and valid UTF-8, since the verifier
// rejects segments that are not.
func NewTokenWithClaims(method signing.Method, claims any) (*Core, error) {
	header, err := signing.MarshalCompact(Header{Alg: method.Alg(), Typ: TokenType})
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", signing.ErrSerialization, err)
	}
	if !utf8.Valid(header) {
		return nil, fmt.Errorf("%w: header is not valid UTF-8", signing.ErrSerialization)
	}

	if raw, ok := claims.([]byte); ok {
		claims = json.RawMessage(raw)
	}
	payload, err := signing.MarshalCompact(claims)
	if err != nil {
		return nil, fmt.Errorf("%w: payload: %v", signing.ErrSerialization, err)
	}
	if !utf8.Valid(payload) {
		return nil, fmt.Errorf("%w: payload is not valid UTF-8", signing.ErrSerialization)
	}

	return &Core{
		Header: header,
		Claims: payload,
		Method: method,
	}, nil
}

// SignedString signs the token and returns "header.payload.signature".
func (t *Core) SignedString(key any) (string, error) {
	return signing.SignedString(t.Header, t.Claims, t.Method, key)
}

// SigningInput returns the first two segments of a parsed token joined by '.'.
func (t *Core) SigningInput() string {
	h, p, _, _ := split3(t.Raw, '.')
	return h + "." + p
}

// split3 splits s into exactly three parts. A fourth part makes it fail.
func split3(s string, sep byte) (string, string, string, bool) {
	first, second := -1, -1

	for i := 0; i < len(s); i++ {
		if s[i] != sep {
			continue
		}
		switch {
		case first == -1:
			first = i
		case second == -1:
			second = i
		default:
			return "", "", "", false
		}
	}

	if first == -1 || second == -1 {
		return "", "", "", false
	}

	return s[:first], s[first+1 : second], s[second+1:], true
}

// Segments splits a token string into its three segments.
func Segments(tokenString string) (header, payload, signature string, err error) {
	if tokenString == "" {
		return "", "", "", ErrEmptyToken
	}
	h, p, s, ok := split3(tokenString, '.')
	if !ok {
		return "", "", "", ErrMalformedToken
	}
	return h, p, s, nil
}

// Parse decodes tokenString and verifies its signature with the key returned
// by keyFunc. Header and payload are decoded before the signature is checked.
func Parse(tokenString string, method signing.Method, keyFunc func(*Core) (any, error)) (*Core, error) {
	token, err := ParseUnverified(tokenString)
	if err != nil {
		return nil, err
	}
	token.Method = method

	key, err := keyFunc(token)
	if err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}

	if err := method.Verify(token.SigningInput(), token.Signature, key); err != nil {
		return nil, fmt.Errorf("failed to verify signature: %w", err)
	}

	token.Valid = true
	return token, nil
}

// ParseUnverified decodes the header and payload without checking the
// signature.
func ParseUnverified(tokenString string) (*Core, error) {
	part1, part2, part3, err := Segments(tokenString)
	if err != nil {
		return nil, err
	}

	header, err := base64url.DecodeJSON(part1)
	if err != nil {
		return nil, fmt.Errorf("failed to decode header: %w", err)
	}

	claims, err := base64url.DecodeJSON(part2)
	if err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}

	return &Core{
		Header:    json.RawMessage(header),
		Claims:    json.RawMessage(claims),
		Signature: part3,
		Raw:       tokenString,
	}, nil
}
